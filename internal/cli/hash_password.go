package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thruflo/taskdeck/internal/auth"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print the argon2id hash of a dashboard password",
	Long: `Prompts for a password twice and prints its hash, for pasting into
server.password_hash in a config file managed elsewhere.`,
	Args: cobra.NoArgs,
	RunE: runHashPassword,
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	password, err := promptPassword()
	if err != nil {
		return fmt.Errorf("password setup failed: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
