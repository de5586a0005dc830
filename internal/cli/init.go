package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/thruflo/taskdeck/internal/config"
)

var (
	initFeedURL  string
	initFeedPath string
	initForce    bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize .taskdeck/ with a default configuration",
	Long: `Creates .taskdeck/config.yaml with default settings, and a .gitignore that
keeps it (and the password hash it will hold) out of version control.

Pass --feed-url or --feed-path to record where tasks are read from.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initFeedURL, "feed-url", "", "URL of the task feed")
	initCmd.Flags().StringVar(&initFeedPath, "feed-path", "", "path of a local task feed file, relative to --dir")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config")
	initCmd.MarkFlagsMutuallyExclusive("feed-url", "feed-path")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := config.Path(baseDir)
	if fileExists(path) && !initForce {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
	}

	cfg := config.DefaultConfig()
	cfg.Feed.URL = initFeedURL
	cfg.Feed.Path = initFeedPath

	if err := config.SaveConfig(baseDir, &cfg); err != nil {
		return err
	}
	if err := writeGitignore(filepath.Join(baseDir, config.Dir)); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\n", path)
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func writeGitignore(dir string) error {
	content := `# Holds the dashboard password hash
config.yaml
`
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write .gitignore: %w", err)
	}
	return nil
}
