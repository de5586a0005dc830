package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

// baseDir is where .taskdeck/ is looked up.
var baseDir string

var rootCmd = &cobra.Command{
	Use:   "taskdeck",
	Short: "Dashboard for multi-agent task workflows",
	Long: `Taskdeck shows the tasks that a team of agents (Claude, Codex and a
human) hand back and forth: a filterable overview of every task, and a
detail page per task with its chat, plan, review and handoff history.

Tasks are read from a JSON feed, either a URL or a local file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("taskdeck version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&baseDir, "dir", ".", "base directory containing .taskdeck/")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
