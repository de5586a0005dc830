package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thruflo/taskdeck/internal/dashboard"
	"github.com/thruflo/taskdeck/internal/query"
)

var (
	renderFeedURL  string
	renderFeedPath string
	renderStatus   string
	renderPhase    string
	renderAgent    string
	renderSearch   string
	renderSort     string
	renderSortDir  string
	renderTab      string
)

var renderCmd = &cobra.Command{
	Use:   "render [fragment]",
	Short: "Render one view of the dashboard to stdout",
	Long: `Loads the task feed once and prints the HTML the dashboard would show for
the given location fragment, e.g. "#/" for the overview or "#/task/T-101"
for a task.

Filters, sort and tab are applied in that order after loading. If the feed
cannot be loaded the error view is printed and the command fails.`,
	Example: `  taskdeck render --feed-path tasks.json --status OPEN --sort duration --sort-dir desc
  taskdeck render '#/task/T-101' --tab plan`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderFeedURL, "feed-url", "", "URL of the task feed")
	f.StringVar(&renderFeedPath, "feed-path", "", "path of a local task feed file")
	f.StringVar(&renderStatus, "status", query.All, "status filter: all, OPEN or CLOSED")
	f.StringVar(&renderPhase, "phase", query.All, "phase filter")
	f.StringVar(&renderAgent, "agent", query.All, "next agent filter")
	f.StringVar(&renderSearch, "search", "", "free-text search")
	f.StringVar(&renderSort, "sort", "", "sort column")
	f.StringVar(&renderSortDir, "sort-dir", "", "sort direction: asc or desc")
	f.StringVar(&renderTab, "tab", "", "detail tab")
	renderCmd.MarkFlagsMutuallyExclusive("feed-url", "feed-path")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	if renderSortDir != "" && renderSort == "" {
		return errors.New("--sort-dir requires --sort")
	}

	a, err := loadApp(baseDir, feedFlags{url: renderFeedURL, path: renderFeedPath})
	if err != nil {
		return err
	}

	d := a.newDashboard(a.logger)

	var fragment string
	if len(args) > 0 {
		fragment = args[0]
	}
	d.Navigate(fragment)

	loadErr := d.Load(commandContext(cmd))

	filters := []struct {
		flag  string
		key   query.FilterKey
		value string
	}{
		{"status", query.FilterStatus, renderStatus},
		{"phase", query.FilterPhase, renderPhase},
		{"agent", query.FilterAgent, renderAgent},
		{"search", query.FilterSearch, renderSearch},
	}
	for _, f := range filters {
		if !cmd.Flags().Changed(f.flag) {
			continue
		}
		if err := d.SetFilter(f.key, f.value); err != nil {
			return err
		}
	}

	if renderSort != "" {
		if err := applySort(d, renderSort, renderSortDir); err != nil {
			return err
		}
	}

	if renderTab != "" {
		if err := d.SetTab(renderTab); err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), d.View())
	return loadErr
}

// applySort clicks the column for key, and once more if that left it
// sorted against dir.
func applySort(d *dashboard.Dashboard, key, dir string) error {
	var want query.SortDir
	if dir != "" {
		var err error
		if want, err = query.ParseSortDir(dir); err != nil {
			return err
		}
	}

	if err := d.SetSort(key); err != nil {
		return err
	}
	if want != "" && d.State().SortDir != want {
		return d.SetSort(key)
	}
	return nil
}
