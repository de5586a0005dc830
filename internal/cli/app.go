package cli

import (
	"fmt"

	"github.com/thruflo/taskdeck/internal/config"
	"github.com/thruflo/taskdeck/internal/dashboard"
	"github.com/thruflo/taskdeck/internal/feed"
	"github.com/thruflo/taskdeck/internal/logging"
	"github.com/thruflo/taskdeck/internal/markdown"
	"github.com/thruflo/taskdeck/internal/task"
)

// app holds what every command builds from the configuration.
type app struct {
	cfg         *config.Config
	logger      *logging.Logger
	source      feed.Source
	renderer    *dashboard.Renderer
	highlighter *markdown.Highlighter
}

// feedFlags override the configured feed location.
type feedFlags struct {
	url  string
	path string
}

// loadApp loads the configuration under dir, applies the feed flags, and
// builds the shared components.
func loadApp(dir string, flags feedFlags) (*app, error) {
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// A flag replaces the configured feed; flag paths are relative to the
	// working directory, configured ones to dir.
	switch {
	case flags.url != "":
		cfg.Feed.URL, cfg.Feed.Path = flags.url, ""
	case flags.path != "":
		cfg.Feed.URL, cfg.Feed.Path = "", flags.path
	default:
		cfg.Feed.Path = cfg.Feed.ResolvePath(dir)
	}
	if err := config.ValidateFeed(&cfg.Feed); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.Default()
	logger.SetLevel(level)

	loc, err := cfg.Display.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	renderer, err := dashboard.NewRenderer(markdown.NewConverter(), dashboard.Options{
		Location:     loc,
		PrimaryAgent: task.Agent(cfg.Display.PrimaryAgent),
		HumanName:    cfg.Display.HumanName,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	var source feed.Source
	if cfg.Feed.URL != "" {
		source = feed.NewHTTPSource(cfg.Feed.URL)
	} else {
		source = feed.NewFileSource(cfg.Feed.Path)
	}

	return &app{
		cfg:         cfg,
		logger:      logger,
		source:      source,
		renderer:    renderer,
		highlighter: markdown.NewHighlighter(cfg.Display.HighlightStyle),
	}, nil
}

// newDashboard builds a dashboard engine logging to logger.
func (a *app) newDashboard(logger *logging.Logger) *dashboard.Dashboard {
	return dashboard.New(a.source, a.renderer,
		dashboard.WithEnhancer(a.highlighter),
		dashboard.WithLogger(logger),
	)
}
