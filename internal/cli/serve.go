package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/thruflo/taskdeck/internal/auth"
	"github.com/thruflo/taskdeck/internal/config"
	"github.com/thruflo/taskdeck/internal/feed"
	"github.com/thruflo/taskdeck/internal/server"
)

var (
	servePort        int
	serveFeedURL     string
	serveFeedPath    string
	serveWatch       bool
	serveSetPassword bool
)

// Seams for tests.
var (
	promptPassword = auth.PromptAndConfirmPassword
	getenv         = os.Getenv
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard over HTTP",
	Long: `Starts the web dashboard. Each signed-in browser gets its own view of the
task feed, kept live over a websocket.

On first use you'll be prompted to set a password; the argon2id hash is saved
to .taskdeck/config.yaml. Use --password to change it. When no hash is
configured and TASKDECK_PASSWORD is set, that password is used without being
saved.

With --watch (or feed.watch in the config) a local feed file is reloaded for
every session whenever it changes.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", config.DefaultServerPort, "port to listen on")
	serveCmd.Flags().StringVar(&serveFeedURL, "feed-url", "", "URL of the task feed")
	serveCmd.Flags().StringVar(&serveFeedPath, "feed-path", "", "path of a local task feed file")
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "reload when the feed file changes")
	serveCmd.Flags().BoolVar(&serveSetPassword, "password", false, "prompt to set/change the dashboard password")
	serveCmd.MarkFlagsMutuallyExclusive("feed-url", "feed-path")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp(baseDir, feedFlags{url: serveFeedURL, path: serveFeedPath})
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("port") {
		a.cfg.Server.Port = servePort
		if err := config.ValidateServerConfig(&a.cfg.Server); err != nil {
			return err
		}
	}

	watch := serveWatch || a.cfg.Feed.Watch
	if watch && a.cfg.Feed.Path == "" {
		return errors.New("--watch requires a local feed path")
	}

	out := cmd.OutOrStdout()

	hash, err := resolvePasswordHash(out, baseDir, a.cfg, serveSetPassword)
	if err != nil {
		return err
	}

	var css bytes.Buffer
	if err := a.highlighter.WriteCSS(&css); err != nil {
		return fmt.Errorf("failed to build highlight stylesheet: %w", err)
	}

	srv, err := server.NewServer(&server.Config{
		Port:         a.cfg.Server.Port,
		PasswordHash: hash,
		NewDashboard: a.newDashboard,
		HighlightCSS: css.Bytes(),
		Logger:       a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.Start(ctx)
	}()

	// Give the server a moment to start and check for errors
	select {
	case err := <-serverErrCh:
		return fmt.Errorf("web server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	defer func() {
		if err := srv.Stop(); err != nil {
			fmt.Fprintf(out, "Warning: failed to stop web server: %v\n", err)
		}
	}()

	fmt.Fprintf(out, "Serving tasks at http://localhost:%s\n", listenPort(srv))

	if watch {
		w := feed.NewWatcher(a.cfg.Feed.Path, func() { srv.ReloadAll(ctx) }, feed.WithLogger(a.logger))
		go func() {
			if err := w.Run(ctx); err != nil {
				a.logger.Warn("feed watch stopped", "path", a.cfg.Feed.Path, "error", err)
			}
		}()
		fmt.Fprintf(out, "Watching %s for changes\n", a.cfg.Feed.Path)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		fmt.Fprintf(out, "\nStopped.\n")
	case <-ctx.Done():
	case err := <-serverErrCh:
		return err
	}
	return nil
}

// resolvePasswordHash returns the hash the server checks sign-ins against.
// A configured hash wins, then TASKDECK_PASSWORD; otherwise, or when
// setPassword is true, the user is prompted and the new hash is saved.
func resolvePasswordHash(out io.Writer, basePath string, cfg *config.Config, setPassword bool) (string, error) {
	if !setPassword {
		if cfg.Server.PasswordHash != "" {
			return cfg.Server.PasswordHash, nil
		}
		if password := getenv(config.PasswordEnv); password != "" {
			hash, err := auth.HashPassword(password)
			if err != nil {
				return "", fmt.Errorf("failed to hash password: %w", err)
			}
			return hash, nil
		}
	}

	password, err := promptPassword()
	if err != nil {
		return "", fmt.Errorf("password setup failed: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	// Save into the file as written, not cfg, which carries flag overrides.
	saved, err := config.LoadConfig(basePath)
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	saved.Server.PasswordHash = hash
	if err := config.SaveConfig(basePath, saved); err != nil {
		return "", fmt.Errorf("failed to save config: %w", err)
	}
	cfg.Server.PasswordHash = hash

	fmt.Fprintln(out, "Password saved to config.")
	return hash, nil
}

// listenPort returns the port srv is bound to.
func listenPort(srv *server.Server) string {
	_, port, err := net.SplitHostPort(srv.ListenAddr())
	if err != nil {
		return fmt.Sprint(srv.Port())
	}
	return port
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
