package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iedon/htmlfrag/config"
	"github.com/iedon/htmlfrag/service"
	"github.com/iedon/htmlfrag/templatex"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "htmlfrag",
		Short: "HTML fragment factory with a template cache",
		Long: `htmlfrag turns HTML template strings into detached node fragments.

Parsed templates are memoized by their exact source text and every request
receives an independent deep copy. The server exposes the factory over a
small JSON API; the build command runs it over a batch of templates.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		buildCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// loadConfig reads path, or returns the defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if strings.TrimSpace(path) == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// newService builds the fragment service and, when configured, its snippet library.
func newService(cfg *config.Config, logger *slog.Logger) (*service.Service, error) {
	var lib *templatex.Library
	if cfg.TemplateDir != "" {
		var err error
		lib, err = templatex.Load(cfg.TemplateDir, nil)
		if err != nil {
			return nil, fmt.Errorf("templates: %w", err)
		}
		logger.Info("snippets loaded", "dir", cfg.TemplateDir, "count", len(lib.Names()))
	}
	return service.New(cfg, lib, logger, SERVER_VERSION)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
