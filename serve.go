package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iedon/htmlfrag/server"
)

func serveCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the fragment API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)
			logger.Info("starting", "version", SERVER_VERSION, "listen", cfg.Listen)

			svc, err := newService(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(cfg, svc, logger, SERVER_SIGNATURE).Start(ctx)
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to configuration file")

	return cmd
}
