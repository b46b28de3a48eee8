package main

import (
	"fmt"

	"listacerta/internal/api"
	"listacerta/internal/config"
	"listacerta/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the shopping list over a JSON HTTP API",
	Long: `Starts the HTTP API on server.addr (or --addr) until interrupted.

Edits to .lista/config.yaml while serving are picked up for the logging
section without a restart.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd.Context(), "http")
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	watcher, err := config.NewWatcher(a.configPath, func(cfg *config.Config) {
		if err := logging.Initialize(a.workspace, cfg.Logging.Settings()); err != nil {
			logger.Warn("failed to apply reloaded logging config", zap.Error(err))
			return
		}
		logger.Info("config reloaded", zap.String("path", a.configPath))
	})
	if err != nil {
		logger.Warn("config watcher unavailable", zap.Error(err))
	} else if err := watcher.Start(ctx); err != nil {
		logger.Warn("config watcher unavailable", zap.Error(err))
	} else {
		defer watcher.Stop()
	}

	srv := api.NewServer(a.svc, api.Options{
		Pipeline:        a.pipeline(true),
		MinQueryLength:  a.cfg.GetMinQueryLength(),
		DefaultLocation: a.defaultLocation(),
	})
	fmt.Fprintf(cmd.OutOrStdout(), "Servindo em http://%s\n", addr)
	logger.Info("serving", zap.String("addr", addr), zap.Bool("suggestions", a.gateway != nil))
	return srv.ListenAndServe(ctx, addr)
}
