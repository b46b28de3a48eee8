package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"listacerta/internal/config"
	"listacerta/internal/gateway"
	"listacerta/internal/logging"
	"listacerta/internal/shopping"
	"listacerta/internal/store"
	"listacerta/internal/suggest"
	"listacerta/internal/usage"

	"go.uber.org/zap"
)

// errNoAPIKey is returned by commands that need Gemini when no key is set.
var errNoAPIKey = errors.New("gemini API key not configured (use --api-key, GEMINI_API_KEY or llm.api_key)")

// app holds everything a command needs, built from the workspace config.
type app struct {
	workspace  string
	configPath string
	cfg        *config.Config
	store      *store.SQLiteStore
	tracker    *usage.Tracker
	gateway    *gateway.Client // nil without an API key
	svc        *shopping.Service
}

// resolveWorkspace returns the --workspace flag or the current directory.
func resolveWorkspace() (string, error) {
	if workspace != "" {
		return workspace, nil
	}
	return os.Getwd()
}

// openApp loads config, sets up logging and opens the store. The Gemini
// gateway is created only when an API key is available.
func openApp(ctx context.Context) (*app, error) {
	ws, err := resolveWorkspace()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}

	cfgPath := config.DefaultPath(ws)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	if verbose {
		cfg.Logging.DebugMode = true
		cfg.Logging.Level = "debug"
	}

	if err := logging.Initialize(ws, cfg.Logging.Settings()); err != nil {
		logger.Warn("failed to initialize file logging", zap.Error(err))
	}
	logging.Boot("Workspace %s, config %s", ws, cfgPath)

	db, err := store.Open(cfg.Store.Driver, cfg.DatabasePath(ws))
	if err != nil {
		return nil, err
	}

	tracker, err := usage.NewTracker(ws)
	if err != nil {
		logger.Warn("usage tracking disabled", zap.Error(err))
		tracker = nil
	}

	a := &app{
		workspace:  ws,
		configPath: cfgPath,
		cfg:        cfg,
		store:      db,
		tracker:    tracker,
	}

	if cfg.LLM.APIKey != "" {
		llmTimeout := cfg.GetLLMTimeout()
		if timeout > 0 {
			llmTimeout = timeout
		}
		gw, err := gateway.New(ctx, gateway.Config{
			APIKey:     cfg.LLM.APIKey,
			Model:      cfg.LLM.Model,
			ImageModel: cfg.LLM.ImageModel,
			Timeout:    llmTimeout,
			BaseURL:    cfg.LLM.BaseURL,
		}, tracker)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.gateway = gw
		a.svc = shopping.NewService(db, gw)
	} else {
		logging.Boot("No Gemini API key; suggestions and price comparison disabled")
		a.svc = shopping.NewService(db, nil)
	}

	logger.Debug("app ready",
		zap.String("workspace", ws),
		zap.String("driver", db.Driver()),
		zap.Bool("gemini", a.gateway != nil))
	return a, nil
}

// requireGateway fails when Gemini is not configured.
func (a *app) requireGateway() error {
	if a.gateway == nil {
		return errNoAPIKey
	}
	return nil
}

// pipeline builds the suggestion pipeline, or nil without Gemini.
func (a *app) pipeline(images bool) *suggest.Pipeline {
	if a.gateway == nil {
		return nil
	}
	return suggest.NewPipeline(a.gateway, suggest.PipelineOptions{
		Images: images && a.cfg.Suggest.Images,
		Limit:  a.cfg.GetMaxCandidates(),
	})
}

// defaultLocation is the configured compare location.
func (a *app) defaultLocation() shopping.Location {
	return shopping.Location{City: a.cfg.Location.City, State: a.cfg.Location.State}
}

// Close flushes usage and closes the store.
func (a *app) Close() {
	if a.tracker != nil {
		if err := a.tracker.Close(); err != nil {
			logger.Warn("failed to save usage", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}
	logging.CloseAll()
}

// commandContext returns a context cancelled on SIGINT/SIGTERM and tagged
// with the usage surface.
func commandContext(parent context.Context, surface string) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	return usage.WithSurface(ctx, surface), cancel
}
