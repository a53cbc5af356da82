package cli

import (
	"context"
	"fmt"

	"github.com/brianndofor/wif/internal/analysis"
	"github.com/brianndofor/wif/internal/config"
	"github.com/brianndofor/wif/internal/github"
	"github.com/brianndofor/wif/internal/logging"
	"github.com/brianndofor/wif/internal/oracle"
	"github.com/brianndofor/wif/internal/provider"
	"github.com/brianndofor/wif/internal/sdkmap"
	"github.com/brianndofor/wif/internal/store"
	"go.uber.org/zap"
)

type appKey struct{}

type App struct {
	Config   config.Config
	GH       *github.Client
	Provider provider.Runner
	Oracle   oracle.Oracle
	SDKs     *sdkmap.Table
	Pipeline *analysis.Pipeline
	Store    *store.Store
	Logger   *zap.SugaredLogger
}

func withApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey{}, app)
}

func getApp(ctx context.Context) (*App, error) {
	app, ok := ctx.Value(appKey{}).(*App)
	if !ok || app == nil {
		return nil, fmt.Errorf("internal error: app not initialized")
	}
	return app, nil
}

func initApp(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	var ghRunner github.Runner = github.RealRunner{Command: cfg.GitHub.Command}
	var prov provider.Runner = provider.NewClaudeRunner(cfg.Provider)
	if cfg.Mock.Enabled {
		logger.Infow("mock mode", "gh_dir", cfg.Mock.GitHubDir, "provider_dir", cfg.Mock.ProviderDir)
		ghRunner = github.NewFixtureRunner(cfg.Mock.GitHubDir)
		prov = provider.NewFakeRunner(cfg.Mock.ProviderDir)
	}
	gh := github.NewClient(ghRunner)

	sdks, err := sdkmap.Load(cfg.SDK.TablePath)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	orc := oracle.NewClient(prov, cfg.Redaction.Enabled, logger)
	opts := analysis.Options{
		BatchSize:     cfg.Analysis.BatchSize,
		MaxReleases:   cfg.Analysis.MaxReleases,
		MaxHigh:       cfg.Analysis.MaxHigh,
		MaxMedium:     cfg.Analysis.MaxMedium,
		DisplayMedium: cfg.Analysis.DisplayMedium,
		TraceURLBase:  cfg.Trace.URLBase,
	}

	return &App{
		Config:   cfg,
		GH:       gh,
		Provider: prov,
		Oracle:   orc,
		SDKs:     sdks,
		Pipeline: analysis.New(orc, gh, sdks, opts, logger),
		Store:    st,
		Logger:   logger,
	}, nil
}

func (a *App) Close() {
	_ = a.Logger.Sync()
	if err := a.Store.Close(); err != nil {
		a.Logger.Warnw("failed to close store", "error", err)
	}
}
