package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/kbukum/hollowfoot/analysis"
	"github.com/kbukum/hollowfoot/config"
	"github.com/kbukum/hollowfoot/logger"
	"github.com/kbukum/hollowfoot/observability"
	"github.com/kbukum/hollowfoot/registry"
	"github.com/kbukum/hollowfoot/version"
	"github.com/kbukum/hollowfoot/workflow"
)

// App is one configured hollowfoot process.
type App struct {
	Name     string
	Version  string
	Cfg      *config.Config
	Registry *registry.Registry
	Logger   *logger.Logger
	// Metrics is nil unless metrics are enabled.
	Metrics *observability.Metrics
	Summary *Summary

	gracefulTimeout time.Duration
	onStart         []Hook
	onStop          []Hook
}

// NewApp applies defaults to cfg, validates it and initializes the logger.
// Without WithRegistry the app uses analysis.DefaultRegistry.
func NewApp(cfg *config.Config, opts ...Option) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	app := &App{
		Name:            cfg.Name,
		Version:         cfg.Version,
		Cfg:             cfg,
		gracefulTimeout: 15 * time.Second,
	}
	if app.Version == "" {
		app.Version = version.Version
	}

	o := resolveOptions(opts)
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}

	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(&cfg.Logging)
		logger.RegisterDefaults()
		app.Logger = logger.GetGlobalLogger()
	}

	if o.registry != nil {
		app.Registry = o.registry
	} else {
		reg, err := analysis.DefaultRegistry()
		if err != nil {
			return nil, fmt.Errorf("default registry: %w", err)
		}
		app.Registry = reg
	}

	app.Summary = NewSummary(app.Name, app.Version)
	return app, nil
}

// AnalysisOptions returns the options that make an Analysis use the app's
// registry, logger, eagerness and instrumentation. Every evaluation is also
// recorded in the app's Summary.
func (a *App) AnalysisOptions() []analysis.Option {
	eval := []workflow.Option{workflow.WithMiddleware(a.Summary.Middleware())}
	if a.Cfg.Tracing.Enabled {
		eval = append(eval, workflow.WithTracing(a.Name))
	}
	if a.Metrics != nil {
		eval = append(eval, workflow.WithMetrics(a.Metrics))
	}
	return []analysis.Option{
		analysis.WithRegistry(a.Registry),
		analysis.WithEager(a.Cfg.Engine.Eager),
		analysis.WithLogger(logger.Get("analysis")),
		analysis.WithEvaluation(eval...),
	}
}

// RunTask starts the app, runs task and shuts down. SIGINT and SIGTERM
// cancel the task's context. The task error wins over a shutdown error.
func (a *App) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			a.Logger.Info("Received signal, canceling task", map[string]interface{}{
				"signal": sig.String(),
			})
			cancel()
		case <-taskCtx.Done():
		}
	}()

	start := time.Now()
	taskErr := task(taskCtx)
	a.Summary.SetRunDuration(time.Since(start))

	if stopErr := a.stop(); stopErr != nil {
		if taskErr != nil {
			return taskErr
		}
		return stopErr
	}
	return taskErr
}

func (a *App) startup(ctx context.Context) error {
	start := time.Now()

	a.Logger.Info("Starting hollowfoot", map[string]interface{}{
		"name":    a.Name,
		"version": a.Version,
	})

	if err := a.initObservability(ctx); err != nil {
		return fmt.Errorf("observability: %w", err)
	}

	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}

	if a.Cfg.Engine.FreezeRegistry {
		a.Registry.Freeze()
		a.Logger.Debug("registry frozen", map[string]interface{}{
			"operations": len(a.Registry.List()),
		})
	}

	a.Summary.SetStartupDuration(time.Since(start))
	return nil
}

func (a *App) initObservability(ctx context.Context) error {
	if a.Cfg.Tracing.Enabled {
		tp, err := observability.InitTracer(ctx, a.Cfg.TracerConfig())
		if err != nil {
			return err
		}
		a.OnStop(tp.Shutdown)
	}
	if a.Cfg.Metrics.Enabled {
		mp, err := observability.InitMeter(ctx, a.Cfg.MeterConfig())
		if err != nil {
			return err
		}
		a.OnStop(mp.Shutdown)
		m, err := observability.NewMetrics(observability.Meter(a.Name))
		if err != nil {
			return err
		}
		a.Metrics = m
	}
	return nil
}

// Shutdown runs the stop hooks. Use it when managing your own lifecycle.
func (a *App) Shutdown(ctx context.Context) error {
	return a.stop()
}

func (a *App) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	hooks := slices.Clone(a.onStop)
	slices.Reverse(hooks)
	if err := runHooks(ctx, hooks); err != nil {
		a.Logger.Error("OnStop hook error", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	a.Logger.Debug("shutdown complete")
	return nil
}
