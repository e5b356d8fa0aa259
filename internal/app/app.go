package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/bucketd/internal/config"
	"github.com/yungbote/bucketd/internal/events"
	"github.com/yungbote/bucketd/internal/observability"
	"github.com/yungbote/bucketd/internal/platform/logger"
	"github.com/yungbote/bucketd/internal/registry"
	"github.com/yungbote/bucketd/internal/server"
	"github.com/yungbote/bucketd/internal/supervisor"
)

type App struct {
	Log      *logger.Logger
	Config   *config.Config
	Registry *registry.Registry

	sup          *supervisor.Supervisor
	server       *http.Server
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelShutdown := observability.Init(ctx, log, observability.Config{
		ServiceName: "bucketd",
		Environment: cfg.Env,
	})

	sup := supervisor.New(log, supervisor.Config{MaxWorkers: cfg.Registry.MaxWorkers})

	pub := events.NewPublisher()
	hub := events.NewHub(log, cfg.Registry.EventBuffer)
	pub.Subscribe(hub.Broadcast)

	table := registry.NewTable()
	reg := registry.New(table, sup, pub, log, registry.Config{
		MailboxSize: cfg.Registry.MailboxSize,
	})

	router := server.NewRouter(server.RouterConfig{
		HTTP:           cfg.HTTP,
		BucketsHandler: server.NewBucketsHandler(reg, sup),
		EventsHandler:  server.NewEventsHandler(hub),
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout.Duration,
		IdleTimeout:       cfg.HTTP.IdleTimeout.Duration,
		WriteTimeout:      0,
	}

	return &App{
		Log:          log,
		Config:       cfg,
		Registry:     reg,
		sup:          sup,
		server:       srv,
		otelShutdown: otelShutdown,
	}, nil
}

// Run drives the registry controller and the HTTP server until ctx is
// cancelled or either fails. A controller failure (publish error) tears the
// whole process down; state is rebuilt fresh on the next start.
func (a *App) Run(ctx context.Context) error {
	a.Log.Info("bucketd starting", "addr", a.Config.HTTP.Addr, "env", a.Config.Env)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Registry.Run(ctx)
	})

	g.Go(func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- a.server.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout.Duration)
			defer cancel()
			_ = a.server.Shutdown(shutdownCtx)
			return nil
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}
	})

	err := g.Wait()

	a.sup.StopAll()
	if a.otelShutdown != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(flushCtx)
		cancel()
	}
	a.Log.Sync()
	return err
}
