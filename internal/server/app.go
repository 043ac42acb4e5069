// Package server wires configuration, storage, the auth service and the
// HTTP and gRPC listeners, and runs them until a shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/httpapi"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/tokens"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	repomanager repomanager.RepositoryManager
	authService *services.AuthService
	metrics     *metrics.Metrics
	registry    *prometheus.Registry
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, err := logging.New(c.LogFormat, os.Stdout)
	if err != nil {
		return nil, err
	}

	rm, err := newRepositoryManager(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	if err := rm.RunMigrations(ctx); err != nil {
		_ = rm.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	codec, err := tokens.NewCodec(tokens.Config{
		AccessSecret:  []byte(c.AccessSecret),
		RenewalSecret: []byte(c.RenewalSecret),
		Issuer:        c.Issuer,
	})
	if err != nil {
		_ = rm.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mx := metrics.New(registry)

	as, err := services.NewAuthService(rm, codec, c, logger, mx)
	if err != nil {
		_ = rm.Close()
		return nil, err
	}

	return &App{
		config:      c,
		logger:      logger,
		repomanager: rm,
		authService: as,
		metrics:     mx,
		registry:    registry,
	}, nil
}

// newRepositoryManager opens the stores selected by StoreBackend.
func newRepositoryManager(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error) {
	switch c.StoreBackend {
	case config.BackendMemory:
		return repomanager.NewMemoryRepositoryManager(), nil
	case config.BackendPostgres:
		db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return repomanager.NewPostgresRepositoryManager(db), nil
	case config.BackendRedis:
		db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		return repomanager.NewRedisRepositoryManager(db, rdb, c.RedisKeyPrefix), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	router := httpapi.NewRouter(app.authService, app.logger, app.metrics, app.registry)
	s := httpapi.NewServer(app.config.HTTPAddr, router, app.logger, app.config.ShutdownTimeout)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewHealthServer(app.config.GRPCHealthAddr, app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a signal arrives, ctx is cancelled or a listener fails,
// then stops both listeners and closes the stores.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "store_backend", app.config.StoreBackend)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.GRPCHealthAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	app.logger.Info(context.Background(), "App stopped")
	return app.repomanager.Close()
}
