package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neexbeast/geoweather/internal/api"
	"github.com/neexbeast/geoweather/internal/clients"
	"github.com/neexbeast/geoweather/internal/config"
	"github.com/neexbeast/geoweather/internal/location"
	"github.com/neexbeast/geoweather/internal/locator"
	"github.com/neexbeast/geoweather/internal/metrics"
	"github.com/neexbeast/geoweather/internal/store"
	"github.com/neexbeast/geoweather/internal/weather"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

// stateStore is what both states persist to, plus a health check.
type stateStore interface {
	location.Store
	Ping(ctx context.Context) error
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()

	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var geo location.Geocoder
	switch cfg.Geocoder {
	case config.GeocoderGoogle:
		geo = clients.NewGoogleGeocoder(cfg.GoogleMapsAPIKey)
	default:
		geo = clients.NewGeocodingClient(cfg.OpenWeatherAPIKey)
	}

	// Wire dependencies.
	device := locator.NewPushLocator()
	locState := location.NewState(cfg.Location, device, geo, st, m, log)
	weatherState := weather.NewState(locState, clients.NewWeatherClient(cfg.OpenWeatherAPIKey), st, m, log)

	if err := locState.Restore(ctx); err != nil {
		log.Error("location restore failed, starting empty", "err", err)
	}
	if err := weatherState.Restore(ctx); err != nil {
		log.Error("weather restore failed, starting empty", "err", err)
	}

	locState.OnCommit(func(location.Record) {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error("weather fetch panicked", "recover", r)
				}
			}()
			weatherState.FetchAll(context.WithoutCancel(ctx))
		}()
	})

	refresher, err := locState.StartAutoRefresh(ctx)
	if err != nil {
		return fmt.Errorf("starting auto refresh: %w", err)
	}
	defer refresher.Stop()

	handlers := api.NewHandlers(locState, weatherState, device, cfg.Location.ValidityWindow, log)
	router := api.NewRouter(handlers, cfg.BearerToken, st, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * cfg.Location.AcquisitionTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", cfg.Port, "store", cfg.Store, "geocoder", cfg.Geocoder)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	// Stop returns once a running tick is done, so no naming starts after Wait.
	refresher.Stop()
	locState.Wait()
	if err := locState.Persist(shutdownCtx); err != nil {
		log.Warn("final location persist failed", "err", err)
	}
	if err := weatherState.Persist(shutdownCtx); err != nil {
		log.Warn("final weather persist failed", "err", err)
	}

	log.Info("server shut down cleanly")
	return nil
}

// openStore connects the configured backend and returns a close func for it.
func openStore(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (stateStore, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := store.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		log.Info("migrations applied")
		return &pgStore{PostgresStore: store.NewPostgresStore(pool, cfg.StoreNamespace), pool: pool}, pool.Close, nil

	case config.StoreMemory:
		log.Warn("using in-memory store, state is lost on restart")
		return store.NewMemoryStore(), func() {}, nil

	default:
		client, err := store.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return store.NewRedisStore(client, cfg.StoreNamespace), func() { _ = client.Close() }, nil
	}
}

// pgStore adds a pool ping to PostgresStore for the health check.
type pgStore struct {
	*store.PostgresStore
	pool interface {
		Ping(ctx context.Context) error
	}
}

func (p *pgStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
