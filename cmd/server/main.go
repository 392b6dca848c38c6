package main

import (
	"context"
	"database/sql"
	"errors"
	"field-route-service/internal/adapters/cache"
	"field-route-service/internal/adapters/repositories"
	"field-route-service/internal/api"
	"field-route-service/internal/config"
	"field-route-service/internal/events"
	"field-route-service/internal/metrics"
	"field-route-service/internal/monitoring"
	"field-route-service/internal/notify"
	"field-route-service/internal/platform/db"
	"field-route-service/internal/ports"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

// main is the application composition root.
// It wires concrete adapters (SQL, Redis, webhook) behind ports and starts the
// HTTP server and the route monitor.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	// Initialize schema and, when a seed file is configured, load demo customers.
	if err := initAndSeed(conn, cfg.DBDriver, cfg.SeedPath); err != nil {
		log.Fatal(err)
	}

	tuning, err := config.NewTuningStore(cfg.TuningPath)
	if err != nil {
		log.Fatal(err)
	}
	if err := tuning.Watch(ctx); err != nil {
		log.Printf("tuning hot reload disabled: %v", err)
	}

	customers := repositories.NewSQLCustomerRepository(conn, cfg.DBDriver)
	routes := repositories.NewSQLRouteRepository(conn, cfg.DBDriver)
	visits := repositories.NewSQLVisitRepository(conn, cfg.DBDriver)
	gps := repositories.NewSQLGpsRepository(conn, cfg.DBDriver)
	alerts := repositories.NewSQLAlertRepository(conn, cfg.DBDriver)

	freshness := cfg.GPSFreshness
	if freshness <= 0 {
		freshness = cfg.MonitorInterval
	}

	// Redis is optional: without it positions come from SQL and the
	// cooldown lives in process memory.
	var (
		positions ports.PositionCache
		cooldown  ports.AlertSuppressor = cache.NewMemoryAlertCooldown()
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis ping addr=%s: %v", cfg.RedisAddr, err)
		}
		positions = cache.NewRedisPositionCache(rdb, 2*freshness)
		cooldown = cache.NewRedisAlertCooldown(rdb)
		log.Printf("redis enabled addr=%s", cfg.RedisAddr)
	}

	m := metrics.New()
	bus := events.NewBus(m)

	notifier, err := newNotifier(cfg)
	if err != nil {
		log.Fatal(err)
	}

	var wg sync.WaitGroup
	alertEvents := bus.Subscribe(64)
	wg.Go(func() {
		notify.NewDispatcher(notifier, m, cfg.NotifyTimeout).Run(ctx, alertEvents)
	})

	tracker := monitoring.NewTracker(gps, visits, positions, freshness, m)
	monitor := monitoring.NewService(monitoring.Deps{
		Routes:     routes,
		Customers:  customers,
		Visits:     visits,
		Alerts:     alerts,
		Tracker:    tracker,
		Cooldown:   cooldown,
		Bus:        bus,
		Metrics:    m,
		Thresholds: tuning.Thresholds,
		Location:   cfg.Location,
	})

	if cfg.MonitorEnabled {
		scheduler := monitoring.NewScheduler(routes, monitor, cfg.MonitorInterval, cfg.MonitorConcurrency, m, cfg.Location)
		wg.Go(func() { scheduler.Run(ctx) })
	}

	router := api.NewRouter(api.Deps{
		Customers: customers,
		Routes:    routes,
		Visits:    visits,
		Alerts:    alerts,
		Tracker:   tracker,
		Monitor:   monitor,
		Planner:   tuning.Planner,
		MaxStops:  func() int { return tuning.Current().MaxStopsPerRoute },
		Metrics:   m,
		Location:  cfg.Location,
	})

	log.Printf("Server listening addr=:%s driver=%s", cfg.Port, cfg.DBDriver)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server failed: %v", err)
		}
		stop()
	case <-ctx.Done():
		log.Println("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}

	wg.Wait()
	bus.Close()
	log.Println("server stopped")
}

func newNotifier(cfg config.Config) (ports.Notifier, error) {
	if cfg.NotifyWebhookURL == "" {
		return notify.LogNotifier{}, nil
	}
	n, err := notify.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.NotifyTimeout)
	if err != nil {
		return nil, fmt.Errorf("new notifier: %w", err)
	}
	return n, nil
}

func initAndSeed(conn *sql.DB, dialect db.Dialect, seedPath string) error {
	if err := repositories.InitSchema(conn); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if seedPath == "" {
		return nil
	}
	if err := repositories.SeedCustomersFromJSON(conn, dialect, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	return nil
}
