package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinic-slot-booking/internal/api"
	"github.com/hackgods/clinic-slot-booking/internal/appointment"
	"github.com/hackgods/clinic-slot-booking/internal/config"
	"github.com/hackgods/clinic-slot-booking/internal/db"
	"github.com/hackgods/clinic-slot-booking/internal/lock"
	"github.com/hackgods/clinic-slot-booking/internal/logger"
	"github.com/hackgods/clinic-slot-booking/internal/metrics"
	redisclient "github.com/hackgods/clinic-slot-booking/internal/redis"
	"github.com/hackgods/clinic-slot-booking/internal/scheduling"
	"github.com/hackgods/clinic-slot-booking/internal/seed"
)

const version = "0.3.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "api-server",
		Short:         "Clinic slot booking API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	return rootCmd
}

// run executes the command line and reports failures as a log line on out.
func run(args []string, out io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)

	if err := rootCmd.Execute(); err != nil {
		log := logger.NewWithWriter(os.Getenv("APP_ENV"), out)
		log.Error().Err(err).Msg("api-server failed")
		return 1
	}
	return 0
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runServer(cfg, logger.New(cfg.Env))
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.PostgresDSN == "" {
				return errors.New("POSTGRES_DSN is required")
			}
			log := logger.New(cfg.Env)

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, 2)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.Migrate(ctx, pool); err != nil {
				return err
			}
			log.Info().Int("statements", len(db.SchemaStatements())).Msg("schema applied")
			return nil
		},
	}
}

func runServer(cfg config.Config, log zerolog.Logger) error {
	log.Info().
		Str("env", cfg.Env).
		Str("http_port", cfg.HTTPPort).
		Str("store", cfg.Store).
		Str("lock_backend", cfg.LockBackend).
		Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		repo      appointment.Repository
		storePing api.Pinger
	)
	switch cfg.Store {
	case config.StorePostgres:
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, 20)
		cancelPg()
		if err != nil {
			return fmt.Errorf("postgres connection: %w", err)
		}
		defer pool.Close()
		log.Info().Msg("connected to Postgres")

		storePing = pool
		repo = appointment.NewPgRepository(pool)
	default:
		repo = appointment.NewMemoryRepository()
	}

	var (
		locker lock.Locker
		rdb    redis.UniversalClient
	)
	switch cfg.LockBackend {
	case config.LockRedis:
		client, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			return fmt.Errorf("redis connection: %w", err)
		}
		defer func() {
			if err := client.Close(); err != nil {
				log.Warn().Err(err).Msg("error closing redis")
			}
		}()
		log.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")

		rdb = client
		locker = redisclient.NewRedisSlotLocker(client, cfg.LockTTL, cfg.LockWait)
	default:
		locker = lock.NewLocalLocker(cfg.LockWait)
	}

	ledger := appointment.NewService(repo, locker, appointment.WithLogger(log.With().Str("component", "ledger").Logger()))
	scheduler := scheduling.NewService(ledger, cfg.SlotMinutes())

	if cfg.Store == config.StoreMemory && (cfg.SeedDoctors > 0 || cfg.SeedPatients > 0) {
		roster, err := seed.New(uint64(time.Now().UnixNano())).Load(rootCtx, ledger, cfg.SeedDoctors, cfg.SeedPatients)
		if err != nil {
			return err
		}
		log.Info().Int("doctors", len(roster.Doctors)).Int("patients", len(roster.Patients)).Msg("demo roster loaded")
	}

	if cfg.MetricsEnabled {
		metrics.Register()
	}

	router := api.NewRouter(api.RouterConfig{
		Ledger:    ledger,
		Scheduler: scheduler,
		Logger:    log,
		Store:     storePing,
		Redis:     rdb,
		Timezone:  cfg.Timezone,
		Metrics:   cfg.MetricsEnabled,
		Env:       cfg.Env,
		Version:   version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-rootCtx.Done():
	}

	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info().Msg("api-server stopped")
	return nil
}
