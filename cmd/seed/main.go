package main

import (
	"context"
	"os"
	"time"

	"github.com/hackgods/clinic-slot-booking/internal/appointment"
	"github.com/hackgods/clinic-slot-booking/internal/config"
	"github.com/hackgods/clinic-slot-booking/internal/db"
	"github.com/hackgods/clinic-slot-booking/internal/lock"
	"github.com/hackgods/clinic-slot-booking/internal/logger"
	"github.com/hackgods/clinic-slot-booking/internal/seed"
)

const (
	defaultDoctors  = 25
	defaultPatients = 2000
)

func main() {
	cfg, err := config.Load()
	log := logger.New(cfg.Env)
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}
	if cfg.PostgresDSN == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, 4)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	doctors, patients := cfg.SeedDoctors, cfg.SeedPatients
	if doctors == 0 && patients == 0 {
		doctors, patients = defaultDoctors, defaultPatients
	}
	log.Info().Int("doctors", doctors).Int("patients", patients).Msg("seed starting")

	// Registration does not take slot locks.
	svc := appointment.NewService(appointment.NewPgRepository(pool), lock.NewLocalLocker(0), appointment.WithLogger(log))

	roster, err := seed.New(uint64(time.Now().UnixNano())).Load(context.Background(), svc, doctors, patients)
	if err != nil {
		log.Error().Err(err).Int("doctors", len(roster.Doctors)).Int("patients", len(roster.Patients)).Msg("seed aborted")
		pool.Close()
		os.Exit(1)
	}

	log.Info().Int("doctors", len(roster.Doctors)).Int("patients", len(roster.Patients)).Msg("seed complete")
}
