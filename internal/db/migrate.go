package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS doctors (
		id                UUID PRIMARY KEY,
		name              TEXT NOT NULL,
		email             TEXT NOT NULL DEFAULT '',
		phone             TEXT NOT NULL DEFAULT '',
		specialization    TEXT NOT NULL DEFAULT '',
		consultation_room TEXT NOT NULL DEFAULT '',
		working_days      INT[] NOT NULL DEFAULT '{}',
		work_start        TEXT NOT NULL,
		work_end          TEXT NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS patients (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL DEFAULT '',
		phone      TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS appointments (
		id           UUID PRIMARY KEY,
		doctor_id    UUID NOT NULL REFERENCES doctors(id) ON DELETE CASCADE,
		patient_id   UUID NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
		doctor_name  TEXT NOT NULL,
		patient_name TEXT NOT NULL,
		slot_date    TEXT NOT NULL CHECK (slot_date ~ '^\d{4}-\d{2}-\d{2}$'),
		slot_time    TEXT NOT NULL CHECK (slot_time ~ '^\d{2}:\d{2}$'),
		reason       TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL CHECK (status IN ('SCHEDULED', 'COMPLETED', 'CANCELLED', 'NOSHOW')),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	// One live booking per slot. Cancelled rows do not hold their slot.
	`CREATE UNIQUE INDEX IF NOT EXISTS appointments_active_slot_idx
		ON appointments (doctor_id, slot_date, slot_time)
		WHERE status <> 'CANCELLED'`,

	`CREATE INDEX IF NOT EXISTS appointments_patient_idx ON appointments (patient_id, slot_date)`,

	`CREATE TABLE IF NOT EXISTS event_logs (
		id             BIGSERIAL PRIMARY KEY,
		event_type     TEXT NOT NULL,
		appointment_id UUID,
		payload        JSONB,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate applies the schema inside one transaction.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, stmt := range schema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

// SchemaStatements returns the migration statements for inspection.
func SchemaStatements() []string {
	out := make([]string, len(schema))
	copy(out, schema)
	return out
}
