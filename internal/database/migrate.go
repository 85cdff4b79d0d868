package database

import (
	"context"
	"database/sql"
	_ "embed"
	"strings"

	"github.com/iliyamo/venue-reservation/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// statements splits the embedded schema into individual statements.  The
// driver is opened without multiStatements, so each one is executed
// separately.
func statements(script string) []string {
	var out []string
	for _, s := range strings.Split(script, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// EnsureSchema creates the reservation tables when they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range statements(schemaSQL) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Seed inserts the reference catalog.  Existing rows are left untouched so
// rates edited in the database survive a restart.
func Seed(ctx context.Context, db *sql.DB, rooms []model.Room, services []model.Service, eventTypes []model.EventType) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, r := range rooms {
		if _, err := tx.ExecContext(ctx,
			`INSERT IGNORE INTO rooms (id, name, category, capacity, rate_cents, active) VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, r.Name, string(r.Category), r.Capacity, r.RateCents, r.Active); err != nil {
			return err
		}
	}
	for _, s := range services {
		if _, err := tx.ExecContext(ctx,
			`INSERT IGNORE INTO services (id, name, kind, price_cents) VALUES (?, ?, ?, ?)`,
			s.ID, s.Name, string(s.Kind), s.PriceCents); err != nil {
			return err
		}
	}
	for _, e := range eventTypes {
		if _, err := tx.ExecContext(ctx,
			`INSERT IGNORE INTO event_types (id, name, base_price_cents) VALUES (?, ?, ?)`,
			e.ID, e.Name, e.BasePriceCents); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
