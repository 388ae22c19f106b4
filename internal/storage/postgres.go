package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/siteguard?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db, numbered: true}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sites (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			location TEXT NOT NULL,
			risk_level TEXT NOT NULL,
			risk_score DOUBLE PRECISION NOT NULL,
			compliance DOUBLE PRECISION NOT NULL,
			workers INTEGER NOT NULL,
			ai_cameras INTEGER NOT NULL,
			last_check TIMESTAMPTZ NOT NULL,
			critical INTEGER NOT NULL DEFAULT 0,
			warning INTEGER NOT NULL DEFAULT 0,
			info INTEGER NOT NULL DEFAULT 0,
			lng DOUBLE PRECISION,
			lat DOUBLE PRECISION
		)`,
		`CREATE TABLE IF NOT EXISTS site_alerts (
			site_id TEXT NOT NULL,
			severity TEXT NOT NULL,
			alert_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			alert_type TEXT NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			description TEXT NOT NULL,
			image TEXT,
			email_sent TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_site_alerts_site ON site_alerts(site_id, position)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
