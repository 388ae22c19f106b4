package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:siteguard.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a single connection also keeps in-memory
	// databases alive across calls.
	db.SetMaxOpenConns(1)
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
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
			risk_score REAL NOT NULL,
			compliance REAL NOT NULL,
			workers INTEGER NOT NULL,
			ai_cameras INTEGER NOT NULL,
			last_check TEXT NOT NULL,
			critical INTEGER NOT NULL DEFAULT 0,
			warning INTEGER NOT NULL DEFAULT 0,
			info INTEGER NOT NULL DEFAULT 0,
			lng REAL,
			lat REAL
		)`,
		`CREATE TABLE IF NOT EXISTS site_alerts (
			site_id TEXT NOT NULL,
			severity TEXT NOT NULL,
			alert_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			alert_type TEXT NOT NULL,
			ts TEXT NOT NULL,
			confidence REAL NOT NULL,
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
