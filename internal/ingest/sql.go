package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"siteguard/internal/storage"
)

// SQLSource reads the snapshot tables maintained by storage.Store.
type SQLSource struct {
	store  storage.Store
	logger *zap.Logger
}

func NewSQLSource(store storage.Store, logger *zap.Logger) *SQLSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLSource{store: store, logger: logger}
}

func (s *SQLSource) Name() string { return "sql" }

func (s *SQLSource) Fetch(ctx context.Context) (*Snapshot, error) {
	sites, err := s.store.LoadSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sites: %w", err)
	}
	alerts, err := s.store.LoadAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load alerts: %w", err)
	}
	return newSnapshot(s.Name(), sites, alerts), nil
}

func (s *SQLSource) Close() error {
	return s.store.Close()
}
