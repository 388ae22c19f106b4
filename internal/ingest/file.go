package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"siteguard/internal/config"
)

// FileSource rereads JSON documents from disk on every fetch.
type FileSource struct {
	cfg    config.FileConfig
	logger *zap.Logger
}

func NewFileSource(cfg config.FileConfig, logger *zap.Logger) *FileSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSource{cfg: cfg, logger: logger}
}

func (s *FileSource) Name() string { return "file" }

func (s *FileSource) Fetch(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.cfg.SitesPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", s.cfg.SitesPath, ErrNoSnapshot)
		}
		return nil, err
	}
	sites, err := DecodeSites(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.cfg.SitesPath, err)
	}
	var alerts []map[string]any
	if s.cfg.AlertsPath != "" {
		data, err := os.ReadFile(s.cfg.AlertsPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			s.logger.Warn("alerts file missing, using embedded alerts", zap.String("path", s.cfg.AlertsPath))
		case err != nil:
			return nil, err
		default:
			if alerts, err = DecodeAlerts(data); err != nil {
				return nil, fmt.Errorf("%s: %w", s.cfg.AlertsPath, err)
			}
		}
	}
	return newSnapshot(s.Name(), sites, alerts), nil
}

func (s *FileSource) Close() error { return nil }
