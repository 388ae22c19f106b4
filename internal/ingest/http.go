package ingest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"siteguard/internal/config"
)

// HTTPSource pulls the site and alert documents from the dashboard backend.
type HTTPSource struct {
	client *resty.Client
	cfg    config.HTTPConfig
	logger *zap.Logger
}

func NewHTTPSource(cfg config.HTTPConfig, logger *zap.Logger) *HTTPSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}
	return &HTTPSource{client: client, cfg: cfg, logger: logger}
}

func (s *HTTPSource) Name() string { return "http" }

func (s *HTTPSource) Fetch(ctx context.Context) (*Snapshot, error) {
	body, err := s.get(ctx, s.cfg.SitesPath)
	if err != nil {
		return nil, err
	}
	sites, err := DecodeSites(body)
	if err != nil {
		return nil, err
	}
	var alerts []map[string]any
	if s.cfg.AlertsPath != "" {
		body, err := s.get(ctx, s.cfg.AlertsPath)
		if err != nil {
			return nil, err
		}
		if alerts, err = DecodeAlerts(body); err != nil {
			return nil, err
		}
	}
	s.logger.Debug("http snapshot fetched",
		zap.String("base_url", s.cfg.BaseURL),
		zap.Int("sites", len(sites)),
		zap.Int("alert_sites", len(alerts)),
	)
	return newSnapshot(s.Name(), sites, alerts), nil
}

func (s *HTTPSource) get(ctx context.Context, path string) ([]byte, error) {
	resp, err := s.client.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("GET %s: %w", path, ErrNoSnapshot)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode())
	}
	return resp.Body(), nil
}

func (s *HTTPSource) Close() error { return nil }
