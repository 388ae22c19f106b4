package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"siteguard/internal/config"
	"siteguard/internal/storage"
)

// ErrNoSnapshot means the backing source holds no site data yet.
var ErrNoSnapshot = errors.New("no snapshot available")

// Snapshot is one fetch worth of raw site and alert records. Alerts holds
// {id, name, alerts: {critical, warning, info}} records, one per site.
// Embedded is set when Alerts was lifted out of the site records.
type Snapshot struct {
	Source    string
	Sites     []map[string]any
	Alerts    []map[string]any
	Embedded  bool
	FetchedAt time.Time
}

type Source interface {
	Name() string
	Fetch(ctx context.Context) (*Snapshot, error)
	Close() error
}

// NewSource builds the source selected by cfg.Driver.
func NewSource(ctx context.Context, cfg config.SourceConfig, logger *zap.Logger) (Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case "http":
		return NewHTTPSource(cfg.HTTP, logger), nil
	case "file":
		return NewFileSource(cfg.File, logger), nil
	case "redis":
		return NewRedisSource(cfg.Redis, logger), nil
	case "kafka":
		return NewKafkaSource(cfg.Kafka, logger), nil
	case "sql":
		store, err := storage.NewStore(cfg.SQL)
		if err != nil {
			return nil, err
		}
		if err := store.Init(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("init %s store: %w", cfg.SQL.Driver, err)
		}
		return NewSQLSource(store, logger), nil
	default:
		return nil, fmt.Errorf("unsupported source driver %q", cfg.Driver)
	}
}

// newSnapshot assembles a snapshot. When no separate alert payload was
// fetched, alerts embedded in the site records are used instead.
func newSnapshot(source string, sites, alerts []map[string]any) *Snapshot {
	embedded := alerts == nil
	if embedded {
		alerts = EmbeddedAlerts(sites)
	}
	return &Snapshot{
		Source:    source,
		Sites:     sites,
		Alerts:    alerts,
		Embedded:  embedded,
		FetchedAt: time.Now().UTC(),
	}
}

func BackoffSleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = 200 * time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
