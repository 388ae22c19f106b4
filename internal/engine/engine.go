package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"siteguard/internal/config"
	"siteguard/internal/ingest"
	"siteguard/internal/logging"
	"siteguard/internal/metrics"
	"siteguard/internal/model"
	"siteguard/internal/normalize"
)

// ErrNotReady is returned before the first successful refresh.
var ErrNotReady = errors.New("no snapshot yet")

// Result describes one refresh attempt.
type Result struct {
	RefreshID   string        `json:"refreshId"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"-"`
	DurationMS  int64         `json:"durationMs"`
	Sites       int           `json:"sites"`
	Alerts      int           `json:"alerts"`
	Diagnostics int           `json:"diagnostics"`
	Error       string        `json:"error,omitempty"`
	Err         error         `json:"-"`
}

func (r *Result) OK() bool { return r != nil && r.Err == nil }

type Engine struct {
	source  ingest.Source
	logger  *zap.Logger
	metrics *metrics.Registry
	cfg     atomic.Value
	scope   atomic.Value
	latest  atomic.Pointer[Snapshot]
	last    atomic.Pointer[Result]
	mu      sync.Mutex
	now     func() time.Time
}

func NewEngine(cfg *config.Config, source ingest.Source, logger *zap.Logger, registry *metrics.Registry) *Engine {
	logger = logging.OrNop(logger)
	e := &Engine{
		source:  source,
		logger:  logger,
		metrics: registry,
		now:     func() time.Time { return time.Now().UTC() },
	}
	e.UpdateConfig(cfg)
	return e
}

func (e *Engine) UpdateConfig(cfg *config.Config) {
	e.cfg.Store(cfg)
	e.scope.Store(buildScope(cfg))
}

func (e *Engine) config() *config.Config {
	if v := e.cfg.Load(); v != nil {
		return v.(*config.Config)
	}
	return config.DefaultConfig()
}

func (e *Engine) scopeSet() *ScopeSet {
	if v := e.scope.Load(); v != nil {
		if s, ok := v.(*ScopeSet); ok {
			return s
		}
	}
	return nil
}

// Start refreshes immediately and then once per refresh.interval until ctx
// is done. The interval is reread after every cycle so config reloads apply.
func (e *Engine) Start(ctx context.Context) {
	go func() {
		for {
			e.Refresh(ctx)
			t := time.NewTimer(e.config().Refresh.Interval)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return
			}
		}
	}()
}

// Refresh fetches and derives one snapshot. On failure the previous snapshot
// stays current and the returned Result carries the error.
func (e *Engine) Refresh(ctx context.Context) *Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := e.config()
	started := e.now()
	res := &Result{RefreshID: uuid.NewString(), StartedAt: started}

	snap, err := e.refresh(ctx, cfg, started)
	res.Duration = time.Since(started)
	res.DurationMS = res.Duration.Milliseconds()
	if err != nil {
		res.Err = err
		res.Error = err.Error()
		e.last.Store(res)
		e.metrics.ObserveRefresh("error", res.Duration)
		e.logger.Warn("refresh failed",
			zap.String("refresh_id", res.RefreshID),
			zap.String("source", e.source.Name()),
			zap.Error(err),
		)
		return res
	}
	snap.RefreshID = res.RefreshID
	res.Sites = len(snap.Sites)
	res.Alerts = len(snap.Alerts)
	res.Diagnostics = len(snap.Diagnostics)
	e.latest.Store(snap)
	e.last.Store(res)
	e.record(snap, res.Duration)

	e.logger.Info("refresh complete",
		zap.String("refresh_id", res.RefreshID),
		zap.String("source", snap.Source),
		zap.Int("sites", res.Sites),
		zap.Int("alerts", res.Alerts),
		zap.Int("diagnostics", res.Diagnostics),
		zap.Duration("took", res.Duration),
	)
	for _, d := range snap.Diagnostics {
		e.logger.Debug("record skipped",
			zap.String("kind", d.Kind),
			zap.String("record", d.Record),
			zap.String("reason", d.Message),
		)
	}
	return res
}

func (e *Engine) refresh(ctx context.Context, cfg *config.Config, now time.Time) (*Snapshot, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, cfg.Refresh.Timeout)
	defer cancel()
	raw, err := e.source.Fetch(fetchCtx)
	if err != nil {
		return nil, err
	}
	return Derive(raw, normalize.NewDecoder(cfg.Source.Timezone), e.scopeSet(), now)
}

func (e *Engine) record(snap *Snapshot, took time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.ObserveRefresh("success", took)
	e.metrics.Sites.Set(float64(len(snap.Sites)))
	e.metrics.Alerts.WithLabelValues(string(model.SeverityCritical)).Set(float64(snap.Summary.Alerts.Critical))
	e.metrics.Alerts.WithLabelValues(string(model.SeverityWarning)).Set(float64(snap.Summary.Alerts.Warning))
	e.metrics.Alerts.WithLabelValues(string(model.SeverityInfo)).Set(float64(snap.Summary.Alerts.Info))
	for _, d := range snap.Diagnostics {
		e.metrics.Dropped.WithLabelValues(d.Kind).Inc()
	}
}

// Latest returns the last good snapshot with relative times computed now.
func (e *Engine) Latest() (*Snapshot, error) {
	snap := e.latest.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	return snap.At(e.now()), nil
}

// LastResult returns the most recent refresh attempt, or nil.
func (e *Engine) LastResult() *Result {
	return e.last.Load()
}

func (e *Engine) SourceName() string {
	return e.source.Name()
}
