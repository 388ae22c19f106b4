package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"siteguard/internal/config"
	"siteguard/internal/engine"
	"siteguard/internal/logging"
	"siteguard/internal/metrics"
	"siteguard/internal/model"
	"siteguard/internal/report"
)

// Server serves the latest snapshot over HTTP.
type Server struct {
	cfg     *config.Manager
	started *config.Config
	core    *engine.Engine
	metrics *metrics.Registry
	logger  *zap.Logger
	version string
	router  *gin.Engine
}

type statusResponse struct {
	Status     string             `json:"status"`
	Time       string             `json:"time"`
	Version    string             `json:"version"`
	ConfigPath string             `json:"config_path"`
	Source     string             `json:"source"`
	Interval   string             `json:"refresh_interval"`
	Scope      config.ScopeConfig `json:"scope"`
	Ready      bool               `json:"ready"`
	LastResult *engine.Result     `json:"last_refresh,omitempty"`

	// RestartPending names config sections changed since startup that the
	// running process has not picked up.
	RestartPending []string `json:"restart_pending,omitempty"`
}

func New(cfg *config.Manager, core *engine.Engine, registry *metrics.Registry, logger *zap.Logger, version string) *Server {
	logger = logging.OrNop(logger)
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	s := &Server{
		cfg:     cfg,
		started: cfg.Get(),
		core:    core,
		metrics: registry,
		logger:  logger,
		version: version,
		router:  router,
	}
	s.registerRoutes()
	return s
}

// Engine exposes the gin router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.router
}

// Run serves until ctx is done and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	current := s.cfg.Get().API
	if !current.Enabled {
		s.logger.Info("api disabled")
		<-ctx.Done()
		return nil
	}
	srv := &http.Server{Addr: current.Addr, Handler: s.router}
	s.logger.Info("api listening", zap.String("addr", current.Addr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/status", s.handleStatus)
	s.router.GET("/summary", s.handleSummary)
	s.router.GET("/sites", s.handleSites)
	s.router.GET("/sites/:id", s.handleSite)
	s.router.GET("/sites/:id/alerts", s.handleSiteAlerts)
	s.router.GET("/alerts", s.handleAlerts)
	s.router.GET("/diagnostics", s.handleDiagnostics)
	s.router.GET("/report.xlsx", s.handleReport)
	s.router.GET("/config/scope", s.handleGetScope)
	s.router.POST("/config/scope", s.handleSetScope)
	s.router.POST("/admin/refresh", s.handleRefresh)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	cfg := s.cfg.Get()
	_, err := s.core.Latest()
	c.JSON(http.StatusOK, statusResponse{
		Status:     "ok",
		Time:       time.Now().UTC().Format(time.RFC3339Nano),
		Version:    s.version,
		ConfigPath: s.cfg.Path(),
		Source:     s.core.SourceName(),
		Interval:   cfg.Refresh.Interval.String(),
		Scope:      cfg.Scope,
		Ready:      err == nil,
		LastResult: s.core.LastResult(),

		RestartPending: config.RestartRequired(s.started, cfg),
	})
}

// snapshot writes the error response and returns nil when no snapshot is
// available yet.
func (s *Server) snapshot(c *gin.Context) *engine.Snapshot {
	snap, err := s.core.Latest()
	if err != nil {
		writeError(c, err)
		return nil
	}
	return snap
}

func (s *Server) handleSummary(c *gin.Context) {
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summary":      snap.Summary,
		"generated_at": snap.GeneratedAt,
		"refresh_id":   snap.RefreshID,
	})
}

func (s *Server) handleSites(c *gin.Context) {
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"sites": snap.Sites, "count": len(snap.Sites)})
}

func (s *Server) handleSite(c *gin.Context) {
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	site, err := snap.Site(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, site)
}

func (s *Server) handleSiteAlerts(c *gin.Context) {
	s.writeAlerts(c, c.Param("id"))
}

func (s *Server) handleAlerts(c *gin.Context) {
	s.writeAlerts(c, c.Query("site"))
}

func (s *Server) writeAlerts(c *gin.Context, siteID string) {
	sev, err := model.ParseSeverity(strings.ToLower(strings.TrimSpace(c.Query("severity"))))
	if err != nil {
		writeError(c, err)
		return
	}
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	list, err := snap.FilterAlerts(sev, siteID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": list, "count": len(list), "severity": sev})
}

func (s *Server) handleDiagnostics(c *gin.Context) {
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"diagnostics":  snap.Diagnostics,
		"count":        len(snap.Diagnostics),
		"last_refresh": s.core.LastResult(),
	})
}

func (s *Server) handleReport(c *gin.Context) {
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	var buf bytes.Buffer
	if err := report.WriteWorkbook(&buf, snap, s.cfg.Get().Report.Title); err != nil {
		s.logger.Error("report failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", "attachment; filename=siteguard-report.xlsx")
	c.Data(http.StatusOK, report.ContentType, buf.Bytes())
}

func (s *Server) handleGetScope(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"scope": s.cfg.Get().Scope})
}

func (s *Server) handleSetScope(c *gin.Context) {
	var scope config.ScopeConfig
	if err := c.ShouldBindJSON(&scope); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	scope.Include = sanitizeIDList(scope.Include)
	scope.Exclude = sanitizeIDList(scope.Exclude)

	next, err := s.cfg.Update(func(cfg *config.Config) { cfg.Scope = scope })
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.core.UpdateConfig(next)
	s.logger.Info("scope updated",
		zap.Strings("include", scope.Include),
		zap.Strings("exclude", scope.Exclude),
	)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "scope": scope})
}

func (s *Server) handleRefresh(c *gin.Context) {
	res := s.core.Refresh(c.Request.Context())
	if !res.OK() {
		c.JSON(http.StatusBadGateway, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func writeError(c *gin.Context, err error) {
	var (
		notFound   *model.NotFoundError
		validation *model.ValidationError
	)
	switch {
	case errors.Is(err, engine.ErrNotReady):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": validation.Field})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func sanitizeIDList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
