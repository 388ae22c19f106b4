package storage

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"siteguard/internal/config"
	"siteguard/internal/model"
)

// Store keeps the latest site snapshot in a SQL database. Load methods return
// records in the same JSON-like shape the HTTP feed uses so every source goes
// through one decoder.
type Store interface {
	Init(ctx context.Context) error
	Close() error
	SaveSnapshot(ctx context.Context, sites []model.RawSite, alerts []model.SiteAlerts) error
	LoadSites(ctx context.Context) ([]map[string]any, error)
	LoadAlerts(ctx context.Context) ([]map[string]any, error)
}

func NewStore(cfg config.SQLConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, errors.New("unsupported storage driver")
	}
}

type baseStore struct {
	db *sql.DB
	// numbered switches ? placeholders to $1, $2, ...
	numbered bool
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func (b *baseStore) rebind(query string) string {
	if !b.numbered {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(ch)
	}
	return sb.String()
}

// SaveSnapshot replaces the stored snapshot in one transaction.
func (b *baseStore) SaveSnapshot(ctx context.Context, sites []model.RawSite, alerts []model.SiteAlerts) error {
	if b.db == nil {
		return nil
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, stmt := range []string{`DELETE FROM site_alerts`, `DELETE FROM sites`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	siteStmt, err := tx.PrepareContext(ctx, b.rebind(
		`INSERT INTO sites (id, position, name, location, risk_level, risk_score, compliance, workers, ai_cameras, last_check, critical, warning, info, lng, lat)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer siteStmt.Close()
	for i, s := range sites {
		var lng, lat sql.NullFloat64
		if s.Coordinates != nil {
			lng = sql.NullFloat64{Float64: s.Coordinates[0], Valid: true}
			lat = sql.NullFloat64{Float64: s.Coordinates[1], Valid: true}
		}
		if _, err := siteStmt.ExecContext(ctx,
			s.ID,
			i,
			s.Name,
			s.Location,
			s.RiskLevel,
			s.RiskScore,
			s.Compliance,
			s.Workers,
			s.AICameras,
			formatTime(s.LastCheck),
			s.AlertCounts.Critical,
			s.AlertCounts.Warning,
			s.AlertCounts.Info,
			lng,
			lat,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	alertStmt, err := tx.PrepareContext(ctx, b.rebind(
		`INSERT INTO site_alerts (site_id, severity, alert_id, position, alert_type, ts, confidence, description, image, email_sent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer alertStmt.Close()
	for _, sa := range alerts {
		pos := 0
		for _, sev := range model.Severities {
			for _, a := range sa.Alerts.Bucket(sev) {
				if _, err := alertStmt.ExecContext(ctx,
					sa.SiteID,
					string(sev),
					a.ID,
					pos,
					a.Type,
					formatTime(a.Timestamp),
					a.Confidence,
					a.Description,
					nullString(a.Image),
					nullString(a.EmailSent),
				); err != nil {
					_ = tx.Rollback()
					return err
				}
				pos++
			}
		}
	}
	return tx.Commit()
}

func (b *baseStore) LoadSites(ctx context.Context) ([]map[string]any, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT id, name, location, risk_level, risk_score, compliance, workers, ai_cameras, last_check, critical, warning, info, lng, lat
		FROM sites ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]map[string]any, 0)
	for rows.Next() {
		var (
			id, name, location, riskLevel, lastCheck string
			riskScore, compliance                    float64
			workers, cameras                         int64
			critical, warning, info                  int64
			lng, lat                                 sql.NullFloat64
		)
		if err := rows.Scan(&id, &name, &location, &riskLevel, &riskScore, &compliance, &workers, &cameras, &lastCheck,
			&critical, &warning, &info, &lng, &lat); err != nil {
			return nil, err
		}
		rec := map[string]any{
			"id":         id,
			"name":       name,
			"location":   location,
			"riskLevel":  riskLevel,
			"riskScore":  riskScore,
			"compliance": compliance,
			"workers":    float64(workers),
			"aiCameras":  float64(cameras),
			"lastCheck":  lastCheck,
			"alertCounts": map[string]any{
				"critical": float64(critical),
				"warning":  float64(warning),
				"info":     float64(info),
				"total":    float64(critical + warning + info),
			},
		}
		if lng.Valid && lat.Valid {
			rec["coordinates"] = []any{lng.Float64, lat.Float64}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (b *baseStore) LoadAlerts(ctx context.Context) ([]map[string]any, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT a.site_id, COALESCE(s.name, ''), a.severity, a.alert_id, a.alert_type, a.ts, a.confidence, a.description, a.image, a.email_sent
		FROM site_alerts a LEFT JOIN sites s ON s.id = a.site_id
		ORDER BY COALESCE(s.position, 2147483647), a.site_id, a.position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]map[string]any, 0)
	index := map[string]map[string]any{}
	for rows.Next() {
		var (
			siteID, siteName, severity, alertID, alertType, ts, description string
			confidence                                                       float64
			image, emailSent                                                 sql.NullString
		)
		if err := rows.Scan(&siteID, &siteName, &severity, &alertID, &alertType, &ts, &confidence, &description, &image, &emailSent); err != nil {
			return nil, err
		}
		holder, ok := index[siteID]
		if !ok {
			holder = map[string]any{
				"id":   siteID,
				"name": siteName,
				"alerts": map[string]any{
					"critical": []any{},
					"warning":  []any{},
					"info":     []any{},
				},
			}
			index[siteID] = holder
			out = append(out, holder)
		}
		rec := map[string]any{
			"id":          alertID,
			"type":        alertType,
			"timestamp":   ts,
			"confidence":  confidence,
			"description": description,
		}
		if image.Valid {
			rec["image"] = image.String
		}
		if emailSent.Valid {
			rec["emailSent"] = emailSent.String
		}
		buckets := holder["alerts"].(map[string]any)
		list, _ := buckets[severity].([]any)
		buckets[severity] = append(list, rec)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
