package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DecodeSites accepts {"sites": [...]} or a bare array of site records.
func DecodeSites(data []byte) ([]map[string]any, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode sites: %w", err)
	}
	switch v := doc.(type) {
	case []any:
		return records(v)
	case map[string]any:
		if list, ok := v["sites"].([]any); ok {
			return records(list)
		}
		if list, ok := v["data"].([]any); ok {
			return records(list)
		}
	}
	return nil, errors.New("decode sites: expected a sites array")
}

// DecodeAlerts accepts the all-sites shape {"sites": [...]}, the single-site
// shape {id, name, alerts: {...}} or a bare array of single-site records.
func DecodeAlerts(data []byte) ([]map[string]any, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode alerts: %w", err)
	}
	switch v := doc.(type) {
	case []any:
		return records(v)
	case map[string]any:
		if list, ok := v["sites"].([]any); ok {
			return records(list)
		}
		if _, ok := v["alerts"].(map[string]any); ok {
			return []map[string]any{v}, nil
		}
	}
	return nil, errors.New("decode alerts: expected a single-site or all-sites alert document")
}

// EmbeddedAlerts extracts alert buckets carried inside site records.
func EmbeddedAlerts(sites []map[string]any) []map[string]any {
	out := make([]map[string]any, 0)
	for _, s := range sites {
		buckets, ok := s["alerts"].(map[string]any)
		if !ok {
			continue
		}
		out = append(out, map[string]any{
			"id":     firstNonNil(s, "id", "siteId", "site_id"),
			"name":   firstNonNil(s, "name", "siteName", "site_name"),
			"alerts": buckets,
		})
	}
	return out
}

func records(list []any) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d is not an object", i)
		}
		out = append(out, m)
	}
	return out, nil
}

func firstNonNil(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return ""
}
