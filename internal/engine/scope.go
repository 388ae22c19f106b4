package engine

import (
	"strings"

	"siteguard/internal/config"
)

// ScopeSet decides which site ids a refresh keeps.
type ScopeSet struct {
	Include map[string]struct{}
	Exclude map[string]struct{}
}

func buildScope(cfg *config.Config) *ScopeSet {
	return &ScopeSet{
		Include: buildIDSet(cfg.Scope.Include),
		Exclude: buildIDSet(cfg.Scope.Exclude),
	}
}

func buildIDSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		id := normalizeID(v)
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// Allows reports whether siteID is in scope. Exclusion wins over inclusion;
// an empty include list admits every site.
func (s *ScopeSet) Allows(siteID string) bool {
	if s == nil {
		return true
	}
	id := normalizeID(siteID)
	if s.Exclude != nil {
		if _, ok := s.Exclude[id]; ok {
			return false
		}
	}
	if s.Include != nil {
		_, ok := s.Include[id]
		return ok
	}
	return true
}

func normalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
