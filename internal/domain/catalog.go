package domain

import (
	"sort"
	"time"
)

// ProviderCatalog maps provider name to its ordered model identifiers.
type ProviderCatalog struct {
	Providers   map[string][]string `json:"providers"`
	RefreshedAt time.Time           `json:"refreshed_at"`
}

// Names returns the provider names sorted alphabetically.
func (c ProviderCatalog) Names() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stale reports whether the catalog is older than maxAge.
func (c ProviderCatalog) Stale(now time.Time, maxAge time.Duration) bool {
	if c.RefreshedAt.IsZero() {
		return true
	}
	return now.Sub(c.RefreshedAt) > maxAge
}

// Merge adds extra models to c, keeping each list sorted and unique.
func (c ProviderCatalog) Merge(extra map[string][]string) ProviderCatalog {
	merged := make(map[string][]string, len(c.Providers)+len(extra))
	for name, models := range c.Providers {
		merged[name] = append([]string(nil), models...)
	}
	for name, models := range extra {
		merged[name] = uniqueSorted(append(merged[name], models...))
	}
	return ProviderCatalog{Providers: merged, RefreshedAt: c.RefreshedAt}
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
