// Package proxycfg builds immutable routing snapshots from the store
// and swaps them atomically so the forwarder never sees a torn table.
package proxycfg

import (
	"sort"
	"strings"
	"time"

	"github.com/your-org/gateway/internal/domain"
)

// Entry is one live routing decision: an active route, its active
// cluster, and the route's security policy (nil means no security).
type Entry struct {
	Route   *domain.Route
	Cluster *domain.Cluster
	Policy  *domain.RoutePolicy
}

// SecurityType returns the effective security type of the entry.
func (e *Entry) SecurityType() domain.SecurityType {
	if e.Policy == nil {
		return domain.SecurityNone
	}
	return e.Policy.SecurityType
}

// Snapshot is an immutable routing table. Readers hold one reference
// and never observe later mutations; a new table is a new snapshot.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time

	entries  []*Entry
	byRoute  map[string]*Entry
	clusters map[string]*domain.Cluster

	// changed closes when this snapshot is superseded.
	changed chan struct{}
}

func newSnapshot(version int64, entries []*Entry, clusters map[string]*domain.Cluster) *Snapshot {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Route.Order < entries[j].Route.Order
	})
	byRoute := make(map[string]*Entry, len(entries))
	for _, e := range entries {
		byRoute[e.Route.RouteID] = e
	}
	return &Snapshot{
		Version:  version,
		LoadedAt: time.Now(),
		entries:  entries,
		byRoute:  byRoute,
		clusters: clusters,
		changed:  make(chan struct{}),
	}
}

// Entries returns the live routes in match priority order.
func (s *Snapshot) Entries() []*Entry { return s.entries }

// Lookup returns the entry for a route id, if live.
func (s *Snapshot) Lookup(routeID string) (*Entry, bool) {
	e, ok := s.byRoute[routeID]
	return e, ok
}

// Match returns the first entry whose pattern matches the request path.
// Entries are tried in ascending order; first match wins.
func (s *Snapshot) Match(path string) (*Entry, bool) {
	for _, e := range s.entries {
		if matchPath(e.Route.Match, path) {
			return e, true
		}
	}
	return nil, false
}

// Changed returns a channel that closes when a newer snapshot replaces
// this one.
func (s *Snapshot) Changed() <-chan struct{} { return s.changed }

// matchPath evaluates a route pattern against a request path. A
// trailing catch-all segment ("{**catch-all}", "{**rest}", or "*")
// turns the pattern into a prefix match on the preceding segments;
// anything else matches exactly.
func matchPath(pattern, path string) bool {
	prefix, ok := catchAllPrefix(pattern)
	if !ok {
		return pattern == path
	}
	if prefix == "" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	// Segment boundary: /api must not match /apiary.
	rest := path[len(prefix):]
	return rest == "" || rest[0] == '/' || strings.HasSuffix(prefix, "/")
}

func catchAllPrefix(pattern string) (string, bool) {
	if strings.HasSuffix(pattern, "*") && !strings.HasSuffix(pattern, "}") {
		return strings.TrimRight(pattern[:len(pattern)-1], "/"), true
	}
	if i := strings.Index(pattern, "{**"); i >= 0 && strings.HasSuffix(pattern, "}") {
		return strings.TrimRight(pattern[:i], "/"), true
	}
	return "", false
}
