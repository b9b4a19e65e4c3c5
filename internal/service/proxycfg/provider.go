package proxycfg

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/your-org/gateway/internal/domain"
	"github.com/your-org/gateway/internal/store"
	"github.com/your-org/gateway/pkg/logger"
)

// Provider owns the current routing snapshot. Admin mutations call
// Reload after changing route or cluster state; request paths only ever
// read Current.
type Provider struct {
	store   *store.Store
	current atomic.Pointer[Snapshot]
	version atomic.Int64

	// reloadMu serializes concurrent reloads so snapshot versions stay
	// monotonic from the readers' point of view.
	reloadMu sync.Mutex
}

// NewProvider creates a provider with an empty snapshot installed, so
// Current is always non-nil.
func NewProvider(st *store.Store) *Provider {
	p := &Provider{store: st}
	p.current.Store(newSnapshot(0, nil, map[string]*domain.Cluster{}))
	return p
}

// Current returns the live snapshot.
func (p *Provider) Current() *Snapshot {
	return p.current.Load()
}

// Reload rebuilds the snapshot from the store and swaps it in. On
// failure the previous snapshot stays live and the error is returned
// for logging; callers that already mutated the store successfully
// should not surface it to their clients.
func (p *Provider) Reload(ctx context.Context) error {
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()

	routes, err := p.store.ListActiveRoutes(ctx)
	if err != nil {
		logger.Error("route reload failed, keeping previous snapshot", logger.Err(err))
		return err
	}
	clusterList, err := p.store.ListActiveClusters(ctx)
	if err != nil {
		logger.Error("cluster reload failed, keeping previous snapshot", logger.Err(err))
		return err
	}

	clusters := make(map[string]*domain.Cluster, len(clusterList))
	for _, c := range clusterList {
		clusters[c.ClusterID] = c
	}

	entries := make([]*Entry, 0, len(routes))
	for _, r := range routes {
		cluster, ok := clusters[r.ClusterID]
		if !ok {
			// Routes pointing at a missing or inactive cluster are
			// dropped from the live table, not failed.
			logger.Warn("route references unknown or inactive cluster",
				logger.String("route_id", r.RouteID),
				logger.String("cluster_id", r.ClusterID))
			continue
		}
		policy, err := p.store.GetPolicy(ctx, r.RouteID)
		if err != nil {
			logger.Error("policy load failed, keeping previous snapshot",
				logger.String("route_id", r.RouteID), logger.Err(err))
			return err
		}
		entries = append(entries, &Entry{Route: r, Cluster: cluster, Policy: policy})
	}

	next := newSnapshot(p.version.Add(1), entries, clusters)
	prev := p.current.Swap(next)
	close(prev.changed)

	logger.Info("routing snapshot reloaded",
		logger.Int64("version", next.Version),
		logger.Int("routes", len(entries)),
		logger.Int("clusters", len(clusters)))
	return nil
}
