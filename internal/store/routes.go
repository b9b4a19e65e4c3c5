package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/your-org/gateway/internal/domain"
	gwerrors "github.com/your-org/gateway/pkg/errors"
)

const routeColumns = "id, route_id, cluster_id, match_pattern, sort_order, is_active, created_at, updated_at"

func scanRoute(row interface{ Scan(...any) error }) (*domain.Route, error) {
	var r domain.Route
	var active int
	if err := row.Scan(&r.ID, &r.RouteID, &r.ClusterID, &r.Match, &r.Order, &active, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.IsActive = active != 0
	return &r, nil
}

// ListRoutes returns all routes ordered by sort order.
func (s *Store) ListRoutes(ctx context.Context) ([]*domain.Route, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+routeColumns+" FROM routes ORDER BY sort_order, route_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	defer rows.Close()

	var routes []*domain.Route
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

// ListActiveRoutes returns active routes ordered by sort order.
func (s *Store) ListActiveRoutes(ctx context.Context) ([]*domain.Route, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+routeColumns+" FROM routes WHERE is_active = 1 ORDER BY sort_order, route_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list active routes: %w", err)
	}
	defer rows.Close()

	var routes []*domain.Route
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

// GetRoute returns the route with the given route id.
func (s *Store) GetRoute(ctx context.Context, routeID string) (*domain.Route, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+routeColumns+" FROM routes WHERE route_id = ?", routeID)
	r, err := scanRoute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gwerrors.ErrRouteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get route: %w", err)
	}
	return r, nil
}

// CreateRoute inserts a new route.
func (s *Store) CreateRoute(ctx context.Context, r *domain.Route) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO routes (route_id, cluster_id, match_pattern, sort_order, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RouteID, r.ClusterID, r.Match, r.Order, boolToInt(r.IsActive), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return gwerrors.ErrRouteExists
		}
		return fmt.Errorf("failed to create route: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	r.CreatedAt, r.UpdatedAt = now, now
	return nil
}

// UpdateRoute updates an existing route by route id.
func (s *Store) UpdateRoute(ctx context.Context, r *domain.Route) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE routes SET cluster_id = ?, match_pattern = ?, sort_order = ?, is_active = ?, updated_at = ?
		 WHERE route_id = ?`,
		r.ClusterID, r.Match, r.Order, boolToInt(r.IsActive), now, r.RouteID)
	if err != nil {
		return fmt.Errorf("failed to update route: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return gwerrors.ErrRouteNotFound
	}
	r.UpdatedAt = now
	return nil
}

// DeleteRoute removes a route and its policy.
func (s *Store) DeleteRoute(ctx context.Context, routeID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM routes WHERE route_id = ?", routeID)
	if err != nil {
		return fmt.Errorf("failed to delete route: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return gwerrors.ErrRouteNotFound
	}
	_, err = s.db.ExecContext(ctx, "DELETE FROM route_policies WHERE route_id = ?", routeID)
	return err
}

const clusterColumns = "id, cluster_id, destination, is_active, created_at, updated_at"

func scanCluster(row interface{ Scan(...any) error }) (*domain.Cluster, error) {
	var c domain.Cluster
	var active int
	if err := row.Scan(&c.ID, &c.ClusterID, &c.Destination, &active, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.IsActive = active != 0
	return &c, nil
}

// ListClusters returns all clusters.
func (s *Store) ListClusters(ctx context.Context) ([]*domain.Cluster, error) {
	return s.queryClusters(ctx, "SELECT "+clusterColumns+" FROM clusters ORDER BY cluster_id")
}

// ListActiveClusters returns active clusters.
func (s *Store) ListActiveClusters(ctx context.Context) ([]*domain.Cluster, error) {
	return s.queryClusters(ctx, "SELECT "+clusterColumns+" FROM clusters WHERE is_active = 1 ORDER BY cluster_id")
}

func (s *Store) queryClusters(ctx context.Context, query string) ([]*domain.Cluster, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list clusters: %w", err)
	}
	defer rows.Close()

	var clusters []*domain.Cluster
	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, err
		}
		clusters = append(clusters, c)
	}
	return clusters, rows.Err()
}

// GetCluster returns the cluster with the given cluster id.
func (s *Store) GetCluster(ctx context.Context, clusterID string) (*domain.Cluster, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+clusterColumns+" FROM clusters WHERE cluster_id = ?", clusterID)
	c, err := scanCluster(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gwerrors.ErrClusterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster: %w", err)
	}
	return c, nil
}

// CreateCluster inserts a new cluster.
func (s *Store) CreateCluster(ctx context.Context, c *domain.Cluster) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO clusters (cluster_id, destination, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ClusterID, c.Destination, boolToInt(c.IsActive), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return gwerrors.ErrClusterExists
		}
		return fmt.Errorf("failed to create cluster: %w", err)
	}
	c.ID, _ = res.LastInsertId()
	c.CreatedAt, c.UpdatedAt = now, now
	return nil
}

// UpdateCluster updates an existing cluster by cluster id.
func (s *Store) UpdateCluster(ctx context.Context, c *domain.Cluster) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE clusters SET destination = ?, is_active = ?, updated_at = ? WHERE cluster_id = ?`,
		c.Destination, boolToInt(c.IsActive), now, c.ClusterID)
	if err != nil {
		return fmt.Errorf("failed to update cluster: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return gwerrors.ErrClusterNotFound
	}
	c.UpdatedAt = now
	return nil
}

// DeleteCluster removes a cluster.
func (s *Store) DeleteCluster(ctx context.Context, clusterID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM clusters WHERE cluster_id = ?", clusterID)
	if err != nil {
		return fmt.Errorf("failed to delete cluster: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return gwerrors.ErrClusterNotFound
	}
	return nil
}

// GetPolicy returns the security policy for a route, or nil when the
// route has none (equivalent to security type none).
func (s *Store) GetPolicy(ctx context.Context, routeID string) (*domain.RoutePolicy, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, route_id, security_type, token_endpoint, client_id, client_secret, scope,
		        token_expiration_seconds, created_at, updated_at
		 FROM route_policies WHERE route_id = ?`, routeID)

	var p domain.RoutePolicy
	err := row.Scan(&p.ID, &p.RouteID, &p.SecurityType, &p.TokenEndpoint, &p.ClientID,
		&p.ClientSecret, &p.Scope, &p.TokenExpirationSeconds, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return &p, nil
}

// UpsertPolicy creates or replaces the security policy for a route.
func (s *Store) UpsertPolicy(ctx context.Context, p *domain.RoutePolicy) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO route_policies (route_id, security_type, token_endpoint, client_id,
		                             client_secret, scope, token_expiration_seconds, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(route_id) DO UPDATE SET
		   security_type = excluded.security_type,
		   token_endpoint = excluded.token_endpoint,
		   client_id = excluded.client_id,
		   client_secret = excluded.client_secret,
		   scope = excluded.scope,
		   token_expiration_seconds = excluded.token_expiration_seconds,
		   updated_at = excluded.updated_at`,
		p.RouteID, string(p.SecurityType), p.TokenEndpoint, p.ClientID,
		p.ClientSecret, p.Scope, p.TokenExpirationSeconds, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert policy: %w", err)
	}
	return nil
}

// DeletePolicy removes the security policy of a route.
func (s *Store) DeletePolicy(ctx context.Context, routeID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM route_policies WHERE route_id = ?", routeID)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
