package http

import (
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/your-org/gateway/internal/domain"
	"github.com/your-org/gateway/internal/service/broker"
	"github.com/your-org/gateway/internal/service/metrics"
	"github.com/your-org/gateway/internal/service/proxycfg"
	gwerrors "github.com/your-org/gateway/pkg/errors"
	pkghttputil "github.com/your-org/gateway/pkg/httputil"
	"github.com/your-org/gateway/pkg/logger"
)

// Forwarder is the data plane: it matches requests against the current
// routing snapshot, attaches the upstream credential the route's policy
// demands, and reverse-proxies to the cluster destination.
type Forwarder struct {
	provider  *proxycfg.Provider
	broker    *broker.Broker
	metrics   *metrics.Metrics
	transport http.RoundTripper

	mu      sync.RWMutex
	proxies map[string]*httputil.ReverseProxy
}

// NewForwarder creates the forwarder with a shared upstream transport.
func NewForwarder(provider *proxycfg.Provider, b *broker.Broker) *Forwarder {
	return &Forwarder{
		provider: provider,
		broker:   b,
		metrics:  metrics.Default,
		transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   16,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: time.Second,
		},
		proxies: make(map[string]*httputil.ReverseProxy),
	}
}

// ServeHTTP forwards one request. A policy the broker cannot satisfy is
// a 502: forwarding without the credential the route demands would leak
// the request to an upstream expecting authentication.
func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap := f.provider.Current()
	entry, ok := snap.Match(r.URL.Path)
	if !ok {
		// The gateway exists to stand in front of upstreams; a path
		// with no live route is a gateway-level failure, not a 404 the
		// client could fix.
		pkghttputil.WriteError(w, r, http.StatusBadGateway, gwerrors.CodeUpstreamError, "no route matches this path")
		return
	}

	start := time.Now()
	sess := sessionFromContext(r.Context())

	switch entry.SecurityType() {
	case domain.SecuritySession:
		// Gate already authenticated; the browser's own IdP token rides
		// upstream.
		if sess != nil {
			r.Header.Set("Authorization", "Bearer "+sess.AccessToken)
		}
	default:
		tok, err := f.broker.GetToken(r.Context(), entry.Policy, sess)
		if err != nil {
			logger.Error("upstream token unavailable",
				logger.String("route_id", entry.Route.RouteID),
				logger.Err(err))
			f.record(entry.Route.RouteID, http.StatusBadGateway, start)
			pkghttputil.WriteError(w, r, http.StatusBadGateway, gwerrors.CodeUpstreamError, "upstream credential unavailable")
			return
		}
		if tok != "" {
			r.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	proxy, err := f.proxyFor(entry.Cluster.Destination)
	if err != nil {
		logger.Error("invalid cluster destination",
			logger.String("cluster_id", entry.Cluster.ClusterID),
			logger.String("destination", entry.Cluster.Destination),
			logger.Err(err))
		f.record(entry.Route.RouteID, http.StatusBadGateway, start)
		pkghttputil.WriteError(w, r, http.StatusBadGateway, gwerrors.CodeUpstreamError, "upstream misconfigured")
		return
	}

	sw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	proxy.ServeHTTP(sw, r)
	f.record(entry.Route.RouteID, sw.status, start)
}

func (f *Forwarder) record(routeID string, status int, start time.Time) {
	f.metrics.ProxyRequestsTotal.WithLabelValues(routeID, strconv.Itoa(status)).Inc()
	f.metrics.ProxyDurationSecs.WithLabelValues(routeID).Observe(time.Since(start).Seconds())
}

// proxyFor returns the cached reverse proxy for a destination, building
// one on first use. Proxies are keyed by destination so a cluster
// update naturally picks up a fresh one.
func (f *Forwarder) proxyFor(destination string) (*httputil.ReverseProxy, error) {
	f.mu.RLock()
	proxy, ok := f.proxies[destination]
	f.mu.RUnlock()
	if ok {
		return proxy, nil
	}

	target, err := url.Parse(destination)
	if err != nil {
		return nil, err
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, gwerrors.ErrClusterNotFound
	}

	proxy = httputil.NewSingleHostReverseProxy(target)
	proxy.Transport = f.transport
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("upstream request failed",
			logger.String("destination", destination),
			logger.Err(err))
		pkghttputil.WriteError(w, r, http.StatusBadGateway, gwerrors.CodeUpstreamError, "upstream unavailable")
	}

	f.mu.Lock()
	f.proxies[destination] = proxy
	f.mu.Unlock()
	return proxy, nil
}

// statusRecorder captures the proxied status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
