package transport

import (
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// PoolConfig holds connection pool configuration.
type PoolConfig struct {
	MaxIdleConns          int `json:"max_idle_conns"`
	MaxIdleConnsPerHost   int `json:"max_idle_conns_per_host"`
	MaxConnsPerHost       int `json:"max_conns_per_host"`
	IdleConnTimeout       time.Duration `json:"idle_conn_timeout"`
	TLSHandshakeTimeout   time.Duration `json:"tls_handshake_timeout"`
	DialTimeout           time.Duration `json:"dial_timeout"`
	KeepAlive             time.Duration `json:"keep_alive"`
	ResponseHeaderTimeout time.Duration `json:"response_header_timeout"`
	ExpectContinueTimeout time.Duration `json:"expect_continue_timeout"`
	DisableCompression    bool `json:"disable_compression"`
	ForceHTTP2            bool `json:"force_http2"`
}

// DefaultPoolConfig returns production-grade pool defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		MaxConnsPerHost:       64,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		DialTimeout:           10 * time.Second,
		KeepAlive:             30 * time.Second,
		ResponseHeaderTimeout: 0, // handled by per-request context deadline
		ExpectContinueTimeout: 1 * time.Second,
		DisableCompression:    false,
		ForceHTTP2:            true,
	}
}

// PoolMetrics tracks connection pool utilization metrics, per host.
type PoolMetrics struct {
	ActiveConnections sync.Map // map[string]*int64
	TotalRequests     sync.Map // map[string]*int64
	TotalErrors       sync.Map // map[string]*int64
	ConnectionReuses  sync.Map // map[string]*int64
}

// ConnectionPool manages shared HTTP transports and clients, one per
// destination host, so repeated fetches to the same host reuse
// connections instead of dialing fresh each time.
type ConnectionPool struct {
	mu         sync.RWMutex
	transports map[string]*http.Transport
	clients    map[string]*http.Client
	configs    map[string]PoolConfig
	defaults   PoolConfig
	metrics    *PoolMetrics
}

// NewConnectionPool creates a new connection pool manager.
func NewConnectionPool(defaults PoolConfig) *ConnectionPool {
	return &ConnectionPool{
		transports: make(map[string]*http.Transport),
		clients:    make(map[string]*http.Client),
		configs:    make(map[string]PoolConfig),
		defaults:   defaults,
		metrics:    &PoolMetrics{},
	}
}

// DefaultConnectionPool returns a pool with production defaults.
func DefaultConnectionPool() *ConnectionPool {
	return NewConnectionPool(DefaultPoolConfig())
}

// Configure sets a custom pool configuration for a specific host.
func (p *ConnectionPool) Configure(host string, cfg PoolConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.configs[host] = cfg
	delete(p.transports, host)
	delete(p.clients, host)
}

// GetClient returns a shared HTTP client for host. The client and its
// transport are created on first access, with the timeout given then,
// and reused afterward; the timeout argument of later calls is ignored.
func (p *ConnectionPool) GetClient(host string, timeout time.Duration) *http.Client {
	p.mu.RLock()
	if c, ok := p.clients[host]; ok {
		p.mu.RUnlock()
		return c
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[host]; ok {
		return c
	}

	cfg := p.configFor(host)
	transport := p.createTransport(cfg)
	p.transports[host] = transport

	client := &http.Client{
		Transport: &metricsRoundTripper{
			inner:   transport,
			host:    host,
			metrics: p.metrics,
		},
		Timeout: timeout,
	}
	p.clients[host] = client

	return client
}

// Metrics returns the current pool metrics snapshot, keyed by host.
func (p *ConnectionPool) Metrics() map[string]map[string]int64 {
	result := make(map[string]map[string]int64)

	collect := func(m *sync.Map, label string) {
		m.Range(func(key, value interface{}) bool {
			name := key.(string)
			if _, ok := result[name]; !ok {
				result[name] = make(map[string]int64)
			}
			result[name][label] = atomic.LoadInt64(value.(*int64))
			return true
		})
	}
	collect(&p.metrics.TotalRequests, "total_requests")
	collect(&p.metrics.TotalErrors, "total_errors")
	collect(&p.metrics.ActiveConnections, "active_connections")
	collect(&p.metrics.ConnectionReuses, "connection_reuses")

	return result
}

// Close gracefully closes all idle connections across every host pool.
func (p *ConnectionPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.transports {
		t.CloseIdleConnections()
	}
}

func (p *ConnectionPool) configFor(host string) PoolConfig {
	if cfg, ok := p.configs[host]; ok {
		return cfg
	}
	return p.defaults
}

func (p *ConnectionPool) createTransport(cfg PoolConfig) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAlive,
	}

	t := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ExpectContinueTimeout: cfg.ExpectContinueTimeout,
		DisableCompression:    cfg.DisableCompression,
	}

	if cfg.ForceHTTP2 {
		t.TLSClientConfig = &tls.Config{
			NextProtos: []string{"h2", "http/1.1"},
			MinVersion: tls.VersionTLS12,
		}
		t.ForceAttemptHTTP2 = true
	}

	return t
}

// metricsRoundTripper wraps an http.RoundTripper to track per-host metrics.
type metricsRoundTripper struct {
	inner   http.RoundTripper
	host    string
	metrics *PoolMetrics
}

func (m *metricsRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	active := m.counter(&m.metrics.ActiveConnections)
	atomic.AddInt64(active, 1)
	defer atomic.AddInt64(active, -1)

	atomic.AddInt64(m.counter(&m.metrics.TotalRequests), 1)

	resp, err := m.inner.RoundTrip(req)
	if err != nil {
		atomic.AddInt64(m.counter(&m.metrics.TotalErrors), 1)
		return nil, err
	}

	if !resp.Close {
		atomic.AddInt64(m.counter(&m.metrics.ConnectionReuses), 1)
	}

	return resp, nil
}

func (m *metricsRoundTripper) counter(store *sync.Map) *int64 {
	if val, ok := store.Load(m.host); ok {
		return val.(*int64)
	}
	counter := new(int64)
	actual, _ := store.LoadOrStore(m.host, counter)
	return actual.(*int64)
}
