package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/leonardotrapani/hyprlingo/internal/logging"
	"github.com/leonardotrapani/hyprlingo/internal/metrics"
	"github.com/leonardotrapani/hyprlingo/internal/pipeline"
	"github.com/leonardotrapani/hyprlingo/internal/polish"
	"github.com/leonardotrapani/hyprlingo/internal/session"
	"github.com/leonardotrapani/hyprlingo/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Store is the read/delete side of persistence the HTTP API needs
type Store interface {
	Ping(ctx context.Context) error
	ListSessions(ctx context.Context, limit int) ([]store.Session, error)
	GetSessionWithSegments(ctx context.Context, id string) (store.Session, []store.Segment, error)
	DeleteSession(ctx context.Context, id string) error
}

// Uploader runs the whole-file path
type Uploader interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Polisher runs a manual polish for a stored session
type Polisher interface {
	Polish(ctx context.Context, sessionID string, trigger polish.Trigger) polish.Result
}

// Options are the transport settings
type Options struct {
	Address         string
	AllowedOrigins  []string
	MaxUploadBytes  int64
	WriteTimeout    time.Duration
	PingInterval    time.Duration
	ShutdownTimeout time.Duration
}

// Deps are the collaborators behind the routes
type Deps struct {
	Store    Store
	Sessions session.Deps          // handed to every orchestrator
	Defaults func() session.Config // session settings before query overrides
	Registry *session.Registry
	Uploads  Uploader
	Polisher Polisher
	Gatherer prometheus.Gatherer // nil disables /metrics
	Logger   *zap.SugaredLogger
	Metrics  *metrics.Metrics
}

// Server exposes the WebSocket session endpoint and the REST API.
type Server struct {
	opts Options
	deps Deps
	log  *zap.SugaredLogger
	http *http.Server

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	clients map[*client]struct{}
	wg      sync.WaitGroup
}

func New(opts Options, deps Deps) *Server {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if deps.Registry == nil {
		deps.Registry = session.NewRegistry(deps.Logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		opts:    opts,
		deps:    deps,
		log:     logging.OrNop(deps.Logger).Named("server"),
		ctx:     ctx,
		cancel:  cancel,
		clients: make(map[*client]struct{}),
	}

	s.http = &http.Server{
		Addr:              opts.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/sessions", s.withMetrics("/api/sessions", s.handleListSessions))
	mux.HandleFunc("GET /api/sessions/{id}", s.withMetrics("/api/sessions/{id}", s.handleGetSession))
	mux.HandleFunc("DELETE /api/sessions/{id}", s.withMetrics("/api/sessions/{id}", s.handleDeleteSession))
	mux.HandleFunc("POST /api/sessions/{id}/polish", s.withMetrics("/api/sessions/{id}/polish", s.handlePolish))
	mux.HandleFunc("POST /api/upload", s.withMetrics("/api/upload", s.handleUpload))
	mux.HandleFunc("GET /healthz", s.withMetrics("/healthz", s.handleHealth))

	if s.deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Serve accepts connections on ln until Shutdown. It returns nil after a
// clean shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Infow("listening", "address", ln.Addr().String())
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on the configured address.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Shutdown stops accepting requests, closes every live client socket and
// waits for their sessions to finish teardown.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Infow("shutting down", "clients", s.ClientCount())
	err := s.http.Shutdown(ctx)

	// Hijacked connections are not tracked by http.Server.
	s.cancel()
	s.mu.Lock()
	for c := range s.clients {
		c.conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warnw("timed out waiting for client teardown")
	}

	if rerr := s.deps.Registry.Shutdown(ctx); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

// ClientCount returns the number of open WebSocket clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) track(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.clients[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	s.wg.Done()
}

// withMetrics records request count and latency per route pattern
func (s *Server) withMetrics(route string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(ww, r)
		elapsed := time.Since(start)
		s.deps.Metrics.HTTPRequest(r.Method, route, ww.statusCode, elapsed)
		s.log.Debugw("request", "method", r.Method, "path", r.URL.Path, "status", ww.statusCode, "elapsed", elapsed)
	}
}

// responseWriter captures the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
