package session

import (
	"context"
	"sync"

	"github.com/leonardotrapani/hyprlingo/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Registry tracks live orchestrators so shutdown can tear them all down.
type Registry struct {
	log *zap.SugaredLogger

	mu    sync.Mutex
	conns map[string]*Orchestrator
}

func NewRegistry(log *zap.SugaredLogger) *Registry {
	return &Registry{
		log:   logging.OrNop(log).Named("registry"),
		conns: make(map[string]*Orchestrator),
	}
}

func (r *Registry) Register(o *Orchestrator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[o.ID()] = o
}

func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// SessionIDs lists the persisted sessions currently being recorded.
func (r *Registry) SessionIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.conns))
	for _, o := range r.conns {
		if id := o.SessionID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Shutdown closes every registered orchestrator concurrently.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	conns := make([]*Orchestrator, 0, len(r.conns))
	for id, o := range r.conns {
		conns = append(conns, o)
		delete(r.conns, id)
	}
	r.mu.Unlock()

	if len(conns) > 0 {
		r.log.Infow("closing sessions", "count", len(conns))
	}

	var g errgroup.Group
	for _, o := range conns {
		g.Go(func() error {
			return o.Close(ctx)
		})
	}
	return g.Wait()
}
