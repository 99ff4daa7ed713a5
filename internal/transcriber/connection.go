package transcriber

import (
	"context"
	"sync"

	"github.com/leonardotrapani/hyprlingo/internal/logging"
	"github.com/leonardotrapani/hyprlingo/internal/metrics"
	"go.uber.org/zap"
)

// State is the lifecycle state of the upstream connection
type State int

const (
	StateConnecting State = iota
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Connection keeps exactly one upstream adapter alive for a client session.
//
// Audio sent while the adapter is not ready is held as a single pending chunk
// (newer chunks replace older ones) and flushed once the adapter opens. A send
// while closed recreates the adapter. Events from a replaced adapter are
// dropped, and error/close events raised while a recreate is in flight are
// suppressed. Transcript times are shifted so they stay relative to the first
// adapter across recreates.
type Connection struct {
	newAdapter AdapterFactory
	log        *zap.SugaredLogger
	metrics    *metrics.Metrics

	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	state      State
	adapter    StreamingAdapter
	generation int
	pending    []byte
	recreating bool
	closed     bool

	offset  float64 // stream time accumulated by previous adapters
	lastEnd float64 // furthest transcript end seen on the current adapter

	events chan Event
	wg     sync.WaitGroup
}

// NewConnection creates a connection manager; call Open to dial.
func NewConnection(ctx context.Context, factory AdapterFactory, log *zap.SugaredLogger, m *metrics.Metrics) *Connection {
	cctx, cancel := context.WithCancel(ctx)
	return &Connection{
		newAdapter: factory,
		log:        logging.OrNop(log).Named("upstream"),
		metrics:    m,
		ctx:        cctx,
		cancel:     cancel,
		state:      StateClosed,
		events:     make(chan Event, 64),
	}
}

// Events delivers open, transcript, error and closed events from the current
// adapter. It is closed after Close returns.
func (c *Connection) Events() <-chan Event {
	return c.events
}

// State reports the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open dials the first adapter.
func (c *Connection) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state != StateClosed {
		return
	}
	c.connectLocked()
}

// Send forwards audio when ready; otherwise it becomes the pending chunk and,
// if the connection is closed, a recreate is started.
func (c *Connection) Send(audio []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	switch c.state {
	case StateReady:
		if err := c.adapter.SendChunk(audio); err != nil {
			c.log.Warnw("send failed, recreating", "error", err)
			c.pending = audio
			c.recreateLocked()
		}
	case StateConnecting:
		c.pending = audio
	case StateClosed:
		c.pending = audio
		c.recreateLocked()
	}
}

// Close terminates the upstream connection. Idempotent.
func (c *Connection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.state = StateClosed
	c.pending = nil
	adapter := c.adapter
	c.adapter = nil
	c.generation++
	c.cancel()
	c.mu.Unlock()

	if adapter != nil {
		if err := adapter.Close(); err != nil {
			c.log.Debugw("close", "error", err)
		}
	}
	c.wg.Wait()
	close(c.events)
}

// recreateLocked replaces the current adapter. Must be called with mu held.
func (c *Connection) recreateLocked() {
	c.recreating = true
	c.metrics.Reconnect()
	c.log.Infow("recreating upstream connection", "generation", c.generation+1)

	if old := c.adapter; old != nil {
		c.adapter = nil
		go func() {
			if err := old.Close(); err != nil {
				c.log.Debugw("close replaced adapter", "error", err)
			}
		}()
	}
	c.offset += c.lastEnd
	c.lastEnd = 0
	c.connectLocked()
}

// connectLocked starts a new adapter generation. Must be called with mu held.
func (c *Connection) connectLocked() {
	c.generation++
	gen := c.generation
	adapter := c.newAdapter()
	c.adapter = adapter
	c.state = StateConnecting

	c.wg.Add(1)
	go c.run(gen, adapter)
}

func (c *Connection) run(gen int, adapter StreamingAdapter) {
	defer c.wg.Done()

	if err := adapter.Start(c.ctx); err != nil {
		c.handle(gen, Event{Kind: EventError, Err: err, Fatal: IsFatalTranscriptionError(err)})
		c.handle(gen, Event{Kind: EventClosed})
		return
	}
	for ev := range adapter.Events() {
		c.handle(gen, ev)
	}
}

// handle applies one adapter event to the state machine and forwards it.
func (c *Connection) handle(gen int, ev Event) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}

	forward := true
	switch ev.Kind {
	case EventOpen:
		c.state = StateReady
		c.recreating = false
		if c.pending != nil {
			chunk := c.pending
			c.pending = nil
			if err := c.adapter.SendChunk(chunk); err != nil {
				// keep the chunk for the next adapter; its open is the one reported
				c.log.Warnw("flush pending chunk failed, recreating", "error", err)
				c.pending = chunk
				c.recreateLocked()
				forward = false
			}
		}

	case EventTranscript:
		ev.Transcript = c.shiftLocked(ev.Transcript)

	case EventError:
		if c.recreating && !ev.Fatal {
			c.log.Debugw("suppressed error during recreate", "error", ev.Err)
			forward = false
		}

	case EventClosed:
		c.state = StateClosed
		if c.recreating {
			forward = false
		}
	}
	c.mu.Unlock()

	if !forward {
		return
	}
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

// shiftLocked moves transcript times onto the session timeline.
func (c *Connection) shiftLocked(t Transcript) Transcript {
	if end := t.End(); end > c.lastEnd {
		c.lastEnd = end
	}
	if c.offset == 0 {
		return t
	}
	t.Start += c.offset
	if len(t.Words) > 0 {
		words := make([]Word, len(t.Words))
		for i, w := range t.Words {
			w.Start += c.offset
			w.End += c.offset
			words[i] = w
		}
		t.Words = words
	}
	return t
}
