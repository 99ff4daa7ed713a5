package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/leonardotrapani/hyprlingo/internal/session"
	"go.uber.org/zap"
)

const (
	sendBuffer     = 256
	maxMessageSize = 1 << 20
)

// Client commands sent as text frames
const (
	CommandConfigure = "configure"
	CommandPolish    = "polish-current-session"
	CommandPing      = "ping"
)

// command is a client text frame
type command struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin allows requests without an Origin header (native clients),
// any origin when the allow list is empty or holds "*", and otherwise only
// listed origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	if slices.Contains(s.opts.AllowedOrigins, "*") {
		return true
	}
	if slices.Contains(s.opts.AllowedOrigins, origin) {
		return true
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}
	return false
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	req, err := session.RequestFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cfg := req.Apply(s.deps.Defaults())
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		s.log.Warnw("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{
		conn:         conn,
		log:          s.log,
		send:         make(chan []byte, sendBuffer),
		writeTimeout: s.opts.WriteTimeout,
		pingInterval: s.opts.PingInterval,
	}
	if !s.track(c) {
		conn.Close()
		return
	}
	defer s.untrack(c)

	c.orch = session.New(s.ctx, cfg, s.deps.Sessions, c)
	c.log = s.log.With("conn", c.orch.ID(), "remote", r.RemoteAddr)
	s.deps.Registry.Register(c.orch)
	s.deps.Metrics.ConnectionOpened()
	c.log.Infow("client connected", "mode", cfg.Mode)

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		c.writePump()
	}()

	c.readPump()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	if err := c.orch.Close(ctx); err != nil {
		c.log.Warnw("session teardown failed", "error", err)
	}
	cancel()
	s.deps.Registry.Unregister(c.orch.ID())
	s.deps.Metrics.ConnectionClosed()

	c.closeSend()
	<-writeDone
	c.log.Infow("client disconnected", "session", c.orch.SessionID())
}

// client is one WebSocket peer. It is the orchestrator's event sink.
type client struct {
	conn         *websocket.Conn
	orch         *session.Orchestrator
	log          *zap.SugaredLogger
	writeTimeout time.Duration
	pingInterval time.Duration

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// Emit queues an event for the write pump. Events after close, or beyond a
// full buffer, are dropped.
func (c *client) Emit(ev session.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		c.log.Errorw("failed to encode event", "type", ev.Type, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.Warnw("send buffer full, dropping event", "type", ev.Type)
	}
}

func (c *client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *client) readPump() {
	pongWait := c.pingInterval * 10 / 9
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warnw("read failed", "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch mt {
		case websocket.BinaryMessage:
			if err := c.orch.HandleAudio(data); err != nil && !errors.Is(err, session.ErrClosed) {
				c.log.Debugw("audio rejected", "error", err)
			}
		case websocket.TextMessage:
			c.handleCommand(data)
		}
	}
}

func (c *client) handleCommand(data []byte) {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		c.Emit(session.Event{Type: session.EventError, Data: session.ErrorData{Message: "invalid message: " + err.Error()}})
		return
	}

	switch cmd.Type {
	case CommandConfigure:
		var req session.Request
		if len(cmd.Data) > 0 {
			if err := json.Unmarshal(cmd.Data, &req); err != nil {
				c.Emit(session.Event{Type: session.EventError, Data: session.ErrorData{Message: "invalid configure payload: " + err.Error()}})
				return
			}
		}
		if err := c.orch.Configure(req.Apply(c.orch.Config())); err != nil {
			c.Emit(session.Event{Type: session.EventError, Data: session.ErrorData{Message: err.Error()}})
		}
	case CommandPolish:
		// failures are reported to the client as polish-error
		_ = c.orch.RequestPolish()
	case CommandPing:
		c.Emit(session.Event{Type: session.EventPong})
	default:
		c.Emit(session.Event{Type: session.EventError, Data: session.ErrorData{Message: "unknown message type: " + cmd.Type}})
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debugw("write failed", "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
