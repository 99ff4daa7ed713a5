package transcriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/leonardotrapani/hyprlingo/internal/logging"
	"github.com/leonardotrapani/hyprlingo/internal/provider"
	"go.uber.org/zap"
)

// DeepgramOptions are the live-stream query parameters
type DeepgramOptions struct {
	Model          string
	Language       string // language code or "multi" for code-switching
	Encoding       string // empty lets Deepgram sniff the container (webm/opus from browsers)
	SampleRate     int
	Channels       int
	InterimResults bool
	Keywords       []string
	// KeepAlive is how long the socket may go without audio before a
	// KeepAlive message is sent. Zero uses the default, negative disables.
	KeepAlive time.Duration
}

// Deepgram closes a stream after about 10s without audio or KeepAlive.
const defaultDeepgramKeepAlive = 5 * time.Second

// DeepgramAdapter implements StreamingAdapter for Deepgram real-time transcription
type DeepgramAdapter struct {
	endpoint *provider.EndpointConfig
	apiKey   string
	opts     DeepgramOptions
	log      *zap.SugaredLogger
	dialer   *websocket.Dialer

	conn      *websocket.Conn
	eventsCh  chan Event
	writeMu   sync.Mutex
	lastWrite time.Time // guarded by writeMu
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  bool
	closed   bool
}

// deepgramControl is a JSON control message (CloseStream, KeepAlive)
type deepgramControl struct {
	Type string `json:"type"`
}

// Deepgram WebSocket response types (incoming)
type deepgramWSResponse struct {
	Type        string            `json:"type"`
	Channel     *deepgramChannel  `json:"channel,omitempty"`
	Metadata    *deepgramMetadata `json:"metadata,omitempty"`
	Error       *deepgramError    `json:"error,omitempty"`
	Description string            `json:"description,omitempty"`
	Message     string            `json:"message,omitempty"`
	ChannelIdx  []int             `json:"channel_index,omitempty"`
	Duration    float64           `json:"duration,omitempty"`
	Start       float64           `json:"start,omitempty"`
	IsFinal     bool              `json:"is_final,omitempty"`
	SpeechFinal bool              `json:"speech_final,omitempty"`
}

type deepgramChannel struct {
	Alternatives []deepgramAlternative `json:"alternatives,omitempty"`
}

type deepgramAlternative struct {
	Transcript string         `json:"transcript"`
	Confidence float64        `json:"confidence"`
	Words      []deepgramWord `json:"words,omitempty"`
	Languages  []string       `json:"languages,omitempty"`
}

type deepgramWord struct {
	Word           string  `json:"word"`
	PunctuatedWord string  `json:"punctuated_word,omitempty"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Confidence     float64 `json:"confidence"`
	Language       string  `json:"language,omitempty"`
}

type deepgramMetadata struct {
	RequestID string `json:"request_id"`
	ModelInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"model_info"`
}

type deepgramError struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	Description string `json:"description,omitempty"`
}

// NewDeepgramAdapter creates a new streaming adapter for Deepgram
// endpoint: the WebSocket endpoint config (e.g., wss://api.deepgram.com, /v1/listen)
// apiKey: Deepgram API key
func NewDeepgramAdapter(endpoint *provider.EndpointConfig, apiKey string, opts DeepgramOptions, log *zap.SugaredLogger) *DeepgramAdapter {
	return &DeepgramAdapter{
		endpoint: endpoint,
		apiKey:   apiKey,
		opts:     opts,
		log:      logging.OrNop(log).Named("deepgram"),
		dialer:   websocket.DefaultDialer,
		eventsCh: make(chan Event, 100),
	}
}

// Start dials Deepgram and starts the read loop
func (a *DeepgramAdapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return fmt.Errorf("adapter already started")
	}
	if a.closed {
		return fmt.Errorf("adapter closed")
	}

	a.ctx, a.cancel = context.WithCancel(ctx)

	wsURL, err := a.buildURL()
	if err != nil {
		a.cancel()
		return fmt.Errorf("build websocket url: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+a.apiKey)

	a.log.Debugw("connecting", "url", wsURL)
	conn, resp, err := a.dialer.DialContext(a.ctx, wsURL, headers)
	if err != nil {
		a.cancel()
		if resp != nil {
			a.log.Warnw("dial failed", "status", resp.StatusCode)
			return classifyStatus(resp.StatusCode, fmt.Errorf("websocket dial: status %d: %w", resp.StatusCode, err))
		}
		return fmt.Errorf("websocket dial: %w", err)
	}
	a.conn = conn
	a.started = true
	a.lastWrite = time.Now()

	a.eventsCh <- Event{Kind: EventOpen}

	a.wg.Add(1)
	go a.readLoop(conn)
	if interval := a.keepAliveInterval(); interval > 0 {
		a.wg.Add(1)
		go a.keepAliveLoop(conn, interval)
	}

	a.log.Infow("connected", "model", a.opts.Model, "language", a.opts.Language)
	return nil
}

// buildURL constructs the WebSocket URL with query parameters
func (a *DeepgramAdapter) buildURL() (string, error) {
	u, err := url.Parse(a.endpoint.URL())
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	q := u.Query()
	q.Set("model", a.opts.Model)
	if a.opts.Encoding != "" {
		q.Set("encoding", a.opts.Encoding)
	}
	if a.opts.SampleRate > 0 {
		q.Set("sample_rate", strconv.Itoa(a.opts.SampleRate))
	}
	if a.opts.Channels > 0 {
		q.Set("channels", strconv.Itoa(a.opts.Channels))
	}
	q.Set("interim_results", strconv.FormatBool(a.opts.InterimResults))
	q.Set("smart_format", "true")
	q.Set("punctuate", "true")

	if lang := normalizeDeepgramLanguage(a.opts.Language); lang != "" {
		q.Set("language", lang)
	}

	// nova-3 uses "keyterm" (singular), others use "keywords" (plural)
	if len(a.opts.Keywords) > 0 {
		if strings.HasPrefix(a.opts.Model, "nova-3") {
			for _, k := range a.opts.Keywords {
				q.Add("keyterm", k)
			}
		} else {
			q.Set("keywords", strings.Join(a.opts.Keywords, ","))
		}
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// emit queues an event unless the adapter is shutting down
func (a *DeepgramAdapter) emit(ev Event) {
	select {
	case a.eventsCh <- ev:
	case <-a.ctx.Done():
	}
}

// readLoop reads messages from the WebSocket and turns them into events
func (a *DeepgramAdapter) readLoop(conn *websocket.Conn) {
	defer a.wg.Done()
	defer close(a.eventsCh)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			// normal shutdown
			if a.ctx.Err() != nil {
				return
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				a.log.Warnw("read error", "error", err)
				a.emit(Event{Kind: EventError, Err: fmt.Errorf("websocket read: %w", err)})
			} else {
				a.log.Infow("closed by provider")
			}
			a.emit(Event{Kind: EventClosed})
			return
		}

		var resp deepgramWSResponse
		if err := json.Unmarshal(message, &resp); err != nil {
			a.log.Warnw("parse error", "error", err)
			continue
		}

		switch resp.Type {
		case "Metadata":
			if resp.Metadata != nil {
				a.log.Debugw("session started", "request_id", resp.Metadata.RequestID, "model", resp.Metadata.ModelInfo.Name)
			}

		case "Results":
			if resp.Channel == nil || len(resp.Channel.Alternatives) == 0 {
				continue
			}
			alt := resp.Channel.Alternatives[0]
			if alt.Transcript == "" {
				continue
			}
			a.emit(Event{Kind: EventTranscript, Transcript: toTranscript(resp, alt)})

		case "Error":
			msg := resp.Message
			if resp.Error != nil {
				msg = resp.Error.Message
				if resp.Error.Description != "" {
					msg = fmt.Sprintf("%s: %s", msg, resp.Error.Description)
				}
			} else if resp.Description != "" {
				msg = resp.Description
			}
			a.log.Warnw("provider error", "message", msg)
			a.emit(Event{Kind: EventError, Err: fmt.Errorf("deepgram: %s", msg)})

		case "UtteranceEnd", "SpeechStarted":
			a.log.Debugw(resp.Type)

		default:
			a.log.Debugw("unknown message type", "type", resp.Type)
		}
	}
}

func (a *DeepgramAdapter) keepAliveInterval() time.Duration {
	if a.opts.KeepAlive == 0 {
		return defaultDeepgramKeepAlive
	}
	return a.opts.KeepAlive
}

// keepAliveLoop sends KeepAlive whenever no audio went out for interval.
func (a *DeepgramAdapter) keepAliveLoop(conn *websocket.Conn, interval time.Duration) {
	defer a.wg.Done()

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
		}

		a.writeMu.Lock()
		var err error
		if a.ctx.Err() == nil && time.Since(a.lastWrite) >= interval {
			err = conn.WriteJSON(deepgramControl{Type: "KeepAlive"})
			a.lastWrite = time.Now()
		}
		a.writeMu.Unlock()
		if err != nil {
			a.log.Debugw("keepalive write failed", "error", err)
			return
		}
	}
}

func toTranscript(resp deepgramWSResponse, alt deepgramAlternative) Transcript {
	return Transcript{
		Text:      alt.Transcript,
		IsFinal:   resp.IsFinal || resp.SpeechFinal,
		Start:     resp.Start,
		Duration:  resp.Duration,
		Words:     toWords(alt.Words),
		Languages: alt.Languages,
	}
}

// SendChunk sends raw binary audio to the WebSocket
func (a *DeepgramAdapter) SendChunk(audio []byte) error {
	a.mu.Lock()
	if !a.started || a.closed {
		a.mu.Unlock()
		return fmt.Errorf("adapter not started")
	}
	conn := a.conn
	ctx := a.ctx
	a.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	a.writeMu.Lock()
	err := conn.WriteMessage(websocket.BinaryMessage, audio)
	a.lastWrite = time.Now()
	a.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Events returns the channel for receiving connection events
func (a *DeepgramAdapter) Events() <-chan Event {
	return a.eventsCh
}

// Close sends CloseStream and tears the socket down. Errors from an
// already-closed socket are ignored.
func (a *DeepgramAdapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	started := a.started
	conn := a.conn
	if a.cancel != nil {
		a.cancel()
	}
	a.mu.Unlock()

	if !started {
		close(a.eventsCh)
		return nil
	}

	a.writeMu.Lock()
	if err := conn.WriteJSON(deepgramControl{Type: "CloseStream"}); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		a.log.Debugw("close stream write failed", "error", err)
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	a.writeMu.Unlock()
	conn.Close()

	a.wg.Wait()
	a.log.Debugw("closed")
	return nil
}
