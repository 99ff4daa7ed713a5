package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leonardotrapani/hyprlingo/internal/logging"
	"github.com/leonardotrapani/hyprlingo/internal/metrics"
	"github.com/leonardotrapani/hyprlingo/internal/polish"
	"github.com/leonardotrapani/hyprlingo/internal/store"
	"github.com/leonardotrapani/hyprlingo/internal/transcriber"
	"github.com/leonardotrapani/hyprlingo/internal/translation"
	"go.uber.org/zap"
)

var (
	ErrClosed         = errors.New("session closed")
	ErrAlreadyStarted = errors.New("session already started")
	ErrNoSession      = errors.New("no active session")
)

// Store is the persistence an orchestrator needs
type Store interface {
	CreateSession(ctx context.Context, sess *store.Session) error
	CreateSegment(ctx context.Context, seg *store.Segment) error
	IncrementSegmentCount(ctx context.Context, id string) error
	SegmentCount(ctx context.Context, id string) (int, error)
	UpdateDuration(ctx context.Context, id string, seconds float64) error
	DeleteSession(ctx context.Context, id string) error
}

// Translator produces instant translations
type Translator interface {
	Instant(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Polisher runs batch polishing for a session
type Polisher interface {
	PolishWithHooks(ctx context.Context, sessionID string, trigger polish.Trigger, hooks polish.Hooks) polish.Result
	StartBackground(sessionID string, interval time.Duration, hooks polish.Hooks)
	StopBackground(sessionID string)
}

// AdapterBuilder returns the upstream adapter factory for a session config
type AdapterBuilder func(cfg Config) transcriber.AdapterFactory

// Deps are the collaborators shared by every orchestrator
type Deps struct {
	Store      Store
	Translator Translator
	Polisher   Polisher
	Adapters   AdapterBuilder
	Logger     *zap.SugaredLogger
	Metrics    *metrics.Metrics
}

// Orchestrator drives one client connection: it creates the session on the
// first audio chunk, turns final transcripts into translated segments and
// tears the session down on Close.
type Orchestrator struct {
	id   string
	deps Deps
	sink Sink
	log  *zap.SugaredLogger
	now  func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	cfg       Config
	session   *store.Session
	startedAt time.Time
	conn      *transcriber.Connection
	closed    bool

	loopDone chan struct{}
	polishWg sync.WaitGroup
}

func New(ctx context.Context, cfg Config, deps Deps, sink Sink) *Orchestrator {
	ctx, cancel := context.WithCancel(ctx)
	id := uuid.NewString()
	return &Orchestrator{
		id:     id,
		deps:   deps,
		sink:   sink,
		log:    logging.OrNop(deps.Logger).Named("session").With("conn", id),
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
	}
}

// ID identifies the client connection, not the persisted session.
func (o *Orchestrator) ID() string {
	return o.id
}

// SessionID returns the persisted session id, empty before the first chunk.
func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return ""
	}
	return o.session.ID
}

func (o *Orchestrator) Config() Config {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg
}

// Configure replaces the session config. Only allowed before the first chunk.
func (o *Orchestrator) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	if o.session != nil {
		return ErrAlreadyStarted
	}
	o.cfg = cfg
	return nil
}

// HandleAudio forwards one chunk upstream, creating the session first if
// this is the first chunk.
func (o *Orchestrator) HandleAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if o.session == nil {
		if err := o.startLocked(); err != nil {
			o.mu.Unlock()
			o.sink.Emit(Event{Type: EventError, Data: ErrorData{Message: err.Error()}})
			return err
		}
	}
	conn := o.conn
	o.mu.Unlock()

	conn.Send(chunk)
	return nil
}

func (o *Orchestrator) startLocked() error {
	cfg := o.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}

	sess := &store.Session{
		Mode:           cfg.Mode,
		Origin:         store.OriginLive,
		InputLanguage:  cfg.InputLanguage,
		OutputLanguage: cfg.OutputLanguage,
		LanguageA:      cfg.LanguageA,
		LanguageB:      cfg.LanguageB,
	}
	if cfg.Mode == store.ModeTwoWay {
		sess.InputLanguage, sess.OutputLanguage = "", ""
	} else {
		sess.LanguageA, sess.LanguageB = "", ""
	}
	if err := o.deps.Store.CreateSession(o.ctx, sess); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	o.session = sess
	o.startedAt = o.now()
	o.log = o.log.With("session", sess.ID)
	o.deps.Metrics.SessionCreated()
	o.log.Infow("session created", "mode", sess.Mode)

	o.sink.Emit(Event{Type: EventSessionCreated, Data: SessionCreatedData{
		SessionID:      sess.ID,
		Mode:           sess.Mode,
		InputLanguage:  sess.InputLanguage,
		OutputLanguage: sess.OutputLanguage,
		LanguageA:      sess.LanguageA,
		LanguageB:      sess.LanguageB,
		CreatedAt:      sess.CreatedAt,
		Polish:         cfg.Polish,
	}})

	if cfg.Polish && o.deps.Polisher != nil {
		o.deps.Polisher.StartBackground(sess.ID, cfg.PolishInterval, o.polishHooks())
	}

	o.conn = transcriber.NewConnection(o.ctx, o.deps.Adapters(cfg), o.log, o.deps.Metrics)
	o.loopDone = make(chan struct{})
	go o.dispatch(o.conn, *sess)
	o.conn.Open()
	return nil
}

func (o *Orchestrator) polishHooks() polish.Hooks {
	return polish.Hooks{
		OnStart: func(sessionID string, batch int) {
			o.sink.Emit(Event{Type: EventPolishStarted, Data: PolishData{
				SessionID:    sessionID,
				Status:       polish.StatusOK,
				SegmentCount: batch,
			}})
		},
		OnResult: func(r polish.Result) {
			// quiet automatic passes that never started a batch
			if r.Status == polish.StatusOK && r.BatchSize == 0 {
				return
			}
			o.sink.Emit(PolishEvent(r))
		},
	}
}

// RequestPolish starts a manual polish of the current session. The run
// continues if the client disconnects.
func (o *Orchestrator) RequestPolish() error {
	o.mu.Lock()
	if o.session == nil {
		o.mu.Unlock()
		o.sink.Emit(Event{Type: EventPolishError, Data: PolishData{
			Trigger: polish.Manual,
			Status:  polish.StatusError,
			Error:   ErrNoSession.Error(),
		}})
		return ErrNoSession
	}
	id := o.session.ID
	o.mu.Unlock()

	if o.deps.Polisher == nil {
		o.sink.Emit(Event{Type: EventPolishError, Data: PolishData{
			SessionID: id,
			Trigger:   polish.Manual,
			Status:    polish.StatusError,
			Error:     translation.ErrPolishDisabled.Error(),
		}})
		return translation.ErrPolishDisabled
	}

	hooks := o.polishHooks()
	o.polishWg.Add(1)
	go func() {
		defer o.polishWg.Done()
		res := o.deps.Polisher.PolishWithHooks(o.ctx, id, polish.Manual, hooks)
		o.sink.Emit(PolishEvent(res))
	}()
	return nil
}

// dispatch relays upstream events until the connection closes.
func (o *Orchestrator) dispatch(conn *transcriber.Connection, sess store.Session) {
	defer close(o.loopDone)

	for ev := range conn.Events() {
		switch ev.Kind {
		case transcriber.EventOpen:
			o.sink.Emit(Event{Type: EventUpstreamReady})
		case transcriber.EventTranscript:
			o.handleTranscript(sess, ev.Transcript)
		case transcriber.EventError:
			msg := "transcription error"
			if ev.Err != nil {
				msg = ev.Err.Error()
			}
			o.log.Warnw("transcription error", "error", ev.Err, "fatal", ev.Fatal)
			o.sink.Emit(Event{Type: EventTranscriptionError, Data: ErrorData{Message: msg, Fatal: ev.Fatal}})
		case transcriber.EventClosed:
			o.sink.Emit(Event{Type: EventUpstreamClosed})
		}
	}
}

func (o *Orchestrator) handleTranscript(sess store.Session, t transcriber.Transcript) {
	text := strings.TrimSpace(t.Text)
	if text == "" {
		return
	}

	r := Route(sess, t.LanguageTags())

	o.sink.Emit(Event{Type: EventTranscript, Data: TranscriptData{
		Text:             text,
		IsFinal:          t.IsFinal,
		Start:            t.Start,
		End:              t.End(),
		DetectedLanguage: r.Detected,
	}})
	if !t.IsFinal {
		return
	}

	translated, err := o.deps.Translator.Instant(o.ctx, text, r.Source, r.Target)
	if err == nil && strings.TrimSpace(translated) == "" {
		err = translation.EmptyResult("")
	}
	if err != nil {
		o.log.Warnw("instant translation failed", "source", r.Source, "target", r.Target, "error", err)
		o.sink.Emit(Event{Type: EventTranslationError, Data: ErrorData{
			Message: err.Error(),
			Kind:    string(translation.KindOf(err)),
			Text:    text,
		}})
		return
	}

	seg := store.Segment{
		ID:               uuid.NewString(),
		SessionID:        sess.ID,
		Start:            t.Start,
		End:              t.End(),
		OriginalText:     text,
		RawTranslation:   &translated,
		DetectedLanguage: r.Detected,
		Direction:        r.Direction,
		CreatedAt:        o.now(),
	}

	evType := EventInstantTranslation
	if sess.Mode == store.ModeTwoWay {
		evType = EventTwoWayTranslation
	}
	o.sink.Emit(Event{Type: evType, Data: SegmentData{
		Segment:        seg,
		SourceLanguage: r.Source,
		TargetLanguage: r.Target,
		Confidence:     r.Confidence,
	}})

	// persistence is best-effort; the client already has the segment
	if err := o.deps.Store.CreateSegment(o.ctx, &seg); err != nil {
		o.log.Errorw("persist segment failed", "segment", seg.ID, "error", err)
		return
	}
	if err := o.deps.Store.IncrementSegmentCount(o.ctx, sess.ID); err != nil {
		o.log.Errorw("increment segment count failed", "error", err)
	}
	o.deps.Metrics.Segment(string(sess.Mode))
}

// Close tears the connection down. Sessions that never produced a segment
// are deleted; the rest get their duration recorded. Safe to call twice.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	sess := o.session
	conn := o.conn
	startedAt := o.startedAt
	o.mu.Unlock()

	if sess != nil && o.deps.Polisher != nil {
		o.deps.Polisher.StopBackground(sess.ID)
	}
	if conn != nil {
		conn.Close()
		<-o.loopDone
	}
	o.cancel()

	if sess == nil {
		return nil
	}

	count, err := o.deps.Store.SegmentCount(ctx, sess.ID)
	if err != nil {
		o.log.Errorw("read segment count failed", "error", err)
		return fmt.Errorf("segment count: %w", err)
	}

	if count == 0 {
		if err := o.deps.Store.DeleteSession(ctx, sess.ID); err != nil && !errors.Is(err, store.ErrSessionNotFound) {
			o.log.Errorw("delete empty session failed", "error", err)
			return fmt.Errorf("delete session: %w", err)
		}
		o.deps.Metrics.SessionDeleted()
		o.log.Infow("empty session deleted")
		return nil
	}

	duration := o.now().Sub(startedAt).Seconds()
	if err := o.deps.Store.UpdateDuration(ctx, sess.ID, duration); err != nil {
		o.log.Errorw("update duration failed", "error", err)
		return fmt.Errorf("update duration: %w", err)
	}
	o.log.Infow("session closed", "segments", count, "duration", duration)
	return nil
}

// Wait blocks until manual polish runs started by this connection finish.
func (o *Orchestrator) Wait() {
	o.polishWg.Wait()
}
