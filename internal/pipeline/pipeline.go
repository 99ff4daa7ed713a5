package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leonardotrapani/hyprlingo/internal/logging"
	"github.com/leonardotrapani/hyprlingo/internal/metrics"
	"github.com/leonardotrapani/hyprlingo/internal/polish"
	"github.com/leonardotrapani/hyprlingo/internal/session"
	"github.com/leonardotrapani/hyprlingo/internal/store"
	"github.com/leonardotrapani/hyprlingo/internal/transcriber"
	"github.com/leonardotrapani/hyprlingo/internal/translation"
	"go.uber.org/zap"
)

// Status is the stage an upload is in
type Status string

const (
	Idle         Status = "idle"
	Transcribing Status = "transcribing"
	Translating  Status = "translating"
	Polishing    Status = "polishing"
	Done         Status = "done"
)

var (
	ErrEmptyAudio = errors.New("empty audio")
	ErrNoSpeech   = errors.New("no speech detected")
)

// Store is the persistence an upload needs
type Store interface {
	CreateSession(ctx context.Context, sess *store.Session) error
	CreateSegment(ctx context.Context, seg *store.Segment) error
	IncrementSegmentCount(ctx context.Context, id string) error
	UpdateDuration(ctx context.Context, id string, seconds float64) error
	UpdateSegmentPolished(ctx context.Context, segmentID, text string) error
	DeleteSession(ctx context.Context, id string) error
	GetSessionWithSegments(ctx context.Context, id string) (store.Session, []store.Segment, error)
}

// Translator covers the instant path and the single-segment polish path
type Translator interface {
	Instant(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	Polish(ctx context.Context, text, draft, sourceLang, targetLang string) (string, error)
	CanPolish() bool
}

// Polisher runs a batch polish over a stored session
type Polisher interface {
	Polish(ctx context.Context, sessionID string, trigger polish.Trigger) polish.Result
}

// TranscriberBuilder returns the whole-file transcriber for a session config
type TranscriberBuilder func(cfg session.Config) transcriber.BatchAdapter

// Deps are the collaborators of an upload pipeline
type Deps struct {
	Store        Store
	Translator   Translator
	Polisher     Polisher
	Transcribers TranscriberBuilder
	Logger       *zap.SugaredLogger
	Metrics      *metrics.Metrics
}

// Request is one uploaded recording
type Request struct {
	Audio       []byte
	ContentType string
	Config      session.Config
	Progress    func(Status) // optional
}

// Result is the stored session produced by an upload
type Result struct {
	Session  store.Session   `json:"session"`
	Segments []store.Segment `json:"segments"`
	Warnings []string        `json:"warnings,omitempty"`
	Polish   *polish.Result  `json:"-"`
}

// Pipeline turns an uploaded recording into a completed session:
// transcribe, translate each utterance, persist, then optionally polish.
type Pipeline struct {
	deps Deps
	log  *zap.SugaredLogger
}

func New(deps Deps) *Pipeline {
	return &Pipeline{deps: deps, log: logging.OrNop(deps.Logger).Named("upload")}
}

func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	progress := req.Progress
	if progress == nil {
		progress = func(Status) {}
	}
	defer progress(Done)

	if len(req.Audio) == 0 {
		return Result{}, ErrEmptyAudio
	}
	cfg := req.Config
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	progress(Transcribing)
	started := time.Now()
	utterances, err := p.deps.Transcribers(cfg).Transcribe(ctx, req.Audio, req.ContentType)
	if err != nil {
		return Result{}, fmt.Errorf("transcribe: %w", err)
	}
	p.log.Infow("transcribed upload", "utterances", len(utterances), "bytes", len(req.Audio), "elapsed", time.Since(started))
	if len(utterances) == 0 {
		return Result{}, ErrNoSpeech
	}

	sess := &store.Session{
		Mode:   cfg.Mode,
		Origin: store.OriginUpload,
	}
	if cfg.Mode == store.ModeTwoWay {
		sess.LanguageA, sess.LanguageB = cfg.LanguageA, cfg.LanguageB
	} else {
		sess.InputLanguage, sess.OutputLanguage = cfg.InputLanguage, cfg.OutputLanguage
	}
	if err := p.deps.Store.CreateSession(ctx, sess); err != nil {
		return Result{}, fmt.Errorf("create session: %w", err)
	}
	p.deps.Metrics.SessionCreated()
	log := p.log.With("session", sess.ID)

	progress(Translating)
	var (
		res      Result
		stored   []store.Segment
		routes   []session.Routing
		duration float64
		lastErr  error
	)
	for i, u := range utterances {
		text := strings.TrimSpace(u.Transcript)
		if text == "" {
			continue
		}
		r := session.Route(*sess, u.LanguageTags())

		translated, err := p.deps.Translator.Instant(ctx, text, r.Source, r.Target)
		if err == nil && strings.TrimSpace(translated) == "" {
			err = translation.EmptyResult("")
		}
		if err != nil {
			lastErr = err
			log.Warnw("translate utterance failed", "index", i, "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("utterance %d not translated: %v", i+1, err))
			continue
		}

		seg := store.Segment{
			ID:               uuid.NewString(),
			SessionID:        sess.ID,
			Start:            u.Start,
			End:              u.End,
			OriginalText:     text,
			RawTranslation:   &translated,
			DetectedLanguage: r.Detected,
			Direction:        r.Direction,
		}
		if err := p.deps.Store.CreateSegment(ctx, &seg); err != nil {
			p.discard(sess.ID)
			return Result{}, fmt.Errorf("save segment: %w", err)
		}
		if err := p.deps.Store.IncrementSegmentCount(ctx, sess.ID); err != nil {
			log.Errorw("increment segment count failed", "error", err)
		}
		p.deps.Metrics.Segment(string(sess.Mode))

		stored = append(stored, seg)
		routes = append(routes, r)
		if u.End > duration {
			duration = u.End
		}
	}

	if len(stored) == 0 {
		p.discard(sess.ID)
		if lastErr != nil {
			return Result{}, fmt.Errorf("translate: %w", lastErr)
		}
		return Result{}, ErrNoSpeech
	}

	if err := p.deps.Store.UpdateDuration(ctx, sess.ID, duration); err != nil {
		log.Errorw("update duration failed", "error", err)
	}

	if cfg.Polish {
		progress(Polishing)
		res.Warnings = append(res.Warnings, p.polish(ctx, sess.ID, stored, routes, &res)...)
	}

	saved, segments, err := p.deps.Store.GetSessionWithSegments(ctx, sess.ID)
	if err != nil {
		return Result{}, fmt.Errorf("load session: %w", err)
	}
	res.Session = saved
	res.Segments = segments
	log.Infow("upload processed", "segments", len(segments), "duration", duration)
	return res, nil
}

// polish uses the single-segment path for one-segment uploads and a
// manual batch run otherwise. Failures leave the instant translations.
func (p *Pipeline) polish(ctx context.Context, sessionID string, segs []store.Segment, routes []session.Routing, res *Result) []string {
	if !p.deps.Translator.CanPolish() {
		return []string{"polishing skipped: no LLM configured"}
	}

	if len(segs) == 1 {
		seg, r := segs[0], routes[0]
		text, err := p.deps.Translator.Polish(ctx, seg.OriginalText, *seg.RawTranslation, r.Source, r.Target)
		if err != nil {
			p.log.Warnw("single segment polish failed", "session", sessionID, "error", err)
			return []string{fmt.Sprintf("polish failed: %v", err)}
		}
		if text == "" {
			text = *seg.RawTranslation
		}
		if err := p.deps.Store.UpdateSegmentPolished(ctx, seg.ID, text); err != nil {
			return []string{fmt.Sprintf("polished segment not saved: %v", err)}
		}
		return nil
	}

	if p.deps.Polisher == nil {
		return []string{"polishing skipped: no coordinator"}
	}
	pr := p.deps.Polisher.Polish(ctx, sessionID, polish.Manual)
	res.Polish = &pr
	switch pr.Status {
	case polish.StatusBusy:
		return []string{"polishing skipped: session busy"}
	case polish.StatusError:
		return append(pr.Warnings, fmt.Sprintf("polish failed: %v", pr.Err))
	}
	return pr.Warnings
}

// discard removes a half-built session.
func (p *Pipeline) discard(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.deps.Store.DeleteSession(ctx, sessionID); err != nil {
		p.log.Warnw("discard session failed", "session", sessionID, "error", err)
		return
	}
	p.deps.Metrics.SessionDeleted()
}
