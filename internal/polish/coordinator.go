package polish

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/leonardotrapani/hyprlingo/internal/llm"
	"github.com/leonardotrapani/hyprlingo/internal/logging"
	"github.com/leonardotrapani/hyprlingo/internal/metrics"
	"github.com/leonardotrapani/hyprlingo/internal/store"
	"go.uber.org/zap"
)

// DefaultMinBatchSize is the backlog size an automatic trigger waits for
const DefaultMinBatchSize = 5

// Trigger identifies who asked for a polish run
type Trigger string

const (
	Manual    Trigger = "manual"
	Automatic Trigger = "automatic"
)

// Status is the outcome of a polish run
type Status string

const (
	StatusOK    Status = "ok"
	StatusBusy  Status = "busy"
	StatusError Status = "error"
)

// Store is the persistence the coordinator needs
type Store interface {
	GetSessionWithSegments(ctx context.Context, id string) (store.Session, []store.Segment, error)
	TryLockPolishing(ctx context.Context, id string) (bool, error)
	UnlockPolishing(ctx context.Context, id string, status store.PolishStatus) error
	UpdateSegmentPolished(ctx context.Context, segmentID, text string) error
	MarkPolished(ctx context.Context, id string, at time.Time) error
}

// Translator sends a marker-delimited batch to the LLM and returns the raw reply
type Translator interface {
	PolishBatch(ctx context.Context, texts []string, sourceLang, targetLang string) (string, error)
}

// PolishedSegment is one segment written by a run
type PolishedSegment struct {
	ID       string `json:"id"`
	Text     string `json:"polishedTranslation"`
	Fallback bool   `json:"fallback,omitempty"` // instant translation kept because the reply lacked this segment
}

// Result reports one polish run
type Result struct {
	SessionID     string
	Trigger       Trigger
	Status        Status
	BatchSize     int // segments sent to the LLM; zero when the run had nothing to do
	PolishedCount int
	Segments      []PolishedSegment
	Warnings      []string
	Err           error
}

// Hooks observe a run. OnStart fires once the lock is held and a batch will be sent.
type Hooks struct {
	OnStart  func(sessionID string, batch int)
	OnResult func(Result)
}

// Options configures a Coordinator
type Options struct {
	MinBatchSize int
	Timeout      time.Duration // upper bound for one run, 0 for none
	Logger       *zap.SugaredLogger
	Metrics      *metrics.Metrics
}

// Coordinator runs at most one batch polish per session at a time.
//
// Exclusion is two-layered: an in-memory set rejects concurrent runs in this
// process without touching the store, and the store's conditional lock
// update rejects runs held by anyone else.
type Coordinator struct {
	store        Store
	translator   Translator
	minBatchSize int
	timeout      time.Duration
	log          *zap.SugaredLogger
	metrics      *metrics.Metrics
	now          func() time.Time

	mu     sync.Mutex
	active map[string]struct{}
	timers map[string]*backgroundTimer
	wg     sync.WaitGroup
}

func NewCoordinator(st Store, tr Translator, opts Options) *Coordinator {
	minBatch := opts.MinBatchSize
	if minBatch <= 0 {
		minBatch = DefaultMinBatchSize
	}
	return &Coordinator{
		store:        st,
		translator:   tr,
		minBatchSize: minBatch,
		timeout:      opts.Timeout,
		log:          logging.OrNop(opts.Logger).Named("polish"),
		metrics:      opts.Metrics,
		now:          time.Now,
		active:       make(map[string]struct{}),
		timers:       make(map[string]*backgroundTimer),
	}
}

// IsPolishing reports whether this process is running a polish for the session.
func (c *Coordinator) IsPolishing(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[sessionID]
	return ok
}

// Polish runs one polish pass for a session.
func (c *Coordinator) Polish(ctx context.Context, sessionID string, trigger Trigger) Result {
	return c.run(ctx, sessionID, trigger, nil)
}

// PolishWithHooks is Polish with an OnStart notification; OnResult is not called.
func (c *Coordinator) PolishWithHooks(ctx context.Context, sessionID string, trigger Trigger, hooks Hooks) Result {
	return c.run(ctx, sessionID, trigger, hooks.OnStart)
}

func (c *Coordinator) run(ctx context.Context, sessionID string, trigger Trigger, onStart func(string, int)) (res Result) {
	res = Result{SessionID: sessionID, Trigger: trigger, Status: StatusOK}
	started := c.now()
	batch := 0
	defer func() {
		c.metrics.PolishRun(string(trigger), string(res.Status), batch, c.now().Sub(started))
	}()

	if !c.enter(sessionID) {
		res.Status = StatusBusy
		return res
	}
	defer c.leave(sessionID)

	// a run outlives the caller (disconnects do not cancel it)
	ctx = context.WithoutCancel(ctx)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	locked, err := c.store.TryLockPolishing(ctx, sessionID)
	if err != nil {
		c.log.Warnw("lock failed, treating as busy", "session", sessionID, "error", err)
		res.Status = StatusBusy
		return res
	}
	if !locked {
		res.Status = StatusBusy
		return res
	}

	final := store.PolishIdle
	defer func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.store.UnlockPolishing(unlockCtx, sessionID, final); err != nil {
			c.log.Warnw("unlock failed", "session", sessionID, "error", err)
		}
	}()

	sess, segments, err := c.store.GetSessionWithSegments(ctx, sessionID)
	if err != nil {
		final = store.PolishError
		res.Status = StatusError
		res.Err = fmt.Errorf("load session: %w", err)
		return res
	}

	backlog := make([]store.Segment, 0, len(segments))
	for _, seg := range segments {
		if seg.NeedsPolish() {
			backlog = append(backlog, seg)
		}
	}
	if len(backlog) == 0 {
		return res
	}
	if trigger == Automatic && len(backlog) < c.minBatchSize {
		c.log.Debugw("backlog below batch size", "session", sessionID, "backlog", len(backlog), "min", c.minBatchSize)
		return res
	}

	batch = len(backlog)
	res.BatchSize = batch
	if onStart != nil {
		onStart(sessionID, batch)
	}
	c.log.Infow("polishing", "session", sessionID, "trigger", trigger, "segments", batch)

	for _, g := range groupSegments(sess, backlog) {
		if err := c.polishGroup(ctx, g, &res); err != nil {
			res.Err = err
			res.Status = StatusError
			final = store.PolishError
		}
	}

	if err := c.store.MarkPolished(ctx, sessionID, c.now()); err != nil {
		c.log.Warnw("mark polished failed", "session", sessionID, "error", err)
	}

	c.log.Infow("polish finished", "session", sessionID, "status", res.Status, "polished", res.PolishedCount, "warnings", len(res.Warnings))
	return res
}

// polishGroup sends one direction's segments in a single call and persists the results.
func (c *Coordinator) polishGroup(ctx context.Context, g group, res *Result) error {
	texts := make([]string, len(g.segments))
	for i, seg := range g.segments {
		texts[i] = seg.OriginalText
	}

	reply, err := c.translator.PolishBatch(ctx, texts, g.source, g.target)
	if err != nil {
		c.log.Warnw("batch polish failed", "source", g.source, "target", g.target, "segments", len(texts), "error", err)
		return fmt.Errorf("polish %s->%s: %w", g.source, g.target, err)
	}

	parsed := llm.ParseBatchResponse(reply)
	for i, seg := range g.segments {
		text, ok := parsed[i]
		fallback := !ok || text == ""
		if fallback {
			text = *seg.RawTranslation
			res.Warnings = append(res.Warnings, fmt.Sprintf("segment %d (%s) missing from reply, kept instant translation", i+1, seg.ID))
		}

		if err := c.store.UpdateSegmentPolished(ctx, seg.ID, text); err != nil {
			c.log.Warnw("save polished segment failed", "segment", seg.ID, "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("segment %s not saved: %v", seg.ID, err))
			continue
		}
		res.PolishedCount++
		res.Segments = append(res.Segments, PolishedSegment{ID: seg.ID, Text: text, Fallback: fallback})
	}
	return nil
}

func (c *Coordinator) enter(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.active[sessionID]; busy {
		return false
	}
	c.active[sessionID] = struct{}{}
	return true
}

func (c *Coordinator) leave(sessionID string) {
	c.mu.Lock()
	delete(c.active, sessionID)
	c.mu.Unlock()
}

type group struct {
	source   string
	target   string
	segments []store.Segment
}

// groupSegments partitions the backlog: one group for one-way sessions, one
// per direction for two-way sessions. Order within a group is preserved.
func groupSegments(sess store.Session, backlog []store.Segment) []group {
	if sess.Mode != store.ModeTwoWay {
		src, tgt := sess.Pair("")
		return []group{{source: src, target: tgt, segments: backlog}}
	}

	var aToB, bToA []store.Segment
	for _, seg := range backlog {
		if seg.Direction == store.DirectionBToA {
			bToA = append(bToA, seg)
		} else {
			aToB = append(aToB, seg)
		}
	}

	var groups []group
	if len(aToB) > 0 {
		src, tgt := sess.Pair(store.DirectionAToB)
		groups = append(groups, group{source: src, target: tgt, segments: aToB})
	}
	if len(bToA) > 0 {
		src, tgt := sess.Pair(store.DirectionBToA)
		groups = append(groups, group{source: src, target: tgt, segments: bToA})
	}
	return groups
}
