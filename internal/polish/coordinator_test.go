package polish

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprlingo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	texts          []string
	source, target string
}

// fakeTranslator answers with "P:<text>" for every segment not listed in drop.
type fakeTranslator struct {
	mu    sync.Mutex
	calls []call
	drop  map[int]bool
	err   error
	block chan struct{} // when set, PolishBatch waits on it
}

func (f *fakeTranslator) PolishBatch(ctx context.Context, texts []string, source, target string) (string, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.calls = append(f.calls, call{texts: texts, source: source, target: target})
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	var b strings.Builder
	for i, t := range texts {
		if f.drop[i] {
			continue
		}
		fmt.Fprintf(&b, "[SEGMENT_%d]\nP:%s\n[END_SEGMENT_%d]\n\n", i+1, t, i+1)
	}
	return b.String(), nil
}

func (f *fakeTranslator) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func newStore(t *testing.T) *store.SQLite {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "polish.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *store.SQLite, sess *store.Session, n int) []string {
	t.Helper()
	ctx := context.Background()
	if sess.ID == "" {
		require.NoError(t, s.CreateSession(ctx, sess))
	}
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		raw := fmt.Sprintf("raw-%d", i)
		seg := &store.Segment{
			SessionID:      sess.ID,
			Start:          float64(i),
			End:            float64(i) + 0.5,
			OriginalText:   fmt.Sprintf("text-%d", i),
			RawTranslation: &raw,
		}
		require.NoError(t, s.CreateSegment(ctx, seg))
		ids[i] = seg.ID
	}
	return ids
}

func oneWay() *store.Session {
	return &store.Session{Mode: store.ModeOneWay, InputLanguage: "nl", OutputLanguage: "en"}
}

func TestPolishMutualExclusion(t *testing.T) {
	s := newStore(t)
	sess := oneWay()
	seed(t, s, sess, 3)

	tr := &fakeTranslator{block: make(chan struct{})}
	c := NewCoordinator(s, tr, Options{})

	const n = 8
	results := make(chan Result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- c.Polish(context.Background(), sess.ID, Manual)
		}()
	}

	// let every caller reach the coordinator before releasing the one that got in
	require.Eventually(t, func() bool { return len(results) == n-1 }, 2*time.Second, 5*time.Millisecond)
	close(tr.block)
	wg.Wait()
	close(results)

	var ok, busy int
	for r := range results {
		switch r.Status {
		case StatusOK:
			ok++
			assert.Equal(t, 3, r.PolishedCount)
		case StatusBusy:
			busy++
		default:
			t.Fatalf("unexpected status %s: %v", r.Status, r.Err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, busy)
	assert.Len(t, tr.Calls(), 1)
	assert.False(t, c.IsPolishing(sess.ID))

	got, err := s.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.False(t, got.PolishingLocked)
	assert.Equal(t, store.PolishIdle, got.PolishingStatus)
}

func TestPolishBusyWhenStoreLockHeldElsewhere(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	sess := oneWay()
	seed(t, s, sess, 2)

	// another process holds the lock
	ok, err := s.TryLockPolishing(ctx, sess.ID)
	require.NoError(t, err)
	require.True(t, ok)

	tr := &fakeTranslator{}
	c := NewCoordinator(s, tr, Options{})
	res := c.Polish(ctx, sess.ID, Manual)

	assert.Equal(t, StatusBusy, res.Status)
	assert.Empty(t, tr.Calls())

	// the foreign lock is untouched
	got, _ := s.GetSession(ctx, sess.ID)
	assert.True(t, got.PolishingLocked)
}

type failingLockStore struct {
	*store.SQLite
}

func (failingLockStore) TryLockPolishing(ctx context.Context, id string) (bool, error) {
	return false, errors.New("database is locked")
}

func TestPolishLockErrorIsBusy(t *testing.T) {
	s := newStore(t)
	sess := oneWay()
	seed(t, s, sess, 1)

	tr := &fakeTranslator{}
	c := NewCoordinator(failingLockStore{s}, tr, Options{})
	res := c.Polish(context.Background(), sess.ID, Manual)
	assert.Equal(t, StatusBusy, res.Status)
	assert.Empty(t, tr.Calls())
}

func TestAutomaticWaitsForMinBatch(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	sess := oneWay()
	seed(t, s, sess, 4)

	tr := &fakeTranslator{}
	c := NewCoordinator(s, tr, Options{})

	res := c.Polish(ctx, sess.ID, Automatic)
	assert.Equal(t, StatusOK, res.Status)
	assert.Zero(t, res.BatchSize)
	assert.Equal(t, 0, res.PolishedCount)
	assert.Empty(t, tr.Calls())

	got, _ := s.GetSession(ctx, sess.ID)
	assert.False(t, got.PolishingLocked)
	assert.Equal(t, store.PolishIdle, got.PolishingStatus)

	// fifth segment arrives
	raw := "raw-4"
	require.NoError(t, s.CreateSegment(ctx, &store.Segment{SessionID: sess.ID, Start: 4, End: 4.5, OriginalText: "text-4", RawTranslation: &raw}))

	res = c.Polish(ctx, sess.ID, Automatic)
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 5, res.BatchSize)
	assert.Equal(t, 5, res.PolishedCount)
	require.Len(t, tr.Calls(), 1)
	assert.Len(t, tr.Calls()[0].texts, 5)

	_, segs, err := s.GetSessionWithSegments(ctx, sess.ID)
	require.NoError(t, err)
	for i, seg := range segs {
		require.NotNil(t, seg.PolishedTranslation)
		assert.Equal(t, fmt.Sprintf("P:text-%d", i), *seg.PolishedTranslation)
	}

	got, _ = s.GetSession(ctx, sess.ID)
	assert.Equal(t, 5, got.LastPolishedIndex)
	assert.NotNil(t, got.LastPolishedAt)

	// nothing left: next run is a no-op
	res = c.Polish(ctx, sess.ID, Manual)
	assert.Equal(t, 0, res.PolishedCount)
	assert.Len(t, tr.Calls(), 1)

	// the index counts every polished segment of the session, not just the last run
	for i := 5; i < 7; i++ {
		raw := fmt.Sprintf("raw-%d", i)
		require.NoError(t, s.CreateSegment(ctx, &store.Segment{SessionID: sess.ID, Start: float64(i), End: float64(i) + 0.5, OriginalText: fmt.Sprintf("text-%d", i), RawTranslation: &raw}))
	}
	res = c.Polish(ctx, sess.ID, Manual)
	assert.Equal(t, 2, res.PolishedCount)
	got, _ = s.GetSession(ctx, sess.ID)
	assert.Equal(t, 7, got.LastPolishedIndex)
}

func TestManualPolishesSmallBacklog(t *testing.T) {
	s := newStore(t)
	sess := oneWay()
	seed(t, s, sess, 1)

	tr := &fakeTranslator{}
	c := NewCoordinator(s, tr, Options{MinBatchSize: 5})

	var startedWith int
	res := c.PolishWithHooks(context.Background(), sess.ID, Manual, Hooks{OnStart: func(_ string, n int) { startedWith = n }})
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 1, res.PolishedCount)
	assert.Equal(t, 1, startedWith)
	calls := tr.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "nl", calls[0].source)
	assert.Equal(t, "en", calls[0].target)
}

func TestPolishFallsBackPerSegment(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	sess := oneWay()
	ids := seed(t, s, sess, 3)

	tr := &fakeTranslator{drop: map[int]bool{1: true}}
	c := NewCoordinator(s, tr, Options{})

	res := c.Polish(ctx, sess.ID, Manual)
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 3, res.PolishedCount)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], ids[1])

	require.Len(t, res.Segments, 3)
	assert.True(t, res.Segments[1].Fallback)
	assert.Equal(t, "raw-1", res.Segments[1].Text)
	assert.Equal(t, "P:text-2", res.Segments[2].Text)

	_, segs, _ := s.GetSessionWithSegments(ctx, sess.ID)
	assert.Equal(t, "raw-1", *segs[1].PolishedTranslation)
}

func TestPolishSkipsBlankRawTranslation(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	sess := oneWay()
	ids := seed(t, s, sess, 1)

	blank := ""
	require.NoError(t, s.CreateSegment(ctx, &store.Segment{
		SessionID:      sess.ID,
		Start:          5,
		End:            6,
		OriginalText:   "uh",
		RawTranslation: &blank,
	}))

	tr := &fakeTranslator{}
	c := NewCoordinator(s, tr, Options{MinBatchSize: 1})

	res := c.Polish(ctx, sess.ID, Manual)
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 1, res.PolishedCount)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Segments, 1)
	assert.Equal(t, ids[0], res.Segments[0].ID)

	// nothing left: later runs, manual or automatic, never reach the LLM
	for _, trig := range []Trigger{Manual, Automatic, Manual} {
		res = c.Polish(ctx, sess.ID, trig)
		assert.Equal(t, StatusOK, res.Status)
		assert.Zero(t, res.PolishedCount)
	}
	calls := tr.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"text-0"}, calls[0].texts)
}

func TestPolishTwoWayPartitionsByDirection(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	sess := &store.Session{Mode: store.ModeTwoWay, LanguageA: "nl", LanguageB: "fr"}
	require.NoError(t, s.CreateSession(ctx, sess))

	dirs := []store.Direction{store.DirectionAToB, store.DirectionBToA, store.DirectionAToB, store.DirectionBToA, store.DirectionAToB}
	for i, d := range dirs {
		raw := fmt.Sprintf("raw-%d", i)
		require.NoError(t, s.CreateSegment(ctx, &store.Segment{
			SessionID: sess.ID, Start: float64(i), OriginalText: fmt.Sprintf("text-%d", i),
			RawTranslation: &raw, Direction: d,
		}))
	}

	tr := &fakeTranslator{}
	c := NewCoordinator(s, tr, Options{})
	res := c.Polish(ctx, sess.ID, Automatic)
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 5, res.PolishedCount)

	calls := tr.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, call{texts: []string{"text-0", "text-2", "text-4"}, source: "nl", target: "fr"}, calls[0])
	assert.Equal(t, call{texts: []string{"text-1", "text-3"}, source: "fr", target: "nl"}, calls[1])

	_, segs, _ := s.GetSessionWithSegments(ctx, sess.ID)
	for i, seg := range segs {
		assert.Equal(t, fmt.Sprintf("P:text-%d", i), *seg.PolishedTranslation)
	}
}

func TestPolishErrorReleasesLock(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	sess := oneWay()
	ids := seed(t, s, sess, 2)

	tr := &fakeTranslator{err: errors.New("upstream 500")}
	c := NewCoordinator(s, tr, Options{})

	res := c.Polish(ctx, sess.ID, Manual)
	assert.Equal(t, StatusError, res.Status)
	assert.ErrorContains(t, res.Err, "upstream 500")

	got, _ := s.GetSession(ctx, sess.ID)
	assert.False(t, got.PolishingLocked)
	assert.Equal(t, store.PolishError, got.PolishingStatus)

	// segments are still in the backlog and a later run succeeds
	tr.err = nil
	res = c.Polish(ctx, sess.ID, Manual)
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, len(ids), res.PolishedCount)
	got, _ = s.GetSession(ctx, sess.ID)
	assert.Equal(t, store.PolishIdle, got.PolishingStatus)
}

func TestPolishMissingSession(t *testing.T) {
	c := NewCoordinator(newStore(t), &fakeTranslator{}, Options{})
	res := c.Polish(context.Background(), "nope", Manual)
	assert.Equal(t, StatusBusy, res.Status)
}

func TestPolishIgnoresCallerCancellation(t *testing.T) {
	s := newStore(t)
	sess := oneWay()
	seed(t, s, sess, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewCoordinator(s, &fakeTranslator{}, Options{}).Polish(ctx, sess.ID, Manual)
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 2, res.PolishedCount)
}

func TestBackgroundPolishing(t *testing.T) {
	s := newStore(t)
	sess := oneWay()
	seed(t, s, sess, 5)

	tr := &fakeTranslator{}
	c := NewCoordinator(s, tr, Options{})

	var polished atomic.Int64
	var runs atomic.Int64
	c.StartBackground(sess.ID, 10*time.Millisecond, Hooks{OnResult: func(r Result) {
		runs.Add(1)
		polished.Add(int64(r.PolishedCount))
	}})
	assert.Equal(t, 1, c.BackgroundCount())

	require.Eventually(t, func() bool { return polished.Load() == 5 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	c.StopBackground(sess.ID)
	c.StopBackground(sess.ID)
	assert.Equal(t, 0, c.BackgroundCount())
	assert.Len(t, tr.Calls(), 1)

	c.Shutdown()
}

func TestStartBackgroundReplacesTimer(t *testing.T) {
	c := NewCoordinator(newStore(t), &fakeTranslator{}, Options{})
	c.StartBackground("a", time.Hour, Hooks{})
	c.StartBackground("a", time.Hour, Hooks{})
	c.StartBackground("b", time.Hour, Hooks{})
	c.StartBackground("c", 0, Hooks{})
	assert.Equal(t, 2, c.BackgroundCount())

	c.Shutdown()
	assert.Equal(t, 0, c.BackgroundCount())
}
