package translation

import (
	"context"
	"errors"
	"strings"

	"github.com/leonardotrapani/hyprlingo/internal/llm"
	"github.com/leonardotrapani/hyprlingo/internal/logging"
	"github.com/leonardotrapani/hyprlingo/internal/metrics"
	"go.uber.org/zap"
)

// ErrPolishDisabled is returned by the polish paths when no LLM is configured
var ErrPolishDisabled = errors.New("polish translator not configured")

// Options configures a Dispatcher
type Options struct {
	InstantProvider string // provider name used in errors
	LLMProvider     string
	CacheSize       int
	Keywords        []string // glossary passed to LLM prompts
	Logger          *zap.SugaredLogger
	Metrics         *metrics.Metrics
}

// Dispatcher fronts the instant and LLM translators with one text-in,
// text-out contract. It never retries; callers decide.
type Dispatcher struct {
	instant     Instant
	polisher    llm.Adapter
	cache       *Cache
	keywords    []string
	instantName string
	llmProvider string
	log         *zap.SugaredLogger
	metrics     *metrics.Metrics
}

// NewDispatcher creates a dispatcher. polisher may be nil when polishing is off.
func NewDispatcher(instant Instant, polisher llm.Adapter, opts Options) *Dispatcher {
	return &Dispatcher{
		instant:     instant,
		polisher:    polisher,
		cache:       NewCache(opts.CacheSize),
		keywords:    opts.Keywords,
		instantName: opts.InstantProvider,
		llmProvider: opts.LLMProvider,
		log:         logging.OrNop(opts.Logger).Named("translation"),
		metrics:     opts.Metrics,
	}
}

// CanPolish reports whether an LLM translator is configured.
func (d *Dispatcher) CanPolish() bool {
	return d.polisher != nil
}

// Instant translates text with the low-latency provider. Empty or
// whitespace-only input returns "" without a provider call; repeated
// phrases are served from the cache.
func (d *Dispatcher) Instant(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if cached, ok := d.cache.Get(sourceLang, targetLang, text); ok {
		d.metrics.CacheHit()
		d.metrics.Translation("cache")
		return cached, nil
	}

	out, err := d.instant.Translate(ctx, text, sourceLang, targetLang)
	if err != nil {
		d.metrics.Translation("error")
		d.log.Warnw("instant translation failed", "source", sourceLang, "target", targetLang, "kind", KindOf(err), "error", err)
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		d.metrics.Translation("error")
		d.log.Warnw("instant translation came back empty", "source", sourceLang, "target", targetLang)
		return "", EmptyResult(d.instantName)
	}

	d.cache.Put(sourceLang, targetLang, text, out)
	d.metrics.Translation("ok")
	return out, nil
}

// Polish translates one segment with the LLM. draft is the instant
// translation when known and may be empty.
func (d *Dispatcher) Polish(ctx context.Context, text, draft, sourceLang, targetLang string) (string, error) {
	if d.polisher == nil {
		return "", ErrPolishDisabled
	}
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	system := llm.BuildPolishSystemPrompt(sourceLang, targetLang, d.keywords)
	out, err := d.polisher.Complete(ctx, system, llm.BuildPolishUserPrompt(text, draft))
	if err != nil {
		return "", classifyLLMError(d.llmProvider, err)
	}
	return strings.TrimSpace(out), nil
}

// PolishBatch sends all texts in one marker-delimited request and returns the
// raw reply; llm.ParseBatchResponse extracts the segments.
func (d *Dispatcher) PolishBatch(ctx context.Context, texts []string, sourceLang, targetLang string) (string, error) {
	if d.polisher == nil {
		return "", ErrPolishDisabled
	}
	if len(texts) == 0 {
		return "", nil
	}

	system := llm.BuildBatchSystemPrompt(sourceLang, targetLang, len(texts), d.keywords)
	out, err := d.polisher.Complete(ctx, system, llm.BuildBatchUserPrompt(texts))
	if err != nil {
		return "", classifyLLMError(d.llmProvider, err)
	}
	return out, nil
}
