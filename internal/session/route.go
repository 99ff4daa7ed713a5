package session

import (
	"github.com/leonardotrapani/hyprlingo/internal/language"
	"github.com/leonardotrapani/hyprlingo/internal/store"
)

// Routing is the language pair chosen for one transcript
type Routing struct {
	Source     string
	Target     string
	Detected   string          // two-way only
	Direction  store.Direction // two-way only
	Confidence *float64        // two-way only
}

// Route picks source and target for a transcript. One-way sessions use the
// configured pair; two-way sessions vote over the word language tags.
func Route(sess store.Session, tags []string) Routing {
	if sess.Mode != store.ModeTwoWay {
		src, tgt := sess.Pair("")
		return Routing{Source: src, Target: tgt}
	}

	d := language.Detect(tags, sess.LanguageA, sess.LanguageB)
	dir := store.DirectionAToB
	if d.Dominant == language.Primary(sess.LanguageB) {
		dir = store.DirectionBToA
	}
	src, tgt := sess.Pair(dir)
	confidence := d.Confidence
	return Routing{
		Source:     src,
		Target:     tgt,
		Detected:   d.Dominant,
		Direction:  dir,
		Confidence: &confidence,
	}
}
