package language

// Detection is the outcome of a two-way language vote over one transcript.
type Detection struct {
	Dominant   string  // primary subtag of the language spoken most
	Other      string  // the counterpart language, i.e. the translation target
	Confidence float64 // share of recognised words in Dominant, 0 when none matched
}

// Detect picks which of the two configured languages a final transcript was
// spoken in, by majority vote over its per-word language tags. Tags matching
// neither language are ignored. Ties and transcripts without any recognised
// tag resolve to languageA.
func Detect(tags []string, languageA, languageB string) Detection {
	a := Primary(languageA)
	b := Primary(languageB)

	var countA, countB int
	for _, tag := range tags {
		switch Primary(tag) {
		case "":
		case a:
			countA++
		case b:
			countB++
		}
	}

	total := countA + countB
	if total == 0 {
		return Detection{Dominant: a, Other: b}
	}
	if countB > countA {
		return Detection{Dominant: b, Other: a, Confidence: float64(countB) / float64(total)}
	}
	return Detection{Dominant: a, Other: b, Confidence: float64(countA) / float64(total)}
}
