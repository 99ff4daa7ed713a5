package llm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/leonardotrapani/hyprlingo/internal/language"
)

// BuildPolishSystemPrompt generates the system prompt for translating one segment
func BuildPolishSystemPrompt(sourceLang, targetLang string, keywords []string) string {
	src, tgt := language.Name(sourceLang), language.Name(targetLang)

	prompt := fmt.Sprintf("You are a professional interpreter translating live speech from %s to %s.\n\n", src, tgt)
	prompt += "Rules:\n"
	prompt += "- Produce a natural, fluent translation a native speaker would say\n"
	prompt += "- Preserve the original meaning, tone and register\n"
	prompt += "- Fix obvious speech-to-text mistakes when the intent is clear\n"
	prompt += "- Do not add explanations, notes or quotes\n"
	prompt += fmt.Sprintf("- Output ONLY the %s translation, nothing else\n", tgt)

	return prompt + keywordsSection(keywords)
}

// BuildPolishUserPrompt generates the user prompt for one segment. A draft
// translation, when present, is offered as a starting point.
func BuildPolishUserPrompt(text, draft string) string {
	if draft == "" {
		return text
	}
	return fmt.Sprintf("Source:\n%s\n\nDraft translation (improve it):\n%s", text, draft)
}

// BuildBatchSystemPrompt generates the system prompt for a multi-segment batch
func BuildBatchSystemPrompt(sourceLang, targetLang string, count int, keywords []string) string {
	src, tgt := language.Name(sourceLang), language.Name(targetLang)

	prompt := fmt.Sprintf("You are a professional interpreter translating a live conversation from %s to %s.\n\n", src, tgt)
	prompt += fmt.Sprintf("The input contains %d consecutive segments of one conversation. ", count)
	prompt += "Each segment is wrapped in numbered markers: [SEGMENT_n] before the text and [END_SEGMENT_n] after it.\n\n"
	prompt += "Rules:\n"
	prompt += "- Translate every segment, keeping the same numbering\n"
	prompt += "- Preserve ALL markers exactly as given, one [SEGMENT_n]...[END_SEGMENT_n] pair per segment\n"
	prompt += "- Never merge, split, reorder or skip segments\n"
	prompt += "- Use consistent terminology, names and register across all segments\n"
	prompt += "- Use the surrounding segments as context, but translate each segment's own content only\n"
	prompt += "- Fix obvious speech-to-text mistakes when the intent is clear\n"
	prompt += "- Output ONLY the marked translated segments, nothing else\n"

	return prompt + keywordsSection(keywords)
}

// BuildBatchUserPrompt wraps each text in 1-based [SEGMENT_n]...[END_SEGMENT_n] markers
func BuildBatchUserPrompt(texts []string) string {
	var b strings.Builder
	for i, text := range texts {
		if i > 0 {
			b.WriteString("\n\n")
		}
		n := i + 1
		fmt.Fprintf(&b, "[SEGMENT_%d]\n%s\n[END_SEGMENT_%d]", n, text, n)
	}
	return b.String()
}

var segmentPattern = regexp.MustCompile(`(?s)\[SEGMENT_(\d+)\](.*?)\[END_SEGMENT_(\d+)\]`)

// ParseBatchResponse extracts marked segments from a batch reply.
// Keys are 0-based segment indexes; values are trimmed. Pairs whose opening
// and closing numbers differ are ignored, and the first occurrence of an index wins.
func ParseBatchResponse(reply string) map[int]string {
	out := make(map[int]string)
	for _, m := range segmentPattern.FindAllStringSubmatch(reply, -1) {
		if m[1] != m[3] {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			continue
		}
		if _, seen := out[n-1]; seen {
			continue
		}
		out[n-1] = strings.TrimSpace(m[2])
	}
	return out
}

func keywordsSection(keywords []string) string {
	if len(keywords) == 0 {
		return ""
	}
	return fmt.Sprintf("\nGlossary (keep these terms and spellings): %s\n", strings.Join(keywords, ", "))
}
