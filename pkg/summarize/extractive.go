package summarize

import (
	"context"
	"strings"
	"unicode"
)

// Extractive is an offline summarizer that keeps the leading sentences of
// the input. Its output depends only on the request, so it is always
// deterministic.
type Extractive struct{}

// NewExtractive creates an extractive summarizer.
func NewExtractive() *Extractive { return &Extractive{} }

// Summarize keeps whole sentences from the start of the text until adding
// the next one would exceed MaxLength words. When fewer than MinLength
// words were kept and more text remains, words are appended up to
// MaxLength. A first sentence longer than MaxLength is cut at MaxLength words.
func (e *Extractive) Summarize(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	maxLen := req.MaxLength
	if maxLen <= 0 {
		maxLen = 60
	}
	minLen := req.MinLength
	if minLen < 0 || minLen > maxLen {
		minLen = 0
	}

	words := 0
	var kept []string
	sentences := splitSentences(req.Text)
	i := 0
	for ; i < len(sentences); i++ {
		n := len(strings.Fields(sentences[i]))
		if words+n > maxLen {
			break
		}
		kept = append(kept, sentences[i])
		words += n
	}

	if words < minLen || len(kept) == 0 {
		var rest []string
		for _, s := range sentences[i:] {
			rest = append(rest, strings.Fields(s)...)
		}
		if room := maxLen - words; room < len(rest) {
			rest = rest[:room]
		}
		if len(rest) > 0 {
			kept = append(kept, strings.Join(rest, " "))
		}
	}

	return strings.Join(kept, " "), nil
}

// splitSentences breaks text at '.', '!', '?' and newlines, keeping the
// terminating punctuation and dropping empty pieces.
func splitSentences(text string) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		s := strings.Join(strings.Fields(cur.String()), " ")
		if s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		if r == '\n' {
			flush()
			continue
		}
		cur.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
				flush()
			}
		}
	}
	flush()
	return out
}
