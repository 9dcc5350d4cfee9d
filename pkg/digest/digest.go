// Package digest condenses a batch of enriched posts into one summary.
package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/elonfeng/hazardradar/pkg/post"
	"github.com/elonfeng/hazardradar/pkg/summarize"
)

// ErrEmptyBatch is returned when there are no posts to digest. Callers must
// treat it as "no digest", never as an empty summary.
var ErrEmptyBatch = errors.New("digest: empty post batch")

// Defaults for Options.
const (
	DefaultMaxPosts     = 30
	DefaultPerPostChars = 200
	DefaultMinLength    = 25
	DefaultMaxLength    = 80
)

// Options bounds the digest input and output.
type Options struct {
	MaxPosts     int // posts beyond this index do not reach the summarizer
	PerPostChars int // leading characters taken from each post
	ChunkSize    int // characters per summarizer call
	MinLength    int // per-chunk summary length bounds, in words
	MaxLength    int
}

func (o Options) withDefaults() Options {
	if o.MaxPosts <= 0 {
		o.MaxPosts = DefaultMaxPosts
	}
	if o.PerPostChars <= 0 {
		o.PerPostChars = DefaultPerPostChars
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.MaxLength <= 0 {
		o.MaxLength = DefaultMaxLength
	}
	if o.MinLength <= 0 || o.MinLength > o.MaxLength {
		o.MinLength = min(DefaultMinLength, o.MaxLength)
	}
	return o
}

// Digester builds SummaryDigests with a Summarizer.
type Digester struct {
	summarizer summarize.Summarizer
	chunker    Chunker
	opts       Options
	clock      clockwork.Clock
}

// New creates a Digester. A nil clock uses real time.
func New(s summarize.Summarizer, opts Options, clock clockwork.Clock) *Digester {
	opts = opts.withDefaults()
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Digester{
		summarizer: s,
		chunker:    NewChunker(opts.ChunkSize),
		opts:       opts,
		clock:      clock,
	}
}

// Input returns the text blob fed to the summarizer: the leading
// PerPostChars characters of each of the first MaxPosts posts, newline
// separated.
func (d *Digester) Input(posts []post.Post) string {
	if len(posts) > d.opts.MaxPosts {
		posts = posts[:d.opts.MaxPosts]
	}
	parts := make([]string, len(posts))
	for i := range posts {
		parts[i] = headRunes(posts[i].Content, d.opts.PerPostChars)
	}
	return strings.Join(parts, "\n")
}

// Chunks returns the summarizer inputs for posts, in order.
func (d *Digester) Chunks(posts []post.Post) []string {
	return d.chunker.Split(d.Input(posts))
}

// Digest summarizes posts chunk by chunk and joins the chunk summaries with
// single spaces. It returns ErrEmptyBatch for an empty batch and wraps any
// summarizer failure.
func (d *Digester) Digest(ctx context.Context, posts []post.Post) (*post.SummaryDigest, error) {
	if len(posts) == 0 {
		return nil, ErrEmptyBatch
	}

	var summaries []string
	for i, chunk := range d.Chunks(posts) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := d.summarizer.Summarize(ctx, summarize.Request{
			Text:          chunk,
			MinLength:     d.opts.MinLength,
			MaxLength:     d.opts.MaxLength,
			Deterministic: true,
		})
		if err != nil {
			return nil, fmt.Errorf("summarize chunk %d: %w", i, err)
		}
		if s = strings.TrimSpace(s); s != "" {
			summaries = append(summaries, s)
		}
	}

	text := strings.Join(summaries, " ")
	if text == "" {
		text = fmt.Sprintf("%d posts collected without summarizable text.", len(posts))
	}

	return &post.SummaryDigest{
		ID:          uuid.NewString(),
		SummaryText: text,
		GeneratedAt: d.clock.Now().UTC(),
		NumPosts:    len(posts),
	}, nil
}

func headRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
