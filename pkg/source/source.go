package source

import (
	"context"

	"github.com/elonfeng/hazardradar/pkg/post"
)

// Source is the common identity of every adapter.
type Source interface {
	// Name is the label stored on every post from this adapter.
	Name() string
	Platform() post.Platform
}

// Collector is a source whose records arrive as one collection per fetch,
// such as a forum search or a channel scrape.
type Collector interface {
	Source
	Collect(ctx context.Context) ([]post.RawRecord, error)
}

// Streamer is a source whose records arrive nested under other fetches,
// such as comments per video. Stream calls yield once per record and stops
// at the first error yield returns.
type Streamer interface {
	Source
	Stream(ctx context.Context, yield func(post.RawRecord) error) error
}

// Drain collects every record of a Streamer into a slice.
func Drain(ctx context.Context, s Streamer) ([]post.RawRecord, error) {
	var out []post.RawRecord
	err := s.Stream(ctx, func(r post.RawRecord) error {
		out = append(out, r)
		return nil
	})
	return out, err
}

// Fetch returns every record from src, which must be a Collector or a Streamer.
func Fetch(ctx context.Context, src Source) ([]post.RawRecord, error) {
	switch s := src.(type) {
	case Collector:
		return s.Collect(ctx)
	case Streamer:
		return Drain(ctx, s)
	default:
		return nil, nil
	}
}
