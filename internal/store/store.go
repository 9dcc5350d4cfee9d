package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/elonfeng/hazardradar/pkg/post"
)

// ErrIncompletePost is returned for a post missing a field every stored
// post must carry.
var ErrIncompletePost = errors.New("post is missing required fields")

// PostListOpts controls post listing.
type PostListOpts struct {
	Platform   post.Platform
	HazardType string
	Location   string
	Since      time.Time
	// MatchedOnly drops posts whose tags came from the random fallback.
	MatchedOnly bool
	Limit       int
}

// Store is the persistence interface.
type Store interface {
	InsertPost(ctx context.Context, p *post.Post) error
	InsertPosts(ctx context.Context, posts []post.Post) error
	GetPost(ctx context.Context, id string) (*post.Post, error)
	ListPosts(ctx context.Context, opts PostListOpts) ([]post.Post, error)
	CountPostsByPlatform(ctx context.Context) (map[post.Platform]int, error)

	InsertDigest(ctx context.Context, d *post.SummaryDigest) error
	ListDigests(ctx context.Context, limit int) ([]post.SummaryDigest, error)

	Ping(ctx context.Context) error
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// timeLayout is fixed width UTC, so stored timestamps compare as text in
// chronological order.
const timeLayout = "2006-01-02 15:04:05.000000000"

func dbTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

const insertPost = `
	INSERT INTO posts (id, platform, external_id, content, author, url, occurred_at, meta,
		hazard_type, hazard_matched, location, location_matched, source, ingested_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// postArgs validates p and returns the insertPost arguments for it.
func postArgs(p *post.Post) ([]any, error) {
	if p.ID == "" || p.OccurredAt.IsZero() || p.HazardType == "" || p.Location == "" {
		return nil, fmt.Errorf("post %q: %w", p.ID, ErrIncompletePost)
	}
	meta := p.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode meta for post %s: %w", p.ID, err)
	}
	return []any{
		p.ID, p.Platform, p.ExternalID, p.Content, p.Author, p.URL,
		dbTime(p.OccurredAt), string(b),
		p.HazardType, p.HazardMatched, p.Location, p.LocationMatched, p.Source,
		dbTime(p.IngestedAt),
	}, nil
}

func (s *SQLiteStore) InsertPost(ctx context.Context, p *post.Post) error {
	args, err := postArgs(p)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, insertPost, args...); err != nil {
		return fmt.Errorf("insert post %s: %w", p.ID, err)
	}
	return nil
}

// InsertPosts stores posts in one transaction. An empty slice is a no-op.
func (s *SQLiteStore) InsertPosts(ctx context.Context, posts []post.Post) error {
	if len(posts) == 0 {
		return nil
	}

	rows := make([][]any, len(posts))
	for i := range posts {
		args, err := postArgs(&posts[i])
		if err != nil {
			return err
		}
		rows[i] = args
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert posts: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, insertPost)
	if err != nil {
		return fmt.Errorf("prepare insert posts: %w", err)
	}
	defer stmt.Close()

	for i, args := range rows {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert post %s: %w", posts[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert posts: %w", err)
	}
	return nil
}

func decodeMeta(p *post.Post) {
	p.Meta = map[string]any{}
	if p.MetaJSON != "" {
		_ = json.Unmarshal([]byte(p.MetaJSON), &p.Meta)
	}
}

func (s *SQLiteStore) GetPost(ctx context.Context, id string) (*post.Post, error) {
	var p post.Post
	if err := s.db.GetContext(ctx, &p, "SELECT * FROM posts WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	decodeMeta(&p)
	return &p, nil
}

func (s *SQLiteStore) ListPosts(ctx context.Context, opts PostListOpts) ([]post.Post, error) {
	query := "SELECT * FROM posts WHERE 1=1"
	var args []any

	if opts.Platform != "" {
		query += " AND platform = ?"
		args = append(args, opts.Platform)
	}
	if opts.HazardType != "" {
		query += " AND hazard_type = ? COLLATE NOCASE"
		args = append(args, opts.HazardType)
	}
	if opts.Location != "" {
		query += " AND location = ? COLLATE NOCASE"
		args = append(args, opts.Location)
	}
	if !opts.Since.IsZero() {
		query += " AND occurred_at >= ?"
		args = append(args, dbTime(opts.Since))
	}
	if opts.MatchedOnly {
		query += " AND hazard_matched = 1 AND location_matched = 1"
	}

	query += " ORDER BY occurred_at DESC, ingested_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	var posts []post.Post
	if err := s.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	for i := range posts {
		decodeMeta(&posts[i])
	}
	return posts, nil
}

func (s *SQLiteStore) CountPostsByPlatform(ctx context.Context) (map[post.Platform]int, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT platform, COUNT(*) as cnt FROM posts GROUP BY platform")
	if err != nil {
		return nil, fmt.Errorf("count posts by platform: %w", err)
	}
	defer rows.Close()

	counts := make(map[post.Platform]int)
	for rows.Next() {
		var platform string
		var cnt int
		if err := rows.Scan(&platform, &cnt); err != nil {
			return nil, err
		}
		counts[post.Platform(platform)] = cnt
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) InsertDigest(ctx context.Context, d *post.SummaryDigest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO digests (id, summary_text, generated_at, num_posts)
		VALUES (?, ?, ?, ?)
	`, d.ID, d.SummaryText, dbTime(d.GeneratedAt), d.NumPosts)
	if err != nil {
		return fmt.Errorf("insert digest %s: %w", d.ID, err)
	}
	return nil
}

// ListDigests returns the newest digests first.
func (s *SQLiteStore) ListDigests(ctx context.Context, limit int) ([]post.SummaryDigest, error) {
	if limit <= 0 {
		limit = 20
	}
	var digests []post.SummaryDigest
	err := s.db.SelectContext(ctx, &digests,
		"SELECT * FROM digests ORDER BY generated_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list digests: %w", err)
	}
	return digests, nil
}
