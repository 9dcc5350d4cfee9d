package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/elonfeng/hazardradar/pkg/post"
)

// YouTubeConfig selects the video search and how many comments to read.
type YouTubeConfig struct {
	APIKey           string
	Query            string
	MaxVideos        int
	CommentsPerVideo int
	// Endpoint overrides the API base URL.
	Endpoint string
}

// YouTube streams top-level comments of the videos matching a search.
type YouTube struct {
	cfg    YouTubeConfig
	fetch  *Fetcher
	logger *slog.Logger
}

// NewYouTube creates a comment streamer.
func NewYouTube(cfg YouTubeConfig, fetch *Fetcher, logger *slog.Logger) *YouTube {
	if cfg.MaxVideos <= 0 {
		cfg.MaxVideos = 2
	}
	if cfg.CommentsPerVideo <= 0 {
		cfg.CommentsPerVideo = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &YouTube{cfg: cfg, fetch: fetch, logger: logger}
}

func (y *YouTube) Name() string            { return string(post.PlatformYouTube) }
func (y *YouTube) Platform() post.Platform { return post.PlatformYouTube }

func (y *YouTube) service(ctx context.Context) (*youtube.Service, error) {
	opts := []option.ClientOption{option.WithAPIKey(y.cfg.APIKey)}
	if y.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(y.cfg.Endpoint))
	}
	return youtube.NewService(ctx, opts...)
}

// Stream searches videos and yields each video's comments as they are read.
// Videos whose comments cannot be listed (for example with comments
// disabled) are logged and skipped.
func (y *YouTube) Stream(ctx context.Context, yield func(post.RawRecord) error) error {
	if y.cfg.APIKey == "" {
		return fmt.Errorf("youtube: API key required (set YOUTUBE_API_KEY)")
	}
	if y.cfg.Query == "" {
		return fmt.Errorf("youtube: no search query configured")
	}

	svc, err := y.service(ctx)
	if err != nil {
		return fmt.Errorf("create youtube service: %w", err)
	}

	if err := y.fetch.Wait(ctx); err != nil {
		return err
	}
	search, err := svc.Search.List([]string{"snippet"}).
		Q(y.cfg.Query).
		Type("video").
		MaxResults(int64(y.cfg.MaxVideos)).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("youtube search %q: %w", y.cfg.Query, err)
	}

	for _, item := range search.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		title := ""
		if item.Snippet != nil {
			title = item.Snippet.Title
		}

		if err := y.streamComments(ctx, svc, item.Id.VideoId, title, yield); err != nil {
			var gerr *googleapi.Error
			if errors.As(err, &gerr) && gerr.Code != http.StatusTooManyRequests {
				y.logger.Warn("youtube comments unavailable", "video_id", item.Id.VideoId, "error", err)
				continue
			}
			return err
		}
	}
	return nil
}

func (y *YouTube) streamComments(ctx context.Context, svc *youtube.Service, videoID, title string, yield func(post.RawRecord) error) error {
	if err := y.fetch.Wait(ctx); err != nil {
		return err
	}
	threads, err := svc.CommentThreads.List([]string{"snippet"}).
		VideoId(videoID).
		MaxResults(int64(y.cfg.CommentsPerVideo)).
		TextFormat("plainText").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("list comments %s: %w", videoID, err)
	}

	for _, th := range threads.Items {
		if th.Snippet == nil || th.Snippet.TopLevelComment == nil || th.Snippet.TopLevelComment.Snippet == nil {
			continue
		}
		c := th.Snippet.TopLevelComment
		rec := post.RawRecord{
			"commentId":         c.Id,
			"textOriginal":      c.Snippet.TextOriginal,
			"textDisplay":       c.Snippet.TextDisplay,
			"authorDisplayName": c.Snippet.AuthorDisplayName,
			"publishedAt":       c.Snippet.PublishedAt,
			"likeCount":         c.Snippet.LikeCount,
			"videoId":           videoID,
			"videoTitle":        title,
			"meta":              map[string]any{"videoId": videoID, "videoTitle": title},
		}
		if err := yield(rec); err != nil {
			return err
		}
	}
	return nil
}
