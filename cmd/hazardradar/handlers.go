package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/elonfeng/hazardradar/internal/config"
	"github.com/elonfeng/hazardradar/internal/observability"
	"github.com/elonfeng/hazardradar/internal/scheduler"
	"github.com/elonfeng/hazardradar/internal/store"
	"github.com/elonfeng/hazardradar/pkg/alert"
	"github.com/elonfeng/hazardradar/pkg/digest"
	"github.com/elonfeng/hazardradar/pkg/enrich"
	"github.com/elonfeng/hazardradar/pkg/ingest"
	"github.com/elonfeng/hazardradar/pkg/post"
	"github.com/elonfeng/hazardradar/pkg/server"
	"github.com/elonfeng/hazardradar/pkg/source"
	"github.com/elonfeng/hazardradar/pkg/summarize"
	"github.com/elonfeng/hazardradar/pkg/unify"
)

const shutdownTimeout = 10 * time.Second

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

// app holds the wired components shared by the commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	store   *store.SQLiteStore
	sources []source.Source
	cycle   *ingest.Cycle
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return wire(cfg)
}

func wire(cfg *config.Config) (*app, error) {
	logger := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	metrics := observability.NewMetrics()

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	summarizer, err := buildSummarizer(cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	sources := buildSources(cfg, logger)
	if len(sources) == 0 {
		logger.Warn("no sources enabled")
	}

	opts := []ingest.Option{}
	if mgr := buildAlertManager(cfg); mgr.HasNotifiers() {
		opts = append(opts, ingest.WithNotifier(mgr))
	}

	cycle := ingest.New(
		sources,
		unify.New(nil),
		enrich.New(enrich.NewVocabulary(cfg.Vocabulary.Hazards, cfg.Vocabulary.Locations)),
		digest.New(summarizer, digest.Options{
			MaxPosts:     cfg.Digest.MaxPosts,
			PerPostChars: cfg.Digest.PerPostChars,
			ChunkSize:    cfg.Digest.ChunkSize,
			MinLength:    cfg.Digest.MinLength,
			MaxLength:    cfg.Digest.MaxLength,
		}, nil),
		db,
		logger,
		metrics,
		opts...,
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		store:   db,
		sources: sources,
		cycle:   cycle,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func buildSummarizer(cfg *config.Config, logger *slog.Logger) (summarize.Summarizer, error) {
	s, err := summarize.New(summarize.Config{
		Provider: cfg.Summarizer.Provider,
		Model:    cfg.Summarizer.Model,
		APIKey:   cfg.Summarizer.APIKey,
		BaseURL:  cfg.Summarizer.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("build summarizer: %w", err)
	}
	if _, ok := s.(*summarize.Extractive); ok && cfg.Summarizer.Provider != "" && cfg.Summarizer.Provider != "extractive" {
		logger.Warn("summarizer has no API key, using extractive summaries", "provider", cfg.Summarizer.Provider)
	} else {
		logger.Debug("summarizer ready", "provider", cfg.Summarizer.Provider, "model", cfg.Summarizer.Model)
	}
	return s, nil
}

func keywordFilter(keywords []string) *source.KeywordFilter {
	if len(keywords) == 0 {
		return nil
	}
	return source.NewKeywordFilter(keywords, nil)
}

func buildSources(cfg *config.Config, logger *slog.Logger) []source.Source {
	fetch := source.NewFetcher(source.FetcherConfig{
		UserAgent:         cfg.Fetch.UserAgent,
		Timeout:           cfg.Fetch.ParseTimeout(),
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		Burst:             cfg.Fetch.Burst,
		MaxRetries:        cfg.Fetch.MaxRetries,
	}, logger)

	var sources []source.Source
	sc := cfg.Sources

	if sc.Reddit.Enabled {
		sources = append(sources, source.NewReddit(source.RedditConfig{
			Keywords:   sc.Reddit.Keywords,
			Subreddits: sc.Reddit.Subreddits,
			Limit:      sc.Reddit.Limit,
		}, fetch, logger))
	}
	if sc.Telegram.Enabled {
		for _, ch := range sc.Telegram.Channels {
			sources = append(sources, source.NewTelegram(source.TelegramConfig{
				Channel: ch,
				Limit:   sc.Telegram.Limit,
				Filter:  keywordFilter(sc.Telegram.Keywords),
			}, fetch, logger))
		}
	}
	if sc.YouTube.Enabled {
		sources = append(sources, source.NewYouTube(source.YouTubeConfig{
			APIKey:           sc.YouTube.APIKey,
			Query:            sc.YouTube.Query,
			MaxVideos:        sc.YouTube.MaxVideos,
			CommentsPerVideo: sc.YouTube.CommentsPerVideo,
		}, fetch, logger))
	}
	if sc.Twitter.Enabled {
		sources = append(sources, source.NewNitter(sc.Twitter.NitterURL, sc.Twitter.Accounts, source.FeedConfig{
			Filter: keywordFilter(sc.Twitter.Keywords),
		}, fetch, logger))
	}
	if sc.RSS.Enabled {
		feeds := make([]source.FeedURL, len(sc.RSS.Feeds))
		for i, f := range sc.RSS.Feeds {
			feeds[i] = source.FeedURL{Name: f.Name, URL: f.URL}
		}
		sources = append(sources, source.NewRSS(source.FeedConfig{
			Feeds:  feeds,
			Filter: keywordFilter(sc.RSS.Keywords),
		}, fetch, logger))
	}

	return sources
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

// enableSource switches on the named source so it can be previewed even
// when the config leaves it off.
func enableSource(cfg *config.Config, name string) error {
	switch post.Platform(name) {
	case post.PlatformReddit:
		cfg.Sources.Reddit.Enabled = true
	case post.PlatformTelegram:
		cfg.Sources.Telegram.Enabled = true
	case post.PlatformYouTube:
		cfg.Sources.YouTube.Enabled = true
	case post.PlatformTwitter:
		cfg.Sources.Twitter.Enabled = true
	case post.PlatformRSS:
		cfg.Sources.RSS.Enabled = true
	default:
		return fmt.Errorf("unknown source %q (want one of %s)", name, platformNames())
	}
	return nil
}

func platformNames() string {
	platforms := post.AllPlatforms()
	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runCycle(ctx context.Context, jsonOutput bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.cycle.Run(ctx)
	if jsonOutput {
		if perr := printJSON(res); perr != nil {
			return perr
		}
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tPOSTS")
	seen := make(map[string]bool)
	for _, src := range a.sources {
		if seen[src.Name()] {
			continue
		}
		seen[src.Name()] = true
		fmt.Fprintf(w, "%s\t%d\n", src.Name(), res.PostsBySource[src.Name()])
	}
	fmt.Fprintf(w, "total\t%d\n", res.Total)
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}

	if res.Digest != nil {
		fmt.Printf("\ndigest %s (%d posts):\n%s\n", res.Digest.ID, res.Digest.NumPosts, res.Digest.SummaryText)
	} else if err == nil {
		fmt.Println("\nno posts collected, no digest generated")
	}
	return err
}

func runPreview(ctx context.Context, name string, jsonOutput bool, limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if err := enableSource(cfg, name); err != nil {
		return err
	}

	a, err := wire(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var posts []post.Post
	for _, src := range a.sources {
		if src.Name() != name {
			continue
		}
		got, err := a.cycle.Preview(ctx, src)
		if err != nil {
			return err
		}
		posts = append(posts, got...)
	}
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}

	if jsonOutput {
		return printJSON(posts)
	}
	return printPosts(posts)
}

type postFilter struct {
	platform string
	hazard   string
	location string
	since    time.Duration
	matched  bool
	limit    int
}

func runPosts(ctx context.Context, f postFilter, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	opts := store.PostListOpts{
		Platform:    post.Platform(f.platform),
		HazardType:  f.hazard,
		Location:    f.location,
		MatchedOnly: f.matched,
		Limit:       f.limit,
	}
	if f.since > 0 {
		opts.Since = time.Now().Add(-f.since)
	}

	posts, err := db.ListPosts(ctx, opts)
	if err != nil {
		return fmt.Errorf("list posts: %w", err)
	}

	if jsonOutput {
		return printJSON(posts)
	}
	if len(posts) == 0 {
		fmt.Println("no posts found (try ingesting first: hazardradar cycle)")
		return nil
	}
	return printPosts(posts)
}

func printPosts(posts []post.Post) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OCCURRED\tPLATFORM\tHAZARD\tLOCATION\tCONTENT")
	for _, p := range posts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.OccurredAt.Format(time.RFC3339), p.Platform,
			tagCell(p.HazardType, p.HazardMatched),
			tagCell(p.Location, p.LocationMatched),
			snippet(p.Content, 60))
	}
	return w.Flush()
}

// tagCell marks fallback tags with a trailing "?".
func tagCell(v string, matched bool) string {
	if matched {
		return v
	}
	return v + "?"
}

func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func runDigests(ctx context.Context, limit int, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	digests, err := db.ListDigests(ctx, limit)
	if err != nil {
		return fmt.Errorf("list digests: %w", err)
	}

	if jsonOutput {
		return printJSON(digests)
	}
	if len(digests) == 0 {
		fmt.Println("no digests yet (try: hazardradar cycle)")
		return nil
	}
	for _, d := range digests {
		fmt.Printf("%s  %d posts  %s\n%s\n\n", d.GeneratedAt.Format(time.RFC3339), d.NumPosts, d.ID, d.SummaryText)
	}
	return nil
}

func (a *app) server(port int) *server.Server {
	if port == 0 {
		port = a.cfg.Server.Port
	}
	return server.New(a.store, a.cycle, a.sources, port, nil, a.logger)
}

// serveUntilDone runs srv until ctx is cancelled, then shuts it down.
func serveUntilDone(ctx context.Context, srv *server.Server) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runServe(ctx context.Context, port int) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	return serveUntilDone(ctx, a.server(port))
}

func runDaemon(ctx context.Context, port int) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := scheduler.New(a.cycle, a.cfg.Schedule.Cron, a.cfg.Schedule.RunOnStart, a.logger)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("scheduler: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return serveUntilDone(ctx, a.server(port))
	})

	err = g.Wait()
	a.logger.Info("shut down")
	return err
}
