package alert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/elonfeng/hazardradar/pkg/post"
)

// maxHighlights caps how many posts a notification links to.
const maxHighlights = 5

// Notification is the data sent to alert destinations.
type Notification struct {
	DigestID    string      `json:"digest_id"`
	Title       string      `json:"title"`
	Summary     string      `json:"summary"`
	NumPosts    int         `json:"num_posts"`
	GeneratedAt time.Time   `json:"generated_at"`
	Highlights  []post.Post `json:"highlights"`
}

// FromDigest builds a notification for d. Highlights are the first posts
// whose hazard and location both came from a vocabulary match.
func FromDigest(d *post.SummaryDigest, posts []post.Post) *Notification {
	n := &Notification{
		DigestID:    d.ID,
		Title:       fmt.Sprintf("Coastal hazard digest: %d posts", d.NumPosts),
		Summary:     d.SummaryText,
		NumPosts:    d.NumPosts,
		GeneratedAt: d.GeneratedAt,
	}
	for i := range posts {
		if len(n.Highlights) == maxHighlights {
			break
		}
		if posts[i].HazardMatched && posts[i].LocationMatched {
			n.Highlights = append(n.Highlights, posts[i])
		}
	}
	return n
}

// Notifier delivers alerts to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return m != nil && len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers. Every
// notifier is tried; failures are joined.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// NotifyDigest broadcasts the notification for a freshly stored digest.
func (m *Manager) NotifyDigest(ctx context.Context, d *post.SummaryDigest, posts []post.Post) error {
	if !m.HasNotifiers() || d == nil {
		return nil
	}
	return m.Broadcast(ctx, FromDigest(d, posts))
}

func highlightLabel(p post.Post) string {
	return fmt.Sprintf("%s in %s", p.HazardType, p.Location)
}

func newClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// deliver POSTs a JSON body and treats any non-2xx response as a failure.
func deliver(ctx context.Context, client *http.Client, url string, body []byte, header http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
