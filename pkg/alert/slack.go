package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elonfeng/hazardradar/pkg/post"
)

// Slack sends notifications via Slack incoming webhook.
type Slack struct {
	client     *http.Client
	webhookURL string
}

// NewSlack creates a new Slack notifier.
func NewSlack(webhookURL string) *Slack {
	return &Slack{client: newClient(), webhookURL: webhookURL}
}

func (s *Slack) Name() string { return "slack" }

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

func (s *Slack) Send(ctx context.Context, n *Notification) error {
	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: "🌊 " + n.Title}},
		{Type: "section", Text: &slackText{
			Type: "mrkdwn",
			Text: fmt.Sprintf("*Posts:* %d | *Generated:* %s\n%s",
				n.NumPosts, n.GeneratedAt.UTC().Format(time.RFC1123), n.Summary),
		}},
	}
	if len(n.Highlights) > 0 {
		ctxBlock := slackBlock{Type: "context"}
		for _, p := range n.Highlights {
			ctxBlock.Elements = append(ctxBlock.Elements, slackText{Type: "mrkdwn", Text: slackLink(p)})
		}
		blocks = append(blocks, ctxBlock)
	}

	body, err := json.Marshal(struct {
		Blocks []slackBlock `json:"blocks"`
	}{blocks})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}
	return deliver(ctx, s.client, s.webhookURL, body, nil)
}

func slackLink(p post.Post) string {
	if p.URL == nil {
		return fmt.Sprintf("%s [%s]", highlightLabel(p), p.Platform)
	}
	return fmt.Sprintf("<%s|%s> [%s]", *p.URL, highlightLabel(p), p.Platform)
}
