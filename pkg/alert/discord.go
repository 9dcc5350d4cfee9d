package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// discordBlue is the embed accent color.
const discordBlue = 0x1E90FF

// Discord sends notifications via Discord webhook.
type Discord struct {
	client     *http.Client
	webhookURL string
}

// NewDiscord creates a new Discord notifier.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{client: newClient(), webhookURL: webhookURL}
}

func (d *Discord) Name() string { return "discord" }

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
	Footer      struct {
		Text string `json:"text"`
	} `json:"footer"`
}

func (d *Discord) Send(ctx context.Context, n *Notification) error {
	var sb strings.Builder
	sb.WriteString(n.Summary)
	for i, p := range n.Highlights {
		if i == 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("\n• ")
		if p.URL != nil {
			fmt.Fprintf(&sb, "[%s](%s)", highlightLabel(p), *p.URL)
		} else {
			sb.WriteString(highlightLabel(p))
		}
		fmt.Fprintf(&sb, " [%s]", p.Platform)
	}

	embed := discordEmbed{
		Title:       "🌊 " + n.Title,
		Description: strings.TrimSpace(sb.String()),
		Color:       discordBlue,
		Timestamp:   n.GeneratedAt.UTC().Format(time.RFC3339),
	}
	embed.Footer.Text = fmt.Sprintf("%d posts", n.NumPosts)

	body, err := json.Marshal(struct {
		Embeds []discordEmbed `json:"embeds"`
	}{[]discordEmbed{embed}})
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}
	return deliver(ctx, d.client, d.webhookURL, body, nil)
}
