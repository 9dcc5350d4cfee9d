package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const summaryPrompt = `You summarize social media posts about coastal and ocean hazards (cyclones, floods, tsunamis, storm surges, high waves) for disaster-response coordinators.

Write a neutral summary of the posts below in %d to %d words. Mention the hazards and places that come up most often. Do not invent facts that are not in the posts. Do not use lists or headings.

Posts:
%s

Return ONLY the summary text.`

// LLM summarizes text with a hosted chat model.
type LLM struct {
	client   *http.Client
	provider string // "openai" or "anthropic"
	model    string
	apiKey   string
	baseURL  string
}

// NewLLM creates a new LLM summarizer.
func NewLLM(provider, model, apiKey, baseURL string) *LLM {
	if model == "" {
		switch provider {
		case "anthropic":
			model = "claude-sonnet-4-20250514"
		default:
			model = "gpt-4o-mini"
		}
	}
	return &LLM{
		client:   &http.Client{Timeout: 60 * time.Second},
		provider: provider,
		model:    model,
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Summarize sends one chunk to the model. Deterministic requests use
// temperature 0.
func (l *LLM) Summarize(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", nil
	}

	minLen, maxLen := req.MinLength, req.MaxLength
	if maxLen <= 0 {
		maxLen = 60
	}
	if minLen < 0 || minLen > maxLen {
		minLen = 0
	}
	prompt := fmt.Sprintf(summaryPrompt, minLen, maxLen, req.Text)

	// Rough words-to-tokens budget with headroom.
	maxTokens := maxLen*2 + 32

	temperature := 0.3
	if req.Deterministic {
		temperature = 0
	}

	var (
		out string
		err error
	)
	switch l.provider {
	case "anthropic":
		out, err = l.callAnthropic(ctx, prompt, maxTokens, temperature)
	default:
		out, err = l.callOpenAI(ctx, prompt, maxTokens, temperature)
	}
	if err != nil {
		return "", err
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("llm returned an empty summary")
	}
	return out, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

// postJSON sends payload to url and decodes a 200 response into out.
func (l *LLM) postJSON(ctx context.Context, url string, header http.Header, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", l.provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", l.provider, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", l.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("%s status %d: %v", l.provider, resp.StatusCode, errResp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", l.provider, err)
	}
	return nil
}

func (l *LLM) endpoint(def, path string) string {
	if l.baseURL != "" {
		return l.baseURL + path
	}
	return def + path
}

func (l *LLM) callOpenAI(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+l.apiKey)

	var result struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	err := l.postJSON(ctx, l.endpoint("https://api.openai.com", "/v1/chat/completions"), header, chatRequest{
		Model:       l.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}, &result)
	if err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", errors.New("openai: no choices returned")
	}
	return result.Choices[0].Message.Content, nil
}

func (l *LLM) callAnthropic(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	header := http.Header{}
	header.Set("x-api-key", l.apiKey)
	header.Set("anthropic-version", "2023-06-01")

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	err := l.postJSON(ctx, l.endpoint("https://api.anthropic.com", "/v1/messages"), header, chatRequest{
		Model:       l.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}, &result)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, c := range result.Content {
		sb.WriteString(c.Text)
	}
	if sb.Len() == 0 {
		return "", errors.New("anthropic: no content returned")
	}
	return sb.String(), nil
}
