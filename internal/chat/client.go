// Package chat fetches raw messages from the chat platform's REST API.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"marketfeed/internal/domain"
)

const (
	defaultBaseURL = "https://discord.com/api/v10"
	defaultLimit   = 50
	maxLimit       = 100
)

type Client struct {
	client  *http.Client
	baseURL string
	token   string
	tracer  trace.Tracer
}

func NewClient(tracer trace.Tracer, token string) *Client {
	return &Client{
		client:  &http.Client{Timeout: 20 * time.Second},
		baseURL: defaultBaseURL,
		token:   token,
		tracer:  tracer,
	}
}

// message mirrors the platform's wire shape; only the fields the
// extractors consume are decoded.
type message struct {
	ID     string `json:"id"`
	Author struct {
		Username string `json:"username"`
	} `json:"author"`
	Content string `json:"content"`
	Embeds  []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		Fields      []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"fields"`
		Image struct {
			URL string `json:"url"`
		} `json:"image"`
	} `json:"embeds"`
	Attachments []struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
	} `json:"attachments"`
	Timestamp time.Time `json:"timestamp"`
}

// FetchMessages returns the most recent messages of one channel, newest
// first, as the API delivers them.
func (c *Client) FetchMessages(ctx context.Context, channelID string, limit int) ([]domain.RawMessage, error) {
	_, span := c.tracer.Start(ctx, "chat.fetch-messages")
	defer span.End()

	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return nil, fmt.Errorf("channel id is required")
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	base := strings.TrimRight(c.baseURL, "/")
	u := fmt.Sprintf("%s/channels/%s/messages?limit=%d", base, url.PathEscape(channelID), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bot "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch channel %s: %w", channelID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("chat API error %d: %s", resp.StatusCode, string(body))
	}

	var payload []message
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode channel %s messages: %w", channelID, err)
	}

	out := make([]domain.RawMessage, 0, len(payload))
	for _, m := range payload {
		out = append(out, toRawMessage(m))
	}
	return out, nil
}

func toRawMessage(m message) domain.RawMessage {
	raw := domain.RawMessage{
		ID:        m.ID,
		Author:    m.Author.Username,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	for _, e := range m.Embeds {
		embed := domain.Embed{
			Title:       e.Title,
			Description: e.Description,
			URL:         e.URL,
			ImageURL:    e.Image.URL,
		}
		for _, f := range e.Fields {
			embed.Fields = append(embed.Fields, domain.EmbedField{Name: f.Name, Value: f.Value})
		}
		raw.Embeds = append(raw.Embeds, embed)
	}
	for _, a := range m.Attachments {
		raw.Attachments = append(raw.Attachments, domain.Attachment{URL: a.URL, ContentType: a.ContentType})
	}
	return raw
}
