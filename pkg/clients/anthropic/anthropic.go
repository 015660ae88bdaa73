package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-haiku-20240307"

	apiVersion       = "2023-06-01"
	messagesPath     = "/v1/messages"
	defaultMaxTokens = 1024
)

// ErrEmptyResponse is returned when the API answers without any text block.
var ErrEmptyResponse = errors.New("empty response from ai")

// Config configures the Messages API client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Image is an inline image sent with a user message.
type Image struct {
	MediaType string
	// Data is the base64 payload without any data: URL prefix.
	Data string
}

// Message is one conversation turn.
type Message struct {
	Role  string
	Text  string
	Image *Image
}

// Request is a single completion call.
type Request struct {
	System    string
	Messages  []Message
	MaxTokens int
}

// Client talks to the Anthropic Messages API.
type Client struct {
	httpClient *resty.Client
	model      string
	logger     *zap.Logger
}

// NewClient creates a configured Anthropic client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("anthropic-version", apiVersion).
		SetHeader("content-type", "application/json").
		SetTimeout(cfg.Timeout)

	return &Client{httpClient: client, model: cfg.Model, logger: logger}
}

type messageRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the request and returns the concatenated text of the reply.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body := messageRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  make([]apiMessage, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, toAPIMessage(m))
	}

	var respBody messageResponse
	var errBody errorResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&respBody).
		SetError(&errBody).
		Post(messagesPath)
	if err != nil {
		return "", fmt.Errorf("anthropic api call: %w", err)
	}
	if resp.IsError() {
		c.logger.Warn("anthropic api error",
			zap.Int("status", resp.StatusCode()),
			zap.String("type", errBody.Error.Type))
		return "", fmt.Errorf("anthropic api error: status %d: %s", resp.StatusCode(), errBody.Error.Message)
	}

	var sb strings.Builder
	for _, block := range respBody.Content {
		if block.Type == "text" || block.Type == "" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func toAPIMessage(m Message) apiMessage {
	out := apiMessage{Role: m.Role}
	if m.Image != nil {
		mediaType, data := splitDataURL(m.Image.MediaType, m.Image.Data)
		out.Content = append(out.Content, contentBlock{
			Type:   "image",
			Source: &imageSource{Type: "base64", MediaType: mediaType, Data: data},
		})
	}
	if m.Text != "" || m.Image == nil {
		out.Content = append(out.Content, contentBlock{Type: "text", Text: m.Text})
	}
	return out
}

// splitDataURL accepts either a raw base64 payload or a data: URL.
func splitDataURL(mediaType, data string) (string, string) {
	if rest, ok := strings.CutPrefix(data, "data:"); ok {
		if header, payload, found := strings.Cut(rest, ","); found {
			data = payload
			if mt, _, _ := strings.Cut(header, ";"); mt != "" {
				mediaType = mt
			}
		}
	}
	if mediaType == "" {
		mediaType = "image/jpeg"
	}
	return mediaType, data
}
