// Package gemini adapts Gemini text generation to domain.ChatModel.
package gemini

import (
	"context"
	"fmt"
	"iter"
	"os"
	"strings"

	"google.golang.org/genai"

	"docqa/internal/domain"
)

type (
	generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	streamFunc   func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
)

// Client implements domain.ChatModel.
type Client struct {
	model       string
	temperature float32
	generate    generateFunc
	stream      streamFunc
}

type Config struct {
	APIKeyEnv   string
	Model       string
	Temperature float64
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newClient(cfg, client.Models.GenerateContent, client.Models.GenerateContentStream), nil
}

func newClient(cfg Config, gen generateFunc, stream streamFunc) *Client {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	return &Client{model: cfg.Model, temperature: float32(cfg.Temperature), generate: gen, stream: stream}
}

func (c *Client) Name() string { return "gemini:" + c.model }

// convert splits system messages into the system instruction; assistant turns use the model role.
func (c *Client) convert(messages []domain.Message) ([]*genai.Content, *genai.GenerateContentConfig) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			system = append(system, m.Content)
		case domain.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	temp := c.temperature
	config := &genai.GenerateContentConfig{Temperature: &temp}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return contents, config
}

func (c *Client) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	contents, config := c.convert(messages)
	resp, err := c.generate(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini generate: %w", domain.ErrEmptyAnswer)
	}
	return text, nil
}

// Stream relays each response chunk's text. The channel closes when the iterator ends.
func (c *Client) Stream(ctx context.Context, messages []domain.Message) (<-chan domain.Delta, error) {
	contents, config := c.convert(messages)
	seq := c.stream(ctx, c.model, contents, config)

	out := make(chan domain.Delta)
	go func() {
		defer close(out)
		for resp, err := range seq {
			var d domain.Delta
			if err != nil {
				d.Err = fmt.Errorf("gemini stream: %w", err)
			} else if d.Text = resp.Text(); d.Text == "" {
				continue
			}
			select {
			case out <- d:
			case <-ctx.Done():
				return
			}
			if d.Err != nil {
				return
			}
		}
	}()
	return out, nil
}
