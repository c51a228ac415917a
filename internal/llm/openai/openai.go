// Package openai talks to OpenAI-compatible chat completion endpoints,
// including local servers such as Ollama or LM Studio.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"docqa/internal/domain"
)

// Client implements domain.ChatModel.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
	maxRetries  int
	backoff     time.Duration
}

type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

// NewClient builds a chat client. A missing key is accepted for local servers that need none.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      os.Getenv(cfg.APIKeyEnv),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: cfg.Timeout},
		maxRetries:  cfg.MaxRetries,
		backoff:     500 * time.Millisecond,
	}
}

func (c *Client) Name() string { return "openai:" + c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream,omitempty"`
}

func (c *Client) request(messages []domain.Message, stream bool) ([]byte, error) {
	msgs := make([]chatMessage, len(messages))
	for i, m := range messages {
		msgs[i] = chatMessage{Role: string(m.Role), Content: m.Content}
	}
	return json.Marshal(chatRequest{Model: c.model, Messages: msgs, Temperature: c.temperature, Stream: stream})
}

// Complete returns the whole assistant message.
func (c *Client) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	body, err := c.request(messages, false)
	if err != nil {
		return "", err
	}
	resp, err := c.post(ctx, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai chat: %w", domain.ErrEmptyAnswer)
	}
	return parsed.Choices[0].Message.Content, nil
}

// Stream sends a streaming request and relays content deltas until [DONE] or EOF.
// The returned channel is closed when the stream ends; a failure arrives as a final Delta with Err set.
func (c *Client) Stream(ctx context.Context, messages []domain.Message) (<-chan domain.Delta, error) {
	body, err := c.request(messages, true)
	if err != nil {
		return nil, err
	}
	resp, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}

	out := make(chan domain.Delta)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		send := func(d domain.Delta) bool {
			select {
			case out <- d:
				return true
			case <-ctx.Done():
				return false
			}
		}
		err := readSSE(resp.Body, func(text string) bool { return send(domain.Delta{Text: text}) })
		if err != nil && ctx.Err() == nil {
			send(domain.Delta{Err: fmt.Errorf("openai stream: %w", err)})
		}
	}()
	return out, nil
}

// readSSE calls emit for every non-empty content delta. emit returning false stops reading.
func readSSE(r io.Reader, emit func(string) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			return nil
		}
		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
			Error *struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			return errors.New(chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		if !emit(chunk.Choices[0].Delta.Content) {
			return nil
		}
	}
	return scanner.Err()
}

// post retries transport failures, 429 and 5xx. The caller owns the returned body.
func (c *Client) post(ctx context.Context, body []byte) (*http.Response, error) {
	url := c.baseURL + "/chat/completions"
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.delay(lastErr, attempt-1)); err != nil {
				return nil, err
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		statusErr := &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(raw)), retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			return nil, statusErr
		}
		lastErr = statusErr
	}
	return nil, fmt.Errorf("openai chat: %w", lastErr)
}

type statusError struct {
	code       int
	body       string
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("chat HTTP %d", e.code)
	}
	return fmt.Sprintf("chat HTTP %d: %s", e.code, e.body)
}

func parseRetryAfter(h string) time.Duration {
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func (c *Client) delay(err error, attempt int) time.Duration {
	var se *statusError
	if errors.As(err, &se) && se.retryAfter > 0 {
		return se.retryAfter
	}
	d := c.backoff << attempt
	if d > 8*time.Second {
		d = 8 * time.Second
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
