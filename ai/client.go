package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"datachat/cache"
	"datachat/logger"
)

const (
	DefaultBaseURL     = "https://api.cohere.com"
	DefaultChatModel   = "command-a-03-2025"
	DefaultVisionModel = "c4ai-aya-vision-32b"
)

// RetryPolicy is a fixed-delay retry: Attempts calls in total, Delay between them.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Delay: time.Second}

type Options struct {
	APIKey             string
	BaseURL            string
	ChatModel          string
	VisionModel        string
	HTTPTimeout        time.Duration
	MinRequestInterval time.Duration
	Retry              RetryPolicy
	Cache              *cache.Cache
	Logger             logger.Logger
	HTTPClient         *http.Client
}

// Client talks to the Cohere v2 chat endpoint.
type Client struct {
	apiKey      string
	baseURL     string
	chatModel   string
	visionModel string
	httpClient  *http.Client
	cache       *cache.Cache
	log         logger.Logger
	retry       RetryPolicy

	requestMutex       sync.Mutex
	lastRequestTime    time.Time
	minRequestInterval time.Duration
}

type ChatMessage struct {
	Role string `json:"role"`
	// Content is either a string or a []ContentPart.
	Content interface{} `json:"content"`
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

func ImagePart(dataURI string) ContentPart {
	return ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: dataURI}}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

type chatResponse struct {
	ID           string `json:"id"`
	FinishReason string `json:"finish_reason"`
	Message      struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.ChatModel == "" {
		opts.ChatModel = DefaultChatModel
	}
	if opts.VisionModel == "" {
		opts.VisionModel = DefaultVisionModel
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 120 * time.Second
	}
	if opts.Retry.Attempts <= 0 {
		opts.Retry = DefaultRetryPolicy
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.HTTPTimeout}
	}
	return &Client{
		apiKey:             opts.APIKey,
		baseURL:            strings.TrimRight(opts.BaseURL, "/"),
		chatModel:          opts.ChatModel,
		visionModel:        opts.VisionModel,
		httpClient:         httpClient,
		cache:              opts.Cache,
		log:                opts.Logger,
		retry:              opts.Retry,
		minRequestInterval: opts.MinRequestInterval,
	}
}

func (c *Client) ChatModel() string   { return c.chatModel }
func (c *Client) VisionModel() string { return c.visionModel }

// HasDefaultKey reports whether a server-side key is configured.
func (c *Client) HasDefaultKey() bool { return c.apiKey != "" }

// resolveKey prefers the per-request key over the configured one.
func (c *Client) resolveKey(apiKey string) (string, error) {
	if k := strings.TrimSpace(apiKey); k != "" {
		return k, nil
	}
	if c.apiKey != "" {
		return c.apiKey, nil
	}
	return "", ErrMissingAPIKey
}

// waitTurn spaces outbound requests by minRequestInterval. The slot is
// reserved under the lock and the wait happens outside it.
func (c *Client) waitTurn(ctx context.Context) error {
	if c.minRequestInterval <= 0 {
		return nil
	}
	c.requestMutex.Lock()
	now := time.Now()
	next := c.lastRequestTime.Add(c.minRequestInterval)
	if next.Before(now) {
		next = now
	}
	c.lastRequestTime = next
	c.requestMutex.Unlock()

	return sleepCtx(ctx, time.Until(next))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Chat performs one call to the chat endpoint and returns the first text
// part of the reply.
func (c *Client) Chat(ctx context.Context, apiKey, model string, messages []ChatMessage) (string, error) {
	key, err := c.resolveKey(apiKey)
	if err != nil {
		return "", err
	}
	return c.chat(ctx, key, model, messages)
}

func (c *Client) chat(ctx context.Context, key, model string, messages []ChatMessage) (string, error) {
	payload, err := json.Marshal(chatRequest{Model: model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	if err := c.waitTurn(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	c.log.Debug("AI", "chat call finished", map[string]interface{}{
		"model":       model,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classifyError(resp, body)
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	for _, part := range out.Message.Content {
		if part.Type == "" || part.Type == "text" {
			return part.Text, nil
		}
	}
	return "", ErrEmptyResponse
}

func classifyError(resp *http.Response, body []byte) error {
	var raw struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &raw)
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: raw.Message, RequestID: raw.ID}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
		if len(apiErr.Message) > 512 {
			apiErr.Message = apiErr.Message[:512]
		}
	}
	if apiErr.RequestID == "" {
		apiErr.RequestID = resp.Header.Get("X-Request-Id")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{APIError: apiErr}
	case resp.StatusCode == http.StatusTooManyRequests:
		rl := &RateLimitError{APIError: apiErr}
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil {
				rl.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return rl
	case resp.StatusCode >= 500:
		return &ServerError{APIError: apiErr}
	case resp.StatusCode >= 400:
		return &BadRequestError{APIError: apiErr}
	}
	return apiErr
}

// withRetry runs fn up to c.retry.Attempts times with a fixed delay, stopping
// early on permanent errors or cancellation.
func (c *Client) withRetry(ctx context.Context, op string, fn func(attempt int) error) error {
	var err error
	for attempt := 1; attempt <= c.retry.Attempts; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		if IsPermanent(err) || ctx.Err() != nil {
			return err
		}
		if attempt == c.retry.Attempts {
			break
		}
		c.log.Warn("AI", "attempt failed, retrying", map[string]interface{}{
			"op":      op,
			"attempt": attempt,
			"error":   err.Error(),
		})
		delay := c.retry.Delay
		var rl *RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > delay {
			delay = rl.RetryAfter
		}
		if serr := sleepCtx(ctx, delay); serr != nil {
			return serr
		}
	}
	return err
}
