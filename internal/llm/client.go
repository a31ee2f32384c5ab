// Package llm wraps the text-generation API used to draft report sections.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// Purpose tells the stub and the logs what a completion is for.
type Purpose string

const (
	PurposeSection Purpose = "section"
	PurposeRepair  Purpose = "repair"
	PurposeOneLine Purpose = "one_liner"
)

// Request is one completion call. A nil Temperature uses the client
// default; zero is sent as zero.
type Request struct {
	System      string
	Prompt      string
	Temperature *float64
	MaxTokens   int
	Section     string
	Purpose     Purpose
}

// Temp returns a pointer for Request.Temperature.
func Temp(v float64) *float64 {
	return &v
}

// Client produces free text for a prompt. Implementations attempt each call
// exactly once.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrEmptyCompletion is returned when the API answers without content.
var ErrEmptyCompletion = errors.New("empty completion")

// Options configures the OpenAI client.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAIClient calls the chat completions endpoint.
type OpenAIClient struct {
	client openai.Client
	opts   Options
	logger *slog.Logger
}

// NewOpenAIClient builds a client with retries disabled and a per-call timeout.
func NewOpenAIClient(opts Options, logger *slog.Logger) *OpenAIClient {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	if opts.Model == "" {
		opts.Model = "gpt-4o"
	}
	logger.Info("llm: OpenAI client configured", "model", opts.Model, "timeout", opts.Timeout)
	return &OpenAIClient{client: openai.NewClient(reqOpts...), opts: opts, logger: logger}
}

// Complete sends one system+user exchange. An unset temperature or a zero
// token limit in req falls back to the client defaults.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	temp := c.opts.Temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.opts.MaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.opts.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(temp),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to complete %s/%s: %w", req.Section, req.Purpose, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	c.logger.Debug("llm: completion succeeded",
		"section", req.Section,
		"purpose", req.Purpose,
		"chars", len(content),
		"duration", time.Since(start),
	)
	return content, nil
}
