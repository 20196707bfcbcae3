// Package llm wraps an OpenAI-compatible chat completion provider behind a
// small service interface. The orchestration core treats the provider as a
// black-box text completer; everything provider-specific lives here.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// Service is the LLM text-completion interface consumed by the orchestrator.
type Service interface {
	// Chat performs a synchronous completion and returns the content.
	Chat(ctx context.Context, messages []Message) (string, error)

	// ChatStream performs a streaming completion. The content channel is
	// closed when the stream ends; a single error (if any) arrives on the
	// error channel.
	ChatStream(ctx context.Context, messages []Message) (<-chan string, <-chan error)
}

// Config represents LLM service configuration.
type Config struct {
	Provider    string // openai, gemini-compat, ollama, or any OpenAI-compatible endpoint
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.7
	Timeout     int     // request timeout in seconds (default: 60)

	// RequestsPerMinute bounds outbound request rate. Zero disables limiting.
	RequestsPerMinute int
}

type service struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	limiter     *rate.Limiter
}

// NewService creates a new LLM Service.
func NewService(cfg *Config) (Service, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm: model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient()

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute)
	}

	return &service{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		timeout:     time.Duration(timeout) * time.Second,
		limiter:     limiter,
	}, nil
}

func (s *service) Chat(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("llm: rate limit wait: %w", err)
		}
	}

	startTime := time.Now()

	req := openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		Messages:    convertMessages(messages),
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("llm: chat request failed", "error", err)
		return "", fmt.Errorf("llm chat failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from LLM")
	}

	content := resp.Choices[0].Message.Content
	if IsSoftFailure(content) {
		slog.Warn("llm: soft failure in response body", "content_preview", preview(content, 120))
		return "", fmt.Errorf("llm soft failure: %s", preview(content, 120))
	}

	slog.Debug("llm: chat response received",
		"content_length", len(content),
		"total_tokens", resp.Usage.TotalTokens,
		"duration_ms", time.Since(startTime).Milliseconds())

	return content, nil
}

func (s *service) ChatStream(ctx context.Context, messages []Message) (<-chan string, <-chan error) {
	contentChan := make(chan string, 10)
	errChan := make(chan error, 1)

	go func() {
		defer close(contentChan)
		defer close(errChan)

		ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				errChan <- fmt.Errorf("llm: rate limit wait: %w", err)
				return
			}
		}

		req := openai.ChatCompletionRequest{
			Model:       s.model,
			MaxTokens:   s.maxTokens,
			Temperature: s.temperature,
			Messages:    convertMessages(messages),
		}

		stream, err := s.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			select {
			case errChan <- fmt.Errorf("create stream failed: %w", err):
			case <-ctx.Done():
			}
			return
		}
		defer func() { _ = stream.Close() }()

		for {
			response, err := stream.Recv()
			if err != nil {
				if strings.Contains(err.Error(), "EOF") {
					return
				}
				select {
				case errChan <- fmt.Errorf("stream recv failed: %w", err):
				case <-ctx.Done():
				}
				return
			}

			if len(response.Choices) == 0 {
				continue
			}

			delta := response.Choices[0].Delta.Content
			if delta != "" {
				select {
				case contentChan <- delta:
				case <-ctx.Done():
					return
				}
			}

			if response.Choices[0].FinishReason != "" {
				return
			}
		}
	}()

	return contentChan, errChan
}

// softFailurePhrases are provider-side operational problems that arrive as a
// nominally successful text response rather than an error. The upstream
// provider embeds these in the body when the account is throttled.
var softFailurePhrases = []string{
	"quota exceeded",
	"rate limit",
	"free_tier_requests",
	"resource has been exhausted",
}

// IsSoftFailure reports whether a successful-looking response body actually
// signals a provider-side failure.
func IsSoftFailure(content string) bool {
	if content == "" {
		return false
	}
	lower := strings.ToLower(content)
	// Only treat short responses as soft failures; a long advisory answer
	// legitimately mentioning "rate limit" should not be discarded.
	if len(lower) > 400 {
		return false
	}
	for _, phrase := range softFailurePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	converted := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := m.Role
		switch role {
		case "system", "user", "assistant":
		default:
			role = openai.ChatMessageRoleUser
		}
		converted[i] = openai.ChatCompletionMessage{Role: role, Content: m.Content}
	}
	return converted
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// SystemPrompt creates a system message.
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}
