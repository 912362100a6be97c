package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

const (
	// DefaultAnthropicModel is the default model to use
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
	// DefaultAnthropicMaxTokens bounds answers when the request sets no limit
	DefaultAnthropicMaxTokens = 1024

	// ErrNoTextInResponse is returned when the message has no text block
	ErrNoTextInResponse = "no text content in response"
)

// AnthropicProvider implements Provider using Anthropic's messages API
type AnthropicProvider struct {
	client    anthropic.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewAnthropicProvider creates a new Anthropic provider. An empty baseURL or model selects the defaults.
func NewAnthropicProvider(apiKey string, baseURL string, model string, logger *zap.Logger, debugMode bool) *AnthropicProvider {
	if model == "" {
		model = DefaultAnthropicModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithHTTPClient(&http.Client{Timeout: DefaultTimeout}),
		anthropicoption.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(baseURL))
	}

	return &AnthropicProvider{
		client:    anthropic.NewClient(opts...),
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// Name implements Provider
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Complete implements Provider. The messages API has no JSON mode, so JSON
// requests rely on the prompt and on lenient parsing of the answer.
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	requestID := ExtractRequestID(ctx)
	if p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("provider", p.Name()),
			zap.String("operation", req.Operation),
			zap.String("model", p.model),
			zap.Int("prompt_length", len(req.Prompt)),
			zap.String("prompt_preview", SanitizePrompt(req.Prompt, true)),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	msg, err := p.client.Messages.New(ctx, params)
	latency := time.Since(start)
	if err != nil {
		if p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("provider", p.Name()),
				zap.String("operation", req.Operation),
				zap.String("model", p.model),
				zap.Error(err),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", fmt.Errorf("failed to complete %s: %w", req.Operation, apiErr)
		}
		return "", fmt.Errorf("failed to complete %s: %w", req.Operation, err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	content := b.String()
	if content == "" {
		return "", errors.New(ErrNoTextInResponse)
	}

	if p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("provider", p.Name()),
			zap.String("operation", req.Operation),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}
	return content, nil
}

// RegisterAnthropic registers the Anthropic provider with the registry
func RegisterAnthropic(registry *ProviderRegistry) {
	registry.Register("anthropic", func(config map[string]string, logger *zap.Logger) (Provider, error) {
		apiKey, ok := config["api_key"]
		if !ok || apiKey == "" {
			return nil, fmt.Errorf("anthropic api_key is required")
		}
		return NewAnthropicProvider(apiKey, config["base_url"], config["model"], logger, config["debug"] == "true"), nil
	})
}
