package claude

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/heartmarshall/macrolog-backend/internal/config"
	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

// ToolName is the tool the model is forced to call with the day's meals.
const ToolName = "record_day"

const stopReasonRefusal = "refusal"

// Provider calls the Anthropic Messages API and returns the input of the
// forced record_day tool call as raw JSON.
type Provider struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	log       *slog.Logger
}

// NewProvider creates a Provider from the extraction config.
// The SDK's own retries are disabled: the extraction service owns retry policy.
func NewProvider(logger *slog.Logger, cfg config.ExtractionConfig) *Provider {
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, option.WithBaseURL(base))
	}

	return &Provider{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		log:       logger.With("adapter", "claude"),
	}
}

// Complete sends one extraction request.
func (p *Provider) Complete(ctx context.Context, system, user string) ([]byte, error) {
	p.log.DebugContext(ctx, "claude request",
		slog.String("model", p.model),
		slog.Int("payload_len", len(user)),
	)

	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
		Tools: []anthropic.ToolUnionParam{{OfTool: recordDayTool()}},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: ToolName},
		},
	})
	if err != nil {
		return nil, classifyAPIError(err)
	}

	if string(msg.StopReason) == stopReasonRefusal {
		return nil, domain.NewExtractionError(domain.ExtractionContentRejected,
			errors.New("claude: model refused the request"))
	}

	for _, block := range msg.Content {
		if block.Type == "tool_use" && block.Name == ToolName {
			p.log.DebugContext(ctx, "claude response",
				slog.String("stop_reason", string(msg.StopReason)),
				slog.Int64("output_tokens", msg.Usage.OutputTokens),
			)
			return []byte(block.Input), nil
		}
	}

	return nil, domain.NewExtractionError(domain.ExtractionSchemaInvalid,
		fmt.Errorf("claude: no %s tool call in response (stop_reason %s)", ToolName, msg.StopReason))
}

// classifyAPIError maps HTTP status errors to extraction kinds. Transport
// errors are returned unchanged for the extraction service to classify.
func classifyAPIError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("claude: %w", err)
	}

	wrapped := fmt.Errorf("claude: status %d: %w", apiErr.StatusCode, err)
	switch {
	case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
		return domain.NewExtractionError(domain.ExtractionAuth, wrapped)
	case apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500:
		return domain.NewExtractionError(domain.ExtractionUnavailable, wrapped)
	case apiErr.StatusCode == http.StatusRequestTimeout:
		return domain.NewExtractionError(domain.ExtractionTimeout, wrapped)
	default:
		return domain.NewExtractionError(domain.ExtractionUpstream, wrapped)
	}
}
