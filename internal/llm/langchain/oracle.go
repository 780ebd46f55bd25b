// Package langchain provides an llm.Oracle backed by langchaingo, for
// OpenAI-compatible endpoints such as local model servers.
package langchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/joseph-ayodele/solicitation-tracker/internal/llm"
)

type Config struct {
	BaseURL     string
	Token       string // "none" for servers without auth
	Model       string
	Temperature float64
}

type Oracle struct {
	model       llms.Model
	temperature float64
	logger      *slog.Logger
}

var _ llm.Oracle = (*Oracle)(nil)

func New(cfg Config, logger *slog.Logger) (*Oracle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Token == "" {
		cfg.Token = "none"
	}
	opts := []openai.Option{openai.WithToken(cfg.Token)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("langchain openai client: %w", err)
	}
	return NewWithModel(client, cfg.Temperature, logger), nil
}

// NewWithModel wraps an existing llms.Model.
func NewWithModel(model llms.Model, temperature float64, logger *slog.Logger) *Oracle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Oracle{model: model, temperature: temperature, logger: logger.With("component", "langchain-oracle")}
}

func (o *Oracle) Complete(ctx context.Context, req llm.Request) (string, error) {
	content := make([]llms.MessageContent, 0, 2)
	if req.System != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	opts := []llms.CallOption{llms.WithTemperature(o.temperature)}
	if req.Schema != nil {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := o.model.GenerateContent(ctx, content, opts...)
	if err != nil {
		o.logger.Error("failed to generate content", "schema", req.SchemaName, "err", err)
		return "", err
	}
	if len(resp.Choices) < 1 {
		return "", errors.New("no choices returned from model")
	}
	o.logger.Debug("generated content", "schema", req.SchemaName, "len", len(resp.Choices[0].Content))
	return resp.Choices[0].Content, nil
}
