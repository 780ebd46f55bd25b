package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/solicitation-tracker/internal/llm"
)

var _ llm.Oracle = (*Client)(nil)

type chatCompletion struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete implements llm.Oracle over chat/completions. When the request
// carries a schema the model is put in JSON mode.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	start := time.Now()

	messages := make([]map[string]any, 0, 2)
	if req.System != "" {
		messages = append(messages, map[string]any{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]any{"role": "user", "content": req.Prompt})

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages":    messages,
	}
	if req.Schema != nil {
		body["response_format"] = map[string]any{"type": "json_object"}
	}

	c.logger.Info("llm.complete.start",
		"model", c.cfg.Model,
		"schema", req.SchemaName,
		"prompt_len", len(req.Prompt),
	)

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.complete.http_error",
			"status", status, "error", err, "body", truncate(string(raw), 512),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("openai request: %w", err)
	}

	var cc chatCompletion
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.complete.decode_error", "error", err, "raw_bytes", len(raw))
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.complete.no_choices", "raw", truncate(string(raw), 512))
		return "", errors.New("no choices in openai response")
	}

	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	c.logger.Info("llm.complete.ok",
		"schema", req.SchemaName,
		"finish_reason", cc.Choices[0].FinishReason,
		"prompt_tokens", cc.Usage.PromptTokens,
		"completion_tokens", cc.Usage.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
