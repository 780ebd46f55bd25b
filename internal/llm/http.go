package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/solicitation-tracker/internal/common"
)

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 8 << 20

// SendJSON posts body as JSON to url with optional headers and returns the raw response body.
// It does not assume any provider; callers decide the URL and headers.
// A non-2xx status is returned as an error carrying the start of the response body.
func SendJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string, logger *slog.Logger) ([]byte, int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}

	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	log := logger.With("req_id", reqID)
	if id := common.BatchIDFromContext(ctx); id != "" {
		log = log.With("batch_id", id)
	}
	if id := common.ProposalIDFromContext(ctx); id != "" {
		log = log.With("proposal_id", id)
	}
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("encode json: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	log.Debug("llm.http.request", "url", url, "content_length", len(bs))

	resp, err := client.Do(req)
	if err != nil {
		log.Error("llm.http.send_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn("llm.http.body_close_error", "error", err)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	log.Info("llm.http.response",
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, resp.StatusCode, fmt.Errorf("non-2xx status %d: %s", resp.StatusCode, snippet(raw, 200))
	}
	return raw, resp.StatusCode, nil
}

func snippet(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
