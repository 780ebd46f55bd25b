package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/solicitation-tracker/constants"
	"github.com/joseph-ayodele/solicitation-tracker/internal/common"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/batch"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/document"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/extractor"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/metrics"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/progress"
	"github.com/joseph-ayodele/solicitation-tracker/internal/ingest"
	"github.com/joseph-ayodele/solicitation-tracker/internal/repository"
)

// BatchSubmitter accepts batches for asynchronous processing.
type BatchSubmitter interface {
	Enqueue(ctx context.Context, files []document.File, maxConcurrency int) (string, error)
}

// MatrixExporter renders the stored compliance matrix of a proposal.
type MatrixExporter interface {
	ExportMatrix(ctx context.Context, proposalID string, reqs []repository.Requirement) ([]byte, error)
}

// RequirementRunner runs the requirement pass over an extraction result.
type RequirementRunner interface {
	Extract(ctx context.Context, proposalID string, res *extractor.Result) ([]repository.Requirement, error)
}

// Deps are the collaborators behind the HTTP API. Nil members disable
// their routes' backing service (503).
type Deps struct {
	Progress  ProgressSource
	Batches   BatchSource
	Submitter BatchSubmitter
	Metrics   *metrics.Service
	Matrix    MatrixExporter
	Runner    RequirementRunner
	Ingest    ingest.Options
	Health    func(ctx context.Context) error
	Logger    *slog.Logger
}

type api struct {
	Deps
	logger *slog.Logger
}

// NewRouter builds the chi router for the status API.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &api{Deps: d, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", a.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/progress/{jobID}", a.handleProgress)
		r.Post("/batches", a.handleSubmitBatch)
		r.Get("/batches/{batchID}", a.handleBatchStatus)
		r.Get("/metrics/summary", a.handleMetricsSummary)
		r.Get("/metrics/export", a.handleMetricsExport)
		r.Post("/proposals/{proposalID}/requirements", a.handleRunRequirements)
		r.Get("/proposals/{proposalID}/matrix.xlsx", a.handleMatrix)
	})
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	if a.Health != nil {
		if err := a.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handleProgress(w http.ResponseWriter, r *http.Request) {
	if a.Progress == nil {
		writeError(w, http.StatusServiceUnavailable, "progress tracking is not enabled")
		return
	}
	id := chi.URLParam(r, "jobID")
	p, ok := a.Progress.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no progress for job %s", id))
		return
	}
	writeJSON(w, http.StatusOK, struct {
		progress.Progress
		Percent float64 `json:"percent"`
	}{p, p.Percent()})
}

func (a *api) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	if a.Batches == nil {
		writeError(w, http.StatusServiceUnavailable, "batch queue is not enabled")
		return
	}
	id := chi.URLParam(r, "batchID")
	st, ok := a.Batches.Status(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown batch %s", id))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type submitBatchRequest struct {
	Paths          []string `json:"paths"`
	MaxConcurrency int      `json:"max_concurrency"`
}

func (a *api) handleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	if a.Submitter == nil {
		writeError(w, http.StatusServiceUnavailable, "batch queue is not enabled")
		return
	}
	var req submitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v := common.NewValidator().
		Field("paths", req.Paths, common.Required).
		Field("max_concurrency", req.MaxConcurrency, common.NonNegative)
	if v.HasErrors() {
		writeError(w, http.StatusBadRequest, v.ErrorMessage())
		return
	}
	files, err := ingest.Paths(r.Context(), req.Paths, a.Ingest, a.logger)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no supported files found")
		return
	}
	id, err := a.Submitter.Enqueue(r.Context(), files, req.MaxConcurrency)
	switch {
	case errors.Is(err, batch.ErrQueueClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		a.logger.Error("batch submit failed", "error", err)
		writeError(w, http.StatusInternalServerError, "submit failed")
		return
	}
	w.Header().Set("Location", "/v1/batches/"+id)
	writeJSON(w, http.StatusAccepted, map[string]any{"batch_id": id, "files": len(files)})
}

func (a *api) handleMetricsSummary(w http.ResponseWriter, r *http.Request) {
	if a.Metrics == nil {
		writeError(w, http.StatusServiceUnavailable, "metrics are not enabled")
		return
	}
	window, err := metrics.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a.Metrics.GetSummary(window))
}

func (a *api) handleMetricsExport(w http.ResponseWriter, r *http.Request) {
	if a.Metrics == nil {
		writeError(w, http.StatusServiceUnavailable, "metrics are not enabled")
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = metrics.FormatJSON
	}
	var buf bytes.Buffer
	if err := a.Metrics.Export(&buf, format); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", metrics.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="metrics.%s"`, format))
	_, _ = w.Write(buf.Bytes())
}

func (a *api) handleMatrix(w http.ResponseWriter, r *http.Request) {
	if a.Matrix == nil {
		writeError(w, http.StatusServiceUnavailable, "requirements are not persisted")
		return
	}
	id := chi.URLParam(r, "proposalID")
	b, err := a.Matrix.ExportMatrix(r.Context(), id, nil)
	if err != nil {
		a.logger.Error("export.xlsx.failed", "proposal_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", metrics.ContentType(metrics.FormatXLSX))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-compliance-matrix.xlsx"`, id))
	_, _ = w.Write(b)
}

type runRequirementsRequest struct {
	BatchID string `json:"batch_id"`
}

// handleRunRequirements starts the requirement pass over a completed
// batch in the background; progress is polled under the proposal id.
func (a *api) handleRunRequirements(w http.ResponseWriter, r *http.Request) {
	if a.Runner == nil || a.Batches == nil {
		writeError(w, http.StatusServiceUnavailable, "requirement extraction is not enabled")
		return
	}
	proposalID := chi.URLParam(r, "proposalID")
	var req runRequirementsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BatchID == "" {
		writeError(w, http.StatusBadRequest, "batch_id is required")
		return
	}
	st, ok := a.Batches.Status(req.BatchID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown batch %s", req.BatchID))
		return
	}
	if st.State != constants.JobStatusCompleted || st.Result == nil || st.Result.Sections == nil {
		writeError(w, http.StatusConflict, fmt.Sprintf("batch %s is %s", req.BatchID, st.State))
		return
	}

	ctx := common.WithRequestID(context.WithoutCancel(r.Context()), middleware.GetReqID(r.Context()))
	go func() {
		if _, err := a.Runner.Extract(ctx, proposalID, st.Result.Sections); err != nil {
			a.logger.Error("requirements run failed", "proposal_id", proposalID, "batch_id", req.BatchID, "error", err)
		}
	}()
	w.Header().Set("Location", "/v1/progress/"+proposalID)
	writeJSON(w, http.StatusAccepted, map[string]string{"proposal_id": proposalID, "batch_id": req.BatchID})
}
