// Package requirements pulls individual requirement statements out of
// extracted solicitation sections and files them into a compliance matrix.
package requirements

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/solicitation-tracker/constants"
	"github.com/joseph-ayodele/solicitation-tracker/internal/common"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/extractor"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/progress"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/reader"
	"github.com/joseph-ayodele/solicitation-tracker/internal/core/shredder"
	"github.com/joseph-ayodele/solicitation-tracker/internal/export"
	"github.com/joseph-ayodele/solicitation-tracker/internal/llm"
	"github.com/joseph-ayodele/solicitation-tracker/internal/repository"
)

const (
	MethodLLM   = "llm"
	MethodRules = "rules"
)

// Sections are the section keys scanned for requirements, in output order.
var Sections = []constants.SectionKey{
	constants.KeySectionL,
	constants.KeySectionM,
	constants.KeySOW,
	constants.KeyCDRL,
	constants.KeySectionH,
}

// Requirement is the record type shared with the repository.
type Requirement = repository.Requirement

type Service struct {
	oracle   *llm.StructuredExtractor
	shredder *shredder.Shredder
	tracker  *progress.Tracker
	store    repository.RequirementRepository
	exporter *export.Service
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithOracle enables the oracle pass; without it only the rule pass runs.
func WithOracle(o *llm.StructuredExtractor) Option { return func(s *Service) { s.oracle = o } }

func WithStore(r repository.RequirementRepository) Option {
	return func(s *Service) { s.store = r }
}
func WithTracker(t *progress.Tracker) Option { return func(s *Service) { s.tracker = t } }
func WithLogger(l *slog.Logger) Option       { return func(s *Service) { s.logger = l } }
func WithClock(now func() time.Time) Option  { return func(s *Service) { s.now = now } }

func NewService(sh *shredder.Shredder, opts ...Option) *Service {
	s := &Service{shredder: sh, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.shredder == nil {
		s.shredder = shredder.New(shredder.DefaultConfig(), s.logger)
	}
	if s.tracker == nil {
		s.tracker = progress.NewTracker()
	}
	s.exporter = export.NewService(s.logger)
	return s
}

// Tracker exposes the progress store so status surfaces can poll it.
func (s *Service) Tracker() *progress.Tracker { return s.tracker }

type unit struct {
	section constants.SectionKey
	source  string
	chunk   shredder.Chunk
}

type oracleReply struct {
	Requirements []struct {
		Text string `json:"text"`
		Kind string `json:"kind"`
		Page int    `json:"page"`
	} `json:"requirements"`
}

// Extract shreds the source text behind each scanned section, asks the
// oracle for requirement statements chunk by chunk and falls back to the
// rule pass for any chunk the oracle could not answer. Progress is tracked
// under proposalID. Results are persisted when a store is configured.
func (s *Service) Extract(ctx context.Context, proposalID string, res *extractor.Result) ([]Requirement, error) {
	start := s.now()
	ctx = common.WithProposalID(ctx, proposalID)
	s.tracker.Start(proposalID, 0)

	var units []unit
	for _, key := range Sections {
		for _, fr := range res.SourceFiles(key) {
			elements := reader.ElementsFromText(fr.Text, strings.Contains(fr.Text, "\f"))
			for _, c := range s.shredder.ShredElements(elements) {
				units = append(units, unit{section: key, source: fr.File.Filename, chunk: c})
			}
		}
	}
	total := len(units)
	stage := "extracting"
	s.tracker.Update(proposalID, progress.Update{Stage: &stage, Total: &total})
	s.logger.Info("requirements.start", "proposal_id", proposalID, "chunks", total)

	seen := make(map[string]bool)
	var out []Requirement
	add := func(u unit, text, kind string, page int, method string) {
		text = clean(text)
		if text == "" {
			return
		}
		k := dedupKey(string(u.section), text)
		if seen[k] {
			return
		}
		seen[k] = true
		if u.chunk.Page > 0 {
			page = u.chunk.Page
		}
		out = append(out, Requirement{
			ID:         uuid.NewString(),
			ProposalID: proposalID,
			Section:    string(u.section),
			Kind:       kind,
			Text:       text,
			Source:     u.source,
			Page:       page,
			ChunkIndex: u.chunk.Index,
			Method:     method,
			CreatedAt:  start,
		})
	}

	fallbacks := 0
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			s.tracker.Fail(proposalID, err)
			return nil, err
		}
		s.tracker.Advance(proposalID, fmt.Sprintf("%s/%s#%d", u.section, u.source, u.chunk.Index))

		reply, err := s.ask(ctx, u)
		if err != nil {
			fallbacks++
			s.logger.Warn("requirements.rules_fallback",
				"proposal_id", proposalID, "section", u.section, "chunk", u.chunk.Index, "error", err)
			for _, m := range matchRules(u.chunk.Fresh()) {
				add(u, m.Text, m.Kind, 0, MethodRules)
			}
			continue
		}
		for _, r := range reply.Requirements {
			add(u, r.Text, strings.ToLower(r.Kind), r.Page, MethodLLM)
		}
	}

	if s.store != nil {
		stage := "saving"
		s.tracker.Update(proposalID, progress.Update{Stage: &stage})
		if err := s.store.Replace(ctx, proposalID, out); err != nil {
			s.tracker.Fail(proposalID, err)
			return nil, err
		}
	}

	s.tracker.Complete(proposalID, fmt.Sprintf("%d requirements", len(out)))
	s.logger.Info("requirements.done",
		"proposal_id", proposalID,
		"requirements", len(out),
		"rule_fallbacks", fallbacks,
		"elapsed_ms", s.now().Sub(start).Milliseconds(),
	)
	return out, nil
}

func (s *Service) ask(ctx context.Context, u unit) (oracleReply, error) {
	var reply oracleReply
	if s.oracle == nil {
		return reply, common.OracleFailure("no oracle configured", nil)
	}
	outcome, err := s.oracle.Extract(ctx, llm.RequirementsRequest(u.section, u.source, u.chunk.Content))
	if err != nil {
		return reply, err
	}
	if !outcome.Validated {
		return reply, outcome.ValidationErr
	}
	if err := json.Unmarshal(outcome.Raw, &reply); err != nil {
		return reply, common.SchemaValidationFailure("requirements", err)
	}
	return reply, nil
}

// List returns the stored requirements for proposalID.
func (s *Service) List(ctx context.Context, proposalID string) ([]Requirement, error) {
	if s.store == nil {
		return nil, common.NewAppError("NO_STORE", "requirements are not persisted", common.ErrInvalidInput)
	}
	return s.store.ListByProposal(ctx, proposalID)
}

// ExportMatrix renders reqs as a compliance matrix workbook. When reqs is
// nil the stored requirements for proposalID are used.
func (s *Service) ExportMatrix(ctx context.Context, proposalID string, reqs []Requirement) ([]byte, error) {
	if reqs == nil {
		var err error
		if reqs, err = s.List(ctx, proposalID); err != nil {
			return nil, err
		}
	}
	rows := make([]export.ComplianceRow, 0, len(reqs))
	for _, r := range reqs {
		rows = append(rows, export.ComplianceRow{
			ID:          r.ID,
			Section:     r.Section,
			Kind:        r.Kind,
			Requirement: r.Text,
			Source:      r.Source,
			Page:        r.Page,
		})
	}
	return s.exporter.ComplianceMatrixXLSX(proposalID, rows)
}
