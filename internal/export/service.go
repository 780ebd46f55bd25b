package export

import (
	"log/slog"
	"time"
)

// ComplianceRow is one line of a compliance matrix.
type ComplianceRow struct {
	ID          string
	Section     string
	Kind        string
	Requirement string
	Source      string
	Page        int
}

// Service produces XLSX bytes for exports.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ComplianceMatrixXLSX renders requirement rows as a compliance matrix with
// blank response columns for the proposal team to fill in.
func (s *Service) ComplianceMatrixXLSX(proposalID string, rows []ComplianceRow) ([]byte, error) {
	start := time.Now()

	sheet := Sheet{
		Name: "Compliance Matrix",
		Headers: []string{
			"ID",
			"Section",
			"Type",
			"Requirement",
			"Source Document",
			"Page",
			"Proposal Volume",
			"Response / Location",
			"Status",
		},
		Widths: []float64{12, 12, 10, 80, 32, 8, 18, 32, 12},
	}
	for _, r := range rows {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		var page any = ""
		if r.Page > 0 {
			page = r.Page
		}
		sheet.Rows = append(sheet.Rows, []any{
			id,
			r.Section,
			r.Kind,
			truncate(r.Requirement, 32000),
			r.Source,
			page,
			"",
			"",
			"Open",
		})
	}

	b, err := WorkbookXLSX(sheet)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"proposal_id", proposalID,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b, nil
}
