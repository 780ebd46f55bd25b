package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/solicitation-tracker/constants"
	"github.com/joseph-ayodele/solicitation-tracker/internal/common"
)

// Outcome is what came back from one oracle round trip.
type Outcome struct {
	Raw           []byte   // located (and possibly sanitized) JSON
	Validated     bool     // Raw satisfies the request schema
	ValidationErr error    // set when Validated is false
	Sanitized     []string // paths touched by the lenient pass
}

// StructuredExtractor wraps an Oracle with JSON location, lenient repair
// and schema validation.
type StructuredExtractor struct {
	oracle  Oracle
	lenient bool
	logger  *slog.Logger
}

func NewStructuredExtractor(oracle Oracle, lenient bool, logger *slog.Logger) *StructuredExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &StructuredExtractor{oracle: oracle, lenient: lenient, logger: logger}
}

// Extract calls the oracle and validates its reply. Transport failures and
// replies without JSON return an OracleFailure error. A schema mismatch is
// not an error: it comes back as an unvalidated Outcome.
func (s *StructuredExtractor) Extract(ctx context.Context, req Request) (Outcome, error) {
	start := time.Now()
	reply, err := s.oracle.Complete(ctx, req)
	if err != nil {
		s.logger.Error("llm.extract.oracle_error", "schema", req.SchemaName, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return Outcome{}, common.OracleFailure("oracle call failed", err)
	}

	raw, err := LocateJSON(reply)
	if err != nil {
		s.logger.Error("llm.extract.no_json", "schema", req.SchemaName, "reply_len", len(reply))
		return Outcome{}, common.OracleFailure("oracle reply held no json", err)
	}
	if req.Schema == nil {
		return Outcome{Raw: raw, Validated: true}, nil
	}

	vErr := ValidateJSONAgainstSchema(req.SchemaName, req.Schema, raw)
	if vErr == nil {
		s.logger.Debug("llm.extract.ok", "schema", req.SchemaName, "elapsed_ms", time.Since(start).Milliseconds())
		return Outcome{Raw: raw, Validated: true}, nil
	}

	if s.lenient {
		cleaned, changed, sErr := SanitizeAgainstSchema(req.Schema, raw)
		if sErr == nil {
			if err := ValidateJSONAgainstSchema(req.SchemaName, req.Schema, cleaned); err == nil {
				s.logger.Warn("llm.extract.lenient_sanitize_applied", "schema", req.SchemaName, "changed", changed)
				return Outcome{Raw: cleaned, Validated: true, Sanitized: changed}, nil
			}
		}
	}

	s.logger.Warn("llm.extract.schema_validation_failed", "schema", req.SchemaName, "error", vErr)
	return Outcome{
		Raw:           raw,
		ValidationErr: common.SchemaValidationFailure(req.SchemaName, vErr),
	}, nil
}

// ExtractSection runs a section request and decodes the reply into its
// payload type. When the reply fails its schema the payload is an
// UnparsedPayload and err wraps ErrSchemaValidation.
func (s *StructuredExtractor) ExtractSection(ctx context.Context, key constants.SectionKey, req Request) (SectionPayload, error) {
	out, err := s.Extract(ctx, req)
	if err != nil {
		return nil, err
	}
	if !out.Validated {
		return UnparsedPayload{Section: key, Raw: out.Raw, Reason: out.ValidationErr.Error()}, out.ValidationErr
	}
	p, err := Decode(key, out.Raw)
	if err != nil {
		sErr := common.SchemaValidationFailure(string(key), err)
		return UnparsedPayload{Section: key, Raw: out.Raw, Reason: err.Error()}, sErr
	}
	return p, nil
}

// IsSchemaFailure reports whether err came from a schema mismatch.
func IsSchemaFailure(err error) bool {
	return errors.Is(err, common.ErrSchemaValidation)
}
