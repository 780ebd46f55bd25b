package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/solicitation-tracker/internal/common"
)

// Requirement is one compliance obligation pulled from a solicitation document.
type Requirement struct {
	ID         string    `json:"id"`
	ProposalID string    `json:"proposal_id"`
	Section    string    `json:"section"`
	Kind       string    `json:"kind"`
	Text       string    `json:"text"`
	Source     string    `json:"source_document"`
	Page       int       `json:"page"`
	ChunkIndex int       `json:"chunk_index"`
	Method     string    `json:"method"`
	CreatedAt  time.Time `json:"created_at"`
}

type RequirementRepository interface {
	// Replace swaps every stored requirement of proposalID for reqs in one transaction.
	Replace(ctx context.Context, proposalID string, reqs []Requirement) error
	ListByProposal(ctx context.Context, proposalID string) ([]Requirement, error)
}

type requirementRepo struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewRequirementRepository(db *DB, log *slog.Logger) RequirementRepository {
	if log == nil {
		log = slog.Default()
	}
	return &requirementRepo{db: db, log: log, now: time.Now}
}

// keeps bind parameters well under the SQLite limit
const insertBatchRows = 500

var requirementColumns = []string{
	"id", "proposal_id", "section", "kind", "text",
	"source_document", "page", "chunk_index", "method", "created_at", "ordinal",
}

func (r *requirementRepo) Replace(ctx context.Context, proposalID string, reqs []Requirement) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return common.NewAppError("DB_ERROR", "begin", common.Tag(common.ErrDatabase, err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	del, args, err := r.db.sb.Delete("requirements").Where(sq.Eq{"proposal_id": proposalID}).ToSql()
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, del, args...); err != nil {
		return common.NewAppError("DB_ERROR", "clear requirements", common.Tag(common.ErrDatabase, err))
	}

	now := toMillis(r.now())
	for lo := 0; lo < len(reqs); lo += insertBatchRows {
		hi := min(lo+insertBatchRows, len(reqs))
		ins := r.db.sb.Insert("requirements").Columns(requirementColumns...)
		for i := lo; i < hi; i++ {
			q := reqs[i]
			id := q.ID
			if id == "" {
				id = uuid.NewString()
			}
			created := toMillis(q.CreatedAt)
			if created == 0 {
				created = now
			}
			ins = ins.Values(id, proposalID, q.Section, q.Kind, q.Text, q.Source, q.Page, q.ChunkIndex, q.Method, created, i)
		}
		query, args, berr := ins.ToSql()
		if berr != nil {
			err = berr
			return err
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return common.NewAppError("DB_ERROR", "insert requirements", common.Tag(common.ErrDatabase, err))
		}
	}

	if err = tx.Commit(); err != nil {
		return common.NewAppError("DB_ERROR", "commit", common.Tag(common.ErrDatabase, err))
	}
	r.log.Info("requirements replaced", "proposal_id", proposalID, "count", len(reqs))
	return nil
}

// ListByProposal returns requirements in the order they were stored.
func (r *requirementRepo) ListByProposal(ctx context.Context, proposalID string) ([]Requirement, error) {
	query, args, err := r.db.sb.Select(requirementColumns...).
		From("requirements").
		Where(sq.Eq{"proposal_id": proposalID}).
		OrderBy("ordinal").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "list requirements", common.Tag(common.ErrDatabase, err))
	}
	defer rows.Close()

	var out []Requirement
	for rows.Next() {
		var (
			q       Requirement
			created int64
		)
		if err := rows.Scan(&q.ID, &q.ProposalID, &q.Section, &q.Kind, &q.Text, &q.Source, &q.Page, &q.ChunkIndex, &q.Method, &created, new(int)); err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		q.CreatedAt = fromMillis(created)
		out = append(out, q)
	}
	return out, rows.Err()
}
