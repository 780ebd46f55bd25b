package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/joseph-ayodele/solicitation-tracker/internal/common"
)

// BatchRecord is the persisted summary of one finished extraction batch.
type BatchRecord struct {
	BatchID         string
	TotalFiles      int
	Successful      int
	Failed          int
	SuccessRate     float64
	DurationSeconds float64
	StartedAt       time.Time
	CompletedAt     time.Time
	ResultJSON      []byte
}

type BatchRepository interface {
	Save(ctx context.Context, rec BatchRecord) error
	Get(ctx context.Context, batchID string) (*BatchRecord, error)
	List(ctx context.Context, limit int) ([]BatchRecord, error)
}

type batchRepo struct {
	db  *DB
	log *slog.Logger
}

func NewBatchRepository(db *DB, log *slog.Logger) BatchRepository {
	if log == nil {
		log = slog.Default()
	}
	return &batchRepo{db: db, log: log}
}

var batchColumns = []string{
	"batch_id", "total_files", "successful", "failed", "success_rate",
	"duration_seconds", "started_at", "completed_at", "result_json",
}

// Save upserts rec keyed by batch id.
func (r *batchRepo) Save(ctx context.Context, rec BatchRecord) error {
	query, args, err := r.db.sb.Insert("extraction_batches").
		Columns(batchColumns...).
		Values(
			rec.BatchID, rec.TotalFiles, rec.Successful, rec.Failed, rec.SuccessRate,
			rec.DurationSeconds, toMillis(rec.StartedAt), toMillis(rec.CompletedAt), string(rec.ResultJSON),
		).
		Suffix(`ON CONFLICT (batch_id) DO UPDATE SET
			total_files = excluded.total_files,
			successful = excluded.successful,
			failed = excluded.failed,
			success_rate = excluded.success_rate,
			duration_seconds = excluded.duration_seconds,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			result_json = excluded.result_json`).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.log.Error("batch save failed", "batch_id", rec.BatchID, "err", err)
		return common.NewAppError("DB_ERROR", "save batch "+rec.BatchID, common.Tag(common.ErrDatabase, err))
	}
	r.log.Info("batch saved", "batch_id", rec.BatchID, "successful", rec.Successful, "failed", rec.Failed)
	return nil
}

func (r *batchRepo) Get(ctx context.Context, batchID string) (*BatchRecord, error) {
	query, args, err := r.db.sb.Select(batchColumns...).
		From("extraction_batches").
		Where(sq.Eq{"batch_id": batchID}).
		ToSql()
	if err != nil {
		return nil, err
	}
	rec, err := scanBatch(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", "batch "+batchID, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "get batch "+batchID, common.Tag(common.ErrDatabase, err))
	}
	return rec, nil
}

// List returns the most recently completed batches first.
func (r *batchRepo) List(ctx context.Context, limit int) ([]BatchRecord, error) {
	b := r.db.sb.Select(batchColumns...).
		From("extraction_batches").
		OrderBy("completed_at DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "list batches", common.Tag(common.ErrDatabase, err))
	}
	defer rows.Close()

	var out []BatchRecord
	for rows.Next() {
		rec, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (*BatchRecord, error) {
	var (
		rec                BatchRecord
		started, completed int64
		result             string
	)
	err := row.Scan(
		&rec.BatchID, &rec.TotalFiles, &rec.Successful, &rec.Failed, &rec.SuccessRate,
		&rec.DurationSeconds, &started, &completed, &result,
	)
	if err != nil {
		return nil, err
	}
	rec.StartedAt = fromMillis(started)
	rec.CompletedAt = fromMillis(completed)
	rec.ResultJSON = []byte(result)
	return &rec, nil
}
