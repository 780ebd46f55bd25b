package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/solicitation-tracker/internal/common"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{DSN: "sqlite:" + filepath.Join(t.TempDir(), "solicit.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	require.NoError(t, db.Migrate(ctx))
	return db
}

func TestOpenSQLite(t *testing.T) {
	db := openTestDB(t)
	assert.Equal(t, DialectSQLite, db.Dialect)
	assert.NoError(t, db.HealthCheck(context.Background(), time.Second, nil))
	// idempotent
	assert.NoError(t, db.Migrate(context.Background()))
}

func TestOpenPostgresBadDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{DSN: "postgres://%zz"}, nil)
	assert.Error(t, err)
}

func TestBatchRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewBatchRepository(openTestDB(t), nil)

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := BatchRecord{
		BatchID:         "batch-1",
		TotalFiles:      10,
		Successful:      7,
		Failed:          3,
		SuccessRate:     70,
		DurationSeconds: 12.5,
		StartedAt:       started,
		CompletedAt:     started.Add(12500 * time.Millisecond),
		ResultJSON:      []byte(`{"batch_id":"batch-1"}`),
	}
	require.NoError(t, repo.Save(ctx, rec))

	got, err := repo.Get(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, rec, *got)

	rec.Successful, rec.Failed = 8, 2
	require.NoError(t, repo.Save(ctx, rec))
	got, err = repo.Get(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, 8, got.Successful)

	later := rec
	later.BatchID = "batch-2"
	later.CompletedAt = rec.CompletedAt.Add(time.Hour)
	require.NoError(t, repo.Save(ctx, later))

	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "batch-2", list[0].BatchID)

	list, err = repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = repo.Get(ctx, "missing")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestRequirementRepositoryReplace(t *testing.T) {
	ctx := context.Background()
	repo := NewRequirementRepository(openTestDB(t), nil)

	first := []Requirement{
		{Section: "section_l", Kind: "shall", Text: "The offeror shall submit three volumes.", Source: "rfp.pdf", Page: 5, Method: "llm"},
		{Section: "section_m", Kind: "will", Text: "The Government will evaluate price.", Source: "rfp.pdf", Page: 9, Method: "rules"},
	}
	require.NoError(t, repo.Replace(ctx, "p1", first))
	require.NoError(t, repo.Replace(ctx, "p2", first[:1]))

	got, err := repo.ListByProposal(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first[0].Text, got[0].Text)
	assert.Equal(t, "p1", got[0].ProposalID)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].CreatedAt.IsZero())
	assert.Equal(t, 9, got[1].Page)

	require.NoError(t, repo.Replace(ctx, "p1", first[1:]))
	got, err = repo.ListByProposal(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "section_m", got[0].Section)

	other, err := repo.ListByProposal(ctx, "p2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestRequirementRepositoryLargeSet(t *testing.T) {
	ctx := context.Background()
	repo := NewRequirementRepository(openTestDB(t), nil)

	reqs := make([]Requirement, 1203)
	for i := range reqs {
		reqs[i] = Requirement{Section: "sow", Kind: "shall", Text: fmt.Sprintf("req %d", i), Source: "sow.docx"}
	}
	require.NoError(t, repo.Replace(ctx, "big", reqs))

	got, err := repo.ListByProposal(ctx, "big")
	require.NoError(t, err)
	require.Len(t, got, len(reqs))
	assert.Equal(t, "req 0", got[0].Text)
	assert.Equal(t, "req 1202", got[len(got)-1].Text)
}
