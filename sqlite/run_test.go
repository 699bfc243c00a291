package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/msolis/catfetch"
	"github.com/msolis/catfetch/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRun(t *testing.T, rawURL string) *catfetch.RunResult {
	t.Helper()
	target, err := catfetch.NewCatalogTarget(rawURL)
	require.NoError(t, err)
	started := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	return &catfetch.RunResult{
		Target: target,
		Config: &catfetch.ConfigCandidate{
			Label:    "type-0-subcategory",
			Template: &catfetch.RequestTemplate{Method: "POST", URL: "https://api.shop.example.com/api/products"},
		},
		Records: []*catfetch.ProductRecord{
			{Name: "Milk 1L", Price: "12.50", Barcode: "7401000000011", Stock: 4, Category: "Dairy"},
			{Name: "Bread", Price: "8.00", OfferPrice: "6.50", OfferDescription: "2x1"},
		},
		Status:     catfetch.RunCompleted,
		Pages:      3,
		Retries:    1,
		StartedAt:  started,
		FinishedAt: started.Add(42 * time.Second),
	}
}

func TestRunService_CreateRun(t *testing.T) {
	t.Parallel()

	t.Run("assigns id and persists records", func(t *testing.T) {
		t.Parallel()

		db := MustOpenDB(t)
		s := sqlite.NewRunService(db)
		run := testRun(t, "https://shop.example.com/catalog/9")

		err := s.CreateRun(context.Background(), run)

		require.NoError(t, err)
		require.NotEmpty(t, run.ID)

		got, err := s.FindRunByID(context.Background(), run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.Target.Key(), got.Target.Key())
		assert.Equal(t, "type-0-subcategory", got.Config.Label)
		assert.Equal(t, catfetch.RunCompleted, got.Status)
		assert.Equal(t, 3, got.Pages)
		assert.Equal(t, 1, got.Retries)
		require.Len(t, got.Records, 2)
		assert.Equal(t, "Milk 1L", got.Records[0].Name)
		assert.Equal(t, "7401000000011", got.Records[0].Barcode)
		assert.Equal(t, "2x1", got.Records[1].OfferDescription)
	})

	t.Run("persists failure classification", func(t *testing.T) {
		t.Parallel()

		db := MustOpenDB(t)
		s := sqlite.NewRunService(db)
		run := testRun(t, "https://shop.example.com/catalog/9")
		run.Status = catfetch.RunFailed
		run.Err = catfetch.Errorf(catfetch.EUNAVAILABLE, "page 3 failed after 3 attempts")

		require.NoError(t, s.CreateRun(context.Background(), run))

		got, err := s.FindRunByID(context.Background(), run.ID)
		require.NoError(t, err)
		assert.Equal(t, catfetch.RunFailed, got.Status)
		assert.Equal(t, catfetch.EUNAVAILABLE, catfetch.ErrorCode(got.Err))
		assert.Contains(t, catfetch.ErrorMessage(got.Err), "page 3 failed")
	})

	t.Run("rejects invalid run", func(t *testing.T) {
		t.Parallel()

		db := MustOpenDB(t)
		s := sqlite.NewRunService(db)

		err := s.CreateRun(context.Background(), &catfetch.RunResult{Status: catfetch.RunCompleted})

		assert.Equal(t, catfetch.EINVALID, catfetch.ErrorCode(err))
	})
}

func TestRunService_FindRunByID_NotFound(t *testing.T) {
	t.Parallel()

	db := MustOpenDB(t)
	s := sqlite.NewRunService(db)

	_, err := s.FindRunByID(context.Background(), "missing")

	assert.Equal(t, catfetch.ENOTFOUND, catfetch.ErrorCode(err))
}

func TestRunService_FindRunByID_CorruptTimestamp(t *testing.T) {
	t.Parallel()

	db := MustOpenDB(t)
	s := sqlite.NewRunService(db)

	// A row whose started_at was mangled outside the service.
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO runs (id, target_key, config_json, status, pages, retries, record_count, error_code, error_message, started_at, finished_at)
		VALUES ('run-bad', 'https://shop.example.com/catalog/9', '', 'completed', 1, 0, 0, '', '', 'not-a-timestamp', '2025-06-01T10:00:00Z')
	`)
	require.NoError(t, err)

	_, err = s.FindRunByID(context.Background(), "run-bad")

	assert.Equal(t, catfetch.ECORRUPT, catfetch.ErrorCode(err))
}

func TestRunService_FindRuns(t *testing.T) {
	t.Parallel()

	db := MustOpenDB(t)
	s := sqlite.NewRunService(db)
	ctx := context.Background()

	first := testRun(t, "https://shop.example.com/catalog/9")
	require.NoError(t, s.CreateRun(ctx, first))

	second := testRun(t, "https://shop.example.com/catalog/12")
	second.Status = catfetch.RunFailed
	second.Err = catfetch.Errorf(catfetch.EEXHAUSTED, "all candidates failed")
	second.StartedAt = first.StartedAt.Add(time.Hour)
	second.FinishedAt = first.FinishedAt.Add(time.Hour)
	require.NoError(t, s.CreateRun(ctx, second))

	t.Run("returns summaries most recent first", func(t *testing.T) {
		runs, err := s.FindRuns(ctx, catfetch.RunFilter{})
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, second.ID, runs[0].ID)
		assert.Equal(t, first.ID, runs[1].ID)
		// Summaries carry the count but not the records themselves
		assert.Empty(t, runs[0].Records)
		assert.Equal(t, len(second.Records), runs[0].RecordCount)
	})

	t.Run("filters by target key", func(t *testing.T) {
		key := first.Target.Key()
		runs, err := s.FindRuns(ctx, catfetch.RunFilter{TargetKey: &key})
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, first.ID, runs[0].ID)
	})

	t.Run("filters by status", func(t *testing.T) {
		status := string(catfetch.RunFailed)
		runs, err := s.FindRuns(ctx, catfetch.RunFilter{Status: &status})
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, second.ID, runs[0].ID)
		assert.Equal(t, catfetch.EEXHAUSTED, catfetch.ErrorCode(runs[0].Err))
	})

	t.Run("applies limit and offset", func(t *testing.T) {
		runs, err := s.FindRuns(ctx, catfetch.RunFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, first.ID, runs[0].ID)
	})
}
