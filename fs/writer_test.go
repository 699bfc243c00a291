package fs_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/msolis/catfetch"
	"github.com/msolis/catfetch/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRun(t *testing.T) *catfetch.RunResult {
	t.Helper()
	target, err := catfetch.NewCatalogTarget("https://shop.example.com/catalog/9")
	require.NoError(t, err)
	started := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	return &catfetch.RunResult{
		Target: target,
		Config: &catfetch.ConfigCandidate{
			Label:    "all-flag",
			Template: &catfetch.RequestTemplate{Method: "POST", URL: "https://api.shop.example.com/api/products"},
		},
		Records: []*catfetch.ProductRecord{
			{Name: "Milk 1L", Price: "12.50", Barcode: "7401000000011", Stock: 4},
			{Name: "Bread", Price: "8.00", OfferPrice: "6.50", OfferDescription: "2x1"},
		},
		Status:     catfetch.RunCompleted,
		Pages:      3,
		Retries:    1,
		StartedAt:  started,
		FinishedAt: started.Add(42 * time.Second),
	}
}

func TestWriter_WriteJSON(t *testing.T) {
	t.Parallel()

	writer := fs.NewWriter(t.TempDir())

	path, err := writer.WriteJSON(context.Background(), testRun(t))

	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".json"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var env struct {
		Target  string                    `json:"target"`
		Config  string                    `json:"config"`
		Status  string                    `json:"status"`
		Count   int                       `json:"count"`
		Records []*catfetch.ProductRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "https://shop.example.com/catalog/9", env.Target)
	assert.Equal(t, "all-flag", env.Config)
	assert.Equal(t, "completed", env.Status)
	assert.Equal(t, 2, env.Count)
	require.Len(t, env.Records, 2)
	assert.Equal(t, "Milk 1L", env.Records[0].Name)
}

func TestWriter_WriteCSV(t *testing.T) {
	t.Parallel()

	writer := fs.NewWriter(t.TempDir())

	path, err := writer.WriteCSV(context.Background(), testRun(t))

	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".csv"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "name", rows[0][1])
	assert.Equal(t, "Milk 1L", rows[1][1])
	assert.Equal(t, "7401000000011", rows[1][6])
	assert.Equal(t, "6.50", rows[2][3])
	assert.Equal(t, "2x1", rows[2][4])
}

func TestWriter_WriteRunRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	writer := fs.NewWriter(t.TempDir())

	_, err := writer.WriteRun(context.Background(), testRun(t), "xml")

	assert.Equal(t, catfetch.EINVALID, catfetch.ErrorCode(err))
}

func TestWriter_SuccessiveRunsDoNotOverwrite(t *testing.T) {
	t.Parallel()

	writer := fs.NewWriter(t.TempDir())
	first := testRun(t)
	second := testRun(t)
	second.FinishedAt = first.FinishedAt.Add(time.Minute)

	p1, err := writer.WriteJSON(context.Background(), first)
	require.NoError(t, err)
	p2, err := writer.WriteJSON(context.Background(), second)
	require.NoError(t, err)

	assert.NotEqual(t, p1, p2)
}
