package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/msolis/catfetch"
)

// Compile-time interface verification.
var _ catfetch.RunService = (*RunService)(nil)

// RunService implements catfetch.RunService using SQLite.
type RunService struct {
	db *DB
}

// NewRunService creates a new RunService.
func NewRunService(db *DB) *RunService {
	return &RunService{db: db}
}

// CreateRun stores a finished run with its records. The run and its
// records are written in one transaction; a run is never persisted
// without its records.
func (s *RunService) CreateRun(ctx context.Context, run *catfetch.RunResult) error {
	if err := run.Validate(); err != nil {
		return err
	}

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	run.RecordCount = len(run.Records)

	configJSON := ""
	if run.Config != nil {
		raw, err := json.Marshal(run.Config)
		if err != nil {
			return catfetch.Errorf(catfetch.EINTERNAL, "encoding run config: %v", err)
		}
		configJSON = string(raw)
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, target_key, config_json, status, pages, retries, record_count, error_code, error_message, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Target.Key(), configJSON, string(run.Status), run.Pages, run.Retries, len(run.Records),
		catfetch.ErrorCode(run.Err), catfetch.ErrorMessage(run.Err),
		run.StartedAt.UTC().Format(time.RFC3339), run.FinishedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}

	for i, rec := range run.Records {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO records (id, run_id, position, product_id, name, price, offer_price, offer_description, stock, barcode, category, subcategory, image_url)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.New().String(), run.ID, i, rec.ID, rec.Name, rec.Price, rec.OfferPrice, rec.OfferDescription,
			rec.Stock, rec.Barcode, rec.Category, rec.Subcategory, rec.ImageURL)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// FindRunByID retrieves a run by ID, including its records.
func (s *RunService) FindRunByID(ctx context.Context, id string) (*catfetch.RunResult, error) {
	run, err := s.scanRun(s.db.QueryRowContext(ctx, `
		SELECT id, target_key, config_json, status, pages, retries, record_count, error_code, error_message, started_at, finished_at
		FROM runs
		WHERE id = ?
	`, id))
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, name, price, offer_price, offer_description, stock, barcode, category, subcategory, image_url
		FROM records
		WHERE run_id = ?
		ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rec catfetch.ProductRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Price, &rec.OfferPrice, &rec.OfferDescription,
			&rec.Stock, &rec.Barcode, &rec.Category, &rec.Subcategory, &rec.ImageURL); err != nil {
			return nil, err
		}
		run.Records = append(run.Records, &rec)
	}

	return run, rows.Err()
}

// FindRuns retrieves run summaries matching the filter, most recent
// first. Records are not populated.
func (s *RunService) FindRuns(ctx context.Context, filter catfetch.RunFilter) ([]*catfetch.RunResult, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`SELECT id, target_key, config_json, status, pages, retries, record_count, error_code, error_message, started_at, finished_at FROM runs WHERE 1=1`)

	if filter.TargetKey != nil {
		query.WriteString(" AND target_key = ?")
		args = append(args, *filter.TargetKey)
	}
	if filter.Status != nil {
		query.WriteString(" AND status = ?")
		args = append(args, *filter.Status)
	}

	query.WriteString(" ORDER BY started_at DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*catfetch.RunResult
	for rows.Next() {
		run, err := s.scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun reads one run row without its records.
func (s *RunService) scanRun(row rowScanner) (*catfetch.RunResult, error) {
	var run catfetch.RunResult
	var targetKey, configJSON, status, errCode, errMessage, startedAt, finishedAt string

	err := row.Scan(&run.ID, &targetKey, &configJSON, &status, &run.Pages, &run.Retries,
		&run.RecordCount, &errCode, &errMessage, &startedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, catfetch.Errorf(catfetch.ENOTFOUND, "run not found")
	}
	if err != nil {
		return nil, err
	}

	run.Status = catfetch.RunStatus(status)

	// The target key is the normalized catalog URL, so the target can be
	// reconstructed from it.
	target, err := catfetch.NewCatalogTarget(targetKey)
	if err != nil {
		return nil, catfetch.Errorf(catfetch.ECORRUPT, "stored target key %q is invalid: %v", targetKey, err)
	}
	run.Target = target

	if configJSON != "" {
		var cand catfetch.ConfigCandidate
		if err := json.Unmarshal([]byte(configJSON), &cand); err != nil {
			return nil, catfetch.Errorf(catfetch.ECORRUPT, "stored run config is invalid: %v", err)
		}
		run.Config = &cand
	}

	if errCode != "" {
		run.Err = catfetch.Errorf(errCode, "%s", errMessage)
	}

	if run.StartedAt, err = parseRFC3339(startedAt, "started_at"); err != nil {
		return nil, err
	}
	if run.FinishedAt, err = parseRFC3339(finishedAt, "finished_at"); err != nil {
		return nil, err
	}

	return &run, nil
}

// parseRFC3339 parses a stored timestamp column. Timestamps are written
// by CreateRun in RFC3339, so a parse failure means the row is corrupt.
func parseRFC3339(value, column string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, catfetch.Errorf(catfetch.ECORRUPT, "stored %s %q is not RFC3339: %v", column, value, err)
	}
	return t, nil
}

// appendPagination adds LIMIT and OFFSET clauses when set.
func appendPagination(query *strings.Builder, args *[]any, limit, offset int) {
	if limit > 0 {
		query.WriteString(" LIMIT ?")
		*args = append(*args, limit)
	}
	if offset > 0 {
		query.WriteString(" OFFSET ?")
		*args = append(*args, offset)
	}
}
