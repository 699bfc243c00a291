package fs

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/msolis/catfetch"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Writer exports finished runs as JSON or CSV files under a base directory.
type Writer struct {
	baseDir string
}

// NewWriter creates a Writer that writes to the given base directory.
func NewWriter(baseDir string) *Writer {
	return &Writer{baseDir: baseDir}
}

// exportEnvelope is the JSON export format: run metadata plus records.
type exportEnvelope struct {
	Target     string                    `json:"target"`
	Config     string                    `json:"config,omitempty"`
	Status     catfetch.RunStatus        `json:"status"`
	Pages      int                       `json:"pages"`
	Retries    int                       `json:"retries"`
	StartedAt  string                    `json:"startedAt"`
	FinishedAt string                    `json:"finishedAt"`
	Count      int                       `json:"count"`
	Records    []*catfetch.ProductRecord `json:"records"`
}

// WriteRun exports a run in the given format and returns the written path.
func (w *Writer) WriteRun(ctx context.Context, run *catfetch.RunResult, format string) (string, error) {
	switch format {
	case FormatJSON:
		return w.WriteJSON(ctx, run)
	case FormatCSV:
		return w.WriteCSV(ctx, run)
	default:
		return "", catfetch.Errorf(catfetch.EINVALID, "unsupported export format %q", format)
	}
}

// WriteJSON exports the run with its metadata as a JSON file.
func (w *Writer) WriteJSON(ctx context.Context, run *catfetch.RunResult) (string, error) {
	if err := run.Validate(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	env := exportEnvelope{
		Target:     run.Target.Key(),
		Status:     run.Status,
		Pages:      run.Pages,
		Retries:    run.Retries,
		StartedAt:  run.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
		FinishedAt: run.FinishedAt.Format("2006-01-02T15:04:05Z07:00"),
		Count:      len(run.Records),
		Records:    run.Records,
	}
	if run.Config != nil {
		env.Config = run.Config.Label
	}
	raw, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", catfetch.Errorf(catfetch.EINTERNAL, "encoding export: %v", err)
	}

	path := w.exportPath(run, "json")
	if err := w.writeAtomic(path, raw); err != nil {
		return "", err
	}
	return path, nil
}

// csvHeader is the column order for CSV exports. The raw payload column is
// deliberately omitted.
var csvHeader = []string{
	"id", "name", "price", "offer_price", "offer_description",
	"stock", "barcode", "category", "subcategory", "image_url",
}

// WriteCSV exports the run's records as a CSV file.
func (w *Writer) WriteCSV(ctx context.Context, run *catfetch.RunResult) (string, error) {
	if err := run.Validate(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(w.baseDir, 0755); err != nil {
		return "", catfetch.Errorf(catfetch.EINTERNAL, "creating export directory: %v", err)
	}

	path := w.exportPath(run, "csv")
	tmp, err := os.CreateTemp(w.baseDir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", catfetch.Errorf(catfetch.EINTERNAL, "creating temp export file: %v", err)
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	if err := cw.Write(csvHeader); err != nil {
		tmp.Close()
		return "", catfetch.Errorf(catfetch.EINTERNAL, "writing export header: %v", err)
	}
	for _, rec := range run.Records {
		row := []string{
			rec.ID, rec.Name, rec.Price, rec.OfferPrice, rec.OfferDescription,
			strconv.Itoa(rec.Stock), rec.Barcode, rec.Category, rec.Subcategory, rec.ImageURL,
		}
		if err := cw.Write(row); err != nil {
			tmp.Close()
			return "", catfetch.Errorf(catfetch.EINTERNAL, "writing export row: %v", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return "", catfetch.Errorf(catfetch.EINTERNAL, "flushing export: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return "", catfetch.Errorf(catfetch.EINTERNAL, "closing temp export file: %v", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", catfetch.Errorf(catfetch.EINTERNAL, "committing export: %v", err)
	}
	return path, nil
}

// exportPath names the export file after the target and the run's finish
// time so successive runs never overwrite each other.
func (w *Writer) exportPath(run *catfetch.RunResult, ext string) string {
	name := targetSlug(run.Target) + "_" + run.FinishedAt.Format("20060102_150405") + "." + ext
	return filepath.Join(w.baseDir, name)
}

// writeAtomic writes data to path via a temp file in the same directory.
func (w *Writer) writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(w.baseDir, 0755); err != nil {
		return catfetch.Errorf(catfetch.EINTERNAL, "creating export directory: %v", err)
	}
	tmp, err := os.CreateTemp(w.baseDir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return catfetch.Errorf(catfetch.EINTERNAL, "creating temp export file: %v", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return catfetch.Errorf(catfetch.EINTERNAL, "writing export: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return catfetch.Errorf(catfetch.EINTERNAL, "closing temp export file: %v", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return catfetch.Errorf(catfetch.EINTERNAL, "committing export: %v", err)
	}
	return nil
}
