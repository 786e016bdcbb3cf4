package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/tabula/internal/apperr"
	"github.com/starford/tabula/internal/models"
)

type datasetRow struct {
	ID               string    `db:"id"`
	Name             string    `db:"name"`
	OriginalFilename string    `db:"original_filename"`
	FileType         string    `db:"file_type"`
	RowCount         int       `db:"row_count"`
	ColumnCount      int       `db:"column_count"`
	FileSize         int64     `db:"file_size"`
	Checksum         string    `db:"checksum"`
	Status           string    `db:"status"`
	UploadDate       time.Time `db:"upload_date"`
}

func (r datasetRow) model() models.Dataset {
	return models.Dataset{
		ID:               r.ID,
		Name:             r.Name,
		OriginalFilename: r.OriginalFilename,
		FileType:         r.FileType,
		RowCount:         r.RowCount,
		ColumnCount:      r.ColumnCount,
		FileSize:         r.FileSize,
		Checksum:         r.Checksum,
		Status:           r.Status,
		UploadDate:       r.UploadDate,
	}
}

type columnRow struct {
	DatasetID         string `db:"dataset_id"`
	ColumnName        string `db:"column_name"`
	ColumnType        string `db:"column_type"`
	IsFilterable      bool   `db:"is_filterable"`
	UniqueValuesCount int    `db:"unique_values_count"`
}

type analysisRow struct {
	ID           string    `db:"id"`
	DatasetID    string    `db:"dataset_id"`
	Title        string    `db:"title"`
	Content      string    `db:"content"`
	CustomPrompt string    `db:"custom_prompt"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r analysisRow) model() (models.Analysis, error) {
	a := models.Analysis{
		ID:           r.ID,
		DatasetID:    r.DatasetID,
		Title:        r.Title,
		CustomPrompt: r.CustomPrompt,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(r.Content), &a.Content); err != nil {
		return a, fmt.Errorf("sqlitestore: decode analysis %s: %w", r.ID, err)
	}
	return a, nil
}

const datasetColumns = `id, name, original_filename, file_type, row_count, column_count,
	file_size, checksum, status, upload_date`

// CreateDataset inserts a completed dataset and returns its generated id.
func (db *DB) CreateDataset(ctx context.Context, meta models.Dataset) (string, error) {
	row := datasetRow{
		ID:               uuid.NewString(),
		Name:             meta.Name,
		OriginalFilename: meta.OriginalFilename,
		FileType:         meta.FileType,
		RowCount:         meta.RowCount,
		ColumnCount:      meta.ColumnCount,
		FileSize:         meta.FileSize,
		Checksum:         meta.Checksum,
		Status:           models.StatusCompleted,
		UploadDate:       time.Now().UTC(),
	}
	_, err := db.conn.NamedExecContext(ctx, `
		INSERT INTO datasets (`+datasetColumns+`)
		VALUES (:id, :name, :original_filename, :file_type, :row_count, :column_count,
			:file_size, :checksum, :status, :upload_date)
	`, row)
	if err != nil {
		return "", apperr.Store("insert dataset", err)
	}
	return row.ID, nil
}

// SaveColumns bulk-inserts column metadata in a single transaction.
func (db *DB) SaveColumns(ctx context.Context, datasetID string, cols []models.Column) error {
	if len(cols) == 0 {
		return nil
	}
	rows := make([]columnRow, len(cols))
	for i, c := range cols {
		rows[i] = columnRow{
			DatasetID:         datasetID,
			ColumnName:        c.ColumnName,
			ColumnType:        c.ColumnType,
			IsFilterable:      c.IsFilterable,
			UniqueValuesCount: c.UniqueValuesCount,
		}
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Store("begin columns tx", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO dataset_columns (dataset_id, column_name, column_type, is_filterable, unique_values_count)
		VALUES (:dataset_id, :column_name, :column_type, :is_filterable, :unique_values_count)
	`)
	if err != nil {
		return apperr.Store("prepare column insert", err)
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r); err != nil {
			return apperr.Store("insert column", err)
		}
	}
	return apperr.Store("commit columns", tx.Commit())
}

// SaveRows bulk-inserts row payloads in a single transaction. Row indices
// follow slice positions.
func (db *DB) SaveRows(ctx context.Context, datasetID string, recs []*models.Record) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Store("begin rows tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO dataset_rows (dataset_id, row_index, row_data) VALUES (?, ?, ?)`)
	if err != nil {
		return apperr.Store("prepare row insert", err)
	}
	defer stmt.Close()
	for i, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("sqlitestore: encode row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, datasetID, i, string(data)); err != nil {
			return apperr.Store("insert row", err)
		}
	}
	return apperr.Store("commit rows", tx.Commit())
}

// GetDataset returns a dataset and its columns.
func (db *DB) GetDataset(ctx context.Context, id string) (*models.Dataset, error) {
	var row datasetRow
	err := db.conn.GetContext(ctx, &row, `SELECT `+datasetColumns+` FROM datasets WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlitestore: dataset %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, apperr.Store("get dataset", err)
	}

	var cols []columnRow
	err = db.conn.SelectContext(ctx, &cols, `
		SELECT dataset_id, column_name, column_type, is_filterable, unique_values_count
		FROM dataset_columns WHERE dataset_id = ? ORDER BY id
	`, id)
	if err != nil {
		return nil, apperr.Store("get columns", err)
	}

	ds := row.model()
	ds.Columns = make([]models.Column, len(cols))
	for i, c := range cols {
		ds.Columns[i] = models.Column(c)
	}
	return &ds, nil
}

// GetRows returns all row payloads of a dataset ordered by row index.
func (db *DB) GetRows(ctx context.Context, datasetID string) ([]*models.Record, error) {
	return db.rows(ctx, `SELECT row_data FROM dataset_rows WHERE dataset_id = ? ORDER BY row_index`, datasetID)
}

// SampleRows returns up to limit leading row payloads.
func (db *DB) SampleRows(ctx context.Context, datasetID string, limit int) ([]*models.Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	return db.rows(ctx, `SELECT row_data FROM dataset_rows WHERE dataset_id = ? ORDER BY row_index LIMIT ?`, datasetID, limit)
}

func (db *DB) rows(ctx context.Context, query string, args ...any) ([]*models.Record, error) {
	var payloads []string
	if err := db.conn.SelectContext(ctx, &payloads, query, args...); err != nil {
		return nil, apperr.Store("get rows", err)
	}
	out := make([]*models.Record, len(payloads))
	for i, p := range payloads {
		rec := models.NewRecord(0)
		if err := json.Unmarshal([]byte(p), rec); err != nil {
			return nil, fmt.Errorf("sqlitestore: decode row %d: %w", i, err)
		}
		out[i] = rec
	}
	return out, nil
}

// ListDatasets returns completed datasets, newest first.
func (db *DB) ListDatasets(ctx context.Context) ([]models.Dataset, error) {
	var rows []datasetRow
	err := db.conn.SelectContext(ctx, &rows, `
		SELECT `+datasetColumns+` FROM datasets
		WHERE status = ?
		ORDER BY upload_date DESC, rowid DESC
	`, models.StatusCompleted)
	if err != nil {
		return nil, apperr.Store("list datasets", err)
	}
	out := make([]models.Dataset, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, nil
}

// FindByChecksum returns the newest dataset with the given source checksum.
func (db *DB) FindByChecksum(ctx context.Context, checksum string) (*models.Dataset, error) {
	if checksum == "" {
		return nil, fmt.Errorf("sqlitestore: empty checksum: %w", apperr.ErrNotFound)
	}
	var row datasetRow
	err := db.conn.GetContext(ctx, &row, `
		SELECT `+datasetColumns+` FROM datasets
		WHERE checksum = ?
		ORDER BY upload_date DESC, rowid DESC LIMIT 1
	`, checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlitestore: checksum %s: %w", checksum, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, apperr.Store("find by checksum", err)
	}
	ds := row.model()
	return &ds, nil
}

// DeleteDataset removes children first, then the dataset row. Each step is
// its own statement; a failure leaves earlier deletions in effect.
func (db *DB) DeleteDataset(ctx context.Context, id string) error {
	steps := []struct{ op, query string }{
		{"delete rows", `DELETE FROM dataset_rows WHERE dataset_id = ?`},
		{"delete columns", `DELETE FROM dataset_columns WHERE dataset_id = ?`},
		{"delete analyses", `DELETE FROM ai_analyses WHERE dataset_id = ?`},
	}
	for _, s := range steps {
		if _, err := db.conn.ExecContext(ctx, s.query, id); err != nil {
			return apperr.Store(s.op, err)
		}
	}
	res, err := db.conn.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return apperr.Store("delete dataset", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Store("delete dataset", err)
	}
	if n == 0 {
		return fmt.Errorf("sqlitestore: dataset %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// SaveAnalysis inserts an analysis and returns its generated id.
func (db *DB) SaveAnalysis(ctx context.Context, a models.Analysis) (string, error) {
	content, err := json.Marshal(a.Content)
	if err != nil {
		return "", fmt.Errorf("sqlitestore: encode analysis: %w", err)
	}
	now := time.Now().UTC()
	row := analysisRow{
		ID:           uuid.NewString(),
		DatasetID:    a.DatasetID,
		Title:        a.Title,
		Content:      string(content),
		CustomPrompt: a.CustomPrompt,
		Status:       a.Status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err = db.conn.NamedExecContext(ctx, `
		INSERT INTO ai_analyses (id, dataset_id, title, content, custom_prompt, status, created_at, updated_at)
		VALUES (:id, :dataset_id, :title, :content, :custom_prompt, :status, :created_at, :updated_at)
	`, row)
	if err != nil {
		return "", apperr.Store("insert analysis", err)
	}
	return row.ID, nil
}

// GetAnalysis returns one analysis.
func (db *DB) GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	var row analysisRow
	err := db.conn.GetContext(ctx, &row, `SELECT * FROM ai_analyses WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlitestore: analysis %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, apperr.Store("get analysis", err)
	}
	a, err := row.model()
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAnalyses returns the analyses of a dataset, newest first.
func (db *DB) ListAnalyses(ctx context.Context, datasetID string) ([]models.Analysis, error) {
	var rows []analysisRow
	err := db.conn.SelectContext(ctx, &rows, `
		SELECT * FROM ai_analyses WHERE dataset_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, datasetID)
	if err != nil {
		return nil, apperr.Store("list analyses", err)
	}
	out := make([]models.Analysis, 0, len(rows))
	for _, r := range rows {
		a, err := r.model()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// UpdateAnalysisContent replaces the content of an analysis.
func (db *DB) UpdateAnalysisContent(ctx context.Context, id string, content models.AnalysisContent) error {
	data, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("sqlitestore: encode analysis: %w", err)
	}
	res, err := db.conn.ExecContext(ctx,
		`UPDATE ai_analyses SET content = ?, updated_at = ? WHERE id = ?`,
		string(data), time.Now().UTC(), id)
	if err != nil {
		return apperr.Store("update analysis", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlitestore: analysis %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
