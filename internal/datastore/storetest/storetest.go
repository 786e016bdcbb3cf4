// Package storetest runs the datastore.Store contract against any backend.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/tabula/internal/apperr"
	"github.com/starford/tabula/internal/datastore"
	"github.com/starford/tabula/internal/models"
)

// Factory returns an empty store. It is called once per subtest and is
// responsible for cleanup.
type Factory func(t *testing.T) datastore.Store

// Run exercises every Store operation.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s datastore.Store)
	}{
		{"CreateAndGet", testCreateAndGet},
		{"RowsOrderedAndDense", testRowsOrderedAndDense},
		{"SampleRows", testSampleRows},
		{"ListNewestFirst", testListNewestFirst},
		{"FindByChecksum", testFindByChecksum},
		{"DeleteCascade", testDeleteCascade},
		{"DeleteMissingLeavesOthers", testDeleteMissingLeavesOthers},
		{"GetMissing", testGetMissing},
		{"Analyses", testAnalyses},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

// Seed writes a dataset with n rows of {region, sales} and two columns,
// returning its id.
func Seed(t *testing.T, s datastore.Store, name string, n int) string {
	t.Helper()
	ctx := context.Background()
	id, err := s.CreateDataset(ctx, models.Dataset{
		Name:             name,
		OriginalFilename: name + ".csv",
		FileType:         models.FileTypeCSV,
		RowCount:         n,
		ColumnCount:      2,
		FileSize:         int64(n * 10),
		Checksum:         "sum-" + name,
	})
	require.NoError(t, err)

	require.NoError(t, s.SaveColumns(ctx, id, []models.Column{
		{ColumnName: "region", ColumnType: models.ColumnString, IsFilterable: true, UniqueValuesCount: 2},
		{ColumnName: "sales", ColumnType: models.ColumnNumber, UniqueValuesCount: n},
	}))

	recs := make([]*models.Record, n)
	for i := range recs {
		region := "north"
		if i%2 == 1 {
			region = "south"
		}
		recs[i] = models.RecordOf("region", region, "sales", fmt.Sprint(i))
	}
	require.NoError(t, s.SaveRows(ctx, id, recs))
	return id
}

func testCreateAndGet(t *testing.T, s datastore.Store) {
	ctx := context.Background()
	id := Seed(t, s, "sales", 3)

	ds, err := s.GetDataset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, ds.ID)
	assert.Equal(t, "sales", ds.Name)
	assert.Equal(t, "sales.csv", ds.OriginalFilename)
	assert.Equal(t, models.FileTypeCSV, ds.FileType)
	assert.Equal(t, models.StatusCompleted, ds.Status)
	assert.Equal(t, 3, ds.RowCount)
	assert.Equal(t, 2, ds.ColumnCount)
	assert.Equal(t, int64(30), ds.FileSize)
	assert.WithinDuration(t, time.Now(), ds.UploadDate, time.Minute)

	require.Len(t, ds.Columns, 2)
	assert.Equal(t, "region", ds.Columns[0].ColumnName)
	assert.True(t, ds.Columns[0].IsFilterable)
	assert.Equal(t, "sales", ds.Columns[1].ColumnName)
	assert.Equal(t, models.ColumnNumber, ds.Columns[1].ColumnType)
	assert.Equal(t, id, ds.Columns[1].DatasetID)
	assert.Len(t, ds.Columns, ds.ColumnCount)
}

func testRowsOrderedAndDense(t *testing.T, s datastore.Store) {
	ctx := context.Background()
	id := Seed(t, s, "dense", 25)

	rows, err := s.GetRows(ctx, id)
	require.NoError(t, err)
	require.Len(t, rows, 25)
	for i, r := range rows {
		v, ok := r.Get("sales")
		require.True(t, ok)
		assert.Equal(t, fmt.Sprint(i), v.Text(), "row %d out of order", i)
		assert.Equal(t, []string{"region", "sales"}, r.Keys())
	}
}

func testSampleRows(t *testing.T, s datastore.Store) {
	ctx := context.Background()
	id := Seed(t, s, "sample", 10)

	rows, err := s.SampleRows(ctx, id, 4)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	v, _ := rows[3].Get("sales")
	assert.Equal(t, "3", v.Text())

	rows, err = s.SampleRows(ctx, id, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func testListNewestFirst(t *testing.T, s datastore.Store) {
	ctx := context.Background()
	first := Seed(t, s, "first", 1)
	time.Sleep(5 * time.Millisecond)
	second := Seed(t, s, "second", 1)

	list, err := s.ListDatasets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, first, list[1].ID)
	assert.Empty(t, list[0].Columns, "list does not load columns")
}

func testFindByChecksum(t *testing.T, s datastore.Store) {
	ctx := context.Background()
	id := Seed(t, s, "dup", 1)

	ds, err := s.FindByChecksum(ctx, "sum-dup")
	require.NoError(t, err)
	assert.Equal(t, id, ds.ID)

	_, err = s.FindByChecksum(ctx, "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = s.FindByChecksum(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func testDeleteCascade(t *testing.T, s datastore.Store) {
	ctx := context.Background()
	id := Seed(t, s, "gone", 5)
	_, err := s.SaveAnalysis(ctx, models.Analysis{DatasetID: id, Title: "report", Status: "completed"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteDataset(ctx, id))

	_, err = s.GetDataset(ctx, id)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	rows, err := s.GetRows(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, rows)
	analyses, err := s.ListAnalyses(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, analyses)

	err = s.DeleteDataset(ctx, id)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func testDeleteMissingLeavesOthers(t *testing.T, s datastore.Store) {
	ctx := context.Background()
	keep := Seed(t, s, "keep", 4)

	missing, err := s.CreateDataset(ctx, models.Dataset{Name: "tmp", OriginalFilename: "tmp.csv", FileType: models.FileTypeCSV})
	require.NoError(t, err)
	require.NoError(t, s.DeleteDataset(ctx, missing))

	err = s.DeleteDataset(ctx, missing)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	ds, err := s.GetDataset(ctx, keep)
	require.NoError(t, err)
	assert.Len(t, ds.Columns, 2)
	rows, err := s.GetRows(ctx, keep)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func testGetMissing(t *testing.T, s datastore.Store) {
	ctx := context.Background()
	missing, err := s.CreateDataset(ctx, models.Dataset{Name: "tmp", OriginalFilename: "tmp.csv", FileType: models.FileTypeCSV})
	require.NoError(t, err)
	require.NoError(t, s.DeleteDataset(ctx, missing))

	_, err = s.GetDataset(ctx, missing)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = s.GetDataset(ctx, "not-an-id")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = s.GetAnalysis(ctx, missing)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func testAnalyses(t *testing.T, s datastore.Store) {
	ctx := context.Background()
	id := Seed(t, s, "analysed", 2)

	content := models.AnalysisContent{
		Title:   "Sales overview",
		Summary: "North leads.",
		Insights: []models.Insight{
			{ID: "i1", Title: "North", Description: "North sells more", Type: "trend", Impact: "high"},
			{ID: "i2", Title: "South", Description: "South lags", Type: "risk", Impact: "medium"},
		},
		Recommendations: []string{"grow south"},
	}
	firstID, err := s.SaveAnalysis(ctx, models.Analysis{DatasetID: id, Title: content.Title, Content: content, Status: "completed"})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	secondID, err := s.SaveAnalysis(ctx, models.Analysis{DatasetID: id, Title: "later", Status: "completed"})
	require.NoError(t, err)

	got, err := s.GetAnalysis(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, id, got.DatasetID)
	assert.Equal(t, "Sales overview", got.Title)
	require.Len(t, got.Content.Insights, 2)
	assert.Equal(t, "i2", got.Content.Insights[1].ID)

	list, err := s.ListAnalyses(ctx, id)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, secondID, list[0].ID)

	content.Insights = content.Insights[:1]
	require.NoError(t, s.UpdateAnalysisContent(ctx, firstID, content))
	got, err = s.GetAnalysis(ctx, firstID)
	require.NoError(t, err)
	assert.Len(t, got.Content.Insights, 1)

	err = s.UpdateAnalysisContent(ctx, secondID+"0", content)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
