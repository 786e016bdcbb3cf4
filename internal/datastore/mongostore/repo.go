package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/starford/tabula/internal/apperr"
	"github.com/starford/tabula/internal/models"
)

type datasetDoc struct {
	ID               bson.ObjectID `bson:"_id,omitempty"`
	Name             string        `bson:"name"`
	OriginalFilename string        `bson:"original_filename"`
	FileType         string        `bson:"file_type"`
	RowCount         int           `bson:"row_count"`
	ColumnCount      int           `bson:"column_count"`
	FileSize         int64         `bson:"file_size"`
	Checksum         string        `bson:"checksum"`
	Status           string        `bson:"status"`
	UploadDate       time.Time     `bson:"upload_date"`
}

func (d datasetDoc) model() models.Dataset {
	return models.Dataset{
		ID:               d.ID.Hex(),
		Name:             d.Name,
		OriginalFilename: d.OriginalFilename,
		FileType:         d.FileType,
		RowCount:         d.RowCount,
		ColumnCount:      d.ColumnCount,
		FileSize:         d.FileSize,
		Checksum:         d.Checksum,
		Status:           d.Status,
		UploadDate:       d.UploadDate.UTC(),
	}
}

type columnDoc struct {
	DatasetID         bson.ObjectID `bson:"dataset_id"`
	ColumnName        string        `bson:"column_name"`
	ColumnType        string        `bson:"column_type"`
	IsFilterable      bool          `bson:"is_filterable"`
	UniqueValuesCount int           `bson:"unique_values_count"`
}

type rowDoc struct {
	DatasetID bson.ObjectID `bson:"dataset_id"`
	RowIndex  int           `bson:"row_index"`
	RowData   bson.D        `bson:"row_data"`
}

type analysisDoc struct {
	ID           bson.ObjectID          `bson:"_id,omitempty"`
	DatasetID    bson.ObjectID          `bson:"dataset_id"`
	Title        string                 `bson:"title"`
	Content      models.AnalysisContent `bson:"content"`
	CustomPrompt string                 `bson:"custom_prompt,omitempty"`
	Status       string                 `bson:"status"`
	CreatedAt    time.Time              `bson:"created_at"`
	UpdatedAt    time.Time              `bson:"updated_at"`
}

func (d analysisDoc) model() models.Analysis {
	return models.Analysis{
		ID:           d.ID.Hex(),
		DatasetID:    d.DatasetID.Hex(),
		Title:        d.Title,
		Content:      d.Content,
		CustomPrompt: d.CustomPrompt,
		Status:       d.Status,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// objectID parses a hex id. Malformed ids cannot exist, so they are
// reported as not found.
func objectID(kind, id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return oid, fmt.Errorf("mongostore: %s %q: %w", kind, id, apperr.ErrNotFound)
	}
	return oid, nil
}

// recordDoc converts a record into an ordered BSON document.
func recordDoc(rec *models.Record) bson.D {
	doc := make(bson.D, 0, rec.Len())
	for _, f := range rec.Fields() {
		doc = append(doc, bson.E{Key: f.Key, Value: f.Value.Any()})
	}
	return doc
}

// docRecord converts a stored BSON document back into a record.
func docRecord(doc bson.D) *models.Record {
	rec := models.NewRecord(len(doc))
	for _, e := range doc {
		switch v := e.Value.(type) {
		case bson.DateTime:
			rec.Set(e.Key, models.Date(v.Time().UTC()))
		case bson.Null:
			rec.Set(e.Key, models.Null())
		default:
			rec.Set(e.Key, models.FromAny(v))
		}
	}
	return rec
}

// CreateDataset inserts a completed dataset and returns its ObjectID hex.
func (db *DB) CreateDataset(ctx context.Context, meta models.Dataset) (string, error) {
	doc := datasetDoc{
		ID:               bson.NewObjectID(),
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
	if _, err := db.coll(collDatasets).InsertOne(ctx, doc); err != nil {
		return "", apperr.Store("insert dataset", err)
	}
	return doc.ID.Hex(), nil
}

// SaveColumns inserts column metadata with one InsertMany call.
func (db *DB) SaveColumns(ctx context.Context, datasetID string, cols []models.Column) error {
	if len(cols) == 0 {
		return nil
	}
	oid, err := objectID("dataset", datasetID)
	if err != nil {
		return err
	}
	docs := make([]any, len(cols))
	for i, c := range cols {
		docs[i] = columnDoc{
			DatasetID:         oid,
			ColumnName:        c.ColumnName,
			ColumnType:        c.ColumnType,
			IsFilterable:      c.IsFilterable,
			UniqueValuesCount: c.UniqueValuesCount,
		}
	}
	_, err = db.coll(collColumns).InsertMany(ctx, docs)
	return apperr.Store("insert columns", err)
}

// SaveRows inserts row payloads with one InsertMany call.
func (db *DB) SaveRows(ctx context.Context, datasetID string, recs []*models.Record) error {
	if len(recs) == 0 {
		return nil
	}
	oid, err := objectID("dataset", datasetID)
	if err != nil {
		return err
	}
	docs := make([]any, len(recs))
	for i, rec := range recs {
		docs[i] = rowDoc{DatasetID: oid, RowIndex: i, RowData: recordDoc(rec)}
	}
	_, err = db.coll(collRows).InsertMany(ctx, docs)
	return apperr.Store("insert rows", err)
}

// GetDataset returns a dataset and its columns.
func (db *DB) GetDataset(ctx context.Context, id string) (*models.Dataset, error) {
	oid, err := objectID("dataset", id)
	if err != nil {
		return nil, err
	}
	var doc datasetDoc
	err = db.coll(collDatasets).FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("mongostore: dataset %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, apperr.Store("get dataset", err)
	}

	cur, err := db.coll(collColumns).Find(ctx,
		bson.D{{Key: "dataset_id", Value: oid}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, apperr.Store("get columns", err)
	}
	var cols []columnDoc
	if err := cur.All(ctx, &cols); err != nil {
		return nil, apperr.Store("decode columns", err)
	}

	ds := doc.model()
	ds.Columns = make([]models.Column, len(cols))
	for i, c := range cols {
		ds.Columns[i] = models.Column{
			DatasetID:         id,
			ColumnName:        c.ColumnName,
			ColumnType:        c.ColumnType,
			IsFilterable:      c.IsFilterable,
			UniqueValuesCount: c.UniqueValuesCount,
		}
	}
	return &ds, nil
}

// GetRows returns all row payloads ordered by row index.
func (db *DB) GetRows(ctx context.Context, datasetID string) ([]*models.Record, error) {
	return db.rows(ctx, datasetID, 0)
}

// SampleRows returns up to limit leading row payloads.
func (db *DB) SampleRows(ctx context.Context, datasetID string, limit int) ([]*models.Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	return db.rows(ctx, datasetID, int64(limit))
}

func (db *DB) rows(ctx context.Context, datasetID string, limit int64) ([]*models.Record, error) {
	oid, err := objectID("dataset", datasetID)
	if err != nil {
		// unknown ids simply have no rows
		return nil, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "row_index", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := db.coll(collRows).Find(ctx, bson.D{{Key: "dataset_id", Value: oid}}, opts)
	if err != nil {
		return nil, apperr.Store("get rows", err)
	}
	var docs []rowDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, apperr.Store("decode rows", err)
	}
	out := make([]*models.Record, len(docs))
	for i, d := range docs {
		out[i] = docRecord(d.RowData)
	}
	return out, nil
}

// ListDatasets returns completed datasets, newest first.
func (db *DB) ListDatasets(ctx context.Context) ([]models.Dataset, error) {
	cur, err := db.coll(collDatasets).Find(ctx,
		bson.D{{Key: "status", Value: models.StatusCompleted}},
		options.Find().SetSort(bson.D{{Key: "upload_date", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, apperr.Store("list datasets", err)
	}
	var docs []datasetDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, apperr.Store("decode datasets", err)
	}
	out := make([]models.Dataset, len(docs))
	for i, d := range docs {
		out[i] = d.model()
	}
	return out, nil
}

// FindByChecksum returns the newest dataset with the given source checksum.
func (db *DB) FindByChecksum(ctx context.Context, checksum string) (*models.Dataset, error) {
	if checksum == "" {
		return nil, fmt.Errorf("mongostore: empty checksum: %w", apperr.ErrNotFound)
	}
	var doc datasetDoc
	err := db.coll(collDatasets).FindOne(ctx,
		bson.D{{Key: "checksum", Value: checksum}},
		options.FindOne().SetSort(bson.D{{Key: "upload_date", Value: -1}, {Key: "_id", Value: -1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("mongostore: checksum %s: %w", checksum, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, apperr.Store("find by checksum", err)
	}
	ds := doc.model()
	return &ds, nil
}

// DeleteDataset removes rows, columns and analyses, then the dataset.
// There is no transaction; a failure leaves earlier deletions in effect.
func (db *DB) DeleteDataset(ctx context.Context, id string) error {
	oid, err := objectID("dataset", id)
	if err != nil {
		return err
	}
	byDataset := bson.D{{Key: "dataset_id", Value: oid}}
	for _, c := range []string{collRows, collColumns, collAnalyses} {
		if _, err := db.coll(c).DeleteMany(ctx, byDataset); err != nil {
			return apperr.Store("delete "+c, err)
		}
	}
	res, err := db.coll(collDatasets).DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return apperr.Store("delete dataset", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("mongostore: dataset %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// SaveAnalysis inserts an analysis and returns its ObjectID hex.
func (db *DB) SaveAnalysis(ctx context.Context, a models.Analysis) (string, error) {
	dsID, err := objectID("dataset", a.DatasetID)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	doc := analysisDoc{
		ID:           bson.NewObjectID(),
		DatasetID:    dsID,
		Title:        a.Title,
		Content:      a.Content,
		CustomPrompt: a.CustomPrompt,
		Status:       a.Status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := db.coll(collAnalyses).InsertOne(ctx, doc); err != nil {
		return "", apperr.Store("insert analysis", err)
	}
	return doc.ID.Hex(), nil
}

// GetAnalysis returns one analysis.
func (db *DB) GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	oid, err := objectID("analysis", id)
	if err != nil {
		return nil, err
	}
	var doc analysisDoc
	err = db.coll(collAnalyses).FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("mongostore: analysis %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, apperr.Store("get analysis", err)
	}
	a := doc.model()
	return &a, nil
}

// ListAnalyses returns the analyses of a dataset, newest first.
func (db *DB) ListAnalyses(ctx context.Context, datasetID string) ([]models.Analysis, error) {
	oid, err := objectID("dataset", datasetID)
	if err != nil {
		return nil, nil
	}
	cur, err := db.coll(collAnalyses).Find(ctx,
		bson.D{{Key: "dataset_id", Value: oid}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, apperr.Store("list analyses", err)
	}
	var docs []analysisDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, apperr.Store("decode analyses", err)
	}
	out := make([]models.Analysis, len(docs))
	for i, d := range docs {
		out[i] = d.model()
	}
	return out, nil
}

// UpdateAnalysisContent replaces the content of an analysis.
func (db *DB) UpdateAnalysisContent(ctx context.Context, id string, content models.AnalysisContent) error {
	oid, err := objectID("analysis", id)
	if err != nil {
		return err
	}
	res, err := db.coll(collAnalyses).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "content", Value: content},
			{Key: "updated_at", Value: time.Now().UTC()},
		}}})
	if err != nil {
		return apperr.Store("update analysis", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("mongostore: analysis %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
