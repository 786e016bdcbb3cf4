// Package mongostore is the MongoDB implementation of datastore.Store.
//
// Datasets, columns, rows and analyses live in the datasets,
// dataset_columns, dataset_rows and ai_analyses collections. Child
// documents reference their dataset through a dataset_id ObjectID.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/starford/tabula/internal/datastore"
)

const (
	collDatasets = "datasets"
	collColumns  = "dataset_columns"
	collRows     = "dataset_rows"
	collAnalyses = "ai_analyses"
)

// DB implements datastore.Store on a MongoDB database.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ datastore.Store = (*DB)(nil)

// Open connects to uri, pings the server and ensures the indexes exist.
func Open(ctx context.Context, uri, database string, timeout time.Duration) (*DB, error) {
	opts := options.Client().ApplyURI(uri).SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	if timeout > 0 {
		opts.SetTimeout(timeout)
	}
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}
	db := &DB{client: client, db: client.Database(database)}
	if err := db.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return db, nil
}

func (db *DB) ensureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		collDatasets: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "upload_date", Value: -1}}},
			{Keys: bson.D{{Key: "checksum", Value: 1}}},
		},
		collColumns: {
			{Keys: bson.D{{Key: "dataset_id", Value: 1}}},
		},
		collRows: {
			{Keys: bson.D{{Key: "dataset_id", Value: 1}, {Key: "row_index", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collAnalyses: {
			{Keys: bson.D{{Key: "dataset_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}
	for coll, idx := range specs {
		if _, err := db.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("mongostore: create %s indexes: %w", coll, err)
		}
	}
	return nil
}

// Drop removes the whole database. Used by tests.
func (db *DB) Drop(ctx context.Context) error {
	return db.db.Drop(ctx)
}

// Close disconnects the client.
func (db *DB) Close() error {
	return db.client.Disconnect(context.Background())
}

func (db *DB) coll(name string) *mongo.Collection {
	return db.db.Collection(name)
}
