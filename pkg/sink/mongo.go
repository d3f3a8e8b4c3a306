// Package sink mirrors exported snapshots into a document store so runs can be
// queried across machines.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dtnitsch/leakdiff/models"
	"github.com/dtnitsch/leakdiff/pkg/record"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCollection holds one document per snapshot file.
const DefaultCollection = "snapshots"

// Entry is one exported snapshot with the context the file path encodes.
type Entry struct {
	RunID    int64
	Category string
	Source   string
	Path     string
	Snapshot *models.Snapshot
}

// Sink receives every exported snapshot.
type Sink interface {
	Put(ctx context.Context, e Entry) error
	Close(ctx context.Context) error
}

// MongoSink upserts snapshots keyed by category, source and timestamp, the
// same identity the snapshot path carries.
type MongoSink struct {
	client    *mongo.Client
	snapshots *mongo.Collection
	logger    *slog.Logger
}

// NewMongoSink connects, pings and ensures the snapshot indexes.
func NewMongoSink(ctx context.Context, uri, database string, logger *slog.Logger) (*MongoSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("can't ping MongoDB: %w", err)
	}

	s := &MongoSink{
		client:    client,
		snapshots: client.Database(database).Collection(DefaultCollection),
		logger:    logger,
	}
	s.createIndexes(ctx)
	return s, nil
}

func (s *MongoSink) createIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "source", Value: 1}, {Key: "timestamp", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "run_id", Value: 1}},
		},
	}
	if _, err := s.snapshots.Indexes().CreateMany(ctx, indexes); err != nil {
		s.logger.Warn("sink: failed to create indexes", "error", err)
	}
}

// Put upserts one snapshot document.
func (s *MongoSink) Put(ctx context.Context, e Entry) error {
	doc := Document(e)
	filter := bson.D{
		{Key: "category", Value: e.Category},
		{Key: "source", Value: e.Source},
		{Key: "timestamp", Value: e.Snapshot.Meta.Timestamp},
	}
	_, err := s.snapshots.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store snapshot %s/%s: %w", e.Category, e.Source, err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Document builds the stored form of an entry. Data keeps its field order.
func Document(e Entry) bson.D {
	meta := e.Snapshot.Meta
	metaDoc := bson.D{
		{Key: "browser", Value: meta.Browser},
		{Key: "timestamp", Value: meta.Timestamp},
		{Key: "script_version", Value: meta.ScriptVersion},
	}
	if meta.UserAgent != "" {
		metaDoc = append(metaDoc, bson.E{Key: "user_agent", Value: meta.UserAgent})
	}
	if meta.Error != "" {
		metaDoc = append(metaDoc, bson.E{Key: "error", Value: meta.Error})
	}

	var data any
	if e.Snapshot.Data != nil {
		data = orderedToD(e.Snapshot.Data)
	}

	return bson.D{
		{Key: "run_id", Value: e.RunID},
		{Key: "category", Value: e.Category},
		{Key: "source", Value: e.Source},
		{Key: "timestamp", Value: meta.Timestamp},
		{Key: "file_path", Value: e.Path},
		{Key: "meta", Value: metaDoc},
		{Key: "data", Value: data},
	}
}

func orderedToD(o record.Ordered) bson.D {
	d := make(bson.D, 0, len(o))
	for _, f := range o {
		d = append(d, bson.E{Key: f.Key, Value: bsonValue(f.Value)})
	}
	return d
}

// bsonValue converts decoded JSON values into types the driver encodes
// natively.
func bsonValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case record.Ordered:
		return orderedToD(val)
	case map[string]any:
		m := bson.M{}
		for k, inner := range val {
			m[k] = bsonValue(inner)
		}
		return m
	case []any:
		a := make(bson.A, 0, len(val))
		for _, inner := range val {
			a = append(a, bsonValue(inner))
		}
		return a
	default:
		return v
	}
}
