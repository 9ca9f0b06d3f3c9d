package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

type mongoEntry struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoKV stores one document per key, keyed by _id.
type MongoKV struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *zap.Logger
}

// MongoOptions configures DialMongoKV.
type MongoOptions struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// DialMongoKV connects and pings the server.
func DialMongoKV(ctx context.Context, opts MongoOptions, logger *zap.Logger) (*MongoKV, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	client, err := mongo.Connect(options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(opts.Timeout).
		SetServerSelectionTimeout(opts.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger.Info("mongo kv connected",
		zap.String("database", opts.Database),
		zap.String("collection", opts.Collection))

	return NewMongoKV(client, client.Database(opts.Database).Collection(opts.Collection), logger), nil
}

// NewMongoKV wraps an existing collection.
func NewMongoKV(client *mongo.Client, coll *mongo.Collection, logger *zap.Logger) *MongoKV {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MongoKV{client: client, coll: coll, logger: logger.With(zap.String("component", "mongo_kv"))}
}

// Load implements KV.
func (m *MongoKV) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var e mongoEntry
	err := m.coll.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mongo load failed: %w", err)
	}
	return e.Value, true, nil
}

// Save implements KV as an upsert.
func (m *MongoKV) Save(ctx context.Context, key string, value []byte) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "value", Value: value},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	_, err := m.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: key}}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo save failed: %w", err)
	}
	return nil
}

// Ping checks the server is reachable.
func (m *MongoKV) Ping(ctx context.Context) error {
	if m.client == nil {
		return errors.New("mongo kv has no client")
	}
	return m.client.Ping(ctx, nil)
}

// Close disconnects the client if this KV owns one.
func (m *MongoKV) Close() error {
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
