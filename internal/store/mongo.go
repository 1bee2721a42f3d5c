package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	apperrors "socialgraph/pkg/errors"
)

// Mongo is the MongoDB-backed Store.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect establishes a MongoDB connection and verifies it with a ping.
func Connect(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &Mongo{client: client, db: client.Database(database)}, nil
}

// Close disconnects the underlying client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique indexes the domain relies on. The
// friendship pair index is genuinely symmetric because pairs are normalized
// (user1_uuid < user2_uuid) before they are stored or queried.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	users := []mongo.IndexModel{
		{Keys: bson.D{{Key: "uuid", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "referral_code", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := m.db.Collection(CollectionUsers).Indexes().CreateMany(ctx, users); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	friendships := []mongo.IndexModel{
		{Keys: bson.D{{Key: "uuid", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys:    bson.D{{Key: "user1_uuid", Value: 1}, {Key: "user2_uuid", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := m.db.Collection(CollectionFriendships).Indexes().CreateMany(ctx, friendships); err != nil {
		return fmt.Errorf("failed to create friendship indexes: %w", err)
	}

	return nil
}

func (m *Mongo) Find(ctx context.Context, collection string, query bson.M, sort bson.D, limit int64) ([]Record, error) {
	opts := options.Find()
	if len(sort) > 0 {
		opts.SetSort(sort)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := m.db.Collection(collection).Find(ctx, query, opts)
	if err != nil {
		return nil, apperrors.NewStoreFailed("find", err)
	}
	defer cursor.Close(ctx)

	records := []Record{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, apperrors.NewStoreFailed("find", err)
	}
	return records, nil
}

func (m *Mongo) Count(ctx context.Context, collection string, query bson.M) (int64, error) {
	count, err := m.db.Collection(collection).CountDocuments(ctx, query)
	if err != nil {
		return 0, apperrors.NewStoreFailed("count", err)
	}
	return count, nil
}

func (m *Mongo) Insert(ctx context.Context, collection string, rec Record) (Record, error) {
	result, err := m.db.Collection(collection).InsertOne(ctx, rec)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.NewDuplicateKey(collection, err)
		}
		return nil, apperrors.NewStoreFailed("insert", err)
	}

	stored := Record{}
	for k, v := range rec {
		stored[k] = v
	}
	stored["_id"] = result.InsertedID
	return stored, nil
}

func (m *Mongo) UpdateByFilter(ctx context.Context, collection string, query, patch bson.M) (Record, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	updated := Record{}
	err := m.db.Collection(collection).
		FindOneAndUpdate(ctx, query, bson.M{"$set": patch}, opts).
		Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.NewDuplicateKey(collection, err)
		}
		return nil, apperrors.NewStoreFailed("update", err)
	}
	return updated, nil
}

func (m *Mongo) DeleteByFilter(ctx context.Context, collection string, query bson.M) (int64, error) {
	result, err := m.db.Collection(collection).DeleteMany(ctx, query)
	if err != nil {
		return 0, apperrors.NewStoreFailed("delete", err)
	}
	return result.DeletedCount, nil
}
