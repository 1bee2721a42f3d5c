package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection names.
const (
	CollectionUsers       = "users"
	CollectionFriendships = "friendships"
)

// Record is a schema-less document held by a collection. Every stored record
// carries a store-assigned "_id" that is strictly increasing in insertion
// order and unique within its collection.
type Record = bson.M

// ID extracts the store identifier of a record. The second return is false
// when the record has no identifier (it was never stored).
func ID(rec Record) (primitive.ObjectID, bool) {
	id, ok := rec["_id"].(primitive.ObjectID)
	return id, ok
}

// Store is the persistence contract the query and domain layers are built on.
//
// Implementations must guarantee the identifier ordering above, and must
// enforce uniqueness constraints atomically at insert/update time, reporting
// violations as *errors.ErrDuplicateKey.
type Store interface {
	// Find returns records matching query, ordered by sort, at most limit
	// (no limit when limit <= 0).
	Find(ctx context.Context, collection string, query bson.M, sort bson.D, limit int64) ([]Record, error)

	// Count returns the number of records matching query.
	Count(ctx context.Context, collection string, query bson.M) (int64, error)

	// Insert stores rec, assigns its identifier and returns the stored record.
	Insert(ctx context.Context, collection string, rec Record) (Record, error)

	// UpdateByFilter sets the fields of patch on the first record matching
	// query and returns the updated record, or nil when nothing matched.
	UpdateByFilter(ctx context.Context, collection string, query, patch bson.M) (Record, error)

	// DeleteByFilter removes all records matching query and returns how many
	// were deleted.
	DeleteByFilter(ctx context.Context, collection string, query bson.M) (int64, error)
}
