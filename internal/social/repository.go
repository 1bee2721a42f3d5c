// Package social is the domain repository for users, friendships and
// referrals, built on the record store through the query engine.
package social

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"socialgraph/internal/query"
	"socialgraph/internal/store"
	apperrors "socialgraph/pkg/errors"
	"socialgraph/pkg/logger"
)

// userFields is the logical-to-stored field vocabulary for user listings.
var userFields = query.FieldMap{
	"uuid":           "uuid",
	"name_contains":  "name",
	"email_contains": "email",
	"is_active":      "is_active",
	"created_after":  "created_at",
	"created_before": "created_at",
	"referred_by":    "referred_by",
}

// friendshipFields is the vocabulary for friendship listings.
var friendshipFields = query.FieldMap{
	"uuid":       "uuid",
	"user1_uuid": "user1_uuid",
	"user2_uuid": "user2_uuid",
}

// Repository handles all social-graph persistence operations
type Repository struct {
	store       store.Store
	logger      *zap.Logger
	users       *query.Paginator
	friendships *query.Paginator
}

// NewRepository creates a repository over the given record store
func NewRepository(st store.Store) *Repository {
	return &Repository{
		store:       st,
		logger:      logger.Get(),
		users:       query.NewPaginator(st, store.CollectionUsers, userFields),
		friendships: query.NewPaginator(st, store.CollectionFriendships, friendshipFields),
	}
}

// findUserRecord fetches a single user record by an exact field match.
func (r *Repository) findUserRecord(ctx context.Context, field, value string) (store.Record, error) {
	records, err := r.store.Find(ctx, store.CollectionUsers, bson.M{field: value}, nil, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// requireUser returns UserNotFound when uuid does not resolve to a user.
// Used as the precondition check on friendship endpoints.
func (r *Repository) requireUser(ctx context.Context, uuid string) error {
	rec, err := r.findUserRecord(ctx, "uuid", uuid)
	if err != nil {
		return err
	}
	if rec == nil {
		return apperrors.NewUserNotFound(uuid)
	}
	return nil
}
