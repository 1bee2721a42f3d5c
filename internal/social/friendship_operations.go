package social

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"socialgraph/internal/query"
	"socialgraph/internal/store"
	apperrors "socialgraph/pkg/errors"
)

// normalizePair orders the two uuids lexicographically. Friendships are
// stored and queried in normalized order, so the compound unique index on
// (user1_uuid, user2_uuid) is symmetric: (A,B) and (B,A) are the same pair.
func normalizePair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

func pairQuery(a, b string) bson.M {
	u1, u2 := normalizePair(a, b)
	return bson.M{"user1_uuid": u1, "user2_uuid": u2}
}

// eitherSideQuery matches friendships where the user appears on either side.
func eitherSideQuery(userUUID string) bson.M {
	return bson.M{"$or": []bson.M{
		{"user1_uuid": userUUID},
		{"user2_uuid": userUUID},
	}}
}

func eitherSideFilter(userUUID string) query.Filter {
	return query.Filter{Or: []query.Filter{
		{Fields: map[string]query.Predicate{"user1_uuid": query.Equals(userUUID)}},
		{Fields: map[string]query.Predicate{"user2_uuid": query.Equals(userUUID)}},
	}}
}

// counterpartUUID returns the other endpoint of a friendship record.
func counterpartUUID(rec store.Record, userUUID string) string {
	if stringValue(rec["user1_uuid"]) == userUUID {
		return stringValue(rec["user2_uuid"])
	}
	return stringValue(rec["user1_uuid"])
}

// CreateFriendship records the unordered pair (a, b) as friends. Both users
// must exist, a user cannot friend themselves, and an existing friendship in
// either ordering fails with AlreadyFriends. A lost creation race surfaces
// the same way via the store's unique pair index.
func (r *Repository) CreateFriendship(ctx context.Context, a, b string) (Friendship, error) {
	if a == b {
		return Friendship{}, apperrors.NewSelfFriendship(a)
	}
	for _, u := range []string{a, b} {
		if err := r.requireUser(ctx, u); err != nil {
			return Friendship{}, err
		}
	}

	existing, err := r.store.Find(ctx, store.CollectionFriendships, pairQuery(a, b), nil, 1)
	if err != nil {
		return Friendship{}, err
	}
	if len(existing) > 0 {
		return Friendship{}, apperrors.NewAlreadyFriends(a, b)
	}

	u1, u2 := normalizePair(a, b)
	friendship := Friendship{
		UUID:      uuid.NewString(),
		User1UUID: u1,
		User2UUID: u2,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := r.store.Insert(ctx, store.CollectionFriendships, friendshipToRecord(friendship)); err != nil {
		if apperrors.IsConflict(err) {
			return Friendship{}, apperrors.NewAlreadyFriends(a, b)
		}
		return Friendship{}, err
	}

	r.logger.Info("friendship created",
		zap.String("user1", u1),
		zap.String("user2", u2),
	)
	return friendship, nil
}

// RemoveFriendship deletes the friendship between a and b irrespective of
// the order the pair is given in. Both users must exist; the return reports
// whether a record was actually deleted.
func (r *Repository) RemoveFriendship(ctx context.Context, a, b string) (bool, error) {
	for _, u := range []string{a, b} {
		if err := r.requireUser(ctx, u); err != nil {
			return false, err
		}
	}

	deleted, err := r.store.DeleteByFilter(ctx, store.CollectionFriendships, pairQuery(a, b))
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}

// GetFriendship returns the friendship with the given uuid.
func (r *Repository) GetFriendship(ctx context.Context, friendshipUUID string) (Friendship, error) {
	records, err := r.store.Find(ctx, store.CollectionFriendships, bson.M{"uuid": friendshipUUID}, nil, 1)
	if err != nil {
		return Friendship{}, err
	}
	if len(records) == 0 {
		return Friendship{}, apperrors.NewNotFound("friendship", friendshipUUID)
	}
	return friendshipFromRecord(records[0]), nil
}

// GetFriendshipStatus reports whether a and b are friends.
func (r *Repository) GetFriendshipStatus(ctx context.Context, a, b string) (FriendshipStatus, error) {
	records, err := r.store.Find(ctx, store.CollectionFriendships, pairQuery(a, b), nil, 1)
	if err != nil {
		return FriendshipStatus{}, err
	}
	if len(records) == 0 {
		return FriendshipStatus{}, nil
	}

	friendship := friendshipFromRecord(records[0])
	since := friendship.CreatedAt
	return FriendshipStatus{
		AreFriends:     true,
		FriendshipUUID: friendship.UUID,
		Since:          &since,
	}, nil
}

// MutualFriends pages through the intersection of two users' friend sets.
// Both full sets are fetched before intersecting, which is fine for small
// graphs; the page itself is a uuid-membership listing over users.
func (r *Repository) MutualFriends(ctx context.Context, a, b string, pageSize int, cursor string) (UserPage, error) {
	mutual, err := r.mutualFriendUUIDs(ctx, a, b)
	if err != nil {
		return UserPage{}, err
	}

	page, err := r.users.Paginate(ctx, query.PageRequest{
		Filter:   query.Filter{Fields: map[string]query.Predicate{"uuid": query.InStrings(mutual)}},
		PageSize: pageSize,
		Cursor:   cursor,
	})
	if err != nil {
		return UserPage{}, err
	}
	return userPageFromRecords(page), nil
}

// CountMutualFriends is the best-effort total for mutual-friend listings.
func (r *Repository) CountMutualFriends(ctx context.Context, a, b string) int64 {
	mutual, err := r.mutualFriendUUIDs(ctx, a, b)
	if err != nil {
		r.logger.Warn("mutual friend count failed, degrading to 0", zap.Error(err))
		return 0
	}
	return int64(len(mutual))
}

// CountFriends is the best-effort total of a user's friendships.
func (r *Repository) CountFriends(ctx context.Context, userUUID string) int64 {
	count, err := r.store.Count(ctx, store.CollectionFriendships, eitherSideQuery(userUUID))
	if err != nil {
		r.logger.Warn("friend count failed, degrading to 0", zap.Error(err))
		return 0
	}
	return count
}

func (r *Repository) mutualFriendUUIDs(ctx context.Context, a, b string) ([]string, error) {
	var setA, setB map[string]struct{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		setA, err = r.friendUUIDSet(gctx, a)
		return err
	})
	g.Go(func() error {
		var err error
		setB, err = r.friendUUIDSet(gctx, b)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	mutual := []string{}
	for u := range setA {
		if _, ok := setB[u]; ok {
			mutual = append(mutual, u)
		}
	}
	sort.Strings(mutual)
	return mutual, nil
}

// friendUUIDSet fetches the full friend set of one user, unbounded.
func (r *Repository) friendUUIDSet(ctx context.Context, userUUID string) (map[string]struct{}, error) {
	records, err := r.store.Find(ctx, store.CollectionFriendships, eitherSideQuery(userUUID), nil, 0)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(records))
	for _, rec := range records {
		set[counterpartUUID(rec, userUUID)] = struct{}{}
	}
	return set, nil
}
