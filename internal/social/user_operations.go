package social

import (
	"context"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"socialgraph/internal/query"
	"socialgraph/internal/store"
	apperrors "socialgraph/pkg/errors"
)

const (
	referralCodeLength = 11

	// maxReferralCodeAttempts bounds the uniqueness retry loop; exceeding it
	// fails with ReferralCodeExhausted instead of looping forever.
	maxReferralCodeAttempts = 5
)

// CreateUserInput is the user-creation request.
type CreateUserInput struct {
	Email        string
	Name         string
	IsActive     bool
	ReferralCode string // optional: referral code of the referring user
}

// UserPatch is a partial user update; nil fields are left untouched.
// UUID, ReferralCode and CreatedAt are not patchable.
type UserPatch struct {
	Email    *string
	Name     *string
	IsActive *bool
}

// UserFilter is the filter vocabulary of user listings.
type UserFilter struct {
	NameContains  string
	EmailContains string
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	ReferredBy    string
}

func (f UserFilter) toQuery() query.Filter {
	fields := map[string]query.Predicate{}
	if f.NameContains != "" {
		fields["name_contains"] = query.Contains(f.NameContains)
	}
	if f.EmailContains != "" {
		fields["email_contains"] = query.Contains(f.EmailContains)
	}
	if f.IsActive != nil {
		fields["is_active"] = query.Equals(*f.IsActive)
	}
	if f.CreatedAfter != nil {
		fields["created_after"] = query.GreaterThan(*f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		fields["created_before"] = query.LessThan(*f.CreatedBefore)
	}
	if f.ReferredBy != "" {
		fields["referred_by"] = query.Equals(f.ReferredBy)
	}
	return query.Filter{Fields: fields}
}

// searchQuery matches q as a substring of either name or email.
func searchQuery(q string) query.Filter {
	return query.Filter{Or: []query.Filter{
		{Fields: map[string]query.Predicate{"name_contains": query.Contains(q)}},
		{Fields: map[string]query.Predicate{"email_contains": query.Contains(q)}},
	}}
}

// ListUsersRequest is one cursor-paginated user listing call.
type ListUsersRequest struct {
	Filter   UserFilter
	Sort     *query.Sort
	PageSize int
	Cursor   string
}

// CreateUser creates a user: generates the uuid and a unique referral code,
// resolves the input referral code to the referrer (silently ignored when it
// does not resolve), and timestamps the record. Concurrent creations with a
// colliding email race on the store's unique index; the loser observes
// DuplicateKey.
func (r *Repository) CreateUser(ctx context.Context, input CreateUserInput) (User, error) {
	code, err := r.ensureUniqueReferralCode(ctx)
	if err != nil {
		return User{}, err
	}

	referredBy := ""
	if input.ReferralCode != "" {
		referrer, err := r.findUserRecord(ctx, "referral_code", input.ReferralCode)
		if err != nil {
			return User{}, err
		}
		if referrer != nil {
			referredBy = stringValue(referrer["uuid"])
		}
	}

	now := time.Now().UTC()
	user := User{
		UUID:         uuid.NewString(),
		Email:        input.Email,
		Name:         input.Name,
		IsActive:     input.IsActive,
		CreatedAt:    now,
		UpdatedAt:    now,
		ReferralCode: code,
		ReferredBy:   referredBy,
	}

	if _, err := r.store.Insert(ctx, store.CollectionUsers, userToRecord(user)); err != nil {
		return User{}, err
	}

	r.logger.Info("user created", zap.String("uuid", user.UUID))
	return user, nil
}

func (r *Repository) ensureUniqueReferralCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxReferralCodeAttempts; attempt++ {
		code, err := gonanoid.New(referralCodeLength)
		if err != nil {
			return "", apperrors.NewStoreFailed("generate referral code", err)
		}
		existing, err := r.findUserRecord(ctx, "referral_code", code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", apperrors.NewReferralCodeExhausted(maxReferralCodeAttempts)
}

// GetUser returns the user with the given uuid.
func (r *Repository) GetUser(ctx context.Context, userUUID string) (User, error) {
	rec, err := r.findUserRecord(ctx, "uuid", userUUID)
	if err != nil {
		return User{}, err
	}
	if rec == nil {
		return User{}, apperrors.NewNotFound("user", userUUID)
	}
	return userFromRecord(rec), nil
}

// GetUserByEmail returns the user with the given email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	rec, err := r.findUserRecord(ctx, "email", email)
	if err != nil {
		return User{}, err
	}
	if rec == nil {
		return User{}, apperrors.NewNotFound("user", email)
	}
	return userFromRecord(rec), nil
}

// PatchUser applies the provided fields and refreshes updated_at. An empty
// patch returns the current user unchanged.
func (r *Repository) PatchUser(ctx context.Context, userUUID string, patch UserPatch) (User, error) {
	set := bson.M{}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.IsActive != nil {
		set["is_active"] = *patch.IsActive
	}
	if len(set) == 0 {
		return r.GetUser(ctx, userUUID)
	}
	set["updated_at"] = time.Now().UTC()

	updated, err := r.store.UpdateByFilter(ctx, store.CollectionUsers, bson.M{"uuid": userUUID}, set)
	if err != nil {
		return User{}, err
	}
	if updated == nil {
		return User{}, apperrors.NewNotFound("user", userUUID)
	}
	return userFromRecord(updated), nil
}

// UpdateUser replaces all mutable fields of a user.
func (r *Repository) UpdateUser(ctx context.Context, userUUID, email, name string, isActive bool) (User, error) {
	return r.PatchUser(ctx, userUUID, UserPatch{Email: &email, Name: &name, IsActive: &isActive})
}

// DeleteUser removes a user and every friendship referencing them. Referral
// back-references in other users are left dangling (tolerated by design).
func (r *Repository) DeleteUser(ctx context.Context, userUUID string) error {
	deleted, err := r.store.DeleteByFilter(ctx, store.CollectionUsers, bson.M{"uuid": userUUID})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return apperrors.NewNotFound("user", userUUID)
	}

	removed, err := r.store.DeleteByFilter(ctx, store.CollectionFriendships, eitherSideQuery(userUUID))
	if err != nil {
		return err
	}
	r.logger.Info("user deleted",
		zap.String("uuid", userUUID),
		zap.Int64("friendships_removed", removed),
	)
	return nil
}

// ListUsers returns one cursor page of users matching the filter.
func (r *Repository) ListUsers(ctx context.Context, req ListUsersRequest) (UserPage, error) {
	page, err := r.users.Paginate(ctx, query.PageRequest{
		Filter:   req.Filter.toQuery(),
		Sort:     req.Sort,
		PageSize: req.PageSize,
		Cursor:   req.Cursor,
	})
	if err != nil {
		return UserPage{}, err
	}
	return userPageFromRecords(page), nil
}

// ListUsersOffset is the offset-style listing of the REST surface: page
// numbers over a snapshotless window, no stability promise under concurrent
// inserts. The window is one identifier-ordered fetch of page*pageSize
// records sliced to the requested page.
func (r *Repository) ListUsersOffset(ctx context.Context, filter UserFilter, page, pageSize int) ([]User, error) {
	if page < 1 {
		return nil, apperrors.NewInvalidArgument("page", "must be at least 1")
	}
	if pageSize <= 0 {
		return nil, apperrors.NewInvalidArgument("page_size", "must be positive")
	}

	q, err := query.NewCompiler(userFields).Compile(filter.toQuery())
	if err != nil {
		return nil, err
	}
	records, err := r.store.Find(ctx, store.CollectionUsers, q,
		bson.D{{Key: "_id", Value: 1}}, int64(page)*int64(pageSize))
	if err != nil {
		return nil, err
	}

	start := (page - 1) * pageSize
	if start >= len(records) {
		return []User{}, nil
	}
	users := make([]User, 0, len(records)-start)
	for _, rec := range records[start:] {
		users = append(users, userFromRecord(rec))
	}
	return users, nil
}

// SearchUsers matches q against name or email, case-insensitively.
func (r *Repository) SearchUsers(ctx context.Context, q string, pageSize int, cursor string) (UserPage, error) {
	page, err := r.users.Paginate(ctx, query.PageRequest{
		Filter:   searchQuery(q),
		PageSize: pageSize,
		Cursor:   cursor,
	})
	if err != nil {
		return UserPage{}, err
	}
	return userPageFromRecords(page), nil
}

// CountUsers returns the total number of users.
func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	return r.store.Count(ctx, store.CollectionUsers, bson.M{})
}

// CountUsersFiltered is the best-effort total for paginated listings: a
// failed count degrades to 0 instead of failing the page.
func (r *Repository) CountUsersFiltered(ctx context.Context, filter UserFilter) int64 {
	count, err := r.users.Count(ctx, filter.toQuery())
	if err != nil {
		r.logger.Warn("filtered user count failed, degrading to 0", zap.Error(err))
		return 0
	}
	return count
}

// CountSearchUsers is the best-effort total of a search listing.
func (r *Repository) CountSearchUsers(ctx context.Context, q string) int64 {
	count, err := r.users.Count(ctx, searchQuery(q))
	if err != nil {
		r.logger.Warn("search count failed, degrading to 0", zap.Error(err))
		return 0
	}
	return count
}

// GetFriends returns one page of a user's friends. The cursor walks the
// friendship records (not the user records), which keeps the order stable
// between calls; each returned user is the counterpart of one friendship.
func (r *Repository) GetFriends(ctx context.Context, userUUID string, pageSize int, cursor string) (UserPage, error) {
	if err := r.requireUser(ctx, userUUID); err != nil {
		return UserPage{}, err
	}

	page, err := r.friendships.Paginate(ctx, query.PageRequest{
		Filter:   eitherSideFilter(userUUID),
		PageSize: pageSize,
		Cursor:   cursor,
	})
	if err != nil {
		return UserPage{}, err
	}

	counterparts := make([]string, 0, len(page.Items))
	for _, rec := range page.Items {
		counterparts = append(counterparts, counterpartUUID(rec, userUUID))
	}
	byUUID, err := r.usersByUUID(ctx, counterparts)
	if err != nil {
		return UserPage{}, err
	}

	out := UserPage{HasNext: page.HasNext}
	for i, rec := range page.Items {
		friend, ok := byUUID[counterparts[i]]
		if !ok {
			// Counterpart removed between the two queries.
			r.logger.Warn("friendship references missing user",
				zap.String("friend_uuid", counterparts[i]))
			continue
		}
		out.Users = append(out.Users, friend)
		out.Cursors = append(out.Cursors, query.CursorFor(rec))
	}
	return out, nil
}

// GetReferralStats returns every user referred by the given user.
func (r *Repository) GetReferralStats(ctx context.Context, userUUID string) (ReferralStats, error) {
	if _, err := r.GetUser(ctx, userUUID); err != nil {
		return ReferralStats{}, err
	}

	records, err := r.store.Find(ctx, store.CollectionUsers,
		bson.M{"referred_by": userUUID}, bson.D{{Key: "_id", Value: 1}}, 0)
	if err != nil {
		return ReferralStats{}, err
	}

	stats := ReferralStats{
		TotalReferrals: len(records),
		ReferredUsers:  make([]User, 0, len(records)),
	}
	for _, rec := range records {
		stats.ReferredUsers = append(stats.ReferredUsers, userFromRecord(rec))
	}
	return stats, nil
}

// ListReferredUsers returns one cursor page of the users referred by a user.
func (r *Repository) ListReferredUsers(ctx context.Context, userUUID string, pageSize int, cursor string) (UserPage, error) {
	return r.ListUsers(ctx, ListUsersRequest{
		Filter:   UserFilter{ReferredBy: userUUID},
		PageSize: pageSize,
		Cursor:   cursor,
	})
}

// usersByUUID batch-fetches users and indexes them by uuid.
func (r *Repository) usersByUUID(ctx context.Context, uuids []string) (map[string]User, error) {
	if len(uuids) == 0 {
		return map[string]User{}, nil
	}
	records, err := r.store.Find(ctx, store.CollectionUsers,
		bson.M{"uuid": bson.M{"$in": uuids}}, nil, 0)
	if err != nil {
		return nil, err
	}
	byUUID := make(map[string]User, len(records))
	for _, rec := range records {
		u := userFromRecord(rec)
		byUUID[u.UUID] = u
	}
	return byUUID, nil
}
