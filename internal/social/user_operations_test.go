package social

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialgraph/internal/store"
	apperrors "socialgraph/pkg/errors"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(store.NewMemory())
}

func createTestUser(t *testing.T, r *Repository, email, name string) User {
	t.Helper()
	user, err := r.CreateUser(context.Background(), CreateUserInput{
		Email:    email,
		Name:     name,
		IsActive: true,
	})
	require.NoError(t, err)
	return user
}

func TestCreateUser_GeneratesIdentity(t *testing.T) {
	repo := newTestRepository(t)

	user := createTestUser(t, repo, "alice@example.com", "Alice")

	assert.NotEmpty(t, user.UUID)
	assert.Len(t, user.ReferralCode, referralCodeLength)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.False(t, user.CreatedAt.IsZero())
	assert.Equal(t, user.CreatedAt, user.UpdatedAt)
	assert.Empty(t, user.ReferredBy)
}

func TestCreateUser_ResolvesReferralCode(t *testing.T) {
	repo := newTestRepository(t)
	referrer := createTestUser(t, repo, "ref@example.com", "Referrer")

	referred, err := repo.CreateUser(context.Background(), CreateUserInput{
		Email:        "new@example.com",
		Name:         "New",
		IsActive:     true,
		ReferralCode: referrer.ReferralCode,
	})
	require.NoError(t, err)
	assert.Equal(t, referrer.UUID, referred.ReferredBy)
	assert.NotEqual(t, referrer.ReferralCode, referred.ReferralCode)
}

func TestCreateUser_IgnoresUnknownReferralCode(t *testing.T) {
	repo := newTestRepository(t)

	user, err := repo.CreateUser(context.Background(), CreateUserInput{
		Email:        "a@example.com",
		Name:         "A",
		ReferralCode: "no-such-code",
	})
	require.NoError(t, err)
	assert.Empty(t, user.ReferredBy)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	repo := newTestRepository(t)
	createTestUser(t, repo, "taken@example.com", "First")

	_, err := repo.CreateUser(context.Background(), CreateUserInput{
		Email: "taken@example.com",
		Name:  "Second",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestGetUser(t *testing.T) {
	repo := newTestRepository(t)
	created := createTestUser(t, repo, "a@example.com", "A")

	got, err := repo.GetUser(context.Background(), created.UUID)
	require.NoError(t, err)
	assert.Equal(t, created.UUID, got.UUID)
	assert.Equal(t, created.ReferralCode, got.ReferralCode)

	_, err = repo.GetUser(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetUserByEmail(t *testing.T) {
	repo := newTestRepository(t)
	created := createTestUser(t, repo, "mail@example.com", "M")

	got, err := repo.GetUserByEmail(context.Background(), "mail@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.UUID, got.UUID)

	_, err = repo.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestPatchUser_PartialUpdate(t *testing.T) {
	repo := newTestRepository(t)
	created := createTestUser(t, repo, "a@example.com", "Before")

	name := "After"
	updated, err := repo.PatchUser(context.Background(), created.UUID, UserPatch{Name: &name})
	require.NoError(t, err)

	assert.Equal(t, "After", updated.Name)
	assert.Equal(t, created.Email, updated.Email)
	assert.Equal(t, created.IsActive, updated.IsActive)
	assert.Equal(t, created.UUID, updated.UUID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
}

func TestPatchUser_EmptyPatchIsNoop(t *testing.T) {
	repo := newTestRepository(t)
	created := createTestUser(t, repo, "a@example.com", "A")

	got, err := repo.PatchUser(context.Background(), created.UUID, UserPatch{})
	require.NoError(t, err)
	assert.Equal(t, created.UpdatedAt, got.UpdatedAt)
}

func TestPatchUser_NotFound(t *testing.T) {
	repo := newTestRepository(t)

	name := "X"
	_, err := repo.PatchUser(context.Background(), "missing", UserPatch{Name: &name})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateUser_ReplacesMutableFields(t *testing.T) {
	repo := newTestRepository(t)
	created := createTestUser(t, repo, "old@example.com", "Old")

	updated, err := repo.UpdateUser(context.Background(), created.UUID, "new@example.com", "New", false)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Equal(t, "New", updated.Name)
	assert.False(t, updated.IsActive)
	assert.Equal(t, created.ReferralCode, updated.ReferralCode)
}

func TestDeleteUser_CascadesFriendships(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	a := createTestUser(t, repo, "a@example.com", "A")
	b := createTestUser(t, repo, "b@example.com", "B")
	_, err := repo.CreateFriendship(ctx, a.UUID, b.UUID)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteUser(ctx, a.UUID))

	_, err = repo.GetUser(ctx, a.UUID)
	assert.True(t, apperrors.IsNotFound(err))

	friends, err := repo.GetFriends(ctx, b.UUID, 10, "")
	require.NoError(t, err)
	assert.Empty(t, friends.Users)
}

func TestDeleteUser_NotFound(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.DeleteUser(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListUsers_FilterAndPagination(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		createTestUser(t, repo, fmt.Sprintf("match%d@example.com", i), "Match")
	}
	createTestUser(t, repo, "other@example.com", "Other")

	page, err := repo.ListUsers(ctx, ListUsersRequest{
		Filter:   UserFilter{NameContains: "match"}, // case-insensitive
		PageSize: 3,
	})
	require.NoError(t, err)
	assert.Len(t, page.Users, 3)
	assert.True(t, page.HasNext)

	rest, err := repo.ListUsers(ctx, ListUsersRequest{
		Filter:   UserFilter{NameContains: "match"},
		PageSize: 3,
		Cursor:   page.EndCursor(),
	})
	require.NoError(t, err)
	assert.Len(t, rest.Users, 2)
	assert.False(t, rest.HasNext)
}

func TestListUsers_FilterByActivity(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	createTestUser(t, repo, "active@example.com", "Active")
	_, err := repo.CreateUser(ctx, CreateUserInput{Email: "inactive@example.com", Name: "Inactive"})
	require.NoError(t, err)

	active := true
	page, err := repo.ListUsers(ctx, ListUsersRequest{
		Filter:   UserFilter{IsActive: &active},
		PageSize: 10,
	})
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "Active", page.Users[0].Name)
}

func TestListUsers_CreatedAtWindow(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	createTestUser(t, repo, "a@example.com", "A")

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)
	page, err := repo.ListUsers(ctx, ListUsersRequest{
		Filter:   UserFilter{CreatedAfter: &past, CreatedBefore: &future},
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.Len(t, page.Users, 1)

	page, err = repo.ListUsers(ctx, ListUsersRequest{
		Filter:   UserFilter{CreatedBefore: &past},
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.Empty(t, page.Users)
}

func TestListUsersOffset(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		createTestUser(t, repo, fmt.Sprintf("u%d@example.com", i), fmt.Sprintf("User %d", i))
	}

	first, err := repo.ListUsersOffset(ctx, UserFilter{}, 1, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, "User 0", first[0].Name)

	third, err := repo.ListUsersOffset(ctx, UserFilter{}, 3, 3)
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Equal(t, "User 6", third[0].Name)

	empty, err := repo.ListUsersOffset(ctx, UserFilter{}, 4, 3)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestListUsersOffset_RejectsBadArguments(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.ListUsersOffset(context.Background(), UserFilter{}, 0, 10)
	assert.True(t, apperrors.IsValidation(err))

	_, err = repo.ListUsersOffset(context.Background(), UserFilter{}, 1, 0)
	assert.True(t, apperrors.IsValidation(err))
}

func TestSearchUsers_MatchesNameOrEmail(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	createTestUser(t, repo, "alice@example.com", "Alice Smith")
	createTestUser(t, repo, "smith@example.com", "Bob")
	createTestUser(t, repo, "carol@example.com", "Carol")

	page, err := repo.SearchUsers(ctx, "smith", 10, "")
	require.NoError(t, err)
	require.Len(t, page.Users, 2)
	assert.Equal(t, "Alice Smith", page.Users[0].Name)
	assert.Equal(t, "Bob", page.Users[1].Name)
}

func TestCountUsers(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	createTestUser(t, repo, "a@example.com", "A")
	createTestUser(t, repo, "b@example.com", "B")

	count, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	assert.Equal(t, int64(1), repo.CountUsersFiltered(ctx, UserFilter{NameContains: "a"}))
	assert.Equal(t, int64(2), repo.CountSearchUsers(ctx, "example.com"))
}

func TestGetFriends_Pagination(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	owner := createTestUser(t, repo, "owner@example.com", "Owner")

	var friends []User
	for i := 0; i < 5; i++ {
		f := createTestUser(t, repo, fmt.Sprintf("f%d@example.com", i), fmt.Sprintf("Friend %d", i))
		_, err := repo.CreateFriendship(ctx, owner.UUID, f.UUID)
		require.NoError(t, err)
		friends = append(friends, f)
	}

	seen := map[string]bool{}
	cursor := ""
	pages := 0
	for {
		page, err := repo.GetFriends(ctx, owner.UUID, 2, cursor)
		require.NoError(t, err)
		for _, u := range page.Users {
			assert.False(t, seen[u.UUID], "friend returned twice")
			seen[u.UUID] = true
		}
		pages++
		if !page.HasNext {
			break
		}
		cursor = page.EndCursor()
	}

	assert.Equal(t, 3, pages)
	assert.Len(t, seen, len(friends))
	for _, f := range friends {
		assert.True(t, seen[f.UUID])
	}
}

func TestGetFriends_UnknownUser(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetFriends(context.Background(), "missing", 10, "")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetReferralStats(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	referrer := createTestUser(t, repo, "ref@example.com", "Referrer")

	for i := 0; i < 3; i++ {
		_, err := repo.CreateUser(ctx, CreateUserInput{
			Email:        fmt.Sprintf("r%d@example.com", i),
			Name:         fmt.Sprintf("Referred %d", i),
			ReferralCode: referrer.ReferralCode,
		})
		require.NoError(t, err)
	}
	createTestUser(t, repo, "unrelated@example.com", "Unrelated")

	stats, err := repo.GetReferralStats(ctx, referrer.UUID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalReferrals)
	require.Len(t, stats.ReferredUsers, 3)
	for _, u := range stats.ReferredUsers {
		assert.Equal(t, referrer.UUID, u.ReferredBy)
	}

	_, err = repo.GetReferralStats(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListReferredUsers(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	referrer := createTestUser(t, repo, "ref@example.com", "Referrer")
	for i := 0; i < 3; i++ {
		_, err := repo.CreateUser(ctx, CreateUserInput{
			Email:        fmt.Sprintf("r%d@example.com", i),
			Name:         "Referred",
			ReferralCode: referrer.ReferralCode,
		})
		require.NoError(t, err)
	}

	page, err := repo.ListReferredUsers(ctx, referrer.UUID, 2, "")
	require.NoError(t, err)
	assert.Len(t, page.Users, 2)
	assert.True(t, page.HasNext)

	rest, err := repo.ListReferredUsers(ctx, referrer.UUID, 2, page.EndCursor())
	require.NoError(t, err)
	assert.Len(t, rest.Users, 1)
	assert.False(t, rest.HasNext)
}

func TestUserFilter_ToQueryOmitsUnsetFields(t *testing.T) {
	f := UserFilter{NameContains: "x"}
	q := f.toQuery()
	assert.Len(t, q.Fields, 1)
	assert.Empty(t, q.Or)
}
