package social

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "socialgraph/pkg/errors"
)

func befriend(t *testing.T, r *Repository, a, b string) Friendship {
	t.Helper()
	f, err := r.CreateFriendship(context.Background(), a, b)
	require.NoError(t, err)
	return f
}

func TestCreateFriendship_NormalizesPair(t *testing.T) {
	repo := newTestRepository(t)
	a := createTestUser(t, repo, "a@example.com", "A")
	b := createTestUser(t, repo, "b@example.com", "B")

	f := befriend(t, repo, b.UUID, a.UUID)

	assert.NotEmpty(t, f.UUID)
	assert.Less(t, f.User1UUID, f.User2UUID)
	assert.False(t, f.CreatedAt.IsZero())
}

func TestCreateFriendship_SelfRejected(t *testing.T) {
	repo := newTestRepository(t)
	a := createTestUser(t, repo, "a@example.com", "A")

	_, err := repo.CreateFriendship(context.Background(), a.UUID, a.UUID)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreateFriendship_UnknownUser(t *testing.T) {
	repo := newTestRepository(t)
	a := createTestUser(t, repo, "a@example.com", "A")

	_, err := repo.CreateFriendship(context.Background(), a.UUID, "missing")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = repo.CreateFriendship(context.Background(), "missing", a.UUID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreateFriendship_DuplicateEitherOrdering(t *testing.T) {
	repo := newTestRepository(t)
	a := createTestUser(t, repo, "a@example.com", "A")
	b := createTestUser(t, repo, "b@example.com", "B")
	befriend(t, repo, a.UUID, b.UUID)

	_, err := repo.CreateFriendship(context.Background(), a.UUID, b.UUID)
	assert.True(t, apperrors.IsConflict(err))

	_, err = repo.CreateFriendship(context.Background(), b.UUID, a.UUID)
	assert.True(t, apperrors.IsConflict(err))
}

func TestRemoveFriendship(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	a := createTestUser(t, repo, "a@example.com", "A")
	b := createTestUser(t, repo, "b@example.com", "B")
	befriend(t, repo, a.UUID, b.UUID)

	removed, err := repo.RemoveFriendship(ctx, b.UUID, a.UUID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.RemoveFriendship(ctx, a.UUID, b.UUID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRemoveFriendship_UnknownUser(t *testing.T) {
	repo := newTestRepository(t)
	a := createTestUser(t, repo, "a@example.com", "A")

	_, err := repo.RemoveFriendship(context.Background(), a.UUID, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetFriendship(t *testing.T) {
	repo := newTestRepository(t)
	a := createTestUser(t, repo, "a@example.com", "A")
	b := createTestUser(t, repo, "b@example.com", "B")
	created := befriend(t, repo, a.UUID, b.UUID)

	got, err := repo.GetFriendship(context.Background(), created.UUID)
	require.NoError(t, err)
	assert.Equal(t, created.User1UUID, got.User1UUID)
	assert.Equal(t, created.User2UUID, got.User2UUID)

	_, err = repo.GetFriendship(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetFriendshipStatus(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	a := createTestUser(t, repo, "a@example.com", "A")
	b := createTestUser(t, repo, "b@example.com", "B")
	c := createTestUser(t, repo, "c@example.com", "C")
	created := befriend(t, repo, a.UUID, b.UUID)

	status, err := repo.GetFriendshipStatus(ctx, b.UUID, a.UUID)
	require.NoError(t, err)
	assert.True(t, status.AreFriends)
	assert.Equal(t, created.UUID, status.FriendshipUUID)
	require.NotNil(t, status.Since)
	assert.Equal(t, created.CreatedAt, *status.Since)

	status, err = repo.GetFriendshipStatus(ctx, a.UUID, c.UUID)
	require.NoError(t, err)
	assert.False(t, status.AreFriends)
	assert.Empty(t, status.FriendshipUUID)
	assert.Nil(t, status.Since)
}

func TestMutualFriends_Intersection(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	x := createTestUser(t, repo, "x@example.com", "X")
	y := createTestUser(t, repo, "y@example.com", "Y")
	z := createTestUser(t, repo, "z@example.com", "Z")
	w := createTestUser(t, repo, "w@example.com", "W")
	a := createTestUser(t, repo, "a@example.com", "A")
	b := createTestUser(t, repo, "b@example.com", "B")

	// a is friends with x, y, z; b is friends with y, z, w.
	for _, friend := range []User{x, y, z} {
		befriend(t, repo, a.UUID, friend.UUID)
	}
	for _, friend := range []User{y, z, w} {
		befriend(t, repo, b.UUID, friend.UUID)
	}

	page, err := repo.MutualFriends(ctx, a.UUID, b.UUID, 10, "")
	require.NoError(t, err)
	require.Len(t, page.Users, 2)
	assert.False(t, page.HasNext)

	got := map[string]bool{}
	for _, u := range page.Users {
		got[u.UUID] = true
	}
	assert.True(t, got[y.UUID])
	assert.True(t, got[z.UUID])
}

func TestMutualFriends_Paginated(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	a := createTestUser(t, repo, "a@example.com", "A")
	b := createTestUser(t, repo, "b@example.com", "B")

	for i := 0; i < 5; i++ {
		shared := createTestUser(t, repo, fmt.Sprintf("s%d@example.com", i), "Shared")
		befriend(t, repo, a.UUID, shared.UUID)
		befriend(t, repo, b.UUID, shared.UUID)
	}

	seen := map[string]bool{}
	cursor := ""
	for {
		page, err := repo.MutualFriends(ctx, a.UUID, b.UUID, 2, cursor)
		require.NoError(t, err)
		for _, u := range page.Users {
			assert.False(t, seen[u.UUID])
			seen[u.UUID] = true
		}
		if !page.HasNext {
			break
		}
		cursor = page.EndCursor()
	}
	assert.Len(t, seen, 5)
}

func TestMutualFriends_EmptyIntersection(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	a := createTestUser(t, repo, "a@example.com", "A")
	b := createTestUser(t, repo, "b@example.com", "B")
	c := createTestUser(t, repo, "c@example.com", "C")
	befriend(t, repo, a.UUID, c.UUID)

	page, err := repo.MutualFriends(ctx, a.UUID, b.UUID, 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Users)
	assert.False(t, page.HasNext)
}

func TestCountFriendsAndMutuals(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	a := createTestUser(t, repo, "a@example.com", "A")
	b := createTestUser(t, repo, "b@example.com", "B")
	c := createTestUser(t, repo, "c@example.com", "C")
	befriend(t, repo, a.UUID, b.UUID)
	befriend(t, repo, a.UUID, c.UUID)
	befriend(t, repo, b.UUID, c.UUID)

	assert.Equal(t, int64(2), repo.CountFriends(ctx, a.UUID))
	assert.Equal(t, int64(1), repo.CountMutualFriends(ctx, a.UUID, b.UUID))
}

func TestNormalizePair(t *testing.T) {
	u1, u2 := normalizePair("bbb", "aaa")
	assert.Equal(t, "aaa", u1)
	assert.Equal(t, "bbb", u2)

	u1, u2 = normalizePair("aaa", "bbb")
	assert.Equal(t, "aaa", u1)
	assert.Equal(t, "bbb", u2)
}
