package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	apperrors "socialgraph/pkg/errors"
)

func insertUser(t *testing.T, m *Memory, uuid, email, name string) Record {
	t.Helper()
	rec, err := m.Insert(context.Background(), CollectionUsers, Record{
		"uuid":          uuid,
		"email":         email,
		"name":          name,
		"referral_code": "code-" + uuid,
	})
	require.NoError(t, err)
	return rec
}

func TestMemory_InsertAssignsIncreasingIdentifiers(t *testing.T) {
	m := NewMemory()

	var prev string
	for i := 0; i < 5; i++ {
		rec := insertUser(t, m, fmt.Sprintf("u%d", i), fmt.Sprintf("u%d@x.com", i), "n")
		id, ok := ID(rec)
		require.True(t, ok)
		assert.Greater(t, id.Hex(), prev)
		prev = id.Hex()
	}
}

func TestMemory_UniqueIndexEnforced(t *testing.T) {
	m := NewMemory()
	insertUser(t, m, "u1", "dup@x.com", "First")

	_, err := m.Insert(context.Background(), CollectionUsers, Record{
		"uuid":          "u2",
		"email":         "dup@x.com",
		"name":          "Second",
		"referral_code": "other",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestMemory_UpdateRespectsUniqueIndex(t *testing.T) {
	m := NewMemory()
	insertUser(t, m, "u1", "a@x.com", "A")
	insertUser(t, m, "u2", "b@x.com", "B")

	_, err := m.UpdateByFilter(context.Background(), CollectionUsers,
		bson.M{"uuid": "u2"}, bson.M{"email": "a@x.com"})
	assert.True(t, apperrors.IsConflict(err))
}

func TestMemory_UpdateReturnsNilWhenNothingMatches(t *testing.T) {
	m := NewMemory()

	updated, err := m.UpdateByFilter(context.Background(), CollectionUsers,
		bson.M{"uuid": "ghost"}, bson.M{"name": "X"})
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestMemory_FindSupportsOrAndRegex(t *testing.T) {
	m := NewMemory()
	insertUser(t, m, "u1", "alice@x.com", "Alice")
	insertUser(t, m, "u2", "bob@x.com", "Bob")
	insertUser(t, m, "u3", "carol@x.com", "Carol")

	records, err := m.Find(context.Background(), CollectionUsers, bson.M{
		"$or": []bson.M{
			{"name": bson.M{"$regex": "ali", "$options": "i"}},
			{"email": "bob@x.com"},
		},
	}, bson.D{{Key: "_id", Value: 1}}, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Alice", records[0]["name"])
	assert.Equal(t, "Bob", records[1]["name"])
}

func TestMemory_FindSortDescendingAndLimit(t *testing.T) {
	m := NewMemory()
	insertUser(t, m, "u1", "a@x.com", "A")
	insertUser(t, m, "u2", "b@x.com", "B")
	insertUser(t, m, "u3", "c@x.com", "C")

	records, err := m.Find(context.Background(), CollectionUsers, bson.M{},
		bson.D{{Key: "_id", Value: -1}}, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "C", records[0]["name"])
	assert.Equal(t, "B", records[1]["name"])
}

func TestMemory_DeleteByFilter(t *testing.T) {
	m := NewMemory()
	insertUser(t, m, "u1", "a@x.com", "gone")
	insertUser(t, m, "u2", "b@x.com", "gone")
	insertUser(t, m, "u3", "c@x.com", "kept")

	deleted, err := m.DeleteByFilter(context.Background(), CollectionUsers, bson.M{"name": "gone"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	count, err := m.Count(context.Background(), CollectionUsers, bson.M{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemory_ReturnedRecordsAreCopies(t *testing.T) {
	m := NewMemory()
	insertUser(t, m, "u1", "a@x.com", "A")

	records, err := m.Find(context.Background(), CollectionUsers, bson.M{}, nil, 0)
	require.NoError(t, err)
	records[0]["name"] = "mutated"

	fresh, err := m.Find(context.Background(), CollectionUsers, bson.M{}, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "A", fresh[0]["name"])
}
