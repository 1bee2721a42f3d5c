package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	apperrors "socialgraph/pkg/errors"
)

var testFields = FieldMap{
	"uuid":           "uuid",
	"name_contains":  "name",
	"email_contains": "email",
	"is_active":      "is_active",
	"created_after":  "created_at",
	"created_before": "created_at",
}

func TestCompile_EmptyFilterMatchesAll(t *testing.T) {
	compiled, err := NewCompiler(testFields).Compile(Filter{})
	require.NoError(t, err)
	assert.Equal(t, bson.M{}, compiled)
}

func TestCompile_UnknownFieldRejected(t *testing.T) {
	_, err := NewCompiler(testFields).Compile(Filter{
		Fields: map[string]Predicate{"nickname": Equals("x")},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCompile_ContainsIsEscapedSubstring(t *testing.T) {
	compiled, err := NewCompiler(testFields).Compile(Filter{
		Fields: map[string]Predicate{"name_contains": Contains("a.b")},
	})
	require.NoError(t, err)
	assert.Equal(t, bson.M{
		"name": bson.M{"$regex": `a\.b`, "$options": "i"},
	}, compiled)
}

func TestCompile_RangePredicatesMergeOnSameField(t *testing.T) {
	after := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	before := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	compiled, err := NewCompiler(testFields).Compile(Filter{
		Fields: map[string]Predicate{
			"created_after":  GreaterThan(after),
			"created_before": LessThan(before),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, bson.M{
		"created_at": bson.M{"$gt": after, "$lt": before},
	}, compiled)
}

func TestCompile_NilValuesOmitted(t *testing.T) {
	compiled, err := NewCompiler(testFields).Compile(Filter{
		Fields: map[string]Predicate{
			"is_active":     Equals(nil),
			"name_contains": Contains("bob"),
		},
	})
	require.NoError(t, err)
	assert.NotContains(t, compiled, "is_active")
	assert.Contains(t, compiled, "name")
}

func TestCompile_EmptyInMatchesNothing(t *testing.T) {
	compiled, err := NewCompiler(testFields).Compile(Filter{
		Fields: map[string]Predicate{"uuid": In()},
	})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"uuid": bson.M{"$in": []any{}}}, compiled)
}

func TestCompile_OrGroup(t *testing.T) {
	compiled, err := NewCompiler(testFields).Compile(Filter{
		Or: []Filter{
			{Fields: map[string]Predicate{"name_contains": Contains("bob")}},
			{Fields: map[string]Predicate{"email_contains": Contains("bob")}},
		},
	})
	require.NoError(t, err)

	subs, ok := compiled["$or"].([]bson.M)
	require.True(t, ok)
	assert.Len(t, subs, 2)
}

func TestCompile_OrGroupRejectsUnknownField(t *testing.T) {
	_, err := NewCompiler(testFields).Compile(Filter{
		Or: []Filter{{Fields: map[string]Predicate{"bogus": Equals(1)}}},
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestCompile_Idempotent(t *testing.T) {
	filter := Filter{
		Fields: map[string]Predicate{
			"name_contains": Contains("ann"),
			"is_active":     Equals(true),
			"uuid":          In("a", "b"),
		},
	}

	compiler := NewCompiler(testFields)
	first, err := compiler.Compile(filter)
	require.NoError(t, err)
	second, err := compiler.Compile(filter)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
