// Package query holds the filtering and cursor-pagination engine shared by
// every list-returning operation. Filters are declarative field predicates
// compiled into store-native bson queries; pagination is forward-only over
// the store's insertion-ordered identifiers.
package query

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"

	apperrors "socialgraph/pkg/errors"
)

// FieldMap translates logical filter field names into stored field names,
// e.g. "name_contains" -> "name" or "created_after" -> "created_at".
type FieldMap map[string]string

type op int

const (
	opContains op = iota
	opEquals
	opGreaterThan
	opLessThan
	opIn
)

// Predicate is a single field condition.
type Predicate struct {
	op     op
	value  any
	values []any
}

// Contains matches records whose field contains s, case-insensitively.
// The needle is escaped, so it is always a literal substring match.
func Contains(s string) Predicate { return Predicate{op: opContains, value: s} }

// Equals matches records whose field equals v.
func Equals(v any) Predicate { return Predicate{op: opEquals, value: v} }

// GreaterThan matches records whose field is strictly greater than v.
func GreaterThan(v any) Predicate { return Predicate{op: opGreaterThan, value: v} }

// LessThan matches records whose field is strictly less than v.
func LessThan(v any) Predicate { return Predicate{op: opLessThan, value: v} }

// In matches records whose field equals any of values. An empty set matches
// nothing.
func In(values ...any) Predicate { return Predicate{op: opIn, values: values} }

// InStrings is In over a string slice.
func InStrings(values []string) Predicate {
	anys := make([]any, len(values))
	for i, v := range values {
		anys[i] = v
	}
	return In(anys...)
}

// Filter is a conjunction of field predicates, optionally with a
// disjunction of sub-filters. The zero value matches everything.
type Filter struct {
	Fields map[string]Predicate
	Or     []Filter
}

// Compiler translates Filters into store-native queries for one collection's
// field vocabulary.
type Compiler struct {
	fields FieldMap
}

// NewCompiler creates a compiler with the given logical-to-stored field map.
func NewCompiler(fields FieldMap) *Compiler {
	return &Compiler{fields: fields}
}

// Compile translates f into a bson query. Unknown logical fields are rejected
// with ErrInvalidFilter; predicates with nil values are omitted, never
// compiled to "equals null"; an empty filter compiles to match-all.
func (c *Compiler) Compile(f Filter) (bson.M, error) {
	query := bson.M{}

	for field, pred := range f.Fields {
		stored, ok := c.fields[field]
		if !ok {
			return nil, apperrors.NewInvalidFilter(field)
		}
		if pred.op != opIn && pred.value == nil {
			continue
		}

		switch pred.op {
		case opContains:
			query[stored] = bson.M{
				"$regex":   regexp.QuoteMeta(pred.value.(string)),
				"$options": "i",
			}
		case opEquals:
			query[stored] = pred.value
		case opGreaterThan:
			mergeRange(query, stored, "$gt", pred.value)
		case opLessThan:
			mergeRange(query, stored, "$lt", pred.value)
		case opIn:
			values := pred.values
			if values == nil {
				values = []any{}
			}
			query[stored] = bson.M{"$in": values}
		}
	}

	if len(f.Or) > 0 {
		subs := make([]bson.M, 0, len(f.Or))
		for _, sub := range f.Or {
			compiled, err := c.Compile(sub)
			if err != nil {
				return nil, err
			}
			subs = append(subs, compiled)
		}
		query["$or"] = subs
	}

	return query, nil
}

// mergeRange composes range operators on the same stored field, so
// created_after and created_before conjoin into one {$gt, $lt} clause.
func mergeRange(query bson.M, field, operator string, value any) {
	if existing, ok := query[field].(bson.M); ok {
		existing[operator] = value
		return
	}
	query[field] = bson.M{operator: value}
}
