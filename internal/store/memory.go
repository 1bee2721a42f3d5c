package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "socialgraph/pkg/errors"
)

// Memory is an in-process Store used by tests and for local development
// (STORE_BACKEND=memory). It enforces the same unique indexes as the Mongo
// store and evaluates the query subset the filter compiler and repositories
// emit: equality, $gt, $gte, $lt, $lte, $ne, $in, $or, and $regex with the
// "i" option.
type Memory struct {
	mu      sync.Mutex
	seq     uint64
	records map[string][]Record
	unique  map[string][][]string
}

// NewMemory creates an empty in-memory store with the standard indexes.
func NewMemory() *Memory {
	return &Memory{
		records: map[string][]Record{},
		unique: map[string][][]string{
			CollectionUsers: {
				{"uuid"},
				{"email"},
				{"referral_code"},
			},
			CollectionFriendships: {
				{"uuid"},
				{"user1_uuid", "user2_uuid"},
			},
		},
	}
}

// nextID issues identifiers that are strictly increasing in insertion order,
// independent of the wall clock.
func (m *Memory) nextID() primitive.ObjectID {
	m.seq++
	var id primitive.ObjectID
	binary.BigEndian.PutUint32(id[0:4], uint32(time.Now().Unix()>>16))
	binary.BigEndian.PutUint64(id[4:12], m.seq)
	return id
}

func (m *Memory) Find(ctx context.Context, collection string, query bson.M, srt bson.D, limit int64) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := []Record{}
	for _, rec := range m.records[collection] {
		ok, err := match(query, rec)
		if err != nil {
			return nil, apperrors.NewStoreFailed("find", err)
		}
		if ok {
			matched = append(matched, copyRecord(rec))
		}
	}

	if len(srt) > 0 {
		sortRecords(matched, srt)
	}
	if limit > 0 && int64(len(matched)) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *Memory) Count(ctx context.Context, collection string, query bson.M) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, rec := range m.records[collection] {
		ok, err := match(query, rec)
		if err != nil {
			return 0, apperrors.NewStoreFailed("count", err)
		}
		if ok {
			count++
		}
	}
	return count, nil
}

func (m *Memory) Insert(ctx context.Context, collection string, rec Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := copyRecord(rec)
	stored["_id"] = m.nextID()

	if err := m.checkUnique(collection, stored, -1); err != nil {
		return nil, err
	}

	m.records[collection] = append(m.records[collection], stored)
	return copyRecord(stored), nil
}

func (m *Memory) UpdateByFilter(ctx context.Context, collection string, query, patch bson.M) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, rec := range m.records[collection] {
		ok, err := match(query, rec)
		if err != nil {
			return nil, apperrors.NewStoreFailed("update", err)
		}
		if !ok {
			continue
		}

		updated := copyRecord(rec)
		for k, v := range patch {
			updated[k] = v
		}
		if err := m.checkUnique(collection, updated, i); err != nil {
			return nil, err
		}
		m.records[collection][i] = updated
		return copyRecord(updated), nil
	}
	return nil, nil
}

func (m *Memory) DeleteByFilter(ctx context.Context, collection string, query bson.M) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[collection][:0]
	var deleted int64
	for _, rec := range m.records[collection] {
		ok, err := match(query, rec)
		if err != nil {
			return 0, apperrors.NewStoreFailed("delete", err)
		}
		if ok {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	m.records[collection] = kept
	return deleted, nil
}

// checkUnique enforces the collection's unique indexes against every record
// except the one at position self (-1 for inserts).
func (m *Memory) checkUnique(collection string, candidate Record, self int) error {
	for _, fields := range m.unique[collection] {
		for i, other := range m.records[collection] {
			if i == self {
				continue
			}
			same := true
			for _, f := range fields {
				if !valuesEqual(candidate[f], other[f]) {
					same = false
					break
				}
			}
			if same {
				return apperrors.NewDuplicateKey(collection,
					fmt.Errorf("duplicate value for index on %s", strings.Join(fields, ",")))
			}
		}
	}
	return nil
}

func copyRecord(rec Record) Record {
	out := Record{}
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// match evaluates a bson.M query against a record.
func match(query bson.M, rec Record) (bool, error) {
	for key, cond := range query {
		if key == "$or" {
			ok, err := matchOr(cond, rec)
			if err != nil || !ok {
				return false, err
			}
			continue
		}

		ops, isOps := cond.(bson.M)
		if !isOps {
			if !valuesEqual(rec[key], cond) {
				return false, nil
			}
			continue
		}

		for op, want := range ops {
			ok, err := matchOp(op, rec[key], want)
			if err != nil || !ok {
				return false, err
			}
		}
	}
	return true, nil
}

func matchOr(cond any, rec Record) (bool, error) {
	var subs []bson.M
	switch v := cond.(type) {
	case []bson.M:
		subs = v
	case []any:
		for _, s := range v {
			sub, ok := s.(bson.M)
			if !ok {
				return false, fmt.Errorf("unsupported $or clause %T", s)
			}
			subs = append(subs, sub)
		}
	default:
		return false, fmt.Errorf("unsupported $or value %T", cond)
	}

	for _, sub := range subs {
		ok, err := match(sub, rec)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func matchOp(op string, have, want any) (bool, error) {
	switch op {
	case "$gt":
		cmp, ok := compareValues(have, want)
		return ok && cmp > 0, nil
	case "$gte":
		cmp, ok := compareValues(have, want)
		return ok && cmp >= 0, nil
	case "$lt":
		cmp, ok := compareValues(have, want)
		return ok && cmp < 0, nil
	case "$lte":
		cmp, ok := compareValues(have, want)
		return ok && cmp <= 0, nil
	case "$ne":
		return !valuesEqual(have, want), nil
	case "$in":
		for _, v := range toSlice(want) {
			if valuesEqual(have, v) {
				return true, nil
			}
		}
		return false, nil
	case "$regex":
		s, ok := have.(string)
		if !ok {
			return false, nil
		}
		pattern, ok := want.(string)
		if !ok {
			return false, fmt.Errorf("unsupported $regex value %T", want)
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return false, err
		}
		return re.MatchString(s), nil
	case "$options":
		// Consumed together with $regex; only "i" is emitted.
		return true, nil
	default:
		return false, fmt.Errorf("unsupported operator %s", op)
	}
}

func toSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out
	case bson.A:
		return s
	default:
		return []any{v}
	}
}

func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	if cmp, ok := compareValues(a, b); ok {
		return cmp == 0
	}
	return a == b
}

// compareValues orders two values of the same kind. The second return is
// false when the values are not comparable.
func compareValues(a, b any) (int, bool) {
	switch av := a.(type) {
	case primitive.ObjectID:
		bv, ok := b.(primitive.ObjectID)
		if !ok {
			return 0, false
		}
		return bytes.Compare(av[:], bv[:]), true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		switch {
		case av.Before(bv):
			return -1, true
		case av.After(bv):
			return 1, true
		default:
			return 0, true
		}
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	case int, int32, int64, float64:
		af, _ := toFloat(a)
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func sortRecords(records []Record, srt bson.D) {
	sort.SliceStable(records, func(i, j int) bool {
		for _, key := range srt {
			dir := 1
			if d, ok := toFloat(key.Value); ok && d < 0 {
				dir = -1
			}
			cmp, ok := compareValues(records[i][key.Key], records[j][key.Key])
			if !ok || cmp == 0 {
				continue
			}
			return cmp*dir < 0
		}
		return false
	})
}
