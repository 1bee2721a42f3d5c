package query

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"socialgraph/internal/store"
	apperrors "socialgraph/pkg/errors"
)

// Direction orders a sort ascending or descending.
type Direction string

const (
	ASC  Direction = "ASC"
	DESC Direction = "DESC"
)

// Sort is an explicit field ordering. The store identifier is always appended
// as the final tie-break so pages never duplicate or skip records when the
// sort field is non-unique.
type Sort struct {
	Field     string
	Direction Direction
}

// Page is one pagination result: at most PageSize records in order, plus
// whether more matching records exist beyond it.
type Page struct {
	Items   []store.Record
	HasNext bool
}

// CursorFor returns the opaque cursor positioned at rec, or "" when the
// record carries no identifier. Callers replay cursors verbatim and never
// construct them.
func CursorFor(rec store.Record) string {
	id, ok := store.ID(rec)
	if !ok {
		return ""
	}
	return id.Hex()
}

// EndCursor returns the cursor of the last item, or "" for an empty page.
func (p Page) EndCursor() string {
	if len(p.Items) == 0 {
		return ""
	}
	return CursorFor(p.Items[len(p.Items)-1])
}

// StartCursor returns the cursor of the first item, or "" for an empty page.
func (p Page) StartCursor() string {
	if len(p.Items) == 0 {
		return ""
	}
	return CursorFor(p.Items[0])
}

// PageRequest describes one pagination call.
type PageRequest struct {
	Filter   Filter
	Sort     *Sort // nil sorts ascending by store identifier
	PageSize int
	Cursor   string // "" starts from the beginning
}

// Paginator pages through one collection with a fixed field vocabulary.
// It owns no state between calls; a cursor is the only continuation.
type Paginator struct {
	store      store.Store
	collection string
	compiler   *Compiler
}

// NewPaginator creates a paginator over collection using fields as the
// logical-to-stored name map for both filters and sort fields.
func NewPaginator(st store.Store, collection string, fields FieldMap) *Paginator {
	return &Paginator{
		store:      st,
		collection: collection,
		compiler:   NewCompiler(fields),
	}
}

// Paginate returns one page of records. The cursor, when present, is decoded
// to a store identifier and conjoined as a strict identifier > cursor bound,
// which makes pagination forward-only and stable: records inserted after the
// cursor was issued appear only on later pages, never reshuffling earlier
// ones. One extra record is requested to derive HasNext without a count.
func (p *Paginator) Paginate(ctx context.Context, req PageRequest) (Page, error) {
	if req.PageSize <= 0 {
		return Page{}, apperrors.NewInvalidArgument("page_size", "must be positive")
	}

	q, err := p.compiler.Compile(req.Filter)
	if err != nil {
		return Page{}, err
	}

	if req.Cursor != "" {
		id, err := primitive.ObjectIDFromHex(req.Cursor)
		if err != nil {
			return Page{}, apperrors.NewInvalidCursor(req.Cursor, err)
		}
		q["_id"] = bson.M{"$gt": id}
	}

	records, err := p.store.Find(ctx, p.collection, q, p.sortSpec(req.Sort), int64(req.PageSize)+1)
	if err != nil {
		return Page{}, err
	}

	page := Page{Items: records}
	if len(records) > req.PageSize {
		page.Items = records[:req.PageSize]
		page.HasNext = true
	}
	return page, nil
}

// Count returns how many records match filter. It exists for the surfaces
// that present totals; pages themselves never pay for a count.
func (p *Paginator) Count(ctx context.Context, filter Filter) (int64, error) {
	q, err := p.compiler.Compile(filter)
	if err != nil {
		return 0, err
	}
	return p.store.Count(ctx, p.collection, q)
}

func (p *Paginator) sortSpec(s *Sort) bson.D {
	if s == nil {
		return bson.D{{Key: "_id", Value: 1}}
	}

	field := s.Field
	if stored, ok := p.compiler.fields[field]; ok {
		field = stored
	}
	dir := 1
	if s.Direction == DESC {
		dir = -1
	}

	spec := bson.D{{Key: field, Value: dir}}
	if field != "_id" {
		spec = append(spec, bson.E{Key: "_id", Value: 1})
	}
	return spec
}
