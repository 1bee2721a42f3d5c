package rest

import "socialgraph/internal/social"

// offsetListResponse is the offset-style listing shape: a flat item list
// with a total. Offset listings make no stability promise under concurrent
// inserts.
type offsetListResponse struct {
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Items    []social.User `json:"items"`
}

// userListResponse is the cursor-style listing shape: items, the cursor to
// continue from, and the continuation flag.
type userListResponse struct {
	Items       []social.User `json:"items"`
	Cursor      string        `json:"cursor,omitempty"`
	HasNextPage bool          `json:"has_next_page"`
}

// cursorListResponse shapes a paginated domain result for the REST surface.
func cursorListResponse(page social.UserPage) userListResponse {
	items := page.Users
	if items == nil {
		items = []social.User{}
	}
	return userListResponse{
		Items:       items,
		Cursor:      page.EndCursor(),
		HasNextPage: page.HasNext,
	}
}
