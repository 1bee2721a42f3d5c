package graphql

import "socialgraph/internal/social"

// userEdge is one connection edge: a user plus the cursor positioned at it.
type userEdge struct {
	Cursor string
	Node   social.User
}

// pageInfo follows the Relay convention. HasPreviousPage is not derived from
// a backward probe: backward pagination is not part of the contract, so it
// only reports whether the page was continued from a cursor.
type pageInfo struct {
	HasNextPage     bool
	HasPreviousPage bool
	StartCursor     *string
	EndCursor       *string
}

// userConnection is the edges/pageInfo/totalCount shape of every paginated
// user field.
type userConnection struct {
	Edges      []userEdge
	PageInfo   pageInfo
	TotalCount int64
}

// newUserConnection shapes a paginated domain result for the GraphQL
// surface. total is best-effort and may be 0 when counting failed.
func newUserConnection(page social.UserPage, after string, total int64) userConnection {
	edges := make([]userEdge, 0, len(page.Users))
	for i, user := range page.Users {
		edges = append(edges, userEdge{Cursor: page.Cursors[i], Node: user})
	}

	info := pageInfo{
		HasNextPage:     page.HasNext,
		HasPreviousPage: after != "",
	}
	if len(edges) > 0 {
		start := edges[0].Cursor
		end := edges[len(edges)-1].Cursor
		info.StartCursor = &start
		info.EndCursor = &end
	}

	return userConnection{Edges: edges, PageInfo: info, TotalCount: total}
}
