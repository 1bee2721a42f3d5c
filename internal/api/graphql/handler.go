package graphql

import (
	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"
)

// NewHandler wraps the schema in a gin handler serving POST /graphql
// requests (and the GraphiQL explorer when enabled).
func NewHandler(schema *graphql.Schema, graphiql bool) gin.HandlerFunc {
	h := handler.New(&handler.Config{
		Schema:   schema,
		Pretty:   true,
		GraphiQL: graphiql,
	})
	return gin.WrapH(h)
}
