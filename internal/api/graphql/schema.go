// Package graphql exposes the social graph as a Relay-style GraphQL schema
// built at runtime with graphql-go.
package graphql

import (
	"time"

	"github.com/graphql-go/graphql"

	"socialgraph/internal/query"
	"socialgraph/internal/social"
	apperrors "socialgraph/pkg/errors"
)

const defaultFirst = 10

// NewSchema builds the executable schema over the domain repository.
func NewSchema(repo *social.Repository) (graphql.Schema, error) {
	b := &builder{repo: repo}
	b.buildTypes()
	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    b.queryType(),
		Mutation: b.mutationType(),
	})
}

type builder struct {
	repo *social.Repository

	userType           *graphql.Object
	userConnectionType *graphql.Object
	friendshipType     *graphql.Object
	statusType         *graphql.Object
	filterInput        *graphql.InputObject
	orderInput         *graphql.InputObject
}

func (b *builder) buildTypes() {
	b.userType = graphql.NewObject(graphql.ObjectConfig{
		Name:        "User",
		Description: "A user account in the social graph",
		Fields: graphql.Fields{
			"uuid":         &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"email":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"name":         &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"isActive":     &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"createdAt":    &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
			"updatedAt":    &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
			"referralCode": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"referredBy": &graphql.Field{
				Type:        graphql.String,
				Description: "UUID of the user who referred this user",
				Resolve: func(p graphql.ResolveParams) (any, error) {
					user := p.Source.(social.User)
					if user.ReferredBy == "" {
						return nil, nil
					}
					return user.ReferredBy, nil
				},
			},
		},
	})

	pageInfoType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PageInfo",
		Fields: graphql.Fields{
			"hasNextPage":     &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"hasPreviousPage": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"startCursor":     &graphql.Field{Type: graphql.String},
			"endCursor":       &graphql.Field{Type: graphql.String},
		},
	})

	edgeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "UserEdge",
		Fields: graphql.Fields{
			"cursor": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"node":   &graphql.Field{Type: graphql.NewNonNull(b.userType)},
		},
	})

	b.userConnectionType = graphql.NewObject(graphql.ObjectConfig{
		Name: "UserConnection",
		Fields: graphql.Fields{
			"edges":      &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(edgeType)))},
			"pageInfo":   &graphql.Field{Type: graphql.NewNonNull(pageInfoType)},
			"totalCount": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		},
	})

	b.statusType = graphql.NewObject(graphql.ObjectConfig{
		Name: "FriendshipStatus",
		Fields: graphql.Fields{
			"areFriends": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"friendshipUuid": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					status := p.Source.(social.FriendshipStatus)
					if status.FriendshipUUID == "" {
						return nil, nil
					}
					return status.FriendshipUUID, nil
				},
			},
			"friendshipDate": &graphql.Field{
				Type: graphql.DateTime,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					status := p.Source.(social.FriendshipStatus)
					if status.Since == nil {
						return nil, nil
					}
					return *status.Since, nil
				},
			},
		},
	})

	b.friendshipType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Friendship",
		Fields: graphql.Fields{
			"uuid":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"user1Uuid": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"user2Uuid": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"createdAt": &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
			"user1": &graphql.Field{
				Type: graphql.NewNonNull(b.userType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return b.repo.GetUser(p.Context, p.Source.(social.Friendship).User1UUID)
				},
			},
			"user2": &graphql.Field{
				Type: graphql.NewNonNull(b.userType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return b.repo.GetUser(p.Context, p.Source.(social.Friendship).User2UUID)
				},
			},
		},
	})

	b.filterInput = graphql.NewInputObject(graphql.InputObjectConfig{
		Name:        "UserFilter",
		Description: "Filter options for user listings",
		Fields: graphql.InputObjectConfigFieldMap{
			"nameContains":  &graphql.InputObjectFieldConfig{Type: graphql.String},
			"emailContains": &graphql.InputObjectFieldConfig{Type: graphql.String},
			"isActive":      &graphql.InputObjectFieldConfig{Type: graphql.Boolean},
			"createdAfter":  &graphql.InputObjectFieldConfig{Type: graphql.DateTime},
			"createdBefore": &graphql.InputObjectFieldConfig{Type: graphql.DateTime},
			"referredBy":    &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})

	directionEnum := graphql.NewEnum(graphql.EnumConfig{
		Name: "OrderDirection",
		Values: graphql.EnumValueConfigMap{
			"ASC":  &graphql.EnumValueConfig{Value: string(query.ASC)},
			"DESC": &graphql.EnumValueConfig{Value: string(query.DESC)},
		},
	})

	b.orderInput = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "UserOrder",
		Fields: graphql.InputObjectConfigFieldMap{
			"field":     &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"direction": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(directionEnum)},
		},
	})

	b.addUserConnectionFields()
}

// addUserConnectionFields wires the recursive user fields once the
// connection type exists.
func (b *builder) addUserConnectionFields() {
	b.userType.AddFieldConfig("friends", &graphql.Field{
		Type: graphql.NewNonNull(b.userConnectionType),
		Args: connectionArgs(),
		Resolve: func(p graphql.ResolveParams) (any, error) {
			user := p.Source.(social.User)
			first, after := pageArgs(p)
			page, err := b.repo.GetFriends(p.Context, user.UUID, first, after)
			if err != nil {
				return nil, err
			}
			return newUserConnection(page, after, b.repo.CountFriends(p.Context, user.UUID)), nil
		},
	})

	b.userType.AddFieldConfig("referredUsers", &graphql.Field{
		Type: graphql.NewNonNull(b.userConnectionType),
		Args: connectionArgs(),
		Resolve: func(p graphql.ResolveParams) (any, error) {
			user := p.Source.(social.User)
			first, after := pageArgs(p)
			page, err := b.repo.ListReferredUsers(p.Context, user.UUID, first, after)
			if err != nil {
				return nil, err
			}
			total := b.repo.CountUsersFiltered(p.Context, social.UserFilter{ReferredBy: user.UUID})
			return newUserConnection(page, after, total), nil
		},
	})

	b.userType.AddFieldConfig("referrer", &graphql.Field{
		Type: b.userType,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			user := p.Source.(social.User)
			if user.ReferredBy == "" {
				return nil, nil
			}
			referrer, err := b.repo.GetUser(p.Context, user.ReferredBy)
			if err != nil {
				if apperrors.IsNotFound(err) {
					// Dangling back-reference after a referrer deletion.
					return nil, nil
				}
				return nil, err
			}
			return referrer, nil
		},
	})

	b.userType.AddFieldConfig("friendshipStatus", &graphql.Field{
		Type: graphql.NewNonNull(b.statusType),
		Args: graphql.FieldConfigArgument{
			"otherUserUuid": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
		},
		Resolve: func(p graphql.ResolveParams) (any, error) {
			user := p.Source.(social.User)
			return b.repo.GetFriendshipStatus(p.Context, user.UUID, p.Args["otherUserUuid"].(string))
		},
	})

	b.userType.AddFieldConfig("mutualFriends", &graphql.Field{
		Type: graphql.NewNonNull(b.userConnectionType),
		Args: mergeArgs(connectionArgs(), graphql.FieldConfigArgument{
			"withUserUuid": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
		}),
		Resolve: func(p graphql.ResolveParams) (any, error) {
			user := p.Source.(social.User)
			other := p.Args["withUserUuid"].(string)
			first, after := pageArgs(p)
			page, err := b.repo.MutualFriends(p.Context, user.UUID, other, first, after)
			if err != nil {
				return nil, err
			}
			return newUserConnection(page, after, b.repo.CountMutualFriends(p.Context, user.UUID, other)), nil
		},
	})
}

func (b *builder) queryType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"user": &graphql.Field{
				Type: b.userType,
				Args: graphql.FieldConfigArgument{
					"uuid": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					user, err := b.repo.GetUser(p.Context, p.Args["uuid"].(string))
					if err != nil {
						if apperrors.IsNotFound(err) {
							return nil, nil
						}
						return nil, err
					}
					return user, nil
				},
			},
			"users": &graphql.Field{
				Type: graphql.NewNonNull(b.userConnectionType),
				Args: mergeArgs(connectionArgs(), graphql.FieldConfigArgument{
					"filter":  &graphql.ArgumentConfig{Type: b.filterInput},
					"orderBy": &graphql.ArgumentConfig{Type: b.orderInput},
				}),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					first, after := pageArgs(p)
					filter := userFilterArg(p.Args["filter"])
					page, err := b.repo.ListUsers(p.Context, social.ListUsersRequest{
						Filter:   filter,
						Sort:     sortArg(p.Args["orderBy"]),
						PageSize: first,
						Cursor:   after,
					})
					if err != nil {
						return nil, err
					}
					return newUserConnection(page, after, b.repo.CountUsersFiltered(p.Context, filter)), nil
				},
			},
			"searchUsers": &graphql.Field{
				Type: graphql.NewNonNull(b.userConnectionType),
				Args: mergeArgs(connectionArgs(), graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				}),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					q := p.Args["query"].(string)
					first, after := pageArgs(p)
					page, err := b.repo.SearchUsers(p.Context, q, first, after)
					if err != nil {
						return nil, err
					}
					return newUserConnection(page, after, b.repo.CountSearchUsers(p.Context, q)), nil
				},
			},
			"friendship": &graphql.Field{
				Type: b.friendshipType,
				Args: graphql.FieldConfigArgument{
					"uuid": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					friendship, err := b.repo.GetFriendship(p.Context, p.Args["uuid"].(string))
					if err != nil {
						if apperrors.IsNotFound(err) {
							return nil, nil
						}
						return nil, err
					}
					return friendship, nil
				},
			},
			"mutualFriends": &graphql.Field{
				Type: graphql.NewNonNull(b.userConnectionType),
				Args: mergeArgs(connectionArgs(), graphql.FieldConfigArgument{
					"user1Uuid": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"user2Uuid": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				}),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					a := p.Args["user1Uuid"].(string)
					b2 := p.Args["user2Uuid"].(string)
					first, after := pageArgs(p)
					page, err := b.repo.MutualFriends(p.Context, a, b2, first, after)
					if err != nil {
						return nil, err
					}
					return newUserConnection(page, after, b.repo.CountMutualFriends(p.Context, a, b2)), nil
				},
			},
		},
	})
}

func (b *builder) mutationType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createUser": &graphql.Field{
				Type: graphql.NewNonNull(b.userType),
				Args: graphql.FieldConfigArgument{
					"email":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"name":         &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"referralCode": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return b.repo.CreateUser(p.Context, social.CreateUserInput{
						Email:        p.Args["email"].(string),
						Name:         p.Args["name"].(string),
						IsActive:     true,
						ReferralCode: stringArg(p.Args["referralCode"]),
					})
				},
			},
			"updateUser": &graphql.Field{
				Type: b.userType,
				Args: graphql.FieldConfigArgument{
					"uuid":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"email":    &graphql.ArgumentConfig{Type: graphql.String},
					"name":     &graphql.ArgumentConfig{Type: graphql.String},
					"isActive": &graphql.ArgumentConfig{Type: graphql.Boolean},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					patch := social.UserPatch{}
					if v, ok := p.Args["email"].(string); ok {
						patch.Email = &v
					}
					if v, ok := p.Args["name"].(string); ok {
						patch.Name = &v
					}
					if v, ok := p.Args["isActive"].(bool); ok {
						patch.IsActive = &v
					}
					user, err := b.repo.PatchUser(p.Context, p.Args["uuid"].(string), patch)
					if err != nil {
						if apperrors.IsNotFound(err) {
							return nil, nil
						}
						return nil, err
					}
					return user, nil
				},
			},
			"deleteUser": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Args: graphql.FieldConfigArgument{
					"uuid": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if err := b.repo.DeleteUser(p.Context, p.Args["uuid"].(string)); err != nil {
						if apperrors.IsNotFound(err) {
							return false, nil
						}
						return nil, err
					}
					return true, nil
				},
			},
			"createFriendship": &graphql.Field{
				Type: graphql.NewNonNull(b.friendshipType),
				Args: graphql.FieldConfigArgument{
					"user1Uuid": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"user2Uuid": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return b.repo.CreateFriendship(p.Context,
						p.Args["user1Uuid"].(string), p.Args["user2Uuid"].(string))
				},
			},
			"removeFriendship": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Args: graphql.FieldConfigArgument{
					"user1Uuid": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"user2Uuid": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return b.repo.RemoveFriendship(p.Context,
						p.Args["user1Uuid"].(string), p.Args["user2Uuid"].(string))
				},
			},
		},
	})
}

// Argument helpers

func connectionArgs() graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"first": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: defaultFirst},
		"after": &graphql.ArgumentConfig{Type: graphql.String},
	}
}

func mergeArgs(base, extra graphql.FieldConfigArgument) graphql.FieldConfigArgument {
	for name, arg := range extra {
		base[name] = arg
	}
	return base
}

func pageArgs(p graphql.ResolveParams) (int, string) {
	first := defaultFirst
	if v, ok := p.Args["first"].(int); ok {
		first = v
	}
	return first, stringArg(p.Args["after"])
}

func stringArg(v any) string {
	s, _ := v.(string)
	return s
}

func userFilterArg(v any) social.UserFilter {
	raw, ok := v.(map[string]any)
	if !ok {
		return social.UserFilter{}
	}

	filter := social.UserFilter{
		NameContains:  stringArg(raw["nameContains"]),
		EmailContains: stringArg(raw["emailContains"]),
		ReferredBy:    stringArg(raw["referredBy"]),
	}
	if active, ok := raw["isActive"].(bool); ok {
		filter.IsActive = &active
	}
	if t, ok := raw["createdAfter"].(time.Time); ok {
		filter.CreatedAfter = &t
	}
	if t, ok := raw["createdBefore"].(time.Time); ok {
		filter.CreatedBefore = &t
	}
	return filter
}

func sortArg(v any) *query.Sort {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	field, _ := raw["field"].(string)
	if field == "" {
		return nil
	}
	direction := query.ASC
	if d, ok := raw["direction"].(string); ok && d == string(query.DESC) {
		direction = query.DESC
	}
	return &query.Sort{Field: field, Direction: direction}
}
