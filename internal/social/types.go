package social

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"socialgraph/internal/query"
	"socialgraph/internal/store"
)

// User is the public identity of an account. UUID, ReferralCode and
// CreatedAt are immutable after creation.
type User struct {
	UUID         string    `json:"uuid"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ReferralCode string    `json:"referral_code"`
	ReferredBy   string    `json:"referred_by,omitempty"` // empty when the user was not referred
}

// Friendship is an unordered user pair, stored normalized
// (User1UUID < User2UUID).
type Friendship struct {
	UUID      string    `json:"uuid"`
	User1UUID string    `json:"user1_uuid"`
	User2UUID string    `json:"user2_uuid"`
	CreatedAt time.Time `json:"created_at"`
}

// FriendshipStatus describes whether two users are friends.
type FriendshipStatus struct {
	AreFriends     bool       `json:"are_friends"`
	FriendshipUUID string     `json:"friendship_uuid,omitempty"`
	Since          *time.Time `json:"friendship_date,omitempty"`
}

// ReferralStats summarizes who a user referred.
type ReferralStats struct {
	TotalReferrals int    `json:"total_referrals"`
	ReferredUsers  []User `json:"successful_referrals"`
}

// UserPage is one page of users with per-item cursors. Cursors[i] continues
// pagination immediately after Users[i]; for friend listings they point into
// the friendship sequence, not the user one, and stay consistent across
// calls.
type UserPage struct {
	Users   []User
	Cursors []string
	HasNext bool
}

// EndCursor returns the cursor of the last user, or "" for an empty page.
func (p UserPage) EndCursor() string {
	if len(p.Cursors) == 0 {
		return ""
	}
	return p.Cursors[len(p.Cursors)-1]
}

// StartCursor returns the cursor of the first user, or "" for an empty page.
func (p UserPage) StartCursor() string {
	if len(p.Cursors) == 0 {
		return ""
	}
	return p.Cursors[0]
}

// Record mapping

func userFromRecord(rec store.Record) User {
	return User{
		UUID:         stringValue(rec["uuid"]),
		Email:        stringValue(rec["email"]),
		Name:         stringValue(rec["name"]),
		IsActive:     boolValue(rec["is_active"]),
		CreatedAt:    timeValue(rec["created_at"]),
		UpdatedAt:    timeValue(rec["updated_at"]),
		ReferralCode: stringValue(rec["referral_code"]),
		ReferredBy:   stringValue(rec["referred_by"]),
	}
}

func userToRecord(u User) store.Record {
	rec := store.Record{
		"uuid":          u.UUID,
		"email":         u.Email,
		"name":          u.Name,
		"is_active":     u.IsActive,
		"created_at":    u.CreatedAt,
		"updated_at":    u.UpdatedAt,
		"referral_code": u.ReferralCode,
	}
	if u.ReferredBy != "" {
		rec["referred_by"] = u.ReferredBy
	}
	return rec
}

func friendshipFromRecord(rec store.Record) Friendship {
	return Friendship{
		UUID:      stringValue(rec["uuid"]),
		User1UUID: stringValue(rec["user1_uuid"]),
		User2UUID: stringValue(rec["user2_uuid"]),
		CreatedAt: timeValue(rec["created_at"]),
	}
}

func friendshipToRecord(f Friendship) store.Record {
	return store.Record{
		"uuid":       f.UUID,
		"user1_uuid": f.User1UUID,
		"user2_uuid": f.User2UUID,
		"created_at": f.CreatedAt,
	}
}

func userPageFromRecords(page query.Page) UserPage {
	out := UserPage{
		Users:   make([]User, 0, len(page.Items)),
		Cursors: make([]string, 0, len(page.Items)),
		HasNext: page.HasNext,
	}
	for _, rec := range page.Items {
		out.Users = append(out.Users, userFromRecord(rec))
		out.Cursors = append(out.Cursors, query.CursorFor(rec))
	}
	return out
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func boolValue(v any) bool {
	b, _ := v.(bool)
	return b
}

// timeValue tolerates both in-process time.Time values and the
// primitive.DateTime the mongo driver decodes into bson.M.
func timeValue(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case primitive.DateTime:
		return t.Time().UTC()
	default:
		return time.Time{}
	}
}
