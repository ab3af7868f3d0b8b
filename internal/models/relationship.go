package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// RelationshipStatus is how one user relates to another from the first user's side.
type RelationshipStatus string

const (
	StatusNone      RelationshipStatus = "none"
	StatusFollowing RelationshipStatus = "following"
	StatusFollower  RelationshipStatus = "follower"
	StatusRequested RelationshipStatus = "requested"
	StatusBoth      RelationshipStatus = "both"
)

// IDSet is an insertion-ordered set of user IDs persisted as a JSON array.
type IDSet []uint

// Has reports whether id is in the set.
func (s IDSet) Has(id uint) bool {
	return slices.Contains(s, id)
}

// Add inserts id and reports whether the set changed.
func (s *IDSet) Add(id uint) bool {
	if s.Has(id) {
		return false
	}
	*s = append(*s, id)
	return true
}

// Remove deletes id and reports whether the set changed.
func (s *IDSet) Remove(id uint) bool {
	i := slices.Index(*s, id)
	if i < 0 {
		return false
	}
	*s = slices.Delete(*s, i, i+1)
	return true
}

func (s IDSet) Len() int { return len(s) }

// Slice returns a copy of the members.
func (s IDSet) Slice() []uint {
	out := make([]uint, len(s))
	copy(out, s)
	return out
}

// Value implements driver.Valuer.
func (s IDSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]uint(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *IDSet) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = IDSet{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("IDSet: unsupported scan type %T", src)
	}
	var ids []uint
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &ids); err != nil {
			return fmt.Errorf("IDSet: %w", err)
		}
	}
	*s = IDSet(ids)
	return nil
}

// RelationshipRecord holds one user's side of the social graph. Confirmed and
// pending edges are stored on both endpoints, so every mutation touches the
// records of both users.
type RelationshipRecord struct {
	UserID                 uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Following              IDSet     `gorm:"type:text;not null" json:"following"`
	Followers              IDSet     `gorm:"type:text;not null" json:"followers"`
	FollowRequestsSent     IDSet     `gorm:"type:text;not null" json:"follow_requests_sent"`
	FollowRequestsReceived IDSet     `gorm:"type:text;not null" json:"follow_requests_received"`
	Blocked                IDSet     `gorm:"type:text;not null" json:"blocked"`
	Version                int64     `gorm:"not null" json:"-"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (RelationshipRecord) TableName() string {
	return "user_relationships"
}

// NewRelationshipRecord returns an empty record for userID.
func NewRelationshipRecord(userID uint) *RelationshipRecord {
	return &RelationshipRecord{
		UserID:                 userID,
		Following:              IDSet{},
		Followers:              IDSet{},
		FollowRequestsSent:     IDSet{},
		FollowRequestsReceived: IDSet{},
		Blocked:                IDSet{},
	}
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (r *RelationshipRecord) Clone() *RelationshipRecord {
	c := *r
	c.Following = r.Following.Slice()
	c.Followers = r.Followers.Slice()
	c.FollowRequestsSent = r.FollowRequestsSent.Slice()
	c.FollowRequestsReceived = r.FollowRequestsReceived.Slice()
	c.Blocked = r.Blocked.Slice()
	return &c
}

// StatusToward derives this user's relationship to other.
// A pending outbound request outranks any confirmed edge.
func (r *RelationshipRecord) StatusToward(other uint) RelationshipStatus {
	if r == nil || r.UserID == other {
		return StatusNone
	}
	if r.FollowRequestsSent.Has(other) {
		return StatusRequested
	}
	following := r.Following.Has(other)
	follower := r.Followers.Has(other)
	switch {
	case following && follower:
		return StatusBoth
	case following:
		return StatusFollowing
	case follower:
		return StatusFollower
	default:
		return StatusNone
	}
}

// Validate checks the invariants that can be verified on a single record:
// no self edges, and no pending request alongside a confirmed edge in the
// same direction.
func (r *RelationshipRecord) Validate() error {
	for name, set := range map[string]IDSet{
		"following":                r.Following,
		"followers":                r.Followers,
		"follow_requests_sent":     r.FollowRequestsSent,
		"follow_requests_received": r.FollowRequestsReceived,
		"blocked":                  r.Blocked,
	} {
		if set.Has(r.UserID) {
			return fmt.Errorf("user %d appears in own %s set", r.UserID, name)
		}
	}
	for _, id := range r.FollowRequestsSent {
		if r.Following.Has(id) {
			return fmt.Errorf("user %d both follows and has a pending request to %d", r.UserID, id)
		}
	}
	for _, id := range r.FollowRequestsReceived {
		if r.Followers.Has(id) {
			return fmt.Errorf("user %d both has follower and pending request from %d", r.UserID, id)
		}
	}
	return nil
}

// CheckPairInvariants verifies that the edges between a and b are mirrored
// on both records.
func CheckPairInvariants(a, b *RelationshipRecord) error {
	if a.Following.Has(b.UserID) != b.Followers.Has(a.UserID) {
		return fmt.Errorf("follow edge %d->%d is not symmetric", a.UserID, b.UserID)
	}
	if b.Following.Has(a.UserID) != a.Followers.Has(b.UserID) {
		return fmt.Errorf("follow edge %d->%d is not symmetric", b.UserID, a.UserID)
	}
	if a.FollowRequestsSent.Has(b.UserID) != b.FollowRequestsReceived.Has(a.UserID) {
		return fmt.Errorf("pending request %d->%d is not symmetric", a.UserID, b.UserID)
	}
	if b.FollowRequestsSent.Has(a.UserID) != a.FollowRequestsReceived.Has(b.UserID) {
		return fmt.Errorf("pending request %d->%d is not symmetric", b.UserID, a.UserID)
	}
	if err := a.Validate(); err != nil {
		return err
	}
	return b.Validate()
}
