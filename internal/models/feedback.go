package models

import "time"

// ReportReason is why a user reported a post.
type ReportReason string

const (
	ReportSpam           ReportReason = "Spam"
	ReportHarassment     ReportReason = "Harassment"
	ReportInappropriate  ReportReason = "Inappropriate Content"
	ReportViolence       ReportReason = "Violence"
	ReportMisinformation ReportReason = "Misinformation"
	ReportOthers         ReportReason = "Others"
)

// ReportReasons lists the accepted report reasons.
var ReportReasons = []ReportReason{
	ReportSpam, ReportHarassment, ReportInappropriate,
	ReportViolence, ReportMisinformation, ReportOthers,
}

// Valid reports whether r is one of ReportReasons.
func (r ReportReason) Valid() bool {
	for _, v := range ReportReasons {
		if r == v {
			return true
		}
	}
	return false
}

// ReportRecord is one user's report of a post. Any report removes the post
// from every viewer's default feed.
type ReportRecord struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	PostID     uint         `gorm:"not null;uniqueIndex:idx_post_reports_pair" json:"post_id"`
	ReportedBy uint         `gorm:"not null;uniqueIndex:idx_post_reports_pair;index" json:"reported_by"`
	Reason     ReportReason `gorm:"type:varchar(32);not null" json:"reason"`
	Details    string       `gorm:"type:text" json:"details,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (ReportRecord) TableName() string {
	return "post_reports"
}

// NotInterestedReason is the optional reason given when hiding a post.
type NotInterestedReason string

const (
	NotInterestedSpam        NotInterestedReason = "Spam"
	NotInterestedNotRelevant NotInterestedReason = "Not relevant"
	NotInterestedOffensive   NotInterestedReason = "Offensive"
	NotInterestedOther       NotInterestedReason = "Other"
)

// Valid reports whether r is empty or a known reason.
func (r NotInterestedReason) Valid() bool {
	switch r {
	case "", NotInterestedSpam, NotInterestedNotRelevant, NotInterestedOffensive, NotInterestedOther:
		return true
	}
	return false
}

// NotInterestedRecord hides a post, and every other post by the same author,
// from one viewer's feed. AuthorID is copied from the post at creation.
type NotInterestedRecord struct {
	ID        uint                `gorm:"primaryKey" json:"id"`
	UserID    uint                `gorm:"not null;uniqueIndex:idx_not_interested_pair" json:"user_id"`
	PostID    uint                `gorm:"not null;uniqueIndex:idx_not_interested_pair" json:"post_id"`
	AuthorID  uint                `gorm:"not null;index" json:"author_id"`
	Reason    NotInterestedReason `gorm:"type:varchar(32)" json:"reason,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (NotInterestedRecord) TableName() string {
	return "not_interested"
}
