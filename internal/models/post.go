package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"gorm.io/gorm"
)

// MaxPinnedPosts is the default number of posts a user may keep pinned.
const MaxPinnedPosts = 5

// StringList is a list of strings persisted as a JSON array.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	// Unescaped, so "&" stays matchable by the category LIKE.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode([]string(l)); err != nil {
		return nil, err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("StringList: unsupported scan type %T", src)
	}
	var out []string
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("StringList: %w", err)
		}
	}
	*l = StringList(out)
	return nil
}

// ContainsFold reports whether the list holds s, ignoring case.
func (l StringList) ContainsFold(s string) bool {
	for _, v := range l {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// Post represents a post in the Orbit application.
type Post struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	Author        User           `gorm:"foreignKey:UserID" json:"-"`
	Title         string         `gorm:"not null" json:"title"`
	Description   string         `gorm:"type:text" json:"description"`
	Location      string         `json:"location,omitempty"`
	Media         StringList     `gorm:"type:text;not null" json:"media"`
	CoverPhoto    string         `json:"cover_photo,omitempty"`
	Video         string         `json:"video,omitempty"`
	Categories    StringList     `gorm:"type:text;not null" json:"categories"`
	SubCategories StringList     `gorm:"type:text;not null" json:"sub_categories"`
	IsBlog        bool           `gorm:"not null" json:"is_blog"`
	Sensitive     bool           `gorm:"not null" json:"sensitive"`
	IsBlocked     bool           `gorm:"not null;index" json:"is_blocked"`
	IsArchived    bool           `gorm:"not null;index" json:"is_archived"`
	IsPinned      bool           `gorm:"not null" json:"is_pinned"`
	PinnedAt      *time.Time     `json:"pinned_at,omitempty"`
	LikesCount    int            `gorm:"not null" json:"likes_count"`
	CommentsCount int            `gorm:"not null" json:"comments_count"`
	SharedCount   int            `gorm:"not null" json:"shared_count"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// MediaType classifies what a post mainly shows.
type MediaType string

const (
	MediaBlog    MediaType = "Blog"
	MediaVideo   MediaType = "Video"
	MediaImage   MediaType = "Image"
	MediaUnknown MediaType = "Unknown"
)

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".m4v":  {},
	".webm": {},
}

// IsVideoURL reports whether a media URL points at a video file.
func IsVideoURL(raw string) bool {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	_, ok := videoExtensions[strings.ToLower(path.Ext(p))]
	return ok
}

// ClassifyMedia returns Blog for blog posts, Video when the video field is set
// or any media URL is a video, Image for any other media, and Unknown otherwise.
func ClassifyMedia(p *Post) MediaType {
	if p.IsBlog {
		return MediaBlog
	}
	if p.Video != "" {
		return MediaVideo
	}
	for _, m := range p.Media {
		if IsVideoURL(m) {
			return MediaVideo
		}
	}
	if len(p.Media) > 0 {
		return MediaImage
	}
	return MediaUnknown
}

// PostLike records that a user liked a post.
type PostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_likes_pair" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_likes_pair;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment is a reply on a post.
type Comment struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	PostID    uint           `gorm:"not null;index" json:"post_id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	User      User           `gorm:"foreignKey:UserID" json:"-"`
	Body      string         `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// SavedPost bookmarks a post for a user.
type SavedPost struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_saved_posts_pair" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_saved_posts_pair" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
