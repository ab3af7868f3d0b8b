package models

import "time"

// UserSummary is the compact user shape embedded in lists and events.
type UserSummary struct {
	ID         uint   `json:"id"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	Profession string `json:"profession,omitempty"`
	ProfileImg string `json:"profile_img,omitempty"`
	IsCreator  bool   `json:"is_creator"`
	IsVerified bool   `json:"is_verified"`
}

// NewUserSummary maps a User to its summary.
func NewUserSummary(u *User) UserSummary {
	return UserSummary{
		ID:         u.ID,
		Username:   u.Username,
		Name:       u.Name,
		Profession: u.Profession,
		ProfileImg: u.ProfileImg,
		IsCreator:  u.IsCreator,
		IsVerified: u.IsVerified,
	}
}

// EdgeCounts holds a user's confirmed edge counts.
type EdgeCounts struct {
	Following int `json:"following_count"`
	Followers int `json:"followers_count"`
}

// CountsOf reads the counts from a record, which may be nil.
func CountsOf(r *RelationshipRecord) EdgeCounts {
	if r == nil {
		return EdgeCounts{}
	}
	return EdgeCounts{Following: r.Following.Len(), Followers: r.Followers.Len()}
}

// AuthorView is a post author as seen by a particular viewer.
type AuthorView struct {
	UserSummary
	EdgeCounts
	RelationshipStatus RelationshipStatus `json:"relationship_status"`
}

// PostView is the feed payload for one post.
type PostView struct {
	ID            uint       `json:"id"`
	Author        AuthorView `json:"author"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Location      string     `json:"location,omitempty"`
	Media         []string   `json:"media"`
	CoverPhoto    string     `json:"cover_photo,omitempty"`
	Video         string     `json:"video,omitempty"`
	Categories    []string   `json:"categories"`
	SubCategories []string   `json:"sub_categories"`
	MediaType     MediaType  `json:"media_type"`
	Sensitive     bool       `json:"sensitive"`
	IsPinned      bool       `json:"is_pinned"`
	PinnedAt      *time.Time `json:"pinned_at,omitempty"`
	IsArchived    bool       `json:"is_archived"`
	LikesCount    int        `json:"likes_count"`
	CommentsCount int        `json:"comments_count"`
	SharedCount   int        `json:"shared_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewPostView maps a post and its author context to the response shape.
func NewPostView(p *Post, author *User, counts EdgeCounts, status RelationshipStatus) PostView {
	media := p.Media
	if media == nil {
		media = StringList{}
	}
	cats := p.Categories
	if cats == nil {
		cats = StringList{}
	}
	subs := p.SubCategories
	if subs == nil {
		subs = StringList{}
	}
	return PostView{
		ID: p.ID,
		Author: AuthorView{
			UserSummary:        NewUserSummary(author),
			EdgeCounts:         counts,
			RelationshipStatus: status,
		},
		Title:         p.Title,
		Description:   p.Description,
		Location:      p.Location,
		Media:         media,
		CoverPhoto:    p.CoverPhoto,
		Video:         p.Video,
		Categories:    cats,
		SubCategories: subs,
		MediaType:     ClassifyMedia(p),
		Sensitive:     p.Sensitive,
		IsPinned:      p.IsPinned,
		PinnedAt:      p.PinnedAt,
		IsArchived:    p.IsArchived,
		LikesCount:    p.LikesCount,
		CommentsCount: p.CommentsCount,
		SharedCount:   p.SharedCount,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// FollowListEntry is one row of a followers or following list, annotated
// with the viewer's own relationship to that user.
type FollowListEntry struct {
	UserSummary
	RelationshipStatus RelationshipStatus `json:"relationship_status"`
}

// RelationshipView answers GET /users/relationship/:id.
type RelationshipView struct {
	UserID             uint               `json:"user_id"`
	TargetID           uint               `json:"target_id"`
	RelationshipStatus RelationshipStatus `json:"relationship_status"`
	Blocked            bool               `json:"blocked"`
}

// ProfileView is a user profile with counts and the viewer's status.
type ProfileView struct {
	UserSummary
	EdgeCounts
	Bio                string             `json:"bio,omitempty"`
	Website            string             `json:"website,omitempty"`
	RelationshipStatus RelationshipStatus `json:"relationship_status"`
}

// NewProfileView maps a user and its graph context to a ProfileView.
func NewProfileView(u *User, counts EdgeCounts, status RelationshipStatus) ProfileView {
	return ProfileView{
		UserSummary:        NewUserSummary(u),
		EdgeCounts:         counts,
		Bio:                u.Bio,
		Website:            u.Website,
		RelationshipStatus: status,
	}
}

// ActionResult is the body of a successful mutation. Code carries a soft
// condition such as ALREADY_BLOCKED that the caller may want to surface.
type ActionResult struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// CommentView is a comment with its author.
type CommentView struct {
	ID        uint        `json:"id"`
	PostID    uint        `json:"post_id"`
	Author    UserSummary `json:"author"`
	Body      string      `json:"body"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewCommentView maps a comment with a preloaded User.
func NewCommentView(c *Comment) CommentView {
	return CommentView{
		ID:        c.ID,
		PostID:    c.PostID,
		Author:    NewUserSummary(&c.User),
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
	}
}
