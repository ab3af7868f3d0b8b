package seed

import (
	"fmt"
	"strings"
	"time"

	"orbit/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Categories are the post categories demo data draws from.
var Categories = []string{
	"Travel", "Food", "Street Food", "Music", "Fitness", "Photography",
	"Technology", "Art", "Fashion", "Outdoors", "Gaming", "Books",
}

// PostKind selects which media a generated post carries.
type PostKind string

const (
	PostKindImage PostKind = "image"
	PostKindVideo PostKind = "video"
	PostKindBlog  PostKind = "blog"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the Seeder and by tests.
type Factory struct {
	db      *gorm.DB
	faker   *gofakeit.Faker
	maxDays int
	seq     int
}

// NewFactory creates a Factory. The same seed yields the same data.
func NewFactory(db *gorm.DB, seed int64, maxDays int) *Factory {
	if maxDays <= 0 {
		maxDays = 90
	}
	return &Factory{db: db, faker: gofakeit.New(seed), maxDays: maxDays}
}

// BuildUser returns an unsaved user of the given kind. overrides may adjust
// the params before validation.
func (f *Factory) BuildUser(kind models.AccountKind, overrides ...func(*models.UserParams)) (*models.User, error) {
	f.seq++
	p := models.UserParams{
		PhoneNumber: fmt.Sprintf("+1555%07d", f.seq),
		Username:    f.username(),
		Name:        f.faker.Name(),
		Gender:      f.faker.RandomString([]string{"female", "male", "other"}),
		MailAddress: f.faker.Email(),
		Profession:  f.faker.JobTitle(),
		Bio:         f.faker.Sentence(10),
		ProfileImg:  fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
		Kind:        kind,
	}
	if kind == models.AccountKindCreator {
		p.Website = "https://" + f.faker.DomainName()
	}
	for _, override := range overrides {
		override(&p)
	}
	return models.NewUser(p)
}

// CreateUser builds and persists a user.
func (f *Factory) CreateUser(kind models.AccountKind, overrides ...func(*models.UserParams)) (*models.User, error) {
	u, err := f.BuildUser(kind, overrides...)
	if err != nil {
		return nil, err
	}
	if err := f.db.Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// username keeps the faker's handle to the characters NewUser accepts and
// appends the sequence number so handles never collide.
func (f *Factory) username() string {
	raw := strings.ToLower(f.faker.Username())
	var b strings.Builder
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '.' {
			b.WriteRune(r)
		}
		if b.Len() >= 20 {
			break
		}
	}
	if b.Len() < 3 {
		b.WriteString("user")
	}
	return fmt.Sprintf("%s_%d", b.String(), f.seq)
}

// BuildPost returns an unsaved post for user with a created_at spread over
// the factory's window.
func (f *Factory) BuildPost(user *models.User, kind PostKind, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		UserID:      user.ID,
		Title:       strings.TrimSuffix(f.faker.Sentence(5), "."),
		Description: f.faker.Paragraph(1, 3, 8, " "),
		Location:    f.faker.City(),
		Categories:  f.categories(),
		CreatedAt:   f.createdAt(),
	}
	if f.faker.Number(0, 3) == 0 {
		post.SubCategories = models.StringList{f.faker.HipsterWord()}
	}

	switch kind {
	case PostKindVideo:
		id := f.faker.UUID()
		post.Video = fmt.Sprintf("https://cdn.orbit.local/videos/%s.mp4", id)
		post.CoverPhoto = fmt.Sprintf("https://picsum.photos/seed/%s/1280/720.jpg", id)
	case PostKindBlog:
		post.IsBlog = true
		post.Description = f.faker.Paragraph(3, 5, 12, "\n\n")
		post.CoverPhoto = fmt.Sprintf("https://picsum.photos/seed/%s/1200/600.jpg", f.faker.UUID())
	default:
		n := f.faker.Number(1, 4)
		for i := 0; i < n; i++ {
			post.Media = append(post.Media, fmt.Sprintf("https://picsum.photos/seed/%s/800/800.jpg", f.faker.UUID()))
		}
	}
	post.UpdatedAt = post.CreatedAt

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists posts in chunks of batchSize.
func (f *Factory) CreatePostsBatch(posts []*models.Post, batchSize int) error {
	if len(posts) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return f.db.CreateInBatches(posts, batchSize).Error
}

// PickKind chooses a post kind: mostly images, some videos, a few blogs.
func (f *Factory) PickKind() PostKind {
	switch n := f.faker.Number(1, 10); {
	case n <= 6:
		return PostKindImage
	case n <= 9:
		return PostKindVideo
	default:
		return PostKindBlog
	}
}

func (f *Factory) categories() models.StringList {
	n := f.faker.Number(1, 3)
	picked := make(models.StringList, 0, n)
	for len(picked) < n {
		c := f.faker.RandomString(Categories)
		if !picked.ContainsFold(c) {
			picked = append(picked, c)
		}
	}
	return picked
}

func (f *Factory) createdAt() time.Time {
	back := time.Duration(f.faker.Number(0, f.maxDays*24*60)) * time.Minute
	return time.Now().Add(-back).UTC()
}
