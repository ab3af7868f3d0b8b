// Package seed fills a database with demo users, a follow graph, posts and
// engagement. Everything relational goes through the services so seeded
// data obeys the same rules as live traffic.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"orbit/internal/database"
	"orbit/internal/middleware"
	"orbit/internal/models"
	"orbit/internal/repository"
	"orbit/internal/service"

	"gorm.io/gorm"
)

// Options configure a seeding run.
type Options struct {
	Users int
	Posts int
	// CreatorEvery makes every Nth user a creator account.
	CreatorEvery int
	// FollowDegree is how many follow attempts each user makes.
	FollowDegree int
	// AcceptPercent of pending requests are accepted.
	AcceptPercent int
	MaxDays       int
	BatchSize     int
	Seed          int64
}

// DefaultOptions returns a small, lively data set.
func DefaultOptions() Options {
	return Options{
		Users:         50,
		Posts:         200,
		CreatorEvery:  5,
		FollowDegree:  8,
		AcceptPercent: 70,
		MaxDays:       60,
		BatchSize:     100,
		Seed:          42,
	}
}

// Result summarises a seeding run.
type Result struct {
	Users    int
	Creators int
	Posts    int
	Follows  int
	Requests int
	Blocks   int
	Pins     int
	Likes    int
	Comments int
	Reports  int
}

// Seeder writes demo data through the domain services.
type Seeder struct {
	db            *gorm.DB
	opts          Options
	factory       *Factory
	relationships *service.RelationshipService
	visibility    *service.VisibilityService
	posts         *service.PostService
}

// NewSeeder creates a Seeder bound to db. Zero option fields take their
// DefaultOptions value.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	opts = withDefaults(opts)

	userRepo := repository.NewUserRepository(db)
	relRepo := repository.NewRelationshipRepository(db)
	postRepo := repository.NewPostRepository(db)

	return &Seeder{
		db:            db,
		opts:          opts,
		factory:       NewFactory(db, opts.Seed, opts.MaxDays),
		relationships: service.NewRelationshipService(relRepo, userRepo, nil),
		visibility:    service.NewVisibilityService(repository.NewFeedbackRepository(db), postRepo, relRepo, nil),
		posts:         service.NewPostService(postRepo, repository.NewCommentRepository(db), nil, nil, models.MaxPinnedPosts),
	}
}

func withDefaults(opts Options) Options {
	def := DefaultOptions()
	if opts.Users <= 0 {
		opts.Users = def.Users
	}
	if opts.Posts < 0 {
		opts.Posts = def.Posts
	}
	if opts.CreatorEvery <= 0 {
		opts.CreatorEvery = def.CreatorEvery
	}
	if opts.FollowDegree < 0 {
		opts.FollowDegree = def.FollowDegree
	}
	if opts.AcceptPercent < 0 || opts.AcceptPercent > 100 {
		opts.AcceptPercent = def.AcceptPercent
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = def.MaxDays
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	return opts
}

// ClearAll deletes every row of every persistent table, children first.
func (s *Seeder) ClearAll() error {
	all := database.PersistentModels()
	for i := len(all) - 1; i >= 0; i-- {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(all[i]).Error; err != nil {
			return fmt.Errorf("clear %T: %w", all[i], err)
		}
	}
	middleware.Logger.Info("seed: tables cleared", slog.Int("tables", len(all)))
	return nil
}

// Run seeds users, the follow graph, posts and engagement in that order.
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	var res Result

	users, err := s.SeedUsers(ctx, &res)
	if err != nil {
		return res, err
	}
	if err := s.SeedSocialGraph(ctx, users, &res); err != nil {
		return res, err
	}
	posts, err := s.SeedPosts(ctx, users, &res)
	if err != nil {
		return res, err
	}
	if err := s.SeedEngagement(ctx, users, posts, &res); err != nil {
		return res, err
	}

	middleware.Logger.InfoContext(ctx, "seed: done",
		slog.Int("users", res.Users),
		slog.Int("creators", res.Creators),
		slog.Int("posts", res.Posts),
		slog.Int("follows", res.Follows),
		slog.Int("requests", res.Requests),
		slog.Int("blocks", res.Blocks),
		slog.Int("likes", res.Likes),
		slog.Int("comments", res.Comments),
		slog.Int("reports", res.Reports),
	)
	return res, nil
}

// SeedUsers creates opts.Users accounts, every CreatorEvery-th a creator.
func (s *Seeder) SeedUsers(ctx context.Context, res *Result) ([]*models.User, error) {
	users := make([]*models.User, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		kind := models.AccountKindUser
		if i%s.opts.CreatorEvery == 0 {
			kind = models.AccountKindCreator
		}
		u, err := s.factory.CreateUser(kind)
		if err != nil {
			return nil, fmt.Errorf("create user %d: %w", i, err)
		}
		users = append(users, u)
		res.Users++
		if u.IsCreator {
			res.Creators++
		}
	}
	middleware.Logger.InfoContext(ctx, "seed: users created", slog.Int("count", len(users)))
	return users, nil
}

// SeedSocialGraph has every user follow FollowDegree random others. Creators
// are followed at once; other targets accept AcceptPercent of requests and
// leave the rest pending. One user in twenty blocks someone.
func (s *Seeder) SeedSocialGraph(ctx context.Context, users []*models.User, res *Result) error {
	if len(users) < 2 {
		return nil
	}
	faker := s.factory.faker
	for _, u := range users {
		for i := 0; i < s.opts.FollowDegree; i++ {
			target := users[faker.Number(0, len(users)-1)]
			if target.ID == u.ID {
				continue
			}
			outcome, err := s.relationships.SendFollowRequest(ctx, u.ID, target.ID)
			if models.HasCode(err, models.CodeAlreadyRequested) {
				continue
			}
			if err != nil {
				return fmt.Errorf("follow %d->%d: %w", u.ID, target.ID, err)
			}
			switch outcome {
			case service.FollowOutcomeFollowed:
				res.Follows++
			case service.FollowOutcomeRequested:
				if faker.Number(1, 100) > s.opts.AcceptPercent {
					res.Requests++
					continue
				}
				if err := s.relationships.AcceptFollowRequest(ctx, target.ID, u.ID); err != nil {
					return fmt.Errorf("accept %d->%d: %w", u.ID, target.ID, err)
				}
				res.Follows++
			}
		}
	}

	for i := 0; i < len(users)/20; i++ {
		actor := users[faker.Number(0, len(users)-1)]
		target := users[faker.Number(0, len(users)-1)]
		if actor.ID == target.ID {
			continue
		}
		already, err := s.relationships.BlockUser(ctx, actor.ID, target.ID)
		if err != nil {
			return fmt.Errorf("block %d->%d: %w", actor.ID, target.ID, err)
		}
		if !already {
			res.Blocks++
		}
	}
	middleware.Logger.InfoContext(ctx, "seed: social graph built",
		slog.Int("follows", res.Follows), slog.Int("pending", res.Requests))
	return nil
}

// SeedPosts creates opts.Posts posts, weighted towards creators, and pins up
// to two posts per creator.
func (s *Seeder) SeedPosts(ctx context.Context, users []*models.User, res *Result) ([]*models.Post, error) {
	if len(users) == 0 || s.opts.Posts == 0 {
		return nil, nil
	}
	faker := s.factory.faker
	var creators []*models.User
	for _, u := range users {
		if u.IsCreator {
			creators = append(creators, u)
		}
	}

	posts := make([]*models.Post, 0, s.opts.Posts)
	for i := 0; i < s.opts.Posts; i++ {
		author := users[faker.Number(0, len(users)-1)]
		if len(creators) > 0 && faker.Bool() {
			author = creators[faker.Number(0, len(creators)-1)]
		}
		posts = append(posts, s.factory.BuildPost(author, s.factory.PickKind()))
	}
	if err := s.factory.CreatePostsBatch(posts, s.opts.BatchSize); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	res.Posts = len(posts)

	pinned := map[uint]int{}
	for _, p := range posts {
		if pinned[p.UserID] >= 2 {
			continue
		}
		owner := findUser(creators, p.UserID)
		if owner == nil {
			continue
		}
		if _, err := s.posts.PinPost(ctx, p.UserID, p.ID); err != nil {
			return nil, fmt.Errorf("pin post %d: %w", p.ID, err)
		}
		pinned[p.UserID]++
		res.Pins++
	}
	middleware.Logger.InfoContext(ctx, "seed: posts created",
		slog.Int("posts", res.Posts), slog.Int("pinned", res.Pins))
	return posts, nil
}

// SeedEngagement adds likes, comments and a sprinkling of reports and
// not-interested marks.
func (s *Seeder) SeedEngagement(ctx context.Context, users []*models.User, posts []*models.Post, res *Result) error {
	if len(users) == 0 || len(posts) == 0 {
		return nil
	}
	faker := s.factory.faker
	for _, p := range posts {
		likers := faker.Number(0, min(len(users), 8))
		for i := 0; i < likers; i++ {
			u := users[faker.Number(0, len(users)-1)]
			err := s.posts.LikePost(ctx, u.ID, p.ID)
			if models.HasCode(err, models.CodeAlreadyLiked) {
				continue
			}
			if err != nil {
				return fmt.Errorf("like post %d: %w", p.ID, err)
			}
			res.Likes++
		}

		comments := faker.Number(0, 3)
		for i := 0; i < comments; i++ {
			u := users[faker.Number(0, len(users)-1)]
			if _, err := s.posts.AddComment(ctx, u.ID, p.ID, faker.Sentence(faker.Number(3, 14))); err != nil {
				return fmt.Errorf("comment on post %d: %w", p.ID, err)
			}
			res.Comments++
		}

		switch faker.Number(1, 40) {
		case 1:
			u := users[faker.Number(0, len(users)-1)]
			reason := models.ReportReasons[faker.Number(0, len(models.ReportReasons)-1)]
			_, err := s.visibility.ReportPost(ctx, u.ID, p.ID, reason, "")
			if err != nil && !models.HasCode(err, models.CodeAlreadyReported) {
				return fmt.Errorf("report post %d: %w", p.ID, err)
			}
			if err == nil {
				res.Reports++
			}
		case 2:
			u := users[faker.Number(0, len(users)-1)]
			if u.ID == p.UserID {
				continue
			}
			_, err := s.visibility.MarkNotInterested(ctx, u.ID, p.ID, "")
			if err != nil && !models.HasCode(err, models.CodeAlreadyMarked) {
				return fmt.Errorf("not interested %d: %w", p.ID, err)
			}
		}
	}
	middleware.Logger.InfoContext(ctx, "seed: engagement added",
		slog.Int("likes", res.Likes), slog.Int("comments", res.Comments))
	return nil
}

func findUser(users []*models.User, id uint) *models.User {
	for _, u := range users {
		if u.ID == id {
			return u
		}
	}
	return nil
}
