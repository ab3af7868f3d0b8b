package service

import (
	"context"
	"sync"
	"testing"

	"orbit/internal/models"
	"orbit/internal/notifications"
	"orbit/internal/repository"
	"orbit/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e notifications.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// env wires every service over one in-memory database.
type env struct {
	db         *gorm.DB
	events     *recordingPublisher
	users      repository.UserRepository
	rels       repository.RelationshipRepository
	posts      repository.PostRepository
	feedback   repository.FeedbackRepository
	comments   repository.CommentRepository
	media      *testutil.MediaStoreStub
	relSvc     *RelationshipService
	visibility *VisibilityService
	feed       *FeedService
	postSvc    *PostService
	userSvc    *UserService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewTestDB(t)
	e := &env{
		db:       db,
		events:   &recordingPublisher{},
		users:    repository.NewUserRepository(db),
		rels:     repository.NewRelationshipRepository(db),
		posts:    repository.NewPostRepository(db),
		feedback: repository.NewFeedbackRepository(db),
		comments: repository.NewCommentRepository(db),
		media:    testutil.NewMediaStoreStub(),
	}
	e.relSvc = NewRelationshipService(e.rels, e.users, e.events, WithBaseBackoff(0))
	e.visibility = NewVisibilityService(e.feedback, e.posts, e.rels, e.events)
	e.feed = NewFeedService(e.posts, e.users, e.rels, e.visibility)
	e.postSvc = NewPostService(e.posts, e.comments, e.media, e.events, models.MaxPinnedPosts)
	e.userSvc = NewUserService(e.users, e.rels)
	return e
}

func (e *env) user(t *testing.T) *models.User {
	t.Helper()
	return testutil.CreateUser(t, e.db, models.AccountKindUser)
}

func (e *env) creator(t *testing.T) *models.User {
	t.Helper()
	return testutil.CreateUser(t, e.db, models.AccountKindCreator)
}

func (e *env) post(t *testing.T, owner uint, mutate func(*models.Post)) *models.Post {
	t.Helper()
	return testutil.CreatePost(t, e.db, owner, mutate)
}

func (e *env) record(t *testing.T, userID uint) *models.RelationshipRecord {
	t.Helper()
	rec, err := e.rels.Get(context.Background(), userID)
	require.NoError(t, err)
	return rec
}

// requireSymmetric checks that the edges between a and b mirror each other
// and that neither record references its owner.
func (e *env) requireSymmetric(t *testing.T, a, b uint) {
	t.Helper()
	ra, rb := e.record(t, a), e.record(t, b)
	require.NoError(t, models.CheckPairInvariants(ra, rb))
}

func feedIDs(views []models.PostView) []uint {
	ids := make([]uint, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.ID)
	}
	return ids
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, models.HasCode(err, code), "expected code %s, got %v", code, err)
}

// relRepoStub is a stub for repository.RelationshipRepository.
type relRepoStub struct {
	getFn        func(context.Context, uint) (*models.RelationshipRecord, error)
	getManyFn    func(context.Context, []uint) (map[uint]*models.RelationshipRecord, error)
	updatePairFn func(context.Context, uint, uint, repository.PairMutation) error
}

func (s *relRepoStub) Get(ctx context.Context, userID uint) (*models.RelationshipRecord, error) {
	return s.getFn(ctx, userID)
}
func (s *relRepoStub) GetMany(ctx context.Context, ids []uint) (map[uint]*models.RelationshipRecord, error) {
	return s.getManyFn(ctx, ids)
}
func (s *relRepoStub) UpdatePair(ctx context.Context, a, b uint, fn repository.PairMutation) error {
	return s.updatePairFn(ctx, a, b, fn)
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn  func(context.Context, uint) (*models.User, error)
	getByIDsFn func(context.Context, []uint) (map[uint]*models.User, error)
	createFn   func(context.Context, *models.User) error
	updateFn   func(context.Context, *models.User) error
	findFn     func(context.Context, string) (*models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByIDs(ctx context.Context, ids []uint) (map[uint]*models.User, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *userRepoStub) GetByUsername(context.Context, string) (*models.User, error) {
	return nil, nil
}
func (s *userRepoStub) FindByPhoneOrUsername(ctx context.Context, q string) (*models.User, error) {
	return s.findFn(ctx, q)
}
func (s *userRepoStub) Search(context.Context, string, int, int) ([]*models.User, error) {
	return nil, nil
}
func (s *userRepoStub) Create(ctx context.Context, u *models.User) error {
	return s.createFn(ctx, u)
}
func (s *userRepoStub) UpdateProfile(ctx context.Context, u *models.User) error {
	return s.updateFn(ctx, u)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Username: "user", Name: "User", IsUser: true}, nil
		},
		getByIDsFn: func(context.Context, []uint) (map[uint]*models.User, error) { return map[uint]*models.User{}, nil },
		createFn:   func(context.Context, *models.User) error { return nil },
		updateFn:   func(context.Context, *models.User) error { return nil },
		findFn: func(_ context.Context, q string) (*models.User, error) {
			return nil, models.NewNotFoundError("User", q)
		},
	}
}
