// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"orbit/internal/database"
	"orbit/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var userSeq atomic.Uint64

// NewTestDB opens a private in-memory sqlite database with every model migrated.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// A second connection would see an empty :memory: database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

// CreateUser inserts a user built through models.NewUser with fake profile data.
func CreateUser(t *testing.T, db *gorm.DB, kind models.AccountKind) *models.User {
	t.Helper()
	n := userSeq.Add(1)
	u, err := models.NewUser(models.UserParams{
		PhoneNumber: fmt.Sprintf("+1555%07d", n),
		Username:    fmt.Sprintf("%s_%d", gofakeit.LetterN(6), n),
		Name:        gofakeit.Name(),
		Profession:  gofakeit.JobTitle(),
		Bio:         gofakeit.Sentence(8),
		Kind:        kind,
	})
	if err != nil {
		t.Fatalf("build user: %v", err)
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// CreatePost inserts a post owned by userID. mutate may adjust fields before insert.
func CreatePost(t *testing.T, db *gorm.DB, userID uint, mutate func(*models.Post)) *models.Post {
	t.Helper()
	p := &models.Post{
		UserID:        userID,
		Title:         gofakeit.Sentence(4),
		Description:   gofakeit.Paragraph(1, 2, 8, " "),
		Media:         models.StringList{gofakeit.URL() + "/photo.jpg"},
		Categories:    models.StringList{"Travel"},
		SubCategories: models.StringList{"Beaches"},
	}
	if mutate != nil {
		mutate(p)
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}
