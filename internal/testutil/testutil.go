// Package testutil opens throwaway in-memory databases for package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/timurkhal/dealspot/internal/models"
)

// OpenDB returns a migrated in-memory SQLite database scoped to the test.
// cache=shared keeps every pooled connection on the same database.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Post{},
		&models.Vote{},
		&models.Favorite{},
	); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

// CreateUser inserts a user with a throwaway password hash.
func CreateUser(t *testing.T, gdb *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{Username: username, PasswordHash: "x"}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user %q: %v", username, err)
	}
	return user
}

// CreateCategory inserts a category.
func CreateCategory(t *testing.T, gdb *gorm.DB, name string) models.Category {
	t.Helper()
	cat := models.Category{Name: name}
	if err := gdb.Create(&cat).Error; err != nil {
		t.Fatalf("Failed to create category %q: %v", name, err)
	}
	return cat
}

// CreatePost inserts a post. Zero-value timestamps are filled by GORM.
func CreatePost(t *testing.T, gdb *gorm.DB, post models.Post) models.Post {
	t.Helper()
	if err := gdb.Create(&post).Error; err != nil {
		t.Fatalf("Failed to create post %q: %v", post.Title, err)
	}
	return post
}
