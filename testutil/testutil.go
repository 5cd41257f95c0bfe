// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

// UseConfig installs a test configuration with Redis disabled and media under a temp dir.
func UseConfig(t testing.TB, mutate ...func(*config.AppConfig)) config.AppConfig {
	t.Helper()
	c := config.Default()
	c.JWTSecret = "test-secret"
	c.RedisHost = ""
	c.GinMode = "test"
	c.MediaRoot = t.TempDir()
	c.RateLimitPerMinute = 0
	for _, m := range mutate {
		m(&c)
	}
	config.Set(c)
	utils.SetRedis(nil)
	return c
}

// NewDB opens a private in-memory SQLite database with every model migrated
// and installs it as the shared connection.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	// one connection keeps the shared in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	config.UseDB(db)
	t.Cleanup(func() {
		config.UseDB(nil)
		_ = sqlDB.Close()
	})
	return db
}

// UseMiniredis starts an in-process Redis and points the shared client at it.
func UseMiniredis(t testing.TB) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	utils.SetRedis(client)
	t.Cleanup(func() {
		utils.SetRedis(nil)
		_ = client.Close()
	})
	return mr
}

// CreateUser inserts a user whose password is Password.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword(Password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &models.User{Username: username, Email: username + "@example.com", PasswordHash: hash}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// Password is the plaintext password of users made by CreateUser.
const Password = "pass-word-123"

// CreateGroup inserts a group.
func CreateGroup(t testing.TB, db *gorm.DB, slug string) *models.Group {
	t.Helper()
	g := &models.Group{Title: "Group " + slug, Slug: slug, Description: "About " + slug}
	if err := db.Create(g).Error; err != nil {
		t.Fatalf("create group: %v", err)
	}
	return g
}

// CreatePost inserts a post by author, optionally in group.
func CreatePost(t testing.TB, db *gorm.DB, author *models.User, group *models.Group, text string) *models.Post {
	t.Helper()
	p := &models.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		p.GroupID = &group.ID
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

// TinyGIF is a valid 2x1 gif.
var TinyGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}
