package models

import (
	"errors"
	"time"
)

// Shared domain errors, mapped to HTTP statuses at the handler boundary.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

// Category groups posts by the kind of discount (food, electronics, ...).
type Category struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"uniqueIndex;not null;size:100" json:"name"`
}

// User is an account that can author posts, vote and favorite.
type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null;size:150" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Post is a single discount listing. A post is owned by its author and
// deleting it removes its votes and favorites with it.
type Post struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Title       string    `gorm:"not null;size:200" json:"title"`
	Description string    `gorm:"not null" json:"description"`
	Place       string    `gorm:"not null;size:200" json:"place"`
	CategoryID  uint      `gorm:"not null;index" json:"category_id"`
	AuthorID    uint      `gorm:"not null;index" json:"author_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Votes     []Vote     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Favorites []Favorite `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// Vote is an up or down vote by one user on one post. The composite unique
// index is the hard guarantee that a (post, user) pair never holds two votes,
// whatever the application layer does.
type Vote struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_vote_post_user" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_vote_post_user" json:"user_id"`
	VoteType  string    `gorm:"not null;size:4" json:"vote_type"` // "up" or "down"
	CreatedAt time.Time `json:"created_at"`
}

// Favorite marks a post as saved by a user. At most one row per (user, post),
// enforced by the composite unique index.
type Favorite struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_fav_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_fav_user_post" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
