// Package feed builds the post listings: base selection, category filter,
// vote-count annotation, sort, and per-viewer decoration.
//
// Counts are derived from live vote rows in the same SELECT that fetches the
// page, so a listing can never disagree with the votes table. Viewer-specific
// state is attached to the Item wrapper, never written back to the post.
package feed

import (
	"gorm.io/gorm"

	"github.com/timurkhal/dealspot/internal/models"
	"github.com/timurkhal/dealspot/internal/vote"
)

// Sort selects the feed ordering.
type Sort string

const (
	// SortNewest orders by creation time, newest first. In the favorites
	// view this means the time the favorite was added, not the post.
	SortNewest Sort = "newest"
	// SortRating orders by upvotes descending, then downvotes ascending
	// (fewer downvotes wins a tie), then creation time descending.
	SortRating Sort = "rating"
)

// ParseSort maps the raw query value to a Sort, defaulting to newest.
func ParseSort(raw string) Sort {
	if raw == string(SortRating) {
		return SortRating
	}
	return SortNewest
}

// Item is one feed entry: the post plus request-scoped annotations. The
// viewer fields stay zero (no vote, not favorited) for anonymous viewers.
type Item struct {
	models.Post
	CategoryName   string     `json:"category_name"`
	AuthorName     string     `json:"author_name"`
	UpvotesCount   int64      `json:"upvotes_count"`
	DownvotesCount int64      `json:"downvotes_count"`
	UserVote       vote.State `json:"user_vote"`
	IsFavorite     bool       `json:"is_favorite"`
}

func base(gdb *gorm.DB) *gorm.DB {
	return gdb.Model(&models.Post{}).
		Select(`posts.*,
			categories.name AS category_name,
			users.username AS author_name,
			(SELECT COUNT(*) FROM votes WHERE votes.post_id = posts.id AND votes.vote_type = 'up') AS upvotes_count,
			(SELECT COUNT(*) FROM votes WHERE votes.post_id = posts.id AND votes.vote_type = 'down') AS downvotes_count`).
		Joins("JOIN categories ON categories.id = posts.category_id").
		Joins("JOIN users ON users.id = posts.author_id")
}

func order(q *gorm.DB, sort Sort, newestExpr string) *gorm.DB {
	if sort == SortRating {
		return q.Order("upvotes_count DESC, downvotes_count ASC, posts.created_at DESC")
	}
	return q.Order(newestExpr)
}

func scan(q *gorm.DB) ([]Item, error) {
	items := []Item{}
	if err := q.Scan(&items).Error; err != nil {
		return nil, err
	}
	for i := range items {
		items[i].UserVote = vote.None
	}
	return items, nil
}

// Global returns the public feed. A non-nil categoryID restricts to that
// category; an id that matches nothing — including 0, which no category ever
// carries — simply yields an empty list.
func Global(gdb *gorm.DB, categoryID *uint, sort Sort) ([]Item, error) {
	q := base(gdb)
	if categoryID != nil {
		q = q.Where("posts.category_id = ?", *categoryID)
	}
	return scan(order(q, sort, "posts.created_at DESC"))
}

// ByAuthor returns the posts authored by authorID.
func ByAuthor(gdb *gorm.DB, authorID uint, sort Sort) ([]Item, error) {
	q := base(gdb).Where("posts.author_id = ?", authorID)
	return scan(order(q, sort, "posts.created_at DESC"))
}

// FavoritesOf returns the posts viewerID has favorited. The newest sort
// follows the favorite's own timestamp.
func FavoritesOf(gdb *gorm.DB, viewerID uint, sort Sort) ([]Item, error) {
	q := base(gdb).
		Joins("JOIN favorites ON favorites.post_id = posts.id AND favorites.user_id = ?", viewerID)
	return scan(order(q, sort, "favorites.created_at DESC"))
}

// Decorate attaches the viewer's own vote state and favorite membership to
// every item, using one batched lookup per table over the page's post ids.
func Decorate(gdb *gorm.DB, viewerID uint, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]uint, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}

	var votes []models.Vote
	if err := gdb.Where("user_id = ? AND post_id IN ?", viewerID, ids).Find(&votes).Error; err != nil {
		return err
	}
	voteByPost := make(map[uint]vote.State, len(votes))
	for _, v := range votes {
		voteByPost[v.PostID] = vote.State(v.VoteType)
	}

	var favs []models.Favorite
	if err := gdb.Where("user_id = ? AND post_id IN ?", viewerID, ids).Find(&favs).Error; err != nil {
		return err
	}
	favByPost := make(map[uint]bool, len(favs))
	for _, f := range favs {
		favByPost[f.PostID] = true
	}

	for i := range items {
		if s, ok := voteByPost[items[i].ID]; ok {
			items[i].UserVote = s
		}
		items[i].IsFavorite = favByPost[items[i].ID]
	}
	return nil
}
