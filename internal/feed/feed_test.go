package feed_test

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/timurkhal/dealspot/internal/feed"
	"github.com/timurkhal/dealspot/internal/models"
	"github.com/timurkhal/dealspot/internal/testutil"
	"github.com/timurkhal/dealspot/internal/vote"
)

func addVotes(t *testing.T, gdb *gorm.DB, postID uint, up, down int) {
	t.Helper()
	n := 0
	for i := 0; i < up; i++ {
		n++
		u := testutil.CreateUser(t, gdb, fmt.Sprintf("up%d-%d", postID, n))
		if err := gdb.Create(&models.Vote{PostID: postID, UserID: u.ID, VoteType: "up"}).Error; err != nil {
			t.Fatalf("create vote: %v", err)
		}
	}
	for i := 0; i < down; i++ {
		n++
		u := testutil.CreateUser(t, gdb, fmt.Sprintf("down%d-%d", postID, n))
		if err := gdb.Create(&models.Vote{PostID: postID, UserID: u.ID, VoteType: "down"}).Error; err != nil {
			t.Fatalf("create vote: %v", err)
		}
	}
}

func titles(items []feed.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func TestGlobalSortByRating(t *testing.T) {
	gdb := testutil.OpenDB(t)
	author := testutil.CreateUser(t, gdb, "author")
	cat := testutil.CreateCategory(t, gdb, "Food")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mk := func(title string, offset time.Duration) models.Post {
		return testutil.CreatePost(t, gdb, models.Post{
			Title: title, Description: "d", Place: "p",
			CategoryID: cat.ID, AuthorID: author.ID,
			CreatedAt: base.Add(offset), UpdatedAt: base.Add(offset),
		})
	}
	a := mk("A", 0)
	b := mk("B", time.Minute)
	c := mk("C", 2*time.Minute)

	addVotes(t, gdb, a.ID, 5, 1)
	addVotes(t, gdb, b.ID, 5, 0)
	addVotes(t, gdb, c.ID, 3, 0)

	items, err := feed.Global(gdb, nil, feed.SortRating)
	if err != nil {
		t.Fatalf("Global: %v", err)
	}
	got := titles(items)
	// B beats A on fewer downvotes despite equal upvotes.
	want := []string{"B", "A", "C"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rating order = %v, want %v", got, want)
		}
	}
	if items[0].UpvotesCount != 5 || items[0].DownvotesCount != 0 {
		t.Fatalf("B counts = %d/%d, want 5/0", items[0].UpvotesCount, items[0].DownvotesCount)
	}
}

func TestGlobalSortNewestDefault(t *testing.T) {
	gdb := testutil.OpenDB(t)
	author := testutil.CreateUser(t, gdb, "author")
	cat := testutil.CreateCategory(t, gdb, "Food")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	testutil.CreatePost(t, gdb, models.Post{
		Title: "old", Description: "d", Place: "p",
		CategoryID: cat.ID, AuthorID: author.ID, CreatedAt: base,
	})
	testutil.CreatePost(t, gdb, models.Post{
		Title: "new", Description: "d", Place: "p",
		CategoryID: cat.ID, AuthorID: author.ID, CreatedAt: base.Add(time.Hour),
	})

	if feed.ParseSort("") != feed.SortNewest || feed.ParseSort("bogus") != feed.SortNewest {
		t.Fatal("ParseSort must default to newest")
	}

	items, err := feed.Global(gdb, nil, feed.ParseSort(""))
	if err != nil {
		t.Fatalf("Global: %v", err)
	}
	if got := titles(items); got[0] != "new" || got[1] != "old" {
		t.Fatalf("newest order = %v", got)
	}
}

func TestGlobalCategoryFilter(t *testing.T) {
	gdb := testutil.OpenDB(t)
	author := testutil.CreateUser(t, gdb, "author")
	food := testutil.CreateCategory(t, gdb, "Food")
	tech := testutil.CreateCategory(t, gdb, "Electronics")
	testutil.CreatePost(t, gdb, models.Post{
		Title: "pizza", Description: "d", Place: "p",
		CategoryID: food.ID, AuthorID: author.ID,
	})

	items, err := feed.Global(gdb, &food.ID, feed.SortNewest)
	if err != nil {
		t.Fatalf("Global: %v", err)
	}
	if len(items) != 1 || items[0].CategoryName != "Food" {
		t.Fatalf("filter by food: got %d items", len(items))
	}

	// A category with no posts yields an empty list, not an error.
	items, err = feed.Global(gdb, &tech.ID, feed.SortNewest)
	if err != nil {
		t.Fatalf("Global with empty category: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("empty category: got %d items", len(items))
	}

	// Same for ids that name no category at all. 0 is a supplied id like
	// any other, not a request for the unfiltered feed.
	for _, unknown := range []uint{424242, 0} {
		id := unknown
		items, err = feed.Global(gdb, &id, feed.SortNewest)
		if err != nil {
			t.Fatalf("Global with category %d: %v", unknown, err)
		}
		if len(items) != 0 {
			t.Fatalf("category %d: got %d items, want empty", unknown, len(items))
		}
	}
}

func TestByAuthor(t *testing.T) {
	gdb := testutil.OpenDB(t)
	alice := testutil.CreateUser(t, gdb, "alice")
	bob := testutil.CreateUser(t, gdb, "bob")
	cat := testutil.CreateCategory(t, gdb, "Food")
	testutil.CreatePost(t, gdb, models.Post{
		Title: "mine", Description: "d", Place: "p", CategoryID: cat.ID, AuthorID: alice.ID,
	})
	testutil.CreatePost(t, gdb, models.Post{
		Title: "theirs", Description: "d", Place: "p", CategoryID: cat.ID, AuthorID: bob.ID,
	})

	items, err := feed.ByAuthor(gdb, alice.ID, feed.SortNewest)
	if err != nil {
		t.Fatalf("ByAuthor: %v", err)
	}
	if len(items) != 1 || items[0].Title != "mine" {
		t.Fatalf("ByAuthor = %v", titles(items))
	}
}

func TestFavoritesOrderByFavoriteTime(t *testing.T) {
	gdb := testutil.OpenDB(t)
	author := testutil.CreateUser(t, gdb, "author")
	reader := testutil.CreateUser(t, gdb, "reader")
	cat := testutil.CreateCategory(t, gdb, "Food")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	oldPost := testutil.CreatePost(t, gdb, models.Post{
		Title: "older post", Description: "d", Place: "p",
		CategoryID: cat.ID, AuthorID: author.ID, CreatedAt: base,
	})
	newPost := testutil.CreatePost(t, gdb, models.Post{
		Title: "newer post", Description: "d", Place: "p",
		CategoryID: cat.ID, AuthorID: author.ID, CreatedAt: base.Add(time.Hour),
	})

	// The newer post was favorited first; the favorites feed must follow the
	// favorite's own timestamp, so the older post comes out on top.
	if err := gdb.Create(&models.Favorite{
		UserID: reader.ID, PostID: newPost.ID, CreatedAt: base.Add(2 * time.Hour),
	}).Error; err != nil {
		t.Fatalf("create favorite: %v", err)
	}
	if err := gdb.Create(&models.Favorite{
		UserID: reader.ID, PostID: oldPost.ID, CreatedAt: base.Add(3 * time.Hour),
	}).Error; err != nil {
		t.Fatalf("create favorite: %v", err)
	}

	items, err := feed.FavoritesOf(gdb, reader.ID, feed.SortNewest)
	if err != nil {
		t.Fatalf("FavoritesOf: %v", err)
	}
	if got := titles(items); len(got) != 2 || got[0] != "older post" {
		t.Fatalf("favorites order = %v, want older post first", got)
	}
}

func TestDecorate(t *testing.T) {
	gdb := testutil.OpenDB(t)
	author := testutil.CreateUser(t, gdb, "author")
	reader := testutil.CreateUser(t, gdb, "reader")
	cat := testutil.CreateCategory(t, gdb, "Food")

	voted := testutil.CreatePost(t, gdb, models.Post{
		Title: "voted", Description: "d", Place: "p", CategoryID: cat.ID, AuthorID: author.ID,
	})
	faved := testutil.CreatePost(t, gdb, models.Post{
		Title: "faved", Description: "d", Place: "p", CategoryID: cat.ID, AuthorID: author.ID,
	})
	testutil.CreatePost(t, gdb, models.Post{
		Title: "plain", Description: "d", Place: "p", CategoryID: cat.ID, AuthorID: author.ID,
	})

	if err := gdb.Create(&models.Vote{PostID: voted.ID, UserID: reader.ID, VoteType: "down"}).Error; err != nil {
		t.Fatalf("create vote: %v", err)
	}
	if err := gdb.Create(&models.Favorite{PostID: faved.ID, UserID: reader.ID}).Error; err != nil {
		t.Fatalf("create favorite: %v", err)
	}

	items, err := feed.Global(gdb, nil, feed.SortNewest)
	if err != nil {
		t.Fatalf("Global: %v", err)
	}

	// Anonymous viewers see no vote and no favorite regardless of rows.
	for _, it := range items {
		if it.UserVote != vote.None || it.IsFavorite {
			t.Fatalf("undecorated item %q leaked viewer state: %q/%v", it.Title, it.UserVote, it.IsFavorite)
		}
	}

	if err := feed.Decorate(gdb, reader.ID, items); err != nil {
		t.Fatalf("Decorate: %v", err)
	}
	byTitle := map[string]feed.Item{}
	for _, it := range items {
		byTitle[it.Title] = it
	}
	if byTitle["voted"].UserVote != vote.Down {
		t.Errorf("voted post: user_vote = %q, want down", byTitle["voted"].UserVote)
	}
	if !byTitle["faved"].IsFavorite {
		t.Error("faved post should be marked favorite")
	}
	if byTitle["plain"].UserVote != vote.None || byTitle["plain"].IsFavorite {
		t.Error("plain post should stay undecorated")
	}
}
