package vote_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/timurkhal/dealspot/internal/models"
	"github.com/timurkhal/dealspot/internal/testutil"
	"github.com/timurkhal/dealspot/internal/vote"
)

func TestCastRecordFlipClear(t *testing.T) {
	gdb := testutil.OpenDB(t)
	author := testutil.CreateUser(t, gdb, "author")
	voter := testutil.CreateUser(t, gdb, "voter")
	cat := testutil.CreateCategory(t, gdb, "Food")
	post := testutil.CreatePost(t, gdb, models.Post{
		Title: "Half-price pizza", Description: "Tuesdays only", Place: "Pizzeria",
		CategoryID: cat.ID, AuthorID: author.ID,
	})

	// none -> up
	res, err := vote.Cast(gdb, voter.ID, post.ID, vote.Up)
	if err != nil {
		t.Fatalf("Cast(up): %v", err)
	}
	if res.State != vote.Up || res.Upvotes != 1 || res.Downvotes != 0 {
		t.Fatalf("after up: got state=%q up=%d down=%d", res.State, res.Upvotes, res.Downvotes)
	}

	// up -> down flips in one step
	res, err = vote.Cast(gdb, voter.ID, post.ID, vote.Down)
	if err != nil {
		t.Fatalf("Cast(down): %v", err)
	}
	if res.State != vote.Down || res.Upvotes != 0 || res.Downvotes != 1 {
		t.Fatalf("after flip: got state=%q up=%d down=%d", res.State, res.Upvotes, res.Downvotes)
	}

	// down -> down retracts
	res, err = vote.Cast(gdb, voter.ID, post.ID, vote.Down)
	if err != nil {
		t.Fatalf("Cast(down) again: %v", err)
	}
	if res.State != vote.None || res.Upvotes != 0 || res.Downvotes != 0 {
		t.Fatalf("after retract: got state=%q up=%d down=%d", res.State, res.Upvotes, res.Downvotes)
	}

	var rows int64
	gdb.Model(&models.Vote{}).Where("post_id = ? AND user_id = ?", post.ID, voter.ID).Count(&rows)
	if rows != 0 {
		t.Fatalf("retracted vote left %d rows", rows)
	}
}

func TestCastInvalidType(t *testing.T) {
	gdb := testutil.OpenDB(t)
	user := testutil.CreateUser(t, gdb, "voter")
	cat := testutil.CreateCategory(t, gdb, "Food")
	post := testutil.CreatePost(t, gdb, models.Post{
		Title: "Deal", Description: "d", Place: "p",
		CategoryID: cat.ID, AuthorID: user.ID,
	})

	if _, err := vote.Cast(gdb, user.ID, post.ID, vote.State("sideways")); !errors.Is(err, vote.ErrInvalidType) {
		t.Fatalf("want ErrInvalidType, got %v", err)
	}
	// none is a derived state, not a castable one
	if _, err := vote.Cast(gdb, user.ID, post.ID, vote.None); !errors.Is(err, vote.ErrInvalidType) {
		t.Fatalf("want ErrInvalidType for none, got %v", err)
	}
}

func TestCastUnknownPost(t *testing.T) {
	gdb := testutil.OpenDB(t)
	user := testutil.CreateUser(t, gdb, "voter")
	if _, err := vote.Cast(gdb, user.ID, 9999, vote.Up); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestRatingDerivedFromCounts(t *testing.T) {
	gdb := testutil.OpenDB(t)
	author := testutil.CreateUser(t, gdb, "author")
	cat := testutil.CreateCategory(t, gdb, "Food")
	post := testutil.CreatePost(t, gdb, models.Post{
		Title: "Deal", Description: "d", Place: "p",
		CategoryID: cat.ID, AuthorID: author.ID,
	})

	for i, typ := range []vote.State{vote.Up, vote.Up, vote.Up, vote.Down} {
		voter := testutil.CreateUser(t, gdb, "voter"+string(rune('a'+i)))
		if _, err := vote.Cast(gdb, voter.ID, post.ID, typ); err != nil {
			t.Fatalf("Cast: %v", err)
		}
	}

	up, down, err := vote.Counts(gdb, post.ID)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if up != 3 || down != 1 {
		t.Fatalf("got up=%d down=%d, want 3/1", up, down)
	}
	if rating := up - down; rating != 2 {
		t.Fatalf("rating = %d, want 2", rating)
	}
}

func TestConcurrentCastsKeepSingleRow(t *testing.T) {
	gdb := testutil.OpenDB(t)
	author := testutil.CreateUser(t, gdb, "author")
	voter := testutil.CreateUser(t, gdb, "voter")
	cat := testutil.CreateCategory(t, gdb, "Food")
	post := testutil.CreatePost(t, gdb, models.Post{
		Title: "Deal", Description: "d", Place: "p",
		CategoryID: cat.ID, AuthorID: author.ID,
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// SQLite serializes writers and may refuse some under load;
			// the invariant under test is row count, not success.
			vote.Cast(gdb, voter.ID, post.ID, vote.Up)
		}()
	}
	wg.Wait()

	var rows int64
	if err := gdb.Model(&models.Vote{}).
		Where("post_id = ? AND user_id = ?", post.ID, voter.ID).
		Count(&rows).Error; err != nil {
		t.Fatalf("Count: %v", err)
	}
	if rows > 1 {
		t.Fatalf("uniqueness violated: %d vote rows for one (post, user)", rows)
	}
}
