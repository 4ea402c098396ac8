package vote

import (
	"errors"

	"gorm.io/gorm"

	"github.com/timurkhal/dealspot/internal/db"
	"github.com/timurkhal/dealspot/internal/models"
)

// ErrInvalidType is returned when the cast is neither "up" nor "down".
var ErrInvalidType = errors.New("invalid vote type")

// Result is the caller-visible outcome of a cast: the viewer's new standing
// vote plus fresh counts, so a client can update its view without a reload.
type Result struct {
	State     State
	Outcome   Outcome
	Upvotes   int64
	Downvotes int64
}

// Cast applies one vote toggle for (userID, postID) inside a single
// transaction. The read-then-write sequence is best effort; the unique index
// on (post_id, user_id) is the real guard, and a cast that loses that race is
// retried once so it lands on the row the winner left behind.
func Cast(gdb *gorm.DB, userID, postID uint, cast State) (Result, error) {
	res, err := castOnce(gdb, userID, postID, cast)
	if db.IsDuplicateKey(err) {
		res, err = castOnce(gdb, userID, postID, cast)
	}
	return res, err
}

func castOnce(gdb *gorm.DB, userID, postID uint, cast State) (Result, error) {
	var res Result
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotFound
			}
			return err
		}
		if !Valid(cast) {
			return ErrInvalidType
		}

		cur := None
		var existing models.Vote
		err := tx.Where("post_id = ? AND user_id = ?", postID, userID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// no standing vote
		case err != nil:
			return err
		default:
			cur = State(existing.VoteType)
		}

		next, outcome := Apply(cur, cast)
		res.State = next
		res.Outcome = outcome

		switch outcome {
		case Recorded:
			v := models.Vote{PostID: postID, UserID: userID, VoteType: string(next)}
			if err := tx.Create(&v).Error; err != nil {
				return err
			}
		case Cleared:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
		case Flipped:
			if err := tx.Model(&existing).Update("vote_type", string(next)).Error; err != nil {
				return err
			}
		}

		up, down, err := countVotes(tx, postID)
		if err != nil {
			return err
		}
		res.Upvotes, res.Downvotes = up, down
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Counts returns the live up/down vote counts for a post. The rating
// (upvotes minus downvotes) is always derived from these rows, never stored.
func Counts(gdb *gorm.DB, postID uint) (up, down int64, err error) {
	return countVotes(gdb, postID)
}

func countVotes(tx *gorm.DB, postID uint) (up, down int64, err error) {
	if err = tx.Model(&models.Vote{}).
		Where("post_id = ? AND vote_type = ?", postID, string(Up)).
		Count(&up).Error; err != nil {
		return 0, 0, err
	}
	if err = tx.Model(&models.Vote{}).
		Where("post_id = ? AND vote_type = ?", postID, string(Down)).
		Count(&down).Error; err != nil {
		return 0, 0, err
	}
	return up, down, nil
}
