// Package favorite implements the two-state favorite toggle: a post is
// either in a user's favorites or it is not, and toggling negates that.
package favorite

import (
	"errors"

	"gorm.io/gorm"

	"github.com/timurkhal/dealspot/internal/db"
	"github.com/timurkhal/dealspot/internal/models"
)

// Toggle flips the favorite membership for (userID, postID) and reports the
// new state: true if the post was added to favorites, false if removed.
// Runs in one transaction; a create that loses the race against a concurrent
// toggle on the unique (user_id, post_id) index is retried once, which then
// sees the winner's row and removes it.
func Toggle(gdb *gorm.DB, userID, postID uint) (added bool, err error) {
	added, err = toggleOnce(gdb, userID, postID)
	if db.IsDuplicateKey(err) {
		added, err = toggleOnce(gdb, userID, postID)
	}
	return added, err
}

func toggleOnce(gdb *gorm.DB, userID, postID uint) (added bool, err error) {
	err = gdb.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotFound
			}
			return err
		}

		var existing models.Favorite
		err := tx.Where("user_id = ? AND post_id = ?", userID, postID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			fav := models.Favorite{UserID: userID, PostID: postID}
			if err := tx.Create(&fav).Error; err != nil {
				return err
			}
			added = true
			return nil
		case err != nil:
			return err
		default:
			added = false
			return tx.Delete(&existing).Error
		}
	})
	return added, err
}
