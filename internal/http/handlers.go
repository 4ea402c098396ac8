package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/timurkhal/dealspot/internal/favorite"
	"github.com/timurkhal/dealspot/internal/feed"
	"github.com/timurkhal/dealspot/internal/models"
	"github.com/timurkhal/dealspot/internal/vote"
	"github.com/timurkhal/dealspot/internal/ws"
)

// --- Configuration Constants ---
const (
	indexFile      = "./public/index.html"
	rateLimitRPS   = 1.0 / 3.0 // 1 request every 3 seconds
	rateLimitBurst = 3
)

// --- Structs for request binding ---
type CreatePostInput struct {
	Title       string `form:"title" json:"title" binding:"required,min=1,max=200"`
	Description string `form:"description" json:"description" binding:"required,min=1"`
	Place       string `form:"place" json:"place" binding:"required,min=1,max=200"`
	CategoryID  uint   `form:"category_id" json:"category_id" binding:"required"`
}

// WsMessage is the envelope pushed to feed subscribers.
type WsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// --- Handlers ---
type Env struct {
	DB        *gorm.DB
	Hub       *ws.Hub
	JWTSecret []byte
}

// Page serves the frontend shell for navigational routes; the SPA routes
// itself and talks JSON back to us.
func (e *Env) Page(c *gin.Context) {
	c.File(indexFile)
}

// Home serves the feed: the HTML shell for page loads, the filtered and
// sorted post list for programmatic callers.
func (e *Env) Home(c *gin.Context) {
	if !isXHR(c) {
		c.File(indexFile)
		return
	}

	sortBy := feed.ParseSort(c.Query("sort"))
	rawCategory := c.Query("category")

	var (
		items []feed.Item
		err   error
	)
	if rawCategory == "" {
		items, err = feed.Global(e.DB, nil, sortBy)
	} else if id, perr := strconv.ParseUint(rawCategory, 10, 32); perr != nil {
		// A value that cannot name any category matches nothing; the feed
		// is simply empty, never an error.
		items = []feed.Item{}
	} else {
		cid := uint(id)
		items, err = feed.Global(e.DB, &cid, sortBy)
	}
	if err != nil {
		log.Printf("Error fetching feed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	if !e.decorate(c, items) {
		return
	}

	var categories []models.Category
	if err := e.DB.Order("name").Find(&categories).Error; err != nil {
		log.Printf("Error fetching categories: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":            items,
		"categories":       categories,
		"current_category": rawCategory,
		"sort_by":          string(sortBy),
	})
}

// MyPosts lists the viewer's own posts.
func (e *Env) MyPosts(c *gin.Context) {
	if !isXHR(c) {
		c.File(indexFile)
		return
	}
	userID, _ := viewerID(c)
	items, err := feed.ByAuthor(e.DB, userID, feed.ParseSort(c.Query("sort")))
	if err != nil {
		log.Printf("Error fetching user posts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}
	if !e.decorate(c, items) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": items})
}

// FavoritePosts lists the posts the viewer has favorited, newest favorite
// first by default.
func (e *Env) FavoritePosts(c *gin.Context) {
	if !isXHR(c) {
		c.File(indexFile)
		return
	}
	userID, _ := viewerID(c)
	items, err := feed.FavoritesOf(e.DB, userID, feed.ParseSort(c.Query("sort")))
	if err != nil {
		log.Printf("Error fetching favorites: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}
	if !e.decorate(c, items) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": items})
}

// Categories lists all categories, for the post form and the filter bar.
func (e *Env) Categories(c *gin.Context) {
	var categories []models.Category
	if err := e.DB.Order("name").Find(&categories).Error; err != nil {
		log.Printf("Error fetching categories: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// CreatePost stores a new discount listing owned by the viewer.
func (e *Env) CreatePost(c *gin.Context) {
	userID, _ := viewerID(c)

	var input CreatePostInput
	if err := c.ShouldBind(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), "/create/")
		return
	}

	var category models.Category
	if err := e.DB.First(&category, input.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusBadRequest, "Unknown category", "/create/")
			return
		}
		log.Printf("Error checking category: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to create post", "/create/")
		return
	}

	post := models.Post{
		Title:       input.Title,
		Description: input.Description,
		Place:       input.Place,
		CategoryID:  input.CategoryID,
		AuthorID:    userID,
	}
	if err := e.DB.Create(&post).Error; err != nil {
		log.Printf("Error creating post: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to create post", "/create/")
		return
	}

	e.broadcastMessage(WsMessage{Type: "new_post", Data: post})

	respond(c, http.StatusCreated, gin.H{"success": true, "post": post}, "Post created!", "/")
}

// VotePost casts, flips or retracts the viewer's vote on a post and returns
// the new per-user state plus fresh counts.
func (e *Env) VotePost(c *gin.Context) {
	userID, _ := viewerID(c)
	postID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid post ID", "/")
		return
	}

	res, err := vote.Cast(e.DB, userID, uint(postID), vote.State(c.Param("voteType")))
	if err != nil {
		switch {
		case errors.Is(err, vote.ErrInvalidType):
			respondError(c, http.StatusBadRequest, "Invalid vote type", "/")
		case errors.Is(err, models.ErrNotFound):
			respondError(c, http.StatusNotFound, "Post not found", "/")
		default:
			log.Printf("Error in vote transaction: %v", err)
			respondError(c, http.StatusInternalServerError, "Failed to process vote", "/")
		}
		return
	}

	counts := gin.H{"id": uint(postID), "upvotes_count": res.Upvotes, "downvotes_count": res.Downvotes}
	e.broadcastMessage(WsMessage{Type: "vote", Data: counts})

	var notice string
	switch res.Outcome {
	case vote.Recorded:
		notice = "Vote recorded"
	case vote.Cleared:
		notice = "Vote removed"
	case vote.Flipped:
		notice = "Vote changed"
	}

	respond(c, http.StatusOK, gin.H{
		"success":         true,
		"user_vote":       res.State,
		"upvotes_count":   res.Upvotes,
		"downvotes_count": res.Downvotes,
	}, notice, "/")
}

// ToggleFavorite adds the post to the viewer's favorites, or removes it if
// it is already there.
func (e *Env) ToggleFavorite(c *gin.Context) {
	userID, _ := viewerID(c)
	postID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid post ID", "/")
		return
	}

	added, err := favorite.Toggle(e.DB, userID, uint(postID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Post not found", "/")
			return
		}
		log.Printf("Error in favorite transaction: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to toggle favorite", "/")
		return
	}

	msg := "Post removed from favorites"
	if added {
		msg = "Post added to favorites"
	}
	respond(c, http.StatusOK, gin.H{"success": true, "is_favorite": added, "message": msg}, msg, "/")
}

// DeletePost removes a post the viewer owns, along with its votes and
// favorites. Non-owners are refused and the post is left untouched.
func (e *Env) DeletePost(c *gin.Context) {
	userID, _ := viewerID(c)
	postID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid post ID", "/")
		return
	}

	err = e.DB.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, uint(postID)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotFound
			}
			return err
		}
		if post.AuthorID != userID {
			return models.ErrForbidden
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			respondError(c, http.StatusNotFound, "Post not found", "/")
		case errors.Is(err, models.ErrForbidden):
			respondError(c, http.StatusForbidden, "You can only delete your own posts", "/")
		default:
			log.Printf("Error in delete transaction: %v", err)
			respondError(c, http.StatusInternalServerError, "Failed to delete post", "/")
		}
		return
	}

	e.broadcastMessage(WsMessage{Type: "delete", Data: gin.H{"id": uint(postID)}})

	respond(c, http.StatusOK, gin.H{"success": true, "message": "Post deleted"}, "Post deleted", "/")
}

// decorate attaches the viewer's vote/favorite state to a page of items.
// Anonymous viewers keep the zero decoration. Reports false after writing an
// error response.
func (e *Env) decorate(c *gin.Context, items []feed.Item) bool {
	userID, ok := viewerID(c)
	if !ok {
		return true
	}
	if err := feed.Decorate(e.DB, userID, items); err != nil {
		log.Printf("Error decorating feed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return false
	}
	return true
}

func (e *Env) broadcastMessage(msg WsMessage) {
	jsonMsg, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshalling WS message: %v", err)
		return
	}
	e.Hub.Broadcast <- jsonMsg
}
