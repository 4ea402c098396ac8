package http

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/timurkhal/dealspot/internal/auth"
	"github.com/timurkhal/dealspot/internal/db"
	"github.com/timurkhal/dealspot/internal/models"
)

type RegisterInput struct {
	Username string `form:"username" json:"username" binding:"required,min=3,max=150"`
	Password string `form:"password" json:"password" binding:"required,min=6,max=72"`
}

type LoginInput struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

func (e *Env) setSession(c *gin.Context, userID uint) error {
	token, err := auth.NewToken(e.JWTSecret, userID)
	if err != nil {
		return err
	}
	c.SetCookie(sessionCookie, token, int(auth.SessionTTL.Seconds()), "/", "", false, true)
	return nil
}

// AuthPage serves the sign-in/sign-up shell. Viewers who already hold a
// session are sent back to the feed instead.
func (e *Env) AuthPage(c *gin.Context) {
	if _, ok := viewerID(c); ok {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.File(indexFile)
}

// alreadySignedIn refuses register/login attempts from a viewer who already
// holds a session: programmatic callers get a 409, navigations go home.
func alreadySignedIn(c *gin.Context) bool {
	if _, ok := viewerID(c); !ok {
		return false
	}
	respondError(c, http.StatusConflict, "You are already signed in", "/")
	return true
}

// Register creates an account and signs the new user in.
func (e *Env) Register(c *gin.Context) {
	if alreadySignedIn(c) {
		return
	}
	var input RegisterInput
	if err := c.ShouldBind(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), "/register")
		return
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to register", "/register")
		return
	}

	user := models.User{Username: input.Username, PasswordHash: hash}
	if err := e.DB.Create(&user).Error; err != nil {
		if db.IsDuplicateKey(err) {
			respondError(c, http.StatusConflict, "Username already taken", "/register")
			return
		}
		log.Printf("Error creating user: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to register", "/register")
		return
	}

	if err := e.setSession(c, user.ID); err != nil {
		log.Printf("Error issuing session: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to register", "/register")
		return
	}
	respond(c, http.StatusCreated, gin.H{"success": true, "user": user}, "Welcome, "+user.Username+"!", "/")
}

// Login checks credentials and starts a session. The next query parameter
// carries the page a navigational caller was heading to.
func (e *Env) Login(c *gin.Context) {
	if alreadySignedIn(c) {
		return
	}
	var input LoginInput
	if err := c.ShouldBind(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), "/login")
		return
	}

	var user models.User
	err := e.DB.Where("username = ?", input.Username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !auth.CheckPassword(user.PasswordHash, input.Password)) {
		respondError(c, http.StatusUnauthorized, "Invalid username or password", "/login")
		return
	}
	if err != nil {
		log.Printf("Error fetching user: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to sign in", "/login")
		return
	}

	if err := e.setSession(c, user.ID); err != nil {
		log.Printf("Error issuing session: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to sign in", "/login")
		return
	}

	// Only site-local paths may be redirect targets: "//host" and "/\host"
	// are protocol-relative URLs, not paths.
	next := c.Query("next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		next = "/"
	}
	respond(c, http.StatusOK, gin.H{"success": true, "user": user}, "Welcome back, "+user.Username+"!", next)
}

// Logout clears the session cookie.
func (e *Env) Logout(c *gin.Context) {
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	respond(c, http.StatusOK, gin.H{"success": true}, "Signed out", "/")
}

// Me returns the authenticated viewer's account.
func (e *Env) Me(c *gin.Context) {
	userID, ok := viewerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	var user models.User
	if err := e.DB.First(&user, userID).Error; err != nil {
		log.Printf("Error fetching user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
