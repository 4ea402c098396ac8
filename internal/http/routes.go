package http

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/timurkhal/dealspot/internal/ws"
)

// SetupRoutes configures all application routes and middleware.
func SetupRoutes(router *gin.Engine, gdb *gorm.DB, hub *ws.Hub, jwtSecret []byte) {

	// --- Dependencies ---
	env := &Env{DB: gdb, Hub: hub, JWTSecret: jwtSecret}

	// --- Middleware ---
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())

	corsOrigin := os.Getenv("CORS_ORIGIN")
	if corsOrigin == "" {
		corsOrigin = "*" // Default to allow all for local dev
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{corsOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Every request resolves its viewer; mutations additionally require one.
	router.Use(CurrentUser(jwtSecret))

	// --- Rate Limiter Setup ---
	limiter := NewIPRateLimiter(rate.Limit(rateLimitRPS), rateLimitBurst)
	go func() {
		for {
			time.Sleep(10 * time.Minute)
			limiter.mu.Lock()
			for ip, v := range limiter.visitors {
				if v.Allow() {
					// Idle long enough to have refilled; drop it.
					delete(limiter.visitors, ip)
				}
			}
			limiter.mu.Unlock()
		}
	}()

	// --- Pages and feed ---
	router.GET("/", env.Home)
	router.GET("/login", env.AuthPage)
	router.GET("/register", env.AuthPage)
	router.GET("/create/", RequireAuth(), env.Page)
	router.GET("/my-posts/", RequireAuth(), env.MyPosts)
	router.GET("/favorites/", RequireAuth(), env.FavoritePosts)

	// --- Mutations ---
	router.POST("/create/", RequireAuth(), RateLimitMiddleware(limiter), env.CreatePost)
	router.POST("/vote/:id/:voteType/", RequireAuth(), env.VotePost)
	router.POST("/favorite/:id/", RequireAuth(), env.ToggleFavorite)
	router.POST("/delete/:id/", RequireAuth(), env.DeletePost)

	// --- API Routes ---
	api := router.Group("/api")
	{
		api.GET("/categories", env.Categories)
		api.POST("/register", RateLimitMiddleware(limiter), env.Register)
		api.POST("/login", RateLimitMiddleware(limiter), env.Login)
		api.POST("/logout", env.Logout)
		api.GET("/me", env.Me)
	}

	// --- WebSocket Route ---
	router.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(hub, c.Writer, c.Request)
	})
}
