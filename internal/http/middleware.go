package http

import (
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/timurkhal/dealspot/internal/auth"
)

const (
	sessionCookie = "dealspot_session"
	ctxUserKey    = "userID"
)

// CurrentUser resolves the viewer from the session cookie or an
// Authorization: Bearer header. It never aborts: anonymous requests simply
// carry no user id, and the feed renders undecorated for them.
func CurrentUser(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(sessionCookie)
		if err != nil || token == "" {
			header := c.GetHeader("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				token = strings.TrimPrefix(header, "Bearer ")
			}
		}
		if token != "" {
			if userID, err := auth.ParseToken(secret, token); err == nil {
				c.Set(ctxUserKey, userID)
			}
		}
		c.Next()
	}
}

// viewerID returns the authenticated viewer's id, if any.
func viewerID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// RequireAuth gates mutating routes. Programmatic callers get a 401 JSON
// error; page navigations are sent to the login flow with a next target.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := viewerID(c); ok {
			c.Next()
			return
		}
		if isXHR(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.Path))
		c.Abort()
	}
}

// SecurityHeadersMiddleware adds basic, sensible security headers.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prevents clickjacking
		c.Header("X-Frame-Options", "DENY")
		// Prevents MIME-type sniffing
		c.Header("X-Content-Type-Options", "nosniff")

		csp := "default-src 'self';"
		csp += " script-src 'self' 'unsafe-inline' cdn.jsdelivr.net;"
		csp += " style-src 'self' 'unsafe-inline' cdn.tailwindcss.com;"
		c.Header("Content-Security-Policy", csp)

		c.Next()
	}
}

// --- Rate Limiter ---

type IPRateLimiter struct {
	visitors map[string]*rate.Limiter
	mu       sync.RWMutex
	rps      rate.Limit
	burst    int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors: make(map[string]*rate.Limiter),
		rps:      r,
		burst:    b,
	}
}

func (rl *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	limiter, exists := rl.visitors[ip]
	if !exists {
		limiter = rate.NewLimiter(rl.rps, rl.burst)
		rl.visitors[ip] = limiter
	}
	return limiter
}

func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.GetLimiter(ip).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please wait."})
			return
		}
		c.Next()
	}
}
