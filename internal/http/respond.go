package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const flashCookie = "dealspot_flash"

// isXHR classifies the caller: asynchronous (fetch/XHR) requests carry the
// conventional X-Requested-With header, page navigations do not.
func isXHR(c *gin.Context) bool {
	return c.GetHeader("X-Requested-With") == "XMLHttpRequest"
}

// respond is the single transport decision made per request: programmatic
// callers get the JSON payload, navigational callers get a redirect with a
// flash notice the frontend shows on the next page.
func respond(c *gin.Context, status int, payload gin.H, notice, location string) {
	if isXHR(c) {
		c.JSON(status, payload)
		return
	}
	setFlash(c, notice)
	c.Redirect(http.StatusFound, location)
}

// respondError is the error-side counterpart of respond. JSON error payloads
// always carry an "error" key.
func respondError(c *gin.Context, status int, msg, location string) {
	if isXHR(c) {
		c.JSON(status, gin.H{"error": msg})
		return
	}
	setFlash(c, msg)
	c.Redirect(http.StatusFound, location)
}

// setFlash leaves a short-lived notice cookie for the frontend to read and
// clear after a redirect.
func setFlash(c *gin.Context, msg string) {
	if msg == "" {
		return
	}
	c.SetCookie(flashCookie, msg, 60, "/", "", false, false)
}
