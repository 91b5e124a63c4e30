package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/neurowell/neurowell/utils"
)

// SignInPath is where unauthenticated page requests are sent.
const SignInPath = "/auth"

// GatedPage reports whether a page path requires a session cookie.
func GatedPage(path string) bool {
	return path == "/home" || strings.HasPrefix(path, "/home/") || strings.HasPrefix(path, "/auth/onboard")
}

// PageGate redirects gated pages to the sign-in page when no session cookie is present.
// Only presence is checked; API calls verify the token.
func PageGate() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !GatedPage(ctx.Request.URL.Path) {
			ctx.Next()
			return
		}
		if c, err := ctx.Cookie(utils.SessionCookie); err != nil || c == "" {
			ctx.Redirect(http.StatusFound, SignInPath)
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
