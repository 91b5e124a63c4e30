package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/neurowell/neurowell/utils"
)

const (
	// ContextUserIDKey is the key used to store the authenticated identity key in Gin context.
	ContextUserIDKey = "user_id"
	// ContextEmailKey stores the session email.
	ContextEmailKey = "user_email"
	// ContextTokenKey stores the raw session token so sign-out can revoke it.
	ContextTokenKey = "session_token"
	// ContextClaimsKey stores the verified claims.
	ContextClaimsKey = "session_claims"
)

// SessionToken extracts the session token from the authToken cookie or a Bearer header.
func SessionToken(ctx *gin.Context) string {
	if c, err := ctx.Cookie(utils.SessionCookie); err == nil && strings.TrimSpace(c) != "" {
		return strings.TrimSpace(c)
	}
	parts := strings.SplitN(ctx.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// AuthRequired resolves the session to an identity key, rejecting the request otherwise.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := SessionToken(ctx)
		if token == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "unauthorized")
			ctx.Abort()
			return
		}

		if err := utils.CheckToken(token); errors.Is(err, utils.ErrTokenRevoked) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextEmailKey, claims.Email)
		ctx.Set(ContextTokenKey, token)
		ctx.Set(ContextClaimsKey, claims)
		ctx.Next()
	}
}

// UserID returns the identity key set by AuthRequired.
func UserID(ctx *gin.Context) (string, bool) {
	id := ctx.GetString(ContextUserIDKey)
	return id, id != ""
}
