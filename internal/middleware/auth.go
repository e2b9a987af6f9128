package middleware

import (
	"net/http"
	"strings"

	"github.com/docutrack/docutrack/internal/auth"
	"github.com/docutrack/docutrack/internal/store"
	"github.com/docutrack/docutrack/internal/types"
	"github.com/gin-gonic/gin"
)

const TokenCookie = "token"

// AuthMiddleware accepts a Bearer header or the session cookie and stores
// the user's profile under types.ContextUserKey.
func AuthMiddleware(signer *auth.Signer, users store.UserStore) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, ok := extractToken(ctx)
		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token is required"})
			return
		}

		claims, err := signer.VerifyJWT(tokenString)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		user, err := users.UserByID(ctx.Request.Context(), claims.Subject)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}

		ctx.Set(types.ContextUserKey, user.Profile())
		ctx.Next()
	}
}

func extractToken(ctx *gin.Context) (string, bool) {
	if authHeader := ctx.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}

	if cookie, err := ctx.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie, true
	}

	return "", false
}
