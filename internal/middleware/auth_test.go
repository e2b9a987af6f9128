package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/docutrack/docutrack/internal/auth"
	"github.com/docutrack/docutrack/internal/models"
	"github.com/docutrack/docutrack/internal/store"
	"github.com/docutrack/docutrack/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*gin.Engine, *auth.Signer, models.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemoryStore()
	user := models.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"}
	require.NoError(t, st.CreateUser(context.Background(), &user))

	signer, err := auth.NewSigner("test-secret", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", AuthMiddleware(signer, st), func(ctx *gin.Context) {
		user, _ := ctx.Get(types.ContextUserKey)
		ctx.JSON(http.StatusOK, user)
	})

	return r, signer, user
}

func TestAuthMiddleware(t *testing.T) {
	r, signer, user := setup(t)

	valid, err := signer.GenerateJWT(user.ID, user.Email)
	require.NoError(t, err)
	stranger, err := signer.GenerateJWT("8d1c3b1e-0a43-4c55-8f0a-3e2d5c6b7a02", "ghost@example.com")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		cookie string
		want   int
	}{
		{name: "bearer token", header: "Bearer " + valid, want: http.StatusOK},
		{name: "cookie token", cookie: valid, want: http.StatusOK},
		{name: "missing token", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Token " + valid, want: http.StatusUnauthorized},
		{name: "bad signature", header: "Bearer " + valid + "x", want: http.StatusUnauthorized},
		{name: "unknown user", header: "Bearer " + stranger, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: TokenCookie, Value: tt.cookie})
			}

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"uid":"`+user.ID+`"`)
			}
		})
	}
}
