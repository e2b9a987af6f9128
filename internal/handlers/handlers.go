package handlers

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/docutrack/docutrack/internal/auth"
	"github.com/docutrack/docutrack/internal/dashboard"
	"github.com/docutrack/docutrack/internal/log"
	"github.com/docutrack/docutrack/internal/store"
	"github.com/docutrack/docutrack/internal/types"
	"github.com/docutrack/docutrack/internal/utils"
	"github.com/gin-gonic/gin"
)

type Options struct {
	CookieDomain   string
	AllowedOrigins []string
	Location       *time.Location
}

type Handlers struct {
	store   store.Store
	actions *dashboard.Actions
	signer  *auth.Signer
	live    *liveSessions

	cookieDomain string
	origins      []string
	loc          *time.Location
	now          func() time.Time
}

func New(st store.Store, actions *dashboard.Actions, signer *auth.Signer, opts Options) *Handlers {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.AllowedOrigins == nil {
		opts.AllowedOrigins = types.AllowedOrigins
	}

	return &Handlers{
		store:        st,
		actions:      actions,
		signer:       signer,
		live:         &liveSessions{users: make(map[string]int)},
		cookieDomain: opts.CookieDomain,
		origins:      opts.AllowedOrigins,
		loc:          opts.Location,
		now:          time.Now,
	}
}

func (h *Handlers) Signer() *auth.Signer {
	return h.signer
}

func (h *Handlers) Store() store.Store {
	return h.store
}

// liveSessions counts the open dashboard sockets per user on this process.
type liveSessions struct {
	mu    sync.Mutex
	users map[string]int
}

func (l *liveSessions) add(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.users[userID]++
}

func (l *liveSessions) remove(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.users[userID] <= 1 {
		delete(l.users, userID)
		return
	}
	l.users[userID]--
}

func (l *liveSessions) has(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.users[userID] > 0
}

// respondError maps errors from the dashboard actions onto HTTP responses.
func respondError(ctx *gin.Context, err error) {
	var (
		validation *dashboard.ValidationError
		failure    *dashboard.Failure
	)

	switch {
	case errors.As(err, &validation):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": validation.Fields})
	case errors.Is(err, store.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.As(err, &failure):
		log.Error("Mutation failed", failure.Err, "path", ctx.FullPath())
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": failure.Toast.Message()})
	default:
		log.Error("Request failed", err, "path", ctx.FullPath())
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func invalidField(ctx *gin.Context, field, message string) {
	ctx.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": gin.H{field: message}})
}

// parseOptionalDate reads an optional date field. An empty string is the
// same as no value.
func (h *Handlers) parseOptionalDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}

	t, err := utils.ParseDate(*value, h.loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
