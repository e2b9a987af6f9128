package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/docutrack/docutrack/internal/auth"
	"github.com/docutrack/docutrack/internal/bg"
	"github.com/docutrack/docutrack/internal/dashboard"
	"github.com/docutrack/docutrack/internal/handlers"
	"github.com/docutrack/docutrack/internal/models"
	"github.com/docutrack/docutrack/internal/store"
	"github.com/docutrack/docutrack/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:3000"

func newTestRouter(t *testing.T) (*gin.Engine, *store.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemoryStore()
	signer, err := auth.NewSigner("test-secret", time.Hour)
	require.NoError(t, err)

	actions := dashboard.NewActions(st, nil, bg.Sync{})
	h := handlers.New(st, actions, signer, handlers.Options{AllowedOrigins: []string{testOrigin}})

	return NewRouter(h, []string{testOrigin}), st
}

func do(t *testing.T, r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type authResponse struct {
	User  types.UserResponse `json:"user"`
	Token string             `json:"token"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func register(t *testing.T, r http.Handler, name, email string) authResponse {
	t.Helper()

	rec := do(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     name,
		"email":    email,
		"password": "correct horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authResponse](t, rec)
}

func createEvent(t *testing.T, r http.Handler, token string) models.Event {
	t.Helper()

	rec := do(t, r, http.MethodPost, "/api/events", token, gin.H{
		"title":              "Thesis defense",
		"dueDate":            time.Now().AddDate(0, 0, 10).Format(time.DateOnly),
		"reminderPreference": "daily",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[struct {
		Event models.Event `json:"event"`
	}](t, rec).Event
}

func TestAuthFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	ada := register(t, r, "Ada", "Ada@Example.com")
	assert.Equal(t, "ada@example.com", ada.User.Email)
	assert.NotEmpty(t, ada.User.ID)
	assert.NotEmpty(t, ada.Token)

	rec := do(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Ada", "email": "ada@example.com", "password": "correct horse",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already exists", decode[errorResponse](t, rec).Error)

	rec = do(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": "wrong password"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[authResponse](t, rec)

	rec = do(t, r, http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[struct {
		User types.UserResponse `json:"user"`
	}](t, rec)
	assert.Equal(t, ada.User, me.User)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: login.Token})
	cookieRec := httptest.NewRecorder()
	r.ServeHTTP(cookieRec, req)
	assert.Equal(t, http.StatusOK, cookieRec.Code)

	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/api/auth/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/api/auth/me", "garbage", nil).Code)

	rec = do(t, r, http.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestEventsAndDocuments(t *testing.T) {
	r, st := newTestRouter(t)
	ctx := context.Background()
	token := register(t, r, "Ada", "ada@example.com").Token

	rec := do(t, r, http.MethodPost, "/api/events", token, gin.H{"title": "a"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Title must be at least 2 characters.", decode[errorResponse](t, rec).Fields["title"])

	event := createEvent(t, r, token)
	assert.Equal(t, types.ReminderDaily, event.ReminderPreference)
	assert.False(t, event.IsCompleted)

	rec = do(t, r, http.MethodGet, "/api/events", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[handlers.ListEventsResponse](t, rec)
	require.Len(t, list.Active, 1)
	assert.Empty(t, list.Completed)
	require.NotNil(t, list.Active[0].Reminder)
	assert.Contains(t, *list.Active[0].Reminder, "Daily reminders active (due ")

	docsPath := "/api/events/" + event.ID + "/documents"

	rec = do(t, r, http.MethodPost, docsPath, token, gin.H{"title": "Chapter 1", "googleDocsLink": "https://example.com/doc"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode[errorResponse](t, rec).Fields
	assert.Equal(t, "URL must be a valid Google Docs link.", fields["googleDocsLink"])
	assert.Contains(t, fields, "dueDate")

	rec = do(t, r, http.MethodPost, docsPath, token, gin.H{
		"title":          "Chapter 1",
		"googleDocsLink": "https://docs.google.com/document/d/1",
		"dueDate":        "2026-11-20",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc := decode[struct {
		Document models.Document `json:"document"`
	}](t, rec).Document
	assert.Equal(t, types.StatusInProgress, doc.Status)
	assert.False(t, doc.Completed)

	docPath := docsPath + "/" + doc.ID

	rec = do(t, r, http.MethodPut, docPath+"/completion", token, gin.H{"isCompleted": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[struct {
		Document models.Document `json:"document"`
	}](t, rec).Document
	assert.Equal(t, types.StatusCompleted, updated.Status)
	assert.True(t, updated.Completed)

	stored, err := st.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted)

	list = decode[handlers.ListEventsResponse](t, do(t, r, http.MethodGet, "/api/events", token, nil))
	assert.Empty(t, list.Active)
	assert.Len(t, list.Completed, 1)

	rec = do(t, r, http.MethodPut, docPath+"/status", token, gin.H{"status": "Done"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPut, docPath+"/status", token, gin.H{"status": "Pending"})
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err = st.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsCompleted)

	rec = do(t, r, http.MethodGet, docsPath, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	progress := decode[handlers.ListDocumentsResponse](t, rec)
	assert.Equal(t, 1, progress.Total)
	assert.Equal(t, 0, progress.Completed)
	assert.Equal(t, 0, progress.Percent)
	assert.Equal(t, types.StatusPending, progress.Documents[0].Status)

	rec = do(t, r, http.MethodPatch, "/api/events/"+event.ID, token, gin.H{"title": "Final defense"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Final defense", decode[struct {
		Event models.Event `json:"event"`
	}](t, rec).Event.Title)

	rec = do(t, r, http.MethodDelete, "/api/events/"+event.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	remaining, err := st.ListDocuments(ctx, event.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, docsPath, token, nil).Code)
}

func TestDocuments_DeletingLastOpenDocumentCompletesEvent(t *testing.T) {
	r, st := newTestRouter(t)
	token := register(t, r, "Ada", "ada@example.com").Token
	event := createEvent(t, r, token)
	docsPath := "/api/events/" + event.ID + "/documents"

	var ids []string
	for _, title := range []string{"Chapter 1", "Chapter 2"} {
		rec := do(t, r, http.MethodPost, docsPath, token, gin.H{
			"title":          title,
			"googleDocsLink": "https://docs.google.com/document/d/1",
			"dueDate":        "2026-11-20",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		ids = append(ids, decode[struct {
			Document models.Document `json:"document"`
		}](t, rec).Document.ID)
	}

	require.Equal(t, http.StatusOK, do(t, r, http.MethodPut, docsPath+"/"+ids[0]+"/completion", token, gin.H{"isCompleted": true}).Code)

	stored, err := st.GetEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsCompleted)

	require.Equal(t, http.StatusOK, do(t, r, http.MethodDelete, docsPath+"/"+ids[1], token, nil).Code)

	stored, err = st.GetEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted)

	require.Equal(t, http.StatusOK, do(t, r, http.MethodDelete, docsPath+"/"+ids[0], token, nil).Code)

	stored, err = st.GetEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsCompleted, "an event without documents is never complete")
}

func TestEvents_OwnershipAndIDs(t *testing.T) {
	r, _ := newTestRouter(t)
	ada := register(t, r, "Ada", "ada@example.com").Token
	bob := register(t, r, "Bob", "bob@example.com").Token

	event := createEvent(t, r, ada)

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/api/events/"+event.ID+"/documents", bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodDelete, "/api/events/"+event.ID, bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodPatch, "/api/events/"+event.ID, bob, gin.H{"title": "Mine"}).Code)

	list := decode[handlers.ListEventsResponse](t, do(t, r, http.MethodGet, "/api/events", bob, nil))
	assert.Empty(t, list.Active)
	assert.Empty(t, list.Completed)

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodDelete, "/api/events/42", ada, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/api/events", "", nil).Code)
}

func TestNotificationRules(t *testing.T) {
	r, _ := newTestRouter(t)
	token := register(t, r, "Ada", "ada@example.com").Token

	rec := do(t, r, http.MethodPost, "/api/notification-rules", token, gin.H{"triggerType": "reminder", "channel": "discord"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Fields, "config.url")

	rec = do(t, r, http.MethodPost, "/api/notification-rules", token, gin.H{"triggerType": "weekly", "channel": "pager"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode[errorResponse](t, rec).Fields
	assert.Contains(t, fields, "triggerType")
	assert.Contains(t, fields, "channel")

	rec = do(t, r, http.MethodPost, "/api/notification-rules", token, gin.H{
		"triggerType": "reminder",
		"channel":     "discord",
		"config":      gin.H{"url": "https://discord.com/api/webhooks/1/abc"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rule := decode[struct {
		Rule models.NotificationRule `json:"rule"`
	}](t, rec).Rule
	assert.True(t, rule.IsActive)

	rec = do(t, r, http.MethodGet, "/api/notification-rules", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rules := decode[struct {
		Rules []models.NotificationRule `json:"rules"`
	}](t, rec).Rules
	require.Len(t, rules, 1)
	assert.Equal(t, rule.ID, rules[0].ID)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodDelete, "/api/notification-rules/"+rule.ID, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodDelete, "/api/notification-rules/"+rule.ID, token, nil).Code)
}

func TestHealthCheck(t *testing.T) {
	r, st := newTestRouter(t)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/health", "", nil).Code)

	require.NoError(t, st.Close(context.Background()))
	assert.Equal(t, http.StatusServiceUnavailable, do(t, r, http.MethodGet, "/api/health", "", nil).Code)
}
