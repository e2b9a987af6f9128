package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/docutrack/docutrack/internal/auth"
	"github.com/docutrack/docutrack/internal/bg"
	"github.com/docutrack/docutrack/internal/dashboard"
	"github.com/docutrack/docutrack/internal/handlers"
	"github.com/docutrack/docutrack/internal/middleware"
	"github.com/docutrack/docutrack/internal/models"
	"github.com/docutrack/docutrack/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const origin = "http://localhost:3000"

type wsMessage struct {
	Type        string         `json:"type"`
	View        dashboard.View `json:"view"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
}

func dial(t *testing.T) (*websocket.Conn, *store.MemoryStore, models.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemoryStore()
	user := models.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"}
	require.NoError(t, st.CreateUser(context.Background(), &user))

	signer, err := auth.NewSigner("test-secret", time.Hour)
	require.NoError(t, err)
	token, err := signer.GenerateJWT(user.ID, user.Email)
	require.NoError(t, err)

	h := handlers.New(st, dashboard.NewActions(st, nil, bg.Sync{}), signer, handlers.Options{AllowedOrigins: []string{origin}})

	r := gin.New()
	r.GET("/api/ws", middleware.AuthMiddleware(signer, st), h.WebSocket)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	header := http.Header{}
	header.Set("Origin", origin)
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/api/ws", header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn, st, user
}

// readUntil reads messages until match accepts one or the deadline passes.
func readUntil(t *testing.T, conn *websocket.Conn, match func(wsMessage) bool) wsMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg wsMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		if match(msg) {
			return msg
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, cmd dashboard.Command) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(cmd))
}

func TestWebSocket_StreamsDashboard(t *testing.T) {
	conn, st, user := dial(t)

	readUntil(t, conn, func(m wsMessage) bool { return m.Type == "connected" })
	readUntil(t, conn, func(m wsMessage) bool { return m.Type == "snapshot" && !m.View.Loading })

	send(t, conn, dashboard.Command{Type: dashboard.CommandCreateEvent, Title: "Thesis defense"})

	// The toast and the snapshot showing the event may arrive in either order.
	var toast, created *wsMessage
	readUntil(t, conn, func(m wsMessage) bool {
		switch {
		case m.Type == "toast":
			toast = &m
		case m.Type == "snapshot" && len(m.View.Active) == 1:
			created = &m
		}
		return toast != nil && created != nil
	})
	assert.Equal(t, dashboard.ToastEventCreated.Description, toast.Description)

	event := created.View.Active[0]
	assert.Equal(t, "Thesis defense", event.Title)
	assert.Equal(t, user.ID, event.UserID)

	due := time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC)
	send(t, conn, dashboard.Command{
		Type:           dashboard.CommandAddDocument,
		EventID:        event.ID,
		Title:          "Chapter 1",
		GoogleDocsLink: "https://docs.google.com/document/d/1",
		DueDate:        &due,
	})

	snapshot := readUntil(t, conn, func(m wsMessage) bool {
		return m.Type == "snapshot" && len(m.View.Active) == 1 && len(m.View.Active[0].Documents) == 1
	})
	doc := snapshot.View.Active[0].Documents[0]

	done := true
	send(t, conn, dashboard.Command{Type: dashboard.CommandSetCompletion, EventID: event.ID, DocumentID: doc.ID, IsCompleted: &done})

	snapshot = readUntil(t, conn, func(m wsMessage) bool {
		return m.Type == "snapshot" && len(m.View.Completed) == 1
	})
	assert.Empty(t, snapshot.View.Active)
	assert.Equal(t, 100, snapshot.View.Completed[0].Progress)

	stored, err := st.GetEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted)
}

func TestWebSocket_CommandErrorsBecomeToasts(t *testing.T) {
	conn, _, _ := dial(t)

	readUntil(t, conn, func(m wsMessage) bool { return m.Type == "connected" })

	send(t, conn, dashboard.Command{Type: dashboard.CommandCreateEvent, Title: "a"})
	toast := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "toast" })
	assert.Equal(t, "Validation failed", toast.Title)

	send(t, conn, dashboard.Command{Type: "renameEverything"})
	toast = readUntil(t, conn, func(m wsMessage) bool { return m.Type == "toast" })
	assert.Contains(t, toast.Description, "Unknown command")
}

func TestWebSocket_RejectsForeignOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	st := store.NewMemoryStore()
	user := models.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"}
	require.NoError(t, st.CreateUser(context.Background(), &user))

	signer, err := auth.NewSigner("test-secret", time.Hour)
	require.NoError(t, err)
	token, err := signer.GenerateJWT(user.ID, user.Email)
	require.NoError(t, err)

	h := handlers.New(st, dashboard.NewActions(st, nil, bg.Sync{}), signer, handlers.Options{AllowedOrigins: []string{origin}})
	r := gin.New()
	r.GET("/api/ws", middleware.AuthMiddleware(signer, st), h.WebSocket)
	server := httptest.NewServer(r)
	defer server.Close()

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	header.Set("Authorization", "Bearer "+token)

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/api/ws", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// completionCounter counts event writes that set isCompleted.
type completionCounter struct {
	*store.MemoryStore
	completions atomic.Int32
}

func (c *completionCounter) UpdateEvent(ctx context.Context, id string, patch models.EventPatch) error {
	if patch.IsCompleted != nil {
		c.completions.Add(1)
	}
	return c.MemoryStore.UpdateEvent(ctx, id, patch)
}

func TestWebSocket_RestChangeWithOpenDashboardWritesOnce(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	st := &completionCounter{MemoryStore: store.NewMemoryStore()}
	user := models.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"}
	require.NoError(t, st.CreateUser(ctx, &user))
	event := models.Event{Title: "Thesis", UserID: user.ID}
	require.NoError(t, st.CreateEvent(ctx, &event))
	doc := models.Document{Title: "Draft", GoogleDocsLink: "https://docs.google.com/d/1", DueDate: time.Now()}
	require.NoError(t, st.CreateDocument(ctx, event.ID, &doc))

	signer, err := auth.NewSigner("test-secret", time.Hour)
	require.NoError(t, err)
	token, err := signer.GenerateJWT(user.ID, user.Email)
	require.NoError(t, err)

	h := handlers.New(st, dashboard.NewActions(st, nil, bg.Sync{}), signer, handlers.Options{AllowedOrigins: []string{origin}})
	r := gin.New()
	requireUser := middleware.AuthMiddleware(signer, st)
	r.GET("/api/ws", requireUser, h.WebSocket)
	r.PUT("/api/events/:event_id/documents/:document_id/completion", requireUser, h.SetDocumentCompletion)
	server := httptest.NewServer(r)
	defer server.Close()

	header := http.Header{}
	header.Set("Origin", origin)
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/api/ws", header)
	require.NoError(t, err)
	defer conn.Close()

	readUntil(t, conn, func(m wsMessage) bool {
		return m.Type == "snapshot" && len(m.View.Active) == 1 && len(m.View.Active[0].Documents) == 1 && !m.View.Active[0].DocumentsLoading
	})

	req, err := http.NewRequest(http.MethodPut,
		server.URL+"/api/events/"+event.ID+"/documents/"+doc.ID+"/completion",
		strings.NewReader(`{"isCompleted":true}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	readUntil(t, conn, func(m wsMessage) bool {
		return m.Type == "snapshot" && len(m.View.Completed) == 1
	})
	assert.Never(t, func() bool { return st.completions.Load() > 1 }, 200*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, int32(1), st.completions.Load())
}
