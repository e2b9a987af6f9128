package handlers

import (
	"net/http"

	"github.com/docutrack/docutrack/internal/dashboard"
	"github.com/docutrack/docutrack/internal/engine"
	"github.com/docutrack/docutrack/internal/log"
	"github.com/docutrack/docutrack/internal/models"
	"github.com/docutrack/docutrack/internal/utils"
	"github.com/gin-gonic/gin"
)

type CreateDocumentRequest struct {
	Title          string  `json:"title"`
	GoogleDocsLink string  `json:"googleDocsLink"`
	DueDate        *string `json:"dueDate"`
}

type UpdateDocumentRequest struct {
	Title          *string `json:"title"`
	GoogleDocsLink *string `json:"googleDocsLink"`
	DueDate        *string `json:"dueDate"`
	Status         *string `json:"status"`
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type SetCompletionRequest struct {
	IsCompleted *bool `json:"isCompleted" binding:"required"`
}

type ListDocumentsResponse struct {
	Documents []models.Document `json:"documents"`
	Completed int               `json:"completed"`
	Total     int               `json:"total"`
	Percent   int               `json:"percent"`
}

func (h *Handlers) ListDocuments(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	eventID, err := utils.GetEventID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.actions.OwnedEvent(ctx.Request.Context(), userID, eventID); err != nil {
		respondError(ctx, err)
		return
	}

	docs, err := h.store.ListDocuments(ctx.Request.Context(), eventID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	completed := 0
	for _, doc := range docs {
		if doc.IsCompleted() {
			completed++
		}
	}

	ctx.JSON(http.StatusOK, ListDocumentsResponse{
		Documents: docs,
		Completed: completed,
		Total:     len(docs),
		Percent:   engine.CompletionPercent(completed, len(docs)),
	})
}

func (h *Handlers) CreateDocument(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	eventID, err := utils.GetEventID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var body CreateDocumentRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	dueDate, err := h.parseOptionalDate(body.DueDate)

	if err != nil {
		invalidField(ctx, "dueDate", err.Error())
		return
	}

	doc, err := h.actions.AddDocument(ctx.Request.Context(), userID, eventID, dashboard.DocumentInput{
		Title:          body.Title,
		GoogleDocsLink: body.GoogleDocsLink,
		DueDate:        dueDate,
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	h.reconcileEvent(ctx, userID, eventID)

	ctx.JSON(http.StatusCreated, gin.H{
		"document": doc,
		"message":  dashboard.ToastDocumentAdded.Message(),
	})
}

func (h *Handlers) UpdateDocument(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	eventID, documentID, err := utils.GetEventDocumentID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var body UpdateDocumentRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	dueDate, err := h.parseOptionalDate(body.DueDate)

	if err != nil {
		invalidField(ctx, "dueDate", err.Error())
		return
	}

	err = h.actions.UpdateDocument(ctx.Request.Context(), userID, eventID, documentID, dashboard.DocumentUpdateInput{
		Title:          body.Title,
		GoogleDocsLink: body.GoogleDocsLink,
		DueDate:        dueDate,
		Status:         body.Status,
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	h.reconcileEvent(ctx, userID, eventID)
	h.respondDocument(ctx, eventID, documentID, dashboard.ToastDocumentUpdated.Message())
}

func (h *Handlers) SetDocumentStatus(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	eventID, documentID, err := utils.GetEventDocumentID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var body SetStatusRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidField(ctx, "status", "Status is required.")
		return
	}

	if err := h.actions.SetStatus(ctx.Request.Context(), userID, eventID, documentID, body.Status); err != nil {
		respondError(ctx, err)
		return
	}

	h.reconcileEvent(ctx, userID, eventID)
	h.respondDocument(ctx, eventID, documentID, "")
}

func (h *Handlers) SetDocumentCompletion(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	eventID, documentID, err := utils.GetEventDocumentID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var body SetCompletionRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidField(ctx, "isCompleted", "Required.")
		return
	}

	if err := h.actions.SetCompletion(ctx.Request.Context(), userID, eventID, documentID, *body.IsCompleted); err != nil {
		respondError(ctx, err)
		return
	}

	h.reconcileEvent(ctx, userID, eventID)
	h.respondDocument(ctx, eventID, documentID, "")
}

func (h *Handlers) DeleteDocument(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	eventID, documentID, err := utils.GetEventDocumentID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.actions.DeleteDocument(ctx.Request.Context(), userID, eventID, documentID); err != nil {
		respondError(ctx, err)
		return
	}

	h.reconcileEvent(ctx, userID, eventID)

	ctx.JSON(http.StatusOK, gin.H{"message": dashboard.ToastDocumentDeleted.Message()})
}

func (h *Handlers) respondDocument(ctx *gin.Context, eventID, documentID, message string) {
	doc, err := h.store.GetDocument(ctx.Request.Context(), eventID, documentID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	response := gin.H{"document": doc}
	if message != "" {
		response["message"] = message
	}

	ctx.JSON(http.StatusOK, response)
}

// reconcileEvent keeps the event's completion flag in step with its
// documents after a mutation made through this API. When the owner has a
// dashboard socket open on this process, its document engine already owns
// the write and nothing is done here. Sockets served by other processes are
// not visible, so with several instances both may write the same value.
// Failures are logged; the next document change retries.
func (h *Handlers) reconcileEvent(ctx *gin.Context, userID, eventID string) {
	if h.live.has(userID) {
		return
	}

	event, err := h.store.GetEvent(ctx.Request.Context(), eventID)
	if err != nil {
		log.Error("Failed to load event for completion sync", err, "event_id", eventID)
		return
	}

	docs, err := h.store.ListDocuments(ctx.Request.Context(), eventID)
	if err != nil {
		log.Error("Failed to load documents for completion sync", err, "event_id", eventID)
		return
	}

	if err := engine.Reconcile(h.store, event, docs); err != nil {
		log.Error("Failed to sync event completion", err, "event_id", eventID)
	}
}
