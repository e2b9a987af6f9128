package handlers

import (
	"net/http"

	"github.com/docutrack/docutrack/internal/dashboard"
	"github.com/docutrack/docutrack/internal/engine"
	"github.com/docutrack/docutrack/internal/models"
	"github.com/docutrack/docutrack/internal/reminder"
	"github.com/docutrack/docutrack/internal/utils"
	"github.com/gin-gonic/gin"
)

type CreateEventRequest struct {
	Title              string  `json:"title"`
	DueDate            *string `json:"dueDate"`
	ReminderPreference string  `json:"reminderPreference"`
}

type UpdateEventRequest struct {
	Title              *string `json:"title"`
	DueDate            *string `json:"dueDate"`
	ClearDueDate       bool    `json:"clearDueDate"`
	ReminderPreference *string `json:"reminderPreference"`
}

type EventResponse struct {
	models.Event
	Reminder *string `json:"reminder"`
}

type ListEventsResponse struct {
	Active    []EventResponse `json:"active"`
	Completed []EventResponse `json:"completed"`
}

func (h *Handlers) ListEvents(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	events, err := h.store.ListEvents(ctx.Request.Context(), userID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	now := h.now().In(h.loc)
	render := func(events []models.Event) []EventResponse {
		response := make([]EventResponse, 0, len(events))
		for _, event := range events {
			item := EventResponse{Event: event}
			if text, ok := reminder.Text(event.ReminderPreference, event.DueDate, now); ok {
				item.Reminder = &text
			}
			response = append(response, item)
		}
		return response
	}

	active, completed := engine.Partition(events)

	ctx.JSON(http.StatusOK, ListEventsResponse{
		Active:    render(active),
		Completed: render(completed),
	})
}

func (h *Handlers) CreateEvent(ctx *gin.Context) {
	var body CreateEventRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	dueDate, err := h.parseOptionalDate(body.DueDate)

	if err != nil {
		invalidField(ctx, "dueDate", err.Error())
		return
	}

	event, err := h.actions.CreateEvent(ctx.Request.Context(), user, dashboard.EventInput{
		Title:              body.Title,
		DueDate:            dueDate,
		ReminderPreference: body.ReminderPreference,
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"event":   event,
		"message": dashboard.ToastEventCreated.Message(),
	})
}

func (h *Handlers) UpdateEvent(ctx *gin.Context) {
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

	var body UpdateEventRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	dueDate, err := h.parseOptionalDate(body.DueDate)

	if err != nil {
		invalidField(ctx, "dueDate", err.Error())
		return
	}

	err = h.actions.UpdateEvent(ctx.Request.Context(), userID, eventID, dashboard.EventUpdateInput{
		Title:              body.Title,
		DueDate:            dueDate,
		ClearDueDate:       body.ClearDueDate,
		ReminderPreference: body.ReminderPreference,
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	event, err := h.store.GetEvent(ctx.Request.Context(), eventID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"event":   event,
		"message": dashboard.ToastEventUpdated.Message(),
	})
}

func (h *Handlers) DeleteEvent(ctx *gin.Context) {
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

	if err := h.actions.DeleteEvent(ctx.Request.Context(), userID, eventID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": dashboard.ToastEventDeleted.Message()})
}
