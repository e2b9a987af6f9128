package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/docutrack/docutrack/internal/store"
	"github.com/docutrack/docutrack/internal/types"
)

const (
	CommandCreateEvent    = "createEvent"
	CommandDeleteEvent    = "deleteEvent"
	CommandAddDocument    = "addDocument"
	CommandSetStatus      = "setStatus"
	CommandSetCompletion  = "setCompletion"
	CommandDeleteDocument = "deleteDocument"
)

// Command is a dashboard action sent by a live client.
type Command struct {
	Type               string     `json:"type"`
	EventID            string     `json:"eventId,omitempty"`
	DocumentID         string     `json:"documentId,omitempty"`
	Title              string     `json:"title,omitempty"`
	GoogleDocsLink     string     `json:"googleDocsLink,omitempty"`
	DueDate            *time.Time `json:"dueDate,omitempty"`
	ReminderPreference string     `json:"reminderPreference,omitempty"`
	Status             string     `json:"status,omitempty"`
	IsCompleted        *bool      `json:"isCompleted,omitempty"`
}

// Execute runs cmd for user and returns the toast to show. Status and
// completion changes only report failures; their success is visible in the
// next snapshot.
func Execute(ctx context.Context, a *Actions, user types.UserResponse, cmd Command) (Toast, bool) {
	var (
		err     error
		success *Toast
	)

	switch cmd.Type {
	case CommandCreateEvent:
		_, err = a.CreateEvent(ctx, user, EventInput{
			Title:              cmd.Title,
			DueDate:            cmd.DueDate,
			ReminderPreference: cmd.ReminderPreference,
		})
		success = &ToastEventCreated
	case CommandDeleteEvent:
		err = a.DeleteEvent(ctx, user.ID, cmd.EventID)
		success = &ToastEventDeleted
	case CommandAddDocument:
		_, err = a.AddDocument(ctx, user.ID, cmd.EventID, DocumentInput{
			Title:          cmd.Title,
			GoogleDocsLink: cmd.GoogleDocsLink,
			DueDate:        cmd.DueDate,
		})
		success = &ToastDocumentAdded
	case CommandSetStatus:
		err = a.SetStatus(ctx, user.ID, cmd.EventID, cmd.DocumentID, cmd.Status)
	case CommandSetCompletion:
		if cmd.IsCompleted == nil {
			err = &ValidationError{Fields: map[string]string{"isCompleted": "Required."}}
			break
		}
		err = a.SetCompletion(ctx, user.ID, cmd.EventID, cmd.DocumentID, *cmd.IsCompleted)
	case CommandDeleteDocument:
		err = a.DeleteDocument(ctx, user.ID, cmd.EventID, cmd.DocumentID)
		success = &ToastDocumentDeleted
	default:
		return Toast{Title: titleError, Description: fmt.Sprintf("Unknown command %q.", cmd.Type), Variant: variantDestructive}, true
	}

	if err != nil {
		return ErrorToast(err), true
	}
	if success != nil {
		return *success, true
	}
	return Toast{}, false
}

// ErrorToast picks the toast for an error returned by Actions.
func ErrorToast(err error) Toast {
	var (
		failure    *Failure
		validation *ValidationError
	)

	switch {
	case errors.As(err, &failure):
		return failure.Toast
	case errors.As(err, &validation):
		return Toast{Title: "Validation failed", Description: validation.summary(), Variant: variantDestructive}
	case errors.Is(err, store.ErrNotFound):
		return Toast{Title: titleError, Description: "Not found.", Variant: variantDestructive}
	default:
		return Toast{Title: titleError, Description: "Something went wrong.", Variant: variantDestructive}
	}
}

func (e *ValidationError) summary() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	messages := make([]string, 0, len(keys))
	for _, k := range keys {
		messages = append(messages, e.Fields[k])
	}
	return strings.Join(messages, " ")
}
