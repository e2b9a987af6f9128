package dashboard

import "fmt"

const (
	variantDestructive = "destructive"
	titleSuccess       = "Success"
	titleError         = "Error"
)

// Toast is a transient user-facing notice.
type Toast struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Variant     string `json:"variant,omitempty"`
}

var (
	ToastEventCreated    = Toast{Title: titleSuccess, Description: "Event created successfully."}
	ToastEventUpdated    = Toast{Title: titleSuccess, Description: "Event updated."}
	ToastEventDeleted    = Toast{Title: titleSuccess, Description: "Event deleted."}
	ToastDocumentAdded   = Toast{Title: titleSuccess, Description: "Document added successfully."}
	ToastDocumentUpdated = Toast{Title: titleSuccess, Description: "Document updated."}
	ToastDocumentDeleted = Toast{Title: "Document deleted"}

	ToastCreateEventFailed      = Toast{Title: titleError, Description: "Failed to create event.", Variant: variantDestructive}
	ToastUpdateEventFailed      = Toast{Title: titleError, Description: "Could not update event.", Variant: variantDestructive}
	ToastDeleteEventFailed      = Toast{Title: titleError, Description: "Could not delete event.", Variant: variantDestructive}
	ToastAddDocumentFailed      = Toast{Title: titleError, Description: "Failed to add document.", Variant: variantDestructive}
	ToastUpdateDocumentFailed   = Toast{Title: "Error updating document", Variant: variantDestructive}
	ToastUpdateStatusFailed     = Toast{Title: "Error updating status", Variant: variantDestructive}
	ToastUpdateCompletionFailed = Toast{Title: "Error updating completion", Variant: variantDestructive}
	ToastDeleteDocumentFailed   = Toast{Title: "Error deleting document", Variant: variantDestructive}
	ToastEventCompletionFailed  = Toast{Title: "Error updating event completion", Variant: variantDestructive}
)

// Message is the text shown to the user.
func (t Toast) Message() string {
	if t.Description != "" {
		return t.Description
	}
	return t.Title
}

// Failure is a store error on a user-issued mutation, paired with the toast
// that reports it.
type Failure struct {
	Toast Toast
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Toast.Message(), f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}
