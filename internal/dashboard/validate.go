package dashboard

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/docutrack/docutrack/internal/types"
	"github.com/go-playground/validator/v10"
)

// ValidationError carries per-field messages. It is returned before any
// mutation is issued.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type EventInput struct {
	Title              string     `json:"title" validate:"min=2"`
	DueDate            *time.Time `json:"dueDate"`
	ReminderPreference string     `json:"reminderPreference" validate:"reminder"`
}

type EventUpdateInput struct {
	Title              *string    `json:"title" validate:"omitempty,min=2"`
	DueDate            *time.Time `json:"dueDate"`
	ClearDueDate       bool       `json:"clearDueDate"`
	ReminderPreference *string    `json:"reminderPreference" validate:"omitempty,reminder"`
}

type DocumentInput struct {
	Title          string     `json:"title" validate:"min=2"`
	GoogleDocsLink string     `json:"googleDocsLink" validate:"required,url,startswith=https://docs.google.com/"`
	DueDate        *time.Time `json:"dueDate" validate:"required"`
}

type DocumentUpdateInput struct {
	Title          *string    `json:"title" validate:"omitempty,min=2"`
	GoogleDocsLink *string    `json:"googleDocsLink" validate:"omitempty,url,startswith=https://docs.google.com/"`
	DueDate        *time.Time `json:"dueDate"`
	Status         *string    `json:"status" validate:"omitempty,docstatus"`
}

type statusInput struct {
	Status string `json:"status" validate:"docstatus"`
}

// fieldMessages is keyed by field, then by failed tag. The empty tag is the
// fallback for the field.
var fieldMessages = map[string]map[string]string{
	"title":              {"": "Title must be at least 2 characters."},
	"googleDocsLink":     {"startswith": "URL must be a valid Google Docs link.", "": "Must be a valid URL."},
	"dueDate":            {"": "A due date is required."},
	"reminderPreference": {"": "Unknown reminder preference."},
	"status":             {"": "Unknown status."},
}

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	enums := map[string]validator.Func{
		"reminder": func(fl validator.FieldLevel) bool {
			_, err := types.ParseReminderPreference(fl.Field().String())
			return err == nil
		},
		"docstatus": func(fl validator.FieldLevel) bool {
			_, err := types.ParseDocumentStatus(fl.Field().String())
			return err == nil
		},
	}
	for tag, fn := range enums {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}

	return v
}

// validateInput runs the struct tags of in and converts failures into a
// *ValidationError.
func validateInput(v *validator.Validate, in any) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}

	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return err
	}

	fields := make(map[string]string, len(invalid))
	for _, fe := range invalid {
		fields[fe.Field()] = fieldMessage(fe.Field(), fe.Tag())
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(field, tag string) string {
	messages := fieldMessages[field]
	if msg, ok := messages[tag]; ok {
		return msg
	}
	if msg, ok := messages[""]; ok {
		return msg
	}
	return "Invalid value."
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
