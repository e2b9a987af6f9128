package models

import (
	"time"

	"github.com/docutrack/docutrack/internal/types"
	"gorm.io/gorm"
)

// Document is an external link tracked under exactly one event.
//
// Status is authoritative. Completed is the persisted "isCompleted" mirror
// kept for readers of the raw collections; every write path derives it from
// Status, so callers never set it directly.
type Document struct {
	BaseModel `bson:",inline"`

	EventID        string               `gorm:"type:uuid;not null;index" json:"eventId" bson:"eventId"`
	Title          string               `gorm:"not null" json:"title" bson:"title"`
	GoogleDocsLink string               `gorm:"not null" json:"googleDocsLink" bson:"googleDocsLink"`
	DueDate        time.Time            `gorm:"not null" json:"dueDate" bson:"dueDate"`
	Status         types.DocumentStatus `gorm:"not null;default:'In Progress'" json:"status" bson:"status"`
	Completed      bool                 `gorm:"column:is_completed;not null;default:false" json:"isCompleted" bson:"isCompleted"`
}

func (d Document) IsCompleted() bool {
	return d.Status.IsCompleted()
}

// Normalize applies creation defaults and re-derives the completion mirror.
func (d *Document) Normalize() {
	if d.Status == "" {
		d.Status = types.StatusInProgress
	}
	d.Completed = d.Status.IsCompleted()
}

func (d *Document) BeforeSave(tx *gorm.DB) error {
	d.Normalize()
	return nil
}

// DocumentPatch is a partial update. There is deliberately no completion
// field: completion is changed by setting Status.
type DocumentPatch struct {
	Title          *string
	GoogleDocsLink *string
	DueDate        *time.Time
	Status         *types.DocumentStatus
}

func (p DocumentPatch) Empty() bool {
	return p.Title == nil && p.GoogleDocsLink == nil && p.DueDate == nil && p.Status == nil
}

// Columns returns the patch keyed by relational column name. A status write
// always carries the matching is_completed value.
func (p DocumentPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})

	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.GoogleDocsLink != nil {
		cols["google_docs_link"] = *p.GoogleDocsLink
	}
	if p.DueDate != nil {
		cols["due_date"] = *p.DueDate
	}
	if p.Status != nil {
		cols["status"] = *p.Status
		cols["is_completed"] = p.Status.IsCompleted()
	}

	return cols
}

func (p DocumentPatch) Apply(d *Document) {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.GoogleDocsLink != nil {
		d.GoogleDocsLink = *p.GoogleDocsLink
	}
	if p.DueDate != nil {
		d.DueDate = *p.DueDate
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	d.Normalize()
}

// StatusPatch builds the patch used by the status selector.
func StatusPatch(status types.DocumentStatus) DocumentPatch {
	return DocumentPatch{Status: &status}
}

// CompletionPatch builds the patch used by the completion checkbox.
func CompletionPatch(completed bool) DocumentPatch {
	return StatusPatch(types.StatusForCompletion(completed))
}
