package types

import "fmt"

// DocumentStatus is the workflow state of a tracked document. It is the only
// source of a document's completion; the persisted isCompleted flag mirrors it.
type DocumentStatus string

const (
	StatusInProgress  DocumentStatus = "In Progress"
	StatusForPrinting DocumentStatus = "For Printing"
	StatusSubmitted   DocumentStatus = "Submitted"
	StatusPending     DocumentStatus = "Pending"
	StatusCompleted   DocumentStatus = "Completed"
)

// DocumentStatuses lists every status in display order.
var DocumentStatuses = []DocumentStatus{
	StatusInProgress,
	StatusForPrinting,
	StatusSubmitted,
	StatusPending,
	StatusCompleted,
}

func (s DocumentStatus) IsCompleted() bool {
	return s == StatusCompleted
}

func (s DocumentStatus) Valid() bool {
	for _, status := range DocumentStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// StatusForCompletion maps the completion checkbox onto a status. Unchecking
// always lands on In Progress, whatever the previous status was.
func StatusForCompletion(completed bool) DocumentStatus {
	if completed {
		return StatusCompleted
	}
	return StatusInProgress
}

func ParseDocumentStatus(value string) (DocumentStatus, error) {
	status := DocumentStatus(value)
	if !status.Valid() {
		return "", fmt.Errorf("unknown document status %q", value)
	}
	return status, nil
}
