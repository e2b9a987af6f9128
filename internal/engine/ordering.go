package engine

import (
	"sort"

	"github.com/docutrack/docutrack/internal/models"
)

// SortActive orders events by due date ascending. Events without a due date
// go last.
func SortActive(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].DueDate, events[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

// SortCompleted orders events by due date descending. An event without a
// due date compares equal to anything, so it keeps its relative position.
func SortCompleted(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].DueDate, events[j].DueDate
		if a == nil || b == nil {
			return false
		}
		return a.After(*b)
	})
}

// Partition splits events by completion and orders both halves.
func Partition(events []models.Event) (active, completed []models.Event) {
	active = []models.Event{}
	completed = []models.Event{}

	for _, e := range events {
		if e.IsCompleted {
			completed = append(completed, e)
		} else {
			active = append(active, e)
		}
	}

	SortActive(active)
	SortCompleted(completed)
	return active, completed
}
