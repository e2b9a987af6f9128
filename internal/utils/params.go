package utils

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func idParam(ctx *gin.Context, name, label string) (string, error) {
	value := ctx.Param(name)

	if value == "" {
		return "", errors.New(label + " not found")
	}

	if _, err := uuid.Parse(value); err != nil {
		return "", errors.New("Invalid " + label)
	}

	return value, nil
}

func GetEventID(ctx *gin.Context) (string, error) {
	return idParam(ctx, "event_id", "Event ID")
}

func GetDocumentID(ctx *gin.Context) (string, error) {
	return idParam(ctx, "document_id", "Document ID")
}

func GetRuleID(ctx *gin.Context) (string, error) {
	return idParam(ctx, "rule_id", "Rule ID")
}

func GetEventDocumentID(ctx *gin.Context) (string, string, error) {
	eventID, err := GetEventID(ctx)

	if err != nil {
		return "", "", err
	}

	documentID, err := GetDocumentID(ctx)

	if err != nil {
		return "", "", err
	}

	return eventID, documentID, nil
}

// ParseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates, the
// latter read as midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}

	t, err := time.ParseInLocation(time.DateOnly, value, loc)
	if err != nil {
		return time.Time{}, errors.New("Invalid date")
	}
	return t, nil
}
