package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/docutrack/docutrack/internal/models"
	"github.com/docutrack/docutrack/internal/types"
	"github.com/docutrack/docutrack/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

type CreateRuleRequest struct {
	TriggerType string          `json:"triggerType" binding:"required"`
	Channel     string          `json:"channel" binding:"required"`
	IsActive    *bool           `json:"isActive"`
	Config      json.RawMessage `json:"config"`
}

// validateRuleConfig checks the channel specific JSON stored with a rule.
func validateRuleConfig(channel string, raw json.RawMessage) (map[string]string, bool) {
	fields := map[string]string{}

	switch channel {
	case types.ChannelDiscord, types.ChannelSlack:
		var cfg types.WebhookConfig
		if err := json.Unmarshal(raw, &cfg); err != nil || cfg.URL == "" {
			fields["config.url"] = "Webhook URL is required."
			break
		}
		if u, err := url.ParseRequestURI(cfg.URL); err != nil || u.Scheme != "https" {
			fields["config.url"] = "Must be a valid URL."
		}
	case types.ChannelEmail:
		if len(raw) == 0 {
			break
		}
		var cfg types.EmailConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			fields["config.to"] = "Must be a valid email address."
		}
	}

	return fields, len(fields) == 0
}

func (h *Handlers) ListRules(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	rules, err := h.store.ListRules(ctx.Request.Context(), userID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"rules": rules})
}

func (h *Handlers) CreateRule(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var body CreateRuleRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	fields := map[string]string{}
	if !types.ValidTrigger(body.TriggerType) {
		fields["triggerType"] = "Unknown trigger."
	}
	if !types.ValidChannel(body.Channel) {
		fields["channel"] = "Unknown channel."
	} else if configFields, ok := validateRuleConfig(body.Channel, body.Config); !ok {
		for k, v := range configFields {
			fields[k] = v
		}
	}

	if len(fields) > 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": fields})
		return
	}

	rule := models.NotificationRule{
		UserID:      userID,
		TriggerType: body.TriggerType,
		Channel:     body.Channel,
		IsActive:    body.IsActive == nil || *body.IsActive,
		Config:      datatypes.JSON(body.Config),
	}

	if len(rule.Config) == 0 {
		rule.Config = datatypes.JSON("{}")
	}

	if err := h.store.CreateRule(ctx.Request.Context(), &rule); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"rule": rule})
}

func (h *Handlers) DeleteRule(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ruleID, err := utils.GetRuleID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.DeleteRule(ctx.Request.Context(), userID, ruleID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Notification rule deleted"})
}
