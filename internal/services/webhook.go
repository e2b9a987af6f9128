package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/docutrack/docutrack/internal/models"
	"github.com/docutrack/docutrack/internal/types"
)

type DiscordWebhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordEmbed struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Color       int                   `json:"color"`
	Fields      []DiscordWebhookField `json:"fields"`
	Footer      *DiscordFooter        `json:"footer,omitempty"`
	Timestamp   string                `json:"timestamp"`
}

type DiscordFooter struct {
	Text string `json:"text"`
}

type DiscordWebhookRequest struct {
	Username  string         `json:"username"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Embeds    []DiscordEmbed `json:"embeds"`
}

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type SlackAttachment struct {
	Color     string       `json:"color"`
	Title     string       `json:"title"`
	Text      string       `json:"text"`
	Fields    []SlackField `json:"fields"`
	Footer    string       `json:"footer"`
	Timestamp int64        `json:"ts"`
}

type SlackWebhookRequest struct {
	Username    string            `json:"username"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

const (
	ColorBlue   = 3447003  // #3498DB - Event created
	ColorOrange = 16753920 // #FFA500 - Reminder

	Username = "Docutrack"

	webhookTimeout = 10 * time.Second
)

// WebhookMessage is the channel-neutral content of one notification.
type WebhookMessage struct {
	Trigger    string
	UserName   string
	EventTitle string
	DueDate    string
	Text       string
}

type WebhookSender struct {
	client *http.Client
	now    func() time.Time
}

func NewWebhookSender(client *http.Client) *WebhookSender {
	if client == nil {
		client = &http.Client{Timeout: webhookTimeout}
	}
	return &WebhookSender{client: client, now: time.Now}
}

func EventCreatedMessage(user types.UserResponse, event models.Event, dueDate string) WebhookMessage {
	return WebhookMessage{
		Trigger:    types.TriggerEventCreated,
		UserName:   user.Name,
		EventTitle: event.Title,
		DueDate:    dueDate,
		Text:       fmt.Sprintf("%s created a new event.", user.Name),
	}
}

func ReminderMessage(user types.UserResponse, event models.Event, dueDate, text string) WebhookMessage {
	return WebhookMessage{
		Trigger:    types.TriggerReminder,
		UserName:   user.Name,
		EventTitle: event.Title,
		DueDate:    dueDate,
		Text:       text,
	}
}

// Send posts msg to url in the format of channel.
func (w *WebhookSender) Send(ctx context.Context, channel, url string, msg WebhookMessage) error {
	switch channel {
	case types.ChannelDiscord:
		return w.sendDiscord(ctx, url, msg)
	case types.ChannelSlack:
		return w.sendSlack(ctx, url, msg)
	default:
		return fmt.Errorf("unsupported webhook channel %q", channel)
	}
}

func (w *WebhookSender) sendDiscord(ctx context.Context, url string, msg WebhookMessage) error {
	title, color := "🗓️ **EVENT CREATED**", ColorBlue
	if msg.Trigger == types.TriggerReminder {
		title, color = "⏰ **REMINDER**", ColorOrange
	}

	payload := DiscordWebhookRequest{
		Username: Username,
		Embeds: []DiscordEmbed{
			{
				Title:       title,
				Description: msg.Text,
				Color:       color,
				Fields: []DiscordWebhookField{
					{Name: "📝 Event", Value: msg.EventTitle, Inline: false},
					{Name: "📅 Due Date", Value: msg.DueDate, Inline: true},
					{Name: "👤 Owner", Value: msg.UserName, Inline: true},
				},
				Footer: &DiscordFooter{
					Text: signature,
				},
				Timestamp: w.now().Format(time.RFC3339),
			},
		},
	}

	return w.post(ctx, "Discord", url, payload)
}

func (w *WebhookSender) sendSlack(ctx context.Context, url string, msg WebhookMessage) error {
	text, icon, color := ":spiral_calendar_pad: *EVENT CREATED*", ":spiral_calendar_pad:", "good"
	if msg.Trigger == types.TriggerReminder {
		text, icon, color = ":alarm_clock: *REMINDER*", ":alarm_clock:", "warning"
	}

	payload := SlackWebhookRequest{
		Username:  Username,
		IconEmoji: icon,
		Text:      text,
		Attachments: []SlackAttachment{
			{
				Color: color,
				Title: msg.EventTitle,
				Text:  msg.Text,
				Fields: []SlackField{
					{Title: "Due Date", Value: msg.DueDate, Short: true},
					{Title: "Owner", Value: msg.UserName, Short: true},
				},
				Footer:    signature,
				Timestamp: w.now().Unix(),
			},
		},
	}

	return w.post(ctx, "Slack", url, payload)
}

func (w *WebhookSender) post(ctx context.Context, name, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s webhook: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s webhook returned status %d", name, resp.StatusCode)
	}

	return nil
}
