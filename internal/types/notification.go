package types

const (
	ChannelEmail   = "email"
	ChannelDiscord = "discord"
	ChannelSlack   = "slack"

	TriggerEventCreated = "event_created"
	TriggerReminder     = "reminder"
)

var (
	NotificationChannels = []string{ChannelEmail, ChannelDiscord, ChannelSlack}
	NotificationTriggers = []string{TriggerEventCreated, TriggerReminder}
)

// WebhookConfig is the JSON stored in a discord or slack notification rule.
type WebhookConfig struct {
	URL string `json:"url"`
}

// EmailConfig optionally redirects an email rule to another address.
type EmailConfig struct {
	To string `json:"to,omitempty"`
}

type UserResponse struct {
	ID       string `json:"uid"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL"`
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func ValidChannel(channel string) bool {
	return contains(NotificationChannels, channel)
}

func ValidTrigger(trigger string) bool {
	return contains(NotificationTriggers, trigger)
}
