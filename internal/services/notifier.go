package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docutrack/docutrack/internal/log"
	"github.com/docutrack/docutrack/internal/models"
	"github.com/docutrack/docutrack/internal/types"
)

const dueDateLayout = "Monday, January 2, 2006"

type RuleSource interface {
	ListRules(ctx context.Context, userID string) ([]models.NotificationRule, error)
}

type Webhooks interface {
	Send(ctx context.Context, channel, url string, msg WebhookMessage) error
}

// Notifier delivers the optional side-channel messages: the creation receipt
// and scheduled reminders. The owner's own address always gets the email;
// active rules for the trigger add extra addresses and webhooks.
type Notifier struct {
	rules    RuleSource
	mailer   Mailer
	webhooks Webhooks
	loc      *time.Location
}

func NewNotifier(rules RuleSource, mailer Mailer, webhooks Webhooks, loc *time.Location) *Notifier {
	if loc == nil {
		loc = time.UTC
	}
	return &Notifier{rules: rules, mailer: mailer, webhooks: webhooks, loc: loc}
}

func (n *Notifier) formatDue(due *time.Time) string {
	if due == nil {
		return "No due date"
	}
	return due.In(n.loc).Format(dueDateLayout)
}

type target struct {
	channel string
	address string
}

// targets resolves where a trigger is delivered for user.
func (n *Notifier) targets(ctx context.Context, user types.UserResponse, trigger string) []target {
	var targets []target
	seen := map[string]bool{}

	addEmail := func(address string) {
		address = strings.ToLower(strings.TrimSpace(address))
		if address == "" || seen[address] {
			return
		}
		seen[address] = true
		targets = append(targets, target{channel: types.ChannelEmail, address: address})
	}
	addEmail(user.Email)

	if n.rules == nil {
		return targets
	}

	rules, err := n.rules.ListRules(ctx, user.ID)
	if err != nil {
		log.Error("Failed to load notification rules", err, "user_id", user.ID)
		return targets
	}

	for _, rule := range rules {
		if !rule.IsActive || rule.TriggerType != trigger {
			continue
		}

		switch rule.Channel {
		case types.ChannelEmail:
			var cfg types.EmailConfig
			if len(rule.Config) > 0 {
				if err := json.Unmarshal(rule.Config, &cfg); err != nil {
					log.Warn("Invalid email rule config", "rule_id", rule.ID)
					continue
				}
			}
			addEmail(cfg.To)
		case types.ChannelDiscord, types.ChannelSlack:
			var cfg types.WebhookConfig
			if err := json.Unmarshal(rule.Config, &cfg); err != nil || cfg.URL == "" {
				log.Warn("Invalid webhook rule config", "rule_id", rule.ID, "channel", rule.Channel)
				continue
			}
			targets = append(targets, target{channel: rule.Channel, address: cfg.URL})
		}
	}

	return targets
}

func (n *Notifier) deliver(ctx context.Context, targets []target, email Receipt, msg WebhookMessage) error {
	var errs []error

	for _, t := range targets {
		var err error
		switch t.channel {
		case types.ChannelEmail:
			if n.mailer == nil {
				continue
			}
			err = n.mailer.Send(ctx, t.address, email.Subject, email.Body)
		default:
			if n.webhooks == nil {
				continue
			}
			err = n.webhooks.Send(ctx, t.channel, t.address, msg)
		}

		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.channel, err))
		}
	}

	return errors.Join(errs...)
}

// EventCreated sends the creation receipt. Failures are logged and
// swallowed; event creation never depends on them.
func (n *Notifier) EventCreated(ctx context.Context, user types.UserResponse, event models.Event) {
	due := n.formatDue(event.DueDate)

	receipt, err := GenerateReceipt(ReceiptInput{
		UserName:   user.Name,
		UserEmail:  user.Email,
		EventTitle: event.Title,
		DueDate:    due,
	})
	if err != nil {
		log.Error("Failed to generate event receipt", err, "event_id", event.ID)
		return
	}

	targets := n.targets(ctx, user, types.TriggerEventCreated)
	if err := n.deliver(ctx, targets, receipt, EventCreatedMessage(user, event, due)); err != nil {
		log.Error("Failed to deliver event receipt", err, "event_id", event.ID, "user_id", user.ID)
		return
	}

	log.Info("Event receipt delivered", "event_id", event.ID, "targets", len(targets))
}

// Reminder sends one reminder for event. The error is for the caller's
// bookkeeping only.
func (n *Notifier) Reminder(ctx context.Context, user types.UserResponse, event models.Event, text, progress string) error {
	due := n.formatDue(event.DueDate)

	email, err := GenerateReminder(ReminderInput{
		UserName:     user.Name,
		EventTitle:   event.Title,
		DueDate:      due,
		ReminderText: text,
		Progress:     progress,
	})
	if err != nil {
		return err
	}

	targets := n.targets(ctx, user, types.TriggerReminder)
	return n.deliver(ctx, targets, email, ReminderMessage(user, event, due, text))
}
