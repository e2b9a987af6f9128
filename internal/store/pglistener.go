package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docutrack/docutrack/internal/log"
	"github.com/lib/pq"
)

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingPeriod   = 90 * time.Second
)

// PGListener relays NOTIFY payloads written by other instances' GormStore
// into the local broker, so subscriptions here see changes made elsewhere.
type PGListener struct {
	dsn    string
	broker *Broker
}

func NewPGListener(dsn string, broker *Broker) *PGListener {
	return &PGListener{dsn: dsn, broker: broker}
}

// Run blocks until ctx is cancelled.
func (l *PGListener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, listenerMinReconnect, listenerMaxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Error("Postgres listener event", err, "event", ev)
		}
	})
	defer listener.Close()

	if err := listener.Listen(NotifyChannel); err != nil {
		return fmt.Errorf("listen %s: %w", NotifyChannel, err)
	}

	log.Info("Listening for change notifications", "channel", NotifyChannel)

	ticker := time.NewTicker(listenerPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			if n == nil {
				// Reconnected; anything may have been missed.
				l.broker.PublishPrefix("")
				continue
			}
			l.broker.Publish(ParseTopics(n.Extra)...)
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					log.Error("Postgres listener ping failed", err)
				}
			}()
		}
	}
}

// ParseTopics splits a NOTIFY payload into topics.
func ParseTopics(payload string) []string {
	var topics []string
	for _, topic := range strings.Split(payload, "\n") {
		if topic = strings.TrimSpace(topic); topic != "" {
			topics = append(topics, topic)
		}
	}
	return topics
}
