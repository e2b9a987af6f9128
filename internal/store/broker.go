package store

import (
	"strings"
	"sync"
)

// Broker fans change signals out to subscriptions by topic. Signals carry no
// payload and coalesce: a subscriber that has not consumed the previous
// signal will see one, not many.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan struct{}]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan struct{}]struct{})}
}

// Subscribe registers interest in topic. The returned func releases it.
func (b *Broker) Subscribe(topic string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan struct{}]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			if subs, exists := b.subs[topic]; exists {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, topic)
				}
			}
		})
	}

	return ch, release
}

func (b *Broker) Publish(topics ...string) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, topic := range topics {
		for ch := range b.subs[topic] {
			signal(ch)
		}
	}
}

// PublishPrefix signals every topic starting with prefix. Used when a change
// cannot be attributed to a single scope, e.g. a deleted row whose owner is
// no longer readable.
func (b *Broker) PublishPrefix(prefix string) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for topic, subs := range b.subs {
		if !strings.HasPrefix(topic, prefix) {
			continue
		}
		for ch := range subs {
			signal(ch)
		}
	}
}

// Subscribers returns the number of live subscriptions on topic.
func (b *Broker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
