package store

import (
	"context"
	"sync"
)

// Subscription delivers full snapshots of one scope. The first value on C is
// the initial load; every later value follows a change to the scope. Only the
// latest snapshot is buffered, so a slow reader skips intermediate states but
// never sees a stale one after a newer one.
//
// C is closed once the subscription is released.
type Subscription[T any] struct {
	C      <-chan []T
	Errors <-chan error

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Unsubscribe releases the subscription and waits for its pump to exit. It
// is safe to call more than once.
func (s *Subscription[T]) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

type fetchFunc[T any] func(ctx context.Context) ([]T, error)

// watch subscribes to topic before the initial fetch so no change between
// the two is lost, then re-fetches on every signal.
func watch[T any](ctx context.Context, broker *Broker, topic string, fetch fetchFunc[T]) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	signals, release := broker.Subscribe(topic)

	out := make(chan []T, 1)
	errs := make(chan error, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		defer release()

		for {
			snapshot, err := fetch(ctx)
			if ctx.Err() != nil {
				return
			}

			if err != nil {
				offer(errs, err)
			} else {
				offerLatest(out, snapshot)
			}

			select {
			case <-ctx.Done():
				return
			case <-signals:
			}
		}
	}()

	return &Subscription[T]{
		C:      out,
		Errors: errs,
		cancel: cancel,
		done:   done,
	}
}

// offerLatest replaces any unread snapshot with v. There is a single sender
// per channel, so after draining the send cannot block.
func offerLatest[T any](ch chan []T, v []T) {
	select {
	case ch <- v:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}

	select {
	case ch <- v:
	default:
	}
}

func offer(ch chan error, err error) {
	select {
	case ch <- err:
	default:
	}
}
