// Package engine holds the live aggregates behind the dashboard: one engine
// per user's event list and one per event's document list. Engines only
// change state when their subscription (or a test) delivers a snapshot;
// mutation results never touch them directly.
package engine

import (
	"time"

	"github.com/docutrack/docutrack/internal/bg"
)

// mutationTimeout bounds follow-up writes issued by an engine. They outlive
// the caller, so they cannot borrow its context.
const mutationTimeout = 10 * time.Second

type options struct {
	runner   bg.Runner
	onChange func()
	onError  func(error)
}

type Option func(*options)

// WithRunner sets how follow-up mutations are executed. Defaults to a new
// goroutine per mutation.
func WithRunner(r bg.Runner) Option {
	return func(o *options) {
		o.runner = r
	}
}

// WithOnChange is called after every applied snapshot, outside the engine
// lock.
func WithOnChange(fn func()) Option {
	return func(o *options) {
		o.onChange = fn
	}
}

// WithOnError receives failures of mutations the engine issued itself.
func WithOnError(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

func newOptions(opts []Option) options {
	o := options{
		runner:   &bg.Async{},
		onChange: func() {},
		onError:  func(error) {},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
