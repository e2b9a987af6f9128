// Package bg decides whether side-effect work runs on its own goroutine or
// inline on the caller's. Engines issue their follow-up mutations through a
// Runner so production code never blocks the snapshot pump while tests stay
// deterministic.
package bg

import "sync"

type Runner interface {
	Do(fn func())
}

// Async runs every function on a new goroutine. Wait blocks until all
// functions started so far have returned.
type Async struct {
	wg sync.WaitGroup
}

func (a *Async) Do(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

func (a *Async) Wait() {
	a.wg.Wait()
}

// Sync runs every function inline.
type Sync struct{}

func (Sync) Do(fn func()) {
	fn()
}
