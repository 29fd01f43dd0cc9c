// Package poll waits for a detached process by checking conditions on an
// interval. The filesystem is the only channel between the two sides.
package poll

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"code.cloudfoundry.org/clock"
)

// Predicate reports whether waiting should end.
type Predicate func(ctx context.Context) (bool, error)

// Waiter blocks until one of preds is satisfied, calling each between checks.
type Waiter interface {
	Wait(ctx context.Context, each func(), preds ...Predicate) error
}

// Poller is a Waiter that sleeps Interval between checks.
type Poller struct {
	Clock    clock.Clock
	Interval time.Duration
}

// NewPoller returns a Poller on the wall clock.
func NewPoller(interval time.Duration) *Poller {
	return &Poller{Clock: clock.NewClock(), Interval: interval}
}

func (p *Poller) Wait(ctx context.Context, each func(), preds ...Predicate) error {
	return Until(ctx, p.Clock, p.Interval, each, preds...)
}

// Until sleeps interval, calls each, then evaluates preds in order, and
// repeats until a predicate returns true, a predicate fails, or ctx is done.
// There is no internal deadline.
func Until(ctx context.Context, clk clock.Clock, interval time.Duration, each func(), preds ...Predicate) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clk.After(interval):
		}
		if each != nil {
			each()
		}
		for _, p := range preds {
			done, err := p(ctx)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

// FileNotEmpty is satisfied once path exists and holds at least one byte.
// A shell redirection creates its target before anything is written to it.
func FileNotEmpty(path string) Predicate {
	return func(context.Context) (bool, error) {
		fi, err := os.Stat(path)
		if err == nil {
			return fi.Size() > 0, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(ctx context.Context) (bool, error) {
		ok, err := p(ctx)
		return !ok, err
	}
}
