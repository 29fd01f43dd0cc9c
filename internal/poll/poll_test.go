package poll_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"

	"github.com/signalnine/ubench/internal/poll"
)

func TestUntilStopsOnPredicate(t *testing.T) {
	fclk := fakeclock.NewFakeClock(time.Unix(0, 0))
	ticks := 0
	done := make(chan error, 1)
	go func() {
		done <- poll.Until(context.Background(), fclk, time.Second, func() { ticks++ },
			func(context.Context) (bool, error) { return ticks == 3, nil })
	}()
	for i := 0; i < 3; i++ {
		fclk.WaitForWatcherAndIncrement(time.Second)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Until: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Until did not return after predicate was satisfied")
	}
	if ticks != 3 {
		t.Errorf("ticks: got %d, want 3", ticks)
	}
}

func TestUntilDoesNotCheckBeforeInterval(t *testing.T) {
	fclk := fakeclock.NewFakeClock(time.Unix(0, 0))
	done := make(chan error, 1)
	go func() {
		done <- poll.Until(context.Background(), fclk, time.Second, nil,
			func(context.Context) (bool, error) { return true, nil })
	}()
	fclk.WaitForWatcherAndIncrement(500 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("Until returned before the interval elapsed")
	case <-time.After(50 * time.Millisecond):
	}
	fclk.Increment(500 * time.Millisecond)
	if err := <-done; err != nil {
		t.Fatalf("Until: %v", err)
	}
}

func TestUntilAnyPredicate(t *testing.T) {
	fclk := fakeclock.NewFakeClock(time.Unix(0, 0))
	never := func(context.Context) (bool, error) { return false, nil }
	always := func(context.Context) (bool, error) { return true, nil }
	done := make(chan error, 1)
	go func() { done <- poll.Until(context.Background(), fclk, time.Second, nil, never, always) }()
	fclk.WaitForWatcherAndIncrement(time.Second)
	if err := <-done; err != nil {
		t.Fatalf("Until: %v", err)
	}
}

func TestUntilPredicateError(t *testing.T) {
	fclk := fakeclock.NewFakeClock(time.Unix(0, 0))
	boom := errors.New("boom")
	done := make(chan error, 1)
	go func() {
		done <- poll.Until(context.Background(), fclk, time.Second, nil,
			func(context.Context) (bool, error) { return false, boom })
	}()
	fclk.WaitForWatcherAndIncrement(time.Second)
	if err := <-done; !errors.Is(err, boom) {
		t.Errorf("got %v, want %v", err, boom)
	}
}

func TestUntilCancelled(t *testing.T) {
	fclk := fakeclock.NewFakeClock(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- poll.Until(ctx, fclk, time.Second, nil,
			func(context.Context) (bool, error) { return false, nil })
	}()
	fclk.WaitForWatcherAndIncrement(time.Second)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestFileNotEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unixbench.status")
	pred := poll.FileNotEmpty(path)
	steps := []struct {
		content *string
		want    bool
	}{
		{nil, false},
		{new(string), false},
		{func() *string { s := "0\n"; return &s }(), true},
	}
	for i, step := range steps {
		if step.content != nil {
			if err := os.WriteFile(path, []byte(*step.content), 0o644); err != nil {
				t.Fatal(err)
			}
		}
		ok, err := pred(context.Background())
		if err != nil || ok != step.want {
			t.Errorf("step %d: got (%v, %v), want (%v, nil)", i, ok, err, step.want)
		}
		if notOK, _ := poll.Not(pred)(context.Background()); notOK == step.want {
			t.Errorf("step %d: Not did not invert", i)
		}
	}
}

func TestPollerWait(t *testing.T) {
	p := poll.NewPoller(time.Millisecond)
	path := filepath.Join(t.TempDir(), "flag")
	calls := 0
	err := p.Wait(context.Background(), func() {
		calls++
		if calls == 2 {
			os.WriteFile(path, []byte("0\n"), 0o644)
		}
	}, poll.FileNotEmpty(path))
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if calls != 2 {
		t.Errorf("each called %d times, want 2", calls)
	}
}
