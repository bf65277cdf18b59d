package app

import (
	"testing"
	"time"
)

func TestPoolRegenLoopStops(t *testing.T) {
	stop := make(chan struct{})
	ticks := make(chan struct{}, 16)
	done := make(chan struct{})

	go func() {
		poolRegenLoop(5*time.Millisecond, stop, func() {
			select {
			case ticks <- struct{}{}:
			default:
			}
		})
		close(done)
	}()

	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("regen loop never fired")
	}

	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("regen loop did not stop on shutdown signal")
	}
}
