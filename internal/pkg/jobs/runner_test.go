package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEveryRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(ctx)

	var n atomic.Int32
	r.Every(5*time.Millisecond, "tick", func(context.Context) error {
		n.Add(1)
		return nil
	})

	assert.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	r.Wait()

	after := n.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, n.Load())
}

func TestEverySurvivesErrorsAndPanics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx)

	var n atomic.Int32
	r.Every(5*time.Millisecond, "flaky", func(context.Context) error {
		switch n.Add(1) {
		case 1:
			panic("boom")
		case 2:
			return errors.New("failed")
		}
		return nil
	})

	assert.Eventually(t, func() bool { return n.Load() >= 4 }, time.Second, time.Millisecond)
}
