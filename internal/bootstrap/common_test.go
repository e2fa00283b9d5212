package bootstrap

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunShutdownStageRunsEveryOperation(t *testing.T) {
	var calls atomic.Int32

	runShutdownStage(context.Background(), shutdownStage{
		"first": func(ctx context.Context) error {
			calls.Add(1)
			return nil
		},
		"failing": func(ctx context.Context) error {
			calls.Add(1)
			return errors.New("close: connection reset")
		},
	})

	assert.Equal(t, int32(2), calls.Load())
}

func TestBackgroundTasksWait(t *testing.T) {
	tasks := &backgroundTasks{}
	release := make(chan struct{})
	var finished atomic.Bool

	tasks.Go("worker", func() {
		<-release
		finished.Store(true)
	})
	tasks.Go("crashing", func() {
		panic("boom")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tasks.Wait(ctx), context.DeadlineExceeded)

	close(release)
	assert.NoError(t, tasks.Wait(context.Background()))
	assert.True(t, finished.Load())
}
