package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

type operation func(ctx context.Context) error

// shutdownStage is a set of clean up operations that may run concurrently.
// Stages run one after another, so connections are only closed once the
// loops using them have stopped.
type shutdownStage map[string]operation

// gracefulShutdown waits for termination syscalls and doing clean up operations after received it.
func gracefulShutdown(ctx context.Context, timeout time.Duration, stages ...shutdownStage) <-chan struct{} {
	wait := make(chan struct{})
	go func() {
		s := make(chan os.Signal, 1)

		// add any other syscalls that you want to be notified with
		signal.Notify(s, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		<-s

		logrus.Info("shutting down")

		// set timeout for the ops to be done to prevent system hang
		timeoutFunc := time.AfterFunc(timeout, func() {
			logrus.Error(fmt.Sprintf("timeout %d ms has been elapsed, force exit", timeout.Milliseconds()))
			os.Exit(0)
		})

		defer timeoutFunc.Stop()

		for _, stage := range stages {
			runShutdownStage(ctx, stage)
		}

		close(wait)
	}()

	return wait
}

func runShutdownStage(ctx context.Context, stage shutdownStage) {
	var wg sync.WaitGroup

	for key, op := range stage {
		key, op := key, op
		wg.Add(1)
		go func() {
			defer wg.Done()

			logrus.Info(fmt.Sprintf("cleaning up: %s", key))
			if err := op(ctx); err != nil {
				logrus.Error(fmt.Sprintf("%s: clean up failed: %s", key, err.Error()))
				return
			}

			logrus.Info(fmt.Sprintf("%s was shutdown gracefully", key))
		}()
	}

	wg.Wait()
}

// backgroundTasks supervises the long-running loops of a process so that
// shutdown can wait for them and a panic is logged instead of lost.
type backgroundTasks struct {
	wg sync.WaitGroup
}

func (b *backgroundTasks) Go(name string, fn func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if recovered := recover(); recovered != nil {
				logrus.WithFields(logrus.Fields{
					"task":  name,
					"panic": recovered,
				}).Error("background task crashed")
			}
		}()

		logrus.WithField("task", name).Info("background task started")
		fn()
		logrus.WithField("task", name).Info("background task stopped")
	}()
}

func (b *backgroundTasks) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
