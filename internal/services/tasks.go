package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// TaskRunner runs best-effort work that must never fail or block the
// operation that triggered it.
type TaskRunner interface {
	Dispatch(name string, fn func(ctx context.Context) error)
}

type AsyncTaskRunner struct {
	logger  *logrus.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsyncTaskRunner(logger *logrus.Logger, timeout time.Duration) *AsyncTaskRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AsyncTaskRunner{logger: logger, timeout: timeout}
}

func (r *AsyncTaskRunner) Dispatch(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := runTask(ctx, fn); err != nil {
			r.logger.WithFields(logrus.Fields{
				"task":  name,
				"error": err.Error(),
			}).Warn("Background task failed")
		}
	}()
}

// Wait blocks until dispatched tasks finish. Called on shutdown.
func (r *AsyncTaskRunner) Wait() {
	r.wg.Wait()
}

func runTask(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v", recovered)
		}
	}()
	return fn(ctx)
}
