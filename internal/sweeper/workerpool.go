package sweeper

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type WorkerPoolI interface {
	AddTask(ctx context.Context, task Task) error
	Close()
}

type Task func() error

// WorkerPool bounds how many sweep transactions run concurrently so a
// large batch of idle sessions cannot saturate the pool's DB connections.
type WorkerPool struct {
	tasks   chan Task
	workers sync.WaitGroup
	once    sync.Once
}

func NewWorkerPool(size int) *WorkerPool {
	wp := &WorkerPool{tasks: make(chan Task, size)}

	wp.workers.Add(size)
	for i := 0; i < size; i++ {
		go func() {
			defer wp.workers.Done()
			for task := range wp.tasks {
				if err := task(); err != nil {
					zap.L().Error("sweep task failed", zap.Error(err))
				}
			}
		}()
	}
	return wp
}

func (wp *WorkerPool) AddTask(ctx context.Context, task Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case wp.tasks <- task:
		return nil
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		close(wp.tasks)
	})
	wp.workers.Wait()
}
