// Package scheduler runs work on a bounded number of goroutines.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

type Work[T any] func(ctx context.Context) (T, error)

type Result[T any] struct {
	Data T
	Err  error
}

// Future holds the result of a work item once a worker has run it.
type Future[T any] struct {
	c      chan Result[T]
	cancel context.CancelFunc
}

// C returns the channel receiving the result. It receives exactly once.
func (f *Future[T]) C() <-chan Result[T] {
	return f.c
}

// Stop cancels the context of the work.
func (f *Future[T]) Stop() {
	f.cancel()
}

// Wait blocks until the result is available or ctx is done. The work is cancelled in
// the latter case.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case r := <-f.c:
		return r.Data, r.Err
	case <-ctx.Done():
		f.Stop()
		var none T
		return none, ctx.Err()
	}
}

type workRequest struct {
	fn     Work[any]
	c      chan Result[any]
	ctx    context.Context
	cancel context.CancelFunc
}

// Scheduler runs work in FIFO order on at most size workers.
type Scheduler struct {
	size    int
	mu      sync.Mutex
	queue   []workRequest
	running int
	closed  bool
	wg      sync.WaitGroup

	mainCtx    context.Context
	mainCancel context.CancelFunc
	logger     *zap.SugaredLogger
}

func NewScheduler(nbWorkers int) *Scheduler {
	if nbWorkers < 1 {
		nbWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		size:       nbWorkers,
		mainCtx:    ctx,
		mainCancel: cancel,
		logger:     zap.S().Named("scheduler"),
	}
}

// AddWork queues w. Its context is cancelled when ctx is, when the future is stopped or
// when the scheduler is closed.
func (s *Scheduler) AddWork(ctx context.Context, w Work[any]) *Future[any] {
	wctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.mainCtx, cancel)
	r := workRequest{
		fn:  w,
		c:   make(chan Result[any], 1),
		ctx: wctx,
		cancel: func() {
			stop()
			cancel()
		},
	}
	f := &Future[any]{c: r.c, cancel: r.cancel}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		r.c <- Result[any]{Err: context.Canceled}
		r.cancel()
		return f
	}

	s.queue = append(s.queue, r)
	if s.running < s.size {
		s.running++
		s.wg.Add(1)
		go s.work()
	}
	return f
}

// Close cancels queued and running work and waits for the running work to return.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	queued := s.queue
	s.queue = nil
	s.mu.Unlock()

	s.mainCancel()
	for _, r := range queued {
		r.c <- Result[any]{Err: context.Canceled}
		r.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) work() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running--
			s.mu.Unlock()
			return
		}
		r := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		r.c <- s.run(r)
		r.cancel()
	}
}

func (s *Scheduler) run(r workRequest) (result Result[any]) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Errorw("worker panicked", "panic", p)
			result = Result[any]{Err: fmt.Errorf("worker panicked: %v", p)}
		}
	}()

	// cancelled while queued
	if err := r.ctx.Err(); err != nil {
		return Result[any]{Err: err}
	}

	v, err := r.fn(r.ctx)
	return Result[any]{Data: v, Err: err}
}
