package task

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const defaultSchedulerInterval = time.Minute

// RunnerFunc is one scheduled pass.
type RunnerFunc func(context.Context)

type PanicHandler func(recovered error)

// Scheduler runs a RunnerFunc on a ticker, on demand through Trigger and, when
// RunImmediately is set, once as soon as it starts. Passes never overlap.
type Scheduler struct {
	interval       time.Duration
	runner         RunnerFunc
	onPanic        PanicHandler
	runImmediately bool
	trigger        chan struct{}

	mutex  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(interval time.Duration, runner RunnerFunc) *Scheduler {
	if interval <= 0 {
		interval = defaultSchedulerInterval
	}
	return &Scheduler{interval: interval, runner: runner, trigger: make(chan struct{}, 1)}
}

// OnPanic installs a handler for runner panics; the loop survives them.
func (scheduler *Scheduler) OnPanic(handler PanicHandler) *Scheduler {
	if scheduler != nil {
		scheduler.onPanic = handler
	}
	return scheduler
}

// RunImmediately makes Start perform a pass before waiting for the first tick.
func (scheduler *Scheduler) RunImmediately() *Scheduler {
	if scheduler != nil {
		scheduler.runImmediately = true
	}
	return scheduler
}

// Start launches the loop once; later calls are ignored until Stop.
func (scheduler *Scheduler) Start(ctx context.Context) {
	if scheduler == nil || scheduler.runner == nil {
		return
	}
	scheduler.mutex.Lock()
	defer scheduler.mutex.Unlock()
	if scheduler.cancel != nil {
		return
	}
	loopContext, cancel := context.WithCancel(ctx)
	scheduler.cancel = cancel
	scheduler.done = make(chan struct{})
	go scheduler.loop(loopContext, scheduler.done)
}

// Trigger requests an extra pass. Requests made while one is pending collapse into one.
func (scheduler *Scheduler) Trigger() {
	if scheduler == nil {
		return
	}
	select {
	case scheduler.trigger <- struct{}{}:
	default:
	}
}

// Stop cancels the loop and waits for an in-flight pass.
func (scheduler *Scheduler) Stop() {
	if scheduler == nil {
		return
	}
	scheduler.mutex.Lock()
	cancel, done := scheduler.cancel, scheduler.done
	scheduler.cancel, scheduler.done = nil, nil
	scheduler.mutex.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (scheduler *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(scheduler.interval)
	defer ticker.Stop()

	if scheduler.runImmediately {
		scheduler.run(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-scheduler.trigger:
			ticker.Reset(scheduler.interval)
		}
		if ctx.Err() != nil {
			return
		}
		scheduler.run(ctx)
	}
}

func (scheduler *Scheduler) run(ctx context.Context) {
	if scheduler.runner == nil {
		return
	}
	defer func() {
		if recovered := recover(); recovered != nil && scheduler.onPanic != nil {
			scheduler.onPanic(fmt.Errorf("task: runner panic: %v", recovered))
		}
	}()
	scheduler.runner(ctx)
}
