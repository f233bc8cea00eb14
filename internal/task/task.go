// Package task manages the lifecycle of the long-lived goroutines a robot
// connection runs: socket receive loops, the status poller and the state
// broadcaster.
//
// A Manager derives one context from its parent; Stop cancels it and Wait
// blocks until every goroutine has observed the cancellation and returned.
// After Wait the context is recreated so the same Manager can be reused for
// the next connection session.
package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-ur/internal/pool"
	"github.com/arloliu/go-ur/logger"
)

// startTimeout bounds the startup handshake of one goroutine.
const startTimeout = 5 * time.Second

// Func performs one iteration of a task. It returns true to keep the task
// running, or false to stop the goroutine.
type Func func() bool

// RecvFunc performs one iteration of a receive task. The lenBuf argument is
// a scratch buffer for the frame length header, reused across iterations to
// avoid per-frame allocations.
type RecvFunc func(lenBuf []byte) bool

// CancelFunc runs when a goroutine managed by the Manager exits or is
// canceled. It is the place for cleanup such as marking a channel down.
type CancelFunc func()

// Manager supervises the goroutines of one connection session.
type Manager struct {
	pctx   context.Context
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger logger.Logger
	count  atomic.Int32

	tickers sync.Map     // map[string]*time.Ticker
	mu      sync.RWMutex // protects ctx and cancel
	startMu sync.RWMutex // blocks task creation during Wait()
}

// NewManager creates a Manager whose tasks are children of ctx.
func NewManager(ctx context.Context, l logger.Logger) *Manager {
	mgr := &Manager{pctx: ctx, logger: l}
	mgr.ctx, mgr.cancel = context.WithCancel(ctx)

	return mgr
}

// getContext safely returns the current context.
func (mgr *Manager) getContext() context.Context {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	return mgr.ctx
}

// Start runs taskFunc in a loop on a new goroutine until it returns false or
// the Manager is stopped.
func (mgr *Manager) Start(name string, taskFunc Func) error {
	mgr.logger.Debug("start task", "name", name)

	starter, err := mgr.newStarter(name)
	if err != nil {
		return err
	}

	starter.launch(func() {
		mgr.runLoop(taskFunc)
	})

	return starter.waitForStart()
}

// StartReceiver runs a frame receive loop on a new goroutine. lenSize is the
// size of the frame length header (4 for feedback frames, 2 for RTDE
// frames). cancelFunc, if non-nil, runs when the goroutine exits for any
// reason.
func (mgr *Manager) StartReceiver(name string, lenSize int, taskFunc RecvFunc, cancelFunc CancelFunc) error {
	mgr.logger.Debug("start receiver task", "name", name, "len_size", lenSize)

	starter, err := mgr.newStarter(name)
	if err != nil {
		return err
	}

	starter.launch(func() {
		if cancelFunc != nil {
			defer cancelFunc()
		}

		lenBuf := make([]byte, lenSize)
		mgr.runLoop(func() bool {
			return taskFunc(lenBuf)
		})
	})

	return starter.waitForStart()
}

// StartInterval executes taskFunc at the given interval on a new goroutine.
// If runNow is true, taskFunc is executed once before the first tick.
// The task stops when taskFunc returns false, when StopInterval is called
// with the same name, or when the Manager is stopped.
func (mgr *Manager) StartInterval(name string, taskFunc Func, interval time.Duration, runNow bool) error {
	mgr.logger.Debug("start interval task", "name", name, "interval", interval, "run_now", runNow)

	if interval <= 0 {
		return fmt.Errorf("invalid interval: %v", interval)
	}

	ticker := time.NewTicker(interval)

	if _, loaded := mgr.tickers.LoadOrStore(name, ticker); loaded {
		ticker.Stop()
		return fmt.Errorf("interval task %s already exists", name)
	}

	cleanup := func() {
		ticker.Stop()
		mgr.tickers.Delete(name)
	}

	if runNow {
		if !mgr.callWithRecover(name, taskFunc) {
			cleanup()
			mgr.logger.Debug("interval task terminated on first run", "name", name)

			return nil
		}
	}

	starter, err := mgr.newStarter(name)
	if err != nil {
		cleanup()
		return err
	}

	starter.launch(func() {
		defer cleanup()

		for {
			ctx := mgr.getContext()
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !mgr.callWithRecover(name, taskFunc) {
					return
				}
			}
		}
	})

	if err := starter.waitForStart(); err != nil {
		cleanup()
		return err
	}

	return nil
}

// StopInterval stops the interval task with the given name. The task
// goroutine exits on its next tick.
func (mgr *Manager) StopInterval(name string) error {
	val, ok := mgr.tickers.LoadAndDelete(name)
	if !ok {
		return fmt.Errorf("interval task %s not found", name)
	}

	ticker, ok := val.(*time.Ticker)
	if !ok {
		return fmt.Errorf("interval task %s is not backed by a ticker", name)
	}
	ticker.Stop()

	return nil
}

// Stop signals all running goroutines to terminate. It does not wait for
// them; call Wait for that.
func (mgr *Manager) Stop() {
	mgr.tickers.Range(func(_, value any) bool {
		if ticker, ok := value.(*time.Ticker); ok {
			ticker.Stop()
		}

		return true
	})

	mgr.mu.Lock()
	if mgr.cancel != nil {
		mgr.cancel()
	}
	mgr.mu.Unlock()
}

// Wait blocks until all goroutines have terminated, then recreates the
// internal context so the Manager can host the next session.
func (mgr *Manager) Wait() {
	mgr.startMu.Lock()
	defer mgr.startMu.Unlock()

	mgr.wg.Wait()

	mgr.mu.Lock()
	mgr.ctx, mgr.cancel = context.WithCancel(mgr.pctx)
	mgr.mu.Unlock()
}

// Count returns the number of currently running goroutines.
func (mgr *Manager) Count() int {
	return int(mgr.count.Load())
}

// callWithRecover calls a task function with panic protection.
func (mgr *Manager) callWithRecover(name string, fn Func) (cont bool) {
	defer func() {
		if r := recover(); r != nil {
			mgr.logger.Error("panic in task", "name", name, "panic", r)
		}
	}()

	return fn()
}

// runLoop runs a task function in a loop with cooperative cancellation.
func (mgr *Manager) runLoop(taskFunc Func) {
	defer func() {
		if r := recover(); r != nil {
			mgr.logger.Error("panic in task loop", "panic", r)
		}
	}()

	for {
		ctx := mgr.getContext()
		select {
		case <-ctx.Done():
			return
		default:
			if !taskFunc() {
				return
			}
		}
	}
}

// starter encapsulates the common startup handshake so callers observe
// startup failures synchronously.
type starter struct {
	mgr     *Manager
	name    string
	started chan error
}

func (mgr *Manager) newStarter(name string) (*starter, error) {
	ctx := mgr.getContext()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("task manager already stopped")
	default:
	}

	return &starter{
		mgr:     mgr,
		name:    name,
		started: make(chan error, 1),
	}, nil
}

func (s *starter) launch(taskBody func()) {
	s.mgr.startMu.RLock()
	defer s.mgr.startMu.RUnlock()

	s.mgr.wg.Add(1)

	go func() {
		defer s.mgr.wg.Done()

		func() {
			defer func() {
				if r := recover(); r != nil {
					s.started <- fmt.Errorf("panic during startup: %v", r)
				}
			}()

			s.mgr.count.Add(1)
			s.started <- nil
		}()

		defer func() {
			s.mgr.count.Add(-1)
			s.mgr.logger.Debug("task terminated", "name", s.name, "task_count", s.mgr.Count())
		}()

		taskBody()
	}()
}

func (s *starter) waitForStart() error {
	ctx := s.mgr.getContext()

	timer := pool.GetTimer(startTimeout)
	defer pool.PutTimer(timer)

	select {
	case err := <-s.started:
		if err != nil {
			s.mgr.wg.Done() // compensate for failed start
			return fmt.Errorf("failed to start %s: %w", s.name, err)
		}

		return nil

	case <-timer.C:
		return fmt.Errorf("timeout waiting for %s to start", s.name)

	case <-ctx.Done():
		return fmt.Errorf("context canceled while starting %s", s.name)
	}
}
