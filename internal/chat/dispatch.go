package chat

import "sync"

// defaultLoopQueueSize is the mailbox size used by session event loops.
const defaultLoopQueueSize = 256

type loopResult struct {
	value any
	err   error
}

// loop serializes all session work onto a single goroutine.
//
// Live-connection frames, history-fetch completions, retry timers, and user
// commands all enter the session through the loop, so session state and the
// timeline never race. Unlike a mutex, the loop also fixes the processing
// order: each event is handled to completion before the next.
type loop struct {
	mu     sync.Mutex
	q      chan func()
	closed bool
}

func newLoop(queueSize int) *loop {
	if queueSize <= 0 {
		queueSize = defaultLoopQueueSize
	}
	l := &loop{q: make(chan func(), queueSize)}
	go func() {
		for fn := range l.q {
			if fn != nil {
				fn()
			}
		}
	}()
	return l
}

// do enqueues fn for execution on the loop goroutine. Events arriving after
// close are dropped.
func (l *loop) do(fn func()) error {
	if fn == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrSessionClosed
	}
	l.q <- fn
	return nil
}

// call runs fn on the loop goroutine and waits for its result.
func (l *loop) call(fn func() (any, error)) (any, error) {
	done := make(chan loopResult, 1)
	err := l.do(func() {
		value, err := fn()
		done <- loopResult{value: value, err: err}
	})
	if err != nil {
		return nil, err
	}
	res := <-done
	return res.value, res.err
}

// close stops accepting new work. Queued work still runs; the loop goroutine
// exits once the queue drains. Safe to call from the loop goroutine itself.
func (l *loop) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.q)
}
