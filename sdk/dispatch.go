package sdk

import "errors"

// errDispatchUnavailable is returned for work submitted to a dispatcher
// that was never started. It indicates SDK misuse, not a runtime fault.
var errDispatchUnavailable = errors.New("sdk dispatcher unavailable")

// dispatcher serializes SDK work onto a single goroutine.
//
// Host apps (gomobile bindings in particular) invoke exported methods from
// arbitrary threads; funnelling commands through one queue keeps the
// session map and listener registration free of races. The Client runs two
// of these: one for commands and one for Listener callbacks, so a slow
// host listener cannot stall room sessions or SDK commands.
type dispatcher struct {
	q chan func()
}

func newDispatcher() *dispatcher {
	d := &dispatcher{q: make(chan func(), defaultDispatcherQueueSize)}
	go d.run()
	return d
}

func (d *dispatcher) run() {
	for fn := range d.q {
		fn()
	}
}

// do enqueues fn and returns without waiting for it to run.
func (d *dispatcher) do(fn func()) error {
	if d == nil || d.q == nil {
		return errDispatchUnavailable
	}
	if fn == nil {
		return nil
	}
	d.q <- fn
	return nil
}

// call runs fn on the dispatch goroutine and waits for its result.
func (d *dispatcher) call(fn func() (any, error)) (any, error) {
	if fn == nil {
		return nil, nil
	}
	type result struct {
		value any
		err   error
	}
	done := make(chan result, 1)
	if err := d.do(func() {
		value, err := fn()
		done <- result{value: value, err: err}
	}); err != nil {
		return nil, err
	}
	res := <-done
	return res.value, res.err
}
