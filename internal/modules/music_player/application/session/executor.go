package session

import "sync"

// serialExecutor runs submitted jobs one at a time, in submission order,
// on its own goroutine. submit never blocks.
type serialExecutor struct {
	mu     sync.Mutex
	jobs   []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newSerialExecutor() *serialExecutor {
	e := &serialExecutor{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *serialExecutor) submit(job func()) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.jobs = append(e.jobs, job)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// close stops accepting jobs. Jobs already submitted still run.
func (e *serialExecutor) close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *serialExecutor) run() {
	defer close(e.done)

	for {
		e.mu.Lock()
		jobs := e.jobs
		e.jobs = nil
		closed := e.closed
		e.mu.Unlock()

		for _, job := range jobs {
			job()
		}

		if len(jobs) == 0 {
			if closed {
				return
			}
			<-e.wake
		}
	}
}
