package extension

import "sync"

// Scheduler runs deferred functions on a single service goroutine, one
// "tick" at a time. The reset protocol uses it to push project resolution
// onto the next tick, breaking the initialization cycle between the plugin
// runtime and the project registry.
type Scheduler struct {
	mu     sync.Mutex
	queue  chan func()
	closed bool
	wg     sync.WaitGroup
}

// NewScheduler starts the scheduler's service goroutine.
func NewScheduler() *Scheduler {
	s := &Scheduler{
		queue: make(chan func(), 64),
	}
	s.wg.Add(1)
	go s.loop()
	return s
}

// NextTick enqueues fn to run on the next tick. Functions run in enqueue
// order. NextTick must not be called from inside a running tick's function
// chain that then blocks on its completion.
func (s *Scheduler) NextTick(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue <- fn
}

// Close stops the scheduler after draining queued functions.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()
	for fn := range s.queue {
		fn()
	}
}
