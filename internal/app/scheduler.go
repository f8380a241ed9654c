package app

import (
	"sync"
	"time"
)

type taskKind string

const (
	taskAdvance taskKind = "advance"
	taskSave    taskKind = "save"
)

// scheduler runs deferred callbacks keyed by kind. Scheduling a kind replaces
// any pending callback of that kind; a replaced callback never runs.
type scheduler struct {
	mu      sync.Mutex
	next    uint64
	pending map[taskKind]*scheduledTask
	stopped bool
}

type scheduledTask struct {
	id    uint64
	timer *time.Timer
	fn    func()
}

func newScheduler() *scheduler {
	return &scheduler{pending: make(map[taskKind]*scheduledTask)}
}

// schedule arranges for fn to run after delay and returns the task id.
func (s *scheduler) schedule(kind taskKind, delay time.Duration, fn func()) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return 0
	}
	s.cancelLocked(kind)

	s.next++
	task := &scheduledTask{id: s.next, fn: fn}
	s.pending[kind] = task
	task.timer = time.AfterFunc(delay, func() { s.fire(kind, task.id) })
	return task.id
}

func (s *scheduler) fire(kind taskKind, id uint64) {
	s.mu.Lock()
	task, ok := s.pending[kind]
	if !ok || task.id != id {
		s.mu.Unlock()
		return
	}
	delete(s.pending, kind)
	s.mu.Unlock()
	task.fn()
}

func (s *scheduler) cancel(kind taskKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(kind)
}

func (s *scheduler) cancelLocked(kind taskKind) {
	if task, ok := s.pending[kind]; ok {
		task.timer.Stop()
		delete(s.pending, kind)
	}
}

// flush runs a pending callback of the given kind immediately. It reports
// whether anything was pending.
func (s *scheduler) flush(kind taskKind) bool {
	s.mu.Lock()
	task, ok := s.pending[kind]
	if ok {
		task.timer.Stop()
		delete(s.pending, kind)
	}
	s.mu.Unlock()
	if ok {
		task.fn()
	}
	return ok
}

func (s *scheduler) isPending(kind taskKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[kind]
	return ok
}

// stop cancels everything still pending. Later schedules are ignored until reopen.
func (s *scheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for kind := range s.pending {
		s.cancelLocked(kind)
	}
	s.stopped = true
}

func (s *scheduler) reopen() {
	s.mu.Lock()
	s.stopped = false
	s.mu.Unlock()
}
