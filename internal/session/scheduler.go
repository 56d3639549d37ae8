package session

import (
	"log"
	"sort"
	"sync"
	"time"
)

// Scheduler fires single-shot tasks at wall-clock deadlines. Deadlines are
// computed once at session start; the dispatcher polls RunPending between
// tick batches, so resolution is one tick interval — plenty for
// once-per-day session boundaries.
type Scheduler struct {
	mu    sync.Mutex
	tasks []*task
}

type task struct {
	name string
	at   time.Time
	fn   func()
	done bool
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// AddTask registers fn to run once at or after deadline.
func (s *Scheduler) AddTask(name string, deadline time.Time, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, &task{name: name, at: deadline, fn: fn})
	sort.Slice(s.tasks, func(i, j int) bool { return s.tasks[i].at.Before(s.tasks[j].at) })
}

// RunPending executes every due task that has not run yet. Task panics are
// contained; a broken task must not take down the dispatcher.
func (s *Scheduler) RunPending(now time.Time) {
	s.mu.Lock()
	var due []*task
	for _, t := range s.tasks {
		if t.done || now.Before(t.at) {
			continue
		}
		t.done = true
		due = append(due, t)
	}
	s.mu.Unlock()

	for _, t := range due {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("scheduler: task %s panicked: %v", t.name, r)
				}
			}()
			log.Printf("scheduler: running task %s", t.name)
			t.fn()
		}()
	}
}

// Pending returns how many tasks have not fired yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.done {
			n++
		}
	}
	return n
}
