// Package scheduler emits due alerts for tasks at their completion time.
package scheduler

import (
	"container/heap"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidDueTime = errors.New("scheduler: invalid due time")
	ErrStopped        = errors.New("scheduler: engine stopped")
)

// DueEvent fires once when a task's completion time is reached.
type DueEvent struct {
	ID     string
	TaskID int64
	UserID int64
	Title  string
	DueAt  time.Time
}

func DueEventID(taskID int64) string {
	return fmt.Sprintf("due-%d", taskID)
}

// entry carries its heap position so a single alert can be cancelled.
type entry struct {
	ev    DueEvent
	index int
}

// dueHeap orders alerts by due time, then task id.
type dueHeap []*entry

func (h dueHeap) Len() int { return len(h) }

func (h dueHeap) Less(i, j int) bool {
	a, b := h[i].ev, h[j].ev
	if a.DueAt.Equal(b.DueAt) {
		return a.TaskID < b.TaskID
	}
	return a.DueAt.Before(b.DueAt)
}

func (h dueHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *dueHeap) Push(x any) {
	en := x.(*entry)
	en.index = len(*h)
	*h = append(*h, en)
}

func (h *dueHeap) Pop() any {
	old := *h
	last := len(old) - 1
	en := old[last]
	old[last] = nil
	en.index = -1
	*h = old[:last]
	return en
}

// Engine holds at most one alert per event ID and delivers each on C when
// it falls due. Delivery never blocks: alerts that find the channel full
// are counted in Dropped.
type Engine struct {
	mu      sync.Mutex
	queue   dueHeap
	byID    map[string]*entry
	running bool
	closed  bool

	out  chan DueEvent
	kick chan struct{}
	quit chan struct{}
	done chan struct{}

	now     func() time.Time
	dropped atomic.Uint64
}

func NewEngine(bufferSize int) *Engine {
	return &Engine{
		byID: make(map[string]*entry),
		out:  make(chan DueEvent, max(bufferSize, 1)),
		kick: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) C() <-chan DueEvent {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running || e.closed {
		return
	}
	e.running = true
	go e.run()
}

// Stop ends the delivery goroutine and closes C. Schedule fails afterwards.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running || e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.quit)
	e.mu.Unlock()
	<-e.done
}

// Schedule queues ev. An ID that is already queued is ignored, so
// rescheduling a user's tasks after every login does not double the alerts.
func (e *Engine) Schedule(ev DueEvent) error {
	if ev.DueAt.IsZero() {
		return ErrInvalidDueTime
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrStopped
	}
	if _, queued := e.byID[ev.ID]; queued {
		return nil
	}
	en := &entry{ev: ev}
	heap.Push(&e.queue, en)
	e.byID[ev.ID] = en
	e.poke()
	return nil
}

// Cancel removes the alert with the given ID and reports whether it was
// queued.
func (e *Engine) Cancel(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	en, ok := e.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&e.queue, en.index)
	delete(e.byID, id)
	e.poke()
	return true
}

// CancelUser removes every alert owned by userID and reports how many went.
func (e *Engine) CancelUser(userID int64) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	removed := 0
	for id, en := range e.byID {
		if en.ev.UserID != userID {
			continue
		}
		heap.Remove(&e.queue, en.index)
		delete(e.byID, id)
		removed++
	}
	if removed > 0 {
		e.poke()
	}
	return removed
}

func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func (e *Engine) Dropped() uint64 {
	return e.dropped.Load()
}

// poke wakes the run loop so it re-reads the head of the queue. Callers hold
// e.mu.
func (e *Engine) poke() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

func (e *Engine) run() {
	defer close(e.done)
	defer close(e.out)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		var fire <-chan time.Time
		if at, ok := e.nextDue(); ok {
			timer.Reset(max(at.Sub(e.now()), 0))
			fire = timer.C
		} else {
			timer.Stop()
		}

		select {
		case <-fire:
			for _, ev := range e.takeDue(e.now()) {
				e.deliver(ev)
			}
		case <-e.kick:
		case <-e.quit:
			return
		}
	}
}

func (e *Engine) nextDue() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return time.Time{}, false
	}
	return e.queue[0].ev.DueAt, true
}

// takeDue pops every alert due at or before now, earliest first.
func (e *Engine) takeDue(now time.Time) []DueEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	var due []DueEvent
	for len(e.queue) > 0 && !e.queue[0].ev.DueAt.After(now) {
		en := heap.Pop(&e.queue).(*entry)
		delete(e.byID, en.ev.ID)
		due = append(due, en.ev)
	}
	return due
}

func (e *Engine) deliver(ev DueEvent) {
	select {
	case e.out <- ev:
	default:
		e.dropped.Add(1)
	}
}
