// Package cmdqueue schedules commands by simulated time and executes them in
// one total order: due time, then category, then enqueue serial.
package cmdqueue

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/l1jgo/lockstep/internal/command"
	"github.com/l1jgo/lockstep/internal/gametime"
)

// DefaultBuckets is the bucket count used when none is configured.
const DefaultBuckets = 256

// ErrIllegalSchedule is returned for a command due before the processed time.
var ErrIllegalSchedule = errors.New("illegal schedule")

// ScheduleError describes a rejected enqueue.
type ScheduleError struct {
	Tag command.Tag
	Due gametime.Time
	Now gametime.Time
}

func (e *ScheduleError) Error() string {
	return fmt.Sprintf("schedule %s at %s: before processed time %s", e.Tag, e.Due, e.Now)
}

func (e *ScheduleError) Unwrap() error { return ErrIllegalSchedule }

type item struct {
	due      gametime.Time
	category command.Category
	serial   uint32
	cmd      command.Command
}

func (a item) less(b item) bool {
	if a.due != b.due {
		return a.due < b.due
	}
	if a.category != b.category {
		return a.category < b.category
	}
	return a.serial < b.serial
}

func compareItems(a, b item) int {
	switch {
	case a.less(b):
		return -1
	case b.less(a):
		return 1
	}
	return 0
}

// Entry is a read-only view of one pending command.
type Entry struct {
	Due      gametime.Time
	Category command.Category
	Serial   uint32
	Command  command.Command
}

// ExecFunc runs one command taken from the queue.
type ExecFunc func(c command.Command) error

// Queue holds pending commands in buckets indexed by due time modulo the
// bucket count. Each bucket stays sorted, so the front of the bucket for the
// time being processed is always the next command to run.
//
// Enqueue, Flush, Write and Read are safe to call from any goroutine.
// AdvanceTo must only be called from the simulation goroutine.
type Queue struct {
	mu         sync.Mutex
	buckets    [][]item
	time       gametime.Time
	nextSerial uint32
	pending    int
}

// New creates an empty queue with n buckets (DefaultBuckets if n <= 0).
func New(n int) *Queue {
	if n <= 0 {
		n = DefaultBuckets
	}
	return &Queue{buckets: make([][]item, n)}
}

// Time returns the processed time: every command due before it has run.
func (q *Queue) Time() gametime.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.time
}

// Pending returns the number of commands waiting to run.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// Buckets returns the bucket count.
func (q *Queue) Buckets() int { return len(q.buckets) }

// Enqueue takes ownership of c and schedules it at c.DueTime(). A due time
// before the processed time is rejected and c is not queued.
func (q *Queue) Enqueue(c command.Command) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	due := c.DueTime()
	if due.Before(q.time) {
		return &ScheduleError{Tag: c.Tag(), Due: due, Now: q.time}
	}
	q.insert(item{due: due, category: c.Category(), serial: q.nextSerial, cmd: c})
	q.nextSerial++
	return nil
}

func (q *Queue) bucket(t gametime.Time) *[]item {
	return &q.buckets[uint32(t)%uint32(len(q.buckets))]
}

func (q *Queue) insert(it item) {
	b := q.bucket(it.due)
	i := sort.Search(len(*b), func(i int) bool { return it.less((*b)[i]) })
	*b = slices.Insert(*b, i, it)
	q.pending++
}

// AdvanceTo executes, in order, every command due at or before now, and
// leaves the processed time at now. Commands may enqueue follow-ups while
// they run; a follow-up due at or before now runs in the same call.
//
// The first execution error stops the drain and is returned. The failing
// command is not retried.
func (q *Queue) AdvanceTo(now gametime.Time, exec ExecFunc) error {
	for {
		it, ok := q.pop(now)
		if !ok {
			return nil
		}
		if err := exec(it.cmd); err != nil {
			return fmt.Errorf("execute %s due %s: %w", it.cmd.Tag(), it.due, err)
		}
	}
}

// pop removes the next command due at or before now, moving the processed
// time forward one unit at a time while the current bucket has nothing due.
func (q *Queue) pop(now gametime.Time) (item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if now.Before(q.time) {
		return item{}, false
	}
	for {
		if q.pending == 0 {
			q.time = now
			return item{}, false
		}
		b := q.bucket(q.time)
		if len(*b) > 0 && (*b)[0].due == q.time {
			it := (*b)[0]
			n := copy(*b, (*b)[1:])
			(*b)[n] = item{}
			*b = (*b)[:n]
			q.pending--
			return it, true
		}
		if q.time == now {
			return item{}, false
		}
		q.time++
	}
}

// Flush drops every pending command without running it and returns how many
// were dropped. The processed time and serial counter are kept.
func (q *Queue) Flush() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.flush()
}

func (q *Queue) flush() int {
	n := q.pending
	for i := range q.buckets {
		clear(q.buckets[i])
		q.buckets[i] = q.buckets[i][:0]
	}
	q.pending = 0
	return n
}

// sorted returns all pending items in execution order. Caller holds mu.
func (q *Queue) sorted() []item {
	out := make([]item, 0, q.pending)
	for _, b := range q.buckets {
		out = append(out, b...)
	}
	slices.SortFunc(out, compareItems)
	return out
}

// Entries returns the pending commands in execution order.
func (q *Queue) Entries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.sorted()
	out := make([]Entry, len(items))
	for i, it := range items {
		out[i] = Entry{Due: it.due, Category: it.category, Serial: it.serial, Command: it.cmd}
	}
	return out
}

// Replace moves every pending command, the processed time and the serial
// counter from src into q, leaving src empty.
func (q *Queue) Replace(src *Queue) {
	q.mu.Lock()
	defer q.mu.Unlock()
	src.mu.Lock()
	defer src.mu.Unlock()

	q.flush()
	for _, b := range src.buckets {
		for _, it := range b {
			q.insert(it)
		}
	}
	q.time, q.nextSerial = src.time, src.nextSerial
	src.flush()
}
