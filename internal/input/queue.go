package input

import (
	"context"
	"errors"
)

// ErrQueueFull is returned by TryPush when the queue has no free slot.
var ErrQueueFull = errors.New("input queue full")

// Event is a single key transition delivered by an input source.
type Event struct {
	Key  Key
	Down bool
}

// Queue carries key events from input sources (any goroutine) to the
// simulation goroutine. A full queue blocks the producer; events are never
// dropped.
type Queue struct {
	ch chan Event
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 64
	}
	return &Queue{ch: make(chan Event, size)}
}

// Push waits for room in the queue or for ctx to end.
func (q *Queue) Push(ctx context.Context, ev Event) error {
	select {
	case q.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPush enqueues without waiting. Used from the simulation goroutine
// itself, where waiting on the consumer would deadlock.
func (q *Queue) TryPush(ev Event) error {
	select {
	case q.ch <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Drain applies every queued event to s in arrival order and returns how
// many were applied.
func (q *Queue) Drain(s *State) int {
	n := 0
	for {
		select {
		case ev := <-q.ch:
			s.Apply(ev)
			n++
		default:
			return n
		}
	}
}
