package domain

import "math/rand/v2"

// Queue holds the pending tracks of a player and the track most recently taken from it.
// Consumption is FIFO; appends preserve argument order.
type Queue struct {
	pending []Track
	current *Track
	rng     *rand.Rand
}

// NewQueue creates a new empty Queue shuffling with the global random source.
func NewQueue() Queue {
	return Queue{
		pending: make([]Track, 0),
	}
}

// NewQueueWithRand creates a new empty Queue shuffling with the given random source.
func NewQueueWithRand(rng *rand.Rand) Queue {
	q := NewQueue()
	q.rng = rng
	return q
}

// Len returns the number of pending tracks.
func (q *Queue) Len() int {
	return len(q.pending)
}

// IsEmpty returns true if there are no pending tracks.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Current returns a copy of the most recently dequeued track, or nil if there is none.
func (q *Queue) Current() *Track {
	if q.current == nil {
		return nil
	}
	current := *q.current
	return &current
}

// Add appends tracks to the tail of the queue.
func (q *Queue) Add(tracks ...Track) {
	q.pending = append(q.pending, tracks...)
}

// Next removes the head of the queue and makes it the current track.
// Returns false, leaving current untouched, when the queue is empty.
func (q *Queue) Next() (Track, bool) {
	if q.IsEmpty() {
		return Track{}, false
	}

	track := q.pending[0]
	q.pending[0] = Track{}
	q.pending = q.pending[1:]
	q.current = &track

	return track, true
}

// Shuffle permutes the pending tracks uniformly at random (Fisher-Yates).
// The current track is not affected.
func (q *Queue) Shuffle() {
	for i := len(q.pending) - 1; i > 0; i-- {
		j := q.intN(i + 1)
		q.pending[i], q.pending[j] = q.pending[j], q.pending[i]
	}
}

func (q *Queue) intN(n int) int {
	if q.rng != nil {
		return q.rng.IntN(n)
	}
	return rand.IntN(n)
}

// Empty removes all pending tracks and clears the current track.
func (q *Queue) Empty() {
	q.pending = make([]Track, 0)
	q.current = nil
}

// Peek returns a copy of the first min(n, Len()) pending tracks.
func (q *Queue) Peek(n int) []Track {
	n = max(0, min(n, q.Len()))
	result := make([]Track, n)
	copy(result, q.pending[:n])
	return result
}
