// Package imuintegrator turns a buffered stream of IMU angular-velocity
// samples into the small rotations used to seed KLT tracking between
// consecutive stereo frames.
package imuintegrator

import (
	"sync"

	"github.com/golang/geo/r3"
)

// Sample is a single timestamped gyroscope reading. Timestamp is in seconds.
type Sample struct {
	Timestamp       float64
	AngularVelocity r3.Vector
}

// Queue is a FIFO buffer of IMU samples awaiting consumption by Integrate.
// It is safe for concurrent use: the orchestrator's IMU callback appends
// while the processing loop drains under the same mutex.
type Queue struct {
	mu      sync.Mutex
	samples []Sample
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends a sample to the tail of the queue.
func (q *Queue) Push(s Sample) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.samples = append(q.samples, s)
}

// Snapshot returns a copy of the buffered samples without draining them.
func (q *Queue) Snapshot() []Sample {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Sample, len(q.samples))
	copy(out, q.samples)
	return out
}

// DropBefore discards every sample whose index is < n from the head of the
// queue.
func (q *Queue) DropBefore(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n <= 0 {
		return
	}
	if n >= len(q.samples) {
		q.samples = q.samples[:0]
		return
	}
	q.samples = append(q.samples[:0], q.samples[n:]...)
}

// Len reports the number of buffered samples.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.samples)
}
