// Package events fans translation job progress out to API and CLI followers.
//
// Each job gets a bounded in-memory stream. Followers poll with a cursor and
// may block until new events arrive; once a terminal event is published the
// stream is marked finished so followers know to stop.
package events

import (
	"context"
	"sync"
	"time"
)

// Event types mirrored from the worker's stream, plus the synthetic done
// frame the relay emits after the result fetch settles.
const (
	TypeProgress = "progress"
	TypeError    = "error"
	TypeDone     = "done"
)

// Event is one frame of a job's progress stream.
type Event struct {
	Sequence   uint64    `json:"seq"`
	Timestamp  time.Time `json:"ts"`
	JobID      string    `json:"job_id"`
	Type       string    `json:"type"`
	Pct        float64   `json:"pct"`
	Stage      string    `json:"stage,omitempty"`
	Message    string    `json:"message,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OK         bool      `json:"ok"`
	OutputFile string    `json:"output_file,omitempty"`
}

// Terminal reports whether the event ends its job's stream.
func (e Event) Terminal() bool {
	return e.Type == TypeDone
}

type jobStream struct {
	buffer   []Event
	nextSeq  uint64
	finished bool
}

// Hub stores recent events per job and wakes waiters on publish.
type Hub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	jobs     map[string]*jobStream
}

// NewHub constructs a hub with the given per-job buffer capacity.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 256
	}
	h := &Hub{capacity: capacity, jobs: make(map[string]*jobStream)}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Publish appends an event to its job's stream and returns the stored copy.
// Events published after a terminal event are dropped.
func (h *Hub) Publish(evt Event) Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	stream := h.jobs[evt.JobID]
	if stream == nil {
		stream = &jobStream{}
		h.jobs[evt.JobID] = stream
	}
	if stream.finished {
		return evt
	}

	stream.nextSeq++
	evt.Sequence = stream.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(stream.buffer) == h.capacity {
		copy(stream.buffer, stream.buffer[1:])
		stream.buffer = stream.buffer[:h.capacity-1]
	}
	stream.buffer = append(stream.buffer, evt)
	if evt.Terminal() {
		stream.finished = true
	}
	h.cond.Broadcast()
	return evt
}

// Fetch returns the job's events with sequence greater than since, plus
// whether the stream is finished. When wait is true and no events are
// buffered past the cursor, Fetch blocks until one arrives, the stream
// finishes, or the context ends.
func (h *Hub) Fetch(ctx context.Context, jobID string, since uint64, limit int, wait bool) ([]Event, bool, error) {
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	cancelWait := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.cond.Broadcast()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		events, finished := h.snapshotLocked(jobID, since, limit)
		if len(events) > 0 || finished || !wait {
			return events, finished, ctxErr(ctx)
		}
		if err := ctxErr(ctx); err != nil {
			return nil, false, err
		}
		h.cond.Wait()
		if err := ctxErr(ctx); err != nil {
			return nil, false, err
		}
	}
}

// Finished reports whether the job's stream has seen its terminal event.
func (h *Hub) Finished(jobID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	stream := h.jobs[jobID]
	return stream != nil && stream.finished
}

// Forget discards a job's stream, typically when history is cleared.
func (h *Hub) Forget(jobID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.jobs, jobID)
	h.cond.Broadcast()
}

func (h *Hub) snapshotLocked(jobID string, since uint64, limit int) ([]Event, bool) {
	stream := h.jobs[jobID]
	if stream == nil {
		return nil, false
	}
	if len(stream.buffer) == 0 {
		return nil, stream.finished
	}
	startIdx := -1
	for i, evt := range stream.buffer {
		if evt.Sequence > since {
			startIdx = i
			break
		}
	}
	if startIdx < 0 {
		return nil, stream.finished
	}
	end := startIdx + limit
	if end > len(stream.buffer) {
		end = len(stream.buffer)
	}
	out := make([]Event, end-startIdx)
	copy(out, stream.buffer[startIdx:end])
	return out, stream.finished
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
