// Package queue holds media deletions that failed so callers can retry them
// later with exponential backoff.
package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultMaxAttempts = 5

type Job struct {
	ID          string
	Ref         string
	RetryAt     time.Time
	Attempts    int
	MaxAttempts int
}

// Handler performs one attempt of a job.
type Handler func(ctx context.Context, ref string) error

type Queue struct {
	items   []*Job
	mu      sync.Mutex
	backoff time.Duration
	now     func() time.Time
}

func NewQueue(backoff time.Duration) *Queue {
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Queue{
		items:   make([]*Job, 0),
		backoff: backoff,
		now:     time.Now,
	}
}

// Enqueue schedules ref for deletion after the first backoff interval.
func (q *Queue) Enqueue(ref string, maxAttempts int) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	q.push(&Job{
		ID:          uuid.NewString(),
		Ref:         ref,
		RetryAt:     q.now().Add(q.backoff),
		MaxAttempts: maxAttempts,
	})
}

func (q *Queue) push(job *Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, job)
}

// Dequeue removes and returns the first job that is due, or nil.
func (q *Queue) Dequeue() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	for i, job := range q.items {
		if !job.RetryAt.After(now) {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return job
		}
	}
	return nil
}

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pending returns a snapshot of queued jobs.
func (q *Queue) Pending() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := make([]Job, len(q.items))
	for i, job := range q.items {
		result[i] = *job
	}
	return result
}

// Drain runs every due job once. Failed jobs are rescheduled with doubled
// backoff until they reach MaxAttempts, then dropped. It returns the number
// of jobs that succeeded.
func (q *Queue) Drain(ctx context.Context, handle Handler) int {
	done := 0
	var retry []*Job
	for {
		job := q.Dequeue()
		if job == nil {
			break
		}
		job.Attempts++
		err := handle(ctx, job.Ref)
		if err == nil {
			done++
			continue
		}
		if job.Attempts >= job.MaxAttempts {
			slog.Error("giving up on media deletion", "ref", job.Ref, "attempts", job.Attempts, "err", err)
			continue
		}
		job.RetryAt = q.now().Add(q.backoff << job.Attempts)
		retry = append(retry, job)
	}
	for _, job := range retry {
		q.push(job)
	}
	return done
}
