package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrQueueFull is returned when the in-memory queue has no free slot
	ErrQueueFull = errors.New("job queue is full")

	// ErrPoolStopped is returned when enqueueing after shutdown started
	ErrPoolStopped = errors.New("worker pool is stopped")
)
