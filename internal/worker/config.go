package worker

import (
	"fmt"
	"time"
)

// Config tunes the background job worker.
type Config struct {
	// Concurrency is the number of goroutines polling the queue. Each one
	// claims and runs jobs independently.
	Concurrency int

	// PollInterval is how long an idle goroutine waits between queue checks.
	PollInterval time.Duration

	// JobTimeout caps a single execution. The handler's context is
	// canceled at the deadline and the attempt counts as a failure.
	// Translation jobs call an external AI service, so this should leave
	// headroom for a slow upstream, not just local work.
	JobTimeout time.Duration

	// ShutdownTimeout is how long Stop waits for in-flight jobs before
	// giving up on them. Abandoned jobs are picked up later by stale
	// recovery.
	ShutdownTimeout time.Duration

	// StaleJobThreshold is the age at which a 'running' job is assumed to
	// belong to a crashed process and is reset to pending at startup.
	StaleJobThreshold time.Duration
}

// DefaultConfig returns the settings used outside of tests. Callers
// typically take this and override Concurrency and the timeouts from the
// environment.
func DefaultConfig() Config {
	return Config{
		Concurrency:       2,
		PollInterval:      5 * time.Second,
		JobTimeout:        5 * time.Minute,
		ShutdownTimeout:   30 * time.Second,
		StaleJobThreshold: 10 * time.Minute,
	}
}

// Validate rejects configurations that would stall or overload the queue.
func (c Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Concurrency > 100 {
		return fmt.Errorf("concurrency too high (max 100), got %d", c.Concurrency)
	}
	if c.PollInterval < 1*time.Second {
		return fmt.Errorf("poll interval must be at least 1 second, got %v", c.PollInterval)
	}
	if c.JobTimeout < 1*time.Second {
		return fmt.Errorf("job timeout must be at least 1 second, got %v", c.JobTimeout)
	}
	if c.ShutdownTimeout < 1*time.Second {
		return fmt.Errorf("shutdown timeout must be at least 1 second, got %v", c.ShutdownTimeout)
	}
	if c.StaleJobThreshold < 1*time.Minute {
		return fmt.Errorf("stale job threshold must be at least 1 minute, got %v", c.StaleJobThreshold)
	}
	return nil
}
