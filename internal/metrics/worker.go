package metrics

import "time"

// JobStarted marks a job as executing. Every call must be paired with
// exactly one of JobCompleted, JobFailed, or JobRetried so the in-flight
// gauge stays balanced.
func JobStarted(jobType string) {
	JobsInFlight.Inc()
}

// JobCompleted records a successful run and its execution time.
func JobCompleted(jobType string, duration time.Duration) {
	JobsInFlight.Dec()
	JobsTotal.WithLabelValues(jobType, "completed").Inc()
	JobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// JobFailed records a terminal failure: a permanent error or the last
// allowed attempt.
func JobFailed(jobType string) {
	JobsInFlight.Dec()
	JobsTotal.WithLabelValues(jobType, "failed").Inc()
}

// JobRetried records a failed attempt that will be rescheduled.
func JobRetried(jobType string) {
	JobsInFlight.Dec()
	JobRetriesTotal.WithLabelValues(jobType).Inc()
}
