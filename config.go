package studentetl

import "time"

// Default configuration values.
const (
	DefaultRetries    = 1
	DefaultRetryDelay = 5 * time.Minute
)

// Retries controls how many times a failed run is started again. Implement
// this interface to set the count from the job struct rather than the
// pipeline builder.
//
// The value can be overridden at runtime via WithRetries, which takes
// precedence. If neither is set, DefaultRetries (1) is used, so a run makes
// at most two attempts.
//
// Example:
//
//	func (j *MyJob) Retries() int { return 3 }
type Retries interface {
	Retries() int
}

// RetryDelay controls the fixed wait between a failed attempt and the next
// one.
//
// The value can be overridden at runtime via WithRetryDelay, which takes
// precedence. If neither is set, DefaultRetryDelay (5 minutes) is used.
//
// The wait is cut short when the run context is cancelled.
//
// Example:
//
//	func (j *MyJob) RetryDelay() time.Duration { return 30 * time.Second }
type RetryDelay interface {
	RetryDelay() time.Duration
}

// resolveRetries returns the effective retry count.
// Priority: WithRetries > Retries interface > DefaultRetries.
func (p *Pipeline[D, T, R]) resolveRetries() int {
	if p.retryCount != nil {
		return *p.retryCount
	}
	if p.retriesIface != nil {
		if n := p.retriesIface.Retries(); n >= 0 {
			return n
		}
	}
	return DefaultRetries
}

// resolveRetryDelay returns the effective delay between attempts.
// Priority: WithRetryDelay > RetryDelay interface > DefaultRetryDelay.
func (p *Pipeline[D, T, R]) resolveRetryDelay() time.Duration {
	if p.retryDelay != nil {
		return *p.retryDelay
	}
	if p.retryDelayIface != nil {
		if d := p.retryDelayIface.RetryDelay(); d >= 0 {
			return d
		}
	}
	return DefaultRetryDelay
}
