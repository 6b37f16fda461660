// Package tasks holds the cooperating task bodies: the input producers, the
// LED display consumer, the supervisor that suspends and resumes its peers,
// and the one-shot liveness watchdog.
package tasks

import "sync/atomic"

// Counter is the consumer progress counter. The display task is its only
// writer and the watchdog its only reader.
type Counter struct {
	n atomic.Uint64
}

// Inc adds one and returns the new count.
func (c *Counter) Inc() uint64 {
	return c.n.Add(1)
}

// Load returns the current count.
func (c *Counter) Load() uint64 {
	return c.n.Load()
}
