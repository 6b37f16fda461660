package logic

import (
	"fmt"
	"time"
)

// Policy decides which settled samples a Debouncer confirms.
type Policy int

const (
	// AcceptNonZero confirms nonzero changes only. A settled zero becomes
	// the new baseline without being reported, so the next press of the
	// same button is seen as a change.
	AcceptNonZero Policy = iota
	// AcceptAll confirms every settled change, including zero.
	AcceptAll
	// HoldWhileAllPressed never confirms the all-pressed pattern; the
	// filter keeps settling until the input is released.
	HoldWhileAllPressed
)

func (p Policy) String() string {
	switch p {
	case AcceptNonZero:
		return "nonzero"
	case AcceptAll:
		return "all"
	case HoldWhileAllPressed:
		return "hold"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy maps a flag value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "nonzero":
		return AcceptNonZero, nil
	case "all":
		return AcceptAll, nil
	case "hold":
		return HoldWhileAllPressed, nil
	}
	return 0, fmt.Errorf("unknown debounce policy %q", s)
}

// DebounceState is the phase of a Debouncer.
type DebounceState int

const (
	DebounceIdle DebounceState = iota
	DebounceSettling
)

// Debouncer is a per-producer filter that confirms a sample only after it
// has been seen twice, at least settle apart, without changing in between.
type Debouncer struct {
	settle time.Duration
	policy Policy
	full   Sample

	state        DebounceState
	accepted     Sample
	pending      Sample
	pendingSince time.Time
	rejected     int
}

// NewDebouncer creates a filter with a zero baseline. full is the
// all-pressed pattern used by HoldWhileAllPressed.
func NewDebouncer(settle time.Duration, policy Policy, full Sample) *Debouncer {
	return &Debouncer{
		settle: settle,
		policy: policy,
		full:   full,
	}
}

// Observe feeds one raw sample taken at now. It returns the confirmed value
// and true when a change has settled and passes the policy.
func (d *Debouncer) Observe(raw Sample, now time.Time) (Sample, bool) {
	switch d.state {
	case DebounceIdle:
		if raw == d.accepted {
			return 0, false
		}
		d.startSettling(raw, now)
		return 0, false

	case DebounceSettling:
		if raw != d.pending {
			// Still bouncing: drop the change and poll again from the
			// accepted baseline.
			d.state = DebounceIdle
			d.rejected++
			return 0, false
		}
		if d.policy == HoldWhileAllPressed && raw == d.full {
			d.pendingSince = now
			return 0, false
		}
		if now.Sub(d.pendingSince) < d.settle {
			return 0, false
		}
		return d.confirm(raw)
	}
	return 0, false
}

func (d *Debouncer) startSettling(raw Sample, now time.Time) {
	d.state = DebounceSettling
	d.pending = raw
	d.pendingSince = now
}

func (d *Debouncer) confirm(raw Sample) (Sample, bool) {
	d.state = DebounceIdle
	d.accepted = raw
	if raw == 0 && d.policy == AcceptNonZero {
		return 0, false
	}
	return raw, true
}

// State returns the current phase.
func (d *Debouncer) State() DebounceState {
	return d.state
}

// Accepted returns the last accepted sample.
func (d *Debouncer) Accepted() Sample {
	return d.accepted
}

// Rejected returns how many pending changes were dropped as bounces.
func (d *Debouncer) Rejected() int {
	return d.rejected
}

// Reset sets a new baseline without reporting it.
func (d *Debouncer) Reset(baseline Sample) {
	d.state = DebounceIdle
	d.accepted = baseline
	d.pending = 0
}
