// Package logic contains the pure core of the task panel: sample and event
// types, the nibble codec, debounce, the LED merge rule, the supervisor rule
// table and the watchdog verdict.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

// Sample is the instantaneous state of one input or output port.
type Sample uint8

// NibbleMask selects the low four bits of a Sample.
const NibbleMask Sample = 0x0F

// Has reports whether every bit in mask is set.
func (s Sample) Has(mask Sample) bool {
	return s&mask == mask
}

// Group names an input port observed by the supervisor.
type Group string

const (
	GroupButtons  Group = "buttons"
	GroupSwitches Group = "switches"
)

// TaskID names a schedulable task.
type TaskID string

// Action is a scheduling directive kind.
type Action string

const (
	ActionNone    Action = ""
	ActionSuspend Action = "SUSPEND"
	ActionResume  Action = "RESUME"
)

// Directive asks the scheduler to suspend or resume a task.
type Directive struct {
	Action Action
	Task   TaskID
}

// Suspend returns a suspend directive for id.
func Suspend(id TaskID) Directive { return Directive{Action: ActionSuspend, Task: id} }

// Resume returns a resume directive for id.
func Resume(id TaskID) Directive { return Directive{Action: ActionResume, Task: id} }

// IsZero reports whether d carries no action.
func (d Directive) IsZero() bool {
	return d.Action == ActionNone
}

func (d Directive) String() string {
	if d.IsZero() {
		return "NONE"
	}
	return string(d.Action) + " " + string(d.Task)
}

// Verdict is the outcome of the liveness checkpoint.
type Verdict string

const (
	VerdictPending Verdict = ""
	VerdictPass    Verdict = "PASS"
	VerdictFail    Verdict = "FAIL"
)

// CheckProgress compares the consumer's progress count against threshold.
func CheckProgress(count, threshold uint64) Verdict {
	if count >= threshold {
		return VerdictPass
	}
	return VerdictFail
}
