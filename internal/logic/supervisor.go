package logic

// Rule maps a bit pattern on one input group to scheduling directives.
// OnSet fires when every bit of Mask is set, OnClear when none are.
// A partial match fires nothing.
type Rule struct {
	Name    string
	Group   Group
	Mask    Sample
	OnSet   Directive
	OnClear Directive
	// Recheck re-samples the group right after OnSet fires; if the mask
	// has cleared by then the opposite directive is issued for the same task.
	Recheck bool
}

// Match returns the directive the rule issues for s.
func (r Rule) Match(s Sample) Directive {
	switch {
	case s.Has(r.Mask):
		return r.OnSet
	case s&r.Mask == 0:
		return r.OnClear
	}
	return Directive{}
}

// Bit masks used by the default rule table.
const (
	BtnPair     Sample = 0b0011
	BtnPriority Sample = 0b0100
	BtnHold     Sample = 0b1000
	SwPair      Sample = 0b0011
	SwHold      Sample = 0b1000
)

// DefaultRules returns the standard table. Rules are evaluated in order and
// the last directive for a task wins, so the priority button is listed after
// the pair it overrides.
func DefaultRules(x, y, z TaskID) []Rule {
	return []Rule{
		{Name: "pair-suspend", Group: GroupButtons, Mask: BtnPair, OnSet: Suspend(x)},
		{Name: "priority-resume", Group: GroupButtons, Mask: BtnPriority, OnSet: Resume(x)},
		{Name: "hold-button", Group: GroupButtons, Mask: BtnHold, OnSet: Suspend(y), OnClear: Resume(y)},
		{Name: "switch-pair", Group: GroupSwitches, Mask: SwPair, OnSet: Suspend(z), OnClear: Resume(z)},
		{Name: "switch-hold", Group: GroupSwitches, Mask: SwHold, OnSet: Suspend(x), Recheck: true},
	}
}

// Supervisor evaluates a rule table against debounced samples.
type Supervisor struct {
	rules []Rule
}

// NewSupervisor creates a Supervisor over rules.
func NewSupervisor(rules []Rule) *Supervisor {
	return &Supervisor{rules: rules}
}

// Rules returns the table in evaluation order.
func (s *Supervisor) Rules() []Rule {
	return s.rules
}

// Evaluate runs every rule for group against sample and returns at most one
// directive per task, in order of first mention. resample may be nil when
// no rule of the group needs a recheck; a resample error skips the recheck.
func (s *Supervisor) Evaluate(group Group, sample Sample, resample func() (Sample, error)) []Directive {
	var order []TaskID
	last := make(map[TaskID]Directive)

	issue := func(d Directive) {
		if d.IsZero() {
			return
		}
		if _, seen := last[d.Task]; !seen {
			order = append(order, d.Task)
		}
		last[d.Task] = d
	}

	for _, r := range s.rules {
		if r.Group != group {
			continue
		}
		d := r.Match(sample)
		issue(d)

		if !r.Recheck || d.IsZero() || d != r.OnSet || resample == nil {
			continue
		}
		again, err := resample()
		if err != nil {
			continue
		}
		if again&r.Mask == 0 {
			issue(opposite(d))
		}
	}

	out := make([]Directive, 0, len(order))
	for _, id := range order {
		out = append(out, last[id])
	}
	return out
}

func opposite(d Directive) Directive {
	switch d.Action {
	case ActionSuspend:
		return Resume(d.Task)
	case ActionResume:
		return Suspend(d.Task)
	}
	return d
}
