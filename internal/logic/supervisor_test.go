package logic

import (
	"errors"
	"reflect"
	"testing"
)

const (
	taskX TaskID = "display"
	taskY TaskID = "switches"
	taskZ TaskID = "buttons"
)

func newDefaultSupervisor() *Supervisor {
	return NewSupervisor(DefaultRules(taskX, taskY, taskZ))
}

func TestSupervisorButtons(t *testing.T) {
	tests := []struct {
		name   string
		sample Sample
		want   []Directive
	}{
		{"nothing pressed", 0b0000, []Directive{Resume(taskY)}},
		{"pair suspends X", 0b0011, []Directive{Suspend(taskX), Resume(taskY)}},
		{"half pair does nothing to X", 0b0001, []Directive{Resume(taskY)}},
		{"priority resumes X", 0b0100, []Directive{Resume(taskX), Resume(taskY)}},
		{"priority overrides pair", 0b0111, []Directive{Resume(taskX), Resume(taskY)}},
		{"hold button suspends Y", 0b1000, []Directive{Suspend(taskY)}},
		{"pair and hold", 0b1011, []Directive{Suspend(taskX), Suspend(taskY)}},
	}

	s := newDefaultSupervisor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Evaluate(GroupButtons, tt.sample, nil)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Evaluate(%04b) = %v, want %v", tt.sample, got, tt.want)
			}
		})
	}
}

func TestSupervisorSwitchPair(t *testing.T) {
	s := newDefaultSupervisor()

	got := s.Evaluate(GroupSwitches, 0b0011, nil)
	want := []Directive{Suspend(taskZ)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("both set: got %v, want %v", got, want)
	}

	got = s.Evaluate(GroupSwitches, 0b0000, nil)
	want = []Directive{Resume(taskZ)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("both clear: got %v, want %v", got, want)
	}

	got = s.Evaluate(GroupSwitches, 0b0001, nil)
	if len(got) != 0 {
		t.Errorf("one set: expected no directives, got %v", got)
	}
}

func TestSupervisorRecheckStillSet(t *testing.T) {
	s := newDefaultSupervisor()
	calls := 0
	resample := func() (Sample, error) {
		calls++
		return 0b1000, nil
	}

	got := s.Evaluate(GroupSwitches, 0b1000, resample)
	want := []Directive{Resume(taskZ), Suspend(taskX)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if calls != 1 {
		t.Errorf("expected 1 resample, got %d", calls)
	}
}

func TestSupervisorRecheckCleared(t *testing.T) {
	s := newDefaultSupervisor()
	resample := func() (Sample, error) { return 0b0000, nil }

	got := s.Evaluate(GroupSwitches, 0b1000, resample)
	want := []Directive{Resume(taskZ), Resume(taskX)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSupervisorRecheckError(t *testing.T) {
	s := newDefaultSupervisor()
	resample := func() (Sample, error) { return 0, errors.New("read failed") }

	got := s.Evaluate(GroupSwitches, 0b1000, resample)
	want := []Directive{Resume(taskZ), Suspend(taskX)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSupervisorNoRecheckWithoutMatch(t *testing.T) {
	s := newDefaultSupervisor()
	resample := func() (Sample, error) {
		t.Fatal("resample called without a matching recheck rule")
		return 0, nil
	}
	s.Evaluate(GroupSwitches, 0b0011, resample)
	s.Evaluate(GroupButtons, 0b1111, resample)
}

func TestRuleMatch(t *testing.T) {
	r := Rule{Mask: 0b0110, OnSet: Suspend("a"), OnClear: Resume("a")}
	if d := r.Match(0b1110); d != Suspend("a") {
		t.Errorf("all set: got %v", d)
	}
	if d := r.Match(0b1001); d != Resume("a") {
		t.Errorf("none set: got %v", d)
	}
	if d := r.Match(0b0100); !d.IsZero() {
		t.Errorf("partial: got %v", d)
	}
}

func TestDirectiveString(t *testing.T) {
	if got := Suspend("display").String(); got != "SUSPEND display" {
		t.Errorf("unexpected: %s", got)
	}
	if got := (Directive{}).String(); got != "NONE" {
		t.Errorf("unexpected: %s", got)
	}
}

func TestCheckProgress(t *testing.T) {
	tests := []struct {
		count, threshold uint64
		want             Verdict
	}{
		{10, 9, VerdictPass},
		{9, 9, VerdictPass},
		{3, 9, VerdictFail},
		{0, 0, VerdictPass},
	}
	for _, tt := range tests {
		if got := CheckProgress(tt.count, tt.threshold); got != tt.want {
			t.Errorf("CheckProgress(%d, %d) = %s, want %s", tt.count, tt.threshold, got, tt.want)
		}
	}
}
