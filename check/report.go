package check

import (
	"errors"
	"fmt"
)

// ErrFailed is returned by callers when a report has at least one failed line.
var ErrFailed = errors.New("check: one or more checks failed")

// Kind classifies a line of a step.
type Kind int

const (
	KindInfo Kind = iota
	KindPass
	KindFail
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindPass:
		return "pass"
	case KindFail:
		return "fail"
	default:
		return "info"
	}
}

// Line is a single output line of a step.
type Line struct {
	Kind   Kind
	Label  string
	Value  any
	Indent int
}

// Step is one numbered test within a report.
type Step struct {
	Title string
	Lines []Line
}

// Pass records a successful check.
func (s *Step) Pass(msg string) *Step {
	s.Lines = append(s.Lines, Line{Kind: KindPass, Label: msg})
	return s
}

// Fail records a failed check.
func (s *Step) Fail(msg string) *Step {
	s.Lines = append(s.Lines, Line{Kind: KindFail, Label: msg})
	return s
}

// Info records a label/value pair.
func (s *Step) Info(label string, value any) *Step {
	s.Lines = append(s.Lines, Line{Kind: KindInfo, Label: label, Value: value})
	return s
}

// Detail records an indented label/value pair, printed under the previous line.
func (s *Step) Detail(label string, value any) *Step {
	s.Lines = append(s.Lines, Line{Kind: KindInfo, Label: label, Value: value, Indent: 1})
	return s
}

// Expect records passMsg when cond holds and failMsg otherwise. It returns cond.
func (s *Step) Expect(cond bool, passMsg, failMsg string) bool {
	if cond {
		s.Pass(passMsg)
	} else {
		s.Fail(failMsg)
	}
	return cond
}

// Failed reports whether the step holds a failed line.
func (s *Step) Failed() bool {
	for _, l := range s.Lines {
		if l.Kind == KindFail {
			return true
		}
	}
	return false
}

// Report is the outcome of one probe.
type Report struct {
	// Title is printed as the report header.
	Title string
	// Activity names what was running when Err occurred, e.g.
	// "forward compatibility test".
	Activity string
	Steps    []*Step
	// Err aborts the report. Steps recorded before it are kept.
	Err error
}

// NewReport creates an empty report.
func NewReport(title, activity string) *Report {
	return &Report{Title: title, Activity: activity}
}

// Step appends a new step with the given title.
func (r *Report) Step(title string) *Step {
	s := &Step{Title: title}
	r.Steps = append(r.Steps, s)
	return s
}

// Abort records err on the report and returns it wrapped with the activity.
func (r *Report) Abort(err error) error {
	r.Err = err
	if r.Activity == "" {
		return err
	}
	return fmt.Errorf("%s: %w", r.Activity, err)
}

// Passed reports whether no step failed and no error was recorded.
func (r *Report) Passed() bool {
	return r.Err == nil && len(r.Failures()) == 0
}

// Failures returns the failed lines across all steps, as "step: message".
func (r *Report) Failures() []string {
	var out []string
	for _, s := range r.Steps {
		for _, l := range s.Lines {
			if l.Kind == KindFail {
				out = append(out, s.Title+": "+l.Label)
			}
		}
	}
	return out
}

// Err returns ErrFailed when any report did not pass, joined with the
// reports' own errors.
func Err(reports ...*Report) error {
	var errs []error
	failed := false
	for _, r := range reports {
		if r == nil {
			continue
		}
		if !r.Passed() {
			failed = true
		}
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	if !failed {
		return nil
	}
	return errors.Join(append([]error{ErrFailed}, errs...)...)
}
