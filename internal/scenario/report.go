package scenario

import (
	"errors"
	"fmt"
	"time"
)

// Status is the outcome of one step.
type Status int

const (
	StatusPassed Status = iota
	StatusFailed
	// StatusTolerated marks a failed step with SkipOnError set.
	StatusTolerated
	// StatusNotRun marks steps after a fatal failure.
	StatusNotRun
)

func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusTolerated:
		return "tolerated"
	case StatusNotRun:
		return "not run"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// StepResult is the outcome of one step.
type StepResult struct {
	Name     string
	Status   Status
	Attempts int
	Duration time.Duration
	Err      error
}

// Report is the outcome of one scenario run.
type Report struct {
	Scenario    string
	Steps       []StepResult
	SetupErr    error
	TeardownErr error
	Duration    time.Duration
}

func (r *Report) skipRemaining(steps []Step) {
	for _, s := range steps {
		r.Steps = append(r.Steps, StepResult{Name: s.Name, Status: StatusNotRun})
	}
}

// Passed reports whether setup succeeded and no step failed. Teardown
// errors and tolerated failures do not fail a scenario.
func (r *Report) Passed() bool {
	if r.SetupErr != nil {
		return false
	}
	for _, s := range r.Steps {
		if s.Status == StatusFailed || s.Status == StatusNotRun {
			return false
		}
	}
	return true
}

// Failed returns the failed steps.
func (r *Report) Failed() []StepResult {
	var failed []StepResult
	for _, s := range r.Steps {
		if s.Status == StatusFailed {
			failed = append(failed, s)
		}
	}
	return failed
}

// Err joins the setup, step and teardown errors, or returns nil.
func (r *Report) Err() error {
	errs := []error{r.SetupErr}
	for _, s := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %s: %w", r.Scenario, s.Name, s.Err))
	}
	errs = append(errs, r.TeardownErr)
	return errors.Join(errs...)
}

// Count returns how many steps ended with status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == status {
			n++
		}
	}
	return n
}
