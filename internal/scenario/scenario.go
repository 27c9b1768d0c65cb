// Package scenario runs end-to-end scenarios: ordered steps sharing state,
// with retries, tolerated failures, setup and teardown. Results come back as
// a Report so both tests and the command line runner can consume them.
package scenario

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a scenario without its own timeout.
const DefaultTimeout = 5 * time.Minute

// Scenario represents an end-to-end test scenario.
type Scenario struct {
	Name        string
	Description string
	Steps       []Step
	Setup       func(ctx context.Context, state *State) error
	Teardown    func(ctx context.Context, state *State) error
	Timeout     time.Duration
}

// Step represents a single step in a scenario.
type Step struct {
	Name        string
	Action      func(ctx context.Context, state *State) error
	Validate    func(ctx context.Context, state *State) error
	OnError     func(ctx context.Context, state *State, err error)
	RetryCount  int
	RetryDelay  time.Duration
	SkipOnError bool
}

// Runner executes scenarios.
type Runner struct {
	// KeepGoing runs the remaining steps after a failed one instead of
	// stopping the scenario.
	KeepGoing bool

	logger *zap.Logger
	state  *State
}

// NewRunner creates a scenario runner.
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, state: NewState()}
}

// State returns the runner's state.
func (r *Runner) State() *State {
	return r.state
}

// Run executes a scenario and reports every step. Setup failures skip the
// steps; teardown always runs.
func (r *Runner) Run(ctx context.Context, sc Scenario) *Report {
	timeout := sc.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log := r.logger.With(zap.String("scenario", sc.Name))
	log.Info("running scenario", zap.String("description", sc.Description), zap.Int("steps", len(sc.Steps)))

	report := &Report{Scenario: sc.Name}
	start := time.Now()
	defer func() { report.Duration = time.Since(start) }()

	if sc.Teardown != nil {
		defer func() {
			if err := sc.Teardown(ctx, r.state); err != nil {
				report.TeardownErr = fmt.Errorf("teardown: %w", err)
				log.Warn("scenario teardown failed", zap.Error(err))
			}
		}()
	}

	if sc.Setup != nil {
		if err := sc.Setup(ctx, r.state); err != nil {
			report.SetupErr = fmt.Errorf("setup: %w", err)
			log.Error("scenario setup failed", zap.Error(err))
			report.skipRemaining(sc.Steps)
			return report
		}
	}

	for i, step := range sc.Steps {
		res := r.executeStep(ctx, step)
		report.Steps = append(report.Steps, res)

		fields := []zap.Field{
			zap.Int("step", i+1),
			zap.String("name", step.Name),
			zap.Stringer("status", res.Status),
			zap.Int("attempts", res.Attempts),
			zap.Duration("duration", res.Duration),
		}
		switch res.Status {
		case StatusPassed:
			log.Debug("step passed", fields...)
			continue
		case StatusTolerated:
			log.Warn("step failed, continuing", append(fields, zap.Error(res.Err))...)
			continue
		}

		if step.OnError != nil {
			step.OnError(ctx, r.state, res.Err)
		}
		log.Error("step failed", append(fields, zap.Error(res.Err))...)

		if !r.KeepGoing || ctx.Err() != nil {
			report.skipRemaining(sc.Steps[i+1:])
			break
		}
	}

	if report.Passed() {
		log.Info("scenario passed")
	} else {
		log.Error("scenario failed", zap.Int("failed", len(report.Failed())))
	}
	return report
}

// RunAll executes scenarios in order, sharing the runner's state.
func (r *Runner) RunAll(ctx context.Context, scenarios ...Scenario) []*Report {
	reports := make([]*Report, 0, len(scenarios))
	for _, sc := range scenarios {
		reports = append(reports, r.Run(ctx, sc))
	}
	return reports
}

// executeStep runs a single step with retries.
func (r *Runner) executeStep(ctx context.Context, step Step) (res StepResult) {
	res.Name = step.Name
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	attempts := step.RetryCount + 1
	for i := 0; i < attempts; i++ {
		if i > 0 && step.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				res.Err = fmt.Errorf("%w (last error: %w)", ctx.Err(), res.Err)
				res.Status = StatusFailed
				return res
			case <-time.After(step.RetryDelay):
			}
		}
		res.Attempts++

		if step.Action != nil {
			if err := step.Action(ctx, r.state); err != nil {
				res.Err = fmt.Errorf("action failed: %w", err)
				continue
			}
		}

		if step.Validate != nil {
			if err := step.Validate(ctx, r.state); err != nil {
				res.Err = fmt.Errorf("validation failed: %w", err)
				continue
			}
		}

		res.Err = nil
		res.Status = StatusPassed
		return res
	}

	res.Status = StatusFailed
	if step.SkipOnError {
		res.Status = StatusTolerated
	}
	return res
}
