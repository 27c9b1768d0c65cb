package scenario

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestState(t *testing.T) {
	state := NewState()
	state.Set("str", "hello")
	state.Set("num", 42)

	assert.Equal(t, "hello", state.GetString("str"))
	assert.Equal(t, "", state.GetString("num"))
	assert.Equal(t, 42, state.GetInt("num"))
	assert.Equal(t, 0, state.GetInt("missing"))

	n, ok := Lookup[int](state, "num")
	assert.True(t, ok)
	assert.Equal(t, 42, n)
	_, ok = Lookup[int](state, "str")
	assert.False(t, ok)

	state.Delete("str")
	_, ok = state.Get("str")
	assert.False(t, ok)

	assert.Panics(t, func() { state.MustGet("missing") })
}

func TestRunner_StepsShareState(t *testing.T) {
	runner := NewRunner(zap.NewNop())
	var order []string

	report := runner.Run(context.Background(), Scenario{
		Name: "share",
		Setup: func(ctx context.Context, s *State) error {
			order = append(order, "setup")
			return nil
		},
		Teardown: func(ctx context.Context, s *State) error {
			order = append(order, "teardown")
			return nil
		},
		Steps: []Step{
			{Name: "create", Action: func(ctx context.Context, s *State) error {
				order = append(order, "create")
				s.Set("id", 7)
				return nil
			}},
			{Name: "read", Validate: func(ctx context.Context, s *State) error {
				order = append(order, "read")
				if s.GetInt("id") != 7 {
					return errors.New("id not shared")
				}
				return nil
			}},
		},
	})

	require.NoError(t, report.Err())
	assert.True(t, report.Passed())
	assert.Equal(t, 2, report.Count(StatusPassed))
	assert.Equal(t, []string{"setup", "create", "read", "teardown"}, order)
}

func TestRunner_Retries(t *testing.T) {
	runner := NewRunner(zap.NewNop())
	calls := 0

	report := runner.Run(context.Background(), Scenario{
		Name: "retry",
		Steps: []Step{{
			Name:       "flaky",
			RetryCount: 2,
			RetryDelay: time.Millisecond,
			Action: func(ctx context.Context, s *State) error {
				calls++
				if calls < 3 {
					return errors.New("not yet")
				}
				return nil
			},
		}},
	})

	require.True(t, report.Passed())
	assert.Equal(t, 3, report.Steps[0].Attempts)
}

func TestRunner_FailureStopsScenario(t *testing.T) {
	runner := NewRunner(zap.NewNop())
	var handled error

	report := runner.Run(context.Background(), Scenario{
		Name: "stop",
		Steps: []Step{
			{Name: "optional", SkipOnError: true, Action: func(ctx context.Context, s *State) error {
				return errors.New("ignored")
			}},
			{Name: "broken", Validate: func(ctx context.Context, s *State) error {
				return errors.New("boom")
			}, OnError: func(ctx context.Context, s *State, err error) { handled = err }},
			{Name: "never", Action: func(ctx context.Context, s *State) error {
				t.Error("step after failure must not run")
				return nil
			}},
		},
	})

	assert.False(t, report.Passed())
	require.Len(t, report.Steps, 3)
	assert.Equal(t, StatusTolerated, report.Steps[0].Status)
	assert.Equal(t, StatusFailed, report.Steps[1].Status)
	assert.Equal(t, StatusNotRun, report.Steps[2].Status)
	assert.ErrorContains(t, handled, "boom")

	err := report.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop: broken: validation failed: boom")
	assert.NotContains(t, err.Error(), "ignored")
}

func TestRunner_KeepGoing(t *testing.T) {
	runner := NewRunner(zap.NewNop())
	runner.KeepGoing = true
	ran := false

	report := runner.Run(context.Background(), Scenario{
		Name: "keep going",
		Steps: []Step{
			{Name: "broken", Action: func(ctx context.Context, s *State) error { return errors.New("boom") }},
			{Name: "next", Action: func(ctx context.Context, s *State) error { ran = true; return nil }},
		},
	})

	assert.True(t, ran)
	assert.False(t, report.Passed())
	assert.Len(t, report.Failed(), 1)
	assert.Equal(t, 1, report.Count(StatusPassed))
}

func TestRunner_SetupAndTeardownErrors(t *testing.T) {
	runner := NewRunner(nil)
	teardown := false

	report := runner.Run(context.Background(), Scenario{
		Name:     "setup",
		Setup:    func(ctx context.Context, s *State) error { return errors.New("no fixture") },
		Teardown: func(ctx context.Context, s *State) error { teardown = true; return errors.New("cleanup") },
		Steps:    []Step{{Name: "a"}, {Name: "b"}},
	})

	assert.True(t, teardown)
	assert.False(t, report.Passed())
	assert.Equal(t, 2, report.Count(StatusNotRun))
	assert.ErrorContains(t, report.Err(), "setup: no fixture")
	assert.ErrorContains(t, report.Err(), "teardown: cleanup")

	report = runner.Run(context.Background(), Scenario{
		Name:     "teardown only",
		Teardown: func(ctx context.Context, s *State) error { return errors.New("cleanup") },
		Steps:    []Step{{Name: "a"}},
	})
	assert.True(t, report.Passed(), "teardown errors are reported but do not fail the scenario")
	assert.Error(t, report.Err())
}

func TestRunner_TimeoutInterruptsRetries(t *testing.T) {
	runner := NewRunner(zap.NewNop())

	report := runner.Run(context.Background(), Scenario{
		Name:    "timeout",
		Timeout: 20 * time.Millisecond,
		Steps: []Step{{
			Name:       "slow",
			RetryCount: 10,
			RetryDelay: time.Second,
			Action:     func(ctx context.Context, s *State) error { return errors.New("down") },
		}},
	})

	require.Len(t, report.Steps, 1)
	assert.Equal(t, StatusFailed, report.Steps[0].Status)
	assert.ErrorIs(t, report.Steps[0].Err, context.DeadlineExceeded)
	assert.Less(t, report.Duration, time.Second)
}

func TestRunAll(t *testing.T) {
	runner := NewRunner(zap.NewNop())

	reports := runner.RunAll(context.Background(),
		Scenario{Name: "first", Steps: []Step{{Name: "set", Action: func(ctx context.Context, s *State) error {
			s.Set("k", "v")
			return nil
		}}}},
		Scenario{Name: "second", Steps: []Step{{Name: "get", Validate: func(ctx context.Context, s *State) error {
			if s.GetString("k") != "v" {
				return errors.New("state lost between scenarios")
			}
			return nil
		}}}},
	)

	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.NoError(t, r.Err(), r.Scenario)
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "passed", StatusPassed.String())
	assert.Equal(t, "not run", StatusNotRun.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}
