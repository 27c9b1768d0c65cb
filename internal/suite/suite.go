// Package suite holds the gorest end-to-end scenarios: the user flow with
// nested posts, comments and todos in JSON and XML, rate limit exhaustion and
// OPTIONS discovery.
package suite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/FairForge/gorest-e2e/internal/contract"
	"github.com/FairForge/gorest-e2e/internal/gorest"
	"github.com/FairForge/gorest-e2e/internal/scenario"
)

// Options configure a Suite.
type Options struct {
	Token         string
	LowLimitToken string
	// RateLimitCalls is the request allowance of LowLimitToken.
	RateLimitCalls int
	// Now feeds todo due dates. Defaults to time.Now.
	Now func() time.Time
	// Fixtures overrides DefaultFixture per format.
	Fixtures map[gorest.Format]Fixture
}

// Suite builds the scenarios against one API.
type Suite struct {
	anon   *gorest.Client
	auth   *gorest.Client
	low    *gorest.Client
	opts   Options
	logger *zap.Logger
}

// New creates a suite. client must not carry a token; the suite derives the
// authenticated clients from it.
func New(client *gorest.Client, opts Options, logger *zap.Logger) *Suite {
	if opts.RateLimitCalls == 0 {
		opts.RateLimitCalls = 5
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	anon := client.WithToken("")
	return &Suite{
		anon:   anon,
		auth:   anon.WithToken(opts.Token),
		low:    anon.WithToken(opts.LowLimitToken),
		opts:   opts,
		logger: logger,
	}
}

func (s *Suite) fixture(format gorest.Format) Fixture {
	if fx, ok := s.opts.Fixtures[format]; ok {
		return fx
	}
	return DefaultFixture(format)
}

// Scenarios returns, per format, the user flow followed by the rate limit
// check when a low limit token is configured, and finally OPTIONS discovery.
func (s *Suite) Scenarios(formats ...gorest.Format) []scenario.Scenario {
	var out []scenario.Scenario
	for _, f := range formats {
		out = append(out, s.UserFlow(f))
		if s.opts.LowLimitToken != "" {
			out = append(out, s.RateLimit(f))
		}
	}
	return append(out, s.Options())
}

// Run executes Scenarios. Failed steps do not stop a scenario, matching how
// independent checks behave in a test file.
func (s *Suite) Run(ctx context.Context, formats ...gorest.Format) []*scenario.Report {
	runner := scenario.NewRunner(s.logger)
	runner.KeepGoing = true
	return runner.RunAll(ctx, s.Scenarios(formats...)...)
}

// RateLimit exhausts the low limit token with requests in format and expects
// the next plain request to be rejected with a JSON message.
func (s *Suite) RateLimit(format gorest.Format) scenario.Scenario {
	calls := s.opts.RateLimitCalls
	client := s.low.WithFormat(format)
	return scenario.Scenario{
		Name:        fmt.Sprintf("rate limit (%s)", format),
		Description: fmt.Sprintf("%d requests exhaust the low limit token", calls),
		Steps: []scenario.Step{
			{
				Name: "spend the allowance",
				Action: func(ctx context.Context, _ *scenario.State) error {
					for i := 0; i < calls; i++ {
						if _, err := client.ListUsers(ctx, gorest.ListOptions{}); err != nil {
							return err
						}
					}
					return nil
				},
			},
			{
				Name: "next request is rejected",
				Action: func(ctx context.Context, _ *scenario.State) error {
					resp, err := s.low.WithFormat(gorest.FormatJSON).GET(ctx, "/users")
					if err != nil {
						return err
					}
					if err := resp.Expect().
						StatusTooManyRequests().
						JSON().
						Header("X-RateLimit-Limit", fmt.Sprint(calls)).
						Header("X-RateLimit-Remaining", "0").
						Err(); err != nil {
						return err
					}
					if err := contract.Validate(contract.SimpleMessage, resp.Body); err != nil {
						return err
					}
					return expectText(resp, "Too many requests")
				},
			},
		},
	}
}

// Options sends OPTIONS /users and expects a successful answer.
func (s *Suite) Options() scenario.Scenario {
	return scenario.Scenario{
		Name: "options discovery",
		Steps: []scenario.Step{{
			Name: "OPTIONS /users",
			Action: func(ctx context.Context, _ *scenario.State) error {
				resp, err := s.auth.OPTIONS(ctx, "/users")
				if err != nil {
					return err
				}
				if resp.StatusCode < 200 || resp.StatusCode >= 300 {
					return fmt.Errorf("expected a 2xx status, got %d", resp.StatusCode)
				}
				s.logger.Info("options discovery",
					zap.Int("status", resp.StatusCode),
					zap.String("allow", resp.Headers.Get("Allow")))
				return nil
			},
		}},
	}
}

// expectText checks a simple message body.
func expectText(resp *gorest.Response, want string) error {
	msg, err := resp.Message()
	if err != nil {
		return err
	}
	if msg.Text != want {
		return fmt.Errorf("expected message %q, got %q", want, msg.Text)
	}
	return nil
}

// expectDetail checks that the first validation failure is field/message.
func expectDetail(resp *gorest.Response, field, message string) error {
	msg, err := resp.Message()
	if err != nil {
		return err
	}
	first, err := msg.First()
	if err != nil {
		return err
	}
	if first.Field != field || first.Message != message {
		return fmt.Errorf("expected %s %q, got %s %q", field, message, first.Field, first.Message)
	}
	return nil
}

// conforms validates JSON bodies against their contract. XML bodies are
// checked by decoding them.
func conforms(resp *gorest.Response, kind contract.Kind) error {
	if resp.BodyFormat() != gorest.FormatJSON {
		return nil
	}
	return contract.Validate(kind, resp.Body)
}

var errNoUser = errors.New("no user created yet")

// deleteIfPresent removes a user, treating 404 as already gone.
func deleteIfPresent(ctx context.Context, c *gorest.Client, id int) error {
	resp, err := c.DeleteUser(ctx, id)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("deleting user %d: status %d", id, resp.StatusCode)
	}
	return nil
}
