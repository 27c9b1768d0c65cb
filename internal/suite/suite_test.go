package suite

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testifysuite "github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/FairForge/gorest-e2e/internal/fakeapi"
	"github.com/FairForge/gorest-e2e/internal/gorest"
	"github.com/FairForge/gorest-e2e/internal/model"
	"github.com/FairForge/gorest-e2e/internal/scenario"
)

const (
	token    = "suite-token"
	lowToken = "suite-low-token"
)

type FakeAPITestSuite struct {
	testifysuite.Suite
	server *httptest.Server
	fake   *fakeapi.Server
	client *gorest.Client
}

func (s *FakeAPITestSuite) SetupTest() {
	s.fake = fakeapi.New(fakeapi.Options{
		Tokens:    map[string]int{token: 0, lowToken: 5},
		SeedUsers: 250,
	}, zap.NewNop())
	s.server = httptest.NewServer(s.fake.Handler())
	s.client = gorest.NewClient(s.server.URL+fakeapi.BasePath, zap.NewNop())
}

func (s *FakeAPITestSuite) TearDownTest() {
	s.server.Close()
}

func (s *FakeAPITestSuite) newSuite() *Suite {
	return New(s.client, Options{Token: token, LowLimitToken: lowToken}, zap.NewNop())
}

func (s *FakeAPITestSuite) requirePassed(reports []*scenario.Report) {
	for _, r := range reports {
		s.Require().NoError(r.Err(), r.Scenario)
		s.True(r.Passed(), r.Scenario)
	}
}

func (s *FakeAPITestSuite) TestBothFormats() {
	reports := s.newSuite().Run(context.Background(), gorest.FormatJSON, gorest.FormatXML)

	s.Require().Len(reports, 5)
	s.requirePassed(reports)
	s.Equal(34, reports[0].Count(scenario.StatusPassed))
	s.Equal("options discovery", reports[4].Scenario)
}

func (s *FakeAPITestSuite) TestTeardownRemovesUser() {
	reports := s.newSuite().Run(context.Background(), gorest.FormatXML)
	s.requirePassed(reports)

	users := s.fake.Store().ListUsers(token, fakeapi.Filter{"email": "john@mail.com"})
	s.Empty(users)
}

func (s *FakeAPITestSuite) TestSetupRemovesLeftovers() {
	fx := DefaultFixture(gorest.FormatJSON)
	resp, err := s.client.WithToken(token).CreateUser(context.Background(), fx.User)
	s.Require().NoError(err)
	s.Require().Equal(201, resp.StatusCode)

	reports := s.newSuite().Run(context.Background(), gorest.FormatJSON)

	s.requirePassed(reports)
}

func (s *FakeAPITestSuite) TestRateLimitSkippedWithoutToken() {
	st := New(s.client, Options{Token: token}, zap.NewNop())

	names := []string{}
	for _, sc := range st.Scenarios(gorest.FormatJSON) {
		names = append(names, sc.Name)
	}
	s.Equal([]string{"user flow (json)", "options discovery"}, names)
}

func (s *FakeAPITestSuite) TestFailuresAreReported() {
	st := New(s.client, Options{Token: "unknown-token"}, zap.NewNop())

	reports := st.Run(context.Background(), gorest.FormatJSON)

	s.Require().NotEmpty(reports)
	s.False(reports[0].Passed())
	s.Error(reports[0].Err())
}

func TestFakeAPI(t *testing.T) {
	testifysuite.Run(t, new(FakeAPITestSuite))
}

func TestMatchTodo(t *testing.T) {
	due := time.Date(2024, 6, 2, 0, 0, 0, 0, time.FixedZone("IST", 19800))
	want := DefaultFixture(gorest.FormatJSON).Todo
	want.DueOn = "2024-06-02T05:50:00.123+05:30"

	got := model.Todo{ID: 1, UserID: 5, Title: want.Title, Status: want.Status, DueOn: &due}
	assert.NoError(t, matchTodo(want, 5, got))

	got.DueOn = nil
	assert.ErrorContains(t, matchTodo(want, 5, got), "due_on")

	got.DueOn = &due
	got.Status = "completed"
	err := matchTodo(want, 6, got)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_id: want 6, got 5")
	assert.Contains(t, err.Error(), "status: want pending, got completed")
}

func TestDefaultFixture(t *testing.T) {
	assert.Equal(t, "jim@mail.com", DefaultFixture(gorest.FormatJSON).User.Email)
	assert.Equal(t, "john@mail.com", DefaultFixture(gorest.FormatXML).Comment.Email)
}
