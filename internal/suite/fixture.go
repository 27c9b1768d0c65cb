package suite

import (
	"fmt"
	"strings"
	"time"

	"github.com/FairForge/gorest-e2e/internal/dates"
	"github.com/FairForge/gorest-e2e/internal/gorest"
	"github.com/FairForge/gorest-e2e/internal/model"
)

const (
	postBody = "Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor " +
		"incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud " +
		"exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat."
	commentBody = "Cras scelerisque cursus molestie. Praesent dignissim elit mi. Nulla hendrerit " +
		"pellentesque mi quis gravida."
)

// Fixture is the data one user flow creates.
type Fixture struct {
	User          gorest.UserParams
	Post          gorest.PostParams
	Comment       gorest.CommentParams
	Todo          gorest.TodoParams
	UpdatedStatus string
}

// DefaultFixture returns the fixture of a format. Each format owns its own
// user so both flows can run against one account.
func DefaultFixture(format gorest.Format) Fixture {
	name := "jim"
	if format == gorest.FormatXML {
		name = "john"
	}
	email := name + "@mail.com"
	return Fixture{
		User:          gorest.UserParams{Name: name, Email: email, Status: "active", Gender: "male"},
		Post:          gorest.PostParams{Title: "Test Post Title", Body: postBody},
		Comment:       gorest.CommentParams{Name: name, Email: email, Body: commentBody},
		Todo:          gorest.TodoParams{Title: "Test ToDo Title", Status: "pending"},
		UpdatedStatus: "inactive",
	}
}

type mismatches []string

func (m *mismatches) check(field string, want, got any) {
	if want != got {
		*m = append(*m, fmt.Sprintf("%s: want %v, got %v", field, want, got))
	}
}

func (m mismatches) err(kind string) error {
	if len(m) == 0 {
		return nil
	}
	return fmt.Errorf("%s does not match: %s", kind, strings.Join(m, "; "))
}

func matchUser(want gorest.UserParams, got model.User) error {
	var m mismatches
	m.check("name", want.Name, got.Name)
	m.check("email", want.Email, got.Email)
	m.check("status", want.Status, got.Status)
	m.check("gender", want.Gender, got.Gender)
	return m.err("user")
}

func matchPost(want gorest.PostParams, userID int, got model.Post) error {
	var m mismatches
	m.check("user_id", userID, got.UserID)
	m.check("title", want.Title, got.Title)
	m.check("body", want.Body, got.Body)
	return m.err("post")
}

func matchComment(want gorest.CommentParams, postID int, got model.Comment) error {
	var m mismatches
	m.check("post_id", postID, got.PostID)
	m.check("name", want.Name, got.Name)
	m.check("email", want.Email, got.Email)
	m.check("body", want.Body, got.Body)
	return m.err("comment")
}

// matchTodo compares the due date by calendar day in the API time zone,
// since the service may drop the time of day.
func matchTodo(want gorest.TodoParams, userID int, got model.Todo) error {
	var m mismatches
	m.check("user_id", userID, got.UserID)
	m.check("title", want.Title, got.Title)
	m.check("status", want.Status, got.Status)
	if want.DueOn != "" {
		sent, err := time.Parse(time.RFC3339, want.DueOn)
		switch {
		case err != nil:
			m = append(m, fmt.Sprintf("due_on: fixture value %q: %v", want.DueOn, err))
		case got.DueOn == nil:
			m = append(m, "due_on: want a date, got none")
		default:
			m.check("due_on", dates.Day(sent), dates.Day(*got.DueOn))
		}
	}
	return m.err("todo")
}

func findUser(users []model.User, id int) (model.User, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return model.User{}, false
}
