package fakeapi

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/FairForge/gorest-e2e/internal/model"
)

var (
	// ErrNotFound is returned for records that do not exist or are not
	// visible to the caller.
	ErrNotFound = errors.New("fakeapi: resource not found")
)

// ValidationError carries the field failures of a rejected write.
type ValidationError struct {
	Details []model.ErrorDetail
}

func (e *ValidationError) Error() string {
	return "fakeapi: validation failed: " + model.ValidationMessage(e.Details...).String()
}

// Filter selects list results by field. Id fields match exactly, text
// fields match case-insensitive substrings. Unknown fields are ignored.
type Filter map[string]string

// row is a stored record. Records without owner are public seed data.
type row[T any] struct {
	id    int
	owner string
	value T
}

type table[T any] map[int]*row[T]

func (t table[T]) lookup(token string, id int) (*row[T], bool) {
	r, ok := t[id]
	if !ok || !visible(r.owner, token) {
		return nil, false
	}
	return r, true
}

// list returns the records visible to token that match keep, newest first.
func (t table[T]) list(token string, keep func(T) bool) []T {
	rows := make([]*row[T], 0, len(t))
	for _, r := range t {
		if visible(r.owner, token) && keep(r.value) {
			rows = append(rows, r)
		}
	}
	slices.SortFunc(rows, func(a, b *row[T]) int { return b.id - a.id })

	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.value)
	}
	return out
}

func visible(owner, token string) bool {
	return owner == "" || owner == token
}

// Store is the in-memory data set behind the server. Every method takes the
// caller's bearer token; an empty token only sees public records.
type Store struct {
	mu       sync.Mutex
	nextID   int
	users    table[model.User]
	posts    table[model.Post]
	comments table[model.Comment]
	todos    table[model.Todo]
}

// NewStore creates a store holding seedUsers public users, with a post, a
// comment and a todo for every tenth of them.
func NewStore(seedUsers int) *Store {
	s := &Store{
		users:    make(table[model.User]),
		posts:    make(table[model.Post]),
		comments: make(table[model.Comment]),
		todos:    make(table[model.Todo]),
	}
	s.seed(seedUsers)
	return s
}

func (s *Store) id() int {
	s.nextID++
	return s.nextID
}

func (s *Store) seed(n int) {
	genders := []string{"male", "female"}
	statuses := []string{"active", "inactive"}
	due := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 1; i <= n; i++ {
		u := model.User{
			ID:     s.id(),
			Name:   fmt.Sprintf("Seed User %d", i),
			Email:  fmt.Sprintf("seed.user.%d@example.test", i),
			Gender: genders[i%2],
			Status: statuses[(i/2)%2],
		}
		s.users[u.ID] = &row[model.User]{id: u.ID, value: u}

		if i%10 != 0 {
			continue
		}
		p := model.Post{ID: s.id(), UserID: u.ID, Title: "Seed post " + strconv.Itoa(i), Body: "Seed post body."}
		s.posts[p.ID] = &row[model.Post]{id: p.ID, value: p}

		c := model.Comment{ID: s.id(), PostID: p.ID, Name: u.Name, Email: u.Email, Body: "Seed comment."}
		s.comments[c.ID] = &row[model.Comment]{id: c.ID, value: c}

		dueOn := due.AddDate(0, 0, i)
		t := model.Todo{ID: s.id(), UserID: u.ID, Title: "Seed todo " + strconv.Itoa(i), DueOn: &dueOn, Status: "pending"}
		s.todos[t.ID] = &row[model.Todo]{id: t.ID, value: t}
	}
}

// UserInput is a user write. Nil fields are absent from the request.
type UserInput struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Gender *string `json:"gender"`
	Status *string `json:"status"`
}

// PostInput is a post write.
type PostInput struct {
	Title *string `json:"title"`
	Body  *string `json:"body"`
}

// CommentInput is a comment write.
type CommentInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Body  *string `json:"body"`
}

// TodoInput is a todo write. DueOn accepts RFC 3339 timestamps or plain dates.
type TodoInput struct {
	Title  *string `json:"title"`
	DueOn  *string `json:"due_on"`
	Status *string `json:"status"`
}

func (s *Store) emailTaken(email string, except int) bool {
	for id, r := range s.users {
		if id != except && strings.EqualFold(r.value.Email, email) {
			return true
		}
	}
	return false
}

// CreateUser stores a new user owned by token.
func (s *Store) CreateUser(token string, in UserInput) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := model.User{Name: deref(in.Name), Email: deref(in.Email), Gender: deref(in.Gender), Status: deref(in.Status)}
	if details := validateUser(u, s.emailTaken(u.Email, 0)); len(details) > 0 {
		return model.User{}, &ValidationError{Details: details}
	}
	u.ID = s.id()
	s.users[u.ID] = &row[model.User]{id: u.ID, owner: token, value: u}
	return u, nil
}

// GetUser returns a user visible to token.
func (s *Store) GetUser(token string, id int) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.users.lookup(token, id)
	if !ok {
		return model.User{}, ErrNotFound
	}
	return r.value, nil
}

// UpdateUser applies the fields present in in to a user owned by token.
func (s *Store) UpdateUser(token string, id int, in UserInput) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.users[id]
	if !ok || r.owner == "" || r.owner != token {
		return model.User{}, ErrNotFound
	}
	u := r.value
	assign(&u.Name, in.Name)
	assign(&u.Email, in.Email)
	assign(&u.Gender, in.Gender)
	assign(&u.Status, in.Status)
	if details := validateUser(u, s.emailTaken(u.Email, id)); len(details) > 0 {
		return model.User{}, &ValidationError{Details: details}
	}
	r.value = u
	return u, nil
}

// DeleteUser removes a user owned by token together with its posts, their
// comments and its todos.
func (s *Store) DeleteUser(token string, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.users[id]
	if !ok || r.owner == "" || r.owner != token {
		return ErrNotFound
	}
	delete(s.users, id)
	for pid, p := range s.posts {
		if p.value.UserID != id {
			continue
		}
		delete(s.posts, pid)
		for cid, c := range s.comments {
			if c.value.PostID == pid {
				delete(s.comments, cid)
			}
		}
	}
	for tid, t := range s.todos {
		if t.value.UserID == id {
			delete(s.todos, tid)
		}
	}
	return nil
}

// ListUsers returns the users visible to token matching f.
func (s *Store) ListUsers(token string, f Filter) []model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users.list(token, func(u model.User) bool {
		return f.match(map[string]string{
			"id": strconv.Itoa(u.ID), "name": u.Name, "email": u.Email, "gender": u.Gender, "status": u.Status,
		})
	})
}

// CreatePost stores a post for a user visible to token.
func (s *Store) CreatePost(token string, userID int, in PostInput) (model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, userExists := s.users.lookup(token, userID)
	p := model.Post{UserID: userID, Title: deref(in.Title), Body: deref(in.Body)}
	if details := validatePost(p, userExists); len(details) > 0 {
		return model.Post{}, &ValidationError{Details: details}
	}
	p.ID = s.id()
	s.posts[p.ID] = &row[model.Post]{id: p.ID, owner: token, value: p}
	return p, nil
}

// GetPost returns a post visible to token.
func (s *Store) GetPost(token string, id int) (model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.posts.lookup(token, id)
	if !ok {
		return model.Post{}, ErrNotFound
	}
	return r.value, nil
}

// ListPosts returns the posts visible to token matching f.
func (s *Store) ListPosts(token string, f Filter) []model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posts.list(token, func(p model.Post) bool {
		return f.match(map[string]string{
			"id": strconv.Itoa(p.ID), "user_id": strconv.Itoa(p.UserID), "title": p.Title, "body": p.Body,
		})
	})
}

// CreateComment stores a comment on a post visible to token.
func (s *Store) CreateComment(token string, postID int, in CommentInput) (model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, postExists := s.posts.lookup(token, postID)
	c := model.Comment{PostID: postID, Name: deref(in.Name), Email: deref(in.Email), Body: deref(in.Body)}
	if details := validateComment(c, postExists); len(details) > 0 {
		return model.Comment{}, &ValidationError{Details: details}
	}
	c.ID = s.id()
	s.comments[c.ID] = &row[model.Comment]{id: c.ID, owner: token, value: c}
	return c, nil
}

// GetComment returns a comment visible to token.
func (s *Store) GetComment(token string, id int) (model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.comments.lookup(token, id)
	if !ok {
		return model.Comment{}, ErrNotFound
	}
	return r.value, nil
}

// ListComments returns the comments visible to token matching f.
func (s *Store) ListComments(token string, f Filter) []model.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comments.list(token, func(c model.Comment) bool {
		return f.match(map[string]string{
			"id": strconv.Itoa(c.ID), "post_id": strconv.Itoa(c.PostID), "name": c.Name, "email": c.Email, "body": c.Body,
		})
	})
}

// CreateTodo stores a todo for a user visible to token.
func (s *Store) CreateTodo(token string, userID int, in TodoInput) (model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, userExists := s.users.lookup(token, userID)
	t := model.Todo{UserID: userID, Title: deref(in.Title), Status: deref(in.Status)}
	details := validateTodo(t, userExists)
	if in.DueOn != nil && strings.TrimSpace(*in.DueOn) != "" {
		due, err := parseDueOn(*in.DueOn)
		if err != nil {
			details = append(details, model.ErrorDetail{Field: "due_on", Message: msgInvalid})
		} else {
			t.DueOn = &due
		}
	}
	if len(details) > 0 {
		return model.Todo{}, &ValidationError{Details: details}
	}
	t.ID = s.id()
	s.todos[t.ID] = &row[model.Todo]{id: t.ID, owner: token, value: t}
	return t, nil
}

// GetTodo returns a todo visible to token.
func (s *Store) GetTodo(token string, id int) (model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.todos.lookup(token, id)
	if !ok {
		return model.Todo{}, ErrNotFound
	}
	return r.value, nil
}

// ListTodos returns the todos visible to token matching f.
func (s *Store) ListTodos(token string, f Filter) []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.todos.list(token, func(t model.Todo) bool {
		return f.match(map[string]string{
			"id": strconv.Itoa(t.ID), "user_id": strconv.Itoa(t.UserID), "title": t.Title, "status": t.Status,
		})
	})
}

var idFields = map[string]bool{"id": true, "user_id": true, "post_id": true}

func (f Filter) match(fields map[string]string) bool {
	for key, want := range f {
		got, ok := fields[key]
		if !ok {
			continue
		}
		if idFields[key] {
			if strings.TrimSpace(want) != got {
				return false
			}
			continue
		}
		if !strings.Contains(strings.ToLower(got), strings.ToLower(want)) {
			return false
		}
	}
	return true
}

func parseDueOn(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func assign(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
