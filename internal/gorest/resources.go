package gorest

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// UserParams is the payload for creating or updating a user. Empty fields are
// omitted so partial updates and missing-field checks can be expressed.
type UserParams struct {
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Status string `json:"status,omitempty"`
	Gender string `json:"gender,omitempty"`
}

// PostParams is the payload for creating a post.
type PostParams struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
}

// CommentParams is the payload for creating a comment.
type CommentParams struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Body  string `json:"body,omitempty"`
}

// TodoParams is the payload for creating a todo. DueOn is sent as text,
// see package dates.
type TodoParams struct {
	Title  string `json:"title,omitempty"`
	Status string `json:"status,omitempty"`
	DueOn  string `json:"due_on,omitempty"`
}

// ListOptions are the paging and filter parameters of list endpoints.
type ListOptions struct {
	Page    int
	PerPage int
	Filters map[string]string
}

func (o ListOptions) query() map[string]string {
	q := make(map[string]string, len(o.Filters)+2)
	for k, v := range o.Filters {
		q[k] = v
	}
	if o.Page > 0 {
		q["page"] = strconv.Itoa(o.Page)
	}
	if o.PerPage > 0 {
		q["per_page"] = strconv.Itoa(o.PerPage)
	}
	return q
}

// Filter returns ListOptions filtering on a single field.
func Filter(field string, value any) ListOptions {
	return ListOptions{Filters: map[string]string{field: fmt.Sprint(value)}}
}

// resource builds a path in the client's format, e.g. /users/5.xml.
func (c *Client) resource(format string, args ...any) string {
	return fmt.Sprintf(format, args...) + c.Format.suffix()
}

func (c *Client) list(ctx context.Context, path string, opts ListOptions) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: opts.query()})
}

// CreateUser sends POST /users.
func (c *Client) CreateUser(ctx context.Context, p UserParams) (*Response, error) {
	return c.POST(ctx, c.resource("/users"), p)
}

// GetUser sends GET /users/{id}.
func (c *Client) GetUser(ctx context.Context, id int) (*Response, error) {
	return c.GET(ctx, c.resource("/users/%d", id))
}

// ListUsers sends GET /users.
func (c *Client) ListUsers(ctx context.Context, opts ListOptions) (*Response, error) {
	return c.list(ctx, c.resource("/users"), opts)
}

// UpdateUser sends PATCH /users/{id}.
func (c *Client) UpdateUser(ctx context.Context, id int, p UserParams) (*Response, error) {
	return c.PATCH(ctx, c.resource("/users/%d", id), p)
}

// ReplaceUser sends PUT /users/{id}.
func (c *Client) ReplaceUser(ctx context.Context, id int, p UserParams) (*Response, error) {
	return c.PUT(ctx, c.resource("/users/%d", id), p)
}

// DeleteUser sends DELETE /users/{id}. The path never carries a format
// suffix because a successful delete has no body.
func (c *Client) DeleteUser(ctx context.Context, id int) (*Response, error) {
	return c.DELETE(ctx, fmt.Sprintf("/users/%d", id))
}

// CreateUserPost sends POST /users/{id}/posts.
func (c *Client) CreateUserPost(ctx context.Context, userID int, p PostParams) (*Response, error) {
	return c.POST(ctx, c.resource("/users/%d/posts", userID), p)
}

// ListUserPosts sends GET /users/{id}/posts.
func (c *Client) ListUserPosts(ctx context.Context, userID int, opts ListOptions) (*Response, error) {
	return c.list(ctx, c.resource("/users/%d/posts", userID), opts)
}

// ListPosts sends GET /posts.
func (c *Client) ListPosts(ctx context.Context, opts ListOptions) (*Response, error) {
	return c.list(ctx, c.resource("/posts"), opts)
}

// CreatePostComment sends POST /posts/{id}/comments.
func (c *Client) CreatePostComment(ctx context.Context, postID int, p CommentParams) (*Response, error) {
	return c.POST(ctx, c.resource("/posts/%d/comments", postID), p)
}

// ListPostComments sends GET /posts/{id}/comments.
func (c *Client) ListPostComments(ctx context.Context, postID int, opts ListOptions) (*Response, error) {
	return c.list(ctx, c.resource("/posts/%d/comments", postID), opts)
}

// ListComments sends GET /comments.
func (c *Client) ListComments(ctx context.Context, opts ListOptions) (*Response, error) {
	return c.list(ctx, c.resource("/comments"), opts)
}

// CreateUserTodo sends POST /users/{id}/todos.
func (c *Client) CreateUserTodo(ctx context.Context, userID int, p TodoParams) (*Response, error) {
	return c.POST(ctx, c.resource("/users/%d/todos", userID), p)
}

// ListUserTodos sends GET /users/{id}/todos.
func (c *Client) ListUserTodos(ctx context.Context, userID int, opts ListOptions) (*Response, error) {
	return c.list(ctx, c.resource("/users/%d/todos", userID), opts)
}

// ListTodos sends GET /todos.
func (c *Client) ListTodos(ctx context.Context, opts ListOptions) (*Response, error) {
	return c.list(ctx, c.resource("/todos"), opts)
}
