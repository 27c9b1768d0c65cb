// Package model holds the normalized gorest records shared by the JSON and XML decoders.
package model

import "time"

// User is a gorest user record.
type User struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"`
	Gender string `json:"gender"`
}

// Post is a gorest post record.
type Post struct {
	ID     int    `json:"id"`
	UserID int    `json:"user_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Comment is a gorest comment record.
type Comment struct {
	ID     int    `json:"id"`
	PostID int    `json:"post_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Body   string `json:"body"`
}

// Todo is a gorest todo record. DueOn is nil when the server reports no due date.
type Todo struct {
	ID     int        `json:"id"`
	UserID int        `json:"user_id"`
	Title  string     `json:"title"`
	DueOn  *time.Time `json:"due_on"`
	Status string     `json:"status"`
}

// ErrorDetail is a single field validation failure.
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
