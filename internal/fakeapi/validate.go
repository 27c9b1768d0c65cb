package fakeapi

import (
	"regexp"
	"strings"

	"github.com/FairForge/gorest-e2e/internal/model"
)

// Validation messages as gorest words them.
const (
	msgBlank      = "can't be blank"
	msgInvalid    = "is invalid"
	msgTaken      = "has already been taken"
	msgMustExist  = "must exist"
	msgGender     = "can't be blank, can be male of female"
	msgTodoStatus = "can't be blank, can be pending or completed"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type checker struct {
	details []model.ErrorDetail
}

func (c *checker) fail(field, message string) {
	c.details = append(c.details, model.ErrorDetail{Field: field, Message: message})
}

func (c *checker) required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		c.fail(field, msgBlank)
		return false
	}
	return true
}

func (c *checker) email(field, value string) bool {
	if !c.required(field, value) {
		return false
	}
	if !emailPattern.MatchString(value) {
		c.fail(field, msgInvalid)
		return false
	}
	return true
}

func (c *checker) oneOf(field, value, message string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	c.fail(field, message)
}

func validateUser(u model.User, emailTaken bool) []model.ErrorDetail {
	var c checker
	if c.email("email", u.Email) && emailTaken {
		c.fail("email", msgTaken)
	}
	c.required("name", u.Name)
	c.oneOf("gender", u.Gender, msgGender, "male", "female")
	if c.required("status", u.Status) {
		c.oneOf("status", u.Status, msgInvalid, "active", "inactive")
	}
	return c.details
}

func validatePost(p model.Post, userExists bool) []model.ErrorDetail {
	var c checker
	if !userExists {
		c.fail("user", msgMustExist)
	}
	c.required("title", p.Title)
	c.required("body", p.Body)
	return c.details
}

func validateComment(cm model.Comment, postExists bool) []model.ErrorDetail {
	var c checker
	if !postExists {
		c.fail("post", msgMustExist)
	}
	c.required("name", cm.Name)
	c.email("email", cm.Email)
	c.required("body", cm.Body)
	return c.details
}

func validateTodo(t model.Todo, userExists bool) []model.ErrorDetail {
	var c checker
	if !userExists {
		c.fail("user", msgMustExist)
	}
	c.required("title", t.Title)
	c.oneOf("status", t.Status, msgTodoStatus, "pending", "completed")
	return c.details
}
