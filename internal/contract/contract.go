// Package contract checks JSON response bodies against JSON schemas of the
// gorest resources.
package contract

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Kind names a response body shape.
type Kind string

const (
	User            Kind = "user"
	Users           Kind = "users"
	Post            Kind = "post"
	Posts           Kind = "posts"
	Comment         Kind = "comment"
	Comments        Kind = "comments"
	Todo            Kind = "todo"
	Todos           Kind = "todos"
	SimpleMessage   Kind = "message"
	ValidationError Kind = "validation"
)

const (
	idSchema    = `{"type": "integer", "minimum": 0}`
	emailSchema = `{"type": "string", "pattern": "^[^@\\s]+@[^@\\s]+$"}`
)

var objectSchemas = map[Kind]string{
	User: `{
		"type": "object",
		"required": ["id", "name", "email", "gender", "status"],
		"properties": {
			"id": ` + idSchema + `,
			"name": {"type": "string", "minLength": 1},
			"email": ` + emailSchema + `,
			"gender": {"enum": ["male", "female"]},
			"status": {"enum": ["active", "inactive"]}
		}
	}`,
	Post: `{
		"type": "object",
		"required": ["id", "user_id", "title", "body"],
		"properties": {
			"id": ` + idSchema + `,
			"user_id": ` + idSchema + `,
			"title": {"type": "string"},
			"body": {"type": "string"}
		}
	}`,
	Comment: `{
		"type": "object",
		"required": ["id", "post_id", "name", "email", "body"],
		"properties": {
			"id": ` + idSchema + `,
			"post_id": ` + idSchema + `,
			"name": {"type": "string"},
			"email": {"type": "string"},
			"body": {"type": "string"}
		}
	}`,
	Todo: `{
		"type": "object",
		"required": ["id", "user_id", "title", "due_on", "status"],
		"properties": {
			"id": ` + idSchema + `,
			"user_id": ` + idSchema + `,
			"title": {"type": "string"},
			"due_on": {"type": ["string", "null"], "format": "date-time"},
			"status": {"enum": ["pending", "completed"]}
		}
	}`,
	SimpleMessage: `{
		"type": "object",
		"required": ["message"],
		"properties": {"message": {"type": "string"}}
	}`,
}

var listOf = map[Kind]Kind{
	Users:    User,
	Posts:    Post,
	Comments: Comment,
	Todos:    Todo,
}

const validationSchema = `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"required": ["field", "message"],
		"properties": {
			"field": {"type": "string", "minLength": 1},
			"message": {"type": "string", "minLength": 1}
		}
	}
}`

func schemaSource(kind Kind) (string, bool) {
	if s, ok := objectSchemas[kind]; ok {
		return s, true
	}
	if item, ok := listOf[kind]; ok {
		return `{"type": "array", "items": ` + objectSchemas[item] + `}`, true
	}
	if kind == ValidationError {
		return validationSchema, true
	}
	return "", false
}

var (
	compiledMu sync.Mutex
	compiled   = make(map[Kind]*gojsonschema.Schema)
)

func schemaFor(kind Kind) (*gojsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if s, ok := compiled[kind]; ok {
		return s, nil
	}
	src, ok := schemaSource(kind)
	if !ok {
		return nil, fmt.Errorf("contract: unknown kind %q", kind)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		return nil, fmt.Errorf("contract: compiling %s schema: %w", kind, err)
	}
	compiled[kind] = s
	return s, nil
}

// Validate checks body against the schema for kind.
func Validate(kind Kind, body []byte) error {
	schema, err := schemaFor(kind)
	if err != nil {
		return err
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("contract: %s: schema validation error: %w", kind, err)
	}

	if !result.Valid() {
		errors := make([]string, 0, len(result.Errors()))
		for _, err := range result.Errors() {
			errors = append(errors, err.String())
		}
		return fmt.Errorf("contract: %s: validation failed: %s", kind, strings.Join(errors, "; "))
	}

	return nil
}
