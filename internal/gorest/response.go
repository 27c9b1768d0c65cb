package gorest

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/FairForge/gorest-e2e/internal/model"
	"github.com/FairForge/gorest-e2e/internal/ratelimit"
	"github.com/FairForge/gorest-e2e/internal/xmlnorm"
)

// Pagination headers
const (
	HeaderPaginationTotal = "X-Pagination-Total"
	HeaderPaginationPages = "X-Pagination-Pages"
	HeaderPaginationPage  = "X-Pagination-Page"
	HeaderPaginationLimit = "X-Pagination-Limit"
)

// ErrDecode wraps JSON body decoding failures. XML failures carry the
// xmlnorm error kinds instead.
var ErrDecode = errors.New("gorest: cannot decode body")

// Response represents an API response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	Format     Format // format the request asked for
	RequestID  string
}

// String returns the response body as string.
func (r *Response) String() string {
	return string(r.Body)
}

// ContentType returns the Content-Type header.
func (r *Response) ContentType() string {
	return r.Headers.Get("Content-Type")
}

// JSON decodes the response body as JSON.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// BodyFormat is the representation the body is actually in, judged by
// Content-Type and falling back to the requested format.
func (r *Response) BodyFormat() Format {
	ct := strings.ToLower(r.ContentType())
	switch {
	case strings.Contains(ct, "xml"):
		return FormatXML
	case strings.Contains(ct, "json"):
		return FormatJSON
	default:
		return r.Format
	}
}

// Pagination is the page information gorest reports in headers.
type Pagination struct {
	Total int
	Pages int
	Page  int
	Limit int
	Links map[string]string // rel -> url
}

var linkPattern = regexp.MustCompile(`<([^>]*)>\s*;\s*rel="([^"]+)"`)

// Pagination parses the X-Pagination-* and Link headers. Missing headers
// leave zero values.
func (r *Response) Pagination() (Pagination, error) {
	p := Pagination{Links: make(map[string]string)}
	fields := []struct {
		header string
		dst    *int
	}{
		{HeaderPaginationTotal, &p.Total},
		{HeaderPaginationPages, &p.Pages},
		{HeaderPaginationPage, &p.Page},
		{HeaderPaginationLimit, &p.Limit},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(r.Headers.Get(f.header))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Pagination{}, fmt.Errorf("gorest: invalid %s header %q: %w", f.header, raw, err)
		}
		*f.dst = n
	}
	for _, m := range linkPattern.FindAllStringSubmatch(r.Headers.Get("Link"), -1) {
		p.Links[m[2]] = m[1]
	}
	return p, nil
}

// RateLimit parses the X-RateLimit-* headers.
func (r *Response) RateLimit() (ratelimit.Info, bool, error) {
	return ratelimit.ParseHeaders(r.Headers)
}

func decodeBody[T any](r *Response, fromXML func([]byte) (T, error)) (T, error) {
	if r.BodyFormat() == FormatXML {
		return fromXML(r.Body)
	}
	var v T
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return v, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return v, nil
}

func decodeList[T any](r *Response, fromXML func([]byte) ([]T, error)) ([]T, error) {
	list, err := decodeBody(r, fromXML)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, fmt.Errorf("%w: expected a list, got %q", ErrDecode, r.String())
	}
	return list, nil
}

// User decodes a single user.
func (r *Response) User() (model.User, error) { return decodeBody(r, xmlnorm.DecodeUser) }

// Users decodes a user list.
func (r *Response) Users() ([]model.User, error) { return decodeList(r, xmlnorm.DecodeUsers) }

// Post decodes a single post.
func (r *Response) Post() (model.Post, error) { return decodeBody(r, xmlnorm.DecodePost) }

// Posts decodes a post list.
func (r *Response) Posts() ([]model.Post, error) { return decodeList(r, xmlnorm.DecodePosts) }

// Comment decodes a single comment.
func (r *Response) Comment() (model.Comment, error) {
	return decodeBody(r, xmlnorm.DecodeComment)
}

// Comments decodes a comment list.
func (r *Response) Comments() ([]model.Comment, error) {
	return decodeList(r, xmlnorm.DecodeComments)
}

// Todo decodes a single todo.
func (r *Response) Todo() (model.Todo, error) { return decodeBody(r, xmlnorm.DecodeTodo) }

// Todos decodes a todo list.
func (r *Response) Todos() ([]model.Todo, error) { return decodeList(r, xmlnorm.DecodeTodos) }

// Message decodes an error body: {"message": ...} or a list of field errors
// in JSON, the matching envelopes in XML.
func (r *Response) Message() (model.Message, error) {
	if r.BodyFormat() == FormatXML {
		return xmlnorm.DecodeMessage(r.Body)
	}

	body := bytes.TrimSpace(r.Body)
	switch {
	case bytes.HasPrefix(body, []byte("{")):
		var simple struct {
			Message *string `json:"message"`
		}
		if err := json.Unmarshal(body, &simple); err != nil {
			return model.Message{}, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		if simple.Message == nil {
			return model.Message{}, fmt.Errorf("%w: object has no message", ErrDecode)
		}
		return model.SimpleMessage(*simple.Message), nil

	case bytes.HasPrefix(body, []byte("[")):
		var raw []model.ErrorDetail
		if err := json.Unmarshal(body, &raw); err != nil {
			return model.Message{}, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		var details []model.ErrorDetail
		for _, d := range raw {
			if d.Field != "" && d.Message != "" {
				details = append(details, d)
			}
		}
		if len(details) == 0 {
			return model.Message{}, fmt.Errorf("%w: no element carries both field and message", ErrDecode)
		}
		return model.ValidationMessage(details...), nil

	default:
		return model.Message{}, fmt.Errorf("%w: not an error body: %q", ErrDecode, r.String())
	}
}
