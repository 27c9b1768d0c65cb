package gorest

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Expectation collects assertion failures against one response. Checks keep
// running after a failure so a single Err reports everything that is off.
type Expectation struct {
	resp *Response
	errs []error
}

// Expect starts a chain of checks on r.
func (r *Response) Expect() *Expectation {
	return &Expectation{resp: r}
}

func (e *Expectation) failf(format string, args ...any) *Expectation {
	e.errs = append(e.errs, fmt.Errorf(format, args...))
	return e
}

// Status asserts the response status code.
func (e *Expectation) Status(expected int) *Expectation {
	if e.resp.StatusCode != expected {
		return e.failf("expected status %d, got %d. Body: %s", expected, e.resp.StatusCode, truncate(e.resp.String(), 300))
	}
	return e
}

// StatusOK asserts status 200.
func (e *Expectation) StatusOK() *Expectation { return e.Status(http.StatusOK) }

// StatusCreated asserts status 201.
func (e *Expectation) StatusCreated() *Expectation { return e.Status(http.StatusCreated) }

// StatusNoContent asserts status 204.
func (e *Expectation) StatusNoContent() *Expectation { return e.Status(http.StatusNoContent) }

// StatusUnauthorized asserts status 401.
func (e *Expectation) StatusUnauthorized() *Expectation { return e.Status(http.StatusUnauthorized) }

// StatusNotFound asserts status 404.
func (e *Expectation) StatusNotFound() *Expectation { return e.Status(http.StatusNotFound) }

// StatusUnprocessable asserts status 422.
func (e *Expectation) StatusUnprocessable() *Expectation {
	return e.Status(http.StatusUnprocessableEntity)
}

// StatusTooManyRequests asserts status 429.
func (e *Expectation) StatusTooManyRequests() *Expectation {
	return e.Status(http.StatusTooManyRequests)
}

// Header asserts a header value.
func (e *Expectation) Header(key, expected string) *Expectation {
	if actual := e.resp.Headers.Get(key); actual != expected {
		return e.failf("expected header %s=%q, got %q", key, expected, actual)
	}
	return e
}

// HeaderContains asserts a header contains a value.
func (e *Expectation) HeaderContains(key, substring string) *Expectation {
	if actual := e.resp.Headers.Get(key); !strings.Contains(actual, substring) {
		return e.failf("expected header %s to contain %q, got %q", key, substring, actual)
	}
	return e
}

// ContentType asserts the Content-Type header.
func (e *Expectation) ContentType(expected string) *Expectation {
	return e.HeaderContains("Content-Type", expected)
}

// JSON asserts the Content-Type is JSON.
func (e *Expectation) JSON() *Expectation { return e.ContentType("json") }

// XML asserts the Content-Type is XML.
func (e *Expectation) XML() *Expectation { return e.ContentType("xml") }

// HTML asserts the Content-Type is HTML.
func (e *Expectation) HTML() *Expectation { return e.ContentType("text/html") }

// InFormat asserts the Content-Type matches f.
func (e *Expectation) InFormat(f Format) *Expectation {
	if f == FormatXML {
		return e.XML()
	}
	return e.JSON()
}

// BodyContains asserts the body contains a substring, ignoring case.
func (e *Expectation) BodyContains(substring string) *Expectation {
	if !strings.Contains(strings.ToLower(e.resp.String()), strings.ToLower(substring)) {
		return e.failf("expected body to contain %q, got: %s", substring, truncate(e.resp.String(), 300))
	}
	return e
}

// Err returns every failed check joined, or nil.
func (e *Expectation) Err() error {
	return errors.Join(e.errs...)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
