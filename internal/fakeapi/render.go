package fakeapi

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/FairForge/gorest-e2e/internal/model"
	"github.com/FairForge/gorest-e2e/internal/xmlnorm"
)

type format int

const (
	formatJSON format = iota
	formatXML
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeXML  = "application/xml; charset=utf-8"
	contentTypeHTML = "text/html; charset=utf-8"
)

type formatKey struct{}

// selectFormat strips a .json or .xml suffix from the path and remembers
// which one was asked for. Paths without a suffix answer in JSON.
func selectFormat(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f := formatJSON
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, ".xml"):
			f = formatXML
			path = strings.TrimSuffix(path, ".xml")
		case strings.HasSuffix(path, ".json"):
			path = strings.TrimSuffix(path, ".json")
		}

		r = r.WithContext(context.WithValue(r.Context(), formatKey{}, f))
		u := *r.URL
		u.Path = path
		u.RawPath = ""
		r.URL = &u
		next.ServeHTTP(w, r)
	})
}

func formatOf(r *http.Request) format {
	if f, ok := r.Context().Value(formatKey{}).(format); ok {
		return f
	}
	return formatJSON
}

func (s *Server) write(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.logger.Debug("write response", zap.Error(err))
	}
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error("render response", zap.Error(err))
	s.write(w, http.StatusInternalServerError, contentTypeJSON, []byte(`{"message":"Internal Server Error"}`))
}

func renderJSON(s *Server, w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.write(w, status, contentTypeJSON, body)
}

func renderXML(s *Server, w http.ResponseWriter, status int, body []byte, err error) {
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.write(w, status, contentTypeXML, body)
}

func renderRecord[T xmlnorm.Record](s *Server, w http.ResponseWriter, r *http.Request, status int, v T) {
	if formatOf(r) == formatXML {
		body, err := xmlnorm.EncodeRecord(v)
		renderXML(s, w, status, body, err)
		return
	}
	renderJSON(s, w, status, v)
}

// renderList pages items per the request query and writes the page with
// the pagination headers.
func renderList[T xmlnorm.Record](s *Server, w http.ResponseWriter, r *http.Request, items []T) {
	items, p := paginate(items, r.URL.Query())
	p.setHeaders(w, r)

	if formatOf(r) == formatXML {
		body, err := xmlnorm.EncodeList(items)
		renderXML(s, w, http.StatusOK, body, err)
		return
	}
	renderJSON(s, w, http.StatusOK, items)
}

func (s *Server) renderMessage(w http.ResponseWriter, r *http.Request, status int, m model.Message) {
	if formatOf(r) == formatXML {
		body, err := xmlnorm.EncodeMessage(m)
		renderXML(s, w, status, body, err)
		return
	}
	if m.Kind == model.MessageValidation {
		renderJSON(s, w, status, m.Details)
		return
	}
	renderJSON(s, w, status, map[string]string{"message": m.Text})
}

func (s *Server) message(w http.ResponseWriter, r *http.Request, status int, text string) {
	s.renderMessage(w, r, status, model.SimpleMessage(text))
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.message(w, r, http.StatusNotFound, "Resource not found")
}

const pageNotFoundHTML = `<!DOCTYPE html>
<html>
<head><title>Page Not Found</title></head>
<body><h1>Page Not Found</h1><p>The page you are looking for does not exist.</p></body>
</html>
`

// pageNotFound answers unknown routes the way gorest does: an HTML page
// whatever the requested format.
func (s *Server) pageNotFound(w http.ResponseWriter, _ *http.Request) {
	s.write(w, http.StatusNotFound, contentTypeHTML, []byte(pageNotFoundHTML))
}

// Pagination limits
const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

type page struct {
	number  int
	perPage int
	total   int
	pages   int
}

// paginate cuts one page out of items. per_page values that are missing,
// invalid or above MaxPerPage fall back to DefaultPerPage.
func paginate[T any](items []T, q url.Values) ([]T, page) {
	p := page{number: 1, perPage: DefaultPerPage, total: len(items)}
	if n, err := strconv.Atoi(q.Get("per_page")); err == nil && n > 0 && n <= MaxPerPage {
		p.perPage = n
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		p.number = n
	}
	p.pages = int(math.Ceil(float64(p.total) / float64(p.perPage)))

	start := min((p.number-1)*p.perPage, len(items))
	end := min(start+p.perPage, len(items))
	return items[start:end], p
}

func (p page) setHeaders(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("X-Pagination-Total", strconv.Itoa(p.total))
	h.Set("X-Pagination-Pages", strconv.Itoa(p.pages))
	h.Set("X-Pagination-Page", strconv.Itoa(p.number))
	h.Set("X-Pagination-Limit", strconv.Itoa(p.perPage))

	links := []string{}
	if p.number > 1 {
		links = append(links, p.link(r, p.number-1, "prev"))
	}
	links = append(links, p.link(r, p.number, "current"))
	if p.number < p.pages {
		links = append(links, p.link(r, p.number+1, "next"))
	}
	h.Set("Link", strings.Join(links, ", "))
}

func (p page) link(r *http.Request, number int, rel string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(number))
	return fmt.Sprintf(`<%s://%s%s?%s>; rel="%s"`, scheme, r.Host, r.URL.Path, q.Encode(), rel)
}
