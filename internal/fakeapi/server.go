// Package fakeapi serves an in-memory replica of the gorest public API:
// users with nested posts, comments and todos, JSON or XML by path suffix,
// bearer token ownership, gorest validation messages, pagination headers and
// per-token rate limits.
package fakeapi

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/FairForge/gorest-e2e/internal/model"
	"github.com/FairForge/gorest-e2e/internal/ratelimit"
	"github.com/FairForge/gorest-e2e/internal/xmlnorm"
)

// BasePath is where the API is mounted.
const BasePath = "/public/v2"

// Options configure a Server.
type Options struct {
	// Tokens maps accepted bearer tokens to their request limit per Window.
	// A limit of 0 uses DefaultLimit. When empty, any bearer token is accepted.
	Tokens       map[string]int
	DefaultLimit int
	Window       time.Duration
	SeedUsers    int
}

func (o *Options) applyDefaults() {
	if o.DefaultLimit == 0 {
		o.DefaultLimit = 600
	}
	if o.Window == 0 {
		o.Window = time.Minute
	}
}

// Server is the fake gorest API.
type Server struct {
	store   *Store
	tokens  map[string]int
	limiter *ratelimit.KeyedLimiter
	metrics *Metrics
	logger  *zap.Logger
	handler http.Handler
}

// New creates a server with a freshly seeded store.
func New(opts Options, logger *zap.Logger) *Server {
	opts.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		store:   NewStore(opts.SeedUsers),
		tokens:  opts.Tokens,
		limiter: ratelimit.NewKeyedLimiter(opts.DefaultLimit, opts.Window),
		metrics: NewMetrics(),
		logger:  logger,
	}
	for token, limit := range opts.Tokens {
		if limit > 0 {
			s.limiter.SetLimit(token, limit)
		}
	}
	s.handler = gzhttp.GzipHandler(s.routes())
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.handler }

// Store returns the data behind the server.
func (s *Server) Store() *Store { return s.store }

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics { return s.metrics }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(selectFormat)
	r.NotFound(s.pageNotFound)
	r.MethodNotAllowed(s.pageNotFound)

	r.Handle("/metrics", s.metrics.Handler())

	r.Route(BasePath, func(r chi.Router) {
		r.Use(s.observe)
		r.Use(s.limiter.Middleware(rateKey, s.tooManyRequests))
		r.Use(s.authenticate)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.listUsers)
			r.With(s.requireToken).Post("/", s.createUser)
			r.Options("/", options(http.MethodGet, http.MethodPost))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getUser)
				r.With(s.requireToken).Patch("/", s.updateUser)
				r.With(s.requireToken).Put("/", s.updateUser)
				r.With(s.requireToken).Delete("/", s.deleteUser)
				r.Options("/", options(http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodDelete))

				r.Get("/posts", s.listUserPosts)
				r.With(s.requireToken).Post("/posts", s.createUserPost)
				r.Get("/todos", s.listUserTodos)
				r.With(s.requireToken).Post("/todos", s.createUserTodo)
			})
		})

		r.Get("/posts", s.listPosts)
		r.Get("/posts/{id}", s.getPost)
		r.Get("/posts/{id}/comments", s.listPostComments)
		r.With(s.requireToken).Post("/posts/{id}/comments", s.createPostComment)

		r.Get("/comments", s.listComments)
		r.Get("/comments/{id}", s.getComment)

		r.Get("/todos", s.listTodos)
		r.Get("/todos/{id}", s.getTodo)
	})
	return r
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.metrics.Observe(r.Method, route, status, elapsed)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", elapsed),
			zap.String("request_id", w.Header().Get("X-Request-Id")))
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func rateKey(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func (s *Server) tooManyRequests(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	s.metrics.RateLimitHits.Inc()
	s.logger.Info("rate limit exceeded", zap.String("path", r.URL.Path), zap.Int("limit", info.Limit))
	s.message(w, r, http.StatusTooManyRequests, "Too many requests")
}

type tokenKey struct{}

func (s *Server) validToken(token string) bool {
	if len(s.tokens) == 0 {
		return token != ""
	}
	_, ok := s.tokens[token]
	return ok
}

// authenticate rejects requests carrying an unknown token and remembers the
// token of the others. Requests without one stay anonymous.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r)
		if !s.validToken(token) {
			s.message(w, r, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tokenKey{}, token)))
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tokenOf(r) == "" {
			s.message(w, r, http.StatusUnauthorized, "Authentication failed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tokenOf(r *http.Request) string {
	token, _ := r.Context().Value(tokenKey{}).(string)
	return token
}

func options(methods ...string) http.HandlerFunc {
	allow := strings.Join(append(methods, http.MethodOptions), ", ")
	return func(w http.ResponseWriter, _ *http.Request) {
		h := w.Header()
		h.Set("Allow", allow)
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", allow)
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		w.WriteHeader(http.StatusNoContent)
	}
}

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil && id > 0
}

func listFilter(r *http.Request) Filter {
	f := Filter{}
	for key, values := range r.URL.Query() {
		if key == "page" || key == "per_page" || len(values) == 0 {
			continue
		}
		f[key] = values[0]
	}
	return f
}

// decodeInput reads a JSON request body into v. An empty body leaves v as is.
func (s *Server) decodeInput(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	s.logger.Debug("invalid request body", zap.Error(err))
	s.message(w, r, http.StatusBadRequest, "Invalid request body")
	return false
}

// respond writes v with status, or the error response matching err.
func respond[T xmlnorm.Record](s *Server, w http.ResponseWriter, r *http.Request, status int, v T, err error) {
	var verr *ValidationError
	switch {
	case err == nil:
		renderRecord(s, w, r, status, v)
	case errors.As(err, &verr):
		s.renderMessage(w, r, http.StatusUnprocessableEntity, model.ValidationMessage(verr.Details...))
	case errors.Is(err, ErrNotFound):
		s.notFound(w, r)
	default:
		s.internalError(w, err)
	}
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	renderList(s, w, r, s.store.ListUsers(tokenOf(r), listFilter(r)))
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var in UserInput
	if !s.decodeInput(w, r, &in) {
		return
	}
	u, err := s.store.CreateUser(tokenOf(r), in)
	if err == nil {
		s.logger.Info("user created", zap.Int("id", u.ID))
	}
	respond(s, w, r, http.StatusCreated, u, err)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	u, err := s.store.GetUser(tokenOf(r), id)
	respond(s, w, r, http.StatusOK, u, err)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	var in UserInput
	if !s.decodeInput(w, r, &in) {
		return
	}
	u, err := s.store.UpdateUser(tokenOf(r), id, in)
	respond(s, w, r, http.StatusOK, u, err)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	if err := s.store.DeleteUser(tokenOf(r), id); err != nil {
		s.notFound(w, r)
		return
	}
	s.logger.Info("user deleted", zap.Int("id", id))
	w.WriteHeader(http.StatusNoContent)
}

// nested narrows a list filter to the parent named by the path.
func nested(r *http.Request, parentField string) Filter {
	f := listFilter(r)
	f[parentField] = chi.URLParam(r, "id")
	return f
}

func (s *Server) listUserPosts(w http.ResponseWriter, r *http.Request) {
	renderList(s, w, r, s.store.ListPosts(tokenOf(r), nested(r, "user_id")))
}

func (s *Server) createUserPost(w http.ResponseWriter, r *http.Request) {
	var in PostInput
	if !s.decodeInput(w, r, &in) {
		return
	}
	userID, _ := pathID(r)
	p, err := s.store.CreatePost(tokenOf(r), userID, in)
	respond(s, w, r, http.StatusCreated, p, err)
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	renderList(s, w, r, s.store.ListPosts(tokenOf(r), listFilter(r)))
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	p, err := s.store.GetPost(tokenOf(r), id)
	respond(s, w, r, http.StatusOK, p, err)
}

func (s *Server) listPostComments(w http.ResponseWriter, r *http.Request) {
	renderList(s, w, r, s.store.ListComments(tokenOf(r), nested(r, "post_id")))
}

func (s *Server) createPostComment(w http.ResponseWriter, r *http.Request) {
	var in CommentInput
	if !s.decodeInput(w, r, &in) {
		return
	}
	postID, _ := pathID(r)
	c, err := s.store.CreateComment(tokenOf(r), postID, in)
	respond(s, w, r, http.StatusCreated, c, err)
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	renderList(s, w, r, s.store.ListComments(tokenOf(r), listFilter(r)))
}

func (s *Server) getComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	c, err := s.store.GetComment(tokenOf(r), id)
	respond(s, w, r, http.StatusOK, c, err)
}

func (s *Server) listUserTodos(w http.ResponseWriter, r *http.Request) {
	renderList(s, w, r, s.store.ListTodos(tokenOf(r), nested(r, "user_id")))
}

func (s *Server) createUserTodo(w http.ResponseWriter, r *http.Request) {
	var in TodoInput
	if !s.decodeInput(w, r, &in) {
		return
	}
	userID, _ := pathID(r)
	t, err := s.store.CreateTodo(tokenOf(r), userID, in)
	respond(s, w, r, http.StatusCreated, t, err)
}

func (s *Server) listTodos(w http.ResponseWriter, r *http.Request) {
	renderList(s, w, r, s.store.ListTodos(tokenOf(r), listFilter(r)))
}

func (s *Server) getTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	t, err := s.store.GetTodo(tokenOf(r), id)
	respond(s, w, r, http.StatusOK, t, err)
}
