// Package mock provides a canned-response HTTP handler for exercising the
// request pipeline without a real application.
package mock

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/microtest/packages/core/log"
	"github.com/sirupsen/logrus"
)

// Server serves registered replies. It implements http.Handler and is usually
// started through app.FromHandler.
type Server struct {
	mu     sync.RWMutex
	router *Router
	delay  time.Duration
	logger logrus.FieldLogger
	hits   map[string]int
}

// Option is a functional option for Server
type Option func(*Server)

// WithDelay adds a delay to all responses
func WithDelay(delay time.Duration) Option {
	return func(s *Server) {
		s.delay = delay
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a server with no routes
func NewServer(opts ...Option) *Server {
	s := &Server{
		router: NewRouter(),
		hits:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = log.ForComponent(s.logger, "mock")
	return s
}

// Reply registers a canned reply
func (s *Server) Reply(method, pattern string, reply *Reply) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reply.StatusCode == 0 {
		reply.StatusCode = http.StatusOK
	}
	s.router.Add(method, pattern, reply)
	return s
}

// Text registers a text/plain reply
func (s *Server) Text(method, pattern string, status int, body string) *Server {
	return s.Reply(method, pattern, &Reply{
		StatusCode:  status,
		ContentType: "text/plain; charset=utf-8",
		Body:        body,
	})
}

// JSON registers a reply with v encoded as the body. It panics if v cannot be
// encoded, which only happens for programming errors in test setup.
func (s *Server) JSON(method, pattern string, status int, v any) *Server {
	data, err := json.Marshal(v)
	if err != nil {
		panic("mock: encoding reply: " + err.Error())
	}
	return s.Reply(method, pattern, &Reply{
		StatusCode:  status,
		ContentType: "application/json",
		Body:        string(data),
	})
}

// Hits returns how many requests matched the route for method and pattern
func (s *Server) Hits(method, pattern string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hits[strings.ToUpper(method)+" "+normalizePath(pattern)]
}

// Routes returns all registered routes
func (s *Server) Routes() []*Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.router.Routes()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	route, params := s.router.Match(r.Method, r.URL.Path)
	if route != nil {
		s.hits[route.Method+" "+route.PathPattern]++
	}
	s.mu.Unlock()

	entry := s.logger.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path})
	if route == nil {
		entry.WithField("duration", time.Since(start)).Debug("no route matched")
		http.NotFound(w, r)
		return
	}

	reply := route.Reply
	for key, value := range reply.Headers {
		w.Header().Set(key, value)
	}
	if reply.ContentType != "" {
		w.Header().Set("Content-Type", reply.ContentType)
	}

	w.WriteHeader(reply.StatusCode)
	_, _ = w.Write([]byte(expandParams(reply.Body, params)))

	entry.WithFields(logrus.Fields{
		"status":   reply.StatusCode,
		"duration": time.Since(start),
	}).Debug("served mock reply")
}

func expandParams(body string, params map[string]string) string {
	if len(params) == 0 {
		return body
	}
	return paramPattern.ReplaceAllStringFunc(body, func(match string) string {
		name := paramPattern.FindStringSubmatch(match)[1]
		if v, ok := params[name]; ok {
			return v
		}
		return match
	})
}
