// Package api serves CEP lookups as JSON over ceprd's Unix socket.
// Handlers are gin routes; lookups are delegated to a Resolver.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/lc/cepr/internal/buildinfo"
	"github.com/lc/cepr/internal/socket"
	"github.com/lc/cepr/pkg/cep"
)

const requestIDHeader = "X-Request-ID"

// Resolver is what the server needs from a *cep.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, code string) (cep.Result, error)
	Sources() []cep.Source
}

var _ Resolver = (*cep.Resolver)(nil)

// LookupResponse is returned for a resolved CEP.
type LookupResponse struct {
	ID      string        `json:"id"`
	Source  cep.Source    `json:"source"`
	Address cep.Address   `json:"address"`
	Elapsed time.Duration `json:"elapsed"`
}

// ProviderError describes one provider failure inside an ErrorResponse.
type ProviderError struct {
	Source  cep.Source `json:"source"`
	Kind    string     `json:"kind"`
	Code    int        `json:"code,omitempty"`
	Message string     `json:"message"`
}

// ErrorResponse is returned when a lookup fails. It doubles as the error
// value pkg/client hands back.
type ErrorResponse struct {
	ID      string          `json:"id"`
	Message string          `json:"error"`
	Kind    string          `json:"kind,omitempty"`
	Source  cep.Source      `json:"source,omitempty"`
	Errors  []ProviderError `json:"errors,omitempty"`
}

func (e *ErrorResponse) Error() string { return e.Message }

// StatusResponse reports daemon counters since start.
type StatusResponse struct {
	Lookups   int64         `json:"lookups"`
	Failures  int64         `json:"failures"`
	Providers []cep.Source  `json:"providers"`
	Uptime    time.Duration `json:"uptime"`
	Version   string        `json:"version"`
	Commit    string        `json:"commit"`
}

// Server handles API requests.
type Server struct {
	resolver Resolver
	logger   *zap.SugaredLogger
	start    time.Time
	lookups  atomic.Int64
	failures atomic.Int64

	router *gin.Engine
	srv    *http.Server
}

// Opt configures a Server.
type Opt func(*Server)

// WithLogger sets the request logger. The default discards.
func WithLogger(l *zap.SugaredLogger) Opt {
	return func(s *Server) {
		s.logger = l
	}
}

// New returns a Server resolving through r.
func New(r Resolver, opts ...Opt) *Server {
	s := &Server{
		resolver: r,
		logger:   zap.NewNop().Sugar(),
		start:    time.Now(),
	}
	for _, o := range opts {
		o(s)
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery(), s.requestID, s.logRequest)
	v1 := s.router.Group("/v1")
	v1.GET("/address/:cep", s.handleAddress)
	v1.GET("/status", s.handleStatus)

	s.srv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routes, for tests and custom listeners.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on the Unix socket at path.
func (s *Server) ListenAndServe(path string) error {
	ln, err := socket.Listen(path)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }

func (s *Server) handleAddress(c *gin.Context) {
	id := c.GetString(requestIDHeader)
	start := time.Now()
	s.lookups.Inc()

	res, err := s.resolver.Resolve(c.Request.Context(), c.Param("cep"))
	if err != nil {
		s.failures.Inc()
		status, body := errorResponse(id, err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, LookupResponse{
		ID:      id,
		Source:  res.Source,
		Address: res.Address,
		Elapsed: time.Since(start),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Lookups:   s.lookups.Load(),
		Failures:  s.failures.Load(),
		Providers: s.resolver.Sources(),
		Uptime:    time.Since(s.start),
		Version:   buildinfo.Version,
		Commit:    buildinfo.Commit,
	})
}

// errorResponse maps a lookup failure onto a status and body: provider
// failures are a bad gateway, anything else is ours.
func errorResponse(id string, err error) (int, *ErrorResponse) {
	resp := &ErrorResponse{ID: id, Message: err.Error()}

	var cerr *cep.Error
	if !errors.As(err, &cerr) {
		return http.StatusInternalServerError, resp
	}
	resp.Kind = cerr.Kind.String()
	resp.Source = cerr.Source

	subs := cerr.Errors
	if len(subs) == 0 {
		subs = []*cep.Error{cerr}
	}
	for _, sub := range subs {
		resp.Errors = append(resp.Errors, ProviderError{
			Source:  sub.Source,
			Kind:    sub.Kind.String(),
			Code:    sub.Code,
			Message: sub.Error(),
		})
	}
	return http.StatusBadGateway, resp
}

func (s *Server) requestID(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	c.Set(requestIDHeader, id)
	c.Header(requestIDHeader, id)
	c.Next()
}

func (s *Server) logRequest(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Infow("request",
		"id", c.GetString(requestIDHeader),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"elapsed", time.Since(start),
	)
}
