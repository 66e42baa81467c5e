// Package server is the HTTP facade in front of the router.
//
// The facade owns the transport concerns the router is kept free of:
//
//	┌───────────────────────────────────────┐
//	│ otelhttp        - server spans        │
//	│ access log      - one line per request│
//	│ CORS            - headers on replies  │
//	│ dispatch        - run on worker pool  │
//	│ serve           - OPTIONS, panics,    │
//	│                   router outcomes     │
//	└───────────────────────────────────────┘
//	                  │
//	                  ▼
//	           router.Route
//
// Errors coded Internal, and panics, become a generic 500 with the cause
// logged; every other outcome maps to its status with an empty body.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dreamware/changelogd/internal/apierr"
	"github.com/dreamware/changelogd/internal/auth"
	"github.com/dreamware/changelogd/internal/router"
	"github.com/dreamware/changelogd/internal/workpool"
)

// InternalErrorBody is the body of every 500 response.
const InternalErrorBody = "There was an internal error processing this request."

// Router executes a transport-neutral request.
type Router interface {
	Route(ctx context.Context, req router.Request) (router.Response, error)
}

// Options configures the facade.
type Options struct {
	Addr              string        // Listen address, host:port
	Quiet             bool          // Suppress access logs for successful requests
	MaxBodyBytes      int64         // Largest accepted request body
	ReadHeaderTimeout time.Duration // Bound on reading request headers
	ShutdownTimeout   time.Duration // Grace period for in-flight requests
}

// Server serves the version store over HTTP.
type Server struct {
	opts   Options
	router Router
	exec   workpool.Executor
	logger *log.Logger
	http   *http.Server
}

// New creates a server. Requests are executed on exec.
func New(opts Options, rt Router, exec workpool.Executor, logger *log.Logger) *Server {
	if opts.ReadHeaderTimeout == 0 {
		opts.ReadHeaderTimeout = 5 * time.Second
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}

	s := &Server{
		opts:   opts,
		router: rt,
		exec:   exec,
		logger: logger,
	}
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
	}
	return s
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = http.HandlerFunc(s.serve)
	h = s.dispatch(h)
	h = withCORS(h)
	h = s.logRequests(h)
	return otelhttp.NewHandler(h, "changelogd",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method
		}),
	)
}

// ListenAndServe binds opts.Addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully, giving in-flight requests ShutdownTimeout to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "timeout", s.opts.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errCh
	return nil
}

// serve runs on a pool worker. It answers preflight requests itself and
// hands everything else to the router.
func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if v := recover(); v != nil {
			fail(w, fmt.Errorf("panic: %v", v))
		}
	}()

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	req := router.Request{
		Method:     r.Method,
		Path:       r.URL.Path,
		Credential: r.Header.Get(auth.Header),
	}
	if r.Method == http.MethodPut {
		req.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	}

	resp, err := s.router.Route(r.Context(), req)
	if err != nil {
		code := apierr.CodeOf(err)
		if code == apierr.CodeInternal {
			fail(w, err)
			return
		}
		w.WriteHeader(code.HTTPStatus())
		return
	}

	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	if resp.Body != nil {
		w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	}
	w.WriteHeader(resp.Status)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}

// fail writes the generic internal error and records err for the access
// log.
func fail(w http.ResponseWriter, err error) {
	if rec, ok := w.(*recorder); ok {
		rec.err = err
		if rec.wroteHeader {
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(InternalErrorBody))
}
