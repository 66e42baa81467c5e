package server

import (
	"net/http"
	"strings"
)

// recorder captures what a handler wrote for the access log.
type recorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
	err         error // Fault behind a 500, if any
}

func (r *recorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.status = status
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *recorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// logRequests writes one access log line per request. In quiet mode only
// requests that failed with a fault are logged.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if s.opts.Quiet && rec.err == nil {
			return
		}

		keyvals := []any{
			"client", clientAddr(r),
			"method", r.Method,
			"uri", r.URL.RequestURI(),
			"status", rec.status,
			"bytes", rec.bytes,
			"agent", userAgent(r),
		}
		if rec.err != nil {
			s.logger.Error("request failed", append(keyvals, "err", rec.err)...)
			return
		}
		s.logger.Info("request", keyvals...)
	})
}

// withCORS allows any origin to read and publish.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "OPTIONS, PUT, GET")
		if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
			h.Set("Access-Control-Allow-Headers", req)
		}
		h.Set("Access-Control-Max-Age", "3628800")
		next.ServeHTTP(w, r)
	})
}

// dispatch runs next on the executor and waits for it. When no worker can
// be had before the client goes away the request is answered with 503.
func (s *Server) dispatch(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		done := make(chan struct{})
		err := s.exec.Submit(r.Context(), func() {
			defer close(done)
			next.ServeHTTP(w, r)
		})
		if err != nil {
			s.logger.Warn("request not scheduled", "uri", r.URL.RequestURI(), "err", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		<-done
	})
}

func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	return r.RemoteAddr
}

func userAgent(r *http.Request) string {
	if ua := r.UserAgent(); ua != "" {
		return ua
	}
	return "?"
}
