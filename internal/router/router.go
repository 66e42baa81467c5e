// Package router maps a request onto a version store operation.
//
// The router is transport-neutral: it takes a Request holding the method,
// path, write credential and body, and returns a Response or a typed
// apierr.Error. The HTTP facade owns everything else (sockets, headers,
// CORS, logging and preflight requests).
//
// Path rules:
//   - /{module}            GET resolves the latest version
//   - /{module}/{version}  GET reads, PUT publishes
//
// A single leading and a single trailing slash are ignored. An empty path
// is NotFound, more than two segments is BadRequest.
package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dreamware/changelogd/internal/apierr"
	"github.com/dreamware/changelogd/internal/storage"
)

// ContentType is the media type of every artifact body.
const ContentType = "text/plain; charset=utf-8"

// Authorizer checks a write credential.
type Authorizer interface {
	Authorize(credential string) error
}

// Request is one inbound operation.
type Request struct {
	Method     string
	Path       string
	Credential string    // Value of the write credential header, "" if absent
	Body       io.Reader // Artifact content for PUT; may be nil otherwise
}

// Response is the successful outcome of a request.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Target is a parsed request path.
type Target struct {
	Module     string
	Version    string
	HasVersion bool
}

// Router dispatches requests to a store. It holds no mutable state and is
// safe for concurrent use.
type Router struct {
	store storage.Store
	auth  Authorizer
}

// New creates a router over store, authorizing writes with auth.
func New(store storage.Store, auth Authorizer) *Router {
	return &Router{store: store, auth: auth}
}

// ParsePath splits a request path into module and optional version.
func ParsePath(path string) (Target, error) {
	path = strings.TrimPrefix(path, "/")
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return Target{}, apierr.New(apierr.CodeNotFound, "empty path")
	}

	segs := strings.Split(path, "/")
	switch len(segs) {
	case 1:
		return Target{Module: segs[0]}, nil
	case 2:
		return Target{Module: segs[0], Version: segs[1], HasVersion: true}, nil
	default:
		return Target{}, apierr.New(apierr.CodeBadRequest, fmt.Sprintf("path has %d segments", len(segs)))
	}
}

// Route executes req. Errors are *apierr.Error values; anything coded
// Internal should be reported by the caller as a generic failure.
func (rt *Router) Route(ctx context.Context, req Request) (Response, error) {
	target, err := ParsePath(req.Path)
	if err != nil {
		return Response{}, err
	}

	switch req.Method {
	case http.MethodGet:
		return rt.get(ctx, target)
	case http.MethodPut:
		return rt.put(ctx, target, req)
	default:
		return Response{}, apierr.New(apierr.CodeBadRequest, fmt.Sprintf("method %s not supported", req.Method))
	}
}

func (rt *Router) get(ctx context.Context, target Target) (Response, error) {
	ver := target.Version
	if !target.HasVersion {
		latest, err := rt.store.Latest(ctx, target.Module)
		if err != nil {
			return Response{}, storeError("resolve latest", err)
		}
		ver = latest
	}

	data, err := rt.store.Get(ctx, target.Module, ver)
	if err != nil {
		return Response{}, storeError("get version", err)
	}
	return Response{Status: http.StatusOK, ContentType: ContentType, Body: data}, nil
}

// put checks the credential before looking at the version, so an
// unauthenticated caller learns nothing about what it sent.
func (rt *Router) put(ctx context.Context, target Target, req Request) (Response, error) {
	if err := rt.auth.Authorize(req.Credential); err != nil {
		return Response{}, err
	}
	if !target.HasVersion || strings.TrimSpace(target.Version) == "" {
		return Response{}, apierr.New(apierr.CodeBadRequest, "write requires a version")
	}

	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return Response{}, apierr.Wrap(apierr.CodeBadRequest, "body too large", err)
			}
			return Response{}, apierr.Wrap(apierr.CodeBadRequest, "read body", err)
		}
	}

	if err := rt.store.Put(ctx, target.Module, target.Version, body); err != nil {
		return Response{}, storeError("put version", err)
	}
	return Response{Status: http.StatusNoContent}, nil
}

func storeError(op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apierr.Wrap(apierr.CodeNotFound, op, err)
	case errors.Is(err, storage.ErrInvalidName):
		return apierr.Wrap(apierr.CodeBadRequest, op, err)
	default:
		return apierr.Wrap(apierr.CodeInternal, op, err)
	}
}
