package router

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/changelogd/internal/apierr"
	"github.com/dreamware/changelogd/internal/auth"
	"github.com/dreamware/changelogd/internal/storage"
)

const secret = "s3cret"

func newRouter(t *testing.T) *Router {
	t.Helper()
	return New(storage.NewFileStoreFs(afero.NewMemMapFs()), auth.NewGuard(secret))
}

func put(t *testing.T, rt *Router, path, key, body string) (Response, error) {
	t.Helper()
	return rt.Route(context.Background(), Request{
		Method:     http.MethodPut,
		Path:       path,
		Credential: key,
		Body:       strings.NewReader(body),
	})
}

func get(t *testing.T, rt *Router, path string) (Response, error) {
	t.Helper()
	return rt.Route(context.Background(), Request{Method: http.MethodGet, Path: path})
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		path string
		want Target
		code apierr.Code
	}{
		{path: "/alpha", want: Target{Module: "alpha"}},
		{path: "/alpha/", want: Target{Module: "alpha"}},
		{path: "alpha", want: Target{Module: "alpha"}},
		{path: "/alpha/1.0.0", want: Target{Module: "alpha", Version: "1.0.0", HasVersion: true}},
		{path: "/alpha/1.0.0/", want: Target{Module: "alpha", Version: "1.0.0", HasVersion: true}},
		{path: "/alpha//", want: Target{Module: "alpha", Version: "", HasVersion: true}},
		{path: "", code: apierr.CodeNotFound},
		{path: "/", code: apierr.CodeNotFound},
		{path: "//", code: apierr.CodeNotFound},
		{path: "/a/b/c", code: apierr.CodeBadRequest},
		{path: "/a/b/c/", code: apierr.CodeBadRequest},
		{path: "/a//c", code: apierr.CodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := ParsePath(tt.path)
			if tt.code != "" {
				require.Error(t, err)
				assert.Equal(t, tt.code, apierr.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestScenarios walks the documented request sequences end to end
// through the router and a real store.
func TestScenarios(t *testing.T) {
	t.Run("put then get", func(t *testing.T) {
		rt := newRouter(t)

		resp, err := put(t, rt, "/alpha/1.0.0", secret, "hello")
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.Status)
		assert.Empty(t, resp.Body)

		resp, err = get(t, rt, "/alpha/1.0.0")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Status)
		assert.Equal(t, ContentType, resp.ContentType)
		assert.Equal(t, "hello\n", string(resp.Body))
	})

	t.Run("latest follows the version order", func(t *testing.T) {
		rt := newRouter(t)

		_, err := put(t, rt, "/alpha/1.0.0", secret, "one")
		require.NoError(t, err)
		_, err = put(t, rt, "/alpha/2.0.0", secret, "two")
		require.NoError(t, err)

		resp, err := get(t, rt, "/alpha")
		require.NoError(t, err)
		assert.Equal(t, "two\n", string(resp.Body))

		resp, err = get(t, rt, "/alpha/")
		require.NoError(t, err)
		assert.Equal(t, "two\n", string(resp.Body))
	})

	t.Run("unknown module", func(t *testing.T) {
		rt := newRouter(t)

		_, err := get(t, rt, "/nope")
		assert.True(t, errors.Is(err, apierr.ErrNotFound))

		_, err = get(t, rt, "/nope/1.0")
		assert.True(t, errors.Is(err, apierr.ErrNotFound))
	})

	t.Run("wrong key leaves content unchanged", func(t *testing.T) {
		rt := newRouter(t)

		_, err := put(t, rt, "/alpha/1.0.0", secret, "original")
		require.NoError(t, err)

		_, err = put(t, rt, "/alpha/1.0.0", "wrong", "overwritten")
		assert.True(t, errors.Is(err, apierr.ErrUnauthorized))

		_, err = put(t, rt, "/alpha/1.0.0", "", "overwritten")
		assert.True(t, errors.Is(err, apierr.ErrUnauthorized))

		resp, err := get(t, rt, "/alpha/1.0.0")
		require.NoError(t, err)
		assert.Equal(t, "original\n", string(resp.Body))
	})

	t.Run("three segments", func(t *testing.T) {
		rt := newRouter(t)

		_, err := get(t, rt, "/a/b/c")
		assert.True(t, errors.Is(err, apierr.ErrBadRequest))
	})
}

func TestPutValidation(t *testing.T) {
	rt := newRouter(t)

	t.Run("credential checked before version", func(t *testing.T) {
		_, err := put(t, rt, "/alpha", "wrong", "x")
		assert.True(t, errors.Is(err, apierr.ErrUnauthorized))

		_, err = put(t, rt, "/alpha/%20", "wrong", "x")
		assert.True(t, errors.Is(err, apierr.ErrUnauthorized))
	})

	t.Run("missing version", func(t *testing.T) {
		_, err := put(t, rt, "/alpha", secret, "x")
		assert.True(t, errors.Is(err, apierr.ErrBadRequest))
	})

	t.Run("blank version", func(t *testing.T) {
		_, err := put(t, rt, "/alpha/   ", secret, "x")
		assert.True(t, errors.Is(err, apierr.ErrBadRequest))

		_, err = put(t, rt, "/alpha//", secret, "x")
		assert.True(t, errors.Is(err, apierr.ErrBadRequest))
	})

	t.Run("invalid module name", func(t *testing.T) {
		_, err := put(t, rt, "/../1.0", secret, "x")
		assert.True(t, errors.Is(err, apierr.ErrBadRequest))
	})

	t.Run("nil body stores a lone newline", func(t *testing.T) {
		_, err := rt.Route(context.Background(), Request{Method: http.MethodPut, Path: "/empty/1", Credential: secret})
		require.NoError(t, err)

		resp, err := get(t, rt, "/empty/1")
		require.NoError(t, err)
		assert.Equal(t, "\n", string(resp.Body))
	})
}

func TestUnsupportedMethods(t *testing.T) {
	rt := newRouter(t)

	for _, method := range []string{http.MethodPost, http.MethodDelete, http.MethodPatch, http.MethodHead} {
		t.Run(method, func(t *testing.T) {
			_, err := rt.Route(context.Background(), Request{Method: method, Path: "/alpha/1.0"})
			assert.True(t, errors.Is(err, apierr.ErrBadRequest))
		})
	}
}

// brokenStore fails every operation with an I/O style error.
type brokenStore struct{}

var errDisk = errors.New("disk on fire")

func (brokenStore) Latest(context.Context, string) (string, error)      { return "", errDisk }
func (brokenStore) Get(context.Context, string, string) ([]byte, error) { return nil, errDisk }
func (brokenStore) Put(context.Context, string, string, []byte) error   { return errDisk }
func (brokenStore) Versions(context.Context, string) ([]string, error)  { return nil, errDisk }

func TestStoreFaultsAreInternal(t *testing.T) {
	rt := New(brokenStore{}, auth.NewGuard(secret))

	_, err := get(t, rt, "/alpha")
	assert.Equal(t, apierr.CodeInternal, apierr.CodeOf(err))
	assert.True(t, errors.Is(err, errDisk))

	_, err = get(t, rt, "/alpha/1.0")
	assert.Equal(t, apierr.CodeInternal, apierr.CodeOf(err))

	_, err = put(t, rt, "/alpha/1.0", secret, "x")
	assert.Equal(t, apierr.CodeInternal, apierr.CodeOf(err))
}

func TestBodyTooLarge(t *testing.T) {
	rt := newRouter(t)

	body := http.MaxBytesReader(httptest.NewRecorder(), io.NopCloser(strings.NewReader("0123456789")), 4)
	_, err := rt.Route(context.Background(), Request{Method: http.MethodPut, Path: "/alpha/1", Credential: secret, Body: body})
	assert.True(t, errors.Is(err, apierr.ErrBadRequest))

	_, err = get(t, rt, "/alpha/1")
	assert.True(t, errors.Is(err, apierr.ErrNotFound))
}
