package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/changelogd/internal/apierr"
	"github.com/dreamware/changelogd/internal/auth"
	"github.com/dreamware/changelogd/internal/logging"
	"github.com/dreamware/changelogd/internal/router"
	"github.com/dreamware/changelogd/internal/server"
	"github.com/dreamware/changelogd/internal/storage"
	"github.com/dreamware/changelogd/internal/workpool"
)

const secret = "s3cret"

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	pool, err := workpool.New(4)
	require.NoError(t, err)
	rt := router.New(storage.NewFileStoreFs(afero.NewMemMapFs()), auth.NewGuard(secret))
	srv := server.New(server.Options{MaxBodyBytes: 1 << 20}, rt, pool, logging.Discard())

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = pool.Close(context.Background())
	})
	return ts
}

func TestRoundTrip(t *testing.T) {
	ts := newBackend(t)
	ctx := context.Background()
	c := New(ts.URL+"/", secret)

	require.NoError(t, c.Put(ctx, "app", "1.0", []byte("first")))
	require.NoError(t, c.Put(ctx, "app", "1.1-beta", []byte("second\n\n")))
	require.NoError(t, c.Put(ctx, "app", "1.0.1", []byte("third")))

	got, err := c.Get(ctx, "app", "1.1-beta")
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(got))

	latest, err := c.Latest(ctx, "app")
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(latest))
}

func TestErrors(t *testing.T) {
	ts := newBackend(t)
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		_, err := New(ts.URL, "").Latest(ctx, "missing")
		require.Error(t, err)
		assert.True(t, errors.Is(err, apierr.ErrNotFound))
	})

	t.Run("unauthorized", func(t *testing.T) {
		err := New(ts.URL, "nope").Put(ctx, "app", "1.0", []byte("x"))
		require.Error(t, err)
		assert.Equal(t, apierr.CodeUnauthorized, apierr.CodeOf(err))
	})

	t.Run("no key", func(t *testing.T) {
		err := New(ts.URL, "").Put(ctx, "app", "1.0", []byte("x"))
		assert.Equal(t, apierr.CodeUnauthorized, apierr.CodeOf(err))
	})

	t.Run("slash in a name is escaped", func(t *testing.T) {
		_, err := New(ts.URL, "").Get(ctx, "app", "1.0/extra")
		require.Error(t, err)
		assert.NotEqual(t, apierr.CodeInternal, apierr.CodeOf(err))
	})

	t.Run("server fault", func(t *testing.T) {
		broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, server.InternalErrorBody)
		}))
		defer broken.Close()

		_, err := New(broken.URL, "").Get(ctx, "app", "1.0")
		assert.Equal(t, apierr.CodeInternal, apierr.CodeOf(err))
	})

	t.Run("unreachable", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		dead.Close()

		_, err := New(dead.URL, "").Get(ctx, "app", "1.0")
		require.Error(t, err)
	})
}

func TestURL(t *testing.T) {
	c := New("http://example.test/", "")
	assert.Equal(t, "http://example.test/app/1.0", c.url("app", "1.0"))
	assert.Equal(t, "http://example.test/my%20app", c.url("my app"))
}
