package session

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/devicelab-dev/contacts-runner/pkg/config"
	"github.com/devicelab-dev/contacts-runner/pkg/core"
	"github.com/devicelab-dev/contacts-runner/pkg/driver/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settingsFor(t *testing.T, url string) *config.Settings {
	t.Helper()
	s, err := config.FromMap(map[string]string{
		config.KeyServerURL:    url,
		config.KeyImplicitWait: "0",
	}).Settings()
	require.NoError(t, err)
	return s
}

func TestRegistry_CreateAndDestroy(t *testing.T) {
	srv := mock.NewServer(mock.Config{})
	defer srv.Close()
	reg := NewRegistry(nil)

	sess, err := reg.Create(context.Background(), "worker-1", settingsFor(t, srv.URL()))
	require.NoError(t, err)
	assert.Equal(t, "worker-1", sess.Owner)
	assert.Equal(t, srv.URL(), sess.ServerURL)
	assert.Equal(t, mock.AppPackage, sess.Capabilities["appium:appPackage"])
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, 1, srv.ActiveSessions())

	cur, ok := reg.Current("worker-1")
	require.True(t, ok)
	assert.Same(t, sess, cur)

	require.NoError(t, reg.Destroy("worker-1"))
	_, ok = reg.Current("worker-1")
	assert.False(t, ok)
	assert.Equal(t, 0, srv.ActiveSessions())
}

func TestRegistry_DestroyIsIdempotent(t *testing.T) {
	srv := mock.NewServer(mock.Config{})
	defer srv.Close()
	reg := NewRegistry(nil)

	assert.NoError(t, reg.Destroy("nobody"))
	assert.Equal(t, 0, reg.Len())

	_, err := reg.Create(context.Background(), "w", settingsFor(t, srv.URL()))
	require.NoError(t, err)
	require.NoError(t, reg.Destroy("w"))
	assert.NoError(t, reg.Destroy("w"))
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_SecondCreateReplacesFirst(t *testing.T) {
	srv := mock.NewServer(mock.Config{})
	defer srv.Close()
	reg := NewRegistry(nil)
	settings := settingsFor(t, srv.URL())

	first, err := reg.Create(context.Background(), "w", settings)
	require.NoError(t, err)
	second, err := reg.Create(context.Background(), "w", settings)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, 1, srv.ActiveSessions())
	assert.Equal(t, 2, srv.SessionsCreated())
}

func TestRegistry_OwnersAreIsolated(t *testing.T) {
	srv := mock.NewServer(mock.Config{})
	defer srv.Close()
	reg := NewRegistry(nil)
	settings := settingsFor(t, srv.URL())

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(owner string) {
			defer wg.Done()
			sess, err := reg.Create(context.Background(), owner, settings)
			if err != nil {
				errs <- err
				return
			}
			for j := 0; j < 20; j++ {
				cur, ok := reg.Current(owner)
				if !ok || cur != sess || cur.Owner != owner {
					errs <- fmt.Errorf("%s observed a foreign session", owner)
					return
				}
			}
			errs <- reg.Destroy(owner)
		}(fmt.Sprintf("worker-%d", i))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, workers, srv.SessionsCreated())
}

func TestRegistry_CreateFailure(t *testing.T) {
	srv := mock.NewServer(mock.Config{FailSessions: true})
	defer srv.Close()
	reg := NewRegistry(nil)

	_, err := reg.Create(context.Background(), "w", settingsFor(t, srv.URL()))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSessionInit)
	assert.Equal(t, core.ErrCategorySession, core.CategoryOf(err))
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_ServerUnreachable(t *testing.T) {
	down := httptest.NewServer(nil)
	url := down.URL
	down.Close()

	_, err := NewRegistry(nil).Create(context.Background(), "w", settingsFor(t, url))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSessionInit)
	assert.ErrorIs(t, err, core.ErrServerUnreachable)
}

func TestRegistry_CustomFactory(t *testing.T) {
	srv := mock.NewServer(mock.Config{})
	defer srv.Close()

	var gotURL string
	reg := NewRegistry(func(ctx context.Context, url string, caps map[string]interface{}) (core.Driver, error) {
		gotURL = url
		return AppiumFactory(ctx, url, caps)
	})
	_, err := reg.Create(context.Background(), "w", settingsFor(t, srv.URL()))
	require.NoError(t, err)
	assert.Equal(t, srv.URL(), gotURL)
	require.NoError(t, reg.DestroyAll())
}

func TestRegistry_DriverWithoutSession(t *testing.T) {
	_, err := NewRegistry(nil).Driver("w")
	assert.ErrorIs(t, err, core.ErrNoSession)
}

func TestRegistry_DestroyAll(t *testing.T) {
	srv := mock.NewServer(mock.Config{})
	defer srv.Close()
	reg := NewRegistry(nil)
	settings := settingsFor(t, srv.URL())

	for _, owner := range []string{"b", "a"} {
		_, err := reg.Create(context.Background(), owner, settings)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"a", "b"}, reg.Owners())

	require.NoError(t, reg.DestroyAll())
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 0, srv.ActiveSessions())
}
