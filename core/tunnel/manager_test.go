package tunnel_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cudatel/core/event"
	"github.com/dmitrymomot/cudatel/core/sessionstore"
	"github.com/dmitrymomot/cudatel/core/tunnel"
	"github.com/dmitrymomot/cudatel/pkg/query"
)

var admin = tunnel.Credentials{User: "admin", Pass: "secret"}

func newManager(t *testing.T, srv *cudatelServer, store sessionstore.Store, opts ...tunnel.Option) *tunnel.Manager {
	t.Helper()

	opts = append([]tunnel.Option{tunnel.WithRetryDelay(time.Millisecond)}, opts...)
	m, err := tunnel.NewManager(srv.host(), store, opts...)
	require.NoError(t, err)
	assert.Equal(t, tunnel.StateIdle, m.State())
	return m
}

func TestNewManager(t *testing.T) {
	t.Parallel()

	_, err := tunnel.NewManager("pbx.local", nil)
	assert.ErrorIs(t, err, tunnel.ErrConfiguration)

	_, err = tunnel.NewManager("", sessionstore.NewMemory())
	assert.ErrorIs(t, err, tunnel.ErrConfiguration)
}

func TestManager_Open(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("fresh login persists the token", func(t *testing.T) {
		t.Parallel()

		srv := newCudatelServer(t)
		store := sessionstore.NewMemory()
		m := newManager(t, srv, store)

		res, err := m.Open(ctx, admin)
		require.NoError(t, err)

		assert.Equal(t, int32(1), srv.logins.Load())
		assert.Equal(t, int32(0), srv.statuses.Load())
		assert.Len(t, res.SessionID, tunnel.TokenLength)
		assert.Equal(t, "admin", res.Get("bbx_user_username").String())
		assert.Equal(t, tunnel.StateAuthenticated, m.State())
		assert.Equal(t, res.SessionID, m.SessionID())
		assert.Equal(t, "admin", m.Username())

		rec, err := store.Load(ctx, "admin")
		require.NoError(t, err)
		assert.Equal(t, res.SessionID, rec.LastSessionID)
		assert.Equal(t, "admin", rec.Fields["bbx_user_username"])
	})

	t.Run("valid cached token is reused without login", func(t *testing.T) {
		t.Parallel()

		srv := newCudatelServer(t)
		cached := srv.issue()
		store := sessionstore.NewMemory()
		require.NoError(t, store.Save(ctx, "admin", sessionstore.Record{LastSessionID: cached}))

		m := newManager(t, srv, store)
		res, err := m.Open(ctx, admin)
		require.NoError(t, err)

		assert.Equal(t, int32(0), srv.logins.Load())
		assert.Equal(t, int32(1), srv.statuses.Load())
		assert.Equal(t, cached, res.SessionID)
		assert.JSONEq(t, `{"status":"ok"}`, string(res.Data))
		assert.Equal(t, tunnel.StateAuthenticated, m.State())
	})

	t.Run("rejected cached token triggers login", func(t *testing.T) {
		t.Parallel()

		srv := newCudatelServer(t)
		store := sessionstore.NewMemory()
		require.NoError(t, store.Save(ctx, "admin", sessionstore.Record{LastSessionID: testToken}))

		m := newManager(t, srv, store)
		res, err := m.Open(ctx, admin)
		require.NoError(t, err)

		assert.Equal(t, int32(1), srv.statuses.Load())
		assert.Equal(t, int32(1), srv.logins.Load())
		assert.NotEqual(t, testToken, res.SessionID)

		rec, err := store.Load(ctx, "admin")
		require.NoError(t, err)
		assert.Equal(t, res.SessionID, rec.LastSessionID)
	})

	t.Run("one rejection is retried", func(t *testing.T) {
		t.Parallel()

		srv := newCudatelServer(t)
		srv.rejectLogins.Store(1)
		rec := &recorder{}
		m := newManager(t, srv, sessionstore.NewMemory(), tunnel.WithPublisher(rec))

		_, err := m.Open(ctx, admin)
		require.NoError(t, err)
		assert.Equal(t, int32(2), srv.logins.Load())
		assert.Contains(t, rec.all(), tunnel.LoginRetried{User: "admin", Attempt: 2})
	})

	t.Run("two rejections fail authentication", func(t *testing.T) {
		t.Parallel()

		srv := newCudatelServer(t)
		srv.rejectLogins.Store(5)
		m := newManager(t, srv, sessionstore.NewMemory())

		_, err := m.Open(ctx, admin)
		assert.ErrorIs(t, err, tunnel.ErrAuthentication)
		assert.Equal(t, int32(2), srv.logins.Load(), "exactly one retry")
		assert.Equal(t, tunnel.StateIdle, m.State())
		assert.Empty(t, m.SessionID())
	})

	t.Run("username is required", func(t *testing.T) {
		t.Parallel()

		srv := newCudatelServer(t)
		m := newManager(t, srv, sessionstore.NewMemory())

		_, err := m.Open(ctx, tunnel.Credentials{})
		assert.ErrorIs(t, err, tunnel.ErrConfiguration)
		assert.Equal(t, int32(0), srv.requests.Load())
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()

		store := &storeMock{}
		store.On("Load", mock.Anything, "admin").Return(sessionstore.Record{}, errors.New("connection refused"))

		srv := newCudatelServer(t)
		m := newManager(t, srv, store)

		_, err := m.Open(ctx, admin)
		assert.ErrorIs(t, err, tunnel.ErrPersistence)
		assert.Equal(t, tunnel.StateIdle, m.State())
		assert.Equal(t, int32(0), srv.requests.Load())
	})

	t.Run("save failure surfaces", func(t *testing.T) {
		t.Parallel()

		store := &storeMock{}
		store.On("Load", mock.Anything, "admin").Return(sessionstore.Record{}, sessionstore.ErrNotFound)
		store.On("Save", mock.Anything, "admin", mock.Anything).Return(errors.New("disk full"))

		m := newManager(t, newCudatelServer(t), store)

		_, err := m.Open(ctx, admin)
		assert.ErrorIs(t, err, tunnel.ErrPersistence)
		assert.Equal(t, tunnel.StateIdle, m.State())
	})

	t.Run("server error", func(t *testing.T) {
		t.Parallel()

		srv := newCudatelServer(t)
		srv.Close()
		m := newManager(t, srv, sessionstore.NewMemory())

		_, err := m.Open(ctx, admin)
		assert.ErrorIs(t, err, tunnel.ErrTransport)
		assert.Equal(t, tunnel.StateIdle, m.State())
	})

	t.Run("login redirected to logout", func(t *testing.T) {
		t.Parallel()

		srv := newCudatelServer(t)
		srv.kickLogins.Store(true)
		m := newManager(t, srv, sessionstore.NewMemory())

		res, err := m.Open(ctx, admin)
		assert.ErrorIs(t, err, tunnel.ErrMalformedResponse)
		assert.Empty(t, res.SessionID)
		assert.Empty(t, m.SessionID())
		assert.Equal(t, tunnel.StateIdle, m.State())
		assert.Equal(t, int32(1), srv.logins.Load())
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()

		srv := newCudatelServer(t)
		srv.delay.Store(int64(time.Second))
		m := newManager(t, srv, sessionstore.NewMemory(), tunnel.WithTimeout(50*time.Millisecond))

		start := time.Now()
		_, err := m.Open(ctx, admin)
		assert.ErrorIs(t, err, tunnel.ErrTimeout)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 900*time.Millisecond)
		assert.Equal(t, tunnel.StateIdle, m.State())
	})
}

func TestManager_StateEvents(t *testing.T) {
	t.Parallel()

	transport := event.NewSyncTransport()
	var (
		mu          sync.Mutex
		transitions []string
		opened      []tunnel.SessionOpened
		closed      []tunnel.SessionClosed
	)
	event.NewProcessor(transport, event.WithHandler(
		event.NewHandlerFunc(func(_ context.Context, e tunnel.StateChanged) error {
			mu.Lock()
			defer mu.Unlock()
			transitions = append(transitions, e.From.String()+">"+e.To.String())
			return nil
		}),
		event.NewHandlerFunc(func(_ context.Context, e tunnel.SessionOpened) error {
			mu.Lock()
			defer mu.Unlock()
			opened = append(opened, e)
			return nil
		}),
		event.NewHandlerFunc(func(_ context.Context, e tunnel.SessionClosed) error {
			mu.Lock()
			defer mu.Unlock()
			closed = append(closed, e)
			return nil
		}),
	))

	srv := newCudatelServer(t)
	m := newManager(t, srv, sessionstore.NewMemory(), tunnel.WithPublisher(event.NewPublisher(transport)))

	ctx := context.Background()
	res, err := m.Open(ctx, admin)
	require.NoError(t, err)
	_, err = m.Shut(ctx)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"Idle>Resolving",
		"Resolving>Retrying",
		"Retrying>Authenticated",
		"Authenticated>LoggedOut",
	}, transitions)
	require.Len(t, opened, 1)
	assert.Equal(t, res.SessionID, opened[0].SessionID)
	assert.False(t, opened[0].Reused)
	require.Len(t, closed, 1)
	assert.True(t, closed[0].Wiped)
}

func TestManager_Send(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("fails fast before open", func(t *testing.T) {
		t.Parallel()

		srv := newCudatelServer(t)
		m := newManager(t, srv, sessionstore.NewMemory())

		_, err := m.Send(ctx, "/gui/user/list", nil)
		assert.ErrorIs(t, err, tunnel.ErrNotAuthenticated)
		assert.Equal(t, int32(0), srv.requests.Load())
	})

	t.Run("passes payload and token", func(t *testing.T) {
		t.Parallel()

		srv := newCudatelServer(t)
		m := newManager(t, srv, sessionstore.NewMemory())
		opened, err := m.Open(ctx, admin)
		require.NoError(t, err)

		res, err := m.Send(ctx, "/gui/user/list", query.New().Set("rows", 5).Set("sort", query.New().Set("by", "name")))
		require.NoError(t, err)

		assert.Equal(t, opened.SessionID, res.SessionID)
		assert.False(t, res.Unauthorized)
		assert.Equal(t, "/gui/user/list", res.Get("data.path").String())
		assert.Equal(t, "rows=5&sort[by]=name&sessionid="+opened.SessionID, res.Get("data.query").String())

		req, _ := srv.last()
		assert.Equal(t, "bps_session="+opened.SessionID+";", req.Header.Get("Cookie"))

		var decoded struct {
			Data struct {
				Path string `json:"path"`
			} `json:"data"`
		}
		require.NoError(t, res.Decode(&decoded))
		assert.Equal(t, "/gui/user/list", decoded.Data.Path)
	})

	t.Run("not authorized is passed through", func(t *testing.T) {
		t.Parallel()

		srv := newCudatelServer(t)
		m := newManager(t, srv, sessionstore.NewMemory())
		opened, err := m.Open(ctx, admin)
		require.NoError(t, err)

		// the server forgets the session
		srv.mu.Lock()
		delete(srv.valid, opened.SessionID)
		srv.mu.Unlock()

		res, err := m.Send(ctx, "/gui/user/list", nil)
		require.NoError(t, err)
		assert.True(t, res.Unauthorized)
		assert.Equal(t, tunnel.StateAuthenticated, m.State())
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()

		srv := newCudatelServer(t)
		m := newManager(t, srv, sessionstore.NewMemory())
		_, err := m.Open(ctx, admin)
		require.NoError(t, err)

		_, err = m.Send(ctx, "/gui/text", nil)
		assert.ErrorIs(t, err, tunnel.ErrMalformedResponse)

		_, err = m.Send(ctx, "/gui/broken", nil)
		assert.ErrorIs(t, err, tunnel.ErrTransport)
		assert.Equal(t, tunnel.StateAuthenticated, m.State())
	})

	t.Run("server side logout via redirect", func(t *testing.T) {
		t.Parallel()

		srv := newCudatelServer(t)
		store := sessionstore.NewMemory()
		m := newManager(t, srv, store)
		_, err := m.Open(ctx, admin)
		require.NoError(t, err)

		_, err = m.Send(ctx, "/gui/kicked", nil)
		require.NoError(t, err)
		assert.Equal(t, tunnel.StateLoggedOut, m.State())

		_, err = store.Load(ctx, "admin")
		assert.ErrorIs(t, err, sessionstore.ErrNotFound)
	})

	t.Run("login path repeats login", func(t *testing.T) {
		t.Parallel()

		srv := newCudatelServer(t)
		m := newManager(t, srv, sessionstore.NewMemory())

		_, err := m.Send(ctx, tunnel.LoginPath, nil)
		assert.ErrorIs(t, err, tunnel.ErrNotAuthenticated)

		first, err := m.Open(ctx, admin)
		require.NoError(t, err)

		second, err := m.Send(ctx, tunnel.LoginPath, nil)
		require.NoError(t, err)
		assert.NotEqual(t, first.SessionID, second.SessionID)
		assert.Equal(t, second.SessionID, m.SessionID())
		assert.Equal(t, int32(2), srv.logins.Load())
	})

	t.Run("logout path shuts the session", func(t *testing.T) {
		t.Parallel()

		srv := newCudatelServer(t)
		m := newManager(t, srv, sessionstore.NewMemory())
		opened, err := m.Open(ctx, admin)
		require.NoError(t, err)

		res, err := m.Send(ctx, tunnel.LogoutPath, nil)
		require.NoError(t, err)
		assert.Equal(t, opened.SessionID, res.SessionID)
		assert.Empty(t, res.Data)
		require.NotNil(t, res.Logout)
		assert.True(t, res.Logout.LoggedOut)
		assert.Equal(t, opened.SessionID, res.Logout.SessionID)
		assert.Equal(t, tunnel.StateLoggedOut, m.State())
	})
}

func TestManager_Shut(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("wipes the record and can reopen", func(t *testing.T) {
		t.Parallel()

		srv := newCudatelServer(t)
		store := sessionstore.NewMemory()
		m := newManager(t, srv, store)

		opened, err := m.Open(ctx, admin)
		require.NoError(t, err)

		lr, err := m.Shut(ctx)
		require.NoError(t, err)
		assert.True(t, lr.LoggedOut)
		assert.Equal(t, opened.SessionID, lr.SessionID)
		assert.Equal(t, tunnel.StateLoggedOut, m.State())
		assert.Empty(t, m.SessionID())

		_, err = store.Load(ctx, "admin")
		assert.ErrorIs(t, err, sessionstore.ErrNotFound)

		_, err = m.Shut(ctx)
		assert.ErrorIs(t, err, tunnel.ErrNotAuthenticated)

		_, err = m.Send(ctx, "/gui/user/list", nil)
		assert.ErrorIs(t, err, tunnel.ErrNotAuthenticated)

		reopened, err := m.Open(ctx, admin)
		require.NoError(t, err)
		assert.NotEqual(t, opened.SessionID, reopened.SessionID)
		assert.Equal(t, tunnel.StateAuthenticated, m.State())
	})

	t.Run("wipe failure is reported", func(t *testing.T) {
		t.Parallel()

		store := &storeMock{}
		store.On("Load", mock.Anything, "admin").Return(sessionstore.Record{}, sessionstore.ErrNotFound)
		store.On("Save", mock.Anything, "admin", mock.Anything).Return(nil)
		store.On("Delete", mock.Anything, "admin").Return(errors.New("permission denied"))

		m := newManager(t, newCudatelServer(t), store)
		_, err := m.Open(ctx, admin)
		require.NoError(t, err)

		lr, err := m.Shut(ctx)
		assert.ErrorIs(t, err, tunnel.ErrPersistence)
		assert.False(t, lr.LoggedOut)
		assert.NotEmpty(t, lr.SessionID)
		assert.Equal(t, tunnel.StateLoggedOut, m.State())
		store.AssertExpectations(t)
	})
}

func TestManager_Concurrency(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("concurrent opens log in once", func(t *testing.T) {
		t.Parallel()

		srv := newCudatelServer(t)
		srv.delay.Store(int64(20 * time.Millisecond))
		store := sessionstore.NewMemory()
		m := newManager(t, srv, store)

		const n = 10
		tokens := make([]string, n)
		var wg sync.WaitGroup
		for i := range n {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res, err := m.Open(ctx, admin)
				assert.NoError(t, err)
				tokens[i] = res.SessionID
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), srv.logins.Load())
		for _, tok := range tokens {
			assert.Equal(t, tokens[0], tok)
		}

		rec, err := store.Load(ctx, "admin")
		require.NoError(t, err)
		assert.Equal(t, tokens[0], rec.LastSessionID)
	})

	t.Run("shared open keeps each caller's deadline", func(t *testing.T) {
		t.Parallel()

		srv := newCudatelServer(t)
		srv.delay.Store(int64(100 * time.Millisecond))
		m := newManager(t, srv, sessionstore.NewMemory())

		short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		var (
			wg       sync.WaitGroup
			shortErr error
			long     tunnel.Result
			longErr  error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, shortErr = m.Open(short, admin)
		}()
		go func() {
			defer wg.Done()
			long, longErr = m.Open(ctx, admin)
		}()
		wg.Wait()

		assert.ErrorIs(t, shortErr, tunnel.ErrTimeout)
		require.NoError(t, longErr)
		assert.Len(t, long.SessionID, tunnel.TokenLength)
		assert.Equal(t, tunnel.StateAuthenticated, m.State())
		assert.Equal(t, int32(1), srv.logins.Load())
	})

	t.Run("sends racing open never see a half-open session", func(t *testing.T) {
		t.Parallel()

		srv := newCudatelServer(t)
		srv.delay.Store(int64(20 * time.Millisecond))
		store := sessionstore.NewMemory()
		m := newManager(t, srv, store)

		var wg sync.WaitGroup
		wg.Add(1)
		var opened tunnel.Result
		go func() {
			defer wg.Done()
			var err error
			opened, err = m.Open(ctx, admin)
			assert.NoError(t, err)
		}()

		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := m.Send(ctx, "/gui/user/list", nil)
				if err != nil {
					assert.ErrorIs(t, err, tunnel.ErrNotAuthenticated)
					return
				}
				assert.NotEmpty(t, res.SessionID)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), srv.logins.Load())
		rec, err := store.Load(ctx, "admin")
		require.NoError(t, err)
		assert.Equal(t, opened.SessionID, rec.LastSessionID)
	})

	t.Run("authenticated sends run in parallel", func(t *testing.T) {
		t.Parallel()

		srv := newCudatelServer(t)
		m := newManager(t, srv, sessionstore.NewMemory())
		opened, err := m.Open(ctx, admin)
		require.NoError(t, err)

		srv.delay.Store(int64(100 * time.Millisecond))
		start := time.Now()

		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := m.Send(ctx, "/gui/user/list", nil)
				assert.NoError(t, err)
				assert.Equal(t, opened.SessionID, res.SessionID)
			}()
		}
		wg.Wait()

		assert.Less(t, time.Since(start), 450*time.Millisecond)
	})
}
