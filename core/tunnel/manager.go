package tunnel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/cudatel/core/logger"
	"github.com/dmitrymomot/cudatel/core/sessionstore"
)

// Manager owns one CudaTel session.
//
// Open, the status check, the login retry and Shut are serialized by a
// single-slot guard; concurrent Open calls for the same user share one
// execution while keeping their own deadlines. Send only reads the token and runs concurrently once the
// session is Authenticated.
type Manager struct {
	builder    *Builder
	transport  Transport
	router     *Router
	store      sessionstore.Store
	logger     *slog.Logger
	publisher  Publisher
	scheme     string
	timeout    time.Duration
	retryDelay time.Duration

	guard *semaphore.Weighted
	group singleflight.Group

	mu    sync.RWMutex
	state State
	token string
	creds Credentials
}

// NewManager returns an Idle manager for host.
func NewManager(host string, store sessionstore.Store, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.Join(ErrConfiguration, errors.New("session store is required"))
	}

	m := &Manager{
		store:      store,
		logger:     logger.Discard(),
		retryDelay: DefaultRetryDelay,
		guard:      semaphore.NewWeighted(1),
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}

	b, err := NewBuilder(host, m.scheme)
	if err != nil {
		return nil, err
	}
	m.builder = b
	m.logger = m.logger.With(logger.Component("tunnel"), logger.Host(b.Host()))

	if m.transport == nil {
		m.transport = NewHTTPTransport(WithTransportLogger(m.logger))
	}
	m.router = NewRouter(store, m.logger)

	return m, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// SessionID returns the current token, or "".
func (m *Manager) SessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Username returns the user of the last Open.
func (m *Manager) Username() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds.User
}

// Open authenticates creds.User. A cached token is reused when the server's
// status check accepts it; otherwise a fresh login is made, retried once on
// NOTAUTHORIZED.
//
// Concurrent calls for the same user share one execution. It is bounded by
// the manager timeout, not by any caller's context; each caller stops
// waiting when its own ctx is done.
func (m *Manager) Open(ctx context.Context, creds Credentials) (Result, error) {
	if creds.User == "" {
		return Result{}, errors.Join(ErrConfiguration, errors.New("username is required"))
	}

	ch := m.group.DoChan(creds.User, func() (any, error) {
		return m.open(context.WithoutCancel(ctx), creds)
	})
	select {
	case r := <-ch:
		res, _ := r.Val.(Result)
		return res, r.Err
	case <-ctx.Done():
		return Result{}, m.classify(ctx, ctx.Err())
	}
}

func (m *Manager) open(ctx context.Context, creds Credentials) (Result, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if err := m.guard.Acquire(ctx, 1); err != nil {
		return Result{}, m.classify(ctx, err)
	}
	defer m.guard.Release(1)

	m.mu.Lock()
	m.creds = creds
	m.mu.Unlock()
	m.transition(ctx, StateResolving)

	rec, err := m.store.Load(ctx, creds.User)
	switch {
	case err == nil && rec.LastSessionID != "":
		m.install(ctx, StateAuthenticated, rec.LastSessionID)

		res, accepted, err := m.checkStatus(ctx, creds, rec.LastSessionID)
		if err != nil {
			return Result{}, m.fail(ctx, err)
		}
		if accepted {
			m.logger.InfoContext(ctx, "session reused",
				logger.Username(creds.User),
				logger.SessionID(res.SessionID))
			m.publish(ctx, SessionOpened{User: creds.User, SessionID: res.SessionID, Reused: true})
			return res, nil
		}
		m.logger.InfoContext(ctx, "cached session rejected", logger.Username(creds.User))

	case err == nil, errors.Is(err, sessionstore.ErrNotFound):
		// no cached token

	default:
		return Result{}, m.fail(ctx, errors.Join(ErrPersistence, err))
	}

	m.transition(ctx, StateRetrying)
	return m.login(ctx, creds)
}

// checkStatus validates a cached token. It reports false when the server
// rejects the token.
func (m *Manager) checkStatus(ctx context.Context, creds Credentials, token string) (Result, bool, error) {
	d, err := m.builder.Build(StatusPath, token, creds, nil)
	if err != nil {
		return Result{}, false, err
	}
	resp, err := m.do(ctx, d)
	if err != nil {
		return Result{}, false, err
	}
	out, err := m.router.Route(ctx, d.Category, creds.User, token, resp)
	if err != nil {
		return Result{}, false, err
	}
	if out.Unauthorized || out.Kind == OutcomeLoggedOut {
		return Result{}, false, nil
	}

	res := Result{SessionID: token}
	if data := gjson.GetBytes(out.Data, "data"); data.Exists() {
		res.Data = json.RawMessage(data.Raw)
	}
	return res, true, nil
}

// login performs a fresh login with exactly one retry on NOTAUTHORIZED.
// The caller holds the guard.
func (m *Manager) login(ctx context.Context, creds Credentials) (Result, error) {
	var (
		attempt int
		out     Outcome
	)

	backoff := retry.WithMaxRetries(1, retry.NewConstant(m.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			m.logger.InfoContext(ctx, "login rejected, retrying",
				logger.Username(creds.User),
				logger.RetryCount(attempt-1))
			m.publish(ctx, LoginRetried{User: creds.User, Attempt: attempt})
		}

		d, err := m.builder.Build(LoginPath, "", creds, nil)
		if err != nil {
			return err
		}
		resp, err := m.do(ctx, d)
		if err != nil {
			return err
		}
		o, err := m.router.Route(ctx, CategoryLogin, creds.User, "", resp)
		if err != nil {
			return err
		}
		if o.Kind == OutcomeRetryLogin {
			return retry.RetryableError(errNotAuthorized)
		}
		if o.Kind != OutcomeLoggedIn || o.SessionID == "" {
			return errors.Join(ErrMalformedResponse, errors.New("login did not open a session"))
		}
		out = o
		return nil
	})
	if errors.Is(err, errNotAuthorized) {
		err = errors.Join(ErrAuthentication, fmt.Errorf("user %q rejected after %d attempts", creds.User, attempt))
	}
	if err != nil {
		return Result{}, m.fail(ctx, err)
	}

	m.install(ctx, StateAuthenticated, out.SessionID)
	m.logger.InfoContext(ctx, "session opened",
		logger.Username(creds.User),
		logger.SessionID(out.SessionID))
	m.publish(ctx, SessionOpened{User: creds.User, SessionID: out.SessionID})

	return Result{SessionID: out.SessionID, Data: out.Data}, nil
}

// Send issues a request for path with payload as query parameters.
// A login path repeats the login of the current user and a logout path is
// Shut, reported through Result.Logout; both go through the guard. Other paths require an Authenticated
// session and fail with ErrNotAuthenticated without touching the network.
func (m *Manager) Send(ctx context.Context, path string, payload any) (Result, error) {
	switch Classify(path) {
	case CategoryLogin:
		return m.relogin(ctx)
	case CategoryLogout:
		lr, err := m.Shut(ctx)
		return Result{SessionID: lr.SessionID, Logout: &lr}, err
	}

	m.mu.RLock()
	state, token, creds := m.state, m.token, m.creds
	m.mu.RUnlock()

	if state != StateAuthenticated || token == "" {
		return Result{}, ErrNotAuthenticated
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	d, err := m.builder.Build(path, token, creds, payload)
	if err != nil {
		return Result{}, err
	}
	resp, err := m.do(ctx, d)
	if err != nil {
		return Result{}, m.classify(ctx, err)
	}
	out, err := m.router.Route(ctx, d.Category, creds.User, token, resp)
	if out.Kind == OutcomeLoggedOut {
		m.install(ctx, StateLoggedOut, "")
	}
	if err != nil {
		return Result{SessionID: token}, m.classify(ctx, err)
	}

	return Result{SessionID: token, Data: out.Data, Unauthorized: out.Unauthorized}, nil
}

func (m *Manager) relogin(ctx context.Context) (Result, error) {
	m.mu.RLock()
	creds := m.creds
	m.mu.RUnlock()

	if creds.User == "" {
		return Result{}, ErrNotAuthenticated
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if err := m.guard.Acquire(ctx, 1); err != nil {
		return Result{}, m.classify(ctx, err)
	}
	defer m.guard.Release(1)

	m.transition(ctx, StateRetrying)
	return m.login(ctx, creds)
}

// Shut logs the session out and wipes its persisted record.
// The returned error carries ErrPersistence when the wipe failed; the
// session is LoggedOut either way.
func (m *Manager) Shut(ctx context.Context) (LogoutResult, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if err := m.guard.Acquire(ctx, 1); err != nil {
		return LogoutResult{}, m.classify(ctx, err)
	}
	defer m.guard.Release(1)

	m.mu.RLock()
	token, creds := m.token, m.creds
	m.mu.RUnlock()

	if token == "" {
		return LogoutResult{}, ErrNotAuthenticated
	}

	d, err := m.builder.Build(LogoutPath, token, creds, nil)
	if err != nil {
		return LogoutResult{}, err
	}
	resp, err := m.do(ctx, d)
	if err != nil {
		return LogoutResult{SessionID: token}, m.classify(ctx, err)
	}

	out, err := m.router.Route(ctx, d.Category, creds.User, token, resp)
	if out.Kind != OutcomeLoggedOut {
		if err == nil {
			err = errors.Join(ErrMalformedResponse, errors.New("logout not acknowledged"))
		}
		return LogoutResult{SessionID: token}, m.classify(ctx, err)
	}

	m.install(ctx, StateLoggedOut, "")
	m.logger.InfoContext(ctx, "session closed",
		logger.Username(creds.User),
		logger.SessionID(token),
		slog.Bool("wiped", out.Wiped))
	m.publish(ctx, SessionClosed{User: creds.User, SessionID: token, Wiped: out.Wiped})

	return LogoutResult{SessionID: token, LoggedOut: out.Wiped}, m.classify(ctx, err)
}

func (m *Manager) do(ctx context.Context, d Descriptor) (*Response, error) {
	resp, err := m.transport.Do(ctx, d)
	if err != nil {
		if errors.Is(err, ErrTransport) {
			return nil, err
		}
		return nil, errors.Join(ErrTransport, err)
	}
	return resp, nil
}

// install sets the token together with the state.
func (m *Manager) install(ctx context.Context, to State, token string) {
	m.mu.Lock()
	from := m.state
	m.state = to
	m.token = token
	user := m.creds.User
	m.mu.Unlock()

	m.changed(ctx, user, from, to)
}

func (m *Manager) transition(ctx context.Context, to State) {
	m.mu.Lock()
	from := m.state
	m.state = to
	user := m.creds.User
	m.mu.Unlock()

	m.changed(ctx, user, from, to)
}

func (m *Manager) changed(ctx context.Context, user string, from, to State) {
	if from == to {
		return
	}
	m.logger.DebugContext(ctx, "state changed",
		logger.Username(user),
		logger.Transition(from.String(), to.String()))
	m.publish(ctx, StateChanged{User: user, From: from, To: to})
}

// fail resets the session to Idle and classifies err.
func (m *Manager) fail(ctx context.Context, err error) error {
	m.install(ctx, StateIdle, "")
	err = m.classify(ctx, err)
	m.logger.WarnContext(ctx, "session operation failed", logger.Error(err))
	return err
}

// classify tags deadline expiry with ErrTimeout.
func (m *Manager) classify(ctx context.Context, err error) error {
	if err == nil || errors.Is(err, ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrTimeout, err)
	}
	if cerr := ctx.Err(); errors.Is(cerr, context.DeadlineExceeded) {
		return errors.Join(ErrTimeout, cerr, err)
	}
	return err
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout > 0 {
		return context.WithTimeout(ctx, m.timeout)
	}
	return ctx, func() {}
}

func (m *Manager) publish(ctx context.Context, payload any) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, payload); err != nil {
		m.logger.WarnContext(ctx, "lifecycle event not delivered",
			logger.Event(fmt.Sprintf("%T", payload)),
			logger.Error(err))
	}
}
