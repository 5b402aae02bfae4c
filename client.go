package cudatel

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/dmitrymomot/cudatel/core/event"
	"github.com/dmitrymomot/cudatel/core/health"
	"github.com/dmitrymomot/cudatel/core/logger"
	"github.com/dmitrymomot/cudatel/core/tunnel"
	"github.com/dmitrymomot/cudatel/pkg/async"
)

// Client is the process-level entry point: one tunnel.Manager bound to the
// active profile, its session store and the lifecycle event pipeline.
type Client struct {
	boot      *async.Future[*runtime]
	closeOnce sync.Once
	closeErr  error
}

type runtime struct {
	manager   *tunnel.Manager
	profile   Profile
	processor *event.Processor
	backend   Backend
	log       *slog.Logger
}

// Boot returns immediately and prepares the client in the background.
// Calls made before Ready is closed fail with ErrNotReady.
func Boot(ctx context.Context, opts ...Option) *Client {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return &Client{boot: async.Async(ctx, o, boot)}
}

// New boots a client and waits until it is ready.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	c := Boot(ctx, opts...)
	if err := c.Wait(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Ready is closed once booting has finished, successfully or not.
func (c *Client) Ready() <-chan struct{} {
	return c.boot.Done()
}

// Wait blocks until the client is ready and returns the boot error, if any.
func (c *Client) Wait(ctx context.Context) error {
	select {
	case <-c.boot.Done():
		_, err := c.boot.Await()
		return err
	case <-ctx.Done():
		return notReady(ctx.Err())
	}
}

// Manager returns the underlying session manager.
func (c *Client) Manager() (*tunnel.Manager, error) {
	rt, err := c.runtime()
	if err != nil {
		return nil, err
	}
	return rt.manager, nil
}

// Profile returns the active profile.
func (c *Client) Profile() (Profile, error) {
	rt, err := c.runtime()
	if err != nil {
		return Profile{}, err
	}
	return rt.profile, nil
}

// State returns the session state, Idle until the client is ready.
func (c *Client) State() tunnel.State {
	rt, err := c.runtime()
	if err != nil {
		return tunnel.StateIdle
	}
	return rt.manager.State()
}

// Open authenticates. Without creds the profile's default user is used.
func (c *Client) Open(ctx context.Context, creds ...tunnel.Credentials) (tunnel.Result, error) {
	rt, err := c.runtime()
	if err != nil {
		return tunnel.Result{}, err
	}

	cr := rt.profile.Credentials()
	if len(creds) > 0 {
		cr = creds[0]
	}
	return rt.manager.Open(ctx, cr)
}

// Send calls path with optional payload data (a query.Map, url.Values or map).
func (c *Client) Send(ctx context.Context, path string, data ...any) (tunnel.Result, error) {
	rt, err := c.runtime()
	if err != nil {
		return tunnel.Result{}, err
	}

	var payload any
	if len(data) > 0 {
		payload = data[0]
	}
	return rt.manager.Send(ctx, path, payload)
}

// Shut logs out and wipes the cached session.
func (c *Client) Shut(ctx context.Context) (tunnel.LogoutResult, error) {
	rt, err := c.runtime()
	if err != nil {
		return tunnel.LogoutResult{}, err
	}
	return rt.manager.Shut(ctx)
}

// OpenAsync runs Open in its own goroutine.
func (c *Client) OpenAsync(ctx context.Context, creds ...tunnel.Credentials) *async.Future[tunnel.Result] {
	return async.Async(ctx, creds, func(ctx context.Context, creds []tunnel.Credentials) (tunnel.Result, error) {
		return c.Open(ctx, creds...)
	})
}

// SendAsync runs Send in its own goroutine.
func (c *Client) SendAsync(ctx context.Context, path string, data ...any) *async.Future[tunnel.Result] {
	return async.Async(ctx, path, func(ctx context.Context, path string) (tunnel.Result, error) {
		return c.Send(ctx, path, data...)
	})
}

// ShutAsync runs Shut in its own goroutine.
func (c *Client) ShutAsync(ctx context.Context) *async.Future[tunnel.LogoutResult] {
	return async.Async(ctx, struct{}{}, func(ctx context.Context, _ struct{}) (tunnel.LogoutResult, error) {
		return c.Shut(ctx)
	})
}

// Close drains lifecycle events and releases the store. It does not log out;
// the cached session survives for the next process.
func (c *Client) Close(ctx context.Context) error {
	select {
	case <-c.boot.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	rt, err := c.boot.Await()
	if err != nil {
		return nil
	}

	c.closeOnce.Do(func() {
		c.closeErr = errors.Join(rt.processor.Stop(), rt.backend.Close(ctx))
	})
	return c.closeErr
}

// Healthcheck reports readiness: the client has booted and its session
// store backend answers.
func (c *Client) Healthcheck(ctx context.Context) error {
	rt, err := c.runtime()
	if err != nil {
		return errors.Join(health.ErrUnavailable, err)
	}
	return health.Readiness(ctx, rt.log, health.Checks{
		"session store": rt.backend.Healthcheck,
	})
}

func (c *Client) runtime() (*runtime, error) {
	if !c.boot.IsComplete() {
		return nil, notReady()
	}
	return c.boot.Await()
}

func boot(ctx context.Context, o *options) (*runtime, error) {
	var cfg Config
	if o.cfg != nil {
		cfg = *o.cfg
	} else {
		loaded, err := LoadConfig()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if o.env != "" {
		cfg.Env = o.env
	}

	log := o.logger
	if log == nil {
		log = NewLogger(cfg)
	}

	var profile Profile
	if o.profile != nil {
		profile = *o.profile
		if strings.TrimSpace(profile.Host) == "" {
			return nil, errors.Join(tunnel.ErrConfiguration, errors.New("profile host is empty"))
		}
	} else {
		loaded, err := LoadProfile(cfg.Env)
		if err != nil {
			return nil, err
		}
		profile = loaded
	}

	backend := local(o.store)
	if o.store == nil {
		b, err := OpenStore(ctx, cfg, log)
		if err != nil {
			log.ErrorContext(ctx, "session store unavailable", slog.String("store", cfg.Store), logger.Error(err))
			return nil, err
		}
		backend = b
	}

	transport := event.NewChannelTransport(max(cfg.EventBuffer, 1))
	processor := event.NewProcessor(transport,
		event.WithHandler(lifecycleLog(log)...),
		event.WithHandler(o.handlers...),
		event.WithWorkers(max(cfg.EventWorkers, 1)),
		event.WithProcessorLogger(log),
	)
	if err := processor.Start(context.WithoutCancel(ctx)); err != nil {
		_ = backend.Close(ctx)
		return nil, err
	}

	mopts := []tunnel.Option{
		tunnel.WithScheme(profile.Scheme),
		tunnel.WithLogger(log),
		tunnel.WithPublisher(event.NewPublisher(transport, event.WithPublisherLogger(log))),
		tunnel.WithTimeout(cfg.Timeout),
		tunnel.WithRetryDelay(cfg.LoginRetry),
	}
	if o.transport != nil {
		mopts = append(mopts, tunnel.WithTransport(o.transport))
	}

	manager, err := tunnel.NewManager(profile.Host, backend.Store, mopts...)
	if err != nil {
		_ = processor.Stop()
		_ = backend.Close(ctx)
		return nil, err
	}

	log.InfoContext(ctx, "cudatel client ready",
		logger.Host(profile.Host),
		slog.String("store", cfg.Store),
		logger.Username(profile.User))

	return &runtime{
		manager:   manager,
		profile:   profile,
		processor: processor,
		backend:   backend,
		log:       log,
	}, nil
}

func lifecycleLog(log *slog.Logger) []event.Handler {
	return []event.Handler{
		event.NewHandlerFunc(func(ctx context.Context, e tunnel.StateChanged) error {
			log.DebugContext(ctx, "session state changed",
				logger.Username(e.User),
				logger.Transition(e.From.String(), e.To.String()))
			return nil
		}),
		event.NewHandlerFunc(func(ctx context.Context, e tunnel.SessionOpened) error {
			log.InfoContext(ctx, "session opened",
				logger.Username(e.User),
				logger.SessionID(e.SessionID),
				slog.Bool("reused", e.Reused))
			return nil
		}),
		event.NewHandlerFunc(func(ctx context.Context, e tunnel.LoginRetried) error {
			log.WarnContext(ctx, "login rejected, retrying",
				logger.Username(e.User),
				logger.RetryCount(e.Attempt))
			return nil
		}),
		event.NewHandlerFunc(func(ctx context.Context, e tunnel.SessionClosed) error {
			log.InfoContext(ctx, "session closed",
				logger.Username(e.User),
				logger.SessionID(e.SessionID),
				slog.Bool("wiped", e.Wiped))
			return nil
		}),
	}
}
