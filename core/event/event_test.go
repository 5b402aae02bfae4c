package event_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cudatel/core/event"
)

type UserLoggedIn struct {
	User string `json:"user"`
}

type UserLoggedOut struct {
	User string `json:"user"`
}

func TestNewEvent(t *testing.T) {
	t.Parallel()

	evt := event.NewEvent(UserLoggedIn{User: "admin"})
	assert.Equal(t, "UserLoggedIn", evt.Name)
	assert.Len(t, evt.ID, 36)
	assert.WithinDuration(t, time.Now(), evt.CreatedAt, time.Second)

	ptr := event.NewEvent(&UserLoggedIn{User: "admin"})
	assert.Equal(t, "UserLoggedIn", ptr.Name)
	assert.NotEqual(t, evt.ID, ptr.ID)
}

func TestSyncTransport(t *testing.T) {
	t.Parallel()

	t.Run("runs handlers inline", func(t *testing.T) {
		t.Parallel()

		var got []string
		transport := event.NewSyncTransport()
		event.NewProcessor(transport, event.WithHandler(
			event.NewHandlerFunc(func(ctx context.Context, e UserLoggedIn) error {
				got = append(got, "first:"+e.User)
				assert.NotEmpty(t, event.EventID(ctx))
				assert.Equal(t, "UserLoggedIn", event.EventName(ctx))
				assert.False(t, event.EventTime(ctx).IsZero())
				return nil
			}),
			event.NewHandlerFunc(func(_ context.Context, e UserLoggedIn) error {
				got = append(got, "second:"+e.User)
				return nil
			}),
		))

		pub := event.NewPublisher(transport)
		require.NoError(t, pub.Publish(context.Background(), UserLoggedIn{User: "admin"}))
		assert.Equal(t, []string{"first:admin", "second:admin"}, got)

		// no handlers for this type
		require.NoError(t, pub.Publish(context.Background(), UserLoggedOut{User: "admin"}))
	})

	t.Run("joins handler errors and recovers panics", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		transport := event.NewSyncTransport()
		event.NewProcessor(transport, event.WithHandler(
			event.NewHandlerFunc(func(context.Context, UserLoggedIn) error { return boom }),
			event.NewHandlerFunc(func(context.Context, UserLoggedIn) error { panic("bad handler") }),
		))

		err := event.NewPublisher(transport).Publish(context.Background(), UserLoggedIn{})
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "panic: bad handler")
	})

	t.Run("unbound transport", func(t *testing.T) {
		t.Parallel()

		err := event.NewPublisher(event.NewSyncTransport()).Publish(context.Background(), UserLoggedIn{})
		assert.ErrorIs(t, err, event.ErrTransportNotBound)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		transport := event.NewSyncTransport()
		event.NewProcessor(transport)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := event.NewPublisher(transport).Publish(ctx, UserLoggedIn{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestChannelTransport(t *testing.T) {
	t.Parallel()

	t.Run("workers drain queue on stop", func(t *testing.T) {
		t.Parallel()

		var count atomic.Int32
		transport := event.NewChannelTransport(16)
		proc := event.NewProcessor(transport,
			event.WithWorkers(3),
			event.WithHandler(event.NewHandlerFunc(func(context.Context, UserLoggedIn) error {
				count.Add(1)
				return nil
			})),
		)
		require.NoError(t, proc.Start(context.Background()))
		assert.ErrorIs(t, proc.Start(context.Background()), event.ErrProcessorAlreadyStarted)

		pub := event.NewPublisher(transport)
		for range 10 {
			require.NoError(t, pub.Publish(context.Background(), UserLoggedIn{User: "u"}))
		}

		require.NoError(t, proc.Stop())
		assert.Equal(t, int32(10), count.Load())

		stats := proc.Stats()
		assert.Equal(t, int64(10), stats.Processed)
		assert.False(t, stats.Running)

		assert.ErrorIs(t, pub.Publish(context.Background(), UserLoggedIn{}), event.ErrTransportClosed)
		assert.ErrorIs(t, proc.Stop(), event.ErrProcessorNotStarted)
	})

	t.Run("buffer full", func(t *testing.T) {
		t.Parallel()

		transport := event.NewChannelTransport(1)
		pub := event.NewPublisher(transport)

		require.NoError(t, pub.Publish(context.Background(), UserLoggedIn{}))
		assert.ErrorIs(t, pub.Publish(context.Background(), UserLoggedIn{}), event.ErrBufferFull)
	})

	t.Run("failed handlers are counted", func(t *testing.T) {
		t.Parallel()

		transport := event.NewChannelTransport(4)
		proc := event.NewProcessor(transport, event.WithHandler(
			event.NewHandlerFunc(func(context.Context, UserLoggedIn) error { return errors.New("nope") }),
		))
		require.NoError(t, proc.Start(context.Background()))
		require.NoError(t, event.NewPublisher(transport).Publish(context.Background(), UserLoggedIn{}))
		require.NoError(t, proc.Stop())

		assert.Equal(t, int64(1), proc.Stats().Failed)
	})

	t.Run("handler context survives publisher cancellation", func(t *testing.T) {
		t.Parallel()

		var wg sync.WaitGroup
		wg.Add(1)

		transport := event.NewChannelTransport(1)
		proc := event.NewProcessor(transport, event.WithHandler(
			event.NewHandlerFunc(func(ctx context.Context, _ UserLoggedIn) error {
				defer wg.Done()
				assert.NoError(t, ctx.Err())
				return nil
			}),
		))

		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, event.NewPublisher(transport).Publish(ctx, UserLoggedIn{}))
		cancel()

		require.NoError(t, proc.Start(context.Background()))
		wg.Wait()
		require.NoError(t, proc.Stop())
	})

	t.Run("invalid buffer size", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { event.NewChannelTransport(0) })
	})
}

func TestPublisher_NilPayload(t *testing.T) {
	t.Parallel()

	pub := event.NewPublisher(event.NewChannelTransport(1))
	assert.ErrorIs(t, pub.Publish(context.Background(), nil), event.ErrNilPayload)
}

func TestHandler_PayloadConversion(t *testing.T) {
	t.Parallel()

	var got []string
	h := event.NewHandler("custom", func(_ context.Context, e UserLoggedIn) error {
		got = append(got, e.User)
		return nil
	})
	assert.Equal(t, "custom", h.EventName())

	raw, err := json.Marshal(UserLoggedIn{User: "from-bytes"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, h.Handle(ctx, UserLoggedIn{User: "typed"}))
	require.NoError(t, h.Handle(ctx, &UserLoggedIn{User: "pointer"}))
	require.NoError(t, h.Handle(ctx, raw))
	require.NoError(t, h.Handle(ctx, map[string]any{"user": "from-map"}))
	assert.Equal(t, []string{"typed", "pointer", "from-bytes", "from-map"}, got)

	assert.Error(t, h.Handle(ctx, 42))
	assert.Error(t, h.Handle(ctx, []byte("{")))
}

func TestProcessor_Register(t *testing.T) {
	t.Parallel()

	transport := event.NewSyncTransport()
	proc := event.NewProcessor(transport)

	called := false
	proc.Register(event.NewHandlerFunc(func(context.Context, UserLoggedOut) error {
		called = true
		return nil
	}))

	require.NoError(t, event.NewPublisher(transport).Publish(context.Background(), UserLoggedOut{}))
	assert.True(t, called)

	require.NoError(t, proc.Start(context.Background()))
	assert.True(t, proc.Stats().Running)
	require.NoError(t, proc.Stop())
}
