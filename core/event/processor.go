package event

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/cudatel/core/logger"
)

// Processor owns the handler registry and runs workers for async transports.
type Processor struct {
	transport ProcessorTransport
	logger    *slog.Logger
	workers   int

	mu       sync.RWMutex
	handlers map[string][]Handler

	running atomic.Bool
	wg      sync.WaitGroup

	processed atomic.Int64
	failed    atomic.Int64
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithHandler registers handlers. Several handlers may share an event name.
func WithHandler(handlers ...Handler) ProcessorOption {
	return func(p *Processor) {
		for _, h := range handlers {
			p.handlers[h.EventName()] = append(p.handlers[h.EventName()], h)
		}
	}
}

// WithWorkers sets the number of goroutines consuming an async transport.
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithProcessorLogger sets the logger for handler failures.
func WithProcessorLogger(l *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// ProcessorStats reports handler outcomes.
type ProcessorStats struct {
	Processed int64
	Failed    int64
	Running   bool
}

// NewProcessor creates a processor and binds inline transports to its registry.
func NewProcessor(transport ProcessorTransport, opts ...ProcessorOption) *Processor {
	p := &Processor{
		transport: transport,
		logger:    logger.Discard(),
		workers:   1,
		handlers:  make(map[string][]Handler),
	}
	for _, opt := range opts {
		opt(p)
	}
	if b, ok := transport.(handlerBinder); ok {
		b.bindHandlers(p.lookup)
	}
	return p
}

// Register adds handlers after construction.
func (p *Processor) Register(handlers ...Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range handlers {
		p.handlers[h.EventName()] = append(p.handlers[h.EventName()], h)
	}
}

func (p *Processor) lookup(name string) []Handler {
	p.mu.RLock()
	defer p.mu.RUnlock()
	hs := p.handlers[name]
	out := make([]Handler, len(hs))
	copy(out, hs)
	return out
}

// Start launches workers and returns immediately.
// For inline transports there is nothing to run.
func (p *Processor) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrProcessorAlreadyStarted
	}

	events, err := p.transport.Subscribe(ctx)
	if err != nil {
		p.running.Store(false)
		return err
	}
	if events == nil {
		return nil
	}

	for range p.workers {
		p.wg.Add(1)
		go p.work(events)
	}

	p.logger.DebugContext(ctx, "event processor started", slog.Int("workers", p.workers))
	return nil
}

// Stop closes the transport and waits until queued events are handled.
func (p *Processor) Stop() error {
	if !p.running.CompareAndSwap(true, false) {
		return ErrProcessorNotStarted
	}
	err := p.transport.Close()
	p.wg.Wait()
	return err
}

// Stats returns handler counters.
func (p *Processor) Stats() ProcessorStats {
	return ProcessorStats{
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
		Running:   p.running.Load(),
	}
}

func (p *Processor) work(events <-chan envelope) {
	defer p.wg.Done()
	for env := range events {
		p.handle(env)
	}
}

func (p *Processor) handle(env envelope) {
	ctx := WithEventMeta(env.ctx, env.event)
	for _, h := range p.lookup(env.event.Name) {
		start := time.Now()
		if err := safeHandle(ctx, h, env.event.Payload); err != nil {
			p.failed.Add(1)
			p.logger.ErrorContext(ctx, "event handler failed",
				logger.Event(env.event.Name),
				logger.ID("event_id", env.event.ID),
				logger.Elapsed(start),
				logger.Error(err))
			continue
		}
		p.processed.Add(1)
	}
}
