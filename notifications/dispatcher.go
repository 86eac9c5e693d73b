package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Notifier accepts notification requests after the change that produced
// them has been committed. Implementations must not block the caller and
// never report delivery failures back.
type Notifier interface {
	Notify(ctx context.Context, requests []Request)
}

// Sender delivers one request over one medium
type Sender interface {
	Send(ctx context.Context, req Request) error
}

// SendTimeout bounds a single delivery attempt
const SendTimeout = 15 * time.Second

// Dispatcher is an in-process outbound queue. Requests are buffered in a
// bounded channel and delivered by a single worker goroutine.
type Dispatcher struct {
	logger *zap.Logger
	queue  chan Request
	routes map[Channel][]Sender
	any    []Sender

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
}

// NewDispatcher creates a dispatcher with room for size pending requests
func NewDispatcher(logger *zap.Logger, size int) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{
		logger: logger,
		queue:  make(chan Request, size),
		routes: make(map[Channel][]Sender),
		done:   make(chan struct{}),
	}
}

// Route registers s for every request on channel. Call before Start.
func (d *Dispatcher) Route(channel Channel, s Sender) *Dispatcher {
	d.routes[channel] = append(d.routes[channel], s)
	return d
}

// RouteAll registers s for every request regardless of channel. Call before Start.
func (d *Dispatcher) RouteAll(s Sender) *Dispatcher {
	d.any = append(d.any, s)
	return d
}

// Start launches the delivery worker
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	go func() {
		defer close(d.done)
		for req := range d.queue {
			d.deliver(req)
		}
	}()
}

// Notify enqueues requests without waiting. Requests that do not fit in the
// queue, or arrive after Close, are dropped and logged.
func (d *Dispatcher) Notify(_ context.Context, requests []Request) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, req := range requests {
		if d.closed {
			d.logger.Warn("notification dropped after shutdown", requestFields(req)...)
			continue
		}
		select {
		case d.queue <- req:
		default:
			d.logger.Warn("notification queue full, dropping request", requestFields(req)...)
		}
	}
}

// Close stops accepting requests and waits until the queue is drained
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if started {
		<-d.done
	}
}

func (d *Dispatcher) deliver(req Request) {
	senders := append(append([]Sender{}, d.routes[req.Channel]...), d.any...)
	if len(senders) == 0 {
		d.logger.Warn("no sender registered for notification", requestFields(req)...)
		return
	}

	for _, s := range senders {
		if err := d.send(s, req); err != nil {
			d.logger.Error("notification delivery failed", append(requestFields(req), zap.Error(err))...)
		}
	}
}

func (d *Dispatcher) send(s Sender, req Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), SendTimeout)
	defer cancel()
	return s.Send(ctx, req)
}

func requestFields(req Request) []zap.Field {
	return []zap.Field{
		zap.String("channel", string(req.Channel)),
		zap.String("kind", string(req.Kind)),
		zap.String("recipient", req.Recipient.Name),
		zap.Uint("intervention_id", req.Intervention.ID),
	}
}
