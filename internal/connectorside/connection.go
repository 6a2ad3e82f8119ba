// Package connectorside implements C9: the connector-side state machine
// that dials the server's Hub, serves RequestTarget/Configure invocations
// against a local TargetHandler, and publishes responses/acknowledgements
// back to the originating server instance's broker queues.
//
// The source models this connection as a single object whose Dispose()
// blocks under a plain lock until any in-flight reconnect attempt
// notices and recurses into itself to retry. Here that's replaced with an
// explicit State plus a cancellable run loop — Stop() cancels the loop's
// context and waits on a done channel instead of recursing, and
// reconnect backoff is a bounded, iterative delay rather than a recursive
// self-call (REDESIGN FLAGS).
//
// Grounded on the connection-object shape of
// services/bifrost/internal/proxy/bifrost_connection.go and the
// gobreaker wrapping in services/plugins/internal/backstage/circuit_breaker.go.
package connectorside

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sirupsen/logrus"

	"github.com/drewpayment/orbit-relay/internal/bodystore"
	"github.com/drewpayment/orbit-relay/internal/relaytypes"
	"github.com/drewpayment/orbit-relay/internal/transport"
)

// Publisher is the narrow surface a connection needs to get its
// responses/acknowledgements back to the originating server instance.
// transport.ServerTransport satisfies this; the origin is read off
// resp.RequestOriginId/ack.OriginId rather than passed separately, since
// the connector always knows it from the request it's replying to.
type Publisher interface {
	DispatchResponse(ctx context.Context, resp *relaytypes.TargetResponse) error
	DispatchAcknowledge(ctx context.Context, ack *relaytypes.AcknowledgeRequest) error
}

// Config is a connection's static dial and backoff policy. EnableTracing
// and the rest of the tenant's soft policy arrive later, over Configure
// invocations, and are applied per request.
type Config struct {
	TenantId              string
	BinarySizeThreshold   int64
	ReconnectMinimumDelay time.Duration
	ReconnectMaximumDelay time.Duration
}

const (
	defaultMinDelay          = 500 * time.Millisecond
	defaultMaxDelay          = 30 * time.Second
	defaultKeepAliveInterval = 30 * time.Second
)

// Connection is C9: one tenant's connector-side session against the Hub.
type Connection struct {
	dialer    transport.HubSession
	handler   TargetHandler
	publisher Publisher
	store     bodystore.Store
	cfg       Config
	log       *logrus.Entry
	breaker   *gobreaker.CircuitBreaker

	mu         sync.Mutex
	state      State
	currentCfg relaytypes.TenantConfig
	cancel     context.CancelFunc
	stopped    chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once

	events chan Event
}

// New builds a Connection. It does nothing until Start is called.
func New(dialer transport.HubSession, handler TargetHandler, publisher Publisher, store bodystore.Store, cfg Config, log *logrus.Entry) *Connection {
	if cfg.ReconnectMinimumDelay <= 0 {
		cfg.ReconnectMinimumDelay = defaultMinDelay
	}
	if cfg.ReconnectMaximumDelay <= 0 || cfg.ReconnectMaximumDelay < cfg.ReconnectMinimumDelay {
		cfg.ReconnectMaximumDelay = defaultMaxDelay
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "hub-dial-" + cfg.TenantId,
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     cfg.ReconnectMaximumDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("hub dial circuit breaker state change")
		},
	})

	return &Connection{
		dialer:    dialer,
		handler:   handler,
		publisher: publisher,
		store:     store,
		cfg:       cfg,
		log:       log,
		breaker:   breaker,
		events:    make(chan Event, 16),
	}
}

// Events yields lifecycle transitions. Subscribers must keep up; a full
// channel drops the event with a log warning rather than blocking the run
// loop.
func (c *Connection) Events() <-chan Event { return c.events }

// State reports the connection's current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins the dial-and-serve loop in the background. Calling Start
// more than once has no additional effect (spec §4.5's single-instance
// lifecycle invariant).
func (c *Connection) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		c.mu.Lock()
		c.cancel = cancel
		c.stopped = make(chan struct{})
		c.mu.Unlock()
		go c.run(runCtx)
	})
}

// Stop cancels the run loop and blocks until it has fully exited. Safe to
// call more than once and safe to call without a preceding Start.
func (c *Connection) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		cancel := c.cancel
		stopped := c.stopped
		c.mu.Unlock()
		if cancel == nil {
			return
		}
		cancel()
		<-stopped
	})
}

// Dispose is an alias for Stop, naming the resource-release contract every
// scoped component in this codebase shares.
func (c *Connection) Dispose() { c.Stop() }

func (c *Connection) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Connection) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.log.WithField("kind", ev.Kind.String()).Warn("connection event dropped, subscriber too slow")
	}
}

// run dials, serves, and on any disconnect loops back to dial again with
// bounded exponential backoff, until ctx is cancelled. This replaces the
// source's recursive self-call reconnect with a plain loop.
func (c *Connection) run(ctx context.Context) {
	defer close(c.stopped)

	attempt := 0
	for {
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			c.emit(Event{Kind: EventDisconnected})
			return
		}

		if attempt == 0 {
			c.setState(StateConnecting)
		} else {
			c.setState(StateReconnecting)
			c.emit(Event{Kind: EventReconnecting})
			minDelay, maxDelay := c.reconnectDelays()
			delay := backoffDelay(attempt, minDelay, maxDelay)
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				c.setState(StateDisconnected)
				c.emit(Event{Kind: EventDisconnected})
				return
			}
		}

		sessionVal, err := c.breaker.Execute(func() (interface{}, error) {
			return c.dialer.Connect(ctx, c.cfg.TenantId, c.cfg.BinarySizeThreshold)
		})
		if err != nil {
			c.log.WithError(err).Warn("hub dial attempt failed")
			attempt++
			continue
		}
		session := sessionVal.(transport.Session)

		reconnected := attempt > 0
		attempt = 0
		c.setState(StateConnected)
		if reconnected {
			c.emit(Event{Kind: EventReconnected})
		} else {
			c.emit(Event{Kind: EventConnected})
		}

		c.serve(ctx, session)

		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			c.emit(Event{Kind: EventDisconnected})
			return
		}
		attempt = 1 // next loop iteration reconnects with backoff
	}
}

// serve drains a single session's invocations until it closes or ctx is
// cancelled. Alongside invocations, it sends a keep-alive at whatever
// cadence the tenant's latest Configure push set: a Configure restarts the
// timer at the new interval, and every tick re-reads it.
func (c *Connection) serve(ctx context.Context, session transport.Session) {
	defer session.Close()

	timer := time.NewTimer(c.keepAliveInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-session.Closed():
			if err != nil {
				c.log.WithError(err).Warn("hub session closed")
			}
			return
		case inv, ok := <-session.Invocations():
			if !ok {
				return
			}
			switch inv.Kind {
			case transport.InvocationRequestTarget:
				go c.handleRequest(ctx, inv.Request)
			case transport.InvocationConfigure:
				c.handleConfigure(inv.Configure)
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(c.keepAliveInterval())
			}
		case <-timer.C:
			if err := session.SendKeepAlive(ctx); err != nil {
				c.log.WithError(err).Warn("send keepalive")
			}
			timer.Reset(c.keepAliveInterval())
		}
	}
}

// keepAliveInterval reports the latest Configure-pushed keep-alive cadence,
// falling back to defaultKeepAliveInterval before any Configure arrives.
func (c *Connection) keepAliveInterval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentCfg.KeepAliveInterval > 0 {
		return c.currentCfg.KeepAliveInterval
	}
	return defaultKeepAliveInterval
}

func (c *Connection) handleConfigure(cfg *relaytypes.TenantConfig) {
	if cfg == nil {
		return
	}
	c.mu.Lock()
	c.currentCfg = *cfg
	c.mu.Unlock()
	c.log.WithFields(logrus.Fields{
		"enable_tracing":          cfg.EnableTracing,
		"reconnect_minimum_delay": cfg.ReconnectMinimumDelay,
		"reconnect_maximum_delay": cfg.ReconnectMaximumDelay,
		"keep_alive_interval":     cfg.KeepAliveInterval,
	}).Info("applied tenant configure")
}

// reconnectDelays reports the bounds backoffDelay should use: the latest
// Configure-pushed policy when present, falling back to the static Config
// this connection was constructed with.
func (c *Connection) reconnectDelays() (min, max time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	min, max = c.cfg.ReconnectMinimumDelay, c.cfg.ReconnectMaximumDelay
	if c.currentCfg.ReconnectMinimumDelay > 0 {
		min = c.currentCfg.ReconnectMinimumDelay
	}
	if c.currentCfg.ReconnectMaximumDelay > 0 {
		max = c.currentCfg.ReconnectMaximumDelay
	}
	if max < min {
		max = min
	}
	return min, max
}

// handleRequest resolves an outsourced body (if any), invokes the target
// handler, and publishes the resulting response back to the request's
// origin server instance. It runs on its own goroutine per invocation so
// one slow target call never stalls the session's invocation channel.
func (c *Connection) handleRequest(ctx context.Context, req *relaytypes.RelayRequest) {
	log := c.log.WithField("request_id", req.RequestId)

	c.mu.Lock()
	tracing := c.currentCfg.EnableTracing
	c.mu.Unlock()
	req.EnableTracing = req.EnableTracing || tracing

	if req.Outsourced() {
		handle, err := c.store.OpenRequestBody(ctx, req.RequestId)
		if err != nil {
			log.WithError(err).Error("open staged request body")
			c.publishFailure(ctx, req)
			return
		}
		data, err := io.ReadAll(handle)
		closeErr := handle.Close()
		if err != nil {
			log.WithError(err).Error("read staged request body")
			c.publishFailure(ctx, req)
			return
		}
		if closeErr != nil {
			log.WithError(closeErr).Warn("close staged request body")
		}
		req.BodyContent = data
		c.publishAcknowledge(ctx, req)
	}

	resp, err := c.handler.Handle(ctx, req)
	if err != nil {
		log.WithError(err).Warn("target handler error")
		resp = &relaytypes.TargetResponse{RequestFailed: true}
	}
	resp.RequestId = req.RequestId
	resp.RequestOriginId = req.RequestOriginId

	if err := c.publisher.DispatchResponse(ctx, resp); err != nil {
		log.WithError(err).Error("publish target response")
	}
}

func (c *Connection) publishFailure(ctx context.Context, req *relaytypes.RelayRequest) {
	resp := &relaytypes.TargetResponse{RequestId: req.RequestId, RequestOriginId: req.RequestOriginId, RequestFailed: true}
	if err := c.publisher.DispatchResponse(ctx, resp); err != nil {
		c.log.WithError(err).WithField("request_id", req.RequestId).Error("publish failure response")
	}
}

func (c *Connection) publishAcknowledge(ctx context.Context, req *relaytypes.RelayRequest) {
	ack := &relaytypes.AcknowledgeRequest{RequestId: req.RequestId, OriginId: req.RequestOriginId, AcknowledgeId: req.RequestId}
	if err := c.publisher.DispatchAcknowledge(ctx, ack); err != nil {
		c.log.WithError(err).WithField("request_id", req.RequestId).Warn("publish acknowledge")
	}
}

// backoffDelay doubles the minimum delay per attempt, capped at max.
// attempt is 1-based (the first retry after an initial failure).
func backoffDelay(attempt int, min, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 16 { // avoid overflowing the shift long before min*2^16 would exceed any sane max
		return max
	}
	d := min << uint(attempt-1)
	if d <= 0 || d > max {
		return max
	}
	return d
}
