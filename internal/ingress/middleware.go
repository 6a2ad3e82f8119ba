// Package ingress implements C8, the RelayMiddleware: the HTTP entry point
// that turns an inbound request into a RelayRequest, dispatches it to a
// tenant's connector, and blocks the calling goroutine until the matching
// TargetResponse arrives (or the request is aborted or expires).
//
// Grounded on the hop-by-hop header stripping and request-forwarding shape
// of go-core-stack-mcp-auth-proxy's proxy.Handler, generalised from a
// single upstream to the tenant-addressed connector fan-out spec §4.1
// describes.
package ingress

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/drewpayment/orbit-relay/internal/bodystore"
	"github.com/drewpayment/orbit-relay/internal/coordinator"
	"github.com/drewpayment/orbit-relay/internal/dispatch"
	"github.com/drewpayment/orbit-relay/internal/lifecycle"
	"github.com/drewpayment/orbit-relay/internal/relayerr"
	"github.com/drewpayment/orbit-relay/internal/tenant"
	"github.com/drewpayment/orbit-relay/internal/transport"
)

// errRequestExpired is the context.Cause surfaced when a request's own
// expiration timer fires, as opposed to the caller disconnecting (which
// cancels r.Context() with context.Canceled instead).
var errRequestExpired = errors.New("ingress: request expired")

// Metrics is the narrow observation surface RelayMiddleware drives;
// internal/metrics provides the prometheus-backed implementation.
type Metrics interface {
	ObserveDispatch(tenantId string, outcome string, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveDispatch(string, string, time.Duration) {}

// RelayMiddleware is C8.
type RelayMiddleware struct {
	// Next handles requests whose first path segment isn't a known
	// tenant — pass-through per spec §4.1 step 1/2.
	Next http.Handler

	Tenants      tenant.Registry
	Responses    *coordinator.ResponseCoordinator
	Acknowledges *coordinator.AcknowledgeCoordinator
	Requests     *dispatch.RequestCoordinator
	Connectors   transport.ConnectorTransport
	BodyStore    bodystore.Store

	Factory RequestFactory
	Writer  ResponseWriter

	ClientInterceptors   []ClientRequestInterceptor
	ResponseInterceptors []TargetResponseInterceptor

	// OriginId identifies this server instance on the broker's response
	// and acknowledge topics (spec §4.6).
	OriginId string

	MemorySpoolLimit         int64
	DefaultRequestExpiration time.Duration

	Metrics Metrics
	Log     *logrus.Entry
}

func (m *RelayMiddleware) metrics() Metrics {
	if m.Metrics == nil {
		return noopMetrics{}
	}
	return m.Metrics
}

// ServeHTTP implements http.Handler.
func (m *RelayMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tenantName, target := splitTenantPath(r.URL.Path)
	if tenantName == "" {
		m.Next.ServeHTTP(w, r)
		return
	}

	cfg, ok := m.Tenants.LoadByName(tenantName)
	if !ok {
		m.Next.ServeHTTP(w, r)
		return
	}

	start := time.Now()
	requestId := uuid.NewString()
	log := m.Log.WithFields(logrus.Fields{"request_id": requestId, "tenant": tenantName})

	expiration := m.DefaultRequestExpiration
	if cfg.RequestExpirationMs > 0 {
		expiration = time.Duration(cfg.RequestExpirationMs) * time.Millisecond
	}
	ctx, cancel := context.WithTimeoutCause(r.Context(), expiration, errRequestExpired)
	defer cancel()

	bag := &lifecycle.Bag{}
	defer bag.Release()

	disposeWaiter, err := m.Responses.RegisterRequest(requestId)
	if err != nil {
		log.WithError(err).Error("register response waiter")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	bag.Add(disposeWaiter)

	body, disposeBody, err := bufferBody(r.Body, m.MemorySpoolLimit)
	if err != nil {
		log.WithError(err).Warn("drain request body")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	bag.Add(disposeBody)

	req, err := m.Factory.NewRelayRequest(ctx, FactoryInput{
		RequestId:       requestId,
		RequestOriginId: m.OriginId,
		TenantId:        tenantName,
		EnableTracing:   cfg.EnableTracing,
		Expiration:      time.Now().Add(expiration),
		HttpRequest:     r,
		Target:          target,
		Body:            body,
	})
	if err != nil {
		log.WithError(err).Error("build relay request")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	rc := &RelayContext{Request: req, bag: bag}

	for _, interceptor := range m.ClientInterceptors {
		if err := interceptor(ctx, rc); err != nil {
			log.WithError(err).Error("client request interceptor")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}

	maxInline := m.maxInlineBodySize(tenantName)
	var responseBody io.ReadCloser

	if rc.TargetResponse == nil || rc.ForceConnectorDelivery {
		if err := m.deliverToConnector(ctx, rc, body, maxInline, bag, log); err != nil {
			m.metrics().ObserveDispatch(tenantName, "dispatch_error", time.Since(start))
			m.writeError(w, log, ctx, err)
			return
		}

		resolved, disposeResp, err := m.Responses.GetResponse(ctx, requestId)
		if err != nil {
			m.metrics().ObserveDispatch(tenantName, "wait_error", time.Since(start))
			m.writeError(w, log, ctx, err)
			return
		}
		bag.Add(disposeResp)
		rc.TargetResponse = resolved.Response
		responseBody = resolved.Body
	} else {
		responseBody = io.NopCloser(bytes.NewReader(rc.TargetResponse.BodyContent))
	}

	for _, interceptor := range m.ResponseInterceptors {
		if err := interceptor(ctx, rc); err != nil {
			log.WithError(err).Error("target response interceptor")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}

	if err := m.Writer.Write(w, rc.TargetResponse, responseBody); err != nil {
		log.WithError(err).Warn("write response to caller")
	}
	m.metrics().ObserveDispatch(tenantName, "ok", time.Since(start))
}

// maxInlineBodySize is the smaller of the two thresholds the request
// dispatcher and the connector transport each separately expose (spec
// §4.1: "the smaller of the tenant dispatcher's and the connector
// transport's advertised limits"). In this implementation the dispatcher's
// threshold is itself a passthrough to the connector transport, so the two
// currently coincide — but the call takes the minimum of both explicitly
// rather than assuming that will always hold.
func (m *RelayMiddleware) maxInlineBodySize(tenantId string) int64 {
	a := m.Requests.BinarySizeThreshold(tenantId)
	b := m.Connectors.BinarySizeThreshold(tenantId)
	if a < b {
		return a
	}
	return b
}

// deliverToConnector stages the body if it's spooled to disk or exceeds
// maxInline, then hands the request to the dispatcher (spec §4.1 step 8's
// TryInlineBodyContent followed by DeliverRequest). Staging also registers
// an acknowledge waiter (C7) so the connector's eventual AcknowledgeRequest
// — confirming it retrieved the staged body, not that the HTTP call to the
// caller's target completed — has somewhere to land.
func (m *RelayMiddleware) deliverToConnector(ctx context.Context, rc *RelayContext, body *bufferedBody, maxInline int64, bag *lifecycle.Bag, log *logrus.Entry) error {
	req := rc.Request
	staged := false

	switch {
	case body.Outsourced():
		reader, err := body.Reader()
		if err != nil {
			return err
		}
		if _, err := m.BodyStore.StoreRequestBody(ctx, req.RequestId, reader); err != nil {
			return err
		}
		req.BodyContent = nil
		req.BodySize = body.Size()
		staged = true

	case int64(len(req.BodyContent)) > maxInline:
		if _, err := m.BodyStore.StoreRequestBody(ctx, req.RequestId, bytes.NewReader(req.BodyContent)); err != nil {
			return err
		}
		req.BodySize = int64(len(req.BodyContent))
		req.BodyContent = nil
		staged = true
	}

	if staged && m.Acknowledges != nil {
		disposeAck := m.Acknowledges.RegisterRequest(req.RequestId, func(acknowledgeId string) {
			log.WithField("acknowledge_id", acknowledgeId).Debug("connector acknowledged staged request body")
		})
		bag.Add(disposeAck)
	}

	return m.Requests.DeliverRequest(ctx, req)
}

// writeError maps a dispatch/wait failure to the caller-visible outcome
// spec §7 specifies: a transport failure is a 503, the request's own
// expiration is a 408, and the caller disconnecting is a silently dropped
// response (there is no one left to write to).
func (m *RelayMiddleware) writeError(w http.ResponseWriter, log *logrus.Entry, ctx context.Context, err error) {
	switch {
	case relayerr.IsTransportError(err):
		log.WithError(err).Warn("no connector reachable")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("request expired waiting for connector response")
		http.Error(w, "request timeout", http.StatusRequestTimeout)
	case errors.Is(err, context.Canceled):
		log.Debug("caller disconnected before a response arrived")
	case errors.Is(err, coordinator.ErrNotRegistered):
		log.WithError(err).Error("response waiter missing at resolution time")
		http.Error(w, "internal error", http.StatusInternalServerError)
	default:
		log.WithError(err).Error("dispatch failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// splitTenantPath takes the tenant name off the front of an inbound path,
// returning the remainder (always leading with "/") as the target path.
func splitTenantPath(path string) (tenantName, target string) {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return "", "/"
	}
	idx := strings.IndexByte(trimmed, '/')
	if idx < 0 {
		return trimmed, "/"
	}
	return trimmed[:idx], trimmed[idx:]
}
