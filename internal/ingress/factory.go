package ingress

import (
	"context"
	"net/http"
	"time"

	"github.com/drewpayment/orbit-relay/internal/relaytypes"
)

// FactoryInput carries everything DefaultRequestFactory needs to build a
// RelayRequest, already resolved by the middleware: the tenant-stripped
// target path, the drained body, and the tenant's tracing policy.
type FactoryInput struct {
	RequestId       string
	RequestOriginId string
	TenantId        string
	EnableTracing   bool
	Expiration      time.Time // zero value means no expiration

	HttpRequest *http.Request
	Target      string
	Body        *bufferedBody
}

// DefaultRequestFactory builds a RelayRequest from an inbound *http.Request
// and its drained body, carrying the body inline unless it was spooled to
// disk by the buffering step (spec §4.1 step 6).
type DefaultRequestFactory struct{}

// NewRelayRequest implements RequestFactory.
func (DefaultRequestFactory) NewRelayRequest(ctx context.Context, in FactoryInput) (*relaytypes.RelayRequest, error) {
	headers := make(relaytypes.Headers, len(in.HttpRequest.Header))
	for k, v := range in.HttpRequest.Header {
		headers[k] = append([]string(nil), v...)
	}

	req := &relaytypes.RelayRequest{
		RequestId:       in.RequestId,
		RequestOriginId: in.RequestOriginId,
		TenantId:        in.TenantId,
		Target:          in.Target,
		HttpMethod:      in.HttpRequest.Method,
		Url:             in.HttpRequest.URL.Path,
		Headers:         headers,
		QueryString:     in.HttpRequest.URL.RawQuery,
		BodySize:        in.Body.Size(),
		EnableTracing:   in.EnableTracing,
		Expiration:      in.Expiration,
	}

	if !in.Body.Outsourced() {
		req.BodyContent = in.Body.Bytes()
	}
	// When the body was spooled to disk, BodyContent stays nil; the
	// middleware stages it through the BodyStore before dispatch (spec
	// §4.1's TryInlineBodyContent only applies below the threshold — a
	// body that already spilled to disk has, by definition, exceeded any
	// sane inline threshold).

	return req, nil
}
