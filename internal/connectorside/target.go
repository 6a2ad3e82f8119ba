package connectorside

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/drewpayment/orbit-relay/internal/relaytypes"
)

// TargetHandler forwards a RelayRequest to the local service a connector is
// fronting and returns the resulting TargetResponse. Implementations never
// see an outsourced request body — Connection resolves that against the
// BodyStore before calling Handle.
type TargetHandler interface {
	Handle(ctx context.Context, req *relaytypes.RelayRequest) (*relaytypes.TargetResponse, error)
}

// HTTPTargetHandler forwards requests to a local HTTP service, joining
// req.Target onto BaseURL. This is the reference TargetHandler; production
// connectors may front anything reachable from the connector process.
type HTTPTargetHandler struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPTargetHandler builds a handler with a bounded-timeout client.
func NewHTTPTargetHandler(baseURL string) *HTTPTargetHandler {
	return &HTTPTargetHandler{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Handle implements TargetHandler.
func (h *HTTPTargetHandler) Handle(ctx context.Context, req *relaytypes.RelayRequest) (*relaytypes.TargetResponse, error) {
	url := h.BaseURL + req.Target
	if req.QueryString != "" {
		url += "?" + req.QueryString
	}

	var body io.Reader
	if len(req.BodyContent) > 0 {
		body = bytes.NewReader(req.BodyContent)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.HttpMethod, url, body)
	if err != nil {
		return nil, fmt.Errorf("connectorside: build target request: %w", err)
	}
	for k, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := h.Client.Do(httpReq)
	if err != nil {
		return &relaytypes.TargetResponse{RequestFailed: true}, nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &relaytypes.TargetResponse{RequestFailed: true}, nil
	}

	headers := make(relaytypes.Headers, len(resp.Header))
	for k, v := range resp.Header {
		headers[k] = append([]string(nil), v...)
	}

	return &relaytypes.TargetResponse{
		HttpStatusCode: resp.StatusCode,
		Headers:        headers,
		BodyContent:    respBody,
		BodySize:       int64(len(respBody)),
	}, nil
}
