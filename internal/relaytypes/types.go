// Package relaytypes defines the envelope types that cross the relay's
// asynchronous boundaries: the request the edge hands to a connector, the
// response a connector hands back, and the acknowledgement that closes the
// loop on a staged body. These are concrete records, not an open
// polymorphic surface — every component in the relay speaks these types
// directly.
package relaytypes

import "time"

// RelayRequest is the forwarded HTTP envelope travelling from the edge to a
// connector. It is immutable once ingress interceptors have finished
// running; every downstream component observes a stable snapshot.
type RelayRequest struct {
	RequestId       string    `json:"requestId"`
	RequestOriginId string    `json:"requestOriginId"`
	TenantId        string    `json:"tenantId"`
	Target          string    `json:"target"`
	HttpMethod      string    `json:"httpMethod"`
	Url             string    `json:"url"`
	Headers         Headers   `json:"headers"`
	QueryString     string    `json:"queryString"`
	BodyContent     []byte    `json:"bodyContent,omitempty"`
	BodySize        int64     `json:"bodySize"`
	EnableTracing   bool      `json:"enableTracing"`
	Expiration      time.Time `json:"expiration,omitempty"`
}

// Outsourced reports whether the body was staged in the BodyStore instead
// of carried inline.
func (r *RelayRequest) Outsourced() bool {
	return r.BodyContent == nil && r.BodySize > 0
}

// TargetResponse is the envelope a connector hands back for a given
// RequestId. RequestFailed and RequestExpired are mutually exclusive
// status flags.
type TargetResponse struct {
	RequestId       string  `json:"requestId"`
	RequestOriginId string  `json:"requestOriginId"`
	HttpStatusCode  int     `json:"httpStatusCode"`
	Headers         Headers `json:"headers"`
	BodyContent     []byte  `json:"bodyContent,omitempty"`
	BodySize        int64   `json:"bodySize"`
	RequestFailed   bool    `json:"requestFailed"`
	RequestExpired  bool    `json:"requestExpired"`
}

// Outsourced reports whether the response body must be fetched from the
// BodyStore rather than read from BodyContent.
func (r *TargetResponse) Outsourced() bool {
	return r.BodyContent == nil && r.BodySize > 0
}

// AcknowledgeRequest is the receipt a connector sends once it has retrieved
// a request body that ingress staged in the BodyStore, before it calls the
// target.
type AcknowledgeRequest struct {
	RequestId     string `json:"requestId"`
	OriginId      string `json:"originId"`
	AcknowledgeId string `json:"acknowledgeId"`
}

// TenantConfig holds the per-tenant policy a connector applies once
// connected, as carried by a Configure push.
type TenantConfig struct {
	Name                   string        `json:"name"`
	KeepAliveInterval      time.Duration `json:"keepAliveInterval"`
	ReconnectMinimumDelay  time.Duration `json:"reconnectMinimumDelay"`
	ReconnectMaximumDelay  time.Duration `json:"reconnectMaximumDelay"`
	EnableTracing          bool          `json:"enableTracing"`
	RequestExpiration      time.Duration `json:"requestExpiration"`
}

// Headers is an ordered multi-value header map, serialisable as plain JSON
// (unlike http.Header, which marshals fine too, but we own the type so the
// wire format isn't coupled to net/http).
type Headers map[string][]string

// Get returns the first value for key, or "".
func (h Headers) Get(key string) string {
	if h == nil {
		return ""
	}
	v := h[key]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// Set replaces all values for key.
func (h Headers) Set(key, value string) {
	h[key] = []string{value}
}

// Add appends a value for key.
func (h Headers) Add(key, value string) {
	h[key] = append(h[key], value)
}
