package grpchub

import "github.com/drewpayment/orbit-relay/internal/relaytypes"

// envelope is the single message type carried in both directions of the
// Channel stream. Type discriminates which field is populated.
type envelope struct {
	Type      string                    `json:"type"`
	Hello     *helloMsg                 `json:"hello,omitempty"`
	Request   *relaytypes.RelayRequest  `json:"request,omitempty"`
	Configure *relaytypes.TenantConfig  `json:"configure,omitempty"`
	KeepAlive bool                      `json:"keepAlive,omitempty"`
}

const (
	typeHello     = "hello"
	typeRequest   = "request"
	typeConfigure = "configure"
	typeKeepAlive = "keepalive"
)

// helloMsg is sent once by the connector immediately after the stream
// opens, establishing which tenant it serves, its binary size limit, and
// the bearer token proving it's authorized for that tenant.
type helloMsg struct {
	TenantId            string `json:"tenantId"`
	BinarySizeThreshold int64  `json:"binarySizeThreshold"`
	Token               string `json:"token"`
}

const (
	serviceName = "relay.Hub"
	methodName  = "Channel"
	fullMethod  = "/" + serviceName + "/" + methodName
)
