package ingress

import (
	"io"
	"net/http"

	"github.com/drewpayment/orbit-relay/internal/relaytypes"
)

// hopHeaders are stripped from the connector's response before it's
// written back to the caller — they describe this hop's connection, not
// the target's, and carrying them through would be actively wrong (a
// "Connection: close" from the connector must not close the caller's
// connection to us).
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// ResponseWriter writes a resolved TargetResponse back to the original
// caller.
type ResponseWriter interface {
	Write(w http.ResponseWriter, resp *relaytypes.TargetResponse, body io.Reader) error
}

// DefaultResponseWriter copies headers (minus hop-by-hop ones) and body
// straight through. The status is 502 for a RequestFailed response, 504 for
// a RequestExpired one, and otherwise the target's own status (200 if unset).
type DefaultResponseWriter struct{}

// Write implements ResponseWriter.
func (DefaultResponseWriter) Write(w http.ResponseWriter, resp *relaytypes.TargetResponse, body io.Reader) error {
	dst := w.Header()
	for k, values := range resp.Headers {
		for _, v := range values {
			dst.Add(k, v)
		}
	}
	cleanHopHeaders(dst)

	status := resp.HttpStatusCode
	switch {
	case resp.RequestFailed:
		status = http.StatusBadGateway
	case resp.RequestExpired:
		status = http.StatusGatewayTimeout
	case status == 0:
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if body == nil {
		return nil
	}
	_, err := io.Copy(w, body)
	return err
}

func cleanHopHeaders(h http.Header) {
	for _, name := range hopHeaders {
		h.Del(name)
	}
}
