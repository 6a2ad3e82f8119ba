package connectorside

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drewpayment/orbit-relay/internal/relaytypes"
)

func TestHTTPTargetHandler_Handle_Success(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/widgets", r.URL.Path)
		assert.Equal(t, "id=1", r.URL.RawQuery)
		assert.Equal(t, "acme", r.Header.Get("X-Tenant"))
		w.Header().Set("X-Reply", "yes")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("ok"))
	}))
	defer target.Close()

	handler := NewHTTPTargetHandler(target.URL)
	resp, err := handler.Handle(context.Background(), &relaytypes.RelayRequest{
		HttpMethod:  "GET",
		Target:      "/widgets",
		QueryString: "id=1",
		Headers:     relaytypes.Headers{"X-Tenant": {"acme"}},
	})

	require.NoError(t, err)
	assert.False(t, resp.RequestFailed)
	assert.Equal(t, http.StatusCreated, resp.HttpStatusCode)
	assert.Equal(t, "ok", string(resp.BodyContent))
	assert.Equal(t, "yes", resp.Headers.Get("X-Reply"))
}

func TestHTTPTargetHandler_Handle_ForwardsBody(t *testing.T) {
	var receivedBody []byte
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 7)
		n, _ := r.Body.Read(buf)
		receivedBody = buf[:n]
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	handler := NewHTTPTargetHandler(target.URL)
	_, err := handler.Handle(context.Background(), &relaytypes.RelayRequest{
		HttpMethod:  "POST",
		Target:      "/submit",
		BodyContent: []byte("payload"),
	})

	require.NoError(t, err)
	assert.Equal(t, "payload", string(receivedBody))
}

func TestHTTPTargetHandler_Handle_UnreachableTargetReturnsRequestFailed(t *testing.T) {
	handler := NewHTTPTargetHandler("http://127.0.0.1:1")
	resp, err := handler.Handle(context.Background(), &relaytypes.RelayRequest{
		HttpMethod: "GET",
		Target:     "/widgets",
	})

	require.NoError(t, err)
	assert.True(t, resp.RequestFailed)
}
