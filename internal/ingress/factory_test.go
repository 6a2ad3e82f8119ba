package ingress

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRequestFactory_InlineBody(t *testing.T) {
	body, dispose, err := bufferBody(strings.NewReader("payload"), 1024)
	require.NoError(t, err)
	defer dispose()

	httpReq := &http.Request{
		Method: "POST",
		URL:    &url.URL{Path: "/widgets", RawQuery: "a=1"},
		Header: http.Header{"X-Trace": []string{"abc"}},
	}

	req, err := DefaultRequestFactory{}.NewRelayRequest(context.Background(), FactoryInput{
		RequestId:       "req-1",
		RequestOriginId: "origin-1",
		TenantId:        "acme",
		EnableTracing:   true,
		Expiration:      time.Now().Add(time.Minute),
		HttpRequest:     httpReq,
		Target:          "/widgets",
		Body:            body,
	})

	require.NoError(t, err)
	assert.Equal(t, "req-1", req.RequestId)
	assert.Equal(t, "origin-1", req.RequestOriginId)
	assert.Equal(t, "acme", req.TenantId)
	assert.Equal(t, "POST", req.HttpMethod)
	assert.Equal(t, "/widgets", req.Url)
	assert.Equal(t, "a=1", req.QueryString)
	assert.Equal(t, []byte("payload"), req.BodyContent)
	assert.Equal(t, int64(7), req.BodySize)
	assert.True(t, req.EnableTracing)
	assert.Equal(t, "abc", req.Headers.Get("X-Trace"))
	assert.False(t, req.Outsourced())
}

func TestDefaultRequestFactory_OutsourcedBodyLeavesContentNil(t *testing.T) {
	body, dispose, err := bufferBody(strings.NewReader(strings.Repeat("x", 100)), 10)
	require.NoError(t, err)
	defer dispose()

	httpReq := &http.Request{
		Method: "PUT",
		URL:    &url.URL{Path: "/upload"},
		Header: http.Header{},
	}

	req, err := DefaultRequestFactory{}.NewRelayRequest(context.Background(), FactoryInput{
		RequestId:   "req-2",
		HttpRequest: httpReq,
		Target:      "/upload",
		Body:        body,
	})

	require.NoError(t, err)
	assert.Nil(t, req.BodyContent)
	assert.Equal(t, int64(100), req.BodySize)
	assert.True(t, req.Outsourced())
}

func TestDefaultRequestFactory_HeadersAreCopiedNotAliased(t *testing.T) {
	body, dispose, err := bufferBody(strings.NewReader(""), 1024)
	require.NoError(t, err)
	defer dispose()

	original := http.Header{"X-Tenant": []string{"acme"}}
	httpReq := &http.Request{Method: "GET", URL: &url.URL{Path: "/"}, Header: original}

	req, err := DefaultRequestFactory{}.NewRelayRequest(context.Background(), FactoryInput{
		HttpRequest: httpReq,
		Body:        body,
	})
	require.NoError(t, err)

	original["X-Tenant"][0] = "mutated"
	assert.Equal(t, "acme", req.Headers.Get("X-Tenant"))
}
