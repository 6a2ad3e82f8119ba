package coordinator

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drewpayment/orbit-relay/internal/bodystore"
	"github.com/drewpayment/orbit-relay/internal/relaytypes"
)

func newTestResponseCoordinator(t *testing.T) *ResponseCoordinator {
	t.Helper()
	store, err := bodystore.NewFileSystem(t.TempDir())
	require.NoError(t, err)
	return NewResponseCoordinator(store, logrus.NewEntry(logrus.New()))
}

func TestResponseCoordinator_RegisterAndResolveInline(t *testing.T) {
	c := newTestResponseCoordinator(t)

	dispose, err := c.RegisterRequest("req-1")
	require.NoError(t, err)
	defer dispose()

	c.ProcessResponse(&relaytypes.TargetResponse{
		RequestId:      "req-1",
		HttpStatusCode: 200,
		BodyContent:    []byte("hello"),
		BodySize:       5,
	})

	resolved, bodyDispose, err := c.GetResponse(context.Background(), "req-1")
	require.NoError(t, err)
	defer bodyDispose()

	data, err := io.ReadAll(resolved.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, 200, resolved.Response.HttpStatusCode)
}

func TestResponseCoordinator_DuplicateRegisterFails(t *testing.T) {
	c := newTestResponseCoordinator(t)

	dispose, err := c.RegisterRequest("req-1")
	require.NoError(t, err)
	defer dispose()

	_, err = c.RegisterRequest("req-1")
	assert.Error(t, err)
}

func TestResponseCoordinator_GetResponseUnregisteredFails(t *testing.T) {
	c := newTestResponseCoordinator(t)

	_, _, err := c.GetResponse(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestResponseCoordinator_DisposeThenGetResponseIsImmediate(t *testing.T) {
	c := newTestResponseCoordinator(t)

	dispose, err := c.RegisterRequest("req-1")
	require.NoError(t, err)
	dispose()

	_, _, err = c.GetResponse(context.Background(), "req-1")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestResponseCoordinator_ContextCancelledRemovesWaiter(t *testing.T) {
	c := newTestResponseCoordinator(t)

	dispose, err := c.RegisterRequest("req-1")
	require.NoError(t, err)
	defer dispose()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = c.GetResponse(ctx, "req-1")
	assert.ErrorIs(t, err, context.Canceled)

	_, _, err = c.GetResponse(context.Background(), "req-1")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestResponseCoordinator_ResolveOutsourcedBody(t *testing.T) {
	store, err := bodystore.NewFileSystem(t.TempDir())
	require.NoError(t, err)
	c := NewResponseCoordinator(store, logrus.NewEntry(logrus.New()))

	_, err = store.StoreResponseBody(context.Background(), "req-2", strings.NewReader("big payload"))
	require.NoError(t, err)

	dispose, err := c.RegisterRequest("req-2")
	require.NoError(t, err)
	defer dispose()

	c.ProcessResponse(&relaytypes.TargetResponse{
		RequestId:      "req-2",
		HttpStatusCode: 200,
		BodySize:       11,
	})

	resolved, bodyDispose, err := c.GetResponse(context.Background(), "req-2")
	require.NoError(t, err)
	defer bodyDispose()

	data, err := io.ReadAll(resolved.Body)
	require.NoError(t, err)
	assert.Equal(t, "big payload", string(data))
}

func TestResponseCoordinator_ProcessResponseForUnknownRequestIsNoop(t *testing.T) {
	c := newTestResponseCoordinator(t)
	c.ProcessResponse(&relaytypes.TargetResponse{RequestId: "ghost"})
}

func TestResponseCoordinator_ConcurrentWaiters(t *testing.T) {
	c := newTestResponseCoordinator(t)

	const n = 20
	dispose := make([]func(), n)
	for i := 0; i < n; i++ {
		d, err := c.RegisterRequest(idFor(i))
		require.NoError(t, err)
		dispose[i] = d
	}
	defer func() {
		for _, d := range dispose {
			d()
		}
	}()

	for i := 0; i < n; i++ {
		go c.ProcessResponse(&relaytypes.TargetResponse{RequestId: idFor(i), HttpStatusCode: 200})
	}

	for i := 0; i < n; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		resolved, bodyDispose, err := c.GetResponse(ctx, idFor(i))
		cancel()
		require.NoError(t, err)
		bodyDispose()
		assert.Equal(t, 200, resolved.Response.HttpStatusCode)
	}
}

func idFor(i int) string {
	return "req-" + string(rune('a'+i))
}
