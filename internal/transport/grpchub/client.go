package grpchub

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"

	"github.com/drewpayment/orbit-relay/internal/transport"
)

// Client dials a Hub server and establishes connector-side Sessions.
// Grounded on the plain grpc.ClientConn wiring style used throughout
// temporal-workflows/internal/clients (e.g. bifrost_client.go), adapted
// here to a raw bidirectional stream instead of unary RPCs.
type Client struct {
	conn  *grpc.ClientConn
	token string // bearer token presented in every hello envelope
}

// NewClient wraps an already-dialed connection. token authenticates this
// connector to the server's tenant-scoped hub (see ValidateConnectorToken);
// pass "" only when the server was built with a nil authKey.
func NewClient(conn *grpc.ClientConn, token string) *Client {
	return &Client{conn: conn, token: token}
}

// Connect implements transport.HubSession.
func (c *Client) Connect(ctx context.Context, tenantId string, binarySizeThreshold int64) (transport.Session, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := c.conn.NewStream(streamCtx, &grpc.StreamDesc{
		StreamName:    methodName,
		ServerStreams: true,
		ClientStreams: true,
	}, fullMethod, grpc.CallContentSubtype(codecName))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("grpchub: open stream: %w", err)
	}

	hello := &envelope{Type: typeHello, Hello: &helloMsg{TenantId: tenantId, BinarySizeThreshold: binarySizeThreshold, Token: c.token}}
	if err := stream.SendMsg(hello); err != nil {
		cancel()
		return nil, fmt.Errorf("grpchub: send hello: %w", err)
	}

	sess := &clientSession{
		stream:  stream,
		cancel:  cancel,
		invoke:  make(chan transport.Invocation, 16),
		closed:  make(chan error, 1),
		closeMu: sync.Mutex{},
	}
	go sess.readLoop()
	return sess, nil
}

type clientSession struct {
	stream grpc.ClientStream
	cancel context.CancelFunc

	invoke chan transport.Invocation
	closed chan error

	closeMu  sync.Mutex
	closeErr error
	done     bool
}

func (s *clientSession) ConnectionId() string {
	// The gRPC stream's own peer identity isn't surfaced to us cheaply;
	// the server mints and logs a connector id, but the client-side
	// session is addressed by the stream itself. Connector-side code
	// treats the stream's lifetime as the connection identity.
	return fmt.Sprintf("%p", s.stream)
}

func (s *clientSession) Invocations() <-chan transport.Invocation { return s.invoke }
func (s *clientSession) Closed() <-chan error                     { return s.closed }

// SendKeepAlive implements transport.Session.
func (s *clientSession) SendKeepAlive(_ context.Context) error {
	if err := s.stream.SendMsg(&envelope{Type: typeKeepAlive, KeepAlive: true}); err != nil {
		return fmt.Errorf("grpchub: send keepalive: %w", err)
	}
	return nil
}

func (s *clientSession) readLoop() {
	defer close(s.invoke)
	for {
		var msg envelope
		if err := s.stream.RecvMsg(&msg); err != nil {
			s.finish(err)
			return
		}
		switch msg.Type {
		case typeRequest:
			s.invoke <- transport.Invocation{Kind: transport.InvocationRequestTarget, Request: msg.Request}
		case typeConfigure:
			s.invoke <- transport.Invocation{Kind: transport.InvocationConfigure, Configure: msg.Configure}
		case typeKeepAlive:
			// no-op, keeps the stream alive through idle proxies
		}
	}
}

func (s *clientSession) finish(err error) {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.done {
		return
	}
	s.done = true
	s.closeErr = err
	s.closed <- err
}

func (s *clientSession) Close() error {
	s.cancel()
	s.finish(nil)
	return nil
}
