package grpchub

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/drewpayment/orbit-relay/internal/relaytypes"
	"github.com/drewpayment/orbit-relay/internal/transport"
)

// ServiceDesc is registered on a *grpc.Server via RegisterService. The
// HandlerType is the empty interface so any server value satisfies the
// reflection check grpc performs at registration time; the real contract
// is enforced by this package's handler function alone.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*any)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    methodName,
			Handler:       channelHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "relay/hub.proto",
}

// Server is the server side of the gRPC-backed Hub: it accepts connector
// streams, tracks which connector serves which tenant, and lets
// transport.ConnectorTransport push invocations by connector id.
type Server struct {
	log       *logrus.Entry
	authKey   []byte // validates the connector's hello token; nil disables the check

	mu         sync.RWMutex
	connectors map[string]*connectorStream // connectorId -> stream
	byTenant   map[string][]string         // tenantId -> connectorIds, registration order
}

// NewServer creates an empty Hub server. Register it with
// grpcSrv.RegisterService(&grpchub.ServiceDesc, server). authKey, if
// non-nil, is required to validate every connector's hello token against
// its claimed tenant; pass nil only for local development.
func NewServer(log *logrus.Entry, authKey []byte) *Server {
	return &Server{
		log:        log,
		authKey:    authKey,
		connectors: make(map[string]*connectorStream),
		byTenant:   make(map[string][]string),
	}
}

type connectorStream struct {
	id                  string
	tenantId            string
	binarySizeThreshold int64
	stream              grpc.ServerStream
	send                chan *envelope
	done                chan struct{}
}

func channelHandler(srv any, stream grpc.ServerStream) error {
	s, ok := srv.(*Server)
	if !ok {
		return status.Errorf(codes.Internal, "grpchub: handler registered on non-*Server")
	}
	return s.handleChannel(stream)
}

func (s *Server) handleChannel(stream grpc.ServerStream) error {
	var hello envelope
	if err := stream.RecvMsg(&hello); err != nil {
		return fmt.Errorf("grpchub: read hello: %w", err)
	}
	if hello.Type != typeHello || hello.Hello == nil {
		return status.Errorf(codes.InvalidArgument, "grpchub: expected hello, got %q", hello.Type)
	}
	if s.authKey != nil {
		claims, err := ValidateConnectorToken(hello.Hello.Token, s.authKey)
		if err != nil {
			return status.Errorf(codes.Unauthenticated, "grpchub: %v", err)
		}
		if claims.TenantId != hello.Hello.TenantId {
			return status.Errorf(codes.PermissionDenied, "grpchub: token tenant %q does not match hello tenant %q", claims.TenantId, hello.Hello.TenantId)
		}
	}

	connectorId := uuid.NewString()
	cs := &connectorStream{
		id:                  connectorId,
		tenantId:            hello.Hello.TenantId,
		binarySizeThreshold: hello.Hello.BinarySizeThreshold,
		stream:              stream,
		send:                make(chan *envelope, 64),
		done:                make(chan struct{}),
	}

	s.register(cs)
	defer s.unregister(cs)

	s.log.WithFields(logrus.Fields{
		"connector_id": connectorId,
		"tenant_id":    cs.tenantId,
	}).Info("connector connected")

	// Writer: drains the per-connector send queue onto the stream.
	writeErrCh := make(chan error, 1)
	go func() {
		for {
			select {
			case msg, ok := <-cs.send:
				if !ok {
					writeErrCh <- nil
					return
				}
				if err := stream.SendMsg(msg); err != nil {
					writeErrCh <- err
					return
				}
			case <-cs.done:
				writeErrCh <- nil
				return
			}
		}
	}()

	// Reader: consumes keepalives (and any other connector-originated
	// control traffic) until the stream breaks.
	readErrCh := make(chan error, 1)
	go func() {
		for {
			var msg envelope
			if err := stream.RecvMsg(&msg); err != nil {
				readErrCh <- err
				return
			}
		}
	}()

	select {
	case err := <-writeErrCh:
		return err
	case err := <-readErrCh:
		return err
	}
}

func (s *Server) register(cs *connectorStream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectors[cs.id] = cs
	s.byTenant[cs.tenantId] = append(s.byTenant[cs.tenantId], cs.id)
}

func (s *Server) unregister(cs *connectorStream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(cs.done)
	delete(s.connectors, cs.id)
	ids := s.byTenant[cs.tenantId]
	for i, id := range ids {
		if id == cs.id {
			s.byTenant[cs.tenantId] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	s.log.WithFields(logrus.Fields{
		"connector_id": cs.id,
		"tenant_id":    cs.tenantId,
	}).Info("connector disconnected")
}

// Send implements transport.Hub.
func (s *Server) Send(ctx context.Context, connectorId string, req *relaytypes.RelayRequest) error {
	return s.push(connectorId, &envelope{Type: typeRequest, Request: req})
}

// Configure implements transport.Hub.
func (s *Server) Configure(ctx context.Context, connectorId string, cfg relaytypes.TenantConfig) error {
	cfgCopy := cfg
	return s.push(connectorId, &envelope{Type: typeConfigure, Configure: &cfgCopy})
}

func (s *Server) push(connectorId string, msg *envelope) error {
	s.mu.RLock()
	cs, ok := s.connectors[connectorId]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("grpchub: connector %s not connected", connectorId)
	}
	select {
	case cs.send <- msg:
		return nil
	case <-cs.done:
		return fmt.Errorf("grpchub: connector %s disconnected", connectorId)
	}
}

// ConnectorsForTenant implements transport.Hub.
func (s *Server) ConnectorsForTenant(tenantId string) []transport.ConnectorInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byTenant[tenantId]
	out := make([]transport.ConnectorInfo, 0, len(ids))
	for _, id := range ids {
		cs := s.connectors[id]
		if cs == nil {
			continue
		}
		out = append(out, transport.ConnectorInfo{
			ConnectorId:         cs.id,
			TenantId:            cs.tenantId,
			BinarySizeThreshold: cs.binarySizeThreshold,
		})
	}
	return out
}

var _ transport.Hub = (*Server)(nil)
