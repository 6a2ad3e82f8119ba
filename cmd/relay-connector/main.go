package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/drewpayment/orbit-relay/internal/bodystore"
	"github.com/drewpayment/orbit-relay/internal/connectorside"
	"github.com/drewpayment/orbit-relay/internal/relaylog"
	"github.com/drewpayment/orbit-relay/internal/transport"
	"github.com/drewpayment/orbit-relay/internal/transport/grpchub"
	"github.com/drewpayment/orbit-relay/internal/transport/kafkabroker"
)

func main() {
	cfg := loadConfig()
	log := relaylog.New(cfg.LogLevel)
	log.Info("orbit-relay connector starting")

	if cfg.TenantId == "" {
		log.Fatal("RELAY_TENANT_ID is required")
	}

	conn, err := grpc.NewClient(cfg.HubAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.WithError(err).Fatal("dial hub")
	}
	defer conn.Close()

	store, err := newBodyStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("initialize body store")
	}

	broker, err := kafkabroker.New(splitCSV(cfg.KafkaBrokers)...)
	if err != nil {
		log.WithError(err).Fatal("initialize broker")
	}
	defer broker.Close()
	serverTransport := transport.NewBrokerServerTransport(broker)

	handler := connectorside.NewHTTPTargetHandler(cfg.TargetBaseURL)
	client := grpchub.NewClient(conn, cfg.AuthToken)

	connection := connectorside.New(client, handler, serverTransport, store, connectorside.Config{
		TenantId:              cfg.TenantId,
		BinarySizeThreshold:   cfg.BinarySizeThreshold,
		ReconnectMinimumDelay: cfg.ReconnectMinimumDelay,
		ReconnectMaximumDelay: cfg.ReconnectMaximumDelay,
	}, log.WithField("component", "connection"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go logEvents(log, connection)

	connection.Start(ctx)
	log.Info("orbit-relay connector started")

	<-ctx.Done()
	log.Info("shutdown signal received")
	connection.Stop()
	log.Info("orbit-relay connector stopped")
}

func logEvents(log *logrus.Logger, connection *connectorside.Connection) {
	for ev := range connection.Events() {
		log.WithField("event", ev.Kind.String()).Info("connection state changed")
	}
}

func newBodyStore(cfg *Config) (bodystore.Store, error) {
	switch cfg.BodyStoreBackend {
	case "blob":
		return bodystore.NewBlob(context.Background(), cfg.BlobEndpoint, cfg.BlobAccessKey, cfg.BlobSecretKey, cfg.BlobBucket, cfg.BlobUseSSL)
	default:
		return bodystore.NewFileSystem(cfg.BodyStoreDir)
	}
}
