package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/drewpayment/orbit-relay/internal/bodystore"
	"github.com/drewpayment/orbit-relay/internal/coordinator"
	"github.com/drewpayment/orbit-relay/internal/dispatch"
	"github.com/drewpayment/orbit-relay/internal/ingress"
	"github.com/drewpayment/orbit-relay/internal/metrics"
	"github.com/drewpayment/orbit-relay/internal/relaylog"
	"github.com/drewpayment/orbit-relay/internal/tenant"
	"github.com/drewpayment/orbit-relay/internal/transport"
	"github.com/drewpayment/orbit-relay/internal/transport/grpchub"
	"github.com/drewpayment/orbit-relay/internal/transport/kafkabroker"
)

func main() {
	cfg := loadConfig()
	log := relaylog.New(cfg.LogLevel)
	log.Info("orbit-relay server starting")

	store, err := newBodyStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("initialize body store")
	}

	collector := metrics.NewCollector()
	prometheus.MustRegister(collector)

	hubServer := grpchub.NewServer(log.WithField("component", "hub"), authKeyBytes(cfg))
	connectorTransport := transport.NewHubConnectorTransport(hubServer)

	tenants := tenant.NewInMemory()
	if cfg.TenantConfigPath != "" {
		watcher, err := tenant.NewFileWatcher(cfg.TenantConfigPath, tenants, hubServer, log.WithField("component", "tenant"))
		if err != nil {
			log.WithError(err).Fatal("load tenant config")
		}
		defer watcher.Close()
	}

	broker, err := kafkabroker.New(splitCSV(cfg.KafkaBrokers)...)
	if err != nil {
		log.WithError(err).Fatal("initialize broker")
	}
	defer broker.Close()
	serverTransport := transport.NewBrokerServerTransport(broker)

	responses := coordinator.NewResponseCoordinator(store, log.WithField("component", "responses"))
	acknowledges := coordinator.NewAcknowledgeCoordinator(log.WithField("component", "acknowledges"))
	requests := dispatch.NewRequestCoordinator(connectorTransport)

	errChan := make(chan error, 4)

	brokerCtx, cancelBroker := context.WithCancel(context.Background())
	defer cancelBroker()
	go func() {
		err := serverTransport.Run(brokerCtx, cfg.OriginId, responses.ProcessResponse, acknowledges.ProcessAcknowledge)
		if err != nil && brokerCtx.Err() == nil {
			errChan <- fmt.Errorf("broker consumer loop failed: %w", err)
		}
	}()

	relayMiddleware := &ingress.RelayMiddleware{
		Next:                     http.NotFoundHandler(),
		Tenants:                  tenants,
		Responses:                responses,
		Acknowledges:             acknowledges,
		Requests:                 requests,
		Connectors:               connectorTransport,
		BodyStore:                store,
		Factory:                  ingress.DefaultRequestFactory{},
		Writer:                   ingress.DefaultResponseWriter{},
		OriginId:                 cfg.OriginId,
		MemorySpoolLimit:         cfg.MemorySpoolLimitBytes,
		DefaultRequestExpiration: cfg.DefaultRequestExpiration,
		Metrics:                  collector,
		Log:                      log.WithField("component", "ingress"),
	}

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.HTTPPort),
		Handler: relayMiddleware,
	}
	go func() {
		log.Infof("ingress HTTP server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("ingress server failed: %w", err)
		}
	}()

	grpcSrv := grpc.NewServer()
	grpcSrv.RegisterService(&grpchub.ServiceDesc, hubServer)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcSrv, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcSrv)

	grpcLis, err := newListener(cfg.GRPCPort)
	if err != nil {
		log.WithError(err).Fatal("listen for hub gRPC server")
	}
	go func() {
		log.Infof("hub gRPC server listening on :%d", cfg.GRPCPort)
		if err := grpcSrv.Serve(grpcLis); err != nil {
			errChan <- fmt.Errorf("hub server failed: %w", err)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	metricsServer := &http.Server{Addr: ":" + strconv.Itoa(cfg.MetricsPort), Handler: mux}
	go func() {
		log.Infof("metrics server listening on %s", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("metrics server failed: %w", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("orbit-relay server started")
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errChan:
		log.WithError(err).Error("server error")
	}

	log.Info("shutting down")
	cancelBroker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("ingress server shutdown error")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("metrics server shutdown error")
	}
	grpcSrv.GracefulStop()

	log.Info("orbit-relay server stopped")
}

func newBodyStore(cfg *Config) (bodystore.Store, error) {
	switch cfg.BodyStoreBackend {
	case "blob":
		return bodystore.NewBlob(context.Background(), cfg.BlobEndpoint, cfg.BlobAccessKey, cfg.BlobSecretKey, cfg.BlobBucket, cfg.BlobUseSSL)
	default:
		return bodystore.NewFileSystem(cfg.BodyStoreDir)
	}
}

func authKeyBytes(cfg *Config) []byte {
	if cfg.ConnectorAuthSecret == "" {
		return nil
	}
	return []byte(cfg.ConnectorAuthSecret)
}
