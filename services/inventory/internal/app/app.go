package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	platformhealthgrpc "github.com/shestoi/stockhold/platform/health/grpc"
	platformhealth "github.com/shestoi/stockhold/platform/health/http"
	platformlogging "github.com/shestoi/stockhold/platform/logging"
	platformobservability "github.com/shestoi/stockhold/platform/observability"
	platformshutdown "github.com/shestoi/stockhold/platform/shutdown"
	httpapi "github.com/shestoi/stockhold/services/inventory/internal/api/http"
	"github.com/shestoi/stockhold/services/inventory/internal/config"
	"github.com/shestoi/stockhold/services/inventory/internal/repository"
	"github.com/shestoi/stockhold/services/inventory/internal/repository/memory"
	mongorepo "github.com/shestoi/stockhold/services/inventory/internal/repository/mongo"
	"github.com/shestoi/stockhold/services/inventory/internal/service"
)

const serviceName = "inventory"

// App содержит все зависимости для запуска и корректного shutdown Inventory Service
type App struct {
	logger       *zap.Logger
	httpServer   *http.Server
	grpcServer   *grpc.Server
	grpcListener net.Listener
	health       *platformhealthgrpc.Health
	shutdownMgr  *platformshutdown.Manager
	wg           sync.WaitGroup
}

// Build создаёт и настраивает все зависимости Inventory Service
func Build(cfg config.Config) (*App, error) {
	const op = "app.Build"
	ctx := context.Background()

	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: serviceName,
		Env:         string(cfg.AppEnv),
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})
	if err != nil {
		return nil, err
	}
	cfg.Log(logger)

	otelShutdown, err := platformobservability.Init(ctx, platformobservability.Config{
		Enabled:               cfg.OTelEnabled,
		OTLPEndpoint:          cfg.OTelEndpoint,
		SamplingRatio:         cfg.OTelSamplingRatio,
		ServiceName:           serviceName,
		DeploymentEnvironment: string(cfg.AppEnv),
	})
	if err != nil {
		return nil, err
	}

	logger = logger.With(zap.String("op", op))
	logger.Info("Building Inventory service", zap.String("http_addr", cfg.HTTPAddr))

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	shutdownMgr.Add("otel", otelShutdown)

	// health стартует в NOT_SERVING, SERVING после подключения хранилища
	health := platformhealthgrpc.New()

	repo, checks, err := buildRepository(ctx, cfg, logger, shutdownMgr)
	if err != nil {
		shutdownMgr.Shutdown()
		return nil, err
	}
	health.SetServing("")

	stockService := service.NewStockService(repo, logger.Named("stock"))
	handler := httpapi.NewHandler(stockService, logger)
	router := httpapi.NewRouter(handler, logger, checks...)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	a := &App{
		logger:      logger,
		httpServer:  httpServer,
		health:      health,
		shutdownMgr: shutdownMgr,
	}

	if cfg.GRPCHealthAddr != "" {
		listener, err := net.Listen("tcp", cfg.GRPCHealthAddr)
		if err != nil {
			shutdownMgr.Shutdown()
			return nil, err
		}
		a.grpcListener = listener
		a.grpcServer = grpc.NewServer(
			grpc.UnaryInterceptor(platformobservability.GRPCUnaryServerInterceptor(serviceName)),
		)
		health.Register(a.grpcServer)
		shutdownMgr.Add("grpc_server", platformshutdown.ShutdownGRPCServer(a.grpcServer))
		logger.Info("gRPC health server configured", zap.String("addr", cfg.GRPCHealthAddr))
	}

	// в обратном порядке: readiness, HTTP, gRPC, хранилище, otel
	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(httpServer))
	shutdownMgr.Add("health_readiness", platformshutdown.SetHealthNotServing(health))

	return a, nil
}

// buildRepository подключает MongoDB или in-memory хранилище (INVENTORY_STORAGE=memory)
func buildRepository(ctx context.Context, cfg config.Config, logger *zap.Logger, shutdownMgr *platformshutdown.Manager) (repository.StockRepository, []platformhealth.Check, error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn("INVENTORY_STORAGE=memory, stock is not persisted")
		return memory.NewRepository(), nil, nil
	}

	logger.Info("Connecting to MongoDB")
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, err
	}
	shutdownMgr.Add("mongodb", platformshutdown.DisconnectMongo(client))

	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, nil, err
	}
	logger.Info("MongoDB connection established")

	repo, err := mongorepo.NewRepository(connectCtx, client, cfg.MongoDBName)
	if err != nil {
		return nil, nil, err
	}

	check := platformhealth.Check{
		Name: "mongodb",
		Fn: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
	}
	return repo, []platformhealth.Check{check}, nil
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting Inventory service", zap.String("addr", a.httpServer.Addr))

	if a.grpcServer != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.grpcServer.Serve(a.grpcListener); err != nil {
				a.logger.Error("gRPC server error", zap.Error(err))
			}
		}()
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Ожидаем сигнал и выполняем shutdown
	a.shutdownMgr.Wait()

	a.wg.Wait()
	a.logger.Info("Inventory service stopped")
	return nil
}
