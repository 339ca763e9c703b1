package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	platformlogging "github.com/shestoi/stockhold/platform/logging"
	platformobservability "github.com/shestoi/stockhold/platform/observability"
	platformshutdown "github.com/shestoi/stockhold/platform/shutdown"
	httpapi "github.com/shestoi/stockhold/services/reservation/internal/api/http"
	httpclient "github.com/shestoi/stockhold/services/reservation/internal/client/http"
	"github.com/shestoi/stockhold/services/reservation/internal/config"
	eventkafka "github.com/shestoi/stockhold/services/reservation/internal/event/kafka"
	"github.com/shestoi/stockhold/services/reservation/internal/job"
	"github.com/shestoi/stockhold/services/reservation/internal/service"
)

// worker фоновый процесс, запускаемый через shutdown manager
type worker struct {
	name  string
	start func(ctx context.Context) error
}

// App содержит все зависимости для запуска и корректного shutdown Reservation Service
type App struct {
	logger      *zap.Logger
	httpServer  *http.Server
	expiryJob   *job.ExpiryJob
	workers     []worker
	shutdownMgr *platformshutdown.Manager
	wg          sync.WaitGroup
}

// Build создаёт и настраивает все зависимости Reservation Service
func Build(cfg config.Config) (*App, error) {
	const op = "app.Build"
	ctx := context.Background()

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	cfg.Log(logger)

	// OpenTelemetry: traces + metrics (noop если OTEL_ENABLED=false)
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
	logger.Info("Building Reservation service", zap.String("http_addr", cfg.HTTPAddr))

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	// otel последним, чтобы успели записаться spans/metrics
	shutdownMgr.Add("otel", otelShutdown)

	d, err := buildDeps(ctx, cfg, logger, shutdownMgr)
	if err != nil {
		shutdownMgr.Shutdown()
		return nil, err
	}

	stores := httpclient.NewStoreClient(cfg.StoreURL, cfg.StoreTimeout, retryPolicy(cfg), d.httpClient, logger.Named("store_client"))
	shipping := httpclient.NewShippingClient(cfg.ShippingURL, cfg.ShippingTimeout, retryPolicy(cfg), d.httpClient, logger.Named("shipping_client"))

	reservationService := service.NewReservationService(d.inventory, d.reservations, d.states, d.policy, logger.Named("reservations"))
	orderService := service.NewOrderReservationService(d.inventory, stores, shipping, d.reservations, d.states, d.policy, logger.Named("orders"))

	expiryJob, err := d.newExpiryJob(cfg, logger)
	if err != nil {
		shutdownMgr.Shutdown()
		return nil, err
	}

	a := &App{
		logger:      logger,
		expiryJob:   expiryJob,
		shutdownMgr: shutdownMgr,
	}

	if cfg.KafkaEnabled {
		a.buildKafka(cfg, d, reservationService)
	} else {
		logger.Info("KAFKA_ENABLED=false, reservation events stay in the outbox")
	}

	handler := httpapi.NewHandler(reservationService, orderService, expiryJob, logger)
	router := httpapi.NewRouter(handler, logger, d.checks...)

	a.httpServer = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// выполняются в обратном порядке: сначала HTTP, затем планировщик, затем соединения
	shutdownMgr.Add("expiry_job", platformshutdown.StopScheduler(expiryJob))
	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(a.httpServer))

	return a, nil
}

// buildKafka подключает outbox dispatcher и consumers событий заказа
func (a *App) buildKafka(cfg config.Config, d *deps, lifecycle service.OrderLifecycle) {
	logger := a.logger
	writer := cfg.Kafka.NewWriter()

	dispatcher := eventkafka.NewOutboxDispatcher(
		logger.Named("outbox_dispatcher"),
		d.outbox,
		writer,
		cfg.OutboxBatchSize,
		cfg.OutboxInterval,
		cfg.OutboxMaxRetries,
		cfg.OutboxBackoff,
	)
	a.shutdownMgr.Add("kafka_writer", func(ctx context.Context) error {
		return dispatcher.Close()
	})
	a.workers = append(a.workers, worker{name: "outbox_dispatcher", start: dispatcher.Start})

	dlq := eventkafka.NewDLQPublisher(logger.Named("dlq"), writer, cfg.DLQTopic)
	eventService := service.NewOrderEventService(lifecycle, d.processed, cfg.ProcessedEventTTL, logger.Named("order_events"))

	topics := []struct {
		topic     string
		eventType string
	}{
		{cfg.PaymentCompletedTopic, service.EventOrderPaymentCompleted},
		{cfg.AssemblyCompletedTopic, service.EventOrderAssemblyCompleted},
	}
	for _, t := range topics {
		consumer := eventkafka.NewOrderEventConsumer(
			logger.Named("order_consumer").With(zap.String("topic", t.topic)),
			cfg.Kafka.NewReader(cfg.ConsumerGroupID, t.topic),
			eventService,
			dlq,
			t.eventType,
			cfg.ConsumerMaxAttempts,
			cfg.ConsumerBackoffBase,
		)
		a.shutdownMgr.Add("kafka_consumer_"+t.topic, func(ctx context.Context) error {
			return consumer.Close()
		})
		a.workers = append(a.workers, worker{name: "order_consumer_" + t.topic, start: consumer.Start})
	}

	logger.Info("Kafka enabled",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("events_topic", cfg.EventsTopic),
		zap.String("payment_topic", cfg.PaymentCompletedTopic),
		zap.String("assembly_topic", cfg.AssemblyCompletedTopic),
		zap.String("dlq_topic", cfg.DLQTopic),
	)
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting Reservation service", zap.String("addr", a.httpServer.Addr))

	if err := a.expiryJob.Start(a.shutdownMgr.Context()); err != nil {
		return err
	}
	for _, w := range a.workers {
		a.shutdownMgr.Go(w.name, w.start)
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
	a.logger.Info("Reservation service stopped")
	return nil
}
