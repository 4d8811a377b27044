package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/pressroom-labs/catalog-allocation-go/internal/api"
	"github.com/pressroom-labs/catalog-allocation-go/internal/application"
	"github.com/pressroom-labs/catalog-allocation-go/internal/config"
	"github.com/pressroom-labs/catalog-allocation-go/internal/infrastructure/db"
	"github.com/pressroom-labs/catalog-allocation-go/internal/infrastructure/messaging"
	outboxinfra "github.com/pressroom-labs/catalog-allocation-go/internal/infrastructure/outbox"
	sweeperinfra "github.com/pressroom-labs/catalog-allocation-go/internal/infrastructure/sweeper"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting catalog allocation service", zap.String("port", cfg.HttpPort))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbConn, err := sql.Open("pgx", cfg.PgDsn)
	if err != nil {
		logger.Fatal("failed to open postgres", zap.Error(err))
	}
	defer dbConn.Close()

	if err := dbConn.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping postgres", zap.Error(err))
	}

	// Repos
	recordRepo := db.NewPgInventoryRecordRepository(dbConn)
	reservationRepo := db.NewPgReservationRepository(dbConn)
	movementRepo := db.NewPgStockMovementRepository(dbConn)
	outboxRepo := db.NewPgOutboxRepository(dbConn)

	// Event buses
	buses := messaging.NewEventBusSet(cfg.RabbitUri)

	// Outbox writer + dispatcher + scheduler
	outboxWriter := application.NewOutboxWriter(outboxRepo)
	dispatcher := outboxinfra.NewDispatcher(
		outboxRepo,
		buses.Producer,
		logger,
		cfg.OutboxMaxRetry,
		cfg.OutboxBatchSize,
	)
	outboxScheduler := outboxinfra.NewScheduler(dispatcher, logger, cfg.OutboxIntervalSec)
	outboxScheduler.Start(ctx)

	// Application services
	atpSvc := application.NewAtpService(recordRepo)
	reservationSvc := application.NewReservationService(
		recordRepo,
		reservationRepo,
		movementRepo,
		outboxWriter,
		logger,
		time.Duration(cfg.ReservationTtlHours)*time.Hour,
	)
	allocationSvc := application.NewAllocationService(atpSvc, reservationSvc, logger)
	sweeperSvc := application.NewSweeperService(reservationRepo, reservationSvc, logger)
	statisticsSvc := application.NewStatisticsService(reservationRepo)
	valuationSvc := application.NewValuationService(movementRepo)

	// Expiration sweep
	sweepScheduler := sweeperinfra.NewScheduler(sweeperSvc, logger, cfg.SweepIntervalSec)
	sweepScheduler.Start(ctx)

	// Inbound event handlers
	orderCancelled := application.NewOrderCancelledHandler(reservationSvc, logger)
	orderShipped := application.NewOrderShippedHandler(reservationSvc, logger)
	stockReceived := application.NewStockReceivedHandler(recordRepo, movementRepo, outboxWriter, logger)

	if err := messaging.RegisterOrderSubscriptions(
		ctx,
		buses.OrdersConsumer,
		logger,
		orderCancelled,
		orderShipped,
	); err != nil {
		logger.Fatal("failed to start orders subscriptions", zap.Error(err))
	}

	if err := messaging.RegisterWarehouseSubscriptions(
		ctx,
		buses.WarehouseConsumer,
		logger,
		stockReceived,
	); err != nil {
		logger.Fatal("failed to start warehouse subscriptions", zap.Error(err))
	}

	// HTTP API
	mux := http.NewServeMux()
	apiServer := api.NewServer(
		cfg,
		atpSvc,
		reservationSvc,
		allocationSvc,
		sweeperSvc,
		statisticsSvc,
		valuationSvc,
		logger,
	)
	apiServer.RegisterRoutes(mux)

	httpSrv := &http.Server{
		Addr:    ":" + cfg.HttpPort,
		Handler: mux,
	}

	go func() {
		logger.Info("http listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", zap.Error(err))
	}
}
