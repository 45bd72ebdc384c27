// main.go
package main

import (
	"context"
	"log"

	"ticket-booking/cmd"
	"ticket-booking/internal/data/repository"
	"ticket-booking/internal/gateway"
	"ticket-booking/internal/queue"
	"ticket-booking/internal/usecase"
	"ticket-booking/internal/wire"
	"ticket-booking/pkg/database"
	"ticket-booking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Connect to database; fall back to the in-memory ledger when none is
	// configured so the service can run standalone in development.
	var repos *repository.Repository
	if config.Database.Host != "" {
		db, err := database.InitDB(config.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		logger.Info("Database connected successfully")
		repos = repository.NewRepository(db, logger)
	} else {
		logger.Warn("No database configured, using in-memory store")
		repos = repository.NewMemoryRepository()
	}

	// Snapshot cache, optional.
	var cache usecase.SeatCache = usecase.NoopSeatCache{}
	if client := database.InitRedis(config.Redis); client != nil {
		cache = usecase.NewRedisSeatCache(client, config.Redis.SnapshotTTL, logger)
		logger.Info("Redis snapshot cache enabled", zap.String("addr", config.Redis.Addr))
	}

	// Event publisher, optional.
	var publisher queue.Publisher = queue.NoopPublisher{}
	if config.Queue.URL != "" {
		amqpPub, err := queue.NewAMQPPublisher(config.Queue.URL, logger)
		if err != nil {
			logger.Warn("RabbitMQ unreachable, events disabled", zap.Error(err))
		} else {
			publisher = amqpPub
			defer publisher.Close()
			logger.Info("RabbitMQ publisher connected")
		}
	}

	gw := gateway.NewSimulatedGateway(logger)

	service := usecase.NewService(repos, gw, publisher, cache, config, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Settle bookings a previous run left in pending_payment before taking
	// traffic, then keep settling: timeouts can park bookings mid-flight.
	if err := service.Saga.RecoverPending(ctx); err != nil {
		logger.Error("Pending booking recovery failed", zap.Error(err))
	}
	go service.Saga.RunRecovery(ctx, config.Payment.RecoveryInterval)

	go service.Sweeper.Run(ctx)

	app := wire.Wiring(service, config, logger)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	cmd.APIServer(app.Router, config.App.Port)
}
