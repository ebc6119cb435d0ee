package main

import (
	"communa/internal/reservations/handler"
	"communa/internal/reservations/notify"
	"communa/internal/reservations/repository"
	"communa/internal/reservations/service"
	"communa/internal/reservations/validator"
	"communa/pkg/app"
	"communa/pkg/config"
	"communa/pkg/kafka"
	kafka_config "communa/pkg/kafka/config"
	kafka_middleware "communa/pkg/kafka/middleware"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Reservations service")
	reservationService := initServices(cfg)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewReservationHandler(reservationService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) service.ReservationService {
	reservationValidator := validator.NewReservationValidator(cfg.Log)
	reservationRepo := repository.NewMongoReservationRepository(cfg)
	lockRepo := repository.NewSlotLockRepository(cfg)
	amenityRepo := repository.NewMongoAmenityRepository(cfg)

	reservationService := service.NewReservationService(
		reservationRepo,
		lockRepo,
		amenityRepo,
		reservationValidator,
		initDispatcher(cfg),
		cfg,
	)

	cfg.Log.Info("Reservation service initialized", "database", cfg.MongoDatabaseName)
	return reservationService
}

// initDispatcher builds the Kafka notification dispatcher. The service
// stays up without Kafka; events are dropped until the broker returns.
func initDispatcher(cfg *config.Config) notify.Dispatcher {
	producer, err := kafka.NewProducer(kafka_config.Load(), cfg.NotificationsTopic, cfg.NotificationsDLQTopic)
	if err != nil {
		cfg.Log.Error("Failed to create Kafka producer, notifications disabled", "error", err)
		return notify.NopDispatcher{}
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))

	cfg.Log.Info("Notification dispatcher initialized",
		"topic", cfg.NotificationsTopic,
		"dlq_topic", cfg.NotificationsDLQTopic,
	)
	return notify.NewKafkaDispatcher(producer, cfg.Log)
}
