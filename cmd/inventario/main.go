package main

import (
	cataloghandler "inventario/internal/catalog/handler"
	catalogrepo "inventario/internal/catalog/repository"
	catalogservice "inventario/internal/catalog/service"
	"inventario/internal/entitlements"
	"inventario/internal/notifications"
	objecthandler "inventario/internal/objects/handler"
	objectrepo "inventario/internal/objects/repository"
	objectservice "inventario/internal/objects/service"
	reservationhandler "inventario/internal/reservations/handler"
	reservationrepo "inventario/internal/reservations/repository"
	reservationservice "inventario/internal/reservations/service"
	"inventario/internal/reservations/validator"
	"inventario/pkg/app"
	"inventario/pkg/config"
	"inventario/pkg/kafka"
)

const ServiceName = "inventario"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Inventario service")

	dispatcher, closeDispatcher := initDispatcher(cfg)
	defer closeDispatcher()

	gate := initGate(cfg)

	objectRepo := objectrepo.NewMongoObjectRepository(cfg)
	siteRepo := catalogrepo.NewMongoSiteRepository(cfg)
	typeRepo := catalogrepo.NewMongoTypeRepository(cfg)
	reservationRepo := reservationrepo.NewMongoReservationRepository(cfg)
	lockRepo := reservationrepo.NewReservationLockRepository(cfg)

	projector := reservationservice.NewStatusProjector(objectRepo, reservationRepo, cfg.Log)
	scheduler := reservationservice.NewSchedulerService(
		reservationRepo,
		lockRepo,
		objectRepo,
		typeRepo,
		gate,
		projector,
		dispatcher,
		validator.NewReservationValidator(cfg.Log),
		cfg,
	)
	lifecycle := reservationservice.NewLifecycleService(reservationRepo, objectRepo, typeRepo, projector, cfg)
	objects := objectservice.NewObjectService(objectRepo, gate, cfg)
	catalog := catalogservice.NewCatalogService(siteRepo, typeRepo, objectRepo, cfg)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		reservationhandler.NewReservationHandler(scheduler, lifecycle, cfg.Log),
		objecthandler.NewObjectHandler(objects, cfg.Log),
		cataloghandler.NewCatalogHandler(catalog, cfg.Log),
	)
	serverApp.Run()
}

func initGate(cfg *config.Config) entitlements.Gate {
	if cfg.EntitlementsBaseURL != "" {
		cfg.Log.Info("Using entitlement service", "base_url", cfg.EntitlementsBaseURL)
		return entitlements.NewHTTPGate(cfg.EntitlementsBaseURL, cfg.EntitlementsRefresh, cfg.Log)
	}

	// Standalone deployment without a licensing service: everything enabled.
	cfg.Log.Info("No entitlement service configured, running unrestricted")
	return entitlements.NewStaticGate(entitlements.Limits{
		Pro:             true,
		AllowHidden:     true,
		PeriodicEnabled: true,
	})
}

func initDispatcher(cfg *config.Config) (notifications.Dispatcher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		cfg.Log.Info("No Kafka brokers configured, confirmations disabled")
		return notifications.NewNoopDispatcher(), func() {}
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaConfirmationsTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize Kafka producer", "error", err)
	}

	cfg.Log.Info("Kafka confirmations enabled", "topic", cfg.KafkaConfirmationsTopic)
	closeFn := func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Warn("Failed to close Kafka producer", "error", err)
		}
	}
	return notifications.NewKafkaDispatcher(producer, cfg.Log), closeFn
}
