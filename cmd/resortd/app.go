package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"resortops/internal/app/availability"
	appbilling "resortops/internal/app/billing"
	"resortops/internal/app/commands"
	"resortops/internal/app/dto"
	billingapp "resortops/internal/app/handlers/billing"
	reservationapp "resortops/internal/app/handlers/reservations"
	settingsapp "resortops/internal/app/handlers/settings"
	"resortops/internal/app/middleware"
	"resortops/internal/app/notify"
	appoutbox "resortops/internal/app/outbox"
	"resortops/internal/app/policies"
	"resortops/internal/app/queries"
	"resortops/internal/app/sweep"
	"resortops/internal/app/uow"
	"resortops/internal/domain/settings"
	"resortops/internal/infra/broker/kafka"
	"resortops/internal/infra/config"
	mongostore "resortops/internal/infra/db/mongo"
	ginserver "resortops/internal/infra/http/gin"
	"resortops/internal/infra/lock"
	"resortops/internal/infra/mail"
	"resortops/internal/infra/obs"
	outboxworker "resortops/internal/infra/outbox"
	"resortops/internal/infra/payments"
	"resortops/internal/infra/schedule"
	"resortops/internal/infra/storage/memory"
	"resortops/internal/infra/storage/s3"
)

type application struct {
	cfg      config.Config
	logger   *slog.Logger
	handlers ginserver.Handlers
	health   obs.HealthHandlers

	factory   uow.UoWFactory
	seed      seeder
	scheduler *schedule.Scheduler
	worker    *outboxworker.Worker
	closers   []func()
}

// storage is what the two backends provide to the rest of the wiring.
type storage struct {
	factory     uow.UoWFactory
	settings    settings.Repository
	outbox      appoutbox.Outbox
	source      outboxworker.Source
	idempotency middleware.IdempotencyStore
	seed        seeder
	checks      map[string]func(ctx context.Context) error
	close       func()
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{cfg: cfg, logger: logger}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, store.close)
	app.factory = store.factory
	app.seed = store.seed

	gateway, err := paymentGateway(cfg, logger)
	if err != nil {
		return nil, err
	}
	mailer := notify.Mailer{Notifier: notifier(cfg, logger), Timeout: cfg.EmailTimeout, Logger: logger}
	provider := settings.NewCachedProvider(store.settings, cfg.SettingsCacheTTL)

	reconciler := appbilling.Reconciler{Mailer: mailer, Logger: logger}
	if archive := receiptArchive(cfg, logger); archive != nil {
		reconciler.Archive = archive
	}

	service := &reservationapp.Service{
		UoWFactory:   store.factory,
		Availability: availability.Validator{},
		Issuer: appbilling.Issuer{
			Payments:      gateway,
			Settings:      provider,
			PublicBaseURL: cfg.PublicBaseURL,
		},
		Reconciler: reconciler,
		Payments:   gateway,
		Settings:   provider,
		Mailer:     mailer,
		Outbox:     store.outbox,
		Encoder:    appoutbox.JSONEventEncoder{IDGenerator: uuid.NewString},
		LockTTL:    cfg.LockTTL,
		Logger:     logger,
	}

	commandRegistry := commands.NewRegistry()
	commands.Register[reservationapp.CreateReservationCommand, *dto.Reservation](commandRegistry, reservationapp.CreateHandler{Service: service})
	commands.Register[reservationapp.ConfirmDepositCommand, *dto.Reservation](commandRegistry, reservationapp.ConfirmDepositHandler{Service: service})
	commands.Register[reservationapp.CancelReservationCommand, *dto.Cancellation](commandRegistry, reservationapp.CancelHandler{Service: service})
	commands.Register[reservationapp.UpdateRoomsCommand, *dto.Reservation](commandRegistry, reservationapp.UpdateRoomsHandler{Service: service})
	commands.Register[reservationapp.CheckInCommand, *dto.Reservation](commandRegistry, reservationapp.CheckInHandler{Service: service})
	commands.Register[reservationapp.CheckOutCommand, *dto.Reservation](commandRegistry, reservationapp.CheckOutHandler{Service: service})
	commands.Register[billingapp.ApplyPaymentCommand, *dto.Payment](commandRegistry, billingapp.ApplyPaymentHandler{UoWFactory: store.factory, Reconciler: reconciler, Logger: logger})
	commands.Register[settingsapp.UpdateSettingsCommand, *dto.Settings](commandRegistry, settingsapp.UpdateSettingsHandler{UoWFactory: store.factory, Provider: provider, Logger: logger})

	queryRegistry := queries.NewRegistry()
	queries.Register[reservationapp.GetReservationQuery, *dto.Reservation](queryRegistry, reservationapp.GetReservationHandler{Service: service})
	queries.Register[reservationapp.ListReservationsQuery, *dto.ReservationCollection](queryRegistry, reservationapp.ListReservationsHandler{Service: service})
	queries.Register[reservationapp.CalendarQuery, *dto.Calendar](queryRegistry, reservationapp.CalendarHandler{Service: service})
	queries.Register[billingapp.GetInvoiceQuery, *dto.Invoice](queryRegistry, billingapp.GetInvoiceHandler{UoWFactory: store.factory})
	queries.Register[billingapp.ListReceiptsQuery, *dto.ReceiptCollection](queryRegistry, billingapp.ListReceiptsHandler{UoWFactory: store.factory})
	queries.Register[settingsapp.GetSettingsQuery, *dto.Settings](queryRegistry, settingsapp.GetSettingsHandler{UoWFactory: store.factory})

	app.worker = &outboxworker.Worker{
		Store:       store.source,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}

	validator := middleware.NewStructValidator()
	commandBus := middleware.ChainCommands(
		commandRegistry,
		middleware.Logging(logger),
		middleware.Validation(validator),
		middleware.OutboxNotify(app.worker),
		middleware.Idempotency(store.idempotency),
		middleware.Transaction(store.factory, nil),
	)
	queryBus := middleware.ChainQueries(queryRegistry, middleware.QueryValidation(validator))

	respond := ginserver.Responder{Production: cfg.Production(), Debug: cfg.Env == "debug", Logger: logger}
	auth, err := authMiddleware(cfg, logger)
	if err != nil {
		return nil, err
	}
	app.handlers = ginserver.Handlers{
		Reservations:   ginserver.ReservationHandler{Commands: commandBus, Queries: queryBus, Respond: respond},
		Billing:        ginserver.BillingHandler{Commands: commandBus, Queries: queryBus, Respond: respond},
		Settings:       ginserver.SettingsHandler{Commands: commandBus, Queries: queryBus, Respond: respond},
		AuthMiddleware: auth.Handle,
	}

	locker, checks, closeRedis := distributedLocker(ctx, cfg, logger)
	app.closers = append(app.closers, closeRedis)
	for name, check := range checks {
		store.checks[name] = check
	}
	app.health = obs.HealthHandlers{Checks: store.checks}

	app.scheduler, err = schedule.New(ctx, schedule.Options{Interval: cfg.SweepInterval, Locker: locker, Logger: logger},
		schedule.Job{Name: "room-lock-expiry", Sweep: sweep.LockExpiry{Reservations: service, Logger: logger}},
		schedule.Job{Name: "reservation-completion", Sweep: sweep.Completion{Reservations: service, Logger: logger}},
	)
	if err != nil {
		return nil, err
	}

	producer, closeProducer, err := eventProducer(cfg, logger)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, closeProducer)
	app.worker.Producer = producer
	return app, nil
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	switch cfg.Storage {
	case config.StorageMongo:
		client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return storage{}, fmt.Errorf("connect mongo: %w", err)
		}
		repos := mongostore.NewRepositories(client.DB)
		box, err := outboxworker.NewStore(ctx, client.DB)
		if err != nil {
			_ = client.Close(context.Background())
			return storage{}, err
		}
		factory := mongostore.Factory{DB: client.DB, Repos: repos}
		logger.Info("storage ready", "backend", "mongo", "database", cfg.MongoDB)
		return storage{
			factory:     factory,
			settings:    repos.Settings,
			outbox:      box,
			source:      box,
			idempotency: mongostore.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL),
			seed:        seeder{factory: factory, rates: repos.Rates},
			checks:      map[string]func(ctx context.Context) error{"mongo": client.Ping},
			close: func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = client.Close(closeCtx)
			},
		}, nil
	default:
		store := memory.NewStore()
		box := memory.NewOutbox()
		factory := memory.Factory{Store: store}
		logger.Info("storage ready", "backend", "memory")
		return storage{
			factory:     factory,
			settings:    store.SettingsRepository(),
			outbox:      box,
			source:      box,
			idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
			seed:        seeder{factory: factory, rates: memoryRates{store: store}},
			checks:      map[string]func(ctx context.Context) error{},
			close:       func() {},
		}, nil
	}
}

func paymentGateway(cfg config.Config, logger *slog.Logger) (policies.PaymentGateway, error) {
	if cfg.PaymentBaseURL == "" {
		if cfg.Production() {
			return nil, errors.New("PAYMENT_BASE_URL is required in production")
		}
		logger.Warn("payment provider not configured, using sandbox")
		return payments.Sandbox{Logger: logger}, nil
	}
	return payments.NewClient(cfg.PaymentBaseURL, cfg.PaymentAPIKey, cfg.PaymentTimeout, logger)
}

func notifier(cfg config.Config, logger *slog.Logger) policies.Notifier {
	if cfg.SMTPHost == "" {
		return mail.LogNotifier{Logger: logger}
	}
	n, err := mail.NewSMTPNotifier(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	if err != nil {
		logger.Warn("smtp disabled", "error", err)
		return mail.LogNotifier{Logger: logger}
	}
	return n
}

func receiptArchive(cfg config.Config, logger *slog.Logger) policies.ReceiptArchive {
	if cfg.S3Endpoint == "" {
		return nil
	}
	archive, err := s3.NewReceiptArchive(s3.Config{
		Endpoint:       cfg.S3Endpoint,
		PublicEndpoint: cfg.S3PublicEndpoint,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		Bucket:         cfg.S3Bucket,
		UseSSL:         cfg.S3UseSSL,
	}, logger)
	if err != nil {
		logger.Warn("receipt archive disabled", "error", err)
		return nil
	}
	return archive
}

func authMiddleware(cfg config.Config, logger *slog.Logger) (ginserver.AuthMiddleware, error) {
	if cfg.JWTSecret != "" {
		return ginserver.AuthMiddleware{Secret: []byte(cfg.JWTSecret), Logger: logger}, nil
	}
	if cfg.Production() {
		return ginserver.AuthMiddleware{}, errors.New("JWT_SECRET is required in production")
	}
	logger.Warn("JWT_SECRET not set, every request acts as staff")
	return ginserver.AuthMiddleware{Open: true, Logger: logger}, nil
}

func distributedLocker(ctx context.Context, cfg config.Config, logger *slog.Logger) (gocron.Locker, map[string]func(context.Context) error, func()) {
	if cfg.RedisURL == "" {
		return nil, nil, func() {}
	}
	client, err := lock.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, sweeps run without a distributed lock", "error", err)
		return nil, nil, func() {}
	}
	checks := map[string]func(context.Context) error{
		"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
	}
	return lock.NewRedisLocker(client, cfg.SweepInterval), checks, func() { _ = client.Close() }
}

func eventProducer(cfg config.Config, logger *slog.Logger) (outboxworker.Producer, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		return kafka.LogProducer{Logger: logger}, func() {}, nil
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, "resortd")
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

func (a *application) startBackground(ctx context.Context) {
	a.scheduler.Start()
	a.closers = append(a.closers, func() {
		if err := a.scheduler.Shutdown(); err != nil {
			a.logger.Warn("scheduler shutdown failed", "error", err)
		}
	})
	go func() {
		if err := a.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("outbox worker stopped", "error", err)
		}
	}()
}

// Close releases resources in reverse order of acquisition.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
