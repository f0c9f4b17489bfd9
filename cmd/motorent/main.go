package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	bookingapp "motorent/internal/app/handlers/booking"
	paymentapp "motorent/internal/app/handlers/payment"
	payoutapp "motorent/internal/app/handlers/payout"
	vehicleapp "motorent/internal/app/handlers/vehicle"
	appoutbox "motorent/internal/app/outbox"
	"motorent/internal/app/policies"
	"motorent/internal/app/schedule"
	authsvc "motorent/internal/app/services/auth"
	domainauth "motorent/internal/domain/auth"
	domainbooking "motorent/internal/domain/booking"
	domainpricing "motorent/internal/domain/pricing"
	domainuser "motorent/internal/domain/user"
	domainvehicle "motorent/internal/domain/vehicle"
	"motorent/internal/infra/broker/kafka"
	"motorent/internal/infra/config"
	mongodb "motorent/internal/infra/db/mongo"
	ginserver "motorent/internal/infra/http/gin"
	"motorent/internal/infra/obs"
	infraoutbox "motorent/internal/infra/outbox"
	paymemory "motorent/internal/infra/payments/memory"
	"motorent/internal/infra/payments/stripegw"
	"motorent/internal/infra/security"
	"motorent/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	runner := &schedule.Runner{Logger: logger}
	runner.Start(ctx,
		schedule.Job{Name: "payout-sweep", Every: cfg.PayoutSweepInterval, Run: app.payoutSweep.Run},
		schedule.Job{Name: "vehicle-reactivation", Every: cfg.ReactivateSweepInterval, Run: app.reactivation.Run},
	)

	if app.outboxWorker != nil {
		go func() {
			if err := app.outboxWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "env", cfg.Env)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	runner.Wait()
	if app.producer != nil {
		_ = app.producer.Close()
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers     ginserver.Handlers
	payoutSweep  *payoutapp.SweepHandler
	reactivation *vehicleapp.ReactivateHandler
	outboxWorker *infraoutbox.Worker
	producer     *kafka.Producer
	ready        func() error
}

func buildApplication(cfg config.Config, logger *slog.Logger) (*application, error) {
	var (
		bookings  domainbooking.Repository
		vehicles  domainvehicle.Repository
		users     domainuser.Repository
		sessions  domainauth.SessionStore
		box       appoutbox.Outbox
		boxStore  infraoutbox.Store
		readiness = func() error { return nil }
	)

	if cfg.MongoURI != "" {
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		bookings = mongodb.NewBookingRepository(client.DB)
		vehicles = mongodb.NewVehicleRepository(client.DB)
		users = mongodb.NewUserRepository(client.DB)
		sessions = memory.NewSessionStore()
		mongoBox := infraoutbox.NewMongoStore(client.DB)
		box, boxStore = mongoBox, mongoBox
		readiness = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
		logger.Info("storage backend", "kind", "mongo", "db", cfg.MongoDB)
	} else {
		bookings = memory.NewBookingRepository()
		vehicles = memory.NewVehicleRepository()
		users = memory.NewUserRepository()
		sessions = memory.NewSessionStore()
		memBox := memory.NewOutbox()
		box, boxStore = memBox, memBox
		logger.Warn("storage backend is in-memory, data is not durable")
	}

	var payments policies.PaymentsPort
	if cfg.StripeSecretKey != "" {
		payments = &stripegw.Client{
			SecretKey:  cfg.StripeSecretKey,
			ReturnURL:  getenv("STRIPE_RETURN_URL", "http://localhost:3000/connect/return"),
			RefreshURL: getenv("STRIPE_REFRESH_URL", "http://localhost:3000/connect/refresh"),
		}
	} else {
		payments = paymemory.NewGateway()
		logger.Warn("payment gateway is in-memory, no real charges will be made")
	}
	verifier := &stripegw.WebhookVerifier{Secret: cfg.StripeWebhookSecret}

	calculator := domainpricing.NewCalculator(domainpricing.Config{
		PlatformFeePercent: int(cfg.PlatformFeePercent),
		Currency:           cfg.Currency,
	})
	encoder := appoutbox.JSONEventEncoder{}

	authService := &authsvc.Service{
		Users:      users,
		Sessions:   sessions,
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}

	connects := &paymentapp.ConnectHandler{Users: users, Payments: payments, Logger: logger}
	webhooks := &paymentapp.WebhookHandler{Users: users, Payments: payments, Verifier: verifier, Logger: logger}

	app := &application{
		handlers: ginserver.Handlers{
			Auth: ginserver.AuthHandler{Service: authService, Logger: logger},
			Booking: ginserver.BookingHandler{
				Creates: &bookingapp.CreateHandler{
					Bookings: bookings,
					Vehicles: vehicles,
					Payments: payments,
					Pricing:  calculator,
					Outbox:   box,
					Encoder:  encoder,
					Currency: cfg.Currency,
					Logger:   logger,
				},
				Confirms: &bookingapp.ConfirmHandler{
					Bookings:    bookings,
					Outbox:      box,
					Encoder:     encoder,
					PayoutDelay: cfg.PayoutDelay,
				},
				Cancels: &bookingapp.CancelHandler{
					Bookings: bookings,
					Users:    users,
					Payments: payments,
					Outbox:   box,
					Encoder:  encoder,
					Logger:   logger,
				},
				Queries: &bookingapp.QueryHandler{Bookings: bookings},
				Logger:  logger,
			},
			Payment: ginserver.PaymentHandler{
				Connects: connects,
				Webhooks: webhooks,
				Logger:   logger,
			},
			AuthMiddleware: ginserver.AuthMiddleware{Service: authService, Logger: logger}.Handle,
		},
		payoutSweep: &payoutapp.SweepHandler{
			Bookings: bookings,
			Users:    users,
			Payments: payments,
			Pricing:  calculator,
			Outbox:   box,
			Encoder:  encoder,
			Logger:   logger,
		},
		reactivation: &vehicleapp.ReactivateHandler{Vehicles: vehicles, Logger: logger},
		ready:        readiness,
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return nil, err
		}
		app.producer = producer
		app.outboxWorker = &infraoutbox.Worker{
			Store:       boxStore,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
		}
		logger.Info("outbox publisher enabled", "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("outbox publisher disabled, no Kafka brokers configured")
	}

	return app, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
