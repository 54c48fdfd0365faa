package main

import (
	"time"

	authhandler "rentcar/internal/auth/handler"
	authrepo "rentcar/internal/auth/repository"
	authservice "rentcar/internal/auth/service"
	authvalidator "rentcar/internal/auth/validator"
	bookinghandler "rentcar/internal/bookings/handler"
	bookingrepo "rentcar/internal/bookings/repository"
	bookingservice "rentcar/internal/bookings/service"
	bookingvalidator "rentcar/internal/bookings/validator"
	carhandler "rentcar/internal/cars/handler"
	carrepo "rentcar/internal/cars/repository"
	carservice "rentcar/internal/cars/service"
	carvalidator "rentcar/internal/cars/validator"
	"rentcar/pkg/app"
	"rentcar/pkg/config"
	"rentcar/pkg/credentials"
	"rentcar/pkg/kafka"
	kafka_config "rentcar/pkg/kafka/config"
	kafka_middleware "rentcar/pkg/kafka/middleware"
	"rentcar/pkg/middleware"
	"rentcar/pkg/model"
	"rentcar/pkg/notify"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/crypto/bcrypt"
)

const ServiceName = "rentcar-api"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Rent Car API")

	producer := initProducer(cfg)
	dispatcher := notify.NewDispatcher(producer, ServiceName, cfg.NotifyTimeout, cfg.Log)

	tokens := credentials.NewTokenManager(cfg.JWTSecret, cfg.JWTExpire, cfg.JWTIssuer)
	hasher := credentials.NewPasswordHasher(bcrypt.DefaultCost)

	authenticate := middleware.Authenticate(tokens, cfg.Log)
	adminsOnly := func(next httprouter.Handle) httprouter.Handle {
		return authenticate(middleware.Authorize(model.RoleAdmin)(next))
	}

	users := authrepo.NewMongoUserRepository(cfg)
	verifications := authrepo.NewMongoVerificationRepository(cfg)
	cars := carrepo.NewMongoCarRepository(cfg)
	bookings := bookingrepo.NewMongoBookingRepository(cfg)
	locks := bookingrepo.NewBookingLockRepository(cfg)

	userValidator := authvalidator.NewUserValidator(cfg.Log)
	verification := authservice.NewVerificationManager(users, verifications, hasher, dispatcher, userValidator, cfg)
	authService := authservice.NewAuthService(users, verification, hasher, userValidator, cfg)

	carService := carservice.NewCarService(cars, bookings, carvalidator.NewCarValidator(cfg.Log), cfg)

	admission := bookingservice.NewAdmissionController(cars, bookings, cfg)
	bookingService := bookingservice.NewBookingService(
		bookings,
		locks,
		admission,
		cars,
		users,
		dispatcher,
		bookingvalidator.NewBookingValidator(cfg.Log),
		cfg,
	)

	cookieTTL := time.Duration(cfg.CookieExpireDay) * 24 * time.Hour

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		authhandler.NewAuthHandler(authService, verification, tokens, authenticate, cookieTTL, cfg.IsProduction(), cfg.Log),
		carhandler.NewCarHandler(carService, adminsOnly, cfg.Log),
		bookinghandler.NewBookingHandler(bookingService, authenticate, cfg.Log),
	)
	serverApp.OnShutdown(func() {
		dispatcher.Wait()
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	})
	serverApp.Run()
}

func initProducer(cfg *config.Config) *kafka.Producer {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	producer, err := kafka.NewProducer(kafkaCfg, cfg.NotificationTopic, cfg.NotificationDLQ, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}

	cfg.Log.Info("Kafka producer initialized", "topic", cfg.NotificationTopic, "brokers", kafkaCfg.Brokers)
	return producer
}
