package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/develper21/slotify/libs/auth"
	"github.com/develper21/slotify/libs/config"
	"github.com/develper21/slotify/libs/db"
	"github.com/develper21/slotify/libs/httpx"
	"github.com/develper21/slotify/libs/kafkax"
	otelx "github.com/develper21/slotify/libs/otel"
	"github.com/develper21/slotify/libs/runtime"
	"github.com/develper21/slotify/services/booking-service/internal/booking"
	"github.com/develper21/slotify/services/booking-service/internal/handlers"
	"github.com/develper21/slotify/services/booking-service/internal/outbox"
	"github.com/develper21/slotify/services/booking-service/internal/schedule"
	"github.com/develper21/slotify/services/booking-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository(pool)
	store := storage.New(pool, outboxRepo)
	bookingSvc := booking.NewService(store, logger)
	scheduleSvc := schedule.NewService(store)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	publicHandler := handlers.NewPublicHandler(bookingSvc, store, logger)
	bookingHandler := handlers.NewBookingHandler(bookingSvc, store, logger)
	appointmentHandler := handlers.NewAppointmentHandler(store, logger)
	scheduleHandler := handlers.NewScheduleHandler(scheduleSvc, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if brokers := strings.TrimSpace(config.String("KAFKA_BROKERS", "")); brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	// The public surface is rate limited per client IP. With a Redis
	// address configured the limit is shared across replicas, otherwise
	// it falls back to the in-process limiter.
	publicLimit := config.Int("PUBLIC_RATE_LIMIT", 120)
	var publicLimiter httpx.Middleware
	if redisAddr := strings.TrimSpace(config.String("REDIS_ADDR", "")); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer func() { _ = rdb.Close() }()
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
		publicLimiter = httpx.NewRedisRateLimiter(rdb, publicLimit, time.Minute, service).Middleware(logger, true)
	} else {
		publicLimiter = httpx.NewRateLimiter(publicLimit, time.Minute).Middleware()
	}

	public := func(h http.HandlerFunc) http.Handler {
		return publicLimiter(h)
	}
	authed := func(h http.HandlerFunc) http.Handler {
		return auth.RequireAuth(h, jwtSecret)
	}
	organizer := func(h http.HandlerFunc) http.Handler {
		return auth.RequireAuth(auth.RequireRole(h, "organizer"), jwtSecret)
	}

	mux := runtime.NewBaseMux(readyChecks...)
	mux.Handle("/api/v1/public/slots", public(publicHandler.Slots))
	mux.Handle("/api/v1/public/book", public(publicHandler.Book))
	mux.Handle("/api/v1/public/appointments", public(publicHandler.Appointments))

	mux.Handle("/api/v1/bookings", organizer(bookingHandler.List))
	mux.Handle("/api/v1/bookings/cancel", authed(bookingHandler.Cancel))
	mux.Handle("/api/v1/bookings/confirm", organizer(bookingHandler.Confirm))
	mux.Handle("/api/v1/bookings/complete", organizer(bookingHandler.Complete))
	mux.Handle("/api/v1/appointments", organizer(appointmentHandler.Appointments))
	mux.Handle("/api/v1/questions", organizer(appointmentHandler.Questions))
	mux.Handle("/api/v1/schedule", organizer(scheduleHandler.Schedule))
	mux.Handle("/api/v1/slots/generate", organizer(bookingHandler.GenerateSlots))

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, service)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
