package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/develper21/slotify/libs/config"
	"github.com/develper21/slotify/libs/db"
	"github.com/develper21/slotify/libs/httpx"
	"github.com/develper21/slotify/libs/kafkax"
	otelx "github.com/develper21/slotify/libs/otel"
	"github.com/develper21/slotify/libs/runtime"
	"github.com/develper21/slotify/services/notification-service/internal/consumer"
	"github.com/develper21/slotify/services/notification-service/internal/email"
	"github.com/develper21/slotify/services/notification-service/internal/inbox"
	"github.com/develper21/slotify/services/notification-service/internal/sms"
	"github.com/develper21/slotify/services/notification-service/internal/storage"
)

type bookingEventPayload struct {
	BookingID     string `json:"booking_id"`
	AppointmentID string `json:"appointment_id"`
	SlotID        string `json:"slot_id"`
	UserID        string `json:"user_id"`
	Seats         int    `json:"seats"`
	Status        string `json:"status"`
	SlotDate      string `json:"slot_date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Reason        string `json:"reason"`
}

func subjectAndBody(topic string, p bookingEventPayload) (string, string) {
	when := fmt.Sprintf("%s %s-%s", p.SlotDate, p.StartTime, p.EndTime)
	switch topic {
	case "booking.cancelled.v1":
		body := fmt.Sprintf("Your booking for %s has been cancelled.", when)
		if p.Reason != "" {
			body += " Reason: " + p.Reason
		}
		return "Booking cancelled", body
	default:
		return "Booking confirmed", fmt.Sprintf("Your booking for %s is confirmed. Seats: %d.", when, p.Seats)
	}
}

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8081")
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

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	inboxRepo := inbox.NewRepository(pool)
	notificationsRepo := storage.NewRepository(pool)

	smtpHost := config.String("SMTP_HOST", "mailpit")
	smtpPort := config.String("SMTP_PORT", "1025")
	smtpFrom := config.String("SMTP_FROM", "no-reply@slotify.local")
	emailSender := email.NewSMTPSender(smtpHost, smtpPort, smtpFrom)

	smsProvider := strings.ToLower(config.String("SMS_PROVIDER", "noop"))
	smsWebhookURL := config.String("SMS_WEBHOOK_URL", "")
	smsWebhookToken := config.String("SMS_WEBHOOK_TOKEN", "")
	var smsSender sms.Sender
	switch smsProvider {
	case "webhook":
		smsSender = sms.NewWebhookSender(smsWebhookURL, smsWebhookToken)
	default:
		smsSender = sms.NewNoopSender()
	}

	handle := func(ctx context.Context, msg kafka.Message) error {
		var payload bookingEventPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid booking event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if payload.BookingID == "" || payload.UserID == "" {
			logger.Error("missing booking event fields", "topic", msg.Topic)
			return nil
		}

		subject, body := subjectAndBody(msg.Topic, payload)

		// The user identity doubles as the contact address; email when it
		// looks like one, otherwise SMS.
		channel := "sms"
		if strings.Contains(payload.UserID, "@") {
			channel = "email"
		}

		status := "sent"
		switch channel {
		case "email":
			if err := emailSender.Send(payload.UserID, subject, body); err != nil {
				status = "failed"
				logger.Error("email send failed", "err", err, "booking_id", payload.BookingID)
			}
		case "sms":
			if err := smsSender.Send(ctx, payload.UserID, body); err != nil {
				status = "failed"
				logger.Error("sms send failed", "err", err, "booking_id", payload.BookingID)
			}
		}

		if err := notificationsRepo.Insert(ctx, storage.Notification{
			BookingID:     payload.BookingID,
			AppointmentID: payload.AppointmentID,
			UserID:        payload.UserID,
			Channel:       channel,
			Recipient:     payload.UserID,
			Payload: map[string]any{
				"topic":      msg.Topic,
				"slot_date":  payload.SlotDate,
				"start_time": payload.StartTime,
				"end_time":   payload.EndTime,
			},
			Status: status,
		}); err != nil {
			logger.Error("failed to persist notification", "err", err)
			return err
		}

		logger.Info("booking event processed", "booking_id", payload.BookingID, "topic", msg.Topic, "status", status)
		return nil
	}

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")
	for _, topic := range []string{
		config.String("KAFKA_CONFIRMED_TOPIC", "booking.confirmed.v1"),
		config.String("KAFKA_CANCELLED_TOPIC", "booking.cancelled.v1"),
	} {
		if strings.TrimSpace(topic) == "" {
			continue
		}
		eventConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, handle)
		go eventConsumer.Run(ctx)
	}

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, service)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
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
