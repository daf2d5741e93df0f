// Package notifications publishes reservation confirmations. Delivery is
// fire-and-forget: a dispatcher failure must never roll back or delay an
// already committed reservation write.
package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"inventario/pkg/kafka"
	"inventario/pkg/logger"
	"inventario/pkg/model"
)

type Dispatcher interface {
	SendConfirmation(ctx context.Context, reservation *model.Reservation, occurrences int)
}

// Confirmation is the event body. For a periodic series one confirmation is
// emitted for the whole batch, carrying the first occurrence.
type Confirmation struct {
	MessageID     string    `json:"message_id"`
	ReservationID string    `json:"reservation_id"`
	ObjectID      string    `json:"object_id"`
	UserID        string    `json:"user_id"`
	TimeStart     time.Time `json:"time_start"`
	TimeEnd       time.Time `json:"time_end"`
	Occurrences   int       `json:"occurrences"`
	SentAt        time.Time `json:"sent_at"`
}

type kafkaDispatcher struct {
	producer *kafka.Producer
	log      *logger.Logger
	timeout  time.Duration
}

func NewKafkaDispatcher(producer *kafka.Producer, log *logger.Logger) Dispatcher {
	return &kafkaDispatcher{
		producer: producer,
		log:      log,
		timeout:  5 * time.Second,
	}
}

func (d *kafkaDispatcher) SendConfirmation(ctx context.Context, reservation *model.Reservation, occurrences int) {
	confirmation := Confirmation{
		MessageID:     uuid.NewString(),
		ReservationID: reservation.ID,
		ObjectID:      reservation.ObjectID,
		UserID:        reservation.UserID,
		TimeStart:     reservation.TimeStart,
		TimeEnd:       reservation.TimeEnd,
		Occurrences:   occurrences,
		SentAt:        time.Now().UTC(),
	}

	payload, err := json.Marshal(confirmation)
	if err != nil {
		d.log.Error("Failed to encode confirmation", "reservation_id", reservation.ID, "error", err)
		return
	}

	// Detach from the request context; the reservation is already committed
	// and an expiring request must not cancel the publish.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	err = d.producer.Publish(sendCtx, kafka.Message{
		Key:       reservation.ObjectID,
		Value:     payload,
		Timestamp: confirmation.SentAt,
	})
	if err != nil {
		d.log.Warn("Failed to publish confirmation",
			"reservation_id", reservation.ID,
			"message_id", confirmation.MessageID,
			"error", err,
		)
		return
	}

	d.log.Debug("Confirmation published", "reservation_id", reservation.ID, "message_id", confirmation.MessageID)
}

type noopDispatcher struct{}

// NewNoopDispatcher is used when no Kafka brokers are configured.
func NewNoopDispatcher() Dispatcher {
	return noopDispatcher{}
}

func (noopDispatcher) SendConfirmation(context.Context, *model.Reservation, int) {}
