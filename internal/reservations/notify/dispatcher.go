package notify

import (
	"context"
	"time"

	"communa/pkg/kafka"
	"communa/pkg/logger"
	"communa/pkg/model"
)

// Event names published on the reservation events topic. Consumers fan
// these out to push, email, and the staff dashboard.
const (
	EventReservationCreated   = "reservationCreated"
	EventReservationApproved  = "reservationApproved"
	EventReservationRejected  = "reservationRejected"
	EventReservationCancelled = "reservationCancelled"
	EventReservationCompleted = "reservationCompleted"
	EventReservationModified  = "reservationModified"

	EventModificationProposed = "modificationProposed"
	EventModificationAccepted = "modificationAccepted"
	EventModificationRejected = "modificationRejected"

	EventDamageAssessmentRequired = "damageAssessmentRequired"
	EventDamageAssessmentReviewed = "damageAssessmentReviewed"

	EventNewReservationRequiresApproval  = "newReservationRequiresApproval"
	EventReservationPendingAdminApproval = "reservationPendingAdminApproval"
	EventReservationApprovedStaff        = "reservationApprovedStaff"
)

// Audiences routing an event to a recipient class within the community.
const (
	AudienceResident   = "resident"
	AudienceJanitorial = "janitorial"
	AudienceAdmin      = "admin"
)

// Event is one notification about a reservation. ReservationID doubles as
// the partition key so per-reservation ordering is preserved.
type Event struct {
	Name          string   `json:"name"`
	Audience      string   `json:"audience"`
	ReservationID string   `json:"reservation_id"`
	CommunityID   string   `json:"community_id"`
	ResidentID    string   `json:"resident_id"`
	AmenityID     string   `json:"amenity_id"`
	AmenityName   string   `json:"amenity_name,omitempty"`
	Date          string   `json:"date,omitempty"`
	StartTime     string   `json:"start_time,omitempty"`
	EndTime       string   `json:"end_time,omitempty"`
	GuestCount    int      `json:"guest_count,omitempty"`
	Fee           *float64 `json:"fee,omitempty"`
	Refund        *float64 `json:"refund,omitempty"`
	Reason        string   `json:"reason,omitempty"`
}

// Dispatcher publishes reservation events. Dispatch is fire-and-forget:
// a notification failure must never fail the state change that caused it.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event)
}

type kafkaDispatcher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

func NewKafkaDispatcher(producer *kafka.Producer, log *logger.Logger) Dispatcher {
	return &kafkaDispatcher{
		producer: producer,
		log:      log,
	}
}

func (d *kafkaDispatcher) Dispatch(ctx context.Context, event Event) {
	msg := kafka.NewMessage().
		WithKey(event.ReservationID).
		WithValue(event).
		WithEventType(event.Name).
		WithSchemaVersion("1").
		WithSource("reservations").
		Build()

	if err := d.producer.Publish(ctx, msg); err != nil {
		d.log.Error("Failed to dispatch reservation event",
			"event", event.Name,
			"audience", event.Audience,
			"reservation_id", event.ReservationID,
			"error", err,
		)
		return
	}

	d.log.Debug("Reservation event dispatched",
		"event", event.Name,
		"audience", event.Audience,
		"reservation_id", event.ReservationID,
	)
}

// NopDispatcher drops all events. Used in tests and when Kafka is not
// configured.
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(ctx context.Context, event Event) {}

// BaseEvent fills the identity fields shared by every notification about
// a reservation.
func BaseEvent(name, audience string, r *model.Reservation) Event {
	return Event{
		Name:          name,
		Audience:      audience,
		ReservationID: r.ID,
		CommunityID:   r.CommunityID,
		ResidentID:    r.UserID,
		AmenityID:     r.AmenityID,
		Date:          r.Date,
		StartTime:     r.PartyStart.Format(time.RFC3339),
		EndTime:       r.PartyEnd.Format(time.RFC3339),
		GuestCount:    r.GuestCount,
	}
}
