package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/reservo/internal/domain"
	redisstore "github.com/gosuda/reservo/internal/store/redis"
)

// Publisher abstracts the Redis pub/sub publish operation.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Notifier delivers a plain-text message to staff.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type EventType string

const (
	EventSlotBooked      EventType = "slot.booked"
	EventSlotReleased    EventType = "slot.released"
	EventStatusChanged   EventType = "reservation.status_changed"
	EventScheduleChanged EventType = "schedule.changed"
)

// SlotEvent is an availability change. Reservation is set for reservation
// events; Date alone marks a change to a single day; neither means the
// whole schedule changed.
type SlotEvent struct {
	Type        EventType
	TenantID    uuid.UUID
	Date        time.Time
	Reservation *domain.Reservation
}

// Message is the wire form of a SlotEvent.
type Message struct {
	Type          EventType `json:"type"`
	TenantID      string    `json:"tenantId"`
	Date          string    `json:"date,omitempty"`
	Time          string    `json:"time,omitempty"`
	ReservationID string    `json:"reservationId,omitempty"`
	Status        string    `json:"status,omitempty"`
	At            time.Time `json:"at"`
}

// Events publishes availability changes to the tenant's channel. A nil
// *Events or a nil publisher drops events.
type Events struct {
	pub Publisher
	now NowFunc
}

func NewEvents(pub Publisher) *Events {
	return &Events{pub: pub, now: time.Now}
}

// Publish is best effort: failures are logged, never returned.
func (e *Events) Publish(ctx context.Context, ev SlotEvent) {
	if e == nil || e.pub == nil {
		return
	}
	msg := encode(ev, e.now())
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("booking.Events.Publish: marshal")
		return
	}
	tenantID := ev.TenantID
	if ev.Reservation != nil {
		tenantID = ev.Reservation.TenantID
	}
	if err := e.pub.Publish(ctx, redisstore.AvailabilityChannel(tenantID), payload); err != nil {
		log.Warn().Err(err).Str("tenant_id", tenantID.String()).Str("type", string(ev.Type)).
			Msg("booking.Events.Publish: publish failed")
	}
}

func encode(ev SlotEvent, at time.Time) Message {
	msg := Message{Type: ev.Type, TenantID: ev.TenantID.String(), At: at.UTC()}
	if !ev.Date.IsZero() {
		msg.Date = ev.Date.Format(time.DateOnly)
	}
	if r := ev.Reservation; r != nil {
		msg.TenantID = r.TenantID.String()
		msg.Date = r.Date.Format(time.DateOnly)
		msg.Time = r.Time.String()
		msg.ReservationID = r.ID.String()
		msg.Status = string(r.Status)
	}
	return msg
}

// BookingMessage renders the staff notification for a new reservation.
func BookingMessage(r *domain.Reservation) string {
	return fmt.Sprintf("New %s reservation on %s at %s (%s, %s EUR)",
		r.Status, r.Date.Format(time.DateOnly), r.Time, r.Kind, r.TotalPrice.StringFixed(2))
}
