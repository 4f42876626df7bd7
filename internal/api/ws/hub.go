package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/reservo/internal/booking"
	"github.com/gosuda/reservo/internal/domain"
	"github.com/gosuda/reservo/internal/server/middleware"
	redisstore "github.com/gosuda/reservo/internal/store/redis"
)

// Subscriber abstracts the Redis subscription used by the hub.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Hub streams availability changes to WebSocket clients.
type Hub struct {
	sub Subscriber
}

// NewHub creates a new WebSocket hub.
func NewHub(sub Subscriber) *Hub {
	return &Hub{sub: sub}
}

// ServeAvailability streams a tenant's slot changes. With ?date=YYYY-MM-DD
// only events for that day are forwarded, plus schedule-wide changes.
// Clients react by refetching GET /availability.
func (h *Hub) ServeAvailability(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.TenantIDFromContext(r.Context())
	if !ok || tenantID == uuid.Nil {
		http.Error(w, "missing tenant", http.StatusBadRequest)
		return
	}

	var day string
	if q := r.URL.Query().Get("date"); q != "" {
		d, err := domain.ParseDay(q)
		if err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		day = d.Format(time.DateOnly)
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Clients never send; reading only surfaces close frames.
	ctx := conn.CloseRead(r.Context())

	messages, cleanup, err := h.sub.Subscribe(ctx, redisstore.AvailabilityChannel(tenantID))
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if !Matches(msg, day) {
				continue
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}

// Matches reports whether an encoded event concerns day. An empty day
// matches everything, and events without a date concern every day.
func Matches(payload []byte, day string) bool {
	if day == "" {
		return true
	}
	var msg booking.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return false
	}
	return msg.Date == "" || msg.Date == day
}
