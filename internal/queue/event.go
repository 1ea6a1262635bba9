// Package queue carries the asynchronous work of the system over RabbitMQ:
// receipt mail for closed reservations and CSV export builds. Consumers are
// read-only collaborators of the core and never mutate allocation state.
package queue

import "time"

const (
	ReservationClosedQueue = "reservation.closed"
	ExportRequestedQueue   = "export.requested"
)

// ReservationClosedEvent is published after a reservation closes
// successfully. Consumers look the full record up themselves so the event
// stays valid even if delivery is delayed.
type ReservationClosedEvent struct {
	ReservationID int64     `json:"reservation_id"`
	ClosedAt      time.Time `json:"closed_at"`
}

// ExportRequestedEvent asks the worker to build a CSV export of a user's
// closed reservations and mail it.
type ExportRequestedEvent struct {
	UserID      int64     `json:"user_id"`
	RequestedAt time.Time `json:"requested_at"`
}
