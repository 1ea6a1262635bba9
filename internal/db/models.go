package db

import "time"

// Spot statuses. A spot belongs to exactly one of these states at all times.
const (
	SpotFree     = "free"
	SpotReserved = "reserved"
	SpotDisabled = "disabled"
)

// Reservation statuses. Closed is terminal; a reservation is never reopened.
const (
	ReservationActive = "active"
	ReservationClosed = "closed"
)

// User roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type Lot struct {
	ID          int64
	Name        string
	Address     string
	PinCode     string
	HourlyPrice float64
	Capacity    int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Spot struct {
	ID     int64
	LotID  int64
	Status string
}

// Reservation records one user occupying one spot. EndTime and Cost are nil
// while the reservation is active and set together when it closes.
type Reservation struct {
	ID         int64
	UserID     int64
	LotID      int64
	SpotID     int64
	VehicleTag string
	Status     string
	StartTime  time.Time
	EndTime    *time.Time
	Cost       *int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Name         string
	Address      string
	PinCode      string
	Role         string
	CreatedAt    time.Time
}

// SpotCounts is a per-lot snapshot of spot states.
type SpotCounts struct {
	Free     int
	Reserved int
	Disabled int
}

func (c SpotCounts) Total() int { return c.Free + c.Reserved + c.Disabled }
