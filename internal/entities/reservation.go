package entities

import "time"

type AllocateRequest struct {
	LotID      int64  `json:"lot_id"`
	VehicleTag string `json:"vehicle_tag"`
}

type ReservationResponse struct {
	ID         int64      `json:"id"`
	LotID      int64      `json:"lot_id"`
	LotName    string     `json:"lot_name,omitempty"`
	SpotID     int64      `json:"spot_id"`
	VehicleTag string     `json:"vehicle_tag"`
	Status     string     `json:"status"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Cost       *int64     `json:"cost,omitempty"`
}
