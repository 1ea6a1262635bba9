package entities

type LotRequest struct {
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	PinCode     string  `json:"pin_code"`
	HourlyPrice float64 `json:"hourly_price"`
	Capacity    int     `json:"capacity"`
}

// LotUpdateRequest carries optional field edits; nil means leave unchanged.
// A capacity change goes through the capacity manager's resize path.
type LotUpdateRequest struct {
	Name        *string  `json:"name,omitempty"`
	Address     *string  `json:"address,omitempty"`
	PinCode     *string  `json:"pin_code,omitempty"`
	HourlyPrice *float64 `json:"hourly_price,omitempty"`
	Capacity    *int     `json:"capacity,omitempty"`
}

type LotResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	PinCode     string  `json:"pin_code"`
	HourlyPrice float64 `json:"hourly_price"`
	Capacity    int     `json:"capacity"`
	Active      bool    `json:"active"`
	FreeSpots   int     `json:"free_spots"`
}

type LotStatusResponse struct {
	LotID    int64 `json:"lot_id"`
	Capacity int   `json:"capacity"`
	Free     int   `json:"free"`
	Reserved int   `json:"reserved"`
	Disabled int   `json:"disabled"`
}

type LotRevenueResponse struct {
	LotID   int64  `json:"lot_id"`
	LotName string `json:"lot_name"`
	Revenue int64  `json:"revenue"`
}
