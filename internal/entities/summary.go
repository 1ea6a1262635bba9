package entities

// UserSummaryResponse aggregates a user's reservation history for display:
// lifetime totals plus a per-week cost series for the last five weeks,
// oldest first.
type UserSummaryResponse struct {
	TotalReservations int                   `json:"total_reservations"`
	TotalCost         int64                 `json:"total_cost"`
	TotalHours        float64               `json:"total_hours"`
	History           []ReservationResponse `json:"history"`
	Weeks             []string              `json:"weeks"`
	WeeklyCost        []int64               `json:"weekly_cost"`
}
