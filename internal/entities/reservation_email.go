package entities

// ReservationEmailData feeds the notification templates.
type ReservationEmailData struct {
	UserName           string
	ReservationID      int64
	LotName            string
	SpotID             int64
	VehicleTag         string
	StartTimeFormatted string
	EndTimeFormatted   string
	Cost               int64
	Status             string
}
