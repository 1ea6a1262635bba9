package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"parkhub/internal/db"
)

// ExportService writes a user's closed-reservation history as CSV. Export is
// a read-only consumer of ledger data.
type ExportService struct {
	Store ReservationStore
}

func NewExportService(store ReservationStore) *ExportService {
	return &ExportService{Store: store}
}

var exportHeader = []string{
	"Reservation ID", "Lot ID", "Spot ID", "Vehicle Tag",
	"Start Time", "End Time", "Status", "Total Cost",
}

// WriteCSV streams the user's closed reservations to w, oldest first.
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer, userID int64) error {
	details, err := s.Store.ListByUser(ctx, userID, db.ReservationClosed)
	if err != nil {
		return fmt.Errorf("load reservations for export: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	// ListByUser is newest first; exports read chronologically.
	for i := len(details) - 1; i >= 0; i-- {
		r := details[i].Reservation
		end := ""
		if r.EndTime != nil {
			end = r.EndTime.Format(time.RFC3339)
		}
		cost := "0"
		if r.Cost != nil {
			cost = strconv.FormatInt(*r.Cost, 10)
		}
		row := []string{
			strconv.FormatInt(r.ID, 10),
			strconv.FormatInt(r.LotID, 10),
			strconv.FormatInt(r.SpotID, 10),
			r.VehicleTag,
			r.StartTime.Format(time.RFC3339),
			end,
			r.Status,
			cost,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
