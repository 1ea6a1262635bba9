package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"parkhub/internal/auth"
	"parkhub/internal/entities"
	"parkhub/internal/queue"
	"parkhub/internal/service"
	"parkhub/internal/utils"

	"github.com/gorilla/mux"
)

type UserHandler struct {
	Reservations *service.ReservationService
	Lots         *service.LotService
	Export       *service.ExportService
	Publisher    *queue.Publisher
}

func NewUserHandler(reservations *service.ReservationService, lots *service.LotService, export *service.ExportService, publisher *queue.Publisher) *UserHandler {
	return &UserHandler{Reservations: reservations, Lots: lots, Export: export, Publisher: publisher}
}

// ListLots serves the public listing of active lots with free-spot counts.
func (h *UserHandler) ListLots(w http.ResponseWriter, r *http.Request) {
	lots, err := h.Lots.ListPublic(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lots)
}

// Allocate reserves a free spot in the requested lot for the caller.
func (h *UserHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	var req entities.AllocateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	userID := auth.UserIDFrom(r.Context())

	res, err := h.Reservations.Create(r.Context(), userID, req.LotID, req.VehicleTag)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entities.ReservationResponse{
		ID:         res.ID,
		LotID:      res.LotID,
		SpotID:     res.SpotID,
		VehicleTag: res.VehicleTag,
		Status:     res.Status,
		StartTime:  res.StartTime,
	})
}

// Terminate closes the caller's reservation and returns the priced record.
func (h *UserHandler) Terminate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.Reservations.Close(r.Context(), id, time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.ReservationResponse{
		ID:         res.ID,
		LotID:      res.LotID,
		SpotID:     res.SpotID,
		VehicleTag: res.VehicleTag,
		Status:     res.Status,
		StartTime:  res.StartTime,
		EndTime:    res.EndTime,
		Cost:       res.Cost,
	})
}

// ListReservations returns the caller's reservations, optionally filtered by
// ?status=active|closed.
func (h *UserHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFrom(r.Context())
	var statuses []string
	if s := r.URL.Query().Get("status"); s != "" {
		statuses = append(statuses, s)
	}
	reservations, err := h.Reservations.ListForUser(r.Context(), userID, statuses...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservations)
}

func (h *UserHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Reservations.Summary(r.Context(), auth.UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ExportCSV streams the caller's closed reservations as a CSV download.
func (h *UserHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	username := auth.UsernameFrom(r.Context())
	filename := fmt.Sprintf("%s-%s.csv", utils.SafeFilename(username), time.Now().UTC().Format("2006-01-02-15-04"))

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := h.Export.WriteCSV(r.Context(), w, auth.UserIDFrom(r.Context())); err != nil {
		writeError(w, err)
	}
}

// RequestExport enqueues an asynchronous export build; the worker mails the
// user when the file is ready.
func (h *UserHandler) RequestExport(w http.ResponseWriter, r *http.Request) {
	if h.Publisher == nil {
		writeJSON(w, http.StatusServiceUnavailable, messageResponse{Message: "export queue unavailable"})
		return
	}
	if err := h.Publisher.ExportRequested(r.Context(), auth.UserIDFrom(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, messageResponse{Message: "export queued"})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid id"})
		return 0, false
	}
	return id, true
}
