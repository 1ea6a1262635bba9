package api

import (
	"context"
	"net/http"

	"parkhub/internal/db"
	"parkhub/internal/entities"
	"parkhub/internal/repository"
	"parkhub/internal/service"
)

// RevenueStore is the revenue read surface the admin summary needs.
// Implemented by repository.ReservationRepository.
type RevenueStore interface {
	RevenuePerLot(ctx context.Context) ([]repository.LotRevenue, error)
}

type AdminHandler struct {
	Lots    *service.LotService
	Auth    *service.AuthService
	Revenue RevenueStore
}

func NewAdminHandler(lots *service.LotService, auth *service.AuthService, revenue RevenueStore) *AdminHandler {
	return &AdminHandler{Lots: lots, Auth: auth, Revenue: revenue}
}

// ListLots returns every lot, disabled included.
func (h *AdminHandler) ListLots(w http.ResponseWriter, r *http.Request) {
	lots, err := h.Lots.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lots)
}

// CreateLot creates a lot and its initial spot set.
func (h *AdminHandler) CreateLot(w http.ResponseWriter, r *http.Request) {
	var req entities.LotRequest
	if !decodeBody(w, r, &req) {
		return
	}
	lot, err := h.Lots.CreateLot(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lotResponse(lot))
}

// UpdateLot edits lot fields and resizes capacity when the request carries
// one.
func (h *AdminHandler) UpdateLot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req entities.LotUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	lot, err := h.Lots.UpdateLot(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lotResponse(lot))
}

// Resize grows or shrinks a lot's capacity.
func (h *AdminHandler) Resize(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Capacity int `json:"capacity"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	lot, err := h.Lots.GrowOrShrink(r.Context(), id, req.Capacity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lotResponse(lot))
}

// Disable takes a lot out of service.
func (h *AdminHandler) Disable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	lot, err := h.Lots.Disable(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lotResponse(lot))
}

// Restore brings a disabled lot back into service.
func (h *AdminHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	lot, err := h.Lots.Restore(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lotResponse(lot))
}

// LotStatus reports capacity and per-state spot counts for one lot.
func (h *AdminHandler) LotStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	status, err := h.Lots.Status(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Auth.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// RevenueSummary reports the summed cost of closed reservations per lot.
func (h *AdminHandler) RevenueSummary(w http.ResponseWriter, r *http.Request) {
	revenue, err := h.Revenue.RevenuePerLot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]entities.LotRevenueResponse, 0, len(revenue))
	for _, lr := range revenue {
		out = append(out, entities.LotRevenueResponse{
			LotID:   lr.LotID,
			LotName: lr.LotName,
			Revenue: lr.Revenue,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func lotResponse(lot *db.Lot) entities.LotResponse {
	return entities.LotResponse{
		ID:          lot.ID,
		Name:        lot.Name,
		Address:     lot.Address,
		PinCode:     lot.PinCode,
		HourlyPrice: lot.HourlyPrice,
		Capacity:    lot.Capacity,
		Active:      lot.Active,
	}
}
