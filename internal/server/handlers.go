package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"binday/internal/analyzer"
	"binday/internal/registry"
)

// Households is implemented by registry.Registry.
type Households interface {
	Households() []registry.Household
	Get(premisesID string) (registry.Household, bool)
}

type Handler struct {
	households Households
	now        func() time.Time
}

// NewHandler builds the HTTP handlers. now must return times in the
// configured collection timezone.
func NewHandler(households Households, now func() time.Time) *Handler {
	return &Handler{households: households, now: now}
}

// HouseholdDTO is one household in API responses.
type HouseholdDTO struct {
	Name       string                 `json:"name"`
	Postcode   string                 `json:"postcode"`
	House      string                 `json:"house"`
	Phase      string                 `json:"phase"`
	Collection analyzer.HouseholdView `json:"collection"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) ListHouseholds(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	out := []HouseholdDTO{}
	for _, hh := range h.households.Households() {
		out = append(out, toDTO(hh, now))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetHousehold(w http.ResponseWriter, r *http.Request) {
	hh, ok := h.households.Get(chi.URLParam(r, "premisesID"))
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Household not found"})
		return
	}
	writeJSON(w, http.StatusOK, toDTO(hh, h.now()))
}

func (h *Handler) GetNext(w http.ResponseWriter, r *http.Request) {
	hh, ok := h.households.Get(chi.URLParam(r, "premisesID"))
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Household not found"})
		return
	}

	view := analyzer.BuildView(hh.State, h.now())
	if view.Next == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "No upcoming collection"})
		return
	}
	writeJSON(w, http.StatusOK, view.Next)
}

func toDTO(hh registry.Household, now time.Time) HouseholdDTO {
	return HouseholdDTO{
		Name:       hh.Registration.Name,
		Postcode:   hh.Registration.Postcode,
		House:      hh.Registration.House,
		Phase:      hh.Phase.String(),
		Collection: analyzer.BuildView(hh.State, now),
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
