package handlers

import (
	"context"
	"dealwire/internal/core/domain"
	"dealwire/pkg/middleware"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

type DealService interface {
	GetDeal(ctx context.Context, caller domain.Identity, id int64) (*domain.Deal, error)
	ListDeals(ctx context.Context, caller domain.Identity, filter domain.DealFilter) ([]domain.Deal, error)
	UpdateDeal(ctx context.Context, caller domain.Identity, id int64, patch domain.DealPatch) (*domain.Deal, error)
}

type DealHandler struct {
	deals DealService
}

func NewDealHandler(deals DealService) *DealHandler {
	return &DealHandler{deals: deals}
}

type listResponse struct {
	Deals []domain.Deal `json:"deals"`
}

// List handles GET /deals?status=&limit=.
func (h *DealHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, r, domain.ErrUnauthenticated)
		return
	}
	filter := domain.DealFilter{Status: domain.DealStatus(r.URL.Query().Get("status"))}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		filter.Limit = limit
	}
	deals, err := h.deals.ListDeals(r.Context(), caller, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if deals == nil {
		deals = []domain.Deal{}
	}
	writeJSON(w, http.StatusOK, listResponse{Deals: deals})
}

// Get handles GET /deals/{id}.
func (h *DealHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, r, domain.ErrUnauthenticated)
		return
	}
	id, err := dealID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	deal, err := h.deals.GetDeal(r.Context(), caller, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

// Update handles PATCH /deals/{id}. The response carries the committed
// snapshot, the same one pushed to connected participants.
func (h *DealHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, r, domain.ErrUnauthenticated)
		return
	}
	id, err := dealID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch domain.DealPatch
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	deal, err := h.deals.UpdateDeal(r.Context(), caller, id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

func dealID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidDealID, r.PathValue("id"))
	}
	return id, nil
}
