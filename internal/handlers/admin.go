package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mkowalczyk/authguard/internal/models"
	pkghttp "github.com/mkowalczyk/authguard/pkg/http"
)

// BlockListManager exposes the guard's block list to the admin surface.
type BlockListManager interface {
	BlockedAddresses() []string
	Unblock(ctx context.Context, address string) error
}

// EventReader lists persisted security events.
type EventReader interface {
	ListRecent(ctx context.Context, limit int) ([]models.SecurityEvent, error)
}

// AdminHandler serves the security administration endpoints. Blocks never
// expire on their own, so the unblock endpoint is the only recovery path for
// a locked-out address.
type AdminHandler struct {
	blocks BlockListManager
	events EventReader
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(blocks BlockListManager, events EventReader) *AdminHandler {
	return &AdminHandler{
		blocks: blocks,
		events: events,
	}
}

// BlockedAddressesResponse lists currently blocked addresses
type BlockedAddressesResponse struct {
	Addresses []string `json:"addresses"`
}

// ListBlockedAddresses handles GET /admin/blocked-addresses
func (h *AdminHandler) ListBlockedAddresses(w http.ResponseWriter, r *http.Request) {
	addresses := h.blocks.BlockedAddresses()
	sort.Strings(addresses)

	pkghttp.WriteJSON(w, http.StatusOK, BlockedAddressesResponse{Addresses: addresses})
}

// UnblockAddress handles DELETE /admin/blocked-addresses/{address}
func (h *AdminHandler) UnblockAddress(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if address == "" {
		pkghttp.WriteBadRequest(w, "Address is required")
		return
	}

	if err := h.blocks.Unblock(r.Context(), address); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Address is not blocked")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to unblock address")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListSecurityEvents handles GET /admin/security-events
func (h *AdminHandler) ListSecurityEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			pkghttp.WriteBadRequest(w, "limit must be between 1 and 1000")
			return
		}
		limit = parsed
	}

	events, err := h.events.ListRecent(r.Context(), limit)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to list security events")
		return
	}

	type eventResponse struct {
		ID        string `json:"id"`
		EventType string `json:"event_type"`
		Address   string `json:"address"`
		UserAgent string `json:"user_agent,omitempty"`
		Identity  string `json:"identity,omitempty"`
		Details   string `json:"details,omitempty"`
		CreatedAt string `json:"created_at"`
	}

	resp := make([]eventResponse, 0, len(events))
	for _, event := range events {
		resp = append(resp, eventResponse{
			ID:        event.ID.String(),
			EventType: event.EventType,
			Address:   event.Address,
			UserAgent: event.UserAgent,
			Identity:  event.Identity,
			Details:   event.Details,
			CreatedAt: event.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{"events": resp})
}
