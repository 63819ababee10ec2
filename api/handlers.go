/*
handlers.go - HTTP API handlers for the comanda engine

PURPOSE:
  Exposes the tab lifecycle via REST. Handles HTTP request/response and
  JSON serialization, delegates every decision to the controller.

ENDPOINTS:
  Players:
    GET    /api/players                 Search players (?q=)
    GET    /api/players/{id}            Player details
    GET    /api/players/{id}/balance    Display balance

  Catalog:
    GET    /api/products                Active products
    GET    /api/events/{id}/addons      Tournament add-ons for an event

  Tabs:
    GET    /api/tabs                    List tabs (?event=&player=&status=)
    POST   /api/tabs                    Open a tab
    GET    /api/tabs/open               Find a player's open tab (?player=)
    GET    /api/tabs/{id}               Tab with items and used one-time keys
    POST   /api/tabs/{id}/items         Add a product or add-on
    POST   /api/tabs/{id}/close         Close (debits the ledger)
    POST   /api/tabs/{id}/reopen        Reopen (refunds the ledger)

  Admin:
    PUT    /api/admin/tabs/{id}/total   Overwrite a closed tab's total
    POST   /api/admin/players/{id}/topup Credit a balance

ERROR HANDLING:
  Errors map to HTTP status by taxonomy:
  - 400: Validation errors, invalid input
  - 404: Unknown tab/player/event
  - 409: Conflict (open tab exists, one-time item already used)
  - 422: Insufficient funds at close time
  - 503: Ledger unavailable (retryable)
  - 500: Everything else

SECURITY NOTE:
  No authentication middleware; the admin console fronts this service
  inside the venue network. All endpoints are otherwise public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/comanda-engine/catalog"
	"github.com/warp/comanda-engine/comanda"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Controller *comanda.Controller
	Tabs       comanda.TabStore
	Players    comanda.PlayerDirectory
	Ledger     comanda.AccountLedger
	Catalog    catalog.Catalog
	Log        logrus.FieldLogger
}

// NewHandler creates a handler with the given collaborators.
func NewHandler(ctrl *comanda.Controller, tabs comanda.TabStore, players comanda.PlayerDirectory,
	ledger comanda.AccountLedger, cat catalog.Catalog, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Controller: ctrl,
		Tabs:       tabs,
		Players:    players,
		Ledger:     ledger,
		Catalog:    cat,
		Log:        log,
	}
}

// =============================================================================
// PLAYER HANDLERS
// =============================================================================

// SearchPlayers returns players matching ?q=, or all players.
func (h *Handler) SearchPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.Players.SearchPlayers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeDomainError(w, "Failed to search players", err)
		return
	}

	dtos := make([]PlayerDTO, len(players))
	for i, p := range players {
		dtos[i] = toPlayerDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPlayer returns a single player.
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	id := comanda.PlayerID(chi.URLParam(r, "id"))

	player, err := h.Players.Player(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get player", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlayerDTO(*player))
}

// GetBalance returns the display balance for a player.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := comanda.PlayerID(chi.URLParam(r, "id"))

	balance, err := h.Ledger.Balance(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{
		PlayerID: string(id),
		Balance:  balance.StringFixed(2),
	})
}

// TopUp credits a player's balance (admin).
func (h *Handler) TopUp(w http.ResponseWriter, r *http.Request) {
	id := comanda.PlayerID(chi.URLParam(r, "id"))

	var req TopUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	if err := h.Controller.TopUp(r.Context(), id, amount, req.Reference); err != nil {
		h.writeDomainError(w, "Failed to top up", err)
		return
	}

	balance, err := h.Ledger.Balance(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{PlayerID: string(id), Balance: balance.StringFixed(2)})
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ListProducts returns active catalog products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.ActiveProducts(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list products", err)
		return
	}

	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListAddOns returns the tournament add-ons synthesized for an event.
func (h *Handler) ListAddOns(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	addOns, err := h.Catalog.TournamentAddOns(r.Context(), eventID)
	if err != nil {
		h.writeDomainError(w, "Failed to list add-ons", err)
		return
	}

	dtos := make([]AddOnDTO, len(addOns))
	for i, a := range addOns {
		dtos[i] = toAddOnDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TAB HANDLERS
// =============================================================================

// OpenTab opens a tab for a player with no other open tab.
func (h *Handler) OpenTab(w http.ResponseWriter, r *http.Request) {
	var req OpenTabRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.PlayerID == "" || req.EventID == "" {
		writeError(w, http.StatusBadRequest, "event_id and player_id are required", nil)
		return
	}

	tab, err := h.Controller.Open(r.Context(), req.EventID, comanda.PlayerID(req.PlayerID), req.OpenedBy)
	if err != nil {
		h.writeDomainError(w, "Failed to open tab", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTabDTO(*tab))
}

// ListTabs returns tabs matching the query filters.
func (h *Handler) ListTabs(w http.ResponseWriter, r *http.Request) {
	filter := comanda.TabFilter{
		EventID:  r.URL.Query().Get("event"),
		PlayerID: comanda.PlayerID(r.URL.Query().Get("player")),
		Status:   comanda.TabStatus(r.URL.Query().Get("status")),
	}

	tabs, err := h.Tabs.ListTabs(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, "Failed to list tabs", err)
		return
	}

	dtos := make([]TabDTO, len(tabs))
	for i, t := range tabs {
		dtos[i] = toTabDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// FindOpenTab returns the player's open tab, or 404.
func (h *Handler) FindOpenTab(w http.ResponseWriter, r *http.Request) {
	playerID := comanda.PlayerID(r.URL.Query().Get("player"))
	if playerID == "" {
		writeError(w, http.StatusBadRequest, "player query parameter is required", nil)
		return
	}

	tab, err := h.Tabs.FindOpenTab(r.Context(), playerID)
	if err != nil {
		h.writeDomainError(w, "Failed to find open tab", err)
		return
	}
	if tab == nil {
		writeError(w, http.StatusNotFound, "No open tab for player", nil)
		return
	}
	writeJSON(w, http.StatusOK, toTabDTO(*tab))
}

// GetTab returns a tab with its items and derived one-time keys.
func (h *Handler) GetTab(w http.ResponseWriter, r *http.Request) {
	id := comanda.TabID(chi.URLParam(r, "id"))
	ctx := r.Context()

	tab, err := h.Tabs.GetTab(ctx, id)
	if err != nil {
		h.writeDomainError(w, "Failed to get tab", err)
		return
	}
	items, err := h.Tabs.Items(ctx, id)
	if err != nil {
		h.writeDomainError(w, "Failed to get tab items", err)
		return
	}

	itemDTOs := make([]TabItemDTO, len(items))
	for i, it := range items {
		itemDTOs[i] = toTabItemDTO(it)
	}
	var usedKeys []string
	for k := range comanda.UsedKeys(items) {
		usedKeys = append(usedKeys, string(k))
	}

	writeJSON(w, http.StatusOK, TabDetailDTO{
		Tab:      toTabDTO(*tab),
		Items:    itemDTOs,
		UsedKeys: usedKeys,
	})
}

// AddItem appends a priced product or tournament add-on to an open tab.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id := comanda.TabID(chi.URLParam(r, "id"))
	ctx := r.Context()

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	switch {
	case req.ProductID != "" && req.AddOnName != "":
		writeError(w, http.StatusBadRequest, "Set product_id or addon_name, not both", nil)
		return

	case req.ProductID != "":
		product, err := h.findProduct(r, req.ProductID)
		if err != nil {
			h.writeDomainError(w, "Failed to resolve product", err)
			return
		}
		item, err := h.Controller.AddProduct(ctx, id, *product)
		if err != nil {
			h.writeDomainError(w, "Failed to add product", err)
			return
		}
		writeJSON(w, http.StatusCreated, toTabItemDTO(*item))

	case req.AddOnName != "":
		addOn, err := h.findAddOn(r, id, req.AddOnName)
		if err != nil {
			h.writeDomainError(w, "Failed to resolve add-on", err)
			return
		}
		item, err := h.Controller.AddAddOn(ctx, id, *addOn)
		if err != nil {
			h.writeDomainError(w, "Failed to add add-on", err)
			return
		}
		writeJSON(w, http.StatusCreated, toTabItemDTO(*item))

	default:
		writeError(w, http.StatusBadRequest, "product_id or addon_name is required", nil)
	}
}

// findProduct resolves a product ID against the active catalog.
func (h *Handler) findProduct(r *http.Request, productID string) (*comanda.Product, error) {
	products, err := h.Catalog.ActiveProducts(r.Context())
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if p.ID == productID {
			return &p, nil
		}
	}
	return nil, comanda.ErrInactiveProduct
}

// findAddOn resolves an add-on name against the tab's event.
func (h *Handler) findAddOn(r *http.Request, tabID comanda.TabID, name string) (*comanda.AddOn, error) {
	tab, err := h.Tabs.GetTab(r.Context(), tabID)
	if err != nil {
		return nil, err
	}
	addOns, err := h.Catalog.TournamentAddOns(r.Context(), tab.EventID)
	if err != nil {
		return nil, err
	}
	for _, a := range addOns {
		if strings.EqualFold(a.Name, name) {
			return &a, nil
		}
	}
	return nil, catalog.ErrEventNotFound
}

// CloseTab debits the ledger and closes the tab.
func (h *Handler) CloseTab(w http.ResponseWriter, r *http.Request) {
	id := comanda.TabID(chi.URLParam(r, "id"))

	tab, err := h.Controller.Close(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to close tab", err)
		return
	}
	writeJSON(w, http.StatusOK, toTabDTO(*tab))
}

// ReopenTab refunds the ledger and reopens the tab.
func (h *Handler) ReopenTab(w http.ResponseWriter, r *http.Request) {
	id := comanda.TabID(chi.URLParam(r, "id"))

	tab, err := h.Controller.Reopen(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to reopen tab", err)
		return
	}
	writeJSON(w, http.StatusOK, toTabDTO(*tab))
}

// AdjustTotal overwrites a closed tab's total (admin escape hatch).
func (h *Handler) AdjustTotal(w http.ResponseWriter, r *http.Request) {
	id := comanda.TabID(chi.URLParam(r, "id"))

	var req AdjustTotalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	total, err := decimal.NewFromString(strings.TrimSpace(req.Total))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid total", err)
		return
	}

	tab, err := h.Controller.AdjustTotal(r.Context(), id, total)
	if err != nil {
		h.writeDomainError(w, "Failed to adjust total", err)
		return
	}
	writeJSON(w, http.StatusOK, toTabDTO(*tab))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the error taxonomy to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case comanda.IsNotFound(err) || errors.Is(err, catalog.ErrEventNotFound):
		status = http.StatusNotFound
	case errors.Is(err, comanda.ErrOpenTabExists) || errors.Is(err, comanda.ErrOneTimeItemUsed):
		status = http.StatusConflict
	case errors.Is(err, comanda.ErrInsufficientFunds):
		status = http.StatusUnprocessableEntity
	case comanda.IsClientError(err):
		status = http.StatusBadRequest
	case comanda.IsRetryable(err):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.Log.WithError(err).Error(message)
	}
	writeError(w, status, message, err)
}
