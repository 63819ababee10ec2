/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts travel as fixed two-decimal strings ("16.00"), never JSON
  numbers, to keep clients out of float territory.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/comanda-engine/comanda"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// PlayerDTO represents a player in API responses.
type PlayerDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	VIPTier string `json:"vip_tier,omitempty"`
}

// BalanceDTO is the display-only balance for a player.
type BalanceDTO struct {
	PlayerID string `json:"player_id"`
	Balance  string `json:"balance"`
}

// ProductDTO represents a catalog product.
type ProductDTO struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Name      string `json:"name"`
	BasePrice string `json:"base_price"`
}

// AddOnDTO represents a synthesized tournament add-on.
type AddOnDTO struct {
	Name      string `json:"name"`
	Price     string `json:"price"`
	ChipBonus bool   `json:"chip_bonus"`
}

// TabDTO represents a tab in API responses.
type TabDTO struct {
	ID       string `json:"id"`
	EventID  string `json:"event_id"`
	PlayerID string `json:"player_id"`
	Status   string `json:"status"`
	Total    string `json:"total"`
	OpenedBy string `json:"opened_by,omitempty"`
	OpenedAt string `json:"opened_at"`
	ClosedAt string `json:"closed_at,omitempty"`
}

// TabItemDTO represents one charged line on a tab.
type TabItemDTO struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id,omitempty"`
	Category   string `json:"category,omitempty"`
	Name       string `json:"name"`
	Note       string `json:"note,omitempty"`
	UnitPrice  string `json:"unit_price"`
	OneTimeKey string `json:"one_time_key,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// TabDetailDTO is a tab with its items and the derived one-time keys,
// which the UI uses to disable exhausted buttons.
type TabDetailDTO struct {
	Tab      TabDTO       `json:"tab"`
	Items    []TabItemDTO `json:"items"`
	UsedKeys []string     `json:"used_keys"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// OpenTabRequest opens a tab for a player.
type OpenTabRequest struct {
	EventID  string `json:"event_id"`
	PlayerID string `json:"player_id"`
	OpenedBy string `json:"opened_by"`
}

// AddItemRequest appends a product or a tournament add-on to a tab.
// Exactly one of ProductID / AddOnName must be set; add-ons resolve
// against the tab's event.
type AddItemRequest struct {
	ProductID string `json:"product_id,omitempty"`
	AddOnName string `json:"addon_name,omitempty"`
}

// TopUpRequest credits a player's balance. Reference makes operator
// retries idempotent; blank generates one server-side.
type TopUpRequest struct {
	Amount    string `json:"amount"`
	Reference string `json:"reference,omitempty"`
}

// AdjustTotalRequest overwrites a closed tab's total (admin).
type AdjustTotalRequest struct {
	Total string `json:"total"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toPlayerDTO(p comanda.Player) PlayerDTO {
	return PlayerDTO{ID: string(p.ID), Name: p.Name, VIPTier: string(p.Tier)}
}

func toProductDTO(p comanda.Product) ProductDTO {
	return ProductDTO{
		ID:        p.ID,
		Category:  string(p.Category),
		Name:      p.Name,
		BasePrice: p.BasePrice.StringFixed(2),
	}
}

func toAddOnDTO(a comanda.AddOn) AddOnDTO {
	return AddOnDTO{Name: a.Name, Price: a.Price.StringFixed(2), ChipBonus: a.ChipBonus}
}

func toTabDTO(t comanda.Tab) TabDTO {
	dto := TabDTO{
		ID:       string(t.ID),
		EventID:  t.EventID,
		PlayerID: string(t.PlayerID),
		Status:   string(t.Status),
		Total:    t.Total.StringFixed(2),
		OpenedBy: t.OpenedBy,
		OpenedAt: t.OpenedAt.Format(time.RFC3339),
	}
	if t.ClosedAt != nil {
		dto.ClosedAt = t.ClosedAt.Format(time.RFC3339)
	}
	return dto
}

func toTabItemDTO(it comanda.TabItem) TabItemDTO {
	return TabItemDTO{
		ID:         string(it.ID),
		ProductID:  it.ProductID,
		Category:   string(it.Category),
		Name:       it.Name,
		Note:       it.Note,
		UnitPrice:  it.UnitPrice.StringFixed(2),
		OneTimeKey: string(comanda.ItemKey(it)),
		CreatedAt:  it.CreatedAt.Format(time.RFC3339Nano),
	}
}
