/*
Package catalog is the read-only product and event collaborator.

PURPOSE:
  The comanda core consumes the catalog through the Catalog interface:
  active products and per-event tournament add-ons. The catalog is
  read-only shared state and needs no locking discipline from callers.

TOURNAMENT ADD-ONS:
  Add-ons are not persisted. They are synthesized per active event from
  six configured values (buy-in, staff bonus, rebuy, add-on, double
  rebuy, double add-on), each stored as a BRL-formatted string like
  "R$ 120,00". Events with a value left blank simply do not offer that
  add-on. "Add On" and "Add Duplo" carry the chip-bonus marker consumed
  by the pricing rules for vip_master.

SEE ALSO:
  - brl.go: Currency-string parsing
  - comanda/pricing.go: AddOnPrice, AddOnChipBonus
*/
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/warp/comanda-engine/comanda"
)

// ErrEventNotFound is returned when querying add-ons for an unknown event.
var ErrEventNotFound = errors.New("event not found")

// =============================================================================
// CATALOG INTERFACE
// =============================================================================

// Catalog exposes the read-only queries this core consumes.
type Catalog interface {
	// ActiveProducts returns products with the active flag set.
	ActiveProducts(ctx context.Context) ([]comanda.Product, error)

	// TournamentAddOns returns the add-ons synthesized for the event.
	TournamentAddOns(ctx context.Context, eventID string) ([]comanda.AddOn, error)
}

// =============================================================================
// EVENT CONFIGURATION -> ADD-ONS
// =============================================================================

// Canonical add-on names. The one-time tracker keys off the "Buy In" and
// "Staff" note prefixes; renaming these breaks closed-tab history.
const (
	AddOnBuyIn       = "Buy In"
	AddOnStaff       = "Staff"
	AddOnRebuy       = "Rebuy"
	AddOnAddOn       = "Add On"
	AddOnDoubleRebuy = "Rebuy Duplo"
	AddOnDoubleAddOn = "Add Duplo"
)

// EventConfig holds the six configured add-on values for one event, each
// as a BRL-formatted string. Blank means the event does not offer it.
type EventConfig struct {
	BuyIn       string
	Staff       string
	Rebuy       string
	AddOn       string
	DoubleRebuy string
	DoubleAddOn string
}

// SynthesizeAddOns derives the event's add-on list from its configuration.
// Order is stable: buy-in first, doubles last.
func SynthesizeAddOns(cfg EventConfig) ([]comanda.AddOn, error) {
	entries := []struct {
		name      string
		raw       string
		chipBonus bool
	}{
		{AddOnBuyIn, cfg.BuyIn, false},
		{AddOnStaff, cfg.Staff, false},
		{AddOnRebuy, cfg.Rebuy, false},
		{AddOnAddOn, cfg.AddOn, true},
		{AddOnDoubleRebuy, cfg.DoubleRebuy, false},
		{AddOnDoubleAddOn, cfg.DoubleAddOn, true},
	}

	var addOns []comanda.AddOn
	for _, e := range entries {
		if e.raw == "" {
			continue
		}
		price, err := ParseBRL(e.raw)
		if err != nil {
			return nil, fmt.Errorf("add-on %q: %w", e.name, err)
		}
		addOns = append(addOns, comanda.AddOn{
			Name:      e.name,
			Price:     price,
			ChipBonus: e.chipBonus,
		})
	}
	return addOns, nil
}
