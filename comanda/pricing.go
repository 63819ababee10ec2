/*
pricing.go - VIP price rules

PURPOSE:
  Maps (base price, category, product name, VIP tier) to the charged
  price. Pure, deterministic, side-effect free. The controller reads the
  owner's tier at the moment of charge; earlier items keep their
  already-charged price if the tier changes mid-tab.

RULE TABLE (first match wins, rules are not cumulative):
  no tier          -> base price unchanged
  vip_master:
    name starts with "janta" (any case)  -> base - 10
    category bar                         -> base * 0.5
    name is "staff" (any case)           -> base - 10
    name is exactly "Bet R$ 5"           -> 0
  vip_anual:
    category bar AND name not "janta..." -> base * 0.8
  vip_trimestral / anything else         -> base price unchanged

  Price never goes negative; floor at zero. Results are rounded to two
  decimal places (centavos).

ADD-ONS:
  Tournament add-ons follow a narrower rule: only the "Staff" add-on
  discounts (-10) for vip_master. "Add On" and "Add Duplo" carry a
  cosmetic chip-bonus annotation for vip_master but no price change.

SEE ALSO:
  - controller.go: Applies these rules at AddItem time
  - catalog: Synthesizes add-ons per event
*/
package comanda

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ten  = decimal.NewFromInt(10)
	half = decimal.NewFromFloat(0.5)

	anualBarFactor = decimal.NewFromFloat(0.8)
)

// Price returns the charged price for a catalog product given the owner's
// VIP tier. Exactly one rule fires per call.
func Price(base decimal.Decimal, category Category, name string, tier VIPTier) decimal.Decimal {
	switch tier {
	case TierMaster:
		switch {
		case isJanta(name):
			return clamp(base.Sub(ten))
		case category == CategoryBar:
			return clamp(base.Mul(half))
		case strings.EqualFold(name, "staff"):
			return clamp(base.Sub(ten))
		case name == "Bet R$ 5":
			return decimal.Zero
		}
	case TierAnual:
		if category == CategoryBar && !isJanta(name) {
			return clamp(base.Mul(anualBarFactor))
		}
	}
	return clamp(base)
}

// AddOnPrice returns the charged price for a tournament add-on. Only the
// Staff add-on discounts, and only for vip_master.
func AddOnPrice(base decimal.Decimal, addOnName string, tier VIPTier) decimal.Decimal {
	if tier == TierMaster && strings.EqualFold(addOnName, "staff") {
		return clamp(base.Sub(ten))
	}
	return clamp(base)
}

// AddOnChipBonus reports whether the add-on grants the cosmetic chip
// bonus for the given tier. No price change is involved.
func AddOnChipBonus(addOn AddOn, tier VIPTier) bool {
	return tier == TierMaster && addOn.ChipBonus
}

func isJanta(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), "janta")
}

// clamp floors at zero and normalizes to centavos.
func clamp(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(2)
}
