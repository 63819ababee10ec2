package comanda_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warp/comanda-engine/comanda"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// =============================================================================
// PRICE RULE TABLE
// =============================================================================

func TestPrice_RuleTable(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		category comanda.Category
		product  string
		tier     comanda.VIPTier
		want     string
	}{
		// No tier: base price unchanged everywhere
		{"no tier bar", "20", comanda.CategoryBar, "Cerveja", comanda.TierNone, "20.00"},
		{"no tier janta", "30", comanda.CategoryBar, "Janta Executiva", comanda.TierNone, "30.00"},
		{"no tier bet", "5", comanda.CategoryBet, "Bet R$ 5", comanda.TierNone, "5.00"},

		// vip_master
		{"master bar half", "20", comanda.CategoryBar, "Cerveja", comanda.TierMaster, "10.00"},
		{"master janta minus ten", "30", comanda.CategoryBar, "Janta Executiva", comanda.TierMaster, "20.00"},
		{"master janta case insensitive", "30", comanda.CategoryBar, "JANTA do dia", comanda.TierMaster, "20.00"},
		{"master janta floors at zero", "8", comanda.CategoryBar, "Janta Simples", comanda.TierMaster, "0.00"},
		{"master staff minus ten", "40", comanda.CategoryBet, "Staff", comanda.TierMaster, "30.00"},
		{"master staff case insensitive", "40", comanda.CategoryBet, "STAFF", comanda.TierMaster, "30.00"},
		{"master bet five free", "5", comanda.CategoryBet, "Bet R$ 5", comanda.TierMaster, "0.00"},
		{"master bet five free regardless of base", "99", comanda.CategoryBet, "Bet R$ 5", comanda.TierMaster, "0.00"},
		{"master other bet unchanged", "10", comanda.CategoryBet, "Bet R$ 10", comanda.TierMaster, "10.00"},
		{"master jackpot unchanged", "15", comanda.CategoryJackpot, "Jackpot", comanda.TierMaster, "15.00"},

		// vip_anual
		{"anual bar twenty off", "20", comanda.CategoryBar, "Cerveja", comanda.TierAnual, "16.00"},
		{"anual janta excluded from bar rule", "30", comanda.CategoryBar, "Janta Executiva", comanda.TierAnual, "30.00"},
		{"anual bet unchanged", "5", comanda.CategoryBet, "Bet R$ 5", comanda.TierAnual, "5.00"},
		{"anual jackpot unchanged", "15", comanda.CategoryJackpot, "Jackpot", comanda.TierAnual, "15.00"},

		// vip_trimestral: never discounts
		{"trimestral bar unchanged", "20", comanda.CategoryBar, "Cerveja", comanda.TierTrimestral, "20.00"},
		{"trimestral janta unchanged", "30", comanda.CategoryBar, "Janta Executiva", comanda.TierTrimestral, "30.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := comanda.Price(d(tt.base), tt.category, tt.product, tt.tier)
			assert.True(t, d(tt.want).Equal(got),
				"Price(%s, %s, %q, %s) = %s, want %s",
				tt.base, tt.category, tt.product, tt.tier, got, tt.want)
		})
	}
}

func TestPrice_NeverNegative(t *testing.T) {
	// The -10 rules floor at zero for any base below 10.
	for _, base := range []string{"0", "1", "5", "9.99", "10"} {
		got := comanda.Price(d(base), comanda.CategoryBar, "Janta", comanda.TierMaster)
		assert.False(t, got.IsNegative(), "base %s produced negative price %s", base, got)
	}
}

func TestPrice_PureFunction(t *testing.T) {
	// Same inputs, same output, any call order.
	first := comanda.Price(d("20"), comanda.CategoryBar, "Cerveja", comanda.TierAnual)
	comanda.Price(d("99"), comanda.CategoryBet, "Bet R$ 5", comanda.TierMaster)
	second := comanda.Price(d("20"), comanda.CategoryBar, "Cerveja", comanda.TierAnual)
	assert.True(t, first.Equal(second))
}

// =============================================================================
// ADD-ON PRICING
// =============================================================================

func TestAddOnPrice(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		addOn string
		tier  comanda.VIPTier
		want  string
	}{
		{"master staff discounts", "40", "Staff", comanda.TierMaster, "30.00"},
		{"master buy in unchanged", "120", "Buy In", comanda.TierMaster, "120.00"},
		{"master add on unchanged", "60", "Add On", comanda.TierMaster, "60.00"},
		{"anual staff unchanged", "40", "Staff", comanda.TierAnual, "40.00"},
		{"no tier staff unchanged", "40", "Staff", comanda.TierNone, "40.00"},
		{"master staff floors at zero", "8", "Staff", comanda.TierMaster, "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := comanda.AddOnPrice(d(tt.base), tt.addOn, tt.tier)
			assert.True(t, d(tt.want).Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestAddOnChipBonus(t *testing.T) {
	addOn := comanda.AddOn{Name: "Add On", Price: d("60"), ChipBonus: true}
	double := comanda.AddOn{Name: "Add Duplo", Price: d("100"), ChipBonus: true}
	buyIn := comanda.AddOn{Name: "Buy In", Price: d("120")}

	assert.True(t, comanda.AddOnChipBonus(addOn, comanda.TierMaster))
	assert.True(t, comanda.AddOnChipBonus(double, comanda.TierMaster))
	assert.False(t, comanda.AddOnChipBonus(buyIn, comanda.TierMaster))
	assert.False(t, comanda.AddOnChipBonus(addOn, comanda.TierAnual))
	assert.False(t, comanda.AddOnChipBonus(addOn, comanda.TierNone))
}
