package processors

// TaxRegime is the immutable rule set for marketplace sale tax. It is
// injected at construction so tests can substitute alternate regimes;
// there is no package-level singleton beyond the default table below.
type TaxRegime struct {
	// Items that never attract tax, keyed by exact display name.
	ExemptItems map[string]bool
	// Per-unit price at or below which no tax applies. Deliberately
	// checked against the unit price, not the total sale value.
	PriceFloor int64
	// Tax rate applied to the total sale value.
	Rate float64
	// Hard cap on the tax of a single transaction.
	Cap int64
}

// defaultExemptItems lists the marketplace's tax-free items: the bond
// currency, basic tools, low-value staples and teleport consumables.
var defaultExemptItems = []string{
	"Old school bonds",
	"Chisel",
	"Gardening trowel",
	"Glassblowing pipe",
	"Hammer",
	"Needle",
	"Pestle and mortar",
	"Rake",
	"Saw",
	"Secateurs",
	"Seed dibber",
	"Shears",
	"Spade",
	"Watering can",
	"Bucket",
	"Bucket of water",
	"Tinderbox",
	"Knife",
	"Fishing rod",
	"Fly fishing rod",
	"Pot",
	"Jug",
	"Jug of water",
	"Bowl",
	"Vial",
	"Vial of water",
	"Bronze pickaxe",
	"Bronze axe",
	"Bones",
	"Ball of wool",
	"Varrock teleport",
	"Lumbridge teleport",
	"Falador teleport",
	"Camelot teleport",
	"Ardougne teleport",
	"Watchtower teleport",
	"Teleport to house",
	"Games necklace(8)",
	"Ring of dueling(8)",
	"Necklace of passage(5)",
	"Amulet of glory(4)",
}

// NewTaxRegime builds a regime from an explicit exemption list.
func NewTaxRegime(exemptItems []string, priceFloor int64, rate float64, cap int64) TaxRegime {
	exempt := make(map[string]bool, len(exemptItems))
	for _, name := range exemptItems {
		exempt[name] = true
	}
	return TaxRegime{
		ExemptItems: exempt,
		PriceFloor:  priceFloor,
		Rate:        rate,
		Cap:         cap,
	}
}

// DefaultTaxRegime returns the live marketplace rules: 2% of the total
// sale, capped at 5,000,000 per transaction, with no tax at or below
// 50 coins per unit and a fixed exemption list.
func DefaultTaxRegime() TaxRegime {
	return NewTaxRegime(defaultExemptItems, 50, 0.02, 5_000_000)
}

// Tax computes the marketplace tax for selling quantity units of the
// named item at unitSellPrice coins each. Quantity and price positivity
// are the caller's responsibility; this function never returns a
// negative tax.
func (r TaxRegime) Tax(itemName string, unitSellPrice, quantity int64) int64 {
	if r.ExemptItems[itemName] {
		return 0
	}
	if unitSellPrice <= r.PriceFloor {
		return 0
	}
	total := unitSellPrice * quantity
	tax := int64(float64(total) * r.Rate)
	if tax < 0 {
		return 0
	}
	if tax > r.Cap {
		return r.Cap
	}
	return tax
}
