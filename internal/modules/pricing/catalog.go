// README: Surcharge catalog: the keys, labels and kinds every rate sheet is built from.
package pricing

import "github.com/shopspring/decimal"

const (
	KeyFuelSurcharge     = "fuelSurcharge"
	KeyAdditionalStops   = "additionalStops"
	KeyWaitingHour       = "waitingHour"
	KeyPalletExchange    = "palletExchange"
	KeySeasonalSurcharge = "seasonalSurcharge"
	KeyOvernight         = "overnight"
	KeyHarbourDues       = "harbourDues"
	KeyPalletJack        = "palletJack"
	KeyPlugIn            = "plugIn"
	KeyWeekendCharges    = "weekendCharges"
	KeyDangerousGoods    = "dangerousGoods"
	KeyTailLift          = "tailLift"
	KeyETS               = "ets"
	KeyDirectFerry       = "directFerry"
	KeySecondDriver      = "secondDriver"
)

// DefaultQuantity is the quantity a per-unit surcharge starts with.
func DefaultQuantity(key string) int {
	if key == KeyAdditionalStops {
		return 2
	}
	return 1
}

type Definition struct {
	Key   string `json:"key" yaml:"key"`
	Label string `json:"label" yaml:"label"`
	Kind  Kind   `json:"kind" yaml:"kind"`
}

var defaultDefinitions = []Definition{
	{Key: KeyFuelSurcharge, Label: "Fuel Surcharge", Kind: KindPercentage},
	{Key: KeyAdditionalStops, Label: "Additional Stops", Kind: KindPerUnit},
	{Key: KeyWaitingHour, Label: "Waiting Hour", Kind: KindPerUnit},
	{Key: KeyPalletExchange, Label: "Pallet Exchange", Kind: KindPerUnit},
	{Key: KeySeasonalSurcharge, Label: "Seasonal Surcharge", Kind: KindFixed},
	{Key: KeyOvernight, Label: "Overnight Price", Kind: KindFixed},
	{Key: KeyHarbourDues, Label: "Harbour dues", Kind: KindFixed},
	{Key: KeyPalletJack, Label: "Pallet Jack", Kind: KindFixed},
	{Key: KeyPlugIn, Label: "Plug In", Kind: KindFixed},
	{Key: KeyWeekendCharges, Label: "Weekend Charges", Kind: KindFixed},
	{Key: KeyDangerousGoods, Label: "Dangerous Goods", Kind: KindFixed},
	{Key: KeyTailLift, Label: "Tail Lift", Kind: KindFixed},
	{Key: KeyETS, Label: "ETS", Kind: KindFixed},
	{Key: KeyDirectFerry, Label: "Price Ferry", Kind: KindFixed},
	{Key: KeySecondDriver, Label: "2nd Driver", Kind: KindFixed},
}

// Catalog is an ordered, immutable set of surcharge definitions.
type Catalog struct {
	defs  []Definition
	index map[string]int
}

func DefaultCatalog() *Catalog {
	return NewCatalog(defaultDefinitions)
}

func NewCatalog(defs []Definition) *Catalog {
	c := &Catalog{defs: make([]Definition, 0, len(defs)), index: make(map[string]int, len(defs))}
	for _, d := range defs {
		if d.Key == "" || !d.Kind.Valid() {
			continue
		}
		if i, ok := c.index[d.Key]; ok {
			c.defs[i] = d
			continue
		}
		c.index[d.Key] = len(c.defs)
		c.defs = append(c.defs, d)
	}
	return c
}

// WithOverrides returns a new catalog where each override replaces the label
// and kind of a known key, or is appended when the key is new.
func (c *Catalog) WithOverrides(overrides []Definition) *Catalog {
	merged := make([]Definition, 0, len(c.defs)+len(overrides))
	merged = append(merged, c.defs...)
	for _, o := range overrides {
		if i, ok := c.index[o.Key]; ok {
			base := merged[i]
			if o.Label != "" {
				base.Label = o.Label
			}
			if o.Kind.Valid() {
				base.Kind = o.Kind
			}
			merged[i] = base
			continue
		}
		merged = append(merged, o)
	}
	return NewCatalog(merged)
}

func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

func (c *Catalog) Lookup(key string) (Definition, bool) {
	i, ok := c.index[key]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// Sheet builds a rate sheet in catalog order. Keys missing from values are
// present with a zero raw value; keys outside the catalog are ignored.
func (c *Catalog) Sheet(base decimal.Decimal, values map[string]decimal.Decimal) RateSheet {
	sheet := RateSheet{BasePrice: base, Surcharges: make([]Surcharge, 0, len(c.defs))}
	for _, d := range c.defs {
		sheet.Surcharges = append(sheet.Surcharges, Surcharge{
			Key:      d.Key,
			Kind:     d.Kind,
			RawValue: values[d.Key],
		})
	}
	return sheet
}
