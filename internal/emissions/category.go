package emissions

// Category identifies the kind of activity an emission record measures.
type Category string

const (
	Electricity    Category = "electricity"
	FuelCombustion Category = "fuelCombustion"
	Shipping       Category = "shipping"
	Explosion      Category = "explosion"
	CoalBurn       Category = "coalBurn"
	Methane        Category = "methane"
)

// Categories lists every recognised category in display order.
var Categories = []Category{Electricity, FuelCombustion, Shipping, Explosion, CoalBurn, Methane}

// ParseCategory matches the bundle key used by the record source.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Label is a human-readable name for reports.
func (c Category) Label() string {
	switch c {
	case Electricity:
		return "Electricity"
	case FuelCombustion:
		return "Fuel Combustion"
	case Shipping:
		return "Shipping"
	case Explosion:
		return "Explosion"
	case CoalBurn:
		return "Coal Burn"
	case Methane:
		return "Methane"
	}
	return string(c)
}

func zeroTotals() map[Category]float64 {
	totals := make(map[Category]float64, len(Categories))
	for _, c := range Categories {
		totals[c] = 0
	}
	return totals
}
