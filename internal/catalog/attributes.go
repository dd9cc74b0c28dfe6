package catalog

import (
	"sort"
	"strings"
)

// Attribute keys with value formatting rules.
const (
	AttrWidth      = "width"
	AttrDiameter   = "diameter"
	AttrTireSeason = "tire_season"
)

const inchMark = "″"

// AttributeMapping maps vendor param ids to attribute keys. Several ids may
// share a key.
var AttributeMapping = map[string]string{
	"10000000242":   "width",
	"10000000243":   "aspect_ratio",
	"10000000241":   "diameter",
	"10000000244":   "load_index",
	"10000000262":   "speed_index",
	"10000000245":   "tire_season",
	"10000000263":   "pattern_model",
	"10000000264":   "tyre_class",
	"10000000266":   "fuel_efficiency",
	"10000000267":   "wet_grip",
	"10000000268":   "noise_level",
	"10000000265":   "run_flat",
	"9990000000622": "noise_class",
	"10000000602":   "tyre_class",
	"10000000163":   "extra_info",
	"10000000164":   "spikes",
	"10000000523":   "oe_marking",
	"10000000524":   "noise_level",
	"10000000542":   "dot_year",
	"10000000543":   "extra_info",
	"10000000562":   "extra_info",
	"10000000522":   "extra_load",
	"10000000582":   "extra_info",
	"9990000000642": "snow_grip",
	"9990000000662": "ice_grip",
	"9990000000722": "extra_info",
	"9990000000762": "extra_info",
	"9990000000782": "extra_info",
}

// SeasonNames normalizes season values to the catalog's plural forms.
var SeasonNames = map[string]string{
	"Žieminė":    "Žieminės",
	"Vasarinė":   "Vasarinės",
	"Universali": "Universalios",
	"Winter":     "Žieminės",
	"Summer":     "Vasarinės",
	"All Season": "Universalios",
	"All-Season": "Universalios",
}

// AttributeKeys returns the distinct attribute keys of AttributeMapping, sorted.
func AttributeKeys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, key := range AttributeMapping {
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// FormatAttributeValue applies the key-specific formatting to a trimmed
// param value: "205" -> "205mm" for width, "R16" -> "16″" for diameter,
// "Winter" -> "Žieminės" for season. Other keys pass through.
func FormatAttributeValue(key, value string) string {
	switch key {
	case AttrWidth:
		if isNumeric(value) {
			return value + "mm"
		}
		return value
	case AttrDiameter:
		inches := strings.TrimPrefix(value, "R")
		if isNumeric(inches) {
			return inches + inchMark
		}
		return value
	case AttrTireSeason:
		if season, ok := SeasonNames[value]; ok {
			return season
		}
		return value
	default:
		return value
	}
}
