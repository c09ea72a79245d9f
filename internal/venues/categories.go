package venues

import (
	"sort"
	"strings"
)

// defaultCategories is the full upstream category set requested when a
// search specifies no filter.
var defaultCategories = []string{
	"accommodation", "activity", "airport", "commercial", "catering",
	"emergency", "education", "childcare", "entertainment", "healthcare",
	"heritage", "highway", "leisure", "man_made", "natural",
	"national_park", "office", "parking", "pet", "power", "production",
	"railway", "rental", "service", "tourism", "religion", "camping",
	"amenity", "beach", "adult", "building", "ski", "sport",
	"public_transport", "administrative", "postal_code", "political",
	"low_emission_zone", "populated_place",
}

// DefaultCategories returns the category set used when no filter is given.
func DefaultCategories() string {
	return strings.Join(defaultCategories, ",")
}

// categoryIcons maps venue categories to client icon names.
var categoryIcons = map[string]string{
	"accommodation": "bed",
	"hotel":         "bed",
	"motel":         "bed",
	"resort":        "umbrella",

	"activity":      "game-controller",
	"entertainment": "game-controller",
	"leisure":       "game-controller",
	"tourism":       "camera",

	"airport":          "airplane",
	"public_transport": "bus",
	"railway":          "train",
	"highway":          "car",
	"parking":          "car",

	"catering":   "restaurant",
	"restaurant": "restaurant",
	"bar":        "wine",
	"cafe":       "cafe",

	"commercial": "bag",
	"shopping":   "bag",
	"retail":     "bag",

	"sport":   "football",
	"sports":  "football",
	"ski":     "snow",
	"beach":   "umbrella",
	"camping": "tent",

	"healthcare": "medical",
	"health":     "medical",
	"fitness":    "fitness",

	"education": "school",
	"childcare": "people",

	"service": "construct",
	"amenity": "construct",
	"rental":  "key",

	"office":         "business",
	"administrative": "business",
	"government":     "business",

	"emergency": "warning",

	"heritage":      "library",
	"religion":      "church",
	"national_park": "leaf",

	"man_made":   "construct",
	"natural":    "leaf",
	"power":      "flash",
	"production": "construct",

	"pet": "paw",

	"postal_code": "mail",
	"political":   "flag",

	"low_emission_zone": "leaf",
	"populated_place":   "people",
	"building":          "business",
	"adult":             "heart",
}

// CategoryIcon maps a category to a client icon name, falling back to a
// substring match and then a generic location pin. The substring pass
// walks keys in sorted order so lookups stay deterministic.
func CategoryIcon(category string) string {
	normalized := strings.ToLower(category)

	if icon, ok := categoryIcons[normalized]; ok {
		return icon
	}

	keys := make([]string, 0, len(categoryIcons))
	for key := range categoryIcons {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if strings.Contains(normalized, key) {
			return categoryIcons[key]
		}
	}

	return "location"
}

// priceRangeIcons maps price range labels to client icon names.
var priceRangeIcons = map[string]string{
	"budget":    "cash-outline",
	"moderate":  "card-outline",
	"expensive": "diamond-outline",
	"luxury":    "trophy-outline",
}

// PriceRangeIcon maps a price range label to a client icon name.
func PriceRangeIcon(priceRange string) string {
	if icon, ok := priceRangeIcons[strings.ToLower(priceRange)]; ok {
		return icon
	}
	return "help-circle-outline"
}
