package catalog

import "sort"

// CategoryMapping maps vendor group ids to product category slugs.
var CategoryMapping = map[string]string{
	"10000002322": "summer-tires-pv",
	"10000002323": "winter-tires-friction",
	"10000002342": "uncategorized",
	"10000002348": "truck-tires",
	"10000002346": "mc-tires",
	"10000002347": "uncategorized",
	"10000002266": "uncategorized",
	"10000002375": "uncategorized",
	"10000002548": "uncategorized",
	"10000002553": "uncategorized",
	"10000002422": "all-season-pcr",
	"10000002423": "summer-tires-pv",
	"10000002902": "uncategorized",
	"10000003242": "uncategorized",
}

// CategorySlug returns the category slug for a vendor group id.
func CategorySlug(groupID string) (string, bool) {
	slug, ok := CategoryMapping[groupID]
	return slug, ok
}

// CategorySlugs returns the distinct mapped slugs in sorted order.
func CategorySlugs() []string {
	seen := make(map[string]bool)
	var slugs []string
	for _, slug := range CategoryMapping {
		if !seen[slug] {
			seen[slug] = true
			slugs = append(slugs, slug)
		}
	}
	sort.Strings(slugs)
	return slugs
}
