package search

import "strings"

type localResource struct {
	keyword string
	info    string
}

// localResources are canned reference notes served when the search API is
// unavailable. Keyword matching is deliberately simple.
var localResources = []localResource{
	{
		keyword: "planting season",
		info: "Malawi Planting Calendar:\n" +
			"• Main season: November-December (with first rains)\n" +
			"• Tobacco nurseries: September\n" +
			"• Winter crops: May-July (irrigated)\n" +
			"• Vegetables: Year-round with irrigation",
	},
	{
		keyword: "soil management",
		info: "Soil Management in Lilongwe:\n" +
			"• Most soils are sandy loams\n" +
			"• Add organic matter (compost/manure)\n" +
			"• Practice crop rotation\n" +
			"• Use conservation agriculture techniques",
	},
	{
		keyword: "rainfall",
		info: "Lilongwe Rainfall Pattern:\n" +
			"• Annual average: 800-1000mm\n" +
			"• Rainy season: November-April\n" +
			"• Peak rainfall: January-February\n" +
			"• Dry season: May-October",
	},
	{
		keyword: "extension services",
		info: "Agricultural Extension Contacts:\n" +
			"• Lilongwe ADD Office: +265 1 754 244\n" +
			"• Ministry of Agriculture: +265 1 789 033\n" +
			"• LUANAR (Bunda College): +265 1 277 240",
	},
}

// LocalResources returns a canned answer for well-known topics.
func LocalResources(query string) (string, bool) {
	lower := strings.ToLower(query)
	for _, res := range localResources {
		if strings.Contains(lower, res.keyword) {
			return res.info, true
		}
	}
	return "", false
}
