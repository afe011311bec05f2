package spapi

// Marketplace tables: single source of truth for the marketplaces this
// connector supports, their SP-API IDs and regional endpoints.

// marketplaceIDs maps marketplace code to Amazon marketplace ID.
var marketplaceIDs = map[string]string{
	"US": "ATVPDKIKX0DER",
	"CA": "A2EUQ1WTGCTBG2",
	"UK": "A1F83G8C2ARO7P",
	"DE": "A1PA6795UKMFR9",
	"FR": "A13V1IB3VIYZZH",
	"IT": "APJ6JRA9NG5V4",
	"ES": "A1RKKUPIHCS9HS",
}

// marketplaceRegions maps marketplace ID to SP-API region.
var marketplaceRegions = map[string]string{
	"ATVPDKIKX0DER":  "na", // US
	"A2EUQ1WTGCTBG2": "na", // CA
	"A1F83G8C2ARO7P": "eu", // UK
	"A1PA6795UKMFR9": "eu", // DE
	"A13V1IB3VIYZZH": "eu", // FR
	"APJ6JRA9NG5V4":  "eu", // IT
	"A1RKKUPIHCS9HS": "eu", // ES
}

// regionEndpoints maps SP-API region to its base URL.
var regionEndpoints = map[string]string{
	"na": "https://sellingpartnerapi-na.amazon.com",
	"eu": "https://sellingpartnerapi-eu.amazon.com",
}

// MarketplaceID returns the marketplace ID for a code like "US", or "" if
// the code is unsupported.
func MarketplaceID(code string) string {
	return marketplaceIDs[code]
}

// MarketplaceCode returns the code for a marketplace ID, or "" if unknown.
func MarketplaceCode(id string) string {
	for code, mid := range marketplaceIDs {
		if mid == id {
			return code
		}
	}
	return ""
}

// Region returns the SP-API region for a marketplace ID. Unknown IDs
// default to "na".
func Region(marketplaceID string) string {
	if r, ok := marketplaceRegions[marketplaceID]; ok {
		return r
	}
	return "na"
}

// Endpoint returns the SP-API base URL for a marketplace ID.
func Endpoint(marketplaceID string) string {
	return regionEndpoints[Region(marketplaceID)]
}

// SupportedMarketplace reports whether the marketplace ID is one this
// connector knows how to talk to.
func SupportedMarketplace(marketplaceID string) bool {
	_, ok := marketplaceRegions[marketplaceID]
	return ok
}

// Marketplaces returns a copy of the code -> ID table.
func Marketplaces() map[string]string {
	out := make(map[string]string, len(marketplaceIDs))
	for code, id := range marketplaceIDs {
		out[code] = id
	}
	return out
}
