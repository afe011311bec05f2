package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sellerops/amazon-connector/internal/spapi"
)

// MarketplacesHandler serves the static marketplace table.
type MarketplacesHandler struct{}

// NewMarketplacesHandler creates a new MarketplacesHandler.
func NewMarketplacesHandler() *MarketplacesHandler {
	return &MarketplacesHandler{}
}

// Marketplace is one supported marketplace.
type Marketplace struct {
	Code          string `json:"code"           example:"DE"`
	MarketplaceID string `json:"marketplace_id" example:"A1PA6795UKMFR9"`
	Region        string `json:"region"         example:"eu"`
	Endpoint      string `json:"endpoint"       example:"https://sellingpartnerapi-eu.amazon.com"`
}

// ListMarketplacesOutput is the response for the marketplace table.
type ListMarketplacesOutput struct {
	Body struct {
		Marketplaces []Marketplace `json:"marketplaces"`
	}
}

// ListMarketplaces returns every marketplace this connector supports.
func (*MarketplacesHandler) ListMarketplaces(
	_ context.Context,
	_ *struct{},
) (*ListMarketplacesOutput, error) {
	table := spapi.Marketplaces()

	codes := make([]string, 0, len(table))
	for code := range table {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	resp := &ListMarketplacesOutput{}
	for _, code := range codes {
		id := table[code]
		resp.Body.Marketplaces = append(resp.Body.Marketplaces, Marketplace{
			Code:          code,
			MarketplaceID: id,
			Region:        spapi.Region(id),
			Endpoint:      spapi.Endpoint(id),
		})
	}
	return resp, nil
}

// RegisterMarketplaceRoutes registers marketplace endpoints with the Huma API.
func RegisterMarketplaceRoutes(api huma.API, h *MarketplacesHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-marketplaces",
		Method:      http.MethodGet,
		Path:        "/api/v1/marketplaces",
		Summary:     "List supported marketplaces",
		Description: "Returns the supported marketplaces with their SP-API IDs and endpoints.",
		Tags:        []string{"marketplaces"},
	}, h.ListMarketplaces)
}
