package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerops/amazon-connector/internal/api/handlers"
)

func TestListMarketplaces(t *testing.T) {
	t.Parallel()

	_, api := humatest.New(t)
	handlers.RegisterMarketplaceRoutes(api, handlers.NewMarketplacesHandler())

	resp := api.Get("/api/v1/marketplaces")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Marketplaces []handlers.Marketplace `json:"marketplaces"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Marketplaces, 7)

	byCode := make(map[string]handlers.Marketplace, len(body.Marketplaces))
	var codes []string
	for _, m := range body.Marketplaces {
		byCode[m.Code] = m
		codes = append(codes, m.Code)
	}

	// Codes come back alphabetically.
	assert.Equal(t, []string{"CA", "DE", "ES", "FR", "IT", "UK", "US"}, codes)

	de := byCode["DE"]
	assert.Equal(t, "A1PA6795UKMFR9", de.MarketplaceID)
	assert.Equal(t, "eu", de.Region)
	assert.Equal(t, "https://sellingpartnerapi-eu.amazon.com", de.Endpoint)

	us := byCode["US"]
	assert.Equal(t, "ATVPDKIKX0DER", us.MarketplaceID)
	assert.Equal(t, "na", us.Region)
	assert.Equal(t, "https://sellingpartnerapi-na.amazon.com", us.Endpoint)
}
