// Package polygon adapts Polygon.io's REST API to the provideradapter.Adapter
// contract, grounded on the upstream providers/polygon.py.
package polygon

import (
	"net/url"

	"github.com/Maeshowe/Nexus-Core/internal/jsonvalue"
	"github.com/Maeshowe/Nexus-Core/internal/provideradapter"
	"github.com/Maeshowe/Nexus-Core/internal/registry"
)

const name = "polygon"

// Adapter implements provideradapter.Adapter for Polygon.io.
type Adapter struct {
	baseURL string
	apiKey  string
	reg     *registry.Registry
}

// New builds a Polygon Adapter with a representative endpoint registry.
func New(baseURL, apiKey string) *Adapter {
	return &Adapter{baseURL: baseURL, apiKey: apiKey, reg: buildRegistry()}
}

func (a *Adapter) Name() string                 { return name }
func (a *Adapter) Registry() *registry.Registry { return a.reg }

// BuildURL substitutes {ticker}/{multiplier}/etc. path placeholders from
// params, since Polygon's v2/v3 endpoints are path-templated rather than
// all-query like FMP's "stable" surface.
func (a *Adapter) BuildURL(endpoint registry.Endpoint, params map[string]string) string {
	return a.baseURL + provideradapter.SubstitutePath(endpoint.Path, params)
}

// BuildQuery forwards only params declared on endpoint and not already
// consumed by a path placeholder, then injects Polygon's auth parameter
// under the name "apiKey".
func (a *Adapter) BuildQuery(endpoint registry.Endpoint, params map[string]string) url.Values {
	q := provideradapter.FilterQueryParams(endpoint, params)
	q.Set("apiKey", a.apiKey)
	return q
}

func (a *Adapter) Normalize(body []byte) (jsonvalue.Value, error) {
	return jsonvalue.Parse(body)
}

func buildRegistry() *registry.Registry {
	r := registry.New()

	r.Register(registry.Endpoint{
		Name: "aggregates", Path: "/v2/aggs/ticker/{ticker}/range/{multiplier}/{timespan}/{from}/{to}",
		Category: registry.CategoryCharts, Tier: registry.Free,
		Description:    "Aggregate bars for a ticker over a date range",
		RequiredParams: []string{"ticker", "multiplier", "timespan", "from", "to"},
	})
	r.Register(registry.Endpoint{
		Name: "last-trade", Path: "/v2/last/trade/{ticker}",
		Category: registry.CategoryQuotes, Tier: registry.Free,
		Description:    "Most recent trade for a ticker",
		RequiredParams: []string{"ticker"},
	})
	r.Register(registry.Endpoint{
		Name: "ticker-details", Path: "/v3/reference/tickers/{ticker}",
		Category: registry.CategoryCompany, Tier: registry.Free,
		Description:    "Reference details for a ticker",
		RequiredParams: []string{"ticker"},
	})
	r.Register(registry.Endpoint{
		Name: "market-status", Path: "/v1/marketstatus/now",
		Category: registry.CategoryOther, Tier: registry.Free,
		Description: "Current market status across exchanges",
	})
	r.Register(registry.Endpoint{
		Name: "news", Path: "/v2/reference/news",
		Category: registry.CategoryNews, Tier: registry.Free,
		Description:    "Ticker news articles",
		OptionalParams: []string{"ticker", "limit"},
	})

	return r
}
