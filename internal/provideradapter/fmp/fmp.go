// Package fmp adapts Financial Modeling Prep's REST API to the
// provideradapter.Adapter contract, grounded on the upstream
// providers/fmp package (registry.py plus the per-category endpoint files).
package fmp

import (
	"net/url"

	"github.com/Maeshowe/Nexus-Core/internal/jsonvalue"
	"github.com/Maeshowe/Nexus-Core/internal/provideradapter"
	"github.com/Maeshowe/Nexus-Core/internal/registry"
)

const name = "fmp"

// Adapter implements provideradapter.Adapter for FMP.
type Adapter struct {
	baseURL string
	apiKey  string
	reg     *registry.Registry
}

// New builds an FMP Adapter with a populated representative endpoint
// registry spanning every upstream Category.
func New(baseURL, apiKey string) *Adapter {
	return &Adapter{baseURL: baseURL, apiKey: apiKey, reg: buildRegistry()}
}

func (a *Adapter) Name() string                  { return name }
func (a *Adapter) Registry() *registry.Registry  { return a.reg }

func (a *Adapter) BuildURL(endpoint registry.Endpoint, params map[string]string) string {
	return a.baseURL + provideradapter.SubstitutePath(endpoint.Path, params)
}

// BuildQuery forwards only params declared on endpoint, then injects FMP's
// auth parameter under the name "apikey".
func (a *Adapter) BuildQuery(endpoint registry.Endpoint, params map[string]string) url.Values {
	q := provideradapter.FilterQueryParams(endpoint, params)
	q.Set("apikey", a.apiKey)
	return q
}

func (a *Adapter) Normalize(body []byte) (jsonvalue.Value, error) {
	return jsonvalue.Parse(body)
}

func endpoint(name, path string, category registry.Category, tier registry.Tier, desc string, required, optional []string) registry.Endpoint {
	return registry.Endpoint{
		Name:           name,
		Path:           path,
		Category:       category,
		Tier:           tier,
		Description:    desc,
		RequiredParams: required,
		OptionalParams: optional,
	}
}

// buildRegistry registers one representative endpoint per upstream Category,
// rather than porting the full ~189-endpoint catalog; the registry mechanism
// itself supports registering the rest the same way.
func buildRegistry() *registry.Registry {
	r := registry.New()

	r.Register(endpoint("search-symbol", "/stable/search-symbol", registry.CategorySearch, registry.Free,
		"Search for a ticker symbol by name or symbol fragment", []string{"query"}, nil))

	r.Register(endpoint("company-profile", "/stable/profile", registry.CategoryCompany, registry.Free,
		"Company profile and overview", []string{"symbol"}, nil))

	r.Register(endpoint("quote", "/stable/quote", registry.CategoryQuotes, registry.Free,
		"Real-time stock quote", []string{"symbol"}, nil))

	r.Register(endpoint("income-statement", "/stable/income-statement", registry.CategoryFinancials, registry.Free,
		"Income statement", []string{"symbol"}, []string{"period", "limit"}))

	r.Register(endpoint("historical-chart", "/stable/historical-price-eod/full", registry.CategoryCharts, registry.Free,
		"Historical end-of-day price chart", []string{"symbol"}, []string{"from", "to"}))

	r.Register(endpoint("treasury-rates", "/stable/treasury-rates", registry.CategoryEconomics, registry.Free,
		"Treasury rate curve", nil, []string{"from", "to"}))

	r.Register(endpoint("earnings-calendar", "/stable/earnings-calendar", registry.CategoryCalendars, registry.Free,
		"Upcoming earnings calendar", nil, []string{"from", "to"}))

	r.Register(endpoint("earnings-transcript", "/stable/earning-call-transcript", registry.CategoryTranscripts, registry.Premium,
		"Earnings call transcript", []string{"symbol", "year", "quarter"}, nil))

	r.Register(endpoint("stock-news", "/stable/news/stock", registry.CategoryNews, registry.Free,
		"Stock-specific news", nil, []string{"symbols", "limit"}))

	r.Register(endpoint("institutional-ownership", "/stable/institutional-ownership/symbol-ownership", registry.CategoryInstitutional, registry.Premium,
		"Institutional ownership summary", []string{"symbol"}, nil))

	r.Register(endpoint("analyst-estimates", "/stable/analyst-estimates", registry.CategoryAnalyst, registry.Premium,
		"Forward analyst estimates", []string{"symbol"}, []string{"period"}))

	r.Register(endpoint("stock-peers", "/stable/stock-peers", registry.CategoryPerformance, registry.Free,
		"Peer group comparison", []string{"symbol"}, nil))

	r.Register(endpoint("technical-indicator", "/stable/technical-indicator/daily", registry.CategoryTechnical, registry.Premium,
		"Daily technical indicator series", []string{"symbol", "type"}, []string{"period"}))

	r.Register(endpoint("etf-holdings", "/stable/etf/holdings", registry.CategoryETF, registry.Premium,
		"ETF holdings breakdown", []string{"symbol"}, nil))

	r.Register(endpoint("sec-filings", "/stable/sec-filings", registry.CategorySEC, registry.Free,
		"SEC filings list", []string{"symbol"}, []string{"type"}))

	r.Register(endpoint("insider-trading", "/stable/insider-trading", registry.CategoryInsider, registry.Premium,
		"Insider trading activity", []string{"symbol"}, nil))

	r.Register(endpoint("index-quote", "/stable/quote", registry.CategoryIndexes, registry.Free,
		"Market index quote", []string{"symbol"}, nil))

	r.Register(endpoint("forex-quote", "/stable/quote", registry.CategoryForex, registry.Free,
		"Forex pair quote", []string{"symbol"}, nil))

	r.Register(endpoint("crypto-quote", "/stable/quote", registry.CategoryCrypto, registry.Free,
		"Crypto pair quote", []string{"symbol"}, nil))

	r.Register(endpoint("commodity-quote", "/stable/quote", registry.CategoryCommodities, registry.Free,
		"Commodity quote", []string{"symbol"}, nil))

	r.Register(endpoint("senate-trading", "/stable/senate-trading", registry.CategoryCongress, registry.Premium,
		"Congressional trading disclosures", []string{"symbol"}, nil))

	r.Register(endpoint("esg-score", "/stable/esg-disclosures", registry.CategoryESG, registry.Premium,
		"ESG disclosure score", []string{"symbol"}, nil))

	r.Register(endpoint("dcf-valuation", "/stable/discounted-cash-flow", registry.CategoryDCF, registry.Premium,
		"Discounted cash flow valuation", []string{"symbol"}, nil))

	r.Register(endpoint("market-hours", "/stable/market-hours", registry.CategoryOther, registry.Free,
		"Exchange market hours", nil, nil))

	return r
}
