// Package fred adapts the St. Louis Fed's FRED REST API to the
// provideradapter.Adapter contract, grounded on the upstream
// providers/fred.py. FRED's auth parameter is lowercase ("api_key"), unlike
// FMP's "apikey" or Polygon's "apiKey" — preserved here for compatibility
// with existing FRED integrations.
package fred

import (
	"net/url"
	"strings"

	"github.com/Maeshowe/Nexus-Core/internal/jsonvalue"
	"github.com/Maeshowe/Nexus-Core/internal/provideradapter"
	"github.com/Maeshowe/Nexus-Core/internal/registry"
)

const name = "fred"

// Adapter implements provideradapter.Adapter for FRED.
type Adapter struct {
	baseURL string
	apiKey  string
	reg     *registry.Registry
}

// New builds a FRED Adapter with a representative endpoint registry.
func New(baseURL, apiKey string) *Adapter {
	return &Adapter{baseURL: baseURL, apiKey: apiKey, reg: buildRegistry()}
}

func (a *Adapter) Name() string                 { return name }
func (a *Adapter) Registry() *registry.Registry { return a.reg }

func (a *Adapter) BuildURL(endpoint registry.Endpoint, params map[string]string) string {
	return a.baseURL + provideradapter.SubstitutePath(endpoint.Path, params)
}

// BuildQuery forwards only params declared on endpoint, then injects FRED's
// credential, lowercased, under the lowercase name "api_key" and requests
// JSON output, matching the upstream client exactly.
func (a *Adapter) BuildQuery(endpoint registry.Endpoint, params map[string]string) url.Values {
	q := provideradapter.FilterQueryParams(endpoint, params)
	q.Set("api_key", strings.ToLower(a.apiKey))
	q.Set("file_type", "json")
	return q
}

func (a *Adapter) Normalize(body []byte) (jsonvalue.Value, error) {
	return jsonvalue.Parse(body)
}

func buildRegistry() *registry.Registry {
	r := registry.New()

	r.Register(registry.Endpoint{
		Name: "series-observations", Path: "/series/observations",
		Category: registry.CategoryEconomics, Tier: registry.Free,
		Description:    "Observations for an economic data series",
		RequiredParams: []string{"series_id"},
		OptionalParams: []string{"observation_start", "observation_end"},
	})
	r.Register(registry.Endpoint{
		Name: "series-info", Path: "/series",
		Category: registry.CategoryEconomics, Tier: registry.Free,
		Description:    "Metadata for an economic data series",
		RequiredParams: []string{"series_id"},
	})
	r.Register(registry.Endpoint{
		Name: "series-search", Path: "/series/search",
		Category: registry.CategorySearch, Tier: registry.Free,
		Description:    "Search economic data series by text",
		RequiredParams: []string{"search_text"},
	})
	r.Register(registry.Endpoint{
		Name: "category-series", Path: "/category/series",
		Category: registry.CategoryOther, Tier: registry.Free,
		Description:    "Series belonging to a FRED category",
		RequiredParams: []string{"category_id"},
	})

	return r
}
