// Package provideradapter defines the per-provider contract the loader
// orchestrator drives: URL construction, auth injection, response
// normalization, and cache-key derivation, grounded on the upstream
// providers/base.py BaseProvider.
package provideradapter

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/Maeshowe/Nexus-Core/internal/jsonvalue"
	"github.com/Maeshowe/Nexus-Core/internal/registry"
)

const maxCacheKeyLength = 200

// Adapter is implemented once per upstream data provider.
type Adapter interface {
	// Name is the provider's identifier, used for gate/breaker/health
	// bookkeeping ("fmp", "polygon", "fred").
	Name() string

	// Registry returns the provider's endpoint catalog.
	Registry() *registry.Registry

	// BuildURL returns the full request URL for an endpoint, substituting
	// any {token} path placeholders from params.
	BuildURL(endpoint registry.Endpoint, params map[string]string) string

	// BuildQuery returns the query parameters for a request: every
	// endpoint-declared param not already consumed by a path placeholder,
	// plus the provider's auth parameter injected under its
	// provider-specific name.
	BuildQuery(endpoint registry.Endpoint, params map[string]string) url.Values

	// Normalize converts a raw response body into the common jsonvalue
	// shape.
	Normalize(body []byte) (jsonvalue.Value, error)
}

// PathParamNames returns the set of {token} placeholder names appearing in
// path, matching the upstream providers' f-string path templates.
func PathParamNames(path string) map[string]bool {
	out := make(map[string]bool)
	for {
		open := strings.IndexByte(path, '{')
		if open < 0 {
			break
		}
		close := strings.IndexByte(path[open:], '}')
		if close < 0 {
			break
		}
		out[path[open+1:open+close]] = true
		path = path[open+close+1:]
	}
	return out
}

// SubstitutePath replaces every {token} placeholder in path with the
// matching entry from params, per spec.md §4.8's path-template contract.
func SubstitutePath(path string, params map[string]string) string {
	for name, val := range params {
		path = strings.ReplaceAll(path, "{"+name+"}", val)
	}
	return path
}

// FilterQueryParams returns the subset of params declared on endpoint
// (required or optional) and not already consumed by a path placeholder,
// matching §4.8's contract that undeclared params never reach the request.
func FilterQueryParams(endpoint registry.Endpoint, params map[string]string) url.Values {
	pathNames := PathParamNames(endpoint.Path)
	q := url.Values{}
	for _, name := range endpoint.AllParams() {
		if pathNames[name] {
			continue
		}
		if v, ok := params[name]; ok {
			q.Set(name, v)
		}
	}
	return q
}

// ValidateEndpoint checks that every required parameter for name is present
// in params, returning an error naming the first missing one.
func ValidateEndpoint(reg *registry.Registry, name string, params map[string]string) (registry.Endpoint, error) {
	ep, err := reg.Get(name)
	if err != nil {
		return registry.Endpoint{}, err
	}
	for _, req := range ep.RequiredParams {
		if _, ok := params[req]; !ok {
			return registry.Endpoint{}, fmt.Errorf("missing required parameter %q for endpoint %q", req, name)
		}
	}
	return ep, nil
}

// CacheKey derives a stable cache key from provider, endpoint name, and
// params (excluding auth), sorting params for determinism. Once the key
// would otherwise exceed 200 characters, the params part is replaced by a
// 16-hex-character md5 hash of the full key, giving "provider:endpoint:<hash>",
// matching the upstream provider adapters' _generate_cache_key.
func CacheKey(provider, endpoint string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(provider)
	b.WriteString(":")
	b.WriteString(endpoint)
	for _, k := range keys {
		b.WriteString(":")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}
	key := b.String()

	if len(key) > maxCacheKeyLength {
		sum := md5.Sum([]byte(key))
		return provider + ":" + endpoint + ":" + hex.EncodeToString(sum[:])[:16]
	}
	return key
}
