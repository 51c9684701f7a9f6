package polygon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQueryInjectsCamelCaseApiKey(t *testing.T) {
	a := New("https://api.polygon.io", "secret-key")
	ep, err := a.Registry().Get("news")
	require.NoError(t, err)
	q := a.BuildQuery(ep, map[string]string{"ticker": "AAPL"})
	assert.Equal(t, "secret-key", q.Get("apiKey"))
	assert.Equal(t, "AAPL", q.Get("ticker"))
}

func TestBuildQueryOmitsPathParamsFromQueryString(t *testing.T) {
	a := New("https://api.polygon.io", "secret-key")
	ep, err := a.Registry().Get("last-trade")
	require.NoError(t, err)
	q := a.BuildQuery(ep, map[string]string{"ticker": "AAPL"})
	assert.Empty(t, q.Get("ticker"))
}

func TestBuildURLSubstitutesPathPlaceholders(t *testing.T) {
	a := New("https://api.polygon.io", "secret-key")
	ep, err := a.Registry().Get("aggregates")
	require.NoError(t, err)
	url := a.BuildURL(ep, map[string]string{
		"ticker": "AAPL", "multiplier": "1", "timespan": "day", "from": "2026-01-01", "to": "2026-01-31",
	})
	assert.Equal(t, "https://api.polygon.io/v2/aggs/ticker/AAPL/range/1/day/2026-01-01/2026-01-31", url)
}

func TestAggregatesEndpointRequiresFullRange(t *testing.T) {
	a := New("https://api.polygon.io", "key")
	ep, err := a.Registry().Get("aggregates")
	assert := assert.New(t)
	assert.NoError(err)
	assert.Contains(ep.RequiredParams, "multiplier")
	assert.Contains(ep.RequiredParams, "timespan")
}
