package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndGet(t *testing.T) {
	r := New()
	r.Register(Endpoint{Name: "quote", Category: CategoryQuotes, Tier: Free, RequiredParams: []string{"symbol"}})

	ep, err := r.Get("quote")
	require.NoError(t, err)
	assert.Equal(t, CategoryQuotes, ep.Category)
}

func TestGetUnknownReturnsError(t *testing.T) {
	r := New()
	_, err := r.Get("missing")
	assert.Error(t, err)
}

func TestByCategoryFilters(t *testing.T) {
	r := New()
	r.Register(Endpoint{Name: "a", Category: CategoryQuotes})
	r.Register(Endpoint{Name: "b", Category: CategoryNews})
	r.Register(Endpoint{Name: "c", Category: CategoryQuotes})

	quotes := r.ByCategory(CategoryQuotes)
	assert.Len(t, quotes, 2)
}

func TestAllParamsConcatenatesRequiredThenOptional(t *testing.T) {
	ep := Endpoint{RequiredParams: []string{"symbol"}, OptionalParams: []string{"period", "limit"}}
	assert.Equal(t, []string{"symbol", "period", "limit"}, ep.AllParams())
}

func TestStatsCountsByCategoryAndTier(t *testing.T) {
	r := New()
	r.Register(Endpoint{Name: "a", Category: CategoryQuotes, Tier: Free})
	r.Register(Endpoint{Name: "b", Category: CategoryQuotes, Tier: Premium, Deprecated: true})

	s := r.Stats()
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 2, s.ByCategory[CategoryQuotes])
	assert.Equal(t, 1, s.ByTier[Free])
	assert.Equal(t, 1, s.ByTier[Premium])
	assert.Equal(t, 1, s.DeprecatedCount)
}

func TestTwoInstancesAreIndependent(t *testing.T) {
	a := New()
	b := New()
	a.Register(Endpoint{Name: "only-in-a"})
	assert.False(t, b.Exists("only-in-a"))
}
