package cachestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maeshowe/Nexus-Core/internal/jsonvalue"
)

func readRawJSON(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func TestSetGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 7, true)

	val := jsonvalue.Of(map[string]interface{}{"symbol": "AAPL", "price": 150.5})
	require.NoError(t, s.Set("fmp", "quote:AAPL", val, 0))

	got, ok := s.Get("fmp", "quote:AAPL", false)
	require.True(t, ok)
	obj, ok := got.Object()
	require.True(t, ok)
	assert.Equal(t, "AAPL", obj["symbol"])
}

func TestGetMissingKeyReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 7, true)
	_, ok := s.Get("fmp", "nonexistent", false)
	assert.False(t, ok)
}

func TestExpiredEntryIsNotReturned(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 0, true) // TTL of 0 days: everything expires immediately.
	require.NoError(t, s.Set("fmp", "key", jsonvalue.Of("v"), 0))

	_, ok := s.Get("fmp", "key", false)
	assert.False(t, ok)
}

func TestExpiredEntryIsReturnedWhenIgnoringExpiry(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 0, true) // TTL of 0 days: everything expires immediately.
	require.NoError(t, s.Set("fmp", "key", jsonvalue.Of("v"), 0))

	_, ok := s.Get("fmp", "key", false)
	require.False(t, ok)

	got, ok := s.Get("fmp", "key", true)
	require.True(t, ok)
	assert.Equal(t, "v", got.Raw)
}

func TestSetTTLOverrideExtendsExpiry(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 0, true) // default TTL 0: would expire immediately.
	require.NoError(t, s.Set("fmp", "key", jsonvalue.Of("v"), 7))

	_, ok := s.Get("fmp", "key", false)
	assert.True(t, ok)
}

func TestDisabledStoreNeverWrites(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 7, false)
	require.NoError(t, s.Set("fmp", "key", jsonvalue.Of("v"), 0))
	_, ok := s.Get("fmp", "key", false)
	assert.False(t, ok)
}

func TestSetLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 7, true)
	require.NoError(t, s.Set("fmp", "key", jsonvalue.Of("v"), 0))

	entries, err := filepath.Glob(filepath.Join(dir, "fmp_cache", "tmp-*.json"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProviderDirectoryUsesCacheSuffix(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 7, true)
	require.NoError(t, s.Set("fmp", "key", jsonvalue.Of("v"), 0))

	matches, err := filepath.Glob(filepath.Join(dir, "fmp_cache", "*.json"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestOnDiskEntryShapeIsBitExact(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 7, true)
	require.NoError(t, s.Set("fmp", "key", jsonvalue.Of("v"), 0))

	matches, err := filepath.Glob(filepath.Join(dir, "fmp_cache", "*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	raw, err := readRawJSON(matches[0])
	require.NoError(t, err)
	for _, field := range []string{"data", "timestamp", "ttl_days", "provider", "key"} {
		assert.Contains(t, raw, field)
	}
	assert.NotContains(t, raw, "stored_at")
	assert.NotContains(t, raw, "expires_at")
	assert.NotContains(t, raw, "\"value\"")
}

func TestClearExpiredRemovesOnlyExpired(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 7, true)
	require.NoError(t, s.Set("fmp", "fresh", jsonvalue.Of("v"), 0))

	expired := New(dir, 0, true)
	require.NoError(t, expired.Set("fmp", "stale", jsonvalue.Of("v"), 0))

	removed, err := s.ClearExpired("fmp")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok := s.Get("fmp", "fresh", false)
	assert.True(t, ok)
}

func TestClearProviderRemovesEverything(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 7, true)
	require.NoError(t, s.Set("fmp", "a", jsonvalue.Of("1"), 0))
	require.NoError(t, s.Set("fmp", "b", jsonvalue.Of("2"), 0))

	require.NoError(t, s.ClearProvider("fmp"))

	_, ok := s.Get("fmp", "a", false)
	assert.False(t, ok)
	_, ok = s.Get("fmp", "b", false)
	assert.False(t, ok)
}

func TestSanitizeKeyHashesLongKeys(t *testing.T) {
	long := make([]byte, maxKeyLength+50)
	for i := range long {
		long[i] = 'a'
	}
	key := SanitizeKey(string(long))
	assert.Len(t, key, 16)
}

func TestSanitizeKeyPassesThroughShortKeys(t *testing.T) {
	key := SanitizeKey("quote:AAPL")
	assert.Equal(t, "quote_AAPL", key)
}

func TestStatsForCountsEntriesAndBytes(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 7, true)
	require.NoError(t, s.Set("fmp", "a", jsonvalue.Of("1"), 0))
	require.NoError(t, s.Set("fmp", "b", jsonvalue.Of("2"), 0))

	stats, err := s.StatsFor("fmp")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.EntryCount)
	assert.Positive(t, stats.TotalBytes)
}

func TestIsValidReflectsExpiry(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 7, true)
	require.NoError(t, s.Set("fmp", "key", jsonvalue.Of("v"), 0))
	assert.True(t, s.IsValid("fmp", "key"))
	assert.True(t, s.Exists("fmp", "key"))
}
