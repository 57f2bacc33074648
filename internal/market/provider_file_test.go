package market

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMarkets = `[
  {"PoolAddress": "orca-1", "Venue": "Orca", "Pair": {"Lower": 0, "Higher": 1}, "BaseVault": "vault-base-1", "QuoteVault": "vault-quote-1", "Price": 100.5, "LiquidityUSD": 250000, "FeeBps": 30},
  {"PoolAddress": "ray-1", "Venue": "Raydium", "Pair": {"Lower": 0, "Higher": 1}, "Price": 100.9, "LiquidityUSD": 180000, "FeeBps": 25}
]`

func writeMarkets(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "markets.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileProvider_LoadAll(t *testing.T) {
	p := NewFileProvider(writeMarkets(t, sampleMarkets))

	entries, err := p.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, VenueOrca, entries[0].Venue)
	assert.Equal(t, NewPairID(0, 1), entries[0].Pair)
	assert.Equal(t, "vault-base-1", entries[0].BaseVault)
	assert.Equal(t, "vault-quote-1", entries[0].QuoteVault)
	assert.False(t, entries[0].UpdatedAt.IsZero())
}

func TestFileProvider_Refresh(t *testing.T) {
	p := NewFileProvider(writeMarkets(t, sampleMarkets))

	entries, err := p.Refresh(context.Background(), []string{"ray-1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ray-1", entries[0].PoolAddress)
}

func TestFileProvider_Errors(t *testing.T) {
	_, err := NewFileProvider(filepath.Join(t.TempDir(), "absent.json")).LoadAll(context.Background())
	assert.Error(t, err)

	_, err = NewFileProvider(writeMarkets(t, "not json")).LoadAll(context.Background())
	assert.Error(t, err)
}
