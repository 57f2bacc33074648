package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/your-org/sol-arb-bot/internal/config"
)

func TestProfitFloorByMode(t *testing.T) {
	assert.Zero(t, profitFloor(config.ModePaper, 1_000_000), "paper fills all get recorded")
	assert.Equal(t, uint64(1_000_000), profitFloor(config.ModeLive, 1_000_000))
	assert.Equal(t, uint64(1_000_000), profitFloor(config.ModeSimulate, 1_000_000))
}

func TestParseWhitelist(t *testing.T) {
	assert.Equal(t, []uint32{1, 42}, parseWhitelist([]string{"1", "42", "bogus"}))
	assert.Empty(t, parseWhitelist(nil))
}
