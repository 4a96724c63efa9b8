package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
	require.Len(t, cfg.Stakes, 1)
	assert.NoError(t, cfg.Validate())
}

func TestLoadDecodesStakeLadder(t *testing.T) {
	hcl := `
server {
  address   = "127.0.0.1"
  port      = 9090
  log_level = "debug"
}

stake "omaha" "2-5" {
  betting_type = "pot_limit"
  small_blind  = 2
  big_blind    = 5
  table_count  = 3
}
`
	path := filepath.Join(t.TempDir(), "room.hcl")
	require.NoError(t, os.WriteFile(path, []byte(hcl), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1:9090", cfg.Address())
	require.Len(t, cfg.Stakes, 1)
	stake := cfg.Stakes[0]
	assert.Equal(t, "omaha", stake.Variant)
	assert.Equal(t, "2-5", stake.StakeLabel)
	assert.Equal(t, "pot_limit", stake.BettingType)
	assert.Equal(t, 3, stake.TableCount)
	assert.Equal(t, 200, stake.BuyInMin) // 40x big blind default
	assert.Equal(t, 2000, stake.BuyInMax)
}

func TestValidateRejectsBadBlinds(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Stakes[0].BigBlind = cfg.Stakes[0].SmallBlind
	assert.Error(t, cfg.Validate())
}
