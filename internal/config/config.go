// Package config loads the room server's HCL configuration: the listen
// address/log level and the stake ladder the Lobby auto-provisions tables
// from. Grounded on internal/server/config.go's gohcl decode pattern,
// generalized from a single fixed table list to a variant/stake ladder.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ServerConfig is the root of the room server's configuration file.
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Stakes []StakeConfig  `hcl:"stake,block"`
}

// ServerSettings holds process-level settings.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// StakeConfig describes one auto-provisioned rung of the stake ladder: a
// (variant, stake label) pair the Lobby keeps `TableCount` system tables
// live for.
type StakeConfig struct {
	Variant     string `hcl:"variant,label"`
	StakeLabel  string `hcl:"stake_label,label"`
	BettingType string `hcl:"betting_type,optional"`
	SmallBlind  int    `hcl:"small_blind"`
	BigBlind    int    `hcl:"big_blind"`
	BuyInMin    int    `hcl:"buy_in_min,optional"`
	BuyInMax    int    `hcl:"buy_in_max,optional"`
	TableCount  int    `hcl:"table_count,optional"`
}

// DefaultServerConfig is used when no config file is present.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "0.0.0.0",
			Port:     8080,
			LogLevel: "info",
		},
		Stakes: []StakeConfig{
			{
				Variant:     "texas",
				StakeLabel:  "1-2",
				BettingType: "no_limit",
				SmallBlind:  1,
				BigBlind:    2,
				BuyInMin:    40,
				BuyInMax:    400,
				TableCount:  1,
			},
		},
	}
}

// Load reads and decodes an HCL config file, applying defaults for missing
// fields. A missing file is not an error: it yields DefaultServerConfig.
func Load(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: parse %s: %s", filename, diags.Error())
	}

	var cfg ServerConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("config: decode %s: %s", filename, diags.Error())
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *ServerConfig) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	for i := range cfg.Stakes {
		s := &cfg.Stakes[i]
		if s.BettingType == "" {
			s.BettingType = "no_limit"
		}
		if s.BuyInMin == 0 {
			s.BuyInMin = s.BigBlind * 40
		}
		if s.BuyInMax == 0 {
			s.BuyInMax = s.BigBlind * 400
		}
		if s.TableCount == 0 {
			s.TableCount = 1
		}
	}
}

// Validate checks the decoded configuration for obviously broken values.
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	if len(c.Stakes) == 0 {
		return fmt.Errorf("config: at least one stake must be configured")
	}
	for _, s := range c.Stakes {
		if s.SmallBlind <= 0 {
			return fmt.Errorf("config: stake %s/%s: small blind must be positive", s.Variant, s.StakeLabel)
		}
		if s.BigBlind <= s.SmallBlind {
			return fmt.Errorf("config: stake %s/%s: big blind must exceed small blind", s.Variant, s.StakeLabel)
		}
		if s.BuyInMin >= s.BuyInMax {
			return fmt.Errorf("config: stake %s/%s: buy-in minimum must be less than maximum", s.Variant, s.StakeLabel)
		}
		if s.BettingType != "no_limit" && s.BettingType != "pot_limit" {
			return fmt.Errorf("config: stake %s/%s: unknown betting type %q", s.Variant, s.StakeLabel, s.BettingType)
		}
	}
	return nil
}

// Address returns the combined listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
