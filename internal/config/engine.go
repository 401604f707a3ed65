package config

import (
	"errors"

	"github.com/andrew-solarstorm/go-packages/common"

	appcommon "github.com/hxuan190/batch-engine/internal/common"
)

type EngineConfig struct {
	// DBPath is the path to the BoltDB file for order persistence.
	// Default: "./data/batch-engine.db"
	DBPath string

	// WETHAddress is the canonical wrapped-native token every route
	// pivots through.
	WETHAddress string

	// BeaconAddress receives the beacon share of fees for passes
	// triggered by the background sweeper.
	BeaconAddress string

	// ExecuteInterval is how often resting orders are swept into an
	// execution pass (in seconds). 0 disables the background sweeper;
	// passes then run only via the admin endpoint.
	// Default: 15
	ExecuteInterval int
}

func (c *EngineConfig) Key() string {
	return ENGINE_CONFIG_KEY
}

func (c *EngineConfig) Load() error {
	c.DBPath = common.GetEnvOrDefault("ENGINE_DB_PATH", "./data/batch-engine.db")
	c.WETHAddress = common.GetEnvOrDefault("WETH_ADDRESS", appcommon.WETHAddress.Hex())
	c.BeaconAddress = common.GetEnvOrDefault("BEACON_ADDRESS", "")
	c.ExecuteInterval = common.GetEnvOrDefaultInt("EXECUTE_INTERVAL", 15)
	return c.Validate()
}

func (c *EngineConfig) Validate() error {
	if c.WETHAddress == "" {
		return errors.New("invalid engine config: missing WETH address")
	}
	if c.ExecuteInterval < 0 {
		return errors.New("invalid engine config: negative execute interval")
	}
	return nil
}
