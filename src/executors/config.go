package executors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Products     []string      `envconfig:"PRODUCTS" default:"BTC-USD,ETH-USD"`
	LoopInterval time.Duration `envconfig:"LOOP_INTERVAL" default:"60s"`
	DryRun       bool          `envconfig:"DRY_RUN" default:"false"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
