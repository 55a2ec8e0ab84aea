package controller

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	SizeDecimals  int32 `envconfig:"ORDER_SIZE_DECIMALS" default:"8"`
	PriceDecimals int32 `envconfig:"ORDER_PRICE_DECIMALS" default:"2"`
	RebuyPostOnly bool  `envconfig:"REBUY_POST_ONLY" default:"true"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// DefaultConfig returns the env defaults without reading the environment.
func DefaultConfig() Config {
	return Config{SizeDecimals: 8, PriceDecimals: 2, RebuyPostOnly: true}
}
