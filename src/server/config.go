package server

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the observability server settings. An empty port disables it.
type Config struct {
	Port string `envconfig:"SERVER_PORT" default:""`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
