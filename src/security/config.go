package security

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	APIKey    string `envconfig:"COINBASE_API_KEY"`
	APISecret string `envconfig:"COINBASE_API_SECRET"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// Credentials builds the signer from env config.
func (c Config) Credentials() *Credentials {
	return NewCredentials(c.APIKey, c.APISecret)
}
