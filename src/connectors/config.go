package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BaseURL           string        `envconfig:"COINBASE_BASE_URL" default:"https://api.coinbase.com"`
	Timeout           time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
	MaxRetries        int           `envconfig:"HTTP_MAX_RETRIES" default:"5"` // total attempts
	RetryWait         time.Duration `envconfig:"HTTP_RETRY_WAIT" default:"500ms"`
	RetryMaxWait      time.Duration `envconfig:"HTTP_RETRY_MAX_WAIT" default:"8s"`
	CandleGranularity string        `envconfig:"CANDLE_GRANULARITY" default:"ONE_HOUR"`
	CandleCount       int           `envconfig:"CANDLE_COUNT" default:"50"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
