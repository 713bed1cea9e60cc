package marketdata

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BaseURL    string        `envconfig:"MARKETDATA_BASE_URL" default:"https://api.marketdata.app"`
	APIKey     string        `envconfig:"MARKETDATA_API_KEY"`
	RatePerSec float64       `envconfig:"MARKETDATA_RATE_PER_SEC" default:"5"`
	Timeout    time.Duration `envconfig:"MARKETDATA_TIMEOUT" default:"15s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
