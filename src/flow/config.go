package flow

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	LoopPeriod              time.Duration   `envconfig:"FLOW_LOOP_PERIOD" default:"15m"`
	UnusualPremiumThreshold decimal.Decimal `envconfig:"FLOW_UNUSUAL_PREMIUM_THRESHOLD" default:"1000000"`
	AlertLookback           time.Duration   `envconfig:"FLOW_ALERT_LOOKBACK" default:"72h"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
