package monitor

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	LoopPeriod      time.Duration   `envconfig:"MONITOR_LOOP_PERIOD" default:"5m"`
	ProfitTargetPct decimal.Decimal `envconfig:"MONITOR_PROFIT_TARGET_PCT" default:"50"`
	AutoExpire      bool            `envconfig:"MONITOR_AUTO_EXPIRE" default:"true"`
	MarketHoursOnly bool            `envconfig:"MONITOR_MARKET_HOURS_ONLY" default:"true"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
