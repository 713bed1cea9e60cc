package screen

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Symbols     []string `envconfig:"SCREEN_SYMBOLS"`
	Concurrency int      `envconfig:"SCREEN_CONCURRENCY" default:"4"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
