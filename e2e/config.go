// Package e2e drives a running chat server from the outside.
// Suites are skipped unless CHAT_ADDR points to a server.
package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ChatAddr   string `envconfig:"CHAT_ADDR"`
	HealthAddr string `envconfig:"HEALTH_ADDR"`
	// E2E_DEBUG_JSON dumps every frame received by the suite clients
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
