// Package config loads daemon configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Robotd is the robotd daemon configuration. Flags override these values.
type Robotd struct {
	DBPath      string        `env:"ROBOFLEET_DB" envDefault:"./data/badger"`
	RobotID     string        `env:"ROBOFLEET_ROBOT_ID"`
	NATSURL     string        `env:"ROBOFLEET_NATS_URL"`
	MetricsAddr string        `env:"ROBOFLEET_METRICS_ADDR" envDefault:":9090"`
	ReadTimeout time.Duration `env:"ROBOFLEET_READ_TIMEOUT" envDefault:"10s"`
}

// Fleetctl is the operator CLI configuration.
type Fleetctl struct {
	DBPath string `env:"ROBOFLEET_DB" envDefault:"./data/badger"`
}

// Parse loads configuration from environment variables into target.
func Parse(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
