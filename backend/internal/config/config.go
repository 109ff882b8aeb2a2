package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// BIKERACE_RACE_LAPS=5.
const EnvPrefix = "BIKERACE"

// SimConfig controls the fixed-timestep loop.
type SimConfig struct {
	TickRate           int  `json:"tickRate" mapstructure:"tickRate"`
	MaxCatchUpSteps    int  `json:"maxCatchUpSteps" mapstructure:"maxCatchUpSteps"`
	ParallelCollisions bool `json:"parallelCollisions" mapstructure:"parallelCollisions"`
}

// RaceConfig describes the race the programs set up.
type RaceConfig struct {
	Laps        int    `json:"laps" mapstructure:"laps"`
	Bots        int    `json:"bots" mapstructure:"bots"`
	TrackFile   string `json:"trackFile" mapstructure:"trackFile"`
	DurationSec int    `json:"durationSec" mapstructure:"durationSec"`
}

type ServerConfig struct {
	Addr            string `json:"addr" mapstructure:"addr"`
	ReplicationRate int    `json:"replicationRate" mapstructure:"replicationRate"`
}

// Config is the typed view of everything Load put into viper.
type Config struct {
	LogLevel string       `json:"logLevel" mapstructure:"logLevel"`
	Sim      SimConfig    `json:"sim" mapstructure:"sim"`
	Race     RaceConfig   `json:"race" mapstructure:"race"`
	Server   ServerConfig `json:"server" mapstructure:"server"`
}

// Step is the fixed timestep implied by the tick rate.
func (c SimConfig) Step() time.Duration {
	if c.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.TickRate)
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")

	viper.SetDefault("sim.tickRate", 60)
	viper.SetDefault("sim.maxCatchUpSteps", 5)
	viper.SetDefault("sim.parallelCollisions", false)

	viper.SetDefault("race.laps", 3)
	viper.SetDefault("race.bots", 3)
	viper.SetDefault("race.trackFile", "")
	viper.SetDefault("race.durationSec", 600)

	viper.SetDefault("server.addr", ":9003")
	viper.SetDefault("server.replicationRate", 30)
}

// Load sets defaults, binds BIKERACE_* environment overrides and reads
// configFile when one is given. An empty path runs on defaults alone.
func Load(configFile string) error {
	setDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if configFile == "" {
		return nil
	}
	viper.SetConfigFile(configFile)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}
	return nil
}

// Get decodes the loaded settings and rejects values the loop cannot run on.
func Get() (Config, error) {
	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

var ErrInvalidConfig = errors.New("invalid config")

func (c Config) Validate() error {
	switch {
	case c.Sim.TickRate <= 0:
		return fmt.Errorf("%w: sim.tickRate must be positive, got %d", ErrInvalidConfig, c.Sim.TickRate)
	case c.Sim.MaxCatchUpSteps <= 0:
		return fmt.Errorf("%w: sim.maxCatchUpSteps must be positive, got %d", ErrInvalidConfig, c.Sim.MaxCatchUpSteps)
	case c.Race.Laps <= 0:
		return fmt.Errorf("%w: race.laps must be positive, got %d", ErrInvalidConfig, c.Race.Laps)
	case c.Race.Bots < 0:
		return fmt.Errorf("%w: race.bots cannot be negative, got %d", ErrInvalidConfig, c.Race.Bots)
	case c.Server.ReplicationRate <= 0:
		return fmt.Errorf("%w: server.replicationRate must be positive, got %d", ErrInvalidConfig, c.Server.ReplicationRate)
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
