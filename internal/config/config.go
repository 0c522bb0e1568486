package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServerPort        string        `mapstructure:"SERVER_PORT"`
	RedisAddr         string        `mapstructure:"REDIS_ADDR"`
	RedisPassword     string        `mapstructure:"REDIS_PASSWORD"`
	ControlSecret     string        `mapstructure:"CONTROL_SECRET"`
	DeviceID          string        `mapstructure:"DEVICE_ID"`
	LocationSource    string        `mapstructure:"LOCATION_SOURCE"`
	SimulatorRoute    string        `mapstructure:"SIMULATOR_ROUTE"`
	SimulatorSpeedMps float64       `mapstructure:"SIMULATOR_SPEED_MPS"`
	SimulatorInterval time.Duration `mapstructure:"SIMULATOR_INTERVAL"`
}

func Load() Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("SERVER_PORT", ":8080")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("CONTROL_SECRET", "")
	v.SetDefault("DEVICE_ID", "default")
	v.SetDefault("LOCATION_SOURCE", "feed")
	v.SetDefault("SIMULATOR_ROUTE", "")
	v.SetDefault("SIMULATOR_SPEED_MPS", 10.0)
	v.SetDefault("SIMULATOR_INTERVAL", "1s")

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}
