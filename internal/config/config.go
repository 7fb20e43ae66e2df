package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	TCPPort  string `yaml:"tcp-port" env:"TCP_PORT" env-default:"55555"`
	WSPort   string `yaml:"ws-port" env:"WS_PORT" env-default:"8080"`
	Game     Game   `yaml:"game"`
}

type Game struct {
	TickInterval      time.Duration `yaml:"tick-interval" env:"TICK_INTERVAL" env-default:"100ms"`
	HeartbeatInterval time.Duration `yaml:"heartbeat-interval" env:"HEARTBEAT_INTERVAL" env-default:"3s"`
	LobbyReturnDelay  time.Duration `yaml:"lobby-return-delay" env:"LOBBY_RETURN_DELAY" env-default:"2s"`
	AcceptBacklog     int           `yaml:"accept-backlog" env:"ACCEPT_BACKLOG" env-default:"50"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}
