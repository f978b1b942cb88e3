package config

import "github.com/caarlos0/env/v11"

type BotConfig struct {
	WSURL      string `env:"WS_URL" envDefault:"ws://localhost:8080/ws"`
	PlayerID   string `env:"PLAYER_ID" envDefault:"bot"`
	PlayerName string `env:"PLAYER_NAME" envDefault:"dumb-bot"`
	Table      string `env:"TABLE" envDefault:"publicGame1"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
