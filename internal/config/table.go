package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

type TableConfig struct {
	Count       int           `env:"TABLE_COUNT" envDefault:"25"`
	IDPrefix    string        `env:"TABLE_ID_PREFIX" envDefault:"publicGame"`
	SeatLimit   int           `env:"SEAT_LIMIT" envDefault:"2"`
	SmallBlind  int64         `env:"SMALL_BLIND" envDefault:"25"`
	BigBlind    int64         `env:"BIG_BLIND" envDefault:"50"`
	MaxBuyIn    int64         `env:"MAX_BUY_IN" envDefault:"1000"`
	TurnTimeout time.Duration `env:"TURN_TIMEOUT" envDefault:"30s"`
	RevealDelay time.Duration `env:"REVEAL_DELAY" envDefault:"5s"`

	SettleRetryMax  int           `env:"SETTLE_RETRY_MAX" envDefault:"5"`
	SettleRetryBase time.Duration `env:"SETTLE_RETRY_BASE" envDefault:"500ms"`
}

func LoadTable() (TableConfig, error) {
	var cfg TableConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c TableConfig) Validate() error {
	switch {
	case c.Count <= 0:
		return errors.New("TABLE_COUNT must be positive")
	case c.SeatLimit < 2 || c.SeatLimit > 9:
		return errors.New("SEAT_LIMIT must be between 2 and 9")
	case c.SmallBlind <= 0 || c.BigBlind < c.SmallBlind:
		return errors.New("blinds must be positive with BIG_BLIND >= SMALL_BLIND")
	case c.MaxBuyIn <= 0:
		return errors.New("MAX_BUY_IN must be positive")
	case c.TurnTimeout <= 0:
		return errors.New("TURN_TIMEOUT must be positive")
	}
	return nil
}
