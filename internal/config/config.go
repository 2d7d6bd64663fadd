// apps/go-server/internal/config/config.go
//
// Process configuration.
// Responsibilities:
//   - Load .env (best effort) and parse typed settings from the environment.
//   - Validate game tuning so a session can never be built with a broken clock.
//   - Translate settings into the game package's Config.

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/robalobadob/chosung/apps/go-server/internal/game"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Port         string `env:"PORT"          envDefault:"3000"`
	LogLevel     string `env:"LOG_LEVEL"     envDefault:"info"`
	LogPretty    bool   `env:"LOG_PRETTY"    envDefault:"false"`
	ClientOrigin string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	DBPath       string `env:"DB_PATH"       envDefault:"./data/chosung.db"`

	// OperatorSecret signs operator tokens for /debug/rooms. Empty disables the route.
	OperatorSecret string `env:"OPERATOR_JWT_SECRET"`

	Dict      Dict
	Game      Game
	Transport Transport
}

type Dict struct {
	Key       string        `env:"STD_KO_DICT_KEY"`
	BaseURL   string        `env:"DICT_BASE_URL"   envDefault:"https://stdict.korean.go.kr/api/search.do"`
	Timeout   time.Duration `env:"DICT_TIMEOUT"    envDefault:"5s"`
	WordsFile string        `env:"DICT_WORDS_FILE"`
}

type Game struct {
	MaxRounds      int           `env:"MAX_ROUNDS"                  envDefault:"5"`
	BaseTime       time.Duration `env:"BASE_TIME"                   envDefault:"10s"`
	TimeStep       time.Duration `env:"TIME_STEP"                   envDefault:"200ms"`
	MinTime        time.Duration `env:"MIN_TIME"                    envDefault:"1s"`
	Penalty        int           `env:"TIMEOUT_PENALTY"             envDefault:"100"`
	SettleDelay    time.Duration `env:"SETTLE_DELAY"                envDefault:"1500ms"`
	MaxPlayers     int           `env:"MAX_PLAYERS"                 envDefault:"8"`
	ResetUsedWords bool          `env:"RESET_USED_WORDS_EACH_ROUND" envDefault:"false"`
}

type Transport struct {
	SubmitRate  float64 `env:"SUBMIT_RATE"  envDefault:"2"`
	SubmitBurst int     `env:"SUBMIT_BURST" envDefault:"5"`
}

// Load reads .env if present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	g := c.Game
	switch {
	case g.MaxRounds < 1:
		return fmt.Errorf("%w: MAX_ROUNDS must be >= 1", ErrInvalid)
	case g.MinTime <= 0:
		return fmt.Errorf("%w: MIN_TIME must be > 0", ErrInvalid)
	case g.BaseTime < g.MinTime:
		return fmt.Errorf("%w: BASE_TIME must be >= MIN_TIME", ErrInvalid)
	case g.TimeStep < 0:
		return fmt.Errorf("%w: TIME_STEP must be >= 0", ErrInvalid)
	case g.MaxPlayers < 1:
		return fmt.Errorf("%w: MAX_PLAYERS must be >= 1", ErrInvalid)
	case g.Penalty < 0:
		return fmt.Errorf("%w: TIMEOUT_PENALTY must be >= 0", ErrInvalid)
	case g.SettleDelay < 0:
		return fmt.Errorf("%w: SETTLE_DELAY must be >= 0", ErrInvalid)
	case c.Transport.SubmitRate <= 0 || c.Transport.SubmitBurst < 1:
		return fmt.Errorf("%w: SUBMIT_RATE and SUBMIT_BURST must be positive", ErrInvalid)
	}
	return nil
}

// GameConfig converts settings into session tuning.
func (c Config) GameConfig() game.Config {
	return game.Config{
		MaxRounds:               c.Game.MaxRounds,
		BaseTime:                c.Game.BaseTime,
		TimeStep:                c.Game.TimeStep,
		MinTime:                 c.Game.MinTime,
		Penalty:                 c.Game.Penalty,
		SettleDelay:             c.Game.SettleDelay,
		MaxPlayers:              c.Game.MaxPlayers,
		ResetUsedWordsEachRound: c.Game.ResetUsedWords,
	}
}
