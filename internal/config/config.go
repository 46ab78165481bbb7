package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every runtime knob. Values come from environment variables,
// optionally seeded from a .env file in the working directory.
type Config struct {
	ListenAddr string `env:"MAFIAD_ADDR" envDefault:":8081"`
	PublicURL  string `env:"MAFIAD_PUBLIC_URL" envDefault:"http://localhost:8081"`
	AdminKey   string `env:"MAFIAD_ADMIN_KEY"`

	NightSeconds       int `env:"MAFIAD_NIGHT_SECONDS" envDefault:"40"`
	DaySeconds         int `env:"MAFIAD_DAY_SECONDS" envDefault:"90"`
	VoteSeconds        int `env:"MAFIAD_VOTE_SECONDS" envDefault:"30"`
	ResultDelaySeconds int `env:"MAFIAD_RESULT_DELAY_SECONDS" envDefault:"6"`

	// Ended rooms linger this long so players can view the result screen.
	RoomRetentionSeconds int `env:"MAFIAD_ROOM_RETENTION_SECONDS" envDefault:"120"`
	SweepSeconds         int `env:"MAFIAD_SWEEP_SECONDS" envDefault:"30"`

	// DetectiveAccuracy is a percentage (0-100). The detective's report is
	// inverted the rest of the time; this is a game mechanic, not jitter.
	DetectiveAccuracy int `env:"MAFIAD_DETECTIVE_ACCURACY" envDefault:"80"`

	MaxConnsPerIP     int `env:"MAFIAD_MAX_CONNS_PER_IP" envDefault:"8"`
	ConnWindowSeconds int `env:"MAFIAD_CONN_WINDOW_SECONDS" envDefault:"10"`
	ConnWindowLimit   int `env:"MAFIAD_CONN_WINDOW_LIMIT" envDefault:"20"`

	Debug bool `env:"MAFIAD_DEBUG" envDefault:"false"`
}

// Load reads .env if present, then parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.NightSeconds <= 0 || c.DaySeconds <= 0 || c.VoteSeconds <= 0 {
		return fmt.Errorf("phase durations must be positive")
	}
	if c.DetectiveAccuracy < 0 || c.DetectiveAccuracy > 100 {
		return fmt.Errorf("detective accuracy must be 0-100, got %d", c.DetectiveAccuracy)
	}
	return nil
}

func (c Config) NightDuration() time.Duration { return time.Duration(c.NightSeconds) * time.Second }
func (c Config) DayDuration() time.Duration   { return time.Duration(c.DaySeconds) * time.Second }
func (c Config) VoteDuration() time.Duration  { return time.Duration(c.VoteSeconds) * time.Second }
func (c Config) ResultDelay() time.Duration {
	return time.Duration(c.ResultDelaySeconds) * time.Second
}
func (c Config) RoomRetention() time.Duration {
	return time.Duration(c.RoomRetentionSeconds) * time.Second
}
func (c Config) SweepInterval() time.Duration { return time.Duration(c.SweepSeconds) * time.Second }
func (c Config) ConnWindow() time.Duration {
	return time.Duration(c.ConnWindowSeconds) * time.Second
}
