package config

import (
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/haskel/pacer/internal/bandit"
	"github.com/haskel/pacer/internal/reward"
	"github.com/haskel/pacer/internal/safety"
)

type Config struct {
	Server      ServerConfig      `yaml:"server" envPrefix:"SERVER_"`
	Auth        AuthConfig        `yaml:"auth" envPrefix:"AUTH_"`
	Logging     LoggingConfig     `yaml:"logging" envPrefix:"LOG_"`
	Persistence PersistenceConfig `yaml:"persistence" envPrefix:"PERSISTENCE_"`
	Engine      EngineConfig      `yaml:"engine" envPrefix:"ENGINE_"`
	Safety      safety.Thresholds `yaml:"safety"`
	Reward      reward.Weights    `yaml:"reward"`
}

type ServerConfig struct {
	Host         string          `yaml:"host" env:"HOST"`
	Port         int             `yaml:"port" env:"PORT"`
	PIDFile      string          `yaml:"pid_file" env:"PID_FILE"`
	MaxBodyBytes int64           `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
	RateLimit    RateLimitConfig `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" env:"ENABLED"`
	PerIP             bool    `yaml:"per_ip" env:"PER_IP"`
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"RPS"`
	Burst             int     `yaml:"burst" env:"BURST"`
}

type AuthConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

type PersistenceConfig struct {
	DataDir          string `yaml:"data_dir" env:"DATA_DIR"`
	FlushIntervalSec int    `yaml:"flush_interval_sec" env:"FLUSH_INTERVAL_SEC"`
	// EventsDB is the SQLite event store file, relative to DataDir unless
	// absolute. Empty disables the event store.
	EventsDB string `yaml:"events_db" env:"EVENTS_DB"`
}

// EngineConfig holds recommendation engine configuration.
type EngineConfig struct {
	// Learner type: none, beta_bernoulli, linear
	Learner string `yaml:"learner" env:"LEARNER"`

	// UseRL makes learned selection the default when a learner is configured.
	UseRL bool `yaml:"use_rl" env:"USE_RL"`

	// Seed for the learner's random source. Zero picks a random seed.
	Seed uint64 `yaml:"seed" env:"SEED"`

	// Linear learner noise scale
	Sigma float64 `yaml:"sigma" env:"SIGMA"`

	// Rewards above this count as a success for the Beta-Bernoulli learner.
	SuccessThreshold float64 `yaml:"success_threshold" env:"SUCCESS_THRESHOLD"`
}

func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

func (c *Config) FlushInterval() time.Duration {
	return time.Duration(c.Persistence.FlushIntervalSec) * time.Second
}

// EventsPath returns the event store path, or "" when disabled.
func (c *Config) EventsPath() string {
	p := c.Persistence.EventsDB
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Persistence.DataDir, p)
}

// LearnerConfig returns the learner factory configuration for a catalogue
// of numActions actions and contexts of length dim.
func (c *Config) LearnerConfig(numActions, dim int) bandit.Config {
	return bandit.Config{
		Type:             bandit.LearnerType(c.Engine.Learner),
		NumActions:       numActions,
		Dim:              dim,
		Sigma:            c.Engine.Sigma,
		SuccessThreshold: c.Engine.SuccessThreshold,
		Seed:             c.Engine.Seed,
	}
}
