package config

import (
	"github.com/haskel/pacer/internal/bandit"
	"github.com/haskel/pacer/internal/reward"
	"github.com/haskel/pacer/internal/safety"
)

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8090,
			PIDFile:      "/var/run/pacer.pid",
			MaxBodyBytes: 1 << 20,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				PerIP:             true,
				RequestsPerSecond: 20,
				Burst:             40,
			},
		},
		Auth: AuthConfig{
			Enabled:  false,
			User:     "",
			Password: "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Persistence: PersistenceConfig{
			DataDir:          "/var/lib/pacer",
			FlushIntervalSec: 300,
			EventsDB:         "events.db",
		},
		Engine: EngineConfig{
			Learner:          string(bandit.LearnerTypeBetaBernoulli),
			UseRL:            true,
			Seed:             0,
			Sigma:            bandit.DefaultSigma,
			SuccessThreshold: bandit.DefaultSuccessThreshold,
		},
		Safety: safety.DefaultThresholds(),
		Reward: reward.DefaultWeights(),
	}
}
