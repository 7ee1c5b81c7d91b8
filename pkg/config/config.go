// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"time"

	"github.com/caarlos0/env"
)

type Config struct {
	QueueTimeoutSecond       int `env:"QUEUE_TIMEOUT_SECOND"        envDefault:"300"  envDocs:"how long a team stays in the search queue before it is timed out"`
	MatchTickIntervalSecond  int `env:"MATCH_TICK_INTERVAL_SECOND"  envDefault:"5"    envDocs:"interval between matcher scheduler ticks"`
	LockTimeLimitSecond      int `env:"LOCK_TIME_LIMIT_SECOND"      envDefault:"10"   envDocs:"max time to wait for team locks before giving up the operation"`
	LockPollIntervalMs       int `env:"LOCK_POLL_INTERVAL_MS"       envDefault:"100"  envDocs:"interval between lock acquisition attempts"`
	FinishCooldownMs         int `env:"FINISH_COOLDOWN_MS"          envDefault:"3000" envDocs:"cooldown after finishing a match during which a team cannot be paired again"`
	HistoryWindowSize        int `env:"HISTORY_WINDOW_SIZE"         envDefault:"20"   envDocs:"number of past opponents kept per team for rematch scoring"`
	EscalationGoodTierSecond int `env:"ESCALATION_GOOD_TIER_SECOND" envDefault:"60"   envDocs:"own wait time after which good-tier candidates become eligible"`
	EscalationAllTierSecond  int `env:"ESCALATION_ALL_TIER_SECOND"  envDefault:"120"  envDocs:"own wait time after which all tiers including last-resort become eligible"`
	SearchGracePeriodSecond  int `env:"SEARCH_GRACE_PERIOD_SECOND"  envDefault:"60"   envDocs:"wait time after which a still-waiting notification is sent once"`
	ChannelDeleteDelaySecond int `env:"CHANNEL_DELETE_DELAY_SECOND" envDefault:"30"   envDocs:"delay before a match side channel is deleted after the match finishes"`
}

// Load reads the configuration from environment variables, falling back to the
// documented defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every knob at its documented default,
// without consulting the environment. Mostly useful for tests.
func Default() *Config {
	return &Config{
		QueueTimeoutSecond:       300,
		MatchTickIntervalSecond:  5,
		LockTimeLimitSecond:      10,
		LockPollIntervalMs:       100,
		FinishCooldownMs:         3000,
		HistoryWindowSize:        20,
		EscalationGoodTierSecond: 60,
		EscalationAllTierSecond:  120,
		SearchGracePeriodSecond:  60,
		ChannelDeleteDelaySecond: 30,
	}
}

func (c *Config) QueueTimeout() time.Duration {
	return time.Duration(c.QueueTimeoutSecond) * time.Second
}

func (c *Config) MatchTickInterval() time.Duration {
	return time.Duration(c.MatchTickIntervalSecond) * time.Second
}

func (c *Config) LockTimeLimit() time.Duration {
	return time.Duration(c.LockTimeLimitSecond) * time.Second
}

func (c *Config) LockPollInterval() time.Duration {
	return time.Duration(c.LockPollIntervalMs) * time.Millisecond
}

func (c *Config) FinishCooldown() time.Duration {
	return time.Duration(c.FinishCooldownMs) * time.Millisecond
}

func (c *Config) EscalationGoodTier() time.Duration {
	return time.Duration(c.EscalationGoodTierSecond) * time.Second
}

func (c *Config) EscalationAllTier() time.Duration {
	return time.Duration(c.EscalationAllTierSecond) * time.Second
}

func (c *Config) SearchGracePeriod() time.Duration {
	return time.Duration(c.SearchGracePeriodSecond) * time.Second
}

func (c *Config) ChannelDeleteDelay() time.Duration {
	return time.Duration(c.ChannelDeleteDelaySecond) * time.Second
}
