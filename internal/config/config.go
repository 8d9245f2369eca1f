package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Remote    RemoteConfig    `mapstructure:"remote"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json text"`
}

// DatabaseConfig selects the durable document store.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=memory sqlite postgres"`
	// URL is a file path for sqlite and a connection URL for postgres.
	URL string `mapstructure:"url" validate:"required_unless=Driver memory"`
}

// SchedulerConfig holds the defaults applied to newly created schedulers.
type SchedulerConfig struct {
	NewCardsPerSession  int     `mapstructure:"new_cards_per_session" validate:"gte=0"`
	MinReviewInterval   int     `mapstructure:"min_review_interval" validate:"gte=0"`
	FloorDueDateMinutes int     `mapstructure:"floor_due_date_minutes" validate:"gte=0,lte=1440"`
	OnlyRateIfDue       bool    `mapstructure:"only_rate_if_due"`
	DesiredRetention    float64 `mapstructure:"desired_retention" validate:"gt=0,lt=1"`
	MaximumInterval     int     `mapstructure:"maximum_interval" validate:"gte=1"`
}

// RemoteConfig describes the remote content-generation API.
type RemoteConfig struct {
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`
	TokenSecret string        `mapstructure:"token_secret" validate:"omitempty,min=32"`
	TokenTTL    time.Duration `mapstructure:"token_ttl" validate:"gte=0"`
}
