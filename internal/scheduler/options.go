package scheduler

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/phrazzld/scry-decks/internal/config"
	"github.com/phrazzld/scry-decks/internal/domain/srs"
)

// Options tune how sessions are composed and cards are picked.
type Options struct {
	// NewCardsPerSession caps the new cards introduced per day.
	NewCardsPerSession int `json:"newCardsPerSession" validate:"gte=0"`
	// MinReviewInterval is the number of ratings that must pass before the
	// same card is shown again.
	MinReviewInterval int `json:"minReviewInterval" validate:"gte=0"`
	// FloorDueDateMinutes rounds due dates down to this many minutes. Zero
	// disables rounding.
	FloorDueDateMinutes int `json:"floorDueDateMinutes" validate:"gte=0,lte=1440"`
	// OnlyRateIfDue leaves scheduling data alone when a card is rated before
	// it is due.
	OnlyRateIfDue bool `json:"onlyRateIfDue"`
}

// DefaultOptions returns the options new schedulers start with.
func DefaultOptions() Options {
	return Options{
		NewCardsPerSession:  5,
		MinReviewInterval:   3,
		FloorDueDateMinutes: 15,
		OnlyRateIfDue:       true,
	}
}

// OptionsUpdate is a partial Options. Nil fields are left unchanged.
type OptionsUpdate struct {
	NewCardsPerSession  *int
	MinReviewInterval   *int
	FloorDueDateMinutes *int
	OnlyRateIfDue       *bool
}

var validate = validator.New()

// Validate checks every option against its allowed range.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

func (o Options) merge(u OptionsUpdate) Options {
	if u.NewCardsPerSession != nil {
		o.NewCardsPerSession = *u.NewCardsPerSession
	}
	if u.MinReviewInterval != nil {
		o.MinReviewInterval = *u.MinReviewInterval
	}
	if u.FloorDueDateMinutes != nil {
		o.FloorDueDateMinutes = *u.FloorDueDateMinutes
	}
	if u.OnlyRateIfDue != nil {
		o.OnlyRateIfDue = *u.OnlyRateIfDue
	}
	return o
}

// Settings are applied to schedulers when they are first created.
type Settings struct {
	Options Options
	Params  *srs.Params
}

// DefaultSettings returns the built-in options and model parameters.
func DefaultSettings() Settings {
	return Settings{Options: DefaultOptions(), Params: srs.NewDefaultParams()}
}

// SettingsFromConfig builds scheduler defaults from the scheduler section of
// the configuration.
func SettingsFromConfig(cfg config.SchedulerConfig) (Settings, error) {
	opts := Options{
		NewCardsPerSession:  cfg.NewCardsPerSession,
		MinReviewInterval:   cfg.MinReviewInterval,
		FloorDueDateMinutes: cfg.FloorDueDateMinutes,
		OnlyRateIfDue:       cfg.OnlyRateIfDue,
	}
	if err := opts.Validate(); err != nil {
		return Settings{}, err
	}
	params, err := srs.NewParams(srs.ParamsConfig{
		DesiredRetention: cfg.DesiredRetention,
		MaximumInterval:  cfg.MaximumInterval,
	})
	if err != nil {
		return Settings{}, err
	}
	return Settings{Options: opts, Params: params}, nil
}
