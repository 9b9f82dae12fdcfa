package config

import (
	"bytes"
	"encoding/json"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/riptide-labs/riptide/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ExitConfig holds the exit-policy coefficients. All levels are expressed in
// ATR multiples or R multiples of the position's risk unit.
type ExitConfig struct {
	// KSL is the ATR multiple for the initial stop distance.
	KSL float64 `yaml:"k_sl" json:"k_sl" jsonschema:"title=Initial Stop ATR Multiple,minimum=0" validate:"gt=0"`
	// R1R is the first take-profit level in R multiples.
	R1R float64 `yaml:"r1_R" json:"r1_R" jsonschema:"title=TP1 Level in R" validate:"gt=0"`
	// P1Pct is the fraction of current quantity closed at TP1.
	P1Pct float64 `yaml:"p1_pct" json:"p1_pct" jsonschema:"title=TP1 Close Fraction" validate:"gt=0,lte=1"`
	// R2R is the second take-profit level in R multiples.
	R2R float64 `yaml:"r2_R" json:"r2_R" jsonschema:"title=TP2 Level in R" validate:"gt=0"`
	// P2Pct is the fraction of the remaining quantity closed at TP2.
	P2Pct float64 `yaml:"p2_pct" json:"p2_pct" jsonschema:"title=TP2 Close Fraction" validate:"gt=0,lte=1"`
	// BeAfterR moves the stop to break-even once price is this many R in favor.
	BeAfterR float64 `yaml:"be_after_R" json:"be_after_R" jsonschema:"title=Break-Even Threshold in R" validate:"gt=0"`
	// KTrailBefore is the trailing-stop ATR multiple before TP1 fires.
	KTrailBefore float64 `yaml:"k_trail_before" json:"k_trail_before" jsonschema:"title=Trail ATR Multiple Before TP1" validate:"gt=0"`
	// KTrailAfter is the tighter trailing-stop ATR multiple after TP1 fires.
	KTrailAfter float64 `yaml:"k_trail_after" json:"k_trail_after" jsonschema:"title=Trail ATR Multiple After TP1" validate:"gt=0"`
	// MaxBarsInTrade forces a TIME exit once a position has been held this
	// many bars, unless TP2 has already fired.
	MaxBarsInTrade int `yaml:"max_bars_in_trade" json:"max_bars_in_trade" jsonschema:"title=Time Stop in Bars" validate:"gte=1"`
}

// Config is the full engine configuration surface. Unknown keys are rejected
// at load time; every field is typed, defaulted and validated.
type Config struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,minimum=0" validate:"gt=0"`
	// RiskPerTrade is the fraction of equity risked per R.
	RiskPerTrade float64 `yaml:"risk_per_trade" json:"risk_per_trade" jsonschema:"title=Risk Per Trade Fraction" validate:"gt=0,lt=1"`
	// MaxPositionPct caps a single position's notional as a fraction of equity.
	MaxPositionPct float64 `yaml:"max_position_pct" json:"max_position_pct" jsonschema:"title=Max Position Notional Fraction" validate:"gt=0,lte=1"`
	// MaxConcurrentPositions caps the number of simultaneously open positions.
	MaxConcurrentPositions int `yaml:"max_concurrent_positions" json:"max_concurrent_positions" jsonschema:"title=Max Concurrent Positions" validate:"gte=1"`
	// DailyLossCapR halts new entries for the rest of the day once the
	// accumulated daily R reaches this (negative) threshold.
	DailyLossCapR float64 `yaml:"daily_loss_cap_R" json:"daily_loss_cap_R" jsonschema:"title=Daily Loss Cap in R" validate:"lt=0"`
	// CooldownBarsAfterLoss is the number of bars a symbol sits out after a
	// losing close before it is eligible for new entries.
	CooldownBarsAfterLoss int `yaml:"cooldown_bars_after_loss" json:"cooldown_bars_after_loss" jsonschema:"title=Cooldown Bars After Loss" validate:"gte=0"`
	// LotStep is the quantity step order sizes are floored to.
	LotStep float64 `yaml:"lot_step" json:"lot_step" jsonschema:"title=Lot Step" validate:"gt=0"`

	Exit ExitConfig `yaml:"exit" json:"exit" jsonschema:"title=Exit Policy"`

	Symbols []string `yaml:"symbols" json:"symbols" jsonschema:"title=Symbols" validate:"min=1,dive,required"`
	// Interval is the low-timeframe bar interval (e.g. "1h").
	Interval string `yaml:"interval" json:"interval" jsonschema:"title=Bar Interval" validate:"required"`
	// HTFInterval is the higher timeframe used for the trend filter (e.g. "4h").
	HTFInterval string `yaml:"htf_interval" json:"htf_interval" jsonschema:"title=Higher Timeframe Interval" validate:"required"`

	// StartTime/EndTime optionally bound a backtest run.
	StartTime *time.Time `yaml:"start_time,omitempty" json:"start_time,omitempty" jsonschema:"title=Start Time"`
	EndTime   *time.Time `yaml:"end_time,omitempty" json:"end_time,omitempty" jsonschema:"title=End Time"`
}

// Default returns a Config populated with the engine's default parameters.
func Default() Config {
	return Config{
		InitialCapital:         100_000,
		RiskPerTrade:           0.008,
		MaxPositionPct:         0.25,
		MaxConcurrentPositions: 6,
		DailyLossCapR:          -4.0,
		CooldownBarsAfterLoss:  2,
		LotStep:                1e-6,
		Exit: ExitConfig{
			KSL:            1.8,
			R1R:            1.5,
			P1Pct:          0.30,
			R2R:            3.0,
			P2Pct:          0.30,
			BeAfterR:       1.0,
			KTrailBefore:   1.8,
			KTrailAfter:    1.2,
			MaxBarsInTrade: 120,
		},
		Symbols:     nil,
		Interval:    "1h",
		HTFInterval: "4h",
		StartTime:   nil,
		EndTime:     nil,
	}
}

// Load parses YAML into a defaulted Config, rejecting unknown keys, and
// validates the result. Configuration problems are fatal at startup by
// design; the engine never starts with a partially understood config.
func Load(data []byte) (Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil {
		if strings.Contains(err.Error(), "not found in type") {
			return Config{}, errors.Wrap(errors.ErrCodeUnknownConfigKey, "unknown configuration key", err)
		}

		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse configuration", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFile reads and parses a YAML configuration file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
	}

	return Load(data)
}

// Validate checks the configuration against its field constraints.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	if c.StartTime != nil && c.EndTime != nil && c.EndTime.Before(*c.StartTime) {
		return errors.New(errors.ErrCodeInvalidConfiguration, "end_time must not precede start_time")
	}

	return nil
}

// Window returns the optional backtest time bounds.
func (c *Config) Window() (optional.Option[time.Time], optional.Option[time.Time]) {
	start := optional.None[time.Time]()
	if c.StartTime != nil {
		start = optional.Some(*c.StartTime)
	}

	end := optional.None[time.Time]()
	if c.EndTime != nil {
		end = optional.Some(*c.EndTime)
	}

	return start, end
}

// GenerateSchema generates a JSON schema for the Config.
func (c *Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(time.Time{}) {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "riptide-engine-config"
	schema.Description = "Configuration schema for the riptide position/risk engine"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates a JSON schema string for the Config.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
