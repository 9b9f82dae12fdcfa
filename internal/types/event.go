package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/riptide-labs/riptide/pkg/errors"
)

type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Sign returns +1 for long and -1 for short. Used to fold the two
// directional cases of level arithmetic into one expression.
func (s Side) Sign() float64 {
	if s == SideShort {
		return -1
	}

	return 1
}

// EventType identifies a fill event in a position's lifecycle.
type EventType string

const (
	EventEnter    EventType = "ENTER"
	EventTP1      EventType = "TP1"
	EventTP2      EventType = "TP2"
	EventStopLoss EventType = "SL"
	EventTimeStop EventType = "TIME"
)

// TradeEvent is one append-only fill record. PnL is None for ENTER events
// since PnL is realized only on exits.
type TradeEvent struct {
	EventID     string                   `csv:"event_id" yaml:"event_id" json:"event_id" validate:"required,uuid"`
	Time        time.Time                `csv:"time" yaml:"time" json:"time" validate:"required"`
	Symbol      string                   `csv:"symbol" yaml:"symbol" json:"symbol" validate:"required"`
	Type        EventType                `csv:"type" yaml:"type" json:"type" validate:"required,oneof=ENTER TP1 TP2 SL TIME"`
	Side        Side                     `csv:"side" yaml:"side" json:"side" validate:"required,oneof=long short"`
	Price       float64                  `csv:"price" yaml:"price" json:"price" validate:"required,gt=0"`
	Quantity    float64                  `csv:"qty" yaml:"qty" json:"qty" validate:"required,gt=0"`
	PnL         optional.Option[float64] `csv:"pnl" yaml:"pnl" json:"pnl"`
	EquityAfter float64                  `csv:"equity_after" yaml:"equity_after" json:"equity_after"`
}

// Validate validates the TradeEvent struct.
func (e *TradeEvent) Validate() error {
	validate := validator.New()
	if err := validate.Struct(e); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidEvent, "invalid trade event", err)
	}

	return nil
}

// EquityPoint is one row of the equity curve, appended once per tick.
type EquityPoint struct {
	Time   time.Time `csv:"time" yaml:"time" json:"time"`
	Equity float64   `csv:"equity" yaml:"equity" json:"equity"`
}
