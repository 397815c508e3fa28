package engine

import (
	"fmt"

	"github.com/lixenwraith/luckydraw/charge"
	"github.com/lixenwraith/luckydraw/constants"
	"github.com/lixenwraith/luckydraw/prize"
	"github.com/lixenwraith/luckydraw/reveal"
)

// DrawConfig is the prize setup; it only changes between draws
type DrawConfig struct {
	NumPrizes       int         `json:"numPrizes"`
	WinnersPerPrize int         `json:"winnersPerPrize"`
	Order           prize.Order `json:"order"`
}

// DefaultDrawConfig is three single-winner prizes awarded 3rd to 1st
func DefaultDrawConfig() DrawConfig {
	return DrawConfig{
		NumPrizes:       constants.DefaultNumPrizes,
		WinnersPerPrize: constants.DefaultWinnersPerPrize,
		Order:           prize.Descending,
	}
}

// ConfigError rejects a draw configuration
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (c DrawConfig) Validate() error {
	if c.NumPrizes <= 0 {
		return &ConfigError{Field: "numPrizes", Message: "must be at least 1"}
	}
	if c.WinnersPerPrize <= 0 {
		return &ConfigError{Field: "winnersPerPrize", Message: "must be at least 1"}
	}
	if c.Order != prize.Ascending && c.Order != prize.Descending {
		return &ConfigError{Field: "order", Message: "must be asc or desc"}
	}
	return nil
}

// Timing groups reveal and charge pacing
type Timing struct {
	Reveal reveal.Timing
	Charge charge.Timing
}

func DefaultTiming() Timing {
	return Timing{Reveal: reveal.DefaultTiming(), Charge: charge.DefaultTiming()}
}
