package constants

import "time"

// Charge Gesture
const (
	// ChargeInterval is the period between charge increments
	ChargeInterval = 30 * time.Millisecond

	// ChargeStep is the level added per increment
	ChargeStep = 2

	// ChargeFull triggers the draw
	ChargeFull = 100

	// HoldTimeout cancels a keyboard hold when key repeat stops
	HoldTimeout = 550 * time.Millisecond
)
