package constants

// Ticket Pool Limits
const (
	// MaxTickets is the hard limit for range and list pools
	MaxTickets = 40000

	// MaxTicketDigits is the widest ticket token the display supports
	MaxTicketDigits = 10

	// TicketPadRune pads shorter tokens to the pool width
	TicketPadRune = '0'
)

// Draw Defaults
// Mirror the stock session shown on first launch
const (
	DefaultTicketSpec      = "1-50"
	DefaultNumPrizes       = 3
	DefaultWinnersPerPrize = 1
	DefaultDrawOrder       = "desc"
	DefaultTitle           = "Live Lucky Draw"
	DefaultSubtitle        = "The most exciting draw on the web!"
)

// BonusPrizeName labels draws past the configured prize count
const BonusPrizeName = "Bonus Prize"
