package ticket

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrPoolExhausted = errors.New("all tickets have been drawn")
	ErrInsufficient  = errors.New("not enough tickets remaining")
	ErrUnknownTicket = errors.New("ticket is not part of this pool")
	ErrDuplicate     = errors.New("ticket is already in the pool")
)

// Reason classifies a rejected ticket specification
type Reason int

const (
	ReasonUnknownFormat Reason = iota
	ReasonMalformedRange
	ReasonInvertedRange
	ReasonTooManyDigits
	ReasonOversizedRange
	ReasonOversizedList
	ReasonEmptyList
	ReasonTokenTooLong
)

var reasonText = [...]string{
	ReasonUnknownFormat:  `invalid format, use a range (e.g. 1-100) or a comma-separated list`,
	ReasonMalformedRange: `invalid range format, use "start-end"`,
	ReasonInvertedRange:  "invalid range, start must be less than end",
	ReasonTooManyDigits:  "ticket numbers cannot exceed 10 digits",
	ReasonOversizedRange: "range is too large, use 40,000 tickets or less",
	ReasonOversizedList:  "too many tickets, provide 40,000 tickets or less",
	ReasonEmptyList:      "provide at least one valid, unique ticket",
	ReasonTokenTooLong:   "ticket identifiers cannot exceed 10 characters",
}

func (r Reason) String() string {
	if int(r) < len(reasonText) {
		return reasonText[r]
	}
	return "invalid ticket specification"
}

// ValidationError rejects a ticket specification; the pool is left untouched
type ValidationError struct {
	Reason Reason
	Input  string
}

func (e *ValidationError) Error() string {
	if e.Input == "" {
		return e.Reason.String()
	}
	return fmt.Sprintf("%s: %q", e.Reason, e.Input)
}

func invalid(r Reason, input string) error {
	if len(input) > 32 {
		input = input[:32] + "..."
	}
	return &ValidationError{Reason: r, Input: input}
}
