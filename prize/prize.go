// Package prize names prizes by ordinal and detects the final prize.
package prize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lixenwraith/luckydraw/constants"
)

// Order is the direction prizes are awarded in
type Order uint8

const (
	// Descending awards the lowest prize first, ending with 1st Prize
	Descending Order = iota
	// Ascending awards 1st Prize first
	Ascending
)

func (o Order) String() string {
	if o == Ascending {
		return "asc"
	}
	return "desc"
}

// ParseOrder accepts asc, ascending, desc, descending (case-insensitive)
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending", "":
		return Descending, nil
	}
	return Descending, fmt.Errorf("unknown draw order %q", s)
}

// MarshalText encodes the order for config and snapshot files
func (o Order) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an order written by MarshalText or by hand
func (o *Order) UnmarshalText(b []byte) error {
	parsed, err := ParseOrder(string(b))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Ordinal is the rank of the next prize given how many have been awarded
// Zero or negative means every configured prize is gone
func Ordinal(historyLen, numPrizes int, order Order) int {
	if order == Ascending {
		return historyLen + 1
	}
	return numPrizes - historyLen
}

// Suffix returns the English ordinal suffix for n
func Suffix(n int) string {
	if n < 0 {
		n = -n
	}
	switch n % 100 {
	case 11, 12, 13:
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}

// Name labels the next prize, e.g. "3rd Prize"
func Name(historyLen, numPrizes int, order Order) string {
	n := Ordinal(historyLen, numPrizes, order)
	if n <= 0 {
		return constants.BonusPrizeName
	}
	return strconv.Itoa(n) + Suffix(n) + " Prize"
}

// IsFinal reports whether the next prize is the top or last one
func IsFinal(historyLen, numPrizes int, order Order) bool {
	n := Ordinal(historyLen, numPrizes, order)
	if order == Ascending {
		return n == numPrizes
	}
	return n == 1
}
