package ticket

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/lixenwraith/luckydraw/constants"
)

// Build parses a ticket specification into a fresh pool
// Accepts an inclusive numeric range "start-end" or a comma-separated list
func Build(spec string) (*Pool, error) {
	input := strings.TrimSpace(spec)

	switch {
	case strings.Contains(input, ","):
		return BuildList(strings.Split(input, ","))
	case strings.Contains(input, "-"):
		tokens, err := expandRange(input)
		if err != nil {
			return nil, err
		}
		return newPool(tokens), nil
	default:
		return nil, invalid(ReasonUnknownFormat, input)
	}
}

// BuildList creates a pool from explicit tokens
// Tokens are trimmed, blanks dropped and duplicates collapsed keeping first occurrence
func BuildList(tokens []string) (*Pool, error) {
	seen := make(map[string]struct{}, len(tokens))
	unique := make([]string, 0, len(tokens))
	for _, raw := range tokens {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		if len(tok) > constants.MaxTicketDigits {
			return nil, invalid(ReasonTokenTooLong, tok)
		}
		seen[tok] = struct{}{}
		unique = append(unique, tok)
	}

	if len(unique) < 1 {
		return nil, invalid(ReasonEmptyList, "")
	}
	if len(unique) > constants.MaxTickets {
		return nil, invalid(ReasonOversizedList, "")
	}
	return newPool(unique), nil
}

// ReadList reads a ticket file, one ticket per line
// Lines are trimmed and blank lines skipped; the tokens feed BuildList.
func ReadList(r io.Reader) ([]string, error) {
	var tokens []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		tok := strings.TrimSpace(sc.Text())
		if tok == "" {
			continue
		}
		tokens = append(tokens, tok)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}

// expandRange turns "start-end" into zero-padded tokens at the width of start
func expandRange(input string) ([]string, error) {
	parts := strings.Split(input, "-")
	if len(parts) != 2 {
		return nil, invalid(ReasonMalformedRange, input)
	}
	startStr := strings.TrimSpace(parts[0])
	endStr := strings.TrimSpace(parts[1])

	start, errStart := strconv.ParseUint(startStr, 10, 64)
	end, errEnd := strconv.ParseUint(endStr, 10, 64)
	if errStart != nil || errEnd != nil {
		return nil, invalid(ReasonMalformedRange, input)
	}
	if start >= end {
		return nil, invalid(ReasonInvertedRange, input)
	}

	width := len(startStr)
	if width > constants.MaxTicketDigits || len(strconv.FormatUint(end, 10)) > constants.MaxTicketDigits {
		return nil, invalid(ReasonTooManyDigits, input)
	}
	if end-start+1 > constants.MaxTickets {
		return nil, invalid(ReasonOversizedRange, input)
	}

	tokens := make([]string, 0, end-start+1)
	for n := start; n <= end; n++ {
		tokens = append(tokens, pad(strconv.FormatUint(n, 10), width))
	}
	return tokens, nil
}

// pad left-fills s with the pad rune up to width
func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(string(constants.TicketPadRune), width-len(s)) + s
}
