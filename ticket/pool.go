// Package ticket owns the draw pool: parsing ticket specifications and
// removing winners uniformly at random without replacement.
package ticket

import (
	"fmt"
	"slices"

	"github.com/lixenwraith/luckydraw/constants"
)

// Ticket is an opaque fixed-width identifier, compared only for equality
type Ticket = string

// Pool tracks the initial ticket set and the subset still eligible
//
// Invariants:
//   - remaining is a subset of initial with no duplicates
//   - pos maps every initial ticket to its creation index
//   - idx maps every remaining ticket to its slot in remaining
type Pool struct {
	initial   []Ticket
	pos       map[Ticket]int
	remaining []Ticket
	idx       map[Ticket]int
	width     int
}

// newPool pads tokens to a common width and fills remaining with all of them
// Caller guarantees tokens are unique
func newPool(tokens []string) *Pool {
	width := 0
	for _, t := range tokens {
		width = max(width, len(t))
	}

	p := &Pool{
		initial: make([]Ticket, len(tokens)),
		pos:     make(map[Ticket]int, len(tokens)),
		width:   width,
	}
	for i, t := range tokens {
		padded := pad(t, width)
		p.initial[i] = padded
		p.pos[padded] = i
	}
	p.Reset()
	return p
}

// Restored rebuilds a pool from persisted initial and remaining sets
// Tokens are re-padded to the widest initial ticket
func Restored(initial, remaining []Ticket) (*Pool, error) {
	if len(initial) == 0 {
		return nil, invalid(ReasonEmptyList, "")
	}
	if len(initial) > constants.MaxTickets {
		return nil, invalid(ReasonOversizedList, "")
	}
	seen := make(map[string]struct{}, len(initial))
	for _, t := range initial {
		if _, dup := seen[t]; dup {
			return nil, fmt.Errorf("initial %q: %w", t, ErrDuplicate)
		}
		seen[t] = struct{}{}
	}

	p := newPool(initial)
	if len(p.pos) != len(initial) {
		return nil, fmt.Errorf("initial tickets collide after padding: %w", ErrDuplicate)
	}

	padded := make([]Ticket, len(remaining))
	for i, t := range remaining {
		padded[i] = p.Pad(t)
	}
	p.remaining = p.remaining[:0]
	clear(p.idx)
	if err := p.Restore(padded); err != nil {
		return nil, err
	}
	return p, nil
}

// Reset makes every initial ticket eligible again
func (p *Pool) Reset() {
	p.remaining = slices.Clone(p.initial)
	p.idx = make(map[Ticket]int, len(p.initial))
	for i, t := range p.remaining {
		p.idx[t] = i
	}
}

// Draw removes n tickets chosen uniformly at random without replacement
// Each step picks a uniform index among the tickets still remaining, so every
// unordered subset of size n is equally likely
func (p *Pool) Draw(rng RandomSource, n int) ([]Ticket, error) {
	if len(p.remaining) == 0 {
		return nil, ErrPoolExhausted
	}
	if n < 1 || n > len(p.remaining) {
		return nil, fmt.Errorf("draw %d of %d: %w", n, len(p.remaining), ErrInsufficient)
	}

	drawn := make([]Ticket, 0, n)
	for range n {
		i := rng.IntN(len(p.remaining))
		drawn = append(drawn, p.remaining[i])
		p.removeAt(i)
	}
	return drawn, nil
}

// removeAt swaps the last remaining ticket into slot i and truncates
func (p *Pool) removeAt(i int) {
	last := len(p.remaining) - 1
	t := p.remaining[i]
	if i != last {
		moved := p.remaining[last]
		p.remaining[i] = moved
		p.idx[moved] = i
	}
	p.remaining = p.remaining[:last]
	delete(p.idx, t)
}

// Restore reinserts previously drawn tickets
// The whole batch is checked before any ticket is inserted
func (p *Pool) Restore(tickets []Ticket) error {
	batch := make(map[Ticket]struct{}, len(tickets))
	for _, t := range tickets {
		if _, ok := p.pos[t]; !ok {
			return fmt.Errorf("restore %q: %w", t, ErrUnknownTicket)
		}
		if _, ok := p.idx[t]; ok {
			return fmt.Errorf("restore %q: %w", t, ErrDuplicate)
		}
		if _, ok := batch[t]; ok {
			return fmt.Errorf("restore %q twice: %w", t, ErrDuplicate)
		}
		batch[t] = struct{}{}
	}

	for _, t := range tickets {
		p.idx[t] = len(p.remaining)
		p.remaining = append(p.remaining, t)
	}
	return nil
}

// Remaining returns eligible tickets in creation order
func (p *Pool) Remaining() []Ticket {
	out := slices.Clone(p.remaining)
	slices.SortFunc(out, func(a, b Ticket) int { return p.pos[a] - p.pos[b] })
	return out
}

// Initial returns the full ticket set in creation order
func (p *Pool) Initial() []Ticket {
	return slices.Clone(p.initial)
}

// Len is the number of tickets still eligible
func (p *Pool) Len() int { return len(p.remaining) }

// Size is the number of tickets the pool was created with
func (p *Pool) Size() int { return len(p.initial) }

// MaxDigits is the fixed width of every ticket in the pool
func (p *Pool) MaxDigits() int { return p.width }

// Contains reports whether t is still eligible
func (p *Pool) Contains(t Ticket) bool {
	_, ok := p.idx[t]
	return ok
}

// Known reports whether t belongs to the pool at all
func (p *Pool) Known(t Ticket) bool {
	_, ok := p.pos[t]
	return ok
}

// Pad widens t to the pool width
func (p *Pool) Pad(t string) Ticket {
	return pad(t, p.width)
}
