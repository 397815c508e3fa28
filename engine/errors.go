package engine

import (
	"errors"

	"github.com/lixenwraith/luckydraw/charge"
	"github.com/lixenwraith/luckydraw/event"
	"github.com/lixenwraith/luckydraw/history"
	"github.com/lixenwraith/luckydraw/snapshot"
	"github.com/lixenwraith/luckydraw/ticket"
)

var (
	// ErrBusy rejects commands while a reveal, or for some commands a charge, is running
	ErrBusy = errors.New("a draw is in progress")

	// ErrPrizesExhausted rejects draws once every configured prize is awarded
	ErrPrizesExhausted = errors.New("all prizes have been awarded")
)

// KindOf classifies an engine error for events and transport status codes
func KindOf(err error) event.ErrorKind {
	var (
		snapErr   *snapshot.Error
		validErr  *ticket.ValidationError
		configErr *ConfigError
		invErr    *history.InvariantError
	)
	switch {
	case errors.As(err, &snapErr):
		return event.KindSnapshot
	case errors.As(err, &validErr), errors.As(err, &configErr):
		return event.KindValidation
	case errors.Is(err, ErrBusy), errors.Is(err, charge.ErrAlreadyCharging):
		return event.KindBusy
	case errors.Is(err, ticket.ErrPoolExhausted):
		return event.KindPoolExhausted
	case errors.Is(err, ErrPrizesExhausted):
		return event.KindPrizesExhausted
	case errors.Is(err, history.ErrEmptyHistory):
		return event.KindEmptyHistory
	case errors.As(err, &invErr):
		return event.KindInvariant
	}
	return event.KindInvariant
}
