package engine

import (
	"errors"
	"fmt"
)

// ErrorKind names a rejection reason. The string values are part of the wire
// format used by the session layer.
type ErrorKind string

const (
	KindNotPlayersTurn           ErrorKind = "NotPlayersTurn"
	KindNotInterruptEligible     ErrorKind = "NotInterruptEligible"
	KindCardNotHeld              ErrorKind = "CardNotHeld"
	KindPenaltyOwed              ErrorKind = "PenaltyOwed"
	KindPunishmentOwed           ErrorKind = "PunishmentOwed"
	KindWrongColor               ErrorKind = "WrongColor"
	KindCardNotPlayable          ErrorKind = "CardNotPlayable"
	KindMissedDeclaration        ErrorKind = "MissedDeclaration"
	KindNotEntitledToChooseColor ErrorKind = "NotEntitledToChooseColor"
	KindAlreadyDrewThisTurn      ErrorKind = "AlreadyDrewThisTurn"
	KindNameTaken                ErrorKind = "NameTaken"
	KindEmptyName                ErrorKind = "EmptyName"
	KindPlayerNotFound           ErrorKind = "PlayerNotFound"
	KindColorChoicePending       ErrorKind = "ColorChoicePending"
	KindInvalidColor             ErrorKind = "InvalidColor"
	KindCannotDeclare            ErrorKind = "CannotDeclare"
	KindMustDrawBeforePass       ErrorKind = "MustDrawBeforePass"
	KindGameNotStarted           ErrorKind = "GameNotStarted"
	KindGameAlreadyStarted       ErrorKind = "GameAlreadyStarted"
	KindGameOver                 ErrorKind = "GameOver"
	KindNotEnoughPlayers         ErrorKind = "NotEnoughPlayers"
	KindTableFull                ErrorKind = "TableFull"

	// Internal-consistency kinds. These are carried by *InternalError.
	KindInsufficientCards  ErrorKind = "InsufficientCards"
	KindInvariantViolation ErrorKind = "InvariantViolation"
)

// RuleError is a rejected request. It never leaves the game in a partially
// applied state.
type RuleError struct {
	Kind     ErrorKind
	Owed     int   // PenaltyOwed / PunishmentOwed
	Required Color // WrongColor
	Msg      string
}

func (e *RuleError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return string(e.Kind)
}

// Is matches any *RuleError of the same kind, so callers can write
// errors.Is(err, engine.ErrPenaltyOwed).
func (e *RuleError) Is(target error) bool {
	t, ok := target.(*RuleError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is. Returned errors carry details; compare by kind only.
var (
	ErrNotPlayersTurn           = &RuleError{Kind: KindNotPlayersTurn}
	ErrNotInterruptEligible     = &RuleError{Kind: KindNotInterruptEligible}
	ErrCardNotHeld              = &RuleError{Kind: KindCardNotHeld}
	ErrPenaltyOwed              = &RuleError{Kind: KindPenaltyOwed}
	ErrPunishmentOwed           = &RuleError{Kind: KindPunishmentOwed}
	ErrWrongColor               = &RuleError{Kind: KindWrongColor}
	ErrCardNotPlayable          = &RuleError{Kind: KindCardNotPlayable}
	ErrMissedDeclaration        = &RuleError{Kind: KindMissedDeclaration}
	ErrNotEntitledToChooseColor = &RuleError{Kind: KindNotEntitledToChooseColor}
	ErrAlreadyDrewThisTurn      = &RuleError{Kind: KindAlreadyDrewThisTurn}
	ErrNameTaken                = &RuleError{Kind: KindNameTaken}
	ErrEmptyName                = &RuleError{Kind: KindEmptyName}
	ErrPlayerNotFound           = &RuleError{Kind: KindPlayerNotFound}
	ErrColorChoicePending       = &RuleError{Kind: KindColorChoicePending}
	ErrInvalidColor             = &RuleError{Kind: KindInvalidColor}
	ErrCannotDeclare            = &RuleError{Kind: KindCannotDeclare}
	ErrMustDrawBeforePass       = &RuleError{Kind: KindMustDrawBeforePass}
	ErrGameNotStarted           = &RuleError{Kind: KindGameNotStarted}
	ErrGameAlreadyStarted       = &RuleError{Kind: KindGameAlreadyStarted}
	ErrGameOver                 = &RuleError{Kind: KindGameOver}
	ErrNotEnoughPlayers         = &RuleError{Kind: KindNotEnoughPlayers}
	ErrTableFull                = &RuleError{Kind: KindTableFull}
)

func reject(kind ErrorKind, format string, args ...interface{}) *RuleError {
	return &RuleError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// InternalError reports a broken engine invariant. It is not a user error and
// callers should surface it separately (log at error level, alert).
type InternalError struct {
	Kind ErrorKind
	Err  error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal consistency: %s: %v", e.Kind, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

// ErrInsufficientCards is wrapped by an *InternalError when a deal asks for
// more cards than exist outside the hands and the discard top.
var ErrInsufficientCards = errors.New("not enough cards left in the deck")

// IsInternal reports whether err is an internal-consistency failure.
func IsInternal(err error) bool {
	var ie *InternalError
	return errors.As(err, &ie)
}

// KindOf returns the kind carried by err, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Kind
	}
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}
