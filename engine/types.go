package engine

import (
	"fmt"
	"strings"
)

// Color of a card. ColorNone doubles as "no color chosen yet".
type Color uint8

const (
	ColorNone Color = iota
	ColorRed
	ColorGreen
	ColorBlue
	ColorYellow
	ColorBlack
)

// PlayableColors are the colors a player may name after a wild card.
var PlayableColors = [4]Color{ColorRed, ColorGreen, ColorBlue, ColorYellow}

func (c Color) String() string {
	switch c {
	case ColorRed:
		return "red"
	case ColorGreen:
		return "green"
	case ColorBlue:
		return "blue"
	case ColorYellow:
		return "yellow"
	case ColorBlack:
		return "black"
	default:
		return "none"
	}
}

// Choosable reports whether c may be named in a color choice.
func (c Color) Choosable() bool {
	return c >= ColorRed && c <= ColorYellow
}

// ParseColor converts a color name ("red", "Green", ...) to a Color.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red":
		return ColorRed, nil
	case "green":
		return ColorGreen, nil
	case "blue":
		return ColorBlue, nil
	case "yellow":
		return ColorYellow, nil
	case "black":
		return ColorBlack, nil
	}
	return ColorNone, fmt.Errorf("unknown color %q", s)
}

// Rank of a card. Colored and black cards share the numeric space, so a rank
// is only meaningful together with its color.
type Rank uint8

// Colored ranks. 0-9 are face values.
const (
	RankReverse Rank = 10
	RankSkip    Rank = 11
	RankDrawTwo Rank = 12
)

// Black ranks.
const (
	RankWild         Rank = 0
	RankWildDrawFour Rank = 1
)

// CardID identifies one physical card for the lifetime of a deck.
type CardID uint8

// NoCardID is the sentinel returned before any card has been played.
const NoCardID CardID = 0xFF

// Card is an immutable card value. Identity is by ID.
type Card struct {
	ID    CardID
	Color Color
	Rank  Rank
}

// NoCard is the "no card yet" top card.
var NoCard = Card{ID: NoCardID, Color: ColorNone}

// Valid reports whether c is a real card rather than NoCard.
func (c Card) Valid() bool { return c.ID != NoCardID }

// IsBlack reports whether c is a Wild or WildDrawFour.
func (c Card) IsBlack() bool { return c.Color == ColorBlack }

// IsDrawTwo reports whether c is a colored DrawTwo.
func (c Card) IsDrawTwo() bool { return !c.IsBlack() && c.Rank == RankDrawTwo }

// IsWildDrawFour reports whether c is a black WildDrawFour.
func (c Card) IsWildDrawFour() bool { return c.IsBlack() && c.Rank == RankWildDrawFour }

// IsPlayableOn reports whether c may be played on top in normal turn order.
// chosen is the effective color of a black top card.
func (c Card) IsPlayableOn(top Card, chosen Color) bool {
	if c.IsBlack() {
		return true
	}
	topColor := top.Color
	if top.IsBlack() {
		topColor = chosen
	}
	if c.Color == topColor {
		return true
	}
	return !top.IsBlack() && c.Rank == top.Rank
}

// MatchesExactly reports whether c has the same color and rank as top. This is
// the only way a non-active player may act.
func (c Card) MatchesExactly(top Card) bool {
	return top.Valid() && c.Color == top.Color && c.Rank == top.Rank
}

// CanEscalatePenalty reports whether c continues the draw chain started by top.
// DrawTwo never answers a WildDrawFour and vice versa.
func (c Card) CanEscalatePenalty(top Card) bool {
	return (c.IsDrawTwo() && top.IsDrawTwo()) || (c.IsWildDrawFour() && top.IsWildDrawFour())
}

func (c Card) String() string {
	if !c.Valid() {
		return "no card"
	}
	if c.IsBlack() {
		if c.Rank == RankWildDrawFour {
			return "black +4"
		}
		return "black wild"
	}
	switch c.Rank {
	case RankReverse:
		return c.Color.String() + " reverse"
	case RankSkip:
		return c.Color.String() + " skip"
	case RankDrawTwo:
		return c.Color.String() + " +2"
	}
	return fmt.Sprintf("%s %d", c.Color, c.Rank)
}

// Phase is the lifecycle stage of a game.
type Phase uint8

const (
	PhaseLobby Phase = iota
	PhasePlaying
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhasePlaying:
		return "playing"
	case PhaseFinished:
		return "finished"
	}
	return "unknown"
}

// GateKind describes what the active player must resolve before a normal play.
type GateKind uint8

const (
	GateOpen        GateKind = iota // nothing pending
	GatePenalty                     // Owed draws from a DrawTwo/WildDrawFour chain
	GateColorChoice                 // Chooser must name a color
)

// Gate is the single pending obligation on the turn. Holding it in one value
// keeps an owed penalty and an open color choice from coexisting.
type Gate struct {
	Kind    GateKind
	Owed    int      // GatePenalty only
	Chooser PlayerID // GateColorChoice only
}

// OwedPenalty returns the draws owed by the active player, or 0.
func (g Gate) OwedPenalty() int {
	if g.Kind == GatePenalty {
		return g.Owed
	}
	return 0
}

// AwaitingColor reports whether a color choice is pending.
func (g Gate) AwaitingColor() bool { return g.Kind == GateColorChoice }

// Direction of play around the roster.
type Direction int8

const (
	Clockwise        Direction = 1
	CounterClockwise Direction = -1
)

// DrawReason explains why a draw was granted.
type DrawReason uint8

const (
	DrawFree            DrawReason = iota // the one voluntary draw per turn
	DrawPenalty                           // paying a DrawTwo/WildDrawFour chain
	DrawPunishment                        // paying a missed declaration
	DrawCaughtUndeclared                  // drawing while holding one undeclared card
)

func (r DrawReason) String() string {
	switch r {
	case DrawPenalty:
		return "penalty"
	case DrawPunishment:
		return "punishment"
	case DrawCaughtUndeclared:
		return "caught_undeclared"
	}
	return "free"
}
