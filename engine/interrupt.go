package engine

import "fmt"

// validateInterrupt checks an out-of-turn play. Only an exact match of the top
// card is eligible. While a color choice is open the only eligible interrupt is
// a WildDrawFour stacking onto a pending draw-four.
func (g *GameState) validateInterrupt(p *PlayerState, card, top Card) (move, error) {
	mv := move{interrupt: true}
	if !card.MatchesExactly(top) || g.seatOf(p.ID) < 0 {
		return mv, reject(KindNotInterruptEligible, "%s does not match %s", card, top)
	}
	if g.Gate.AwaitingColor() {
		if !card.IsWildDrawFour() || g.NextPenalty == 0 {
			return mv, reject(KindColorChoicePending, "wait for the color choice")
		}
		mv.escalate = true
		return mv, nil
	}
	if g.Gate.OwedPenalty() > 0 {
		if !card.CanEscalatePenalty(top) {
			return mv, &InternalError{
				Kind: KindInvariantViolation,
				Err:  fmt.Errorf("interrupt with %s while %d draws are owed", card, g.Gate.OwedPenalty()),
			}
		}
		mv.escalate = true
	}
	return mv, nil
}
