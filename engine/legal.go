package engine

// PlayableCards returns the cards in id's hand that would pass validation
// right now, for the player's turn or as an interrupt. It ignores the
// last-card declaration, which only changes what happens when the card is
// played. The state is not modified.
func (g *GameState) PlayableCards(id PlayerID) []CardID {
	if g.Phase != PhasePlaying {
		return nil
	}
	p, ok := g.Players[id]
	if !ok || p.Finished {
		return nil
	}
	top := g.Deck.TopCard()
	declared := p.DeclaredLastCard
	p.DeclaredLastCard = true
	defer func() { p.DeclaredLastCard = declared }()

	var out []CardID
	for _, cid := range p.Hand {
		card, _ := g.Deck.CardByID(cid)
		if _, err := g.validateMove(p, card, top); err == nil {
			out = append(out, cid)
		}
	}
	return out
}

// CanDraw reports whether id may draw a card now.
func (g *GameState) CanDraw(id PlayerID) bool {
	if g.Phase != PhasePlaying || g.ActivePlayer() != id || g.Gate.AwaitingColor() {
		return false
	}
	p, ok := g.Players[id]
	if !ok {
		return false
	}
	return g.Gate.OwedPenalty() > 0 || p.PunishmentDraws > 0 ||
		(len(p.Hand) == 1 && !p.DeclaredLastCard) || !g.DrewThisTurn
}

// CanPass reports whether id may end their turn now.
func (g *GameState) CanPass(id PlayerID) bool {
	if g.Phase != PhasePlaying || g.ActivePlayer() != id || g.Gate.AwaitingColor() {
		return false
	}
	p, ok := g.Players[id]
	return ok && g.Gate.OwedPenalty() == 0 && p.PunishmentDraws == 0 && g.DrewThisTurn
}
