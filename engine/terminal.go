package engine

// finish marks p as out of cards and gives them the next rank.
func (g *GameState) finish(p *PlayerState, res *Result) {
	if p.Finished {
		return
	}
	p.Finished = true
	g.FinishOrder = append(g.FinishOrder, p.ID)
	p.Rank = len(g.FinishOrder)
	p.DeclaredLastCard = false
	p.PunishmentDraws = 0
	res.Finished = true
	res.Rank = p.Rank
}

// checkGameEnd ends the game once at most one player still holds cards. That
// player takes the last rank but is not added to the finish order.
func (g *GameState) checkGameEnd(res *Result) bool {
	if g.Phase != PhasePlaying {
		return g.Phase == PhaseFinished
	}
	var remaining []*PlayerState
	for _, id := range g.Joined {
		if p := g.Players[id]; !p.Finished {
			remaining = append(remaining, p)
		}
	}
	if len(remaining) > 1 {
		return false
	}
	g.Phase = PhaseFinished
	g.Gate = Gate{}
	g.NextPenalty = 0
	if len(remaining) == 1 {
		remaining[0].Rank = len(g.FinishOrder) + 1
	}
	res.GameOver = true
	return true
}

// Standings returns player ids ordered by rank. Unranked players come last in
// join order.
func (g *GameState) Standings() []PlayerID {
	out := append([]PlayerID(nil), g.FinishOrder...)
	var last, unranked []PlayerID
	for _, id := range g.Joined {
		p := g.Players[id]
		switch {
		case p.Finished:
		case p.Rank > 0:
			last = append(last, id)
		default:
			unranked = append(unranked, id)
		}
	}
	out = append(out, last...)
	return append(out, unranked...)
}
