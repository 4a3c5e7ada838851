package engine

// Points returns the scoring value of c: face value for number cards, 20 for
// the colored action cards and 50 for black cards.
func (c Card) Points() int {
	switch {
	case !c.Valid():
		return 0
	case c.IsBlack():
		return 50
	case c.Rank >= RankReverse:
		return 20
	}
	return int(c.Rank)
}

// HandPoints returns the sum of card values left in id's hand.
func (g *GameState) HandPoints(id PlayerID) int {
	p, ok := g.Players[id]
	if !ok {
		return 0
	}
	total := 0
	for _, cid := range p.Hand {
		c, _ := g.Deck.CardByID(cid)
		total += c.Points()
	}
	return total
}

// Scores returns the points held by every player, keyed by id. Lower is
// better; finished players score 0.
func (g *GameState) Scores() map[PlayerID]int {
	out := make(map[PlayerID]int, len(g.Players))
	for id := range g.Players {
		out[id] = g.HandPoints(id)
	}
	return out
}
