package engine

// HouseRules holds configurable game rule settings.
type HouseRules struct {
	InitialHandSize        uint8 // cards dealt per player by the session on start
	MissedDeclarationDraws uint8 // punishment for playing the last card undeclared
	CaughtUndeclaredDraws  uint8 // extra draws owed after drawing with one undeclared card
	MinPlayers             uint8 // players required to start; 0 treated as 2
}

// DefaultHouseRules returns the standard rules.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		InitialHandSize:        7,
		MissedDeclarationDraws: 2,
		CaughtUndeclaredDraws:  1,
		MinPlayers:             2,
	}
}

// minPlayers returns the effective start threshold, treating 0 as 2.
func (r *HouseRules) minPlayers() int {
	if r.MinPlayers < 2 {
		return 2
	}
	return int(r.MinPlayers)
}

// maxPlayers is the largest table the deck can deal in: every hand plus the
// starting card.
func (r *HouseRules) maxPlayers() int {
	hand := int(r.InitialHandSize)
	if hand == 0 {
		hand = int(DefaultHouseRules().InitialHandSize)
	}
	return (DeckSize - 1) / hand
}
