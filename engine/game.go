// Package engine implements the rules of a jump-in Uno variant.
//
// GameState is the single source of truth for the deck, the hands, turn order
// and move legality. It is a plain state machine: every exported method
// validates a request and either applies it completely or rejects it without
// touching state. It is not safe for concurrent use; the session layer
// serializes access.
package engine

import "strings"

// GameState holds the complete state of one game.
type GameState struct {
	Phase        Phase
	Deck         *Deck
	Players      map[PlayerID]*PlayerState
	Joined       []PlayerID // every current player, in join order
	Roster       []PlayerID // seating; finished players leave it as the turn moves on
	ActiveIdx    int
	Direction    Direction
	Gate         Gate
	NextPenalty  int   // draws accumulating for whoever becomes active next
	ChosenColor  Color // effective color of a black top card
	DrewThisTurn bool  // the one free draw of this turn is used
	FinishOrder  []PlayerID
	TurnNumber   int
	Rules        HouseRules

	seed   uint64
	nextID PlayerID
}

// Result describes the side effects of an accepted (or, for a missed
// declaration, rejected) request.
type Result struct {
	Actor PlayerID
	Card  Card

	Interrupt     bool
	InterruptBy   string
	PenaltyRaised bool // the play escalated an owed penalty
	NextPenalty   int  // draws now pending for the next player
	Skipped       bool
	Reversed      bool
	ColorChoice   bool // the actor must now choose a color
	ChosenColor   Color

	MissedDeclaration bool
	MissedBy          string

	Finished bool
	Rank     int

	Drawn      CardID
	DrawReason DrawReason
	StillOwed  int

	GameOver bool
}

// PlayerView is a read-only copy of a player's public state.
type PlayerView struct {
	ID               PlayerID
	Name             string
	HandSize         int
	DeclaredLastCard bool
	PunishmentDraws  int
	Finished         bool
	Rank             int
	Privileged       bool
	Active           bool
}

// NewGame returns a game in the lobby with a full shuffled draw pile.
func NewGame(seed uint64, rules HouseRules) *GameState {
	return &GameState{
		Phase:     PhaseLobby,
		Deck:      NewDeck(seed),
		Players:   make(map[PlayerID]*PlayerState),
		Direction: Clockwise,
		Rules:     rules,
		seed:      seed,
		nextID:    1,
	}
}

// Reset discards everything, players included, and starts a fresh lobby with
// the same seed and rules.
func (g *GameState) Reset() {
	*g = *NewGame(g.seed, g.Rules)
}

// ---------------------------------------------------------------------------
// Roster
// ---------------------------------------------------------------------------

// AddPlayer seats a new player at the end of the roster. The first player to
// join an empty game is privileged. A seat is only given when the deck can
// still deal the player an initial hand.
func (g *GameState) AddPlayer(name string) (PlayerID, error) {
	if g.Phase == PhaseFinished {
		return NoPlayer, reject(KindGameOver, "game is over")
	}
	if limit := g.Rules.maxPlayers(); len(g.Joined) >= limit {
		return NoPlayer, reject(KindTableFull, "the table is full (%d players)", limit)
	}
	if g.Phase == PhasePlaying && g.Deck.Available() < int(g.Rules.InitialHandSize) {
		return NoPlayer, reject(KindTableFull, "not enough cards left to deal in another player")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return NoPlayer, reject(KindEmptyName, "choose a non-empty name")
	}
	for _, p := range g.Players {
		if p.Name == name {
			return NoPlayer, reject(KindNameTaken, "name %q is already taken", name)
		}
	}

	id := g.nextID
	g.nextID++
	p := newPlayerState(id, name)
	p.Privileged = len(g.Players) == 0
	g.Players[id] = p
	g.Joined = append(g.Joined, id)
	g.Roster = append(g.Roster, id)
	return id, nil
}

// RemovePlayer takes a player out of the game. If they are active the turn
// moves on first, dropping any penalty they were passing on and resolving an
// open color choice to red. Their hand goes beneath the discard top.
func (g *GameState) RemovePlayer(id PlayerID) error {
	p, ok := g.Players[id]
	if !ok {
		return reject(KindPlayerNotFound, "player %d not found", id)
	}

	if g.Phase == PhasePlaying && g.ActivePlayer() == id {
		g.NextPenalty = 0
		if g.Gate.AwaitingColor() {
			g.ChosenColor = ColorRed
		}
		g.Gate = Gate{}
		g.advanceTurn()
	}

	if g.Deck.DiscardLen() > 0 {
		g.Deck.Fold(p.Hand)
	} else {
		g.Deck.Draw = append(g.Deck.Draw, p.Hand...)
		g.Deck.shuffle(g.Deck.Draw)
	}
	p.Hand = nil

	if seat := g.seatOf(id); seat >= 0 {
		g.Roster = append(g.Roster[:seat], g.Roster[seat+1:]...)
		if seat < g.ActiveIdx {
			g.ActiveIdx--
		}
		if len(g.Roster) == 0 || g.ActiveIdx >= len(g.Roster) {
			g.ActiveIdx = 0
		}
	}
	g.Joined = removeID(g.Joined, id)
	delete(g.Players, id)

	if p.Privileged && len(g.Joined) > 0 {
		g.Players[g.Joined[0]].Privileged = true
	}
	if g.Phase == PhasePlaying {
		var res Result
		g.checkGameEnd(&res)
	}
	return nil
}

// Start places the starting card and opens play. The first seat begins.
func (g *GameState) Start() error {
	switch g.Phase {
	case PhasePlaying:
		return reject(KindGameAlreadyStarted, "game already started")
	case PhaseFinished:
		return reject(KindGameOver, "game is over")
	}
	if len(g.Roster) < g.Rules.minPlayers() {
		return reject(KindNotEnoughPlayers, "need at least %d players, have %d", g.Rules.minPlayers(), len(g.Roster))
	}
	if _, err := g.Deck.PlaceStartingCard(); err != nil {
		return err
	}
	g.Phase = PhasePlaying
	g.ActiveIdx = 0
	g.Gate = Gate{}
	g.DrewThisTurn = false
	return nil
}

// DealInitialHand deals n cards to a player. Allowed in the lobby and during
// play (late joiners).
func (g *GameState) DealInitialHand(id PlayerID, n int) ([]CardID, error) {
	if g.Phase == PhaseFinished {
		return nil, reject(KindGameOver, "game is over")
	}
	p, err := g.player(id)
	if err != nil {
		return nil, err
	}
	ids, err := g.Deck.DealTopN(n)
	if err != nil {
		return nil, err
	}
	p.AddCards(ids)
	p.DeclaredLastCard = false
	return ids, nil
}

// ---------------------------------------------------------------------------
// Query methods
// ---------------------------------------------------------------------------

// TopCard returns the discard top, or NoCard before the game starts.
func (g *GameState) TopCard() Card { return g.Deck.TopCard() }

// ActivePlayer returns the player whose turn it is, or NoPlayer.
func (g *GameState) ActivePlayer() PlayerID {
	if len(g.Roster) == 0 {
		return NoPlayer
	}
	return g.Roster[g.ActiveIdx]
}

// IsTerminal returns true when the game is over.
func (g *GameState) IsTerminal() bool { return g.Phase == PhaseFinished }

// Hand returns a copy of a player's cards.
func (g *GameState) Hand(id PlayerID) ([]Card, error) {
	p, err := g.player(id)
	if err != nil {
		return nil, err
	}
	out := make([]Card, 0, len(p.Hand))
	for _, cid := range p.Hand {
		c, _ := g.Deck.CardByID(cid)
		out = append(out, c)
	}
	return out, nil
}

// Player returns a view of one player.
func (g *GameState) Player(id PlayerID) (PlayerView, error) {
	p, err := g.player(id)
	if err != nil {
		return PlayerView{}, err
	}
	return g.view(p), nil
}

// AllPlayers returns views of all players in join order.
func (g *GameState) AllPlayers() []PlayerView {
	out := make([]PlayerView, 0, len(g.Joined))
	for _, id := range g.Joined {
		out = append(out, g.view(g.Players[id]))
	}
	return out
}

// PlayerByName looks a player up by name.
func (g *GameState) PlayerByName(name string) (PlayerID, bool) {
	for _, id := range g.Joined {
		if g.Players[id].Name == name {
			return id, true
		}
	}
	return NoPlayer, false
}

// CardCount returns draw pile + discard pile + every hand. It is DeckSize in
// every reachable state.
func (g *GameState) CardCount() int {
	n := g.Deck.DrawLen() + g.Deck.DiscardLen()
	for _, p := range g.Players {
		n += len(p.Hand)
	}
	return n
}

// Clone returns a deep copy, for snapshots and what-if checks.
func (g *GameState) Clone() *GameState {
	c := *g
	c.Deck = g.Deck.clone()
	c.Players = make(map[PlayerID]*PlayerState, len(g.Players))
	for id, p := range g.Players {
		c.Players[id] = p.clone()
	}
	c.Joined = append([]PlayerID(nil), g.Joined...)
	c.Roster = append([]PlayerID(nil), g.Roster...)
	c.FinishOrder = append([]PlayerID(nil), g.FinishOrder...)
	return &c
}

func (g *GameState) view(p *PlayerState) PlayerView {
	return PlayerView{
		ID:               p.ID,
		Name:             p.Name,
		HandSize:         len(p.Hand),
		DeclaredLastCard: p.DeclaredLastCard,
		PunishmentDraws:  p.PunishmentDraws,
		Finished:         p.Finished,
		Rank:             p.Rank,
		Privileged:       p.Privileged,
		Active:           g.Phase == PhasePlaying && g.ActivePlayer() == p.ID,
	}
}

func (g *GameState) player(id PlayerID) (*PlayerState, error) {
	p, ok := g.Players[id]
	if !ok {
		return nil, reject(KindPlayerNotFound, "player %d not found", id)
	}
	return p, nil
}

// seatOf returns the roster index of id, or -1.
func (g *GameState) seatOf(id PlayerID) int {
	for i, pid := range g.Roster {
		if pid == id {
			return i
		}
	}
	return -1
}

func removeID(ids []PlayerID, id PlayerID) []PlayerID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
