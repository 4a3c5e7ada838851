// internal/game/sync_state.go
package game

import (
	"github.com/benassa-de-glassa/uno-backend/engine"
	"github.com/google/uuid"
)

// ObfCard is a card as shown to one client.
type ObfCard struct {
	ID       int    `json:"id"`
	Color    string `json:"color"`
	Rank     int    `json:"rank"`
	Kind     string `json:"kind"`
	Label    string `json:"label"`
	Playable bool   `json:"playable,omitempty"` // only set in the viewer's own hand
}

// ObfPlayerState is one player's public state, plus the hand when the viewer
// is that player.
type ObfPlayerState struct {
	PlayerID         uuid.UUID `json:"playerId"`
	Username         string    `json:"username"`
	HandSize         int       `json:"handSize"`
	DeclaredLastCard bool      `json:"declaredLastCard"`
	PunishmentDraws  int       `json:"punishmentDraws"`
	Finished         bool      `json:"finished"`
	Rank             int       `json:"rank,omitempty"`
	Privileged       bool      `json:"privileged"`
	Connected        bool      `json:"connected"`
	IsCurrentTurn    bool      `json:"isCurrentTurn"`
	RevealedHand     []ObfCard `json:"revealedHand,omitempty"`
}

// ObfGameState is the whole game as one viewer may see it.
type ObfGameState struct {
	GameID          uuid.UUID        `json:"gameId"`
	Phase           string           `json:"phase"`
	Started         bool             `json:"started"`
	GameOver        bool             `json:"gameOver"`
	CurrentPlayerID uuid.UUID        `json:"currentPlayerId"`
	TurnID          int              `json:"turnId"`
	Direction       int              `json:"direction"`
	DrawSize        int              `json:"drawSize"`
	DiscardSize     int              `json:"discardSize"`
	DiscardTop      *ObfCard         `json:"discardTop,omitempty"`
	ChosenColor     string           `json:"chosenColor,omitempty"`
	PenaltyOwed     int              `json:"penaltyOwed"`
	NextPenalty     int              `json:"nextPenalty"`
	ColorChooserID  uuid.UUID        `json:"colorChooserId,omitempty"`
	DrewThisTurn    bool             `json:"drewThisTurn"`
	CanDraw         bool             `json:"canDraw"`
	CanPass         bool             `json:"canPass"`
	FinishOrder     []uuid.UUID      `json:"finishOrder"`
	Players         []ObfPlayerState `json:"players"`
	HouseRules      HouseRules       `json:"houseRules"`
}

// GetCurrentObfuscatedGameState builds the snapshot for forUser. Only the
// viewer's own hand is revealed; uuid.Nil gets the public view.
// The caller holds the game lock.
func (g *Game) GetCurrentObfuscatedGameState(forUser uuid.UUID) ObfGameState {
	e := g.Engine
	obf := ObfGameState{
		GameID:          g.ID,
		Phase:           e.Phase.String(),
		Started:         e.Phase != engine.PhaseLobby,
		GameOver:        e.IsTerminal(),
		CurrentPlayerID: g.currentPlayerID(),
		TurnID:          e.TurnNumber,
		Direction:       int(e.Direction),
		DrawSize:        e.Deck.DrawLen(),
		DiscardSize:     e.Deck.DiscardLen(),
		DiscardTop:      obfCard(e.TopCard()),
		PenaltyOwed:     e.Gate.OwedPenalty(),
		NextPenalty:     e.NextPenalty,
		DrewThisTurn:    e.DrewThisTurn,
		FinishOrder:     make([]uuid.UUID, 0, len(e.FinishOrder)),
		Players:         make([]ObfPlayerState, 0, len(g.Players)),
		HouseRules:      g.HouseRules,
	}
	if e.ChosenColor != engine.ColorNone {
		obf.ChosenColor = e.ChosenColor.String()
	}
	if e.Gate.AwaitingColor() {
		obf.ColorChooserID = g.EngineToPlayer[e.Gate.Chooser]
	}
	for _, eid := range e.FinishOrder {
		obf.FinishOrder = append(obf.FinishOrder, g.EngineToPlayer[eid])
	}

	viewerEngineID, viewerSeated := g.PlayerToEngine[forUser]
	if viewerSeated {
		obf.CanDraw = e.CanDraw(viewerEngineID)
		obf.CanPass = e.CanPass(viewerEngineID)
	}

	for _, p := range g.Players {
		eid := g.PlayerToEngine[p.ID]
		view, err := e.Player(eid)
		if err != nil {
			continue
		}
		ps := ObfPlayerState{
			PlayerID:         p.ID,
			Username:         view.Name,
			HandSize:         view.HandSize,
			DeclaredLastCard: view.DeclaredLastCard,
			PunishmentDraws:  view.PunishmentDraws,
			Finished:         view.Finished,
			Rank:             view.Rank,
			Privileged:       view.Privileged,
			Connected:        p.Connected,
			IsCurrentTurn:    view.Active,
		}
		if viewerSeated && eid == viewerEngineID {
			ps.RevealedHand = g.obfHand(eid)
		}
		obf.Players = append(obf.Players, ps)
	}
	return obf
}

// obfHand returns a player's cards with the ones they could play right now
// marked.
func (g *Game) obfHand(eid engine.PlayerID) []ObfCard {
	hand, err := g.Engine.Hand(eid)
	if err != nil {
		return nil
	}
	playable := make(map[engine.CardID]bool)
	for _, id := range g.Engine.PlayableCards(eid) {
		playable[id] = true
	}
	out := make([]ObfCard, 0, len(hand))
	for _, c := range hand {
		oc := obfCard(c)
		oc.Playable = playable[c.ID]
		out = append(out, *oc)
	}
	return out
}

func obfCard(c engine.Card) *ObfCard {
	ev := engineCardToEvent(c)
	if ev == nil {
		return nil
	}
	return &ObfCard{ID: ev.ID, Color: ev.Color, Rank: ev.Rank, Kind: ev.Kind, Label: ev.Label}
}
