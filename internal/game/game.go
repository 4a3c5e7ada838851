// internal/game/game.go
package game

import (
	"context"
	"sync"
	"time"

	"github.com/benassa-de-glassa/uno-backend/engine"
	"github.com/benassa-de-glassa/uno-backend/internal/cache"
	"github.com/benassa-de-glassa/uno-backend/internal/database"
	"github.com/benassa-de-glassa/uno-backend/internal/models"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// OnGameEndFunc is called once when a game reaches the finished phase.
type OnGameEndFunc func(gameID uuid.UUID, standings []database.Standing)

// GameEventType names a GameEvent sent over the websocket.
type GameEventType string

const (
	EventPlayerJoined      GameEventType = "player_joined"
	EventPlayerLeft        GameEventType = "player_left"
	EventGameStart         GameEventType = "game_start"
	EventPrivateDeal       GameEventType = "private_deal"          // Private: cards dealt to the receiver.
	EventPlayerPlay        GameEventType = "player_play"           // Public: a card was played in turn.
	EventPlayerInterrupt   GameEventType = "player_interrupt"      // Public: a card was played out of turn.
	EventPenaltyRaised     GameEventType = "penalty_raised"        // Public: a draw chain grew.
	EventPlayerColorChoice GameEventType = "player_color_choice"   // Public: the player must name a color.
	EventPlayerColorChosen GameEventType = "player_color_chosen"   // Public: a color was named.
	EventPlayerDraw        GameEventType = "player_draw"           // Public: a card was drawn (no details).
	EventPrivateDraw       GameEventType = "private_draw"          // Private: the drawn card.
	EventPlayerPass        GameEventType = "player_pass"           //
	EventPlayerDeclare     GameEventType = "player_declare"        // Public: last card declared.
	EventMissedDeclaration GameEventType = "missed_uno"            // Public: caught without declaring.
	EventPlayerFinished    GameEventType = "player_finished"       // Public: hand emptied, includes rank.
	EventTurnTimeout       GameEventType = "turn_timeout"          // Public: the idle timer acted for the player.
	EventGamePlayerTurn    GameEventType = "game_player_turn"      // Public: whose turn it is now.
	EventPrivateSyncState  GameEventType = "private_sync_state"    // Private: full snapshot for the receiver.
	EventGameEnd           GameEventType = "game_end"              // Public: standings.
	EventGameReset         GameEventType = "game_reset"            // Public: everyone has been removed.
)

// EventUser identifies a player within a GameEvent.
type EventUser struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name,omitempty"`
}

// EventCard describes a card within a GameEvent.
type EventCard struct {
	ID    int    `json:"id"`
	Color string `json:"color"`
	Rank  int    `json:"rank"`
	Kind  string `json:"kind"`
	Label string `json:"label"`
}

// GameEvent is the envelope for everything pushed to clients.
type GameEvent struct {
	Type    GameEventType          `json:"type"`
	User    *EventUser             `json:"user,omitempty"`
	Card    *EventCard             `json:"card,omitempty"`
	Cards   []EventCard            `json:"cards,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	State   *ObfGameState          `json:"state,omitempty"`
}

// HouseRules are the session-level settings handed to the engine.
type HouseRules struct {
	InitialHandSize        int `json:"initialHandSize"`
	MissedDeclarationDraws int `json:"missedDeclarationDraws"`
	TurnTimerSec           int `json:"turnTimerSec"` // 0 disables the idle timer
}

// DefaultHouseRules returns the standard rules with the idle timer off.
func DefaultHouseRules() HouseRules {
	r := engine.DefaultHouseRules()
	return HouseRules{
		InitialHandSize:        int(r.InitialHandSize),
		MissedDeclarationDraws: int(r.MissedDeclarationDraws),
	}
}

// Game is one shared game session. Every exported method takes Mu for the
// whole validate-apply-broadcast cycle, so requests are applied one at a time
// in the order they acquire the lock.
type Game struct {
	ID         uuid.UUID
	HouseRules HouseRules

	Engine         *engine.GameState
	Players        []*models.Player // join order
	PlayerToEngine map[uuid.UUID]engine.PlayerID
	EngineToPlayer map[engine.PlayerID]uuid.UUID
	dealt          map[uuid.UUID]bool

	TurnID       int           // engine turn number the timer and clients key on
	TurnDuration time.Duration // 0 disables the idle timer
	turnTimer    *time.Timer
	actionIndex  int
	ended        bool

	seed uint64
	Mu   sync.Mutex

	BroadcastFn         func(ev GameEvent)
	BroadcastToPlayerFn func(playerID uuid.UUID, ev GameEvent)
	OnGameEnd           OnGameEndFunc
}

// NewGame creates a session in the lobby. A zero seed is replaced by the
// clock.
func NewGame(rules HouseRules, seed uint64) *Game {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	if rules.InitialHandSize <= 0 {
		rules.InitialHandSize = int(engine.DefaultHouseRules().InitialHandSize)
	}
	g := &Game{
		ID:             uuid.New(),
		HouseRules:     rules,
		PlayerToEngine: make(map[uuid.UUID]engine.PlayerID),
		EngineToPlayer: make(map[engine.PlayerID]uuid.UUID),
		dealt:          make(map[uuid.UUID]bool),
		seed:           seed,
	}
	if rules.TurnTimerSec > 0 {
		g.TurnDuration = time.Duration(rules.TurnTimerSec) * time.Second
	}
	g.Engine = engine.NewGame(seed, g.mapHouseRulesToEngine())
	return g
}

func (g *Game) log() *logrus.Entry {
	return logrus.WithField("game", g.ID)
}

// ---------------------------------------------------------------------------
// Roster
// ---------------------------------------------------------------------------

// Join seats a new player. A player joining a running game is dealt in
// straight away.
func (g *Game) Join(name string) (*models.Player, Outcome) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.joinLocked(name)
}

// JoinSession is Join that also returns the session id the player was seated
// in, read under the same lock so a concurrent Reset cannot slip between.
func (g *Game) JoinSession(name string) (*models.Player, uuid.UUID, Outcome) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	p, out := g.joinLocked(name)
	return p, g.ID, out
}

func (g *Game) joinLocked(name string) (*models.Player, Outcome) {
	eid, err := g.Engine.AddPlayer(name)
	if err != nil {
		g.log().WithError(err).Debug("join rejected")
		return nil, outcomeFromError(err)
	}
	view, _ := g.Engine.Player(eid)
	p := &models.Player{ID: uuid.New(), Name: view.Name, JoinedAt: time.Now()}
	g.Players = append(g.Players, p)
	g.PlayerToEngine[p.ID] = eid
	g.EngineToPlayer[eid] = p.ID

	if g.Engine.Phase == engine.PhasePlaying {
		if out := g.dealLocked(p.ID); !out.OK {
			// unseat again; a late joiner without a hand cannot play
			if err := g.Engine.RemovePlayer(eid); err != nil {
				g.log().WithError(err).Error("rolling back join")
			}
			g.removePlayer(p.ID)
			return nil, out
		}
	}

	g.log().WithFields(logrus.Fields{"player": p.ID, "name": p.Name, "privileged": view.Privileged}).Info("player joined")
	g.logAction(p.ID, string(EventPlayerJoined), map[string]interface{}{"name": p.Name})
	g.fireEvent(GameEvent{Type: EventPlayerJoined, User: g.eventUser(p.ID)})
	g.broadcastSyncStateToAll()
	return p, ok(nil)
}

// Leave removes target from the game. Players may remove themselves; the
// privileged player may remove anyone.
func (g *Game) Leave(actor, target uuid.UUID) Outcome {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if actor != target {
		if out := g.requirePrivileged(actor); !out.OK {
			return out
		}
	}
	eid, found := g.PlayerToEngine[target]
	if !found {
		return rejected(engine.KindPlayerNotFound, "player not found")
	}
	user := g.eventUser(target)
	wasPlaying := g.Engine.Phase == engine.PhasePlaying
	if err := g.Engine.RemovePlayer(eid); err != nil {
		return g.reportError(target, "leave", err)
	}

	if p := g.getPlayerByID(target); p != nil && p.Conn != nil {
		go p.Conn.Close(websocket.StatusNormalClosure, "removed from game")
	}
	g.removePlayer(target)

	g.log().WithFields(logrus.Fields{"player": target, "by": actor}).Info("player left")
	g.logAction(actor, string(EventPlayerLeft), map[string]interface{}{"player": target.String()})
	g.fireEvent(GameEvent{Type: EventPlayerLeft, User: user})

	if wasPlaying && g.Engine.IsTerminal() {
		g.endGame()
	} else {
		g.onTurnMaybeAdvanced()
	}
	g.broadcastSyncStateToAll()
	return ok(nil)
}

// Start opens play and deals every player who has not been dealt yet. Only
// the privileged player may start.
func (g *Game) Start(actor uuid.UUID) Outcome {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if out := g.requirePrivileged(actor); !out.OK {
		return out
	}
	if g.Engine.Phase == engine.PhaseLobby {
		undealt := 0
		for _, p := range g.Players {
			if !g.dealt[p.ID] {
				undealt++
			}
		}
		// every hand plus the starting card
		if need := undealt*g.HouseRules.InitialHandSize + 1; need > g.Engine.Deck.Available() {
			g.log().WithFields(logrus.Fields{"need": need, "available": g.Engine.Deck.Available()}).Debug("start rejected")
			return rejected(engine.KindTableFull, "not enough cards to deal every player in")
		}
	}
	if err := g.Engine.Start(); err != nil {
		return g.reportError(actor, "start", err)
	}
	for _, p := range g.Players {
		if !g.dealt[p.ID] {
			if out := g.dealLocked(p.ID); !out.OK {
				return out
			}
		}
	}

	top := g.Engine.TopCard()
	g.log().WithFields(logrus.Fields{"top": top.String(), "players": len(g.Players)}).Info("game started")
	g.logAction(actor, string(EventGameStart), map[string]interface{}{"top": top.String()})
	g.fireEvent(GameEvent{Type: EventGameStart, Card: engineCardToEvent(top)})

	g.TurnID = g.Engine.TurnNumber
	g.scheduleNextTurnTimer()
	g.broadcastPlayerTurn()
	g.broadcastSyncStateToAll()
	return ok(nil)
}

// Deal gives the actor their initial hand. Each player is dealt once.
func (g *Game) Deal(actor uuid.UUID) Outcome {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if _, found := g.PlayerToEngine[actor]; !found {
		return rejected(engine.KindPlayerNotFound, "player not found")
	}
	out := g.dealLocked(actor)
	if out.OK {
		g.broadcastSyncStateToAll()
	}
	return out
}

func (g *Game) dealLocked(playerID uuid.UUID) Outcome {
	if g.dealt[playerID] {
		return rejected(KindAlreadyDealt, "cards already dealt")
	}
	ids, err := g.Engine.DealInitialHand(g.PlayerToEngine[playerID], g.HouseRules.InitialHandSize)
	if err != nil {
		return g.reportError(playerID, "deal", err)
	}
	g.dealt[playerID] = true

	cards := make([]EventCard, 0, len(ids))
	for _, id := range ids {
		c, _ := g.Engine.Deck.CardByID(id)
		cards = append(cards, *engineCardToEvent(c))
	}
	g.log().WithFields(logrus.Fields{"player": playerID, "n": len(ids)}).Info("dealt initial hand")
	g.logAction(playerID, "deal", map[string]interface{}{"n": len(ids)})
	g.fireEventToPlayer(playerID, GameEvent{Type: EventPrivateDeal, Cards: cards})
	return ok(nil)
}

// Reset throws everyone out and starts a fresh lobby with the same seed and
// rules under a new session id.
func (g *Game) Reset(actor uuid.UUID) Outcome {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if out := g.requirePrivileged(actor); !out.OK {
		return out
	}
	g.stopTurnTimer()
	g.logAction(actor, string(EventGameReset), nil)
	g.fireEvent(GameEvent{Type: EventGameReset, User: g.eventUser(actor)})
	for _, p := range g.Players {
		if p.Conn != nil {
			go p.Conn.Close(websocket.StatusNormalClosure, "game reset")
		}
	}

	old := g.ID
	g.Engine.Reset()
	g.ID = uuid.New()
	g.Players = nil
	g.PlayerToEngine = make(map[uuid.UUID]engine.PlayerID)
	g.EngineToPlayer = make(map[engine.PlayerID]uuid.UUID)
	g.dealt = make(map[uuid.UUID]bool)
	g.TurnID = 0
	g.actionIndex = 0
	g.ended = false

	logrus.WithFields(logrus.Fields{"game": g.ID, "previous": old, "by": actor}).Info("game reset")
	return ok(nil)
}

// ---------------------------------------------------------------------------
// Turn actions
// ---------------------------------------------------------------------------

// Play plays a card from the actor's hand, in turn or as an interrupt.
func (g *Game) Play(actor uuid.UUID, cardID int) Outcome {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.playLocked(actor, cardID, false)
}

// Draw draws one card for the actor.
func (g *Game) Draw(actor uuid.UUID) Outcome {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.drawLocked(actor)
}

// Pass ends the actor's turn.
func (g *Game) Pass(actor uuid.UUID) Outcome {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.passLocked(actor)
}

// Declare announces the actor's last card.
func (g *Game) Declare(actor uuid.UUID) Outcome {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	eid, found := g.PlayerToEngine[actor]
	if !found {
		return rejected(engine.KindPlayerNotFound, "player not found")
	}
	res, err := g.Engine.Declare(eid)
	if err == nil {
		g.fireEvent(GameEvent{Type: EventPlayerDeclare, User: g.eventUser(actor)})
	}
	return g.finishAction(actor, "declare", res, err)
}

func (g *Game) playLocked(actor uuid.UUID, cardID int, wild bool) Outcome {
	eid, found := g.PlayerToEngine[actor]
	if !found {
		return rejected(engine.KindPlayerNotFound, "player not found")
	}
	if cardID < 0 || cardID >= engine.DeckSize {
		return rejected(engine.KindCardNotHeld, "unknown card")
	}

	var (
		res engine.Result
		err error
	)
	if wild {
		res, err = g.Engine.PlayWildCard(eid, engine.CardID(cardID))
	} else {
		res, err = g.Engine.PlayCard(eid, engine.CardID(cardID))
	}
	if err == nil {
		g.emitPlayEvents(actor, res)
	}
	return g.finishAction(actor, "play", res, err)
}

func (g *Game) drawLocked(actor uuid.UUID) Outcome {
	eid, found := g.PlayerToEngine[actor]
	if !found {
		return rejected(engine.KindPlayerNotFound, "player not found")
	}
	res, err := g.Engine.DrawCard(eid)
	if err == nil {
		c, _ := g.Engine.Deck.CardByID(res.Drawn)
		g.fireEvent(GameEvent{
			Type:    EventPlayerDraw,
			User:    g.eventUser(actor),
			Payload: map[string]interface{}{"reason": res.DrawReason.String(), "stillOwed": res.StillOwed},
		})
		g.fireEventToPlayer(actor, GameEvent{Type: EventPrivateDraw, Card: engineCardToEvent(c)})
	}
	return g.finishAction(actor, "draw", res, err)
}

func (g *Game) passLocked(actor uuid.UUID) Outcome {
	eid, found := g.PlayerToEngine[actor]
	if !found {
		return rejected(engine.KindPlayerNotFound, "player not found")
	}
	res, err := g.Engine.PassTurn(eid)
	if err == nil {
		g.fireEvent(GameEvent{Type: EventPlayerPass, User: g.eventUser(actor)})
	}
	return g.finishAction(actor, "pass", res, err)
}

// HandlePlayerAction dispatches a websocket request to the matching
// operation.
func (g *Game) HandlePlayerAction(playerID uuid.UUID, action models.GameAction) Outcome {
	switch action.ActionType {
	case models.ActionPlay, models.ActionPlayWild:
		cardID, valid := action.CardID()
		if !valid {
			return rejected(KindBadRequest, "payload.card must be a card id")
		}
		if action.ActionType == models.ActionPlayWild {
			return g.PlayWild(playerID, cardID)
		}
		return g.Play(playerID, cardID)
	case models.ActionChooseColor:
		return g.ChooseColor(playerID, action.Color())
	case models.ActionDraw:
		return g.Draw(playerID)
	case models.ActionPass:
		return g.Pass(playerID)
	case models.ActionDeclare:
		return g.Declare(playerID)
	}
	logrus.WithFields(logrus.Fields{"player": playerID, "type": action.ActionType}).Debug("unknown action type")
	return rejected(KindBadRequest, "unknown action type")
}

// ---------------------------------------------------------------------------
// Connections
// ---------------------------------------------------------------------------

// HandleReconnect attaches a websocket to a seated player and sends them the
// current state.
func (g *Game) HandleReconnect(playerID uuid.UUID, conn *websocket.Conn) bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	p := g.getPlayerByID(playerID)
	if p == nil {
		g.log().WithField("player", playerID).Debug("reconnect for unknown player")
		return false
	}
	p.Connected = true
	p.Conn = conn
	g.logAction(playerID, "player_reconnect", nil)
	g.sendSyncState(playerID)
	g.broadcastSyncStateToAll()
	return true
}

// HandleDisconnect marks a player as disconnected. Their seat and turn are
// kept; a stalled turn is left to the idle timer or to the player's return.
func (g *Game) HandleDisconnect(playerID uuid.UUID) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	p := g.getPlayerByID(playerID)
	if p == nil || !p.Connected {
		return
	}
	p.Connected = false
	p.Conn = nil
	g.log().WithField("player", playerID).Info("player disconnected")
	g.logAction(playerID, "player_disconnect", nil)
	g.broadcastSyncStateToAll()
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Snapshot returns the state as forUser may see it. uuid.Nil gives the
// public view.
func (g *Game) Snapshot(forUser uuid.UUID) ObfGameState {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.GetCurrentObfuscatedGameState(forUser)
}

// Hand returns the actor's cards.
func (g *Game) Hand(actor uuid.UUID) ([]ObfCard, Outcome) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	eid, found := g.PlayerToEngine[actor]
	if !found {
		return nil, rejected(engine.KindPlayerNotFound, "player not found")
	}
	return g.obfHand(eid), ok(nil)
}

// SessionID returns the current session id. It changes on Reset.
func (g *Game) SessionID() uuid.UUID {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.ID
}

// HasPlayer reports whether id is seated in the current session.
func (g *Game) HasPlayer(id uuid.UUID) bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	_, found := g.PlayerToEngine[id]
	return found
}

// ---------------------------------------------------------------------------
// Internals. Callers hold Mu.
// ---------------------------------------------------------------------------

func (g *Game) requirePrivileged(actor uuid.UUID) Outcome {
	eid, found := g.PlayerToEngine[actor]
	if !found {
		return rejected(engine.KindPlayerNotFound, "player not found")
	}
	if v, _ := g.Engine.Player(eid); !v.Privileged {
		return rejected(KindNotPrivileged, "only the host may do that")
	}
	return ok(nil)
}

func (g *Game) removePlayer(id uuid.UUID) {
	eid := g.PlayerToEngine[id]
	delete(g.PlayerToEngine, id)
	delete(g.EngineToPlayer, eid)
	delete(g.dealt, id)
	for i, p := range g.Players {
		if p.ID == id {
			g.Players = append(g.Players[:i], g.Players[i+1:]...)
			break
		}
	}
}

// endGame stops the timer, announces the standings and archives them.
func (g *Game) endGame() {
	if g.ended {
		return
	}
	g.ended = true
	g.stopTurnTimer()

	standings := g.standings()
	g.log().WithField("standings", standings).Info("game over")
	g.logAction(uuid.Nil, string(EventGameEnd), map[string]interface{}{"standings": standings})

	list := make([]map[string]interface{}, 0, len(standings))
	for _, s := range standings {
		list = append(list, map[string]interface{}{
			"id": s.PlayerID.String(), "name": s.Name, "rank": s.Rank, "points": s.Points,
		})
	}
	g.fireEvent(GameEvent{Type: EventGameEnd, Payload: map[string]interface{}{"standings": list}})
	g.persistFinalGameState(standings)

	if g.OnGameEnd != nil {
		g.OnGameEnd(g.ID, standings)
	}
}

func (g *Game) standings() []database.Standing {
	order := g.Engine.Standings()
	out := make([]database.Standing, 0, len(order))
	for _, eid := range order {
		v, err := g.Engine.Player(eid)
		if err != nil {
			continue
		}
		out = append(out, database.Standing{
			PlayerID: g.EngineToPlayer[eid],
			Name:     v.Name,
			Rank:     v.Rank,
			Points:   g.Engine.HandPoints(eid),
		})
	}
	return out
}

func (g *Game) persistFinalGameState(standings []database.Standing) {
	if database.DB == nil {
		return
	}
	res := database.GameResult{
		GameID:     g.ID,
		FinishedAt: time.Now(),
		Turns:      g.Engine.TurnNumber,
		Standings:  standings,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.StoreGameResult(ctx, res); err != nil {
			logrus.WithField("game", res.GameID).WithError(err).Error("storing game result")
		}
	}()
}

func (g *Game) getPlayerByID(playerID uuid.UUID) *models.Player {
	for _, p := range g.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (g *Game) eventUser(playerID uuid.UUID) *EventUser {
	u := &EventUser{ID: playerID}
	if p := g.getPlayerByID(playerID); p != nil {
		u.Name = p.Name
	}
	return u
}

func (g *Game) fireEvent(ev GameEvent) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	}
}

// fireEventToPlayer sends ev to one connected player.
func (g *Game) fireEventToPlayer(playerID uuid.UUID, ev GameEvent) {
	if g.BroadcastToPlayerFn == nil {
		return
	}
	if p := g.getPlayerByID(playerID); p != nil && p.Connected {
		g.BroadcastToPlayerFn(playerID, ev)
	}
}

func (g *Game) sendSyncState(playerID uuid.UUID) {
	state := g.GetCurrentObfuscatedGameState(playerID)
	g.fireEventToPlayer(playerID, GameEvent{Type: EventPrivateSyncState, State: &state})
}

func (g *Game) broadcastSyncStateToAll() {
	for _, p := range g.Players {
		if p.Connected {
			g.sendSyncState(p.ID)
		}
	}
}

// logAction hands an accepted action to the historian without blocking the
// game lock.
func (g *Game) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	rec := cache.GameActionRecord{
		GameID:        g.ID,
		ActionIndex:   g.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	if cache.Rdb == nil {
		return
	}
	go func(rec cache.GameActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishGameAction(ctx, rec); err != nil {
			logrus.WithFields(logrus.Fields{"game": rec.GameID, "index": rec.ActionIndex, "type": rec.ActionType}).
				WithError(err).Error("publishing action")
		}
	}(rec)
}
