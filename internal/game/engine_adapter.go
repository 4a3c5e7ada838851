// engine_adapter.go bridges engine.GameState results to session outcomes,
// events and the idle-turn timer.
package game

import (
	"errors"
	"time"

	"github.com/benassa-de-glassa/uno-backend/engine"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Session-level rejection kinds. Engine rejections keep their engine kind.
const (
	KindNotPrivileged engine.ErrorKind = "NotPrivileged"
	KindAlreadyDealt  engine.ErrorKind = "AlreadyDealt"
	KindBadRequest    engine.ErrorKind = "BadRequest"
)

// Outcome is the reply to a request. Rejections carry the kind and message
// and, for a missed declaration, the effects that were still applied.
type Outcome struct {
	OK            bool             `json:"ok"`
	ErrorKind     engine.ErrorKind `json:"errorKind,omitempty"`
	Message       string           `json:"message,omitempty"`
	Owed          int              `json:"owed,omitempty"`
	RequiredColor string           `json:"requiredColor,omitempty"`
	Internal      bool             `json:"internal,omitempty"`
	Effects       *Effects         `json:"effects,omitempty"`
}

// Effects lists what an accepted request changed.
type Effects struct {
	Interrupt     string     `json:"interrupt,omitempty"` // name of the interrupting player
	PenaltyRaised bool       `json:"penaltyRaised,omitempty"`
	NextPenalty   int        `json:"nextPenalty,omitempty"`
	Skipped       bool       `json:"skipped,omitempty"`
	Reversed      bool       `json:"reversed,omitempty"`
	ColorChoice   bool       `json:"colorChoice,omitempty"`
	ChosenColor   string     `json:"chosenColor,omitempty"`
	MissedUno     string     `json:"missedUno,omitempty"` // name of the player caught
	Finished      bool       `json:"finished,omitempty"`
	Rank          int        `json:"rank,omitempty"`
	Drawn         *EventCard `json:"drawn,omitempty"`
	DrawReason    string     `json:"drawReason,omitempty"`
	StillOwed     int        `json:"stillOwed,omitempty"`
	GameOver      bool       `json:"gameOver,omitempty"`
}

func ok(eff *Effects) Outcome { return Outcome{OK: true, Effects: eff} }

func rejected(kind engine.ErrorKind, msg string) Outcome {
	return Outcome{ErrorKind: kind, Message: msg}
}

// outcomeFromError converts an engine error to a rejection.
func outcomeFromError(err error) Outcome {
	out := Outcome{ErrorKind: engine.KindOf(err), Message: err.Error()}
	var re *engine.RuleError
	if errors.As(err, &re) {
		out.Owed = re.Owed
		if re.Required != engine.ColorNone {
			out.RequiredColor = re.Required.String()
		}
	}
	if engine.IsInternal(err) {
		out.Internal = true
		out.Message = "internal error"
	}
	return out
}

// reportError logs err at the level its kind deserves and converts it.
func (g *Game) reportError(actor uuid.UUID, action string, err error) Outcome {
	entry := g.log().WithFields(logrus.Fields{"player": actor, "action": action})
	if engine.IsInternal(err) {
		entry.WithError(err).Error("engine consistency failure")
	} else {
		entry.WithField("kind", engine.KindOf(err)).Debug(err.Error())
	}
	return outcomeFromError(err)
}

// effectsFromResult maps an engine result onto the wire effects.
func (g *Game) effectsFromResult(res engine.Result) *Effects {
	eff := &Effects{
		PenaltyRaised: res.PenaltyRaised,
		NextPenalty:   res.NextPenalty,
		Skipped:       res.Skipped,
		Reversed:      res.Reversed,
		ColorChoice:   res.ColorChoice,
		Finished:      res.Finished,
		Rank:          res.Rank,
		StillOwed:     res.StillOwed,
		GameOver:      res.GameOver,
	}
	if res.Interrupt {
		eff.Interrupt = res.InterruptBy
	}
	if res.MissedDeclaration {
		eff.MissedUno = res.MissedBy
	}
	if res.ChosenColor != engine.ColorNone {
		eff.ChosenColor = res.ChosenColor.String()
	}
	if res.Drawn != engine.NoCardID {
		c, _ := g.Engine.Deck.CardByID(res.Drawn)
		eff.Drawn = engineCardToEvent(c)
		eff.DrawReason = res.DrawReason.String()
	}
	return eff
}

// finishAction is the common tail of every turn action: record it, announce
// the side effects, then move the timer and resync clients.
func (g *Game) finishAction(actor uuid.UUID, action string, res engine.Result, err error) Outcome {
	if err != nil {
		out := g.reportError(actor, action, err)
		if res.MissedDeclaration {
			// The only rejection that still changes state.
			out.Effects = g.effectsFromResult(res)
			g.announceMissedDeclaration(actor, res)
			g.broadcastSyncStateToAll()
		}
		return out
	}

	eff := g.effectsFromResult(res)
	payload := map[string]interface{}{}
	if res.Card.Valid() {
		payload["card"] = res.Card.String()
	}
	if eff.DrawReason != "" {
		payload["reason"] = eff.DrawReason
	}
	if eff.ChosenColor != "" {
		payload["color"] = eff.ChosenColor
	}
	g.logAction(actor, action, payload)

	if res.MissedDeclaration {
		g.announceMissedDeclaration(actor, res)
	}
	if res.Finished {
		g.fireEvent(GameEvent{
			Type:    EventPlayerFinished,
			User:    g.eventUser(actor),
			Payload: map[string]interface{}{"rank": res.Rank},
		})
	}

	if res.GameOver {
		g.endGame()
	} else {
		g.onTurnMaybeAdvanced()
	}
	g.broadcastSyncStateToAll()
	return ok(eff)
}

func (g *Game) announceMissedDeclaration(actor uuid.UUID, res engine.Result) {
	g.log().WithField("player", actor).Info("missed last-card declaration")
	g.logAction(actor, string(EventMissedDeclaration), nil)
	g.fireEvent(GameEvent{
		Type:    EventMissedDeclaration,
		User:    g.eventUser(actor),
		Payload: map[string]interface{}{"owed": g.Engine.Players[res.Actor].PunishmentDraws},
	})
}

// emitPlayEvents announces an accepted play.
func (g *Game) emitPlayEvents(actor uuid.UUID, res engine.Result) {
	evType := EventPlayerPlay
	if res.Interrupt {
		evType = EventPlayerInterrupt
	}
	g.fireEvent(GameEvent{
		Type: evType,
		User: g.eventUser(actor),
		Card: engineCardToEvent(res.Card),
		Payload: map[string]interface{}{
			"skipped":  res.Skipped,
			"reversed": res.Reversed,
		},
	})
	if res.NextPenalty > 0 {
		g.fireEvent(GameEvent{
			Type:    EventPenaltyRaised,
			User:    g.eventUser(actor),
			Payload: map[string]interface{}{"pending": res.NextPenalty, "stacked": res.PenaltyRaised},
		})
	}
	if res.ColorChoice {
		g.fireEvent(GameEvent{Type: EventPlayerColorChoice, User: g.eventUser(actor)})
	}
}

func (g *Game) mapHouseRulesToEngine() engine.HouseRules {
	rules := engine.DefaultHouseRules()
	if n := g.HouseRules.InitialHandSize; n > 0 && n <= 255 {
		rules.InitialHandSize = uint8(n)
	}
	if n := g.HouseRules.MissedDeclarationDraws; n >= 0 && n <= 255 {
		// 0 is a valid setting: no punishment.
		rules.MissedDeclarationDraws = uint8(n)
	}
	return rules
}

// engineRankToString names the kind of card for clients.
func engineRankToString(c engine.Card) string {
	if c.IsBlack() {
		if c.Rank == engine.RankWildDrawFour {
			return "wild_draw_four"
		}
		return "wild"
	}
	switch c.Rank {
	case engine.RankReverse:
		return "reverse"
	case engine.RankSkip:
		return "skip"
	case engine.RankDrawTwo:
		return "draw_two"
	}
	return "number"
}

func engineCardToEvent(c engine.Card) *EventCard {
	if !c.Valid() {
		return nil
	}
	return &EventCard{
		ID:    int(c.ID),
		Color: c.Color.String(),
		Rank:  int(c.Rank),
		Kind:  engineRankToString(c),
		Label: c.String(),
	}
}

// currentPlayerID returns the session id of the active player, or uuid.Nil.
func (g *Game) currentPlayerID() uuid.UUID {
	if g.Engine.Phase != engine.PhasePlaying {
		return uuid.Nil
	}
	return g.EngineToPlayer[g.Engine.ActivePlayer()]
}

// ---------------------------------------------------------------------------
// Turn tracking and the idle timer
// ---------------------------------------------------------------------------

// onTurnMaybeAdvanced announces a new turn and rearms the timer when the
// engine turn counter moved.
func (g *Game) onTurnMaybeAdvanced() {
	if g.Engine.Phase != engine.PhasePlaying || g.Engine.TurnNumber == g.TurnID {
		return
	}
	g.TurnID = g.Engine.TurnNumber
	g.scheduleNextTurnTimer()
	g.broadcastPlayerTurn()
}

func (g *Game) stopTurnTimer() {
	if g.turnTimer != nil {
		g.turnTimer.Stop()
		g.turnTimer = nil
	}
}

func (g *Game) scheduleNextTurnTimer() {
	g.stopTurnTimer()
	if g.TurnDuration <= 0 || g.Engine.Phase != engine.PhasePlaying {
		return
	}
	turnID := g.TurnID
	playerID := g.currentPlayerID()

	g.turnTimer = time.AfterFunc(g.TurnDuration, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		if g.Engine.Phase != engine.PhasePlaying || g.TurnID != turnID || g.currentPlayerID() != playerID {
			return
		}
		g.handleTimeout(playerID)
	})
}

func (g *Game) broadcastPlayerTurn() {
	playerID := g.currentPlayerID()
	if playerID == uuid.Nil {
		return
	}
	g.log().WithFields(logrus.Fields{"turn": g.TurnID, "player": playerID}).Debug("turn starts")
	g.fireEvent(GameEvent{
		Type: EventGamePlayerTurn,
		User: g.eventUser(playerID),
		Payload: map[string]interface{}{
			"turn":  g.TurnID,
			"owed":  g.Engine.Gate.OwedPenalty(),
			"color": g.Engine.Gate.AwaitingColor(),
		},
	})
}

// handleTimeout plays out an idle turn: name a color if one is pending,
// otherwise draw whatever is owed plus the free card, then pass.
func (g *Game) handleTimeout(playerID uuid.UUID) {
	eid, found := g.PlayerToEngine[playerID]
	if !found {
		return
	}
	g.log().WithFields(logrus.Fields{"turn": g.TurnID, "player": playerID}).Info("turn timed out")
	g.logAction(playerID, string(EventTurnTimeout), map[string]interface{}{"turn": g.TurnID})
	g.fireEvent(GameEvent{Type: EventTurnTimeout, User: g.eventUser(playerID)})

	if g.Engine.Gate.AwaitingColor() {
		g.chooseColorLocked(playerID, g.autoColor(eid))
		return
	}
	// Every draw either pays a debt or uses the free draw, so this ends.
	for i := 0; i < engine.DeckSize && g.Engine.CanDraw(eid); i++ {
		if out := g.drawLocked(playerID); !out.OK {
			return
		}
	}
	if g.Engine.CanPass(eid) {
		g.passLocked(playerID)
	}
}
