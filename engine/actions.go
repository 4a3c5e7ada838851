package engine

import "fmt"

// move is the outcome of validating a play. validateMove never mutates.
type move struct {
	interrupt      bool
	escalate       bool // continues an owed or pending draw chain
	consumesChosen bool // colored card answering a black top
}

// validateMove decides whether p may play card on top. The order of checks is
// part of the rules: the interrupt rule first, then the active player's gates,
// punishment, color, playability and finally the last-card declaration.
func (g *GameState) validateMove(p *PlayerState, card, top Card) (move, error) {
	if g.ActivePlayer() != p.ID {
		return g.validateInterrupt(p, card, top)
	}

	var mv move
	if g.Gate.AwaitingColor() {
		return mv, reject(KindColorChoicePending, "choose a color first")
	}
	if owed := g.Gate.OwedPenalty(); owed > 0 {
		if !card.CanEscalatePenalty(top) {
			return mv, &RuleError{Kind: KindPenaltyOwed, Owed: owed, Msg: pickUpMsg(owed, "first")}
		}
		mv.escalate = true
	}
	if p.PunishmentDraws > 0 {
		return mv, &RuleError{Kind: KindPunishmentOwed, Owed: p.PunishmentDraws, Msg: pickUpMsg(p.PunishmentDraws, "as punishment")}
	}
	if top.IsBlack() && !card.IsBlack() {
		if card.Color != g.ChosenColor {
			return mv, &RuleError{Kind: KindWrongColor, Required: g.ChosenColor, Msg: "play color " + g.ChosenColor.String()}
		}
		mv.consumesChosen = true
	} else if !card.IsPlayableOn(top, g.ChosenColor) {
		return mv, reject(KindCardNotPlayable, "%s cannot be played on %s", card, top)
	}
	if len(p.Hand) == 1 && !p.DeclaredLastCard {
		return mv, reject(KindMissedDeclaration, "%s did not declare their last card", p.Name)
	}
	return mv, nil
}

func pickUpMsg(n int, why string) string {
	if n == 1 {
		return "pick up 1 card " + why
	}
	return fmt.Sprintf("pick up %d cards %s", n, why)
}

// PlayCard plays a card from the player's hand. Black cards are routed to the
// wild path so the color gate always opens.
func (g *GameState) PlayCard(id PlayerID, cardID CardID) (Result, error) {
	return g.play(id, cardID, false)
}

// PlayWildCard plays a Wild or WildDrawFour and opens the color gate for the
// player.
func (g *GameState) PlayWildCard(id PlayerID, cardID CardID) (Result, error) {
	return g.play(id, cardID, true)
}

func (g *GameState) play(id PlayerID, cardID CardID, wildOnly bool) (Result, error) {
	res := Result{Actor: id, Card: NoCard, Drawn: NoCardID}
	if err := g.requirePlaying(); err != nil {
		return res, err
	}
	p, err := g.player(id)
	if err != nil {
		return res, err
	}
	card, ok := g.Deck.CardByID(cardID)
	if !ok || !p.HasCard(cardID) {
		return res, reject(KindCardNotHeld, "%s does not hold card %d", p.Name, cardID)
	}
	if wildOnly && !card.IsBlack() {
		return res, reject(KindCardNotPlayable, "%s is not a wild card", card)
	}
	res.Card = card

	top := g.Deck.TopCard()
	mv, err := g.validateMove(p, card, top)
	if err != nil {
		if KindOf(err) == KindMissedDeclaration {
			p.PunishmentDraws = int(g.Rules.MissedDeclarationDraws)
			res.MissedDeclaration = true
			res.MissedBy = p.Name
		}
		return res, err
	}

	// ==> the move is legal, apply it
	if mv.interrupt {
		// Taking over the seat counts as a new turn, even if the play then
		// waits for a color choice.
		if seat := g.seatOf(id); seat != g.ActiveIdx {
			g.ActiveIdx = seat
			g.TurnNumber++
		}
		res.Interrupt = true
		res.InterruptBy = p.Name
	}
	if err := p.RemoveCard(cardID); err != nil {
		return res, err
	}
	g.Deck.Play(cardID)
	p.DeclaredLastCard = false
	if mv.consumesChosen || card.IsBlack() {
		g.ChosenColor = ColorNone
	}

	switch {
	case card.IsDrawTwo():
		g.raisePenalty(2, mv.escalate, &res)
	case card.IsWildDrawFour():
		g.raisePenalty(4, mv.escalate, &res)
		g.Gate = Gate{Kind: GateColorChoice, Chooser: id}
		res.ColorChoice = true
	case card.IsBlack():
		g.Gate = Gate{Kind: GateColorChoice, Chooser: id}
		res.ColorChoice = true
	case card.Rank == RankSkip:
		res.Skipped = true
	case card.Rank == RankReverse:
		g.Direction = -g.Direction
		res.Reversed = true
	}

	if len(p.Hand) == 0 {
		g.finish(p, &res)
	}
	if g.checkGameEnd(&res) {
		return res, nil
	}
	if g.Gate.AwaitingColor() {
		// The turn moves on once the color is chosen, even for a player who
		// just went out.
		return res, nil
	}

	if res.Skipped {
		g.advanceTurn()
	}
	if res.Reversed && !p.Finished && g.liveSeats() == 2 {
		// Two seats: reversing hands the turn straight back.
		g.advanceTurn()
	}
	g.advanceTurn()
	return res, nil
}

// raisePenalty moves an owed penalty onto the next player and adds n to it.
func (g *GameState) raisePenalty(n int, escalate bool, res *Result) {
	if owed := g.Gate.OwedPenalty(); owed > 0 {
		g.NextPenalty += owed
		g.Gate = Gate{}
	}
	g.NextPenalty += n
	res.PenaltyRaised = escalate
	res.NextPenalty = g.NextPenalty
}

// ChooseColor resolves the color gate. Only the player who opened it may
// choose, and only while they are still active.
func (g *GameState) ChooseColor(id PlayerID, color Color) (Result, error) {
	res := Result{Actor: id, Card: NoCard, Drawn: NoCardID}
	if err := g.requirePlaying(); err != nil {
		return res, err
	}
	if _, err := g.player(id); err != nil {
		return res, err
	}
	if g.ActivePlayer() != id {
		return res, reject(KindNotPlayersTurn, "not your turn")
	}
	if !g.Gate.AwaitingColor() || g.Gate.Chooser != id {
		return res, reject(KindNotEntitledToChooseColor, "not allowed to choose color (anymore)")
	}
	if !color.Choosable() {
		return res, reject(KindInvalidColor, "%s is not a playable color", color)
	}

	g.ChosenColor = color
	g.Gate = Gate{}
	res.ChosenColor = color
	g.advanceTurn()
	return res, nil
}

// DrawCard draws one card for the active player. The first matching reason
// wins: owed penalty, owed punishment, caught holding one undeclared card, the
// free draw of the turn. A second free draw is refused.
func (g *GameState) DrawCard(id PlayerID) (Result, error) {
	res := Result{Actor: id, Card: NoCard, Drawn: NoCardID}
	if err := g.requirePlaying(); err != nil {
		return res, err
	}
	p, err := g.player(id)
	if err != nil {
		return res, err
	}
	if g.ActivePlayer() != id {
		return res, reject(KindNotPlayersTurn, "not your turn")
	}
	if g.Gate.AwaitingColor() {
		return res, reject(KindColorChoicePending, "choose a color first")
	}

	var reason DrawReason
	switch {
	case g.Gate.OwedPenalty() > 0:
		reason = DrawPenalty
	case p.PunishmentDraws > 0:
		reason = DrawPunishment
	case len(p.Hand) == 1 && !p.DeclaredLastCard:
		reason = DrawCaughtUndeclared
	case !g.DrewThisTurn:
		reason = DrawFree
	default:
		return res, reject(KindAlreadyDrewThisTurn, "you already have enough cards")
	}

	ids, err := g.Deck.DealTopN(1)
	if err != nil {
		return res, err
	}
	p.AddCards(ids)
	p.DeclaredLastCard = false
	res.Drawn = ids[0]
	res.DrawReason = reason

	switch reason {
	case DrawPenalty:
		g.Gate.Owed--
		res.StillOwed = g.Gate.Owed
		if g.Gate.Owed == 0 {
			g.Gate = Gate{}
		}
	case DrawPunishment:
		p.PunishmentDraws--
		res.StillOwed = p.PunishmentDraws
	case DrawCaughtUndeclared:
		p.PunishmentDraws = int(g.Rules.CaughtUndeclaredDraws)
		res.StillOwed = p.PunishmentDraws
		res.MissedDeclaration = true
		res.MissedBy = p.Name
	case DrawFree:
		g.DrewThisTurn = true
	}
	return res, nil
}

// PassTurn ends the active player's turn after their free draw.
func (g *GameState) PassTurn(id PlayerID) (Result, error) {
	res := Result{Actor: id, Card: NoCard, Drawn: NoCardID}
	if err := g.requirePlaying(); err != nil {
		return res, err
	}
	p, err := g.player(id)
	if err != nil {
		return res, err
	}
	if g.ActivePlayer() != id {
		return res, reject(KindNotPlayersTurn, "not your turn")
	}
	if g.Gate.AwaitingColor() {
		return res, reject(KindColorChoicePending, "choose a color first")
	}
	if owed := g.Gate.OwedPenalty(); owed > 0 {
		return res, &RuleError{Kind: KindPenaltyOwed, Owed: owed, Msg: pickUpMsg(owed, "first")}
	}
	if p.PunishmentDraws > 0 {
		return res, &RuleError{Kind: KindPunishmentOwed, Owed: p.PunishmentDraws, Msg: pickUpMsg(p.PunishmentDraws, "as punishment")}
	}
	if !g.DrewThisTurn {
		return res, reject(KindMustDrawBeforePass, "draw a card before passing")
	}
	g.advanceTurn()
	return res, nil
}

// Declare announces the last card. Only legal while holding exactly one card;
// any player may declare at any time during play.
func (g *GameState) Declare(id PlayerID) (Result, error) {
	res := Result{Actor: id, Card: NoCard, Drawn: NoCardID}
	if err := g.requirePlaying(); err != nil {
		return res, err
	}
	p, err := g.player(id)
	if err != nil {
		return res, err
	}
	if len(p.Hand) != 1 {
		return res, reject(KindCannotDeclare, "you have the wrong number of cards (%d)", len(p.Hand))
	}
	p.DeclaredLastCard = true
	return res, nil
}

// advanceTurn moves to the next seat in the current direction. A finished
// active player gives up their seat instead. The new active player takes over
// the pending penalty and a fresh free draw.
func (g *GameState) advanceTurn() {
	n := len(g.Roster)
	if n == 0 {
		return
	}

	cur := g.Roster[g.ActiveIdx]
	if p := g.Players[cur]; p == nil || p.Finished {
		g.Roster = append(g.Roster[:g.ActiveIdx], g.Roster[g.ActiveIdx+1:]...)
		n--
		switch {
		case n == 0:
			g.ActiveIdx = 0
		case g.Direction == Clockwise:
			g.ActiveIdx %= n
		default:
			g.ActiveIdx = (g.ActiveIdx - 1 + n) % n
		}
	} else {
		g.ActiveIdx = ((g.ActiveIdx+int(g.Direction))%n + n) % n
	}

	g.Gate = Gate{}
	if g.NextPenalty > 0 {
		g.Gate = Gate{Kind: GatePenalty, Owed: g.NextPenalty}
	}
	g.NextPenalty = 0
	g.DrewThisTurn = false
	g.TurnNumber++
}

// liveSeats counts seated players who have not finished.
func (g *GameState) liveSeats() int {
	n := 0
	for _, id := range g.Roster {
		if p := g.Players[id]; p != nil && !p.Finished {
			n++
		}
	}
	return n
}

func (g *GameState) requirePlaying() error {
	switch g.Phase {
	case PhaseLobby:
		return reject(KindGameNotStarted, "game has not started")
	case PhaseFinished:
		return reject(KindGameOver, "game is over")
	}
	return nil
}
