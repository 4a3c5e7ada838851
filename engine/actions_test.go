package engine

import (
	"reflect"
	"testing"
)

func TestPlayCardAdvancesTurn(t *testing.T) {
	g, ids := newPlayingGame(t, "a", "b", "c")
	setTop(t, g, ColorRed, 5)
	c := giveCard(t, g, ids[0], ColorRed, 7)
	giveCard(t, g, ids[0], ColorBlue, 1)

	res, err := g.PlayCard(ids[0], c)
	if err != nil {
		t.Fatalf("PlayCard: %v", err)
	}
	if res.Card.ID != c || g.TopCard().ID != c {
		t.Errorf("top: want %d, got %d", c, g.TopCard().ID)
	}
	if g.ActivePlayer() != ids[1] {
		t.Errorf("active: want b, got %d", g.ActivePlayer())
	}
	if g.TurnNumber != 1 {
		t.Errorf("turn number: want 1, got %d", g.TurnNumber)
	}
	checkCardCount(t, g)
}

func TestPlayCardRejections(t *testing.T) {
	g, ids := newPlayingGame(t, "a", "b")
	setTop(t, g, ColorRed, 5)
	blue7 := giveCard(t, g, ids[0], ColorBlue, 7)
	giveCard(t, g, ids[0], ColorBlue, 8)
	notMine := g.Deck.Draw[0]

	_, err := g.PlayCard(ids[0], blue7)
	wantKind(t, err, KindCardNotPlayable)

	_, err = g.PlayCard(ids[0], notMine)
	wantKind(t, err, KindCardNotHeld)
	_, err = g.PlayCard(ids[0], NoCardID)
	wantKind(t, err, KindCardNotHeld)

	_, err = g.PlayCard(99, blue7)
	wantKind(t, err, KindPlayerNotFound)

	_, err = g.PlayWildCard(ids[0], blue7)
	wantKind(t, err, KindCardNotPlayable)
}

func TestRejectedPlayLeavesStateUntouched(t *testing.T) {
	g, ids := newPlayingGame(t, "a", "b", "c")
	setTop(t, g, ColorRed, 5)
	giveCard(t, g, ids[0], ColorGreen, 8)
	blue3 := giveCard(t, g, ids[1], ColorBlue, 3)
	giveCard(t, g, ids[1], ColorBlue, 4)

	before := g.Clone()
	for i := 0; i < 3; i++ {
		_, err := g.PlayCard(ids[1], blue3)
		wantKind(t, err, KindNotInterruptEligible)
	}
	if !reflect.DeepEqual(before, g) {
		t.Error("rejected interrupt changed the game state")
	}
}

func TestInterruptAccepted(t *testing.T) {
	g, ids := newPlayingGame(t, "a", "b", "c")
	setTop(t, g, ColorRed, 5)
	giveCard(t, g, ids[0], ColorGreen, 8)
	red5 := giveCard(t, g, ids[1], ColorRed, 5)
	giveCard(t, g, ids[1], ColorBlue, 1)

	res, err := g.PlayCard(ids[1], red5)
	if err != nil {
		t.Fatalf("interrupt: %v", err)
	}
	if !res.Interrupt || res.InterruptBy != "b" {
		t.Errorf("result: want interrupt by b, got %+v", res)
	}
	// Turn continues from the interrupter's seat.
	if g.ActivePlayer() != ids[2] {
		t.Errorf("active: want c, got %d", g.ActivePlayer())
	}
	checkCardCount(t, g)
}

func TestWildInterruptStartsNewTurn(t *testing.T) {
	g, ids := newPlayingGame(t, "a", "b", "c")
	a, b, c := ids[0], ids[1], ids[2]
	wild := giveCard(t, g, a, ColorBlack, RankWild)
	giveCard(t, g, a, ColorRed, 1)
	giveCard(t, g, b, ColorRed, 2)
	wild2 := giveCard(t, g, c, ColorBlack, RankWild)
	giveCard(t, g, c, ColorRed, 3)

	if _, err := g.PlayWildCard(a, wild); err != nil {
		t.Fatal(err)
	}
	if _, err := g.ChooseColor(a, ColorGreen); err != nil {
		t.Fatal(err)
	}
	if g.ActivePlayer() != b {
		t.Fatalf("active: want b, got %d", g.ActivePlayer())
	}
	before := g.TurnNumber

	res, err := g.PlayWildCard(c, wild2)
	if err != nil {
		t.Fatalf("wild interrupt: %v", err)
	}
	if !res.Interrupt || !res.ColorChoice {
		t.Fatalf("result: want interrupt with color choice, got %+v", res)
	}
	if g.ActivePlayer() != c || g.Gate.Chooser != c {
		t.Errorf("c should hold the turn for the color choice, active %d gate %+v", g.ActivePlayer(), g.Gate)
	}
	if g.TurnNumber == before {
		t.Error("taking over the seat should start a new turn")
	}
	checkCardCount(t, g)
}

func TestInterruptBlockedByColorChoice(t *testing.T) {
	g, ids := newPlayingGame(t, "a", "b", "c")
	wild := giveCard(t, g, ids[0], ColorBlack, RankWild)
	giveCard(t, g, ids[0], ColorRed, 1)
	wild2 := giveCard(t, g, ids[1], ColorBlack, RankWild)
	giveCard(t, g, ids[1], ColorRed, 2)

	if _, err := g.PlayWildCard(ids[0], wild); err != nil {
		t.Fatal(err)
	}
	_, err := g.PlayWildCard(ids[1], wild2)
	wantKind(t, err, KindColorChoicePending)
}

func TestWildDrawFourInterruptDuringColorChoice(t *testing.T) {
	g, ids := newPlayingGame(t, "a", "b", "c")
	a, b, c := ids[0], ids[1], ids[2]
	wd4 := giveCard(t, g, a, ColorBlack, RankWildDrawFour)
	giveCard(t, g, a, ColorRed, 1)
	wd4b := giveCard(t, g, b, ColorBlack, RankWildDrawFour)
	giveCard(t, g, b, ColorRed, 2)

	res, err := g.PlayWildCard(a, wd4)
	if err != nil {
		t.Fatal(err)
	}
	if !res.ColorChoice || res.NextPenalty != 4 {
		t.Errorf("result: want color choice and 4 pending, got %+v", res)
	}

	res, err = g.PlayWildCard(b, wd4b)
	if err != nil {
		t.Fatalf("stacking interrupt: %v", err)
	}
	if !res.Interrupt || !res.PenaltyRaised || res.NextPenalty != 8 {
		t.Errorf("result: want escalated interrupt to 8, got %+v", res)
	}
	if g.ActivePlayer() != b || g.Gate.Chooser != b {
		t.Fatalf("b should be active and choosing, active %d chooser %d", g.ActivePlayer(), g.Gate.Chooser)
	}

	_, err = g.ChooseColor(a, ColorBlue)
	wantKind(t, err, KindNotPlayersTurn)

	if _, err := g.ChooseColor(b, ColorBlue); err != nil {
		t.Fatal(err)
	}
	if g.ActivePlayer() != c {
		t.Errorf("active: want c, got %d", g.ActivePlayer())
	}
	if g.Gate.OwedPenalty() != 8 {
		t.Errorf("c owes: want 8, got %d", g.Gate.OwedPenalty())
	}
	checkCardCount(t, g)
}

func TestPenaltyChaining(t *testing.T) {
	g, ids := newPlayingGame(t, "a", "b", "c")
	a, b := ids[0], ids[1]
	setTop(t, g, ColorRed, RankDrawTwo)
	g.Gate = Gate{Kind: GatePenalty, Owed: 2}
	red7 := giveCard(t, g, a, ColorRed, 7)
	blueDT := giveCard(t, g, a, ColorBlue, RankDrawTwo)
	giveCard(t, g, a, ColorGreen, 1)

	_, err := g.PlayCard(a, red7)
	wantKind(t, err, KindPenaltyOwed)
	if re := err.(*RuleError); re.Owed != 2 {
		t.Errorf("owed: want 2, got %d", re.Owed)
	}

	res, err := g.PlayCard(a, blueDT)
	if err != nil {
		t.Fatalf("escalating play: %v", err)
	}
	if !res.PenaltyRaised || res.NextPenalty != 4 {
		t.Errorf("result: want escalation to 4, got %+v", res)
	}
	if g.ActivePlayer() != b {
		t.Fatalf("active: want b, got %d", g.ActivePlayer())
	}
	if g.Gate.OwedPenalty() != 4 || g.NextPenalty != 0 {
		t.Errorf("b owes %d, next %d; want 4 and 0", g.Gate.OwedPenalty(), g.NextPenalty)
	}
}

func TestDrawTwoDoesNotAnswerWildDrawFour(t *testing.T) {
	g, ids := newPlayingGame(t, "a", "b")
	setTop(t, g, ColorBlack, RankWildDrawFour)
	g.ChosenColor = ColorRed
	g.Gate = Gate{Kind: GatePenalty, Owed: 4}
	redDT := giveCard(t, g, ids[0], ColorRed, RankDrawTwo)
	giveCard(t, g, ids[0], ColorRed, 3)

	_, err := g.PlayCard(ids[0], redDT)
	wantKind(t, err, KindPenaltyOwed)
}

func TestDeclaration(t *testing.T) {
	g, ids := newPlayingGame(t, "a", "b", "c")
	a := ids[0]
	setTop(t, g, ColorRed, 9)
	red5 := giveCard(t, g, a, ColorRed, 5)
	giveCard(t, g, ids[1], ColorBlue, 1)
	giveCard(t, g, ids[2], ColorBlue, 2)

	res, err := g.PlayCard(a, red5)
	wantKind(t, err, KindMissedDeclaration)
	if !res.MissedDeclaration || res.MissedBy != "a" {
		t.Errorf("result: want missed declaration by a, got %+v", res)
	}
	if g.Players[a].PunishmentDraws != 2 {
		t.Errorf("punishment: want 2, got %d", g.Players[a].PunishmentDraws)
	}
	if len(g.Players[a].Hand) != 1 {
		t.Error("rejected play removed the card")
	}

	_, err = g.PlayCard(a, red5)
	wantKind(t, err, KindPunishmentOwed)

	// Pay the punishment, then declare and go out.
	for i := 0; i < 2; i++ {
		res, err := g.DrawCard(a)
		if err != nil {
			t.Fatal(err)
		}
		if res.DrawReason != DrawPunishment {
			t.Errorf("draw %d: want punishment, got %s", i, res.DrawReason)
		}
	}
	keepOnly(g, a, red5)
	if _, err := g.Declare(a); err != nil {
		t.Fatalf("Declare: %v", err)
	}
	res, err = g.PlayCard(a, red5)
	if err != nil {
		t.Fatalf("declared play: %v", err)
	}
	if !res.Finished || res.Rank != 1 {
		t.Errorf("result: want finished rank 1, got %+v", res)
	}
	if g.ActivePlayer() != ids[1] {
		t.Errorf("active: want b, got %d", g.ActivePlayer())
	}
	if g.seatOf(a) >= 0 {
		t.Error("finished player still seated")
	}
	checkCardCount(t, g)
}
