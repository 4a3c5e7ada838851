// internal/game/special_actions.go
package game

import (
	"github.com/benassa-de-glassa/uno-backend/engine"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PlayWild plays a Wild or WildDrawFour. The player keeps the turn until they
// call ChooseColor.
func (g *Game) PlayWild(actor uuid.UUID, cardID int) Outcome {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.playLocked(actor, cardID, true)
}

// ChooseColor names the color that must be followed on a black top card.
func (g *Game) ChooseColor(actor uuid.UUID, color string) Outcome {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	c, err := engine.ParseColor(color)
	if err != nil {
		return rejected(engine.KindInvalidColor, err.Error())
	}
	return g.chooseColorLocked(actor, c)
}

func (g *Game) chooseColorLocked(actor uuid.UUID, color engine.Color) Outcome {
	eid, found := g.PlayerToEngine[actor]
	if !found {
		return rejected(engine.KindPlayerNotFound, "player not found")
	}
	res, err := g.Engine.ChooseColor(eid, color)
	if err == nil {
		g.log().WithFields(logrus.Fields{"player": actor, "color": color.String()}).Debug("color chosen")
		g.fireEvent(GameEvent{
			Type:    EventPlayerColorChosen,
			User:    g.eventUser(actor),
			Payload: map[string]interface{}{"color": color.String()},
		})
	}
	return g.finishAction(actor, "choose_color", res, err)
}

// autoColor picks the color the player holds most of, red when they hold no
// colored card. Used when the idle timer chooses for them.
func (g *Game) autoColor(eid engine.PlayerID) engine.Color {
	hand, err := g.Engine.Hand(eid)
	if err != nil {
		return engine.ColorRed
	}
	counts := make(map[engine.Color]int, len(engine.PlayableColors))
	for _, c := range hand {
		if c.Color.Choosable() {
			counts[c.Color]++
		}
	}
	best := engine.ColorRed
	for _, c := range engine.PlayableColors {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}
