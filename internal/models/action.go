package models

// GameAction is a request arriving over the websocket. The payload keys depend
// on the action type ("card" for plays, "color" for a color choice).
type GameAction struct {
	ActionType string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// Action types accepted by the session.
const (
	ActionPlay        = "action_play"
	ActionPlayWild    = "action_play_wild"
	ActionChooseColor = "action_choose_color"
	ActionDraw        = "action_draw"
	ActionPass        = "action_pass"
	ActionDeclare     = "action_declare"
)

// CardID reads the "card" payload entry. JSON numbers decode as float64.
func (a GameAction) CardID() (int, bool) {
	v, ok := a.Payload["card"].(float64)
	if !ok || v < 0 || v != float64(int(v)) {
		return 0, false
	}
	return int(v), true
}

// Color reads the "color" payload entry.
func (a GameAction) Color() string {
	s, _ := a.Payload["color"].(string)
	return s
}
