package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameActionPayload(t *testing.T) {
	var a GameAction
	require.NoError(t, json.Unmarshal([]byte(`{"type":"action_play","payload":{"card":42,"color":"blue"}}`), &a))

	assert.Equal(t, ActionPlay, a.ActionType)
	id, ok := a.CardID()
	assert.True(t, ok)
	assert.Equal(t, 42, id)
	assert.Equal(t, "blue", a.Color())
}

func TestGameActionBadCard(t *testing.T) {
	for _, raw := range []string{`{"card":"x"}`, `{"card":-1}`, `{"card":1.5}`, `{}`} {
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(raw), &payload))
		_, ok := GameAction{Payload: payload}.CardID()
		assert.False(t, ok, raw)
	}
}
