package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benassa-de-glassa/uno-backend/internal/auth"
	"github.com/benassa-de-glassa/uno-backend/internal/game"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	signer, err := auth.NewSigner("test-secret", time.Hour)
	require.NoError(t, err)
	s := NewServer(game.NewGame(game.DefaultHouseRules(), 42), signer, []string{"http://localhost:3000"})
	ts := httptest.NewServer(CORS([]string{"http://localhost:3000"}, s.Routes()))
	t.Cleanup(ts.Close)
	return s, ts
}

func do(t *testing.T, ts *httptest.Server, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func join(t *testing.T, ts *httptest.Server, name string) (uuid.UUID, string) {
	t.Helper()
	resp, body := do(t, ts, http.MethodPost, "/players", "", map[string]string{"name": name})
	require.Equal(t, http.StatusOK, resp.StatusCode, "%v", body)
	require.Equal(t, true, body["ok"])
	id, err := uuid.Parse(body["playerId"].(string))
	require.NoError(t, err)
	return id, body["token"].(string)
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := ts.Client().Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestJoinAndStartOverHTTP(t *testing.T) {
	_, ts := newTestServer(t)
	_, hostToken := join(t, ts, "anna")
	_, guestToken := join(t, ts, "ben")

	resp, body := do(t, ts, http.MethodPost, "/players", "", map[string]string{"name": "anna"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "NameTaken", body["errorKind"])

	resp, body = do(t, ts, http.MethodPost, "/game/start", guestToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "NotPrivileged", body["errorKind"])

	resp, body = do(t, ts, http.MethodPost, "/game/start", hostToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "%v", body)
	assert.Equal(t, true, body["ok"])

	resp, body = do(t, ts, http.MethodGet, "/game/hand", guestToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["cards"], 7)
}

func TestRequestsNeedAValidToken(t *testing.T) {
	s, ts := newTestServer(t)
	_, token := join(t, ts, "anna")

	resp, _ := do(t, ts, http.MethodPost, "/game/draw", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodPost, "/game/draw", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	other, err := auth.NewSigner("other-secret", time.Hour)
	require.NoError(t, err)
	forged, err := other.Issue(s.Game.SessionID(), uuid.New(), "mallory")
	require.NoError(t, err)
	resp, _ = do(t, ts, http.MethodPost, "/game/draw", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// After a reset the old session's tokens are void.
	resp, _ = do(t, ts, http.MethodPost, "/game/reset", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, ts, http.MethodGet, "/game/hand", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTurnRequests(t *testing.T) {
	_, ts := newTestServer(t)
	_, annaToken := join(t, ts, "anna")
	_, benToken := join(t, ts, "ben")
	resp, _ := do(t, ts, http.MethodPost, "/game/start", annaToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, ts, http.MethodPost, "/game/draw", benToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "NotPlayersTurn", body["errorKind"])

	_, body = do(t, ts, http.MethodPost, "/game/pass", annaToken, nil)
	assert.Equal(t, "MustDrawBeforePass", body["errorKind"])

	resp, body = do(t, ts, http.MethodPost, "/game/draw", annaToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["ok"], "%v", body)
	effects := body["effects"].(map[string]interface{})
	assert.Equal(t, "free", effects["drawReason"])
	assert.NotNil(t, effects["drawn"])

	_, body = do(t, ts, http.MethodPost, "/game/pass", annaToken, nil)
	require.Equal(t, true, body["ok"], "%v", body)

	resp, body = do(t, ts, http.MethodPost, "/game/play", benToken, map[string]string{"card": "red"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "BadRequest", body["errorKind"])

	resp, _ = do(t, ts, http.MethodPost, "/game/play", benToken, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = do(t, ts, http.MethodPost, "/game/choose-color", benToken, map[string]string{"color": "teal"})
	assert.Equal(t, "InvalidColor", body["errorKind"])

	_, body = do(t, ts, http.MethodPost, "/game/declare", benToken, nil)
	assert.Equal(t, "CannotDeclare", body["errorKind"])
}

func TestStateViews(t *testing.T) {
	_, ts := newTestServer(t)
	annaID, annaToken := join(t, ts, "anna")
	join(t, ts, "ben")
	resp, _ := do(t, ts, http.MethodPost, "/game/start", annaToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	revealed := func(body map[string]interface{}) int {
		n := 0
		for _, p := range body["players"].([]interface{}) {
			if _, has := p.(map[string]interface{})["revealedHand"]; has {
				n++
			}
		}
		return n
	}

	_, public := do(t, ts, http.MethodGet, "/game/state", "", nil)
	assert.Equal(t, "playing", public["phase"])
	assert.Equal(t, 0, revealed(public))

	_, own := do(t, ts, http.MethodGet, "/game/state", annaToken, nil)
	assert.Equal(t, 1, revealed(own))
	assert.Equal(t, annaID.String(), own["currentPlayerId"])
}

func TestLeaveRoute(t *testing.T) {
	_, ts := newTestServer(t)
	_, annaToken := join(t, ts, "anna")
	benID, benToken := join(t, ts, "ben")
	carlaID, _ := join(t, ts, "carla")

	resp, _ := do(t, ts, http.MethodDelete, "/players/"+carlaID.String(), benToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodDelete, "/players/not-a-uuid", annaToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := do(t, ts, http.MethodDelete, "/players/"+carlaID.String(), annaToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])

	resp, _ = do(t, ts, http.MethodDelete, "/players/"+benID.String(), benToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, ts, http.MethodGet, "/game/hand", benToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestArchivesDisabledWithoutBackends(t *testing.T) {
	_, ts := newTestServer(t)
	resp, _ := do(t, ts, http.MethodGet, "/results", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp, _ = do(t, ts, http.MethodGet, "/game/history", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	_, ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/game/play", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")

	req.Header.Set("Origin", "http://evil.example")
	resp2, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}

// readUntil reads websocket messages until one has the wanted type.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, wantType string) map[string]interface{} {
	t.Helper()
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err, "waiting for %s", wantType)
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg["type"] == wantType {
			return msg
		}
	}
}

func TestWebsocketSyncAndActions(t *testing.T) {
	s, ts := newTestServer(t)
	annaID, annaToken := join(t, ts, "anna")
	join(t, ts, "ben")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=" + annaToken
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	syncMsg := readUntil(t, ctx, conn, string(game.EventPrivateSyncState))
	state := syncMsg["state"].(map[string]interface{})
	assert.Equal(t, "lobby", state["phase"])
	assert.Eventually(t, func() bool { return s.Hub.Connected() == 1 }, time.Second, 10*time.Millisecond)

	// A request from another client is pushed to this one.
	resp, _ := do(t, ts, http.MethodPost, "/game/start", annaToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	start := readUntil(t, ctx, conn, string(game.EventGameStart))
	assert.NotNil(t, start["card"])

	b, err := json.Marshal(map[string]interface{}{"type": "action_draw"})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, b))

	// The session pushes snapshots before the hub answers the request.
	var lastSync map[string]interface{}
	var reply map[string]interface{}
	for reply == nil {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err, "waiting for action_result")
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &msg))
		switch msg["type"] {
		case string(game.EventPrivateSyncState):
			lastSync = msg["state"].(map[string]interface{})
		case "action_result":
			reply = msg
		}
	}
	assert.Equal(t, "action_draw", reply["action"])
	outcome := reply["outcome"].(map[string]interface{})
	assert.Equal(t, true, outcome["ok"], "%v", outcome)

	require.NotNil(t, lastSync)
	assert.Equal(t, true, lastSync["drewThisTurn"])
	assert.Equal(t, true, lastSync["canPass"])
	snap := s.Game.Snapshot(annaID)
	assert.True(t, snap.DrewThisTurn)
	assert.True(t, snap.CanPass)

	_, _, err = websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws?token=bogus", nil)
	assert.Error(t, err)
}

func TestWebsocketRejectsForeignOrigin(t *testing.T) {
	_, ts := newTestServer(t)
	_, token := join(t, ts, "anna")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws?token="+token,
		&websocket.DialOptions{HTTPHeader: header})
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}
}
