package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/benassa-de-glassa/uno-backend/internal/game"
	"github.com/benassa-de-glassa/uno-backend/internal/models"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Client is one websocket connection bound to a seated player.
type Client struct {
	playerID uuid.UUID
	conn     *websocket.Conn
	send     chan []byte
}

// actionReply answers a request sent over the websocket.
type actionReply struct {
	Type    string       `json:"type"`
	Action  string       `json:"action"`
	Outcome game.Outcome `json:"outcome"`
}

// Hub fans game events out to connected players. Sends never block: a client
// that cannot keep up misses messages and catches up on the next snapshot.
type Hub struct {
	allowOrigins map[string]bool
	mu           sync.RWMutex
	clients      map[uuid.UUID]*Client
}

func NewHub(allow []string) *Hub {
	m := map[string]bool{}
	for _, a := range allow {
		if a != "" {
			m[a] = true
		}
	}
	return &Hub{allowOrigins: m, clients: map[uuid.UUID]*Client{}}
}

// Broadcast sends ev to every connected player.
func (h *Hub) Broadcast(ev game.GameEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		logrus.WithError(err).WithField("type", ev.Type).Error("encoding event")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- b:
		default:
		}
	}
}

// SendToPlayer sends ev to one player if they are connected.
func (h *Hub) SendToPlayer(playerID uuid.UUID, ev game.GameEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		logrus.WithError(err).WithField("type", ev.Type).Error("encoding event")
		return
	}
	h.sendRaw(playerID, b)
}

func (h *Hub) sendRaw(playerID uuid.UUID, b []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, found := h.clients[playerID]; found {
		select {
		case c.send <- b:
		default:
		}
	}
}

// register installs c, replacing an older connection of the same player.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, found := h.clients[c.playerID]; found {
		close(old.send)
	}
	h.clients[c.playerID] = c
}

// unregister removes c unless it has already been replaced. It reports
// whether c was the player's current connection.
func (h *Hub) unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, found := h.clients[c.playerID]; !found || cur != c {
		return false
	}
	delete(h.clients, c.playerID)
	close(c.send)
	return true
}

// Connected returns the number of open connections.
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades an authenticated player's request and runs the connection
// until it closes. Incoming messages are models.GameAction requests.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, g *game.Game, playerID uuid.UUID) {
	origin := r.Header.Get("Origin")
	if origin != "" && !h.allowOrigins[origin] {
		http.Error(w, "forbidden origin", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		logrus.WithError(err).Debug("websocket accept")
		return
	}
	client := &Client{playerID: playerID, conn: conn, send: make(chan []byte, 64)}
	h.register(client)
	log := logrus.WithField("player", playerID)
	log.Info("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// writer
	go func() {
		ping := time.NewTicker(15 * time.Second)
		defer func() {
			ping.Stop()
			_ = conn.Close(websocket.StatusNormalClosure, "bye")
		}()
		for {
			select {
			case msg, open := <-client.send:
				if !open {
					return
				}
				if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
					return
				}
			case <-ping.C:
				pingCtx, cancelPing := context.WithTimeout(ctx, 10*time.Second)
				err := conn.Ping(pingCtx)
				cancelPing()
				if err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if !g.HandleReconnect(playerID, conn) {
		h.unregister(client)
		return
	}

	// reader
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		var action models.GameAction
		if err := json.Unmarshal(data, &action); err != nil {
			log.WithError(err).Debug("bad websocket message")
			continue
		}
		out := g.HandlePlayerAction(playerID, action)
		if b, err := json.Marshal(actionReply{Type: "action_result", Action: action.ActionType, Outcome: out}); err == nil {
			h.sendRaw(playerID, b)
		}
	}

	if h.unregister(client) {
		g.HandleDisconnect(playerID)
	}
	log.Info("websocket disconnected")
}
