package models

import (
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Player is a seat holder as the transport sees it. The engine only knows the
// numeric id; the session maps between the two.
type Player struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Connected bool            `json:"connected"`
	Conn      *websocket.Conn `json:"-"`
	JoinedAt  time.Time       `json:"joinedAt"`
}
