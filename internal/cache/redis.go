// Package cache holds the Redis client used as the action historian. Every
// accepted request is appended to a per-game list so a finished game can be
// replayed or audited.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rdb is the shared client. It stays nil when no REDIS_ADDR is configured and
// the historian is then a no-op.
var Rdb *redis.Client

// GameActionRecord is one historian entry.
type GameActionRecord struct {
	GameID        uuid.UUID              `json:"gameId"`
	ActionIndex   int                    `json:"actionIndex"`
	ActorUserID   uuid.UUID              `json:"actorUserId"`
	ActionType    string                 `json:"actionType"`
	ActionPayload map[string]interface{} `json:"actionPayload"`
	Timestamp     int64                  `json:"timestamp"`
}

// ConnectRedis dials addr and pings it.
func ConnectRedis(ctx context.Context, addr string) error {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis ping %s: %w", addr, err)
	}
	Rdb = client
	return nil
}

// Close releases the shared client.
func Close() error {
	if Rdb == nil {
		return nil
	}
	err := Rdb.Close()
	Rdb = nil
	return err
}

// ActionsKey is the list key holding a game's actions.
func ActionsKey(gameID uuid.UUID) string {
	return "game:" + gameID.String() + ":actions"
}

// PublishGameAction appends rec to its game's list.
func PublishGameAction(ctx context.Context, rec GameActionRecord) error {
	if Rdb == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding action %d: %w", rec.ActionIndex, err)
	}
	return Rdb.RPush(ctx, ActionsKey(rec.GameID), data).Err()
}

// GameActions returns the recorded actions of a game in order.
func GameActions(ctx context.Context, gameID uuid.UUID) ([]GameActionRecord, error) {
	if Rdb == nil {
		return nil, nil
	}
	raw, err := Rdb.LRange(ctx, ActionsKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading actions of %s: %w", gameID, err)
	}
	out := make([]GameActionRecord, 0, len(raw))
	for _, s := range raw {
		var rec GameActionRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("decoding action of %s: %w", gameID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
