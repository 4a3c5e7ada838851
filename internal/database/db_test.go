package database

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveDisabled(t *testing.T) {
	require.Nil(t, DB)
	ctx := context.Background()

	assert.NoError(t, StoreGameResult(ctx, GameResult{GameID: uuid.New(), FinishedAt: time.Now()}))
	res, err := RecentResults(ctx, 10)
	assert.NoError(t, err)
	assert.Empty(t, res)
	Close()
}

func TestStandingJSON(t *testing.T) {
	s := Standing{PlayerID: uuid.Nil, Name: "alice", Rank: 1}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"playerId":"00000000-0000-0000-0000-000000000000","name":"alice","rank":1,"points":0}`, string(data))
}
