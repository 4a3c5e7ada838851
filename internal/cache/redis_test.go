package cache

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionsKey(t *testing.T) {
	id := uuid.MustParse("6f1c1f7e-8c61-4d1a-9d3b-3d2f0c1b2a10")
	assert.Equal(t, "game:6f1c1f7e-8c61-4d1a-9d3b-3d2f0c1b2a10:actions", ActionsKey(id))
}

func TestHistorianDisabled(t *testing.T) {
	require.Nil(t, Rdb)
	ctx := context.Background()

	assert.NoError(t, PublishGameAction(ctx, GameActionRecord{GameID: uuid.New(), ActionType: "play"}))
	recs, err := GameActions(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Empty(t, recs)
	assert.NoError(t, Close())
}
