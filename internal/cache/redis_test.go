// internal/cache/redis_test.go
package cache

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishGameAction(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	rdb, err := ConnectRedis(ctx, mr.Addr(), 0)
	require.NoError(t, err)
	defer rdb.Close()

	log := NewActionLog(rdb, "")
	rec := GameActionRecord{
		GameID:        uuid.New(),
		ActionIndex:   3,
		ActorUserID:   uuid.New(),
		ActionType:    ActionReveal,
		ActionPayload: map[string]interface{}{"row": 1, "col": 2},
		Timestamp:     1700000000000,
	}
	require.NoError(t, log.PublishGameAction(ctx, rec))
	require.NoError(t, log.PublishGameAction(ctx, rec))

	items, err := mr.List(DefaultQueueName)
	require.NoError(t, err)
	require.Len(t, items, 2)

	var got GameActionRecord
	require.NoError(t, json.Unmarshal([]byte(items[0]), &got))
	assert.Equal(t, rec.GameID, got.GameID)
	assert.Equal(t, ActionReveal, got.ActionType)
	assert.EqualValues(t, 2, got.ActionPayload["col"])
}

func TestConnectRedisFails(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := ConnectRedis(context.Background(), addr, 0)
	assert.Error(t, err)
}
