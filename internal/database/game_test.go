// internal/database/game_test.go
package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minesweep/internal/cache"
	"github.com/jason-s-yu/minesweep/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerResults(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	g := &models.Game{
		Players: []models.Player{{ID: a, Name: "a", Score: 12}, {ID: b, Name: "b", Score: 3}},
		Winner:  a.String(),
	}

	res := playerResults(g)
	require.Len(t, res, 2)
	assert.True(t, res[0].DidWin)
	assert.Equal(t, 12, res[0].Score)
	assert.False(t, res[1].DidWin)

	g.Winner = models.WinnerDraw
	for _, r := range playerResults(g) {
		assert.False(t, r.DidWin)
	}
}

func TestRecordGameResultRejectsPlayingGame(t *testing.T) {
	a := NewArchive(nil)
	err := a.RecordGameResult(context.Background(), &models.Game{Status: models.GamePlaying, StartedAt: time.Now()})
	assert.Error(t, err)
}

func TestActionPayload(t *testing.T) {
	b, err := actionPayload(cache.GameActionRecord{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))

	b, err = actionPayload(cache.GameActionRecord{ActionPayload: map[string]interface{}{"row": 1, "col": 2}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"row":1,"col":2}`, string(b))

	assert.Nil(t, actorID(uuid.Nil))
	id := uuid.New()
	assert.Equal(t, id, *actorID(id))
}

func TestWriteActionsEmptyBatch(t *testing.T) {
	assert.NoError(t, NewArchive(nil).WriteActions(context.Background(), nil))
}
