package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func endTurns(from, to int) []ActionContainer {
	var actions []ActionContainer
	for id := from; id < to; id++ {
		actions = append(actions, ActionContainer{ActionID: id, PlayerEndTurn: &PlayerEndTurn{}})
	}
	return actions
}

func TestNewReplayData(t *testing.T) {
	snapshot := SerializedWar{WarID: 3, NextActionID: 2, ExecutedActions: endTurns(0, 2)}

	data, err := NewReplayData(snapshot, endTurns(2, 5))
	require.NoError(t, err)

	assert.Equal(t, int64(3), data.WarID)
	assert.Len(t, data.Actions, 5)
	assert.Nil(t, data.Snapshot.ExecutedActions, "executed actions move into the action log")
	assert.Equal(t, 2, data.Snapshot.NextActionID)
}

func TestNewReplayData_StartsMidWar(t *testing.T) {
	data, err := NewReplayData(SerializedWar{WarID: 3, NextActionID: 4}, endTurns(4, 6))
	require.NoError(t, err)

	assert.Equal(t, 4, data.FirstActionID())
	assert.Len(t, data.Actions, 2)
}

func TestNewReplayData_Gaps(t *testing.T) {
	_, err := NewReplayData(SerializedWar{WarID: 3}, append(endTurns(0, 2), endTurns(3, 4)...))
	assert.Error(t, err, "ids must be consecutive")

	_, err = NewReplayData(SerializedWar{WarID: 3, NextActionID: 1}, endTurns(2, 4))
	assert.Error(t, err, "the log starts after the snapshot")

	_, err = NewReplayData(SerializedWar{WarID: 3, NextActionID: 4}, endTurns(0, 2))
	assert.Error(t, err, "the snapshot is ahead of the log")
}

func TestReplayData_FirstActionIDEmptyLog(t *testing.T) {
	data := &ReplayData{Snapshot: SerializedWar{NextActionID: 7}}

	assert.Equal(t, 7, data.FirstActionID())
	assert.NoError(t, data.Validate())
}
