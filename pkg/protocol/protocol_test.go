package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywars/warcore/pkg/core"
)

func TestActionCodes_EveryActionHasMessageCodes(t *testing.T) {
	for _, action := range core.AllActionCodes() {
		code, ok := ActionMessageCode(action)
		if !ok {
			t.Errorf("%s has no message code", action)
			continue
		}
		assert.True(t, code.IsServer(), "%s broadcasts with a server code", action)

		got, ok := ActionFor(code)
		require.True(t, ok)
		assert.Equal(t, action, got)

		got, ok = ActionFor(code - 1)
		require.True(t, ok)
		assert.Equal(t, action, got)
	}
	assert.Len(t, ActionResponseCodes(), len(core.AllActionCodes()))
}

func TestCode_ResponseAndString(t *testing.T) {
	assert.Equal(t, S_McwPlayerSyncWar, C_McwPlayerSyncWar.Response())
	assert.Equal(t, S_McwUnitAttack, S_McwUnitAttack.Response())
	assert.Equal(t, "S_McwUnitAttack", S_McwUnitAttack.String())
	assert.Equal(t, "C_McwPlayerSyncWar", C_McwPlayerSyncWar.String())
	assert.Equal(t, "Code(42)", Code(42).String())

	_, ok := ActionFor(C_McwPlayerSyncWar)
	assert.False(t, ok)
}

func TestMarshalUnmarshal_WarAction(t *testing.T) {
	msg := core.WarAction{
		WarID: 7,
		ActionContainer: core.ActionContainer{
			ActionID:      12,
			PlayerEndTurn: &core.PlayerEndTurn{},
		},
	}
	data, err := Marshal(S_McwPlayerEndTurn, msg)
	require.NoError(t, err)

	env, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, S_McwPlayerEndTurn, env.Code)

	var got core.WarAction
	require.NoError(t, env.Decode(&got))
	assert.Equal(t, int64(7), got.WarID)
	assert.Equal(t, 12, got.ActionContainer.ActionID)
	assert.Equal(t, core.ActionPlayerEndTurn, got.ActionContainer.Code())
}

func TestMarshal_NilPayload(t *testing.T) {
	data, err := Marshal(C_Heartbeat, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":1}`, string(data))

	env, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Error(t, env.Decode(&struct{}{}))
}

func TestUnmarshal_Invalid(t *testing.T) {
	_, err := Unmarshal([]byte("not json"))
	assert.Error(t, err)
}
