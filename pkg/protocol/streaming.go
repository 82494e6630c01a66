package protocol

import (
	"encoding/json"

	"github.com/tinywars/warcore/pkg/core"
)

// Stream message types sent to a replay sink.
const (
	TypeStartWar   = "start_war"
	TypeWarAction  = "war_action"
	TypeCheckPoint = "checkpoint"
	TypeEndWar     = "end_war"
)

// StreamEnvelope wraps all messages sent to a replay sink.
type StreamEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the sink's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

type StartWarPayload struct {
	Snapshot *core.SerializedWar `json:"snapshot"`
}

type CheckPointPayload struct {
	WarID      int64                 `json:"warId"`
	CheckPoint core.ReplayCheckPoint `json:"checkPoint"`
}

type EndWarPayload struct {
	WarID        int64  `json:"warId"`
	Outcome      string `json:"outcome"`
	NextActionID int    `json:"nextActionId"`
}
