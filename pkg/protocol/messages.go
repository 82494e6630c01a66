package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/tinywars/warcore/pkg/core"
)

// Envelope wraps every message on a war connection.
type Envelope struct {
	Code    Code            `json:"code"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ErrorPayload is carried by S_Error.
type ErrorPayload struct {
	ErrorCode int    `json:"errorCode"`
	Message   string `json:"message"`
}

// ContinueWarPayload enters a running war as one of its players.
type ContinueWarPayload struct {
	PlayerIndex int                 `json:"playerIndex"`
	War         *core.SerializedWar `json:"war"`
}

// GetReplayDataRequest asks for a stored war.
type GetReplayDataRequest struct {
	WarID int64 `json:"warId"`
}

// SpectatorUpdate is the fog-filtered state pushed to spectators after
// every applied action.
type SpectatorUpdate struct {
	WarID        int64               `json:"warId"`
	NextActionID int                 `json:"nextActionId"`
	Action       *core.ActionCode    `json:"action,omitempty"`
	War          *core.SerializedWar `json:"war"`
}

// Marshal builds the JSON encoding of an envelope around payload. A nil
// payload leaves the payload field out.
func Marshal(code Code, payload any) ([]byte, error) {
	env := Envelope{Code: code}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", code, err)
		}
		env.Payload = raw
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", code, err)
	}
	return data, nil
}

// Unmarshal decodes an envelope; the payload stays raw.
func Unmarshal(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return env, nil
}

// Decode unmarshals the payload of env into v.
func (env Envelope) Decode(v any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%s has no payload", env.Code)
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.Code, err)
	}
	return nil
}
