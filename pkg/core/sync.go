package core

import "fmt"

// SyncWarRequest asks the server for the authoritative state of a war.
type SyncWarRequest struct {
	WarID        int64              `json:"warId"`
	NextActionID int                `json:"nextActionId"`
	RequestType  SyncWarRequestType `json:"requestType"`
}

// SyncWarResponse answers a SyncWarRequest. War is only set when the
// requester fell behind and must reload.
type SyncWarResponse struct {
	WarID        int64              `json:"warId"`
	Status       SyncWarStatus      `json:"status"`
	RequestType  SyncWarRequestType `json:"requestType"`
	NextActionID int                `json:"nextActionId"`
	War          *SerializedWar     `json:"war,omitempty"`
}

// WarAction is one executed action broadcast to the players of a war.
type WarAction struct {
	WarID           int64           `json:"warId"`
	ActionContainer ActionContainer `json:"actionContainer"`
}

// ReplayData is a finished or running war as stored: a snapshot and the
// executed actions around it. Action ids are consecutive, and the log
// covers the snapshot: Actions[0].ActionID <= Snapshot.NextActionID <=
// the id after the last action.
type ReplayData struct {
	WarID    int64             `json:"warId"`
	Snapshot SerializedWar     `json:"snapshot"`
	Actions  []ActionContainer `json:"actions"`
}

// FirstActionID is the id of Actions[0], or the snapshot's next action
// when the log is empty.
func (d *ReplayData) FirstActionID() int {
	if len(d.Actions) == 0 {
		return d.Snapshot.NextActionID
	}
	return d.Actions[0].ActionID
}

// Validate checks the action log against the snapshot.
func (d *ReplayData) Validate() error {
	first := d.FirstActionID()
	for i, c := range d.Actions {
		if c.ActionID != first+i {
			return fmt.Errorf("war %d: action %d has id %d", d.WarID, first+i, c.ActionID)
		}
	}
	if next := d.Snapshot.NextActionID; next < first || next > first+len(d.Actions) {
		return fmt.Errorf("war %d: snapshot starts at action %d, log covers [%d, %d]",
			d.WarID, next, first, first+len(d.Actions))
	}
	return nil
}

// ReplayCheckPoint is the state right before ActionID, taken at the start
// of a turn.
type ReplayCheckPoint struct {
	ActionID int           `json:"actionId"`
	Snapshot SerializedWar `json:"snapshot"`
}

// NewReplayData joins a recording's start snapshot with the actions recorded
// after it. Actions the snapshot carries in ExecutedActions come first.
func NewReplayData(snapshot SerializedWar, recorded []ActionContainer) (*ReplayData, error) {
	actions := make([]ActionContainer, 0, len(snapshot.ExecutedActions)+len(recorded))
	actions = append(actions, snapshot.ExecutedActions...)
	actions = append(actions, recorded...)
	snapshot.ExecutedActions = nil

	data := &ReplayData{WarID: snapshot.WarID, Snapshot: snapshot, Actions: actions}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return data, nil
}
