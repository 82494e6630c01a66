// Package model holds the gorm tables that war records are stored in.
package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels lists every table, in migration order.
var DatabaseModels = []any{
	&ServerInfo{},
	&War{},
	&WarPlayer{},
	&WarAction{},
	&CheckPoint{},
}

// ServerInfo describes the server instance that recorded the wars.
type ServerInfo struct {
	gorm.Model
	Name        string `json:"name" gorm:"size:127"`
	Description string `json:"description" gorm:"size:255"`
	Website     string `json:"website" gorm:"size:255"`
}

func (*ServerInfo) TableName() string { return "server_infos" }

// War is one recorded war. Its id comes from the game server.
type War struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Name          string    `json:"name" gorm:"size:127"`
	MapFileName   string    `json:"mapFileName" gorm:"size:255;index"`
	ConfigVersion string    `json:"configVersion" gorm:"size:63"`
	HasFog        bool      `json:"hasFog"`
	// StartActionID is the first action id the snapshot has not executed.
	StartActionID int          `json:"startActionId"`
	NextActionID  int          `json:"nextActionId"`
	Outcome       string       `json:"outcome" gorm:"size:31"`
	EndedAt       sql.NullTime `json:"endedAt"`
	// Snapshot is the core.SerializedWar recording started from.
	Snapshot datatypes.JSON `json:"snapshot"`
	Players  []WarPlayer    `json:"players" gorm:"foreignKey:WarID"`
}

func (*War) TableName() string { return "wars" }

type WarPlayer struct {
	ID          uint   `json:"id" gorm:"primarykey;autoIncrement"`
	WarID       int64  `json:"warId" gorm:"index"`
	PlayerIndex int    `json:"playerIndex"`
	TeamIndex   int    `json:"teamIndex"`
	UserID      *int64 `json:"userId"`
	Nickname    string `json:"nickname" gorm:"size:63"`
}

func (*WarPlayer) TableName() string { return "war_players" }

// WarAction is one executed action. (WarID, ActionID) is unique.
type WarAction struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement"`
	WarID     int64          `json:"warId" gorm:"uniqueIndex:idx_war_action"`
	ActionID  int            `json:"actionId" gorm:"uniqueIndex:idx_war_action"`
	Code      string         `json:"code" gorm:"size:31"`
	Time      time.Time      `json:"time"`
	Container datatypes.JSON `json:"container"`
}

func (*WarAction) TableName() string { return "war_actions" }

// CheckPoint is the war right before ActionID, taken when a turn starts.
type CheckPoint struct {
	ID          uint           `json:"id" gorm:"primarykey;autoIncrement"`
	WarID       int64          `json:"warId" gorm:"uniqueIndex:idx_war_checkpoint"`
	ActionID    int            `json:"actionId" gorm:"uniqueIndex:idx_war_checkpoint"`
	TurnIndex   int            `json:"turnIndex"`
	PlayerIndex int            `json:"playerIndex"`
	Time        time.Time      `json:"time"`
	Snapshot    datatypes.JSON `json:"snapshot"`
}

func (*CheckPoint) TableName() string { return "check_points" }
