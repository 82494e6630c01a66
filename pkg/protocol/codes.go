// Package protocol defines the JSON envelopes exchanged with game servers,
// spectators and replay sinks. Envelopes are keyed by numeric message codes;
// a server answer carries the code of its request plus one.
package protocol

import (
	"fmt"

	"github.com/tinywars/warcore/pkg/core"
)

// Code identifies the payload of an Envelope.
type Code int

const (
	C_Heartbeat Code = 1
	S_Heartbeat Code = 2
	S_Error     Code = 10

	C_McrContinueWar   Code = 1013
	S_McrContinueWar   Code = 1014
	C_McrGetReplayData Code = 1017
	S_McrGetReplayData Code = 1018

	C_McwPlayerBeginTurn    Code = 1101
	S_McwPlayerBeginTurn    Code = 1102
	C_McwPlayerEndTurn      Code = 1103
	S_McwPlayerEndTurn      Code = 1104
	C_McwPlayerSurrender    Code = 1105
	S_McwPlayerSurrender    Code = 1106
	C_McwPlayerProduceUnit  Code = 1107
	S_McwPlayerProduceUnit  Code = 1108
	C_McwPlayerDeleteUnit   Code = 1109
	S_McwPlayerDeleteUnit   Code = 1110
	C_McwPlayerVoteForDraw  Code = 1111
	S_McwPlayerVoteForDraw  Code = 1112
	C_McwPlayerSyncWar      Code = 1113
	S_McwPlayerSyncWar      Code = 1114
	C_McwUnitWait           Code = 1151
	S_McwUnitWait           Code = 1152
	C_McwUnitBeLoaded       Code = 1153
	S_McwUnitBeLoaded       Code = 1154
	C_McwUnitCaptureTile    Code = 1155
	S_McwUnitCaptureTile    Code = 1156
	C_McwUnitAttack         Code = 1157
	S_McwUnitAttack         Code = 1158
	C_McwUnitDrop           Code = 1159
	S_McwUnitDrop           Code = 1160
	C_McwUnitBuildTile      Code = 1161
	S_McwUnitBuildTile      Code = 1162
	C_McwUnitDive           Code = 1163
	S_McwUnitDive           Code = 1164
	C_McwUnitSurface        Code = 1165
	S_McwUnitSurface        Code = 1166
	C_McwUnitJoin           Code = 1167
	S_McwUnitJoin           Code = 1168
	C_McwUnitLaunchFlare    Code = 1169
	S_McwUnitLaunchFlare    Code = 1170
	C_McwUnitLaunchSilo     Code = 1171
	S_McwUnitLaunchSilo     Code = 1172
	C_McwUnitProduceUnit    Code = 1173
	S_McwUnitProduceUnit    Code = 1174
	C_McwUnitSupply         Code = 1175
	S_McwUnitSupply         Code = 1176
	C_McwUnitLoadCo         Code = 1177
	S_McwUnitLoadCo         Code = 1178
	C_McwUnitUseCoSkill     Code = 1179
	S_McwUnitUseCoSkill     Code = 1180
	S_McwSpectatorWarUpdate Code = 1302
)

var codeNames = map[Code]string{
	C_Heartbeat:             "C_Heartbeat",
	S_Heartbeat:             "S_Heartbeat",
	S_Error:                 "S_Error",
	C_McrContinueWar:        "C_McrContinueWar",
	S_McrContinueWar:        "S_McrContinueWar",
	C_McrGetReplayData:      "C_McrGetReplayData",
	S_McrGetReplayData:      "S_McrGetReplayData",
	C_McwPlayerSyncWar:      "C_McwPlayerSyncWar",
	S_McwPlayerSyncWar:      "S_McwPlayerSyncWar",
	S_McwSpectatorWarUpdate: "S_McwSpectatorWarUpdate",
}

// actionCodes maps every war action to its client request code.
var actionCodes = map[core.ActionCode]Code{
	core.ActionPlayerBeginTurn:   C_McwPlayerBeginTurn,
	core.ActionPlayerEndTurn:     C_McwPlayerEndTurn,
	core.ActionPlayerSurrender:   C_McwPlayerSurrender,
	core.ActionPlayerProduceUnit: C_McwPlayerProduceUnit,
	core.ActionPlayerDeleteUnit:  C_McwPlayerDeleteUnit,
	core.ActionPlayerVoteForDraw: C_McwPlayerVoteForDraw,
	core.ActionUnitWait:          C_McwUnitWait,
	core.ActionUnitBeLoaded:      C_McwUnitBeLoaded,
	core.ActionUnitCaptureTile:   C_McwUnitCaptureTile,
	core.ActionUnitAttack:        C_McwUnitAttack,
	core.ActionUnitDrop:          C_McwUnitDrop,
	core.ActionUnitBuildTile:     C_McwUnitBuildTile,
	core.ActionUnitDive:          C_McwUnitDive,
	core.ActionUnitSurface:       C_McwUnitSurface,
	core.ActionUnitJoin:          C_McwUnitJoin,
	core.ActionUnitLaunchFlare:   C_McwUnitLaunchFlare,
	core.ActionUnitLaunchSilo:    C_McwUnitLaunchSilo,
	core.ActionUnitProduceUnit:   C_McwUnitProduceUnit,
	core.ActionUnitSupply:        C_McwUnitSupply,
	core.ActionUnitLoadCo:        C_McwUnitLoadCo,
	core.ActionUnitUseCoSkill:    C_McwUnitUseCoSkill,
}

var codeActions = func() map[Code]core.ActionCode {
	m := make(map[Code]core.ActionCode, 2*len(actionCodes))
	for action, code := range actionCodes {
		m[code] = action
		m[code.Response()] = action
	}
	return m
}()

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	if action, ok := codeActions[c]; ok {
		if c.IsServer() {
			return "S_Mcw" + action.String()
		}
		return "C_Mcw" + action.String()
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// IsServer reports whether c is sent by the server.
func (c Code) IsServer() bool { return c%2 == 0 }

// Response is the server code answering the client code c.
func (c Code) Response() Code {
	if c.IsServer() {
		return c
	}
	return c + 1
}

// ActionMessageCode is the server code broadcasting an executed action.
func ActionMessageCode(action core.ActionCode) (Code, bool) {
	code, ok := actionCodes[action]
	if !ok {
		return 0, false
	}
	return code.Response(), true
}

// ActionFor returns the war action carried by messages with code c.
func ActionFor(c Code) (core.ActionCode, bool) {
	action, ok := codeActions[c]
	return action, ok
}

// ActionResponseCodes lists the server codes of every war action.
func ActionResponseCodes() []Code {
	codes := make([]Code, 0, len(actionCodes))
	for _, action := range core.AllActionCodes() {
		codes = append(codes, actionCodes[action].Response())
	}
	return codes
}
