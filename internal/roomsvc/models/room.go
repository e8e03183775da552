package models

import (
	"database/sql"
	"time"
)

type GameState int16

const (
	StateInit GameState = iota
	StateStarted
	StateFinished
	StateExpired // set by the sweeper only, never by a room action
)

func (s GameState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateStarted:
		return "started"
	case StateFinished:
		return "finished"
	case StateExpired:
		return "expired"
	}
	return "unknown"
}

type Room struct {
	RoomID        uint64        `json:"room_id"` // issued by the registry counter
	Creator       int64         `json:"creator"`
	StakingAmount uint64        `json:"staking_amount"`
	Players       []int64       `json:"players"` // join order, first is always the creator
	State         GameState     `json:"state"`
	CreationTime  int64         `json:"creation_time"` // unix seconds
	Winner        sql.NullInt64 `json:"winner"`        // unset until settlement
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// HasPlayer reports whether the user already staked into the room.
func (r *Room) HasPlayer(userID int64) bool {
	for _, p := range r.Players {
		if p == userID {
			return true
		}
	}
	return false
}

// RoomInfo is the lightweight listing view of a room.
type RoomInfo struct {
	RoomID      uint64    `json:"room_id"`
	State       GameState `json:"state"`
	PlayerCount int       `json:"player_count"`
}
