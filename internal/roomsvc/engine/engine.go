// Package engine holds the room state machine. Every decision about
// membership, timing and escrow amounts is made here, on plain values,
// so the store can run it inside a database transaction and the tests
// can run it against fixed timestamps.
package engine

import (
	"github.com/trioplay/trio-services/internal/roomsvc/models"
)

const (
	// StakingAmount is the fixed per-player stake in base units,
	// one value for all rooms.
	StakingAmount uint64 = 100_000_000

	// JoinWindow is how long after creation a room accepts joins, seconds.
	JoinWindow int64 = 300

	// MinGameDuration is the earliest settlement time measured from
	// room creation (not from the third join), seconds.
	MinGameDuration int64 = 600

	MaxPlayers = 3
)

// NewRoom initializes a room for the registry-issued id. The creator is
// always the first player and the creator's stake must be posted in the
// same transaction that persists the room.
func NewRoom(roomID uint64, creator int64, now int64) *models.Room {
	return &models.Room{
		RoomID:        roomID,
		Creator:       creator,
		StakingAmount: StakingAmount,
		Players:       []int64{creator},
		State:         models.StateInit,
		CreationTime:  now,
	}
}

// Join appends a player to the room, flipping the state to Started when
// the third player comes in. The returned started flag tells the caller
// this join was the starting one. The player's stake must be posted
// atomically with the membership change.
func Join(r *models.Room, player int64, now int64) (started bool, err error) {
	if r.State != models.StateInit {
		return false, ErrRoomNotInitialized
	}
	if now-r.CreationTime > JoinWindow {
		return false, ErrRoomClosed
	}
	if r.HasPlayer(player) {
		return false, ErrPlayerAlreadyJoined
	}
	if len(r.Players) >= MaxPlayers {
		return false, ErrRoomIsFull
	}

	r.Players = append(r.Players, player)
	if len(r.Players) == MaxPlayers {
		r.State = models.StateStarted
		started = true
	}
	return started, nil
}

// Settle finishes the game and returns the pot owed to the winner.
// The debit of the room escrow and the credit of the winner must be one
// atomic movement with the state change.
func Settle(r *models.Room, winner int64, now int64) (payout uint64, err error) {
	if r.State != models.StateStarted {
		return 0, ErrGameNotStarted
	}
	if now-r.CreationTime < MinGameDuration {
		return 0, ErrTooEarlyToEndGame
	}
	if !r.HasPlayer(winner) {
		return 0, ErrInvalidWinner
	}

	payout, ok := mulChecked(r.StakingAmount, uint64(len(r.Players)))
	if !ok {
		return 0, ErrArithmeticOverflow
	}

	r.State = models.StateFinished
	r.Winner.Int64 = winner
	r.Winner.Valid = true
	return payout, nil
}

// Expire closes a room that never filled, once the join window has
// passed. Each staked player gets exactly one stake back; the caller
// posts the refunds in the same transaction. Only Init rooms expire and
// the winner stays unset.
func Expire(r *models.Room, now int64) (refund uint64, err error) {
	if r.State != models.StateInit {
		return 0, ErrRoomNotExpirable
	}
	if now-r.CreationTime <= JoinWindow {
		return 0, ErrRoomNotExpirable
	}

	r.State = models.StateExpired
	return r.StakingAmount, nil
}

func mulChecked(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/a != b {
		return 0, false
	}
	return p, true
}
