package engine

import "errors"

// Engine failures are sentinels so callers can branch on them and map
// them to stable wire codes. Every one of them aborts the whole action
// with no state or fund mutation.
var (
	ErrRoomNotInitialized  = errors.New("room is not in init state")
	ErrRoomClosed          = errors.New("room is closed for joining")
	ErrPlayerAlreadyJoined = errors.New("player has already joined the room")
	ErrRoomIsFull          = errors.New("room is full")
	ErrGameNotStarted      = errors.New("game has not started yet")
	ErrTooEarlyToEndGame   = errors.New("too early to end game")
	ErrInvalidWinner       = errors.New("winner is not a player in the room")
	ErrArithmeticOverflow  = errors.New("arithmetic overflow")
	ErrRoomNotExpirable    = errors.New("room is not expirable")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRoomCapacity        = errors.New("room id space exhausted")
	ErrRoomNotFound        = errors.New("room not found")
)

// ErrorCode maps an engine error to the wire code clients see.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotInitialized):
		return "room_not_initialized"
	case errors.Is(err, ErrRoomClosed):
		return "room_closed"
	case errors.Is(err, ErrPlayerAlreadyJoined):
		return "player_already_joined"
	case errors.Is(err, ErrRoomIsFull):
		return "room_is_full"
	case errors.Is(err, ErrGameNotStarted):
		return "game_not_started"
	case errors.Is(err, ErrTooEarlyToEndGame):
		return "too_early_to_end_game"
	case errors.Is(err, ErrInvalidWinner):
		return "invalid_winner"
	case errors.Is(err, ErrArithmeticOverflow):
		return "arithmetic_overflow"
	case errors.Is(err, ErrRoomNotExpirable):
		return "room_not_expirable"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrRoomCapacity):
		return "room_capacity"
	case errors.Is(err, ErrRoomNotFound):
		return "room_not_found"
	}
	return "server_error"
}
