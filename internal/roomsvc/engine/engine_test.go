package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trioplay/trio-services/internal/roomsvc/models"
)

const t0 int64 = 1_700_000_000

const (
	creator int64 = 11
	p2      int64 = 22
	p3      int64 = 33
	p4      int64 = 44
)

func newTestRoom() *models.Room {
	return NewRoom(1, creator, t0)
}

func fullRoom(t *testing.T) *models.Room {
	t.Helper()
	r := newTestRoom()

	started, err := Join(r, p2, t0+10)
	require.NoError(t, err)
	require.False(t, started)

	started, err = Join(r, p3, t0+20)
	require.NoError(t, err)
	require.True(t, started)

	return r
}

func TestNewRoom(t *testing.T) {
	r := newTestRoom()

	assert.Equal(t, uint64(1), r.RoomID)
	assert.Equal(t, creator, r.Creator)
	assert.Equal(t, StakingAmount, r.StakingAmount)
	assert.Equal(t, []int64{creator}, r.Players)
	assert.Equal(t, models.StateInit, r.State)
	assert.Equal(t, t0, r.CreationTime)
	assert.False(t, r.Winner.Valid)
}

func TestJoin_SecondPlayerStaysInit(t *testing.T) {
	r := newTestRoom()

	started, err := Join(r, p2, t0+100)
	require.NoError(t, err)

	assert.False(t, started)
	assert.Equal(t, models.StateInit, r.State)
	assert.Equal(t, []int64{creator, p2}, r.Players)
}

func TestJoin_ThirdPlayerStartsGame(t *testing.T) {
	r := fullRoom(t)

	assert.Equal(t, models.StateStarted, r.State)
	assert.Equal(t, []int64{creator, p2, p3}, r.Players)
	assert.False(t, r.Winner.Valid)
}

func TestJoin_WindowBoundary(t *testing.T) {
	// exactly at the window edge is still inside it
	r := newTestRoom()
	_, err := Join(r, p2, t0+JoinWindow)
	assert.NoError(t, err)

	r = newTestRoom()
	_, err = Join(r, p2, t0+JoinWindow+1)
	assert.ErrorIs(t, err, ErrRoomClosed)
	assert.Equal(t, []int64{creator}, r.Players)
	assert.Equal(t, models.StateInit, r.State)
}

func TestJoin_ClosedEvenWhenNotFull(t *testing.T) {
	r := newTestRoom()
	_, err := Join(r, p2, t0+10)
	require.NoError(t, err)

	_, err = Join(r, p3, t0+JoinWindow+50)
	assert.ErrorIs(t, err, ErrRoomClosed)
	assert.Len(t, r.Players, 2)
}

func TestJoin_DuplicatePlayer(t *testing.T) {
	r := newTestRoom()

	_, err := Join(r, creator, t0+5)
	assert.ErrorIs(t, err, ErrPlayerAlreadyJoined)

	_, err = Join(r, p2, t0+5)
	require.NoError(t, err)
	_, err = Join(r, p2, t0+6)
	assert.ErrorIs(t, err, ErrPlayerAlreadyJoined)
	assert.Equal(t, []int64{creator, p2}, r.Players)
}

func TestJoin_AfterStartFails(t *testing.T) {
	r := fullRoom(t)

	_, err := Join(r, p4, t0+30)
	assert.ErrorIs(t, err, ErrRoomNotInitialized)
	assert.Len(t, r.Players, 3)
}

func TestJoin_FullRoomStillInit(t *testing.T) {
	// membership cap is checked on its own even if the state flip
	// were ever skipped
	r := &models.Room{
		RoomID:        7,
		Creator:       creator,
		StakingAmount: StakingAmount,
		Players:       []int64{creator, p2, p3},
		State:         models.StateInit,
		CreationTime:  t0,
	}

	_, err := Join(r, p4, t0+10)
	assert.ErrorIs(t, err, ErrRoomIsFull)
	assert.Len(t, r.Players, 3)
}

func TestJoin_PlayerCountNeverExceedsMax(t *testing.T) {
	r := newTestRoom()
	joiners := []int64{p2, p3, p4, 55, 66}

	for _, p := range joiners {
		Join(r, p, t0+10)
	}

	assert.Len(t, r.Players, MaxPlayers)
	seen := map[int64]bool{}
	for _, p := range r.Players {
		assert.False(t, seen[p], "duplicate player %d", p)
		seen[p] = true
	}
}

func TestSettle_BeforeStart(t *testing.T) {
	r := newTestRoom()

	_, err := Settle(r, creator, t0+MinGameDuration)
	assert.ErrorIs(t, err, ErrGameNotStarted)
	assert.Equal(t, models.StateInit, r.State)
}

func TestSettle_TooEarly(t *testing.T) {
	r := fullRoom(t)

	_, err := Settle(r, p2, t0+MinGameDuration-1)
	assert.ErrorIs(t, err, ErrTooEarlyToEndGame)
	assert.Equal(t, models.StateStarted, r.State)
	assert.False(t, r.Winner.Valid)
}

func TestSettle_PaysFullPot(t *testing.T) {
	r := fullRoom(t)

	payout, err := Settle(r, p2, t0+MinGameDuration)
	require.NoError(t, err)

	assert.Equal(t, 3*StakingAmount, payout)
	assert.Equal(t, models.StateFinished, r.State)
	require.True(t, r.Winner.Valid)
	assert.Equal(t, p2, r.Winner.Int64)
	assert.True(t, r.HasPlayer(r.Winner.Int64))
}

func TestSettle_InvalidWinner(t *testing.T) {
	r := fullRoom(t)

	_, err := Settle(r, p4, t0+MinGameDuration+50)
	assert.ErrorIs(t, err, ErrInvalidWinner)
	assert.Equal(t, models.StateStarted, r.State)
	assert.False(t, r.Winner.Valid)
}

func TestSettle_Twice(t *testing.T) {
	r := fullRoom(t)

	_, err := Settle(r, p2, t0+MinGameDuration)
	require.NoError(t, err)

	_, err = Settle(r, p3, t0+MinGameDuration+1)
	assert.ErrorIs(t, err, ErrGameNotStarted)
	assert.Equal(t, p2, r.Winner.Int64)
}

func TestSettle_Overflow(t *testing.T) {
	r := fullRoom(t)
	r.StakingAmount = math.MaxUint64

	_, err := Settle(r, p2, t0+MinGameDuration)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
	assert.Equal(t, models.StateStarted, r.State)
	assert.False(t, r.Winner.Valid)
}

func TestExpire(t *testing.T) {
	r := newTestRoom()
	_, err := Join(r, p2, t0+10)
	require.NoError(t, err)

	// window not over yet
	_, err = Expire(r, t0+JoinWindow)
	assert.ErrorIs(t, err, ErrRoomNotExpirable)
	assert.Equal(t, models.StateInit, r.State)

	refund, err := Expire(r, t0+JoinWindow+1)
	require.NoError(t, err)
	assert.Equal(t, StakingAmount, refund)
	assert.Equal(t, models.StateExpired, r.State)
	assert.False(t, r.Winner.Valid)

	// each staked player gets exactly one stake back
	assert.Equal(t, 2*StakingAmount, refund*uint64(len(r.Players)))
}

func TestExpire_StartedRoom(t *testing.T) {
	r := fullRoom(t)

	_, err := Expire(r, t0+JoinWindow+100)
	assert.ErrorIs(t, err, ErrRoomNotExpirable)
	assert.Equal(t, models.StateStarted, r.State)
}

func TestExpire_JoinAfterwardsFails(t *testing.T) {
	r := newTestRoom()
	_, err := Expire(r, t0+JoinWindow+1)
	require.NoError(t, err)

	_, err = Join(r, p2, t0+JoinWindow+2)
	assert.ErrorIs(t, err, ErrRoomNotInitialized)
}

// The stakes paid in always equal the payout owed to the winner.
func TestRoundTripAccounting(t *testing.T) {
	r := newTestRoom()
	stakedIn := r.StakingAmount

	for _, p := range []int64{p2, p3} {
		_, err := Join(r, p, t0+30)
		require.NoError(t, err)
		stakedIn += r.StakingAmount
	}

	payout, err := Settle(r, p3, t0+MinGameDuration+5)
	require.NoError(t, err)

	assert.Equal(t, stakedIn, payout)
}

func TestMulChecked(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want uint64
		ok   bool
	}{
		{"zero", 0, 3, 0, true},
		{"small", StakingAmount, 3, 300_000_000, true},
		{"max by one", math.MaxUint64, 1, math.MaxUint64, true},
		{"overflow", math.MaxUint64, 2, 0, false},
		{"overflow large", math.MaxUint64/2 + 1, 2, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := mulChecked(tc.a, tc.b)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "room_closed", ErrorCode(ErrRoomClosed))
	assert.Equal(t, "invalid_winner", ErrorCode(ErrInvalidWinner))
	assert.Equal(t, "server_error", ErrorCode(assert.AnError))
}
