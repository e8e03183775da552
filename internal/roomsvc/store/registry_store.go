package store

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/trioplay/trio-services/internal/roomsvc/engine"
)

// RegistryStore owns the single-row global_state table:
//
//	global_state(id smallint primary key default 1, total_rooms bigint not null default 0)
//
// total_rooms counts every room ever created and doubles as the next
// room id.
type RegistryStore struct{}

func NewRegistryStore() *RegistryStore {
	return &RegistryStore{}
}

// AllocateRoomID increments the counter and returns the new value. The
// UPDATE takes the row lock, so concurrent creations serialize here and
// no two callers ever see the same id. Runs inside the room-creation
// transaction so the counter persists with the room or not at all.
func (s *RegistryStore) AllocateRoomID(ctx context.Context, tx pgx.Tx) (uint64, error) {
	var roomID int64
	err := tx.QueryRow(ctx, `
		UPDATE global_state
		SET total_rooms = total_rooms + 1
		WHERE id = 1
		RETURNING total_rooms
	`).Scan(&roomID)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate room id: %w", err)
	}
	if roomID == math.MaxInt64 {
		return 0, engine.ErrRoomCapacity
	}
	return uint64(roomID), nil
}

// TotalRooms reads the counter without touching it.
func (s *RegistryStore) TotalRooms(ctx context.Context, q Querier) (uint64, error) {
	var total int64
	err := q.QueryRow(ctx, `SELECT total_rooms FROM global_state WHERE id = 1`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to read total rooms: %w", err)
	}
	return uint64(total), nil
}
