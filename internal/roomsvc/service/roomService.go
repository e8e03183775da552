package service

import (
	"context"

	"github.com/trioplay/trio-services/internal/roomsvc/engine"
	"github.com/trioplay/trio-services/internal/roomsvc/models"
	"github.com/trioplay/trio-services/internal/roomsvc/store"
)

// RoomService fronts the room actions. Timing comes from the clock
// capability here, so the store and engine only ever see explicit
// timestamps.
type RoomService struct {
	roomStore *store.RoomStore
	clock     engine.Clock
}

func NewRoomService(roomStore *store.RoomStore, clock engine.Clock) *RoomService {
	return &RoomService{roomStore: roomStore, clock: clock}
}

func (s *RoomService) CreateRoom(ctx context.Context, creator int64) (*models.Room, error) {
	return s.roomStore.CreateRoom(ctx, creator, s.clock.Now())
}

func (s *RoomService) JoinRoom(ctx context.Context, roomID uint64, player int64) (*models.Room, error) {
	return s.roomStore.JoinRoom(ctx, roomID, player, s.clock.Now())
}

func (s *RoomService) EndGame(ctx context.Context, roomID uint64, caller, winner int64) (*models.Room, error) {
	return s.roomStore.EndGame(ctx, roomID, caller, winner, s.clock.Now())
}

func (s *RoomService) GetRoom(ctx context.Context, roomID uint64) (*models.Room, error) {
	return s.roomStore.GetRoom(ctx, roomID)
}

func (s *RoomService) ListRooms(ctx context.Context, limit int) ([]*models.RoomInfo, error) {
	return s.roomStore.ListRooms(ctx, limit)
}

func (s *RoomService) TotalRooms(ctx context.Context) (uint64, error) {
	return s.roomStore.TotalRooms(ctx)
}
