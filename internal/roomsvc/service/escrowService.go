package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/trioplay/trio-services/internal/roomsvc/models"
	"github.com/trioplay/trio-services/internal/roomsvc/store"
)

type EscrowService struct {
	escrowStore *store.EscrowStore
}

func NewEscrowService(store *store.EscrowStore) *EscrowService {
	return &EscrowService{escrowStore: store}
}

func (s *EscrowService) GetUserBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	return s.escrowStore.UserBalance(ctx, userID)
}

func (s *EscrowService) GetRoomEscrow(ctx context.Context, roomID uint64) (decimal.Decimal, error) {
	return s.escrowStore.RoomBalance(ctx, roomID)
}

func (s *EscrowService) GetUserEntries(ctx context.Context, userID int64, limit int) ([]models.EscrowEntry, error) {
	return s.escrowStore.UserEntries(ctx, userID, limit)
}
