package comm

import (
	"encoding/json"

	"github.com/trioplay/trio-services/internal/roomsvc/models"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "init", "create-room"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
}

type PlayerData struct {
	Name    string `json:"name"`
	UserId  int64  `json:"user_id"`
	Balance string `json:"balance"`
}

type CreateRoomRequest struct {
	UserId int64 `json:"user_id"`
}

type JoinRoomRequest struct {
	UserId int64  `json:"user_id"`
	RoomId uint64 `json:"room_id"`
}

type EndGameRequest struct {
	UserId int64  `json:"user_id"`
	RoomId uint64 `json:"room_id"`
	Winner int64  `json:"winner"`
}

type GetRoomRequest struct {
	RoomId uint64 `json:"room_id"`
}

type ListRoomsRequest struct {
	Limit int `json:"limit"`
}

type BalanceRequest struct {
	UserId int64 `json:"user_id"`
}

type RoomData struct {
	Room   *models.Room `json:"room"`
	Escrow string       `json:"escrow"` // current pot, formatted
}

type RoomList struct {
	Rooms []*models.RoomInfo `json:"rooms"`
	Total uint64             `json:"total"` // rooms ever created
}

type SettlementData struct {
	RoomId  uint64  `json:"room_id"`
	Winner  int64   `json:"winner"`
	Payout  string  `json:"payout"`
	Players []int64 `json:"players"`
}

type DepositRequest struct {
	UserId    int64  `json:"user_id"`
	Amount    string `json:"amount"`
	Reference string `json:"reference"` // external payment confirmation id
}

type TransferRequest struct {
	FromUserId int64  `json:"from_user_id"`
	ToUserId   int64  `json:"to_user_id"`
	Amount     string `json:"amount"`
}

type PayRes struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id,omitempty"`
	Timestamp     int64  `json:"timestamp"`
}

// ErrorRes carries a stable machine code so clients can present the
// precise reason an action was rejected.
type ErrorRes struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type RoomExpiredNote struct {
	RoomId   uint64  `json:"room_id"`
	Refunded []int64 `json:"refunded"`
}
