package broker

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/trioplay/trio-services/internal/archive"
	"github.com/trioplay/trio-services/internal/comm"
	"github.com/trioplay/trio-services/internal/roomsvc/engine"
	"github.com/trioplay/trio-services/internal/roomsvc/models"
	"github.com/trioplay/trio-services/internal/roomsvc/service"
)

// ResponseTopic is where room action outcomes go; the socket gateway
// subscribes there and routes frames back by socket id.
const ResponseTopic = "room.service"

type Broker struct {
	Conn          *nats.Conn
	UserService   *service.UserService
	EscrowService *service.EscrowService
	RoomService   *service.RoomService
	Archive       *archive.Store
}

func NewBroker(nc *nats.Conn, userService *service.UserService,
	escrowService *service.EscrowService, roomService *service.RoomService,
	archiveStore *archive.Store) *Broker {
	return &Broker{
		Conn:          nc,
		UserService:   userService,
		EscrowService: escrowService,
		RoomService:   roomService,
		Archive:       archiveStore,
	}
}

// handles message coming from socket
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	//unmarshal nats message
	msg := &comm.WSMessage{}
	err := json.Unmarshal(msgNat.Data, &msg)
	if err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}

	switch msg.Type {
	case "init":
		userInfo := models.User{}
		if err := json.Unmarshal(msg.Data, &userInfo); err != nil {
			log.Errorf("Error %s", err)
			return
		}

		user, err := b.UserService.GetOrCreateUser(userInfo)
		if err != nil {
			log.Errorf("Error [UserService.GetOrCreateUser] %s", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		balance, err := b.EscrowService.GetUserBalance(ctx, user.UserId)
		if err != nil {
			log.Errorf("Error [EscrowService.GetUserBalance] %s", err)
			return
		}

		b.publishResponse("init-response", comm.PlayerData{
			Name:    user.Name,
			UserId:  user.UserId,
			Balance: balance.StringFixed(0),
		}, msg.SocketId)
	case "get-balance":
		var request comm.BalanceRequest
		if err := json.Unmarshal(msg.Data, &request); err != nil {
			log.Errorf("Error %s", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		balance, err := b.EscrowService.GetUserBalance(ctx, request.UserId)
		if err != nil {
			log.Errorf("Error getBalance %s", err)
			return
		}

		b.publishResponse("balance-resp", comm.PlayerData{
			UserId:  request.UserId,
			Balance: balance.StringFixed(0),
		}, msg.SocketId)
	case "create-room":
		var request comm.CreateRoomRequest
		if err := json.Unmarshal(msg.Data, &request); err != nil {
			log.Errorf("Error decoding create-room: %s", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		room, err := b.RoomService.CreateRoom(ctx, request.UserId)
		if err != nil {
			log.Errorf("Error [RoomService.CreateRoom] user %d: %s", request.UserId, err)
			b.publishError("create-room-response", err, msg.SocketId)
			return
		}

		b.publishRoom(ctx, "create-room-response", room, msg.SocketId)
	case "join-room":
		var request comm.JoinRoomRequest
		if err := json.Unmarshal(msg.Data, &request); err != nil {
			log.Errorf("Error decoding join-room: %s", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		room, err := b.RoomService.JoinRoom(ctx, request.RoomId, request.UserId)
		if err != nil {
			log.Errorf("Error [RoomService.JoinRoom] room %d user %d: %s", request.RoomId, request.UserId, err)
			b.publishError("join-room-response", err, msg.SocketId)
			return
		}

		b.publishRoom(ctx, "join-room-response", room, msg.SocketId)
		// everyone watching the lobby sees the membership change
		b.publishRoom(ctx, "room-update", room, "")
	case "end-game":
		var request comm.EndGameRequest
		if err := json.Unmarshal(msg.Data, &request); err != nil {
			log.Errorf("Error decoding end-game: %s", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		room, err := b.RoomService.EndGame(ctx, request.RoomId, request.UserId, request.Winner)
		if err != nil {
			log.Errorf("Error [RoomService.EndGame] room %d: %s", request.RoomId, err)
			b.publishError("end-game-response", err, msg.SocketId)
			return
		}

		b.archiveSettlement(ctx, room)
		b.publishRoom(ctx, "end-game-response", room, msg.SocketId)
		b.publishSettled(room)
	case "get-room":
		var request comm.GetRoomRequest
		if err := json.Unmarshal(msg.Data, &request); err != nil {
			log.Errorf("Error decoding get-room: %s", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		room, err := b.RoomService.GetRoom(ctx, request.RoomId)
		if err != nil {
			log.Errorf("Error [RoomService.GetRoom] room %d: %s", request.RoomId, err)
			b.publishError("get-room-response", err, msg.SocketId)
			return
		}

		b.publishRoom(ctx, "get-room-response", room, msg.SocketId)
	case "list-rooms":
		var request comm.ListRoomsRequest
		if err := json.Unmarshal(msg.Data, &request); err != nil {
			log.Errorf("Error decoding list-rooms: %s", err)
			return
		}
		if request.Limit <= 0 || request.Limit > 100 {
			request.Limit = 20
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		rooms, err := b.RoomService.ListRooms(ctx, request.Limit)
		if err != nil {
			log.Errorf("Error [RoomService.ListRooms]: %s", err)
			b.publishError("list-rooms-response", err, msg.SocketId)
			return
		}

		total, err := b.RoomService.TotalRooms(ctx)
		if err != nil {
			log.Errorf("Error [RoomService.TotalRooms]: %s", err)
			b.publishError("list-rooms-response", err, msg.SocketId)
			return
		}

		b.publishResponse("list-rooms-response", comm.RoomList{Rooms: rooms, Total: total}, msg.SocketId)
	default:
		log.Error("Unknown message")
		return
	}
}

func (b *Broker) archiveSettlement(ctx context.Context, room *models.Room) {
	if b.Archive == nil || !room.Winner.Valid {
		return
	}

	pot := new(big.Int).Mul(
		new(big.Int).SetUint64(room.StakingAmount),
		big.NewInt(int64(len(room.Players))),
	)

	rec := archive.Settlement{
		RoomID:    int64(room.RoomID),
		Winner:    room.Winner.Int64,
		Payout:    pot.String(),
		Players:   room.Players,
		SettledAt: time.Now(),
	}
	if err := b.Archive.Insert(ctx, rec); err != nil {
		// payout already committed; the archive is best effort
		log.Errorf("archive: insert settlement for room %d: %s", room.RoomID, err)
	}
}

// publishSettled tells every connected client the game is over and who
// took the pot.
func (b *Broker) publishSettled(room *models.Room) {
	if !room.Winner.Valid {
		return
	}

	pot := new(big.Int).Mul(
		new(big.Int).SetUint64(room.StakingAmount),
		big.NewInt(int64(len(room.Players))),
	)

	b.publishResponse("room-settled", comm.SettlementData{
		RoomId:  room.RoomID,
		Winner:  room.Winner.Int64,
		Payout:  pot.String(),
		Players: room.Players,
	}, "")
}

// publishRoom sends the room plus its current escrow so clients can
// show the pot without another round trip.
func (b *Broker) publishRoom(ctx context.Context, msgType string, room *models.Room, socketId string) {
	escrow, err := b.EscrowService.GetRoomEscrow(ctx, room.RoomID)
	if err != nil {
		log.Errorf("Error [EscrowService.GetRoomEscrow] room %d: %s", room.RoomID, err)
	}

	b.publishResponse(msgType, comm.RoomData{
		Room:   room,
		Escrow: escrow.StringFixed(0),
	}, socketId)
}

func (b *Broker) publishError(msgType string, actionErr error, socketId string) {
	b.publishResponse(msgType, comm.ErrorRes{
		Code:      engine.ErrorCode(actionErr),
		Message:   actionErr.Error(),
		Timestamp: time.Now().Unix(),
	}, socketId)
}

func (b *Broker) publishResponse(msgType string, payload interface{}, socketId string) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("unable to marshal %s payload", msgType)
		return
	}

	msg := &comm.WSMessage{
		Type:     msgType,
		Data:     data,
		SocketId: socketId,
	}

	out, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	b.Publish(ResponseTopic, out)
}

// consume message from socket service
func (b *Broker) SubscribSocketService(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}
