package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	config "github.com/trioplay/trio-services/configs"
	"github.com/trioplay/trio-services/internal/comm"
	natscli "github.com/trioplay/trio-services/internal/nats"
	roombroker "github.com/trioplay/trio-services/internal/roomsvc/broker"
	"github.com/trioplay/trio-services/internal/roomsvc/db"
	"github.com/trioplay/trio-services/internal/roomsvc/engine"
	"github.com/trioplay/trio-services/internal/roomsvc/store"
)

const SERVICE_NAME = "sweep"

// rooms expired per sweep pass, keeps each pass short
const sweepBatch = 50

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	// pg connection
	dbpool, err := db.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	// Connect to NATS
	n, err := natscli.Connect(SERVICE_NAME)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer n.Conn.Close()
	log.Infof("NATS connected at %s", n.Url)

	escrowStore := store.NewEscrowStore(dbpool)
	registryStore := store.NewRegistryStore()
	roomStore := store.NewRoomStore(dbpool, registryStore, escrowStore)
	clock := engine.SystemClock{}

	ctx := context.Background()
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		expired, err := sweepExpiredRooms(ctx, roomStore, clock)
		if err != nil {
			log.Errorf("sweep pass failed: %v", err)
			continue
		}

		for _, note := range expired {
			publishExpired(n, note)
		}
	}
}

// sweepExpiredRooms expires every init room whose join window has
// passed, refunding the staked players room by room.
func sweepExpiredRooms(ctx context.Context, roomStore *store.RoomStore, clock engine.Clock) ([]comm.RoomExpiredNote, error) {
	now := clock.Now()

	ids, err := roomStore.ListExpirable(ctx, now, sweepBatch)
	if err != nil {
		return nil, err
	}

	var notes []comm.RoomExpiredNote
	for _, roomID := range ids {
		room, err := roomStore.ExpireRoom(ctx, roomID, now)
		if err != nil {
			// another sweeper instance may have raced us to it
			if errors.Is(err, engine.ErrRoomNotExpirable) {
				continue
			}
			log.Errorf("expire room %d: %v", roomID, err)
			continue
		}

		notes = append(notes, comm.RoomExpiredNote{
			RoomId:   room.RoomID,
			Refunded: room.Players,
		})
	}

	if len(notes) > 0 {
		log.Infof("sweep pass expired %d rooms", len(notes))
	}
	return notes, nil
}

func publishExpired(n *natscli.Nats, note comm.RoomExpiredNote) {
	data, err := json.Marshal(note)
	if err != nil {
		log.Errorf("marshal room-expired note: %v", err)
		return
	}

	msg := &comm.WSMessage{
		Type: "room-expired",
		Data: data,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("marshal room-expired message: %v", err)
		return
	}

	if err := n.Conn.Publish(roombroker.ResponseTopic, payload); err != nil {
		log.Errorf("publish room-expired for room %d: %v", note.RoomId, err)
	}
}
