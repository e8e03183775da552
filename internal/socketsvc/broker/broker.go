package broker

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/trioplay/trio-services/internal/comm"
)

type Broker struct {
	Conn          *nats.Conn
	GetConnection func(string) (*websocket.Conn, bool)

	// Broadcast frames (empty socket id) go to every connection.
	EachConnection func(func(socketId string, conn *websocket.Conn))
}

func NewBroker(conn *nats.Conn, fncGetConnection func(string) (*websocket.Conn, bool),
	fncEachConnection func(func(string, *websocket.Conn))) *Broker {
	return &Broker{
		Conn:           conn,
		GetConnection:  fncGetConnection,
		EachConnection: fncEachConnection,
	}
}

// consume responses from room service
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// publish message to room service
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

// handleMessages receives responses from the room service
func (b *Broker) handleMessages(msgNats *nats.Msg) {
	message := &comm.WSMessage{}
	err := json.Unmarshal(msgNats.Data, &message)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	switch message.Type {
	case "init-response", "balance-resp",
		"create-room-response", "join-room-response", "end-game-response",
		"get-room-response", "list-rooms-response",
		"deposit-response", "transfer-response":
		b.sendMessage(message)
	case "room-update", "room-settled", "room-expired":
		b.broadcast(message)
	default:
		log.Error("Unknown message")
		return
	}
}

// send socket message to the web client
func (b *Broker) sendMessage(m *comm.WSMessage) {
	socketId := m.SocketId
	if conn, ok := b.GetConnection(socketId); ok {
		if err := conn.WriteJSON(m); err != nil {
			log.Println(err)
		}
	}
}

func (b *Broker) broadcast(m *comm.WSMessage) {
	b.EachConnection(func(socketId string, conn *websocket.Conn) {
		if err := conn.WriteJSON(m); err != nil {
			log.Errorf("broadcast to socket %s: %v", socketId, err)
		}
	})
}
