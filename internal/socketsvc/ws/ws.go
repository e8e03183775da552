package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/trioplay/trio-services/internal/comm"
	"github.com/trioplay/trio-services/internal/socketsvc/broker"
)

// RequestTopic is the outbox for client room actions; roomsvc
// subscribes there and answers on room.service. Payment actions go to
// paysvc on their own topic.
const (
	RequestTopic = "socket.service"
	PaymentTopic = "payment.service"
)

type Ws struct {
	connMap sync.Map // to keep track of socket connection with socketId
	Broker  *broker.Broker
}

func NewWs() *Ws {
	return &Ws{}
}

// handle socket message from web clients
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case "init", "get-balance", "create-room", "join-room", "end-game", "get-room", "list-rooms":
		s.forward(RequestTopic, socketId, message)
	case "deposit", "transfer":
		s.forward(PaymentTopic, socketId, message)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

// forward stamps the socket id and publishes the action on the bus.
func (s *Ws) forward(topic, socketId string, msg *comm.WSMessage) {
	if len(msg.Data) == 0 {
		log.Errorf("empty payload for %s from socket %s", msg.Type, socketId)
		return
	}

	msg.SocketId = socketId

	bytes, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to marshal WSMessage for NATS: %v", err)
		return
	}

	if err := s.Broker.Publish(topic, bytes); err != nil {
		log.Errorf("Failed to publish to NATS topic %s: %v", topic, err)
		return
	}

	log.Debugf("forwarded %s from socket %s", msg.Type, socketId)
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, conn)
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	conn, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return conn.(*websocket.Conn), true
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
}

// EachConnection visits every live socket, for broadcast frames.
func (s *Ws) EachConnection(fn func(socketId string, conn *websocket.Conn)) {
	s.connMap.Range(func(key, value interface{}) bool {
		fn(key.(string), value.(*websocket.Conn))
		return true
	})
}
