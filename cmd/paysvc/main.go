package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	config "github.com/trioplay/trio-services/configs"
	"github.com/trioplay/trio-services/internal/comm"
	natscli "github.com/trioplay/trio-services/internal/nats"
	roombroker "github.com/trioplay/trio-services/internal/roomsvc/broker"
	"github.com/trioplay/trio-services/internal/roomsvc/db"
	"github.com/trioplay/trio-services/internal/roomsvc/engine"
	"github.com/trioplay/trio-services/internal/roomsvc/store"
)

const SERVICE_NAME = "pay"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

// confirmation ids from the payment provider look like FT followed by
// at least ten alphanumerics
var refRe = regexp.MustCompile(`^FT[A-Z0-9]{10,}$`)

func main() {
	// pg connection
	dbpool, err := db.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	// Connect to NATS
	nc, err := natscli.Connect(SERVICE_NAME)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer nc.Conn.Close()
	log.Infof("NATS connected at %s", nc.Url)

	escrowStore := store.NewEscrowStore(dbpool)

	// Subscribe to payment service
	_, err = nc.Conn.Subscribe("payment.service", func(m *nats.Msg) {
		handlePaymentService(nc, escrowStore, m)
	})
	if err != nil {
		log.Fatalf("Subscribe payment.service error: %v", err)
	}

	select {}
}

func handlePaymentService(nc *natscli.Nats, escrowStore *store.EscrowStore, msg *nats.Msg) {
	// Decode wrapper
	var ws comm.WSMessage
	if err := json.Unmarshal(msg.Data, &ws); err != nil {
		log.Errorf("invalid WSMessage: %v", err)
		return
	}

	switch ws.Type {
	case "deposit":
		handleDeposit(nc, escrowStore, ws)
	case "transfer":
		handleTransfer(nc, escrowStore, ws)
	default:
		log.Warnf("unknown message type: %s", ws.Type)
	}
}

func handleDeposit(nc *natscli.Nats, escrowStore *store.EscrowStore, ws comm.WSMessage) {
	var req comm.DepositRequest
	if err := json.Unmarshal(ws.Data, &req); err != nil {
		log.Errorf("invalid DepositRequest: %v", err)
		publishPayRes(nc, "deposit-response", comm.PayRes{
			Status:    "invalid-request",
			Message:   "Invalid request format",
			Timestamp: time.Now().Unix(),
		}, ws.SocketId)
		return
	}

	if !refRe.MatchString(req.Reference) {
		publishPayRes(nc, "deposit-response", comm.PayRes{
			Status:    "invalid-reference",
			Message:   "Please include the payment confirmation reference",
			Timestamp: time.Now().Unix(),
		}, ws.SocketId)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		publishPayRes(nc, "deposit-response", comm.PayRes{
			Status:    "invalid-request",
			Message:   "Invalid deposit amount",
			Timestamp: time.Now().Unix(),
		}, ws.SocketId)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ref := fmt.Sprintf("DEP-%s", req.Reference)
	if err := escrowStore.Deposit(ctx, req.UserId, amount, ref); err != nil {
		if errors.Is(err, store.ErrDuplicateReference) {
			publishPayRes(nc, "deposit-response", comm.PayRes{
				Status:    "duplicate-reference",
				Message:   "This payment reference was already credited",
				Timestamp: time.Now().Unix(),
			}, ws.SocketId)
			return
		}
		log.Errorf("deposit for user %d: %v", req.UserId, err)
		publishPayRes(nc, "deposit-response", comm.PayRes{
			Status:    "server-error",
			Message:   "Failed to credit deposit. Please try again",
			Timestamp: time.Now().Unix(),
		}, ws.SocketId)
		return
	}

	log.Infof("deposit of %s credited to user %d ref %s", amount.StringFixed(0), req.UserId, ref)
	publishPayRes(nc, "deposit-response", comm.PayRes{
		Status:        "success",
		Message:       "Deposit credited",
		TransactionID: ref,
		Timestamp:     time.Now().Unix(),
	}, ws.SocketId)
}

func handleTransfer(nc *natscli.Nats, escrowStore *store.EscrowStore, ws comm.WSMessage) {
	var req comm.TransferRequest
	if err := json.Unmarshal(ws.Data, &req); err != nil {
		log.Errorf("invalid TransferRequest: %v", err)
		publishPayRes(nc, "transfer-response", comm.PayRes{
			Status:    "invalid-request",
			Message:   "Invalid request format",
			Timestamp: time.Now().Unix(),
		}, ws.SocketId)
		return
	}

	if req.FromUserId == 0 || req.ToUserId == 0 {
		publishPayRes(nc, "transfer-response", comm.PayRes{
			Status:    "invalid-request",
			Message:   "Missing required fields",
			Timestamp: time.Now().Unix(),
		}, ws.SocketId)
		return
	}

	if req.FromUserId == req.ToUserId {
		publishPayRes(nc, "transfer-response", comm.PayRes{
			Status:    "self-transfer",
			Message:   "Cannot transfer funds to yourself",
			Timestamp: time.Now().Unix(),
		}, ws.SocketId)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		publishPayRes(nc, "transfer-response", comm.PayRes{
			Status:    "invalid-request",
			Message:   "Invalid transfer amount",
			Timestamp: time.Now().Unix(),
		}, ws.SocketId)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	ref, err := escrowStore.Transfer(ctx, req.FromUserId, req.ToUserId, amount)
	if err != nil {
		if errors.Is(err, engine.ErrInsufficientBalance) {
			publishPayRes(nc, "transfer-response", comm.PayRes{
				Status:    "insufficient-balance",
				Message:   "Insufficient balance for this transfer",
				Timestamp: time.Now().Unix(),
			}, ws.SocketId)
			return
		}
		log.Errorf("transfer %d -> %d: %v", req.FromUserId, req.ToUserId, err)
		publishPayRes(nc, "transfer-response", comm.PayRes{
			Status:    "server-error",
			Message:   "Failed to process transfer. Please try again",
			Timestamp: time.Now().Unix(),
		}, ws.SocketId)
		return
	}

	log.Infof("transfer of %s from user %d to user %d ref %s", amount.StringFixed(0), req.FromUserId, req.ToUserId, ref)
	publishPayRes(nc, "transfer-response", comm.PayRes{
		Status:        "success",
		Message:       "Transfer completed successfully",
		TransactionID: ref,
		Timestamp:     time.Now().Unix(),
	}, ws.SocketId)
}

func publishPayRes(nc *natscli.Nats, msgType string, res comm.PayRes, socketId string) {
	data, err := json.Marshal(res)
	if err != nil {
		log.Errorf("marshal %s: %v", msgType, err)
		return
	}

	msg := &comm.WSMessage{
		Type:     msgType,
		Data:     data,
		SocketId: socketId,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	if err := nc.Conn.Publish(roombroker.ResponseTopic, payload); err != nil {
		log.Errorf("publish %s: %v", msgType, err)
	}
}
