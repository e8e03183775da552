package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"

	"github.com/trioplay/trio-services/internal/archive"
	"github.com/trioplay/trio-services/internal/roomsvc/engine"
	"github.com/trioplay/trio-services/internal/roomsvc/service"
)

type Handler struct {
	tokenAuth     *jwtauth.JWTAuth
	roomService   *service.RoomService
	escrowService *service.EscrowService
	archiveStore  *archive.Store
}

func NewHandler(roomService *service.RoomService, escrowService *service.EscrowService,
	archiveStore *archive.Store) *Handler {
	return &Handler{
		roomService:   roomService,
		escrowService: escrowService,
		archiveStore:  archiveStore,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (rs *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	json.NewEncoder(w).Encode(rsp)
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "room service is running at port " + os.Getenv("ROOM_SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	json.NewEncoder(w).Encode(rsp)
}

func (h *Handler) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	rooms, err := h.roomService.ListRooms(r.Context(), limit)
	if err != nil {
		log.Errorf("list rooms: %v", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "server_error"})
		return
	}

	total, err := h.roomService.TotalRooms(r.Context())
	if err != nil {
		log.Errorf("total rooms: %v", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "server_error"})
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Data: map[string]interface{}{
		"rooms": rooms,
		"total": total,
	}})
}

func (h *Handler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID, err := strconv.ParseUint(chi.URLParam(r, "roomID"), 10, 64)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid room id"})
		return
	}

	room, err := h.roomService.GetRoom(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, engine.ErrRoomNotFound) {
			h.CreateResponse(w, Response{Code: http.StatusNotFound, Error: engine.ErrorCode(err)})
			return
		}
		log.Errorf("get room %d: %v", roomID, err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "server_error"})
		return
	}

	escrow, err := h.escrowService.GetRoomEscrow(r.Context(), roomID)
	if err != nil {
		log.Errorf("room escrow %d: %v", roomID, err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "server_error"})
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Data: map[string]interface{}{
		"room":   room,
		"escrow": escrow.StringFixed(0),
	}})
}

func (h *Handler) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid user id"})
		return
	}

	balance, err := h.escrowService.GetUserBalance(r.Context(), userID)
	if err != nil {
		log.Errorf("balance of user %d: %v", userID, err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "server_error"})
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Data: map[string]string{
		"balance": balance.StringFixed(0),
	}})
}

// EntriesHandler serves the ledger statement of one wallet.
func (h *Handler) EntriesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid user id"})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	entries, err := h.escrowService.GetUserEntries(r.Context(), userID, limit)
	if err != nil {
		log.Errorf("entries of user %d: %v", userID, err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "server_error"})
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Data: entries})
}

func (h *Handler) SettlementsHandler(w http.ResponseWriter, r *http.Request) {
	if h.archiveStore == nil {
		h.CreateResponse(w, Response{Code: http.StatusServiceUnavailable, Error: "archive disabled"})
		return
	}

	recs, err := h.archiveStore.Recent(r.Context(), 50)
	if err != nil {
		log.Errorf("list settlements: %v", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "server_error"})
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Data: recs})
}
