package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/trioplay/trio-services/internal/roomsvc/engine"
	"github.com/trioplay/trio-services/internal/roomsvc/models"
)

// RoomStore runs the room actions. Each action is one transaction that
// locks the room row (FOR UPDATE), lets the engine decide, and writes
// the state change together with its ledger postings. Actions on the
// same room serialize on the row lock; different rooms do not contend.
//
// Tables:
//
//	rooms(room_id bigint primary key, creator bigint not null,
//	      staking_amount bigint not null, state smallint not null,
//	      creation_time bigint not null, winner bigint,
//	      created_at timestamptz default now(), updated_at timestamptz default now())
//	room_players(id bigserial, room_id bigint references rooms,
//	             user_id bigint not null, position smallint not null,
//	             created_at timestamptz default now(),
//	             constraint unique_room_player unique (room_id, user_id))
type RoomStore struct {
	db       *pgxpool.Pool
	registry *RegistryStore
	escrow   *EscrowStore
}

func NewRoomStore(db *pgxpool.Pool, registry *RegistryStore, escrow *EscrowStore) *RoomStore {
	return &RoomStore{db: db, registry: registry, escrow: escrow}
}

// CreateRoom allocates the next room id, persists the room with the
// creator as first player, and pulls the creator's stake into escrow.
// Either all of it commits or none of it does.
func (s *RoomStore) CreateRoom(ctx context.Context, creator int64, now int64) (*models.Room, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin create room tx: %w", err)
	}
	defer tx.Rollback(ctx)

	roomID, err := s.registry.AllocateRoomID(ctx, tx)
	if err != nil {
		return nil, err
	}

	room := engine.NewRoom(roomID, creator, now)

	_, err = tx.Exec(ctx, `
		INSERT INTO rooms (room_id, creator, staking_amount, state, creation_time)
		VALUES ($1, $2, $3, $4, $5)
	`, int64(room.RoomID), room.Creator, int64(room.StakingAmount), int16(room.State), room.CreationTime)
	if err != nil {
		return nil, fmt.Errorf("failed to insert room %d: %w", roomID, err)
	}

	if err := s.insertPlayer(ctx, tx, roomID, creator, 1); err != nil {
		return nil, err
	}

	if err := s.escrow.Stake(ctx, tx, creator, roomID, room.StakingAmount); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit create room tx: %w", err)
	}

	log.Infof("room %d created by user %d", roomID, creator)
	return room, nil
}

// JoinRoom validates and applies one join. The third join flips the
// room to started in the same transaction as its stake posting.
func (s *RoomStore) JoinRoom(ctx context.Context, roomID uint64, player int64, now int64) (*models.Room, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin join tx: %w", err)
	}
	defer tx.Rollback(ctx)

	room, err := s.getRoomForUpdate(ctx, tx, roomID)
	if err != nil {
		return nil, err
	}

	started, err := engine.Join(room, player, now)
	if err != nil {
		return nil, err
	}

	if err := s.insertPlayer(ctx, tx, roomID, player, len(room.Players)); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE rooms SET state = $1, updated_at = now() WHERE room_id = $2
	`, int16(room.State), int64(roomID))
	if err != nil {
		return nil, fmt.Errorf("failed to update room %d state: %w", roomID, err)
	}

	if err := s.escrow.Stake(ctx, tx, player, roomID, room.StakingAmount); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit join tx: %w", err)
	}

	if started {
		log.Infof("room %d started, third player %d joined", roomID, player)
	}
	return room, nil
}

// EndGame settles the room: state goes to finished, the winner is
// recorded, and the full pot leaves escrow in one movement. The caller
// only needs to be an authenticated identity; membership and timing are
// the sole constraints on who wins.
func (s *RoomStore) EndGame(ctx context.Context, roomID uint64, caller, winner int64, now int64) (*models.Room, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin end game tx: %w", err)
	}
	defer tx.Rollback(ctx)

	room, err := s.getRoomForUpdate(ctx, tx, roomID)
	if err != nil {
		return nil, err
	}

	payout, err := engine.Settle(room, winner, now)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE rooms SET state = $1, winner = $2, updated_at = now() WHERE room_id = $3
	`, int16(room.State), winner, int64(roomID))
	if err != nil {
		return nil, fmt.Errorf("failed to finish room %d: %w", roomID, err)
	}

	if err := s.escrow.Payout(ctx, tx, roomID, winner, payout); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit end game tx: %w", err)
	}

	log.Infof("room %d settled by user %d, winner %d, payout %d", roomID, caller, winner, payout)
	return room, nil
}

// ExpireRoom closes a room stuck in init past the join window and
// refunds every staked player, escrow back to zero.
func (s *RoomStore) ExpireRoom(ctx context.Context, roomID uint64, now int64) (*models.Room, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin expire tx: %w", err)
	}
	defer tx.Rollback(ctx)

	room, err := s.getRoomForUpdate(ctx, tx, roomID)
	if err != nil {
		return nil, err
	}

	refund, err := engine.Expire(room, now)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE rooms SET state = $1, updated_at = now() WHERE room_id = $2
	`, int16(room.State), int64(roomID))
	if err != nil {
		return nil, fmt.Errorf("failed to expire room %d: %w", roomID, err)
	}

	if err := s.escrow.Refund(ctx, tx, roomID, room.Players, refund); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit expire tx: %w", err)
	}

	log.Infof("room %d expired, refunded %d players", roomID, len(room.Players))
	return room, nil
}

// TotalRooms is the lifetime creation counter, which is also the last
// issued room id.
func (s *RoomStore) TotalRooms(ctx context.Context) (uint64, error) {
	return s.registry.TotalRooms(ctx, s.db)
}

func (s *RoomStore) GetRoom(ctx context.Context, roomID uint64) (*models.Room, error) {
	room, err := scanRoom(s.db.QueryRow(ctx, `
		SELECT room_id, creator, staking_amount, state, creation_time, winner, created_at, updated_at
		FROM rooms
		WHERE room_id = $1
	`, int64(roomID)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, engine.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room %d: %w", roomID, err)
	}

	room.Players, err = s.roomPlayers(ctx, s.db, roomID)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// ListRooms returns the newest rooms as lightweight summaries.
func (s *RoomStore) ListRooms(ctx context.Context, limit int) ([]*models.RoomInfo, error) {
	rows, err := s.db.Query(ctx, `
		SELECT r.room_id, r.state, COUNT(p.id)
		FROM rooms r
		LEFT JOIN room_players p ON p.room_id = r.room_id
		GROUP BY r.room_id, r.state
		ORDER BY r.room_id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var infos []*models.RoomInfo
	for rows.Next() {
		var (
			id    int64
			state int16
			count int
		)
		if err := rows.Scan(&id, &state, &count); err != nil {
			return nil, err
		}
		infos = append(infos, &models.RoomInfo{
			RoomID:      uint64(id),
			State:       models.GameState(state),
			PlayerCount: count,
		})
	}
	return infos, rows.Err()
}

// ListExpirable finds init rooms whose join window has passed, for the
// sweeper to expire one by one.
func (s *RoomStore) ListExpirable(ctx context.Context, now int64, limit int) ([]uint64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT room_id
		FROM rooms
		WHERE state = $1 AND creation_time < $2
		ORDER BY room_id
		LIMIT $3
	`, int16(models.StateInit), now-engine.JoinWindow, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expirable rooms: %w", err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, uint64(id))
	}
	return ids, rows.Err()
}

func (s *RoomStore) getRoomForUpdate(ctx context.Context, tx pgx.Tx, roomID uint64) (*models.Room, error) {
	room, err := scanRoom(tx.QueryRow(ctx, `
		SELECT room_id, creator, staking_amount, state, creation_time, winner, created_at, updated_at
		FROM rooms
		WHERE room_id = $1
		FOR UPDATE
	`, int64(roomID)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, engine.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to lock room %d: %w", roomID, err)
	}

	room.Players, err = s.roomPlayers(ctx, tx, roomID)
	if err != nil {
		return nil, err
	}
	return room, nil
}

type queryRows interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *RoomStore) roomPlayers(ctx context.Context, q queryRows, roomID uint64) ([]int64, error) {
	rows, err := q.Query(ctx, `
		SELECT user_id
		FROM room_players
		WHERE room_id = $1
		ORDER BY position
	`, int64(roomID))
	if err != nil {
		return nil, fmt.Errorf("failed to load players of room %d: %w", roomID, err)
	}
	defer rows.Close()

	var players []int64
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		players = append(players, userID)
	}
	return players, rows.Err()
}

func (s *RoomStore) insertPlayer(ctx context.Context, tx pgx.Tx, roomID uint64, userID int64, position int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO room_players (room_id, user_id, position)
		VALUES ($1, $2, $3)
	`, int64(roomID), userID, position)
	if err != nil {
		// unique_room_player backs the engine's duplicate check
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return engine.ErrPlayerAlreadyJoined
		}
		return fmt.Errorf("failed to add player %d to room %d: %w", userID, roomID, err)
	}
	return nil
}

func scanRoom(row pgx.Row) (*models.Room, error) {
	var (
		room    models.Room
		roomID  int64
		staking int64
		state   int16
	)
	err := row.Scan(
		&roomID,
		&room.Creator,
		&staking,
		&state,
		&room.CreationTime,
		&room.Winner,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	room.RoomID = uint64(roomID)
	room.StakingAmount = uint64(staking)
	room.State = models.GameState(state)
	return &room, nil
}
