package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/trioplay/trio-services/internal/roomsvc/engine"
	"github.com/trioplay/trio-services/internal/roomsvc/models"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, so balance
// reads can run standalone or inside an action's transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EscrowStore writes the double-entry ledger backing all room funds:
//
//	escrow_entries(id bigserial, owner_type text, owner_id bigint,
//	               ttype text, dr numeric, cr numeric, tref text unique,
//	               status text, created_at timestamptz default now())
//
// Balance of an account = SUM(dr) - SUM(cr) over 'completed' rows.
// Fund movements are always a matched cr/dr pair written by the same
// transaction that mutates room state, so escrow can never move without
// the state change committing too.
type EscrowStore struct {
	db *pgxpool.Pool
}

func NewEscrowStore(db *pgxpool.Pool) *EscrowStore {
	return &EscrowStore{db: db}
}

func (s *EscrowStore) UserBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	return accountBalance(ctx, s.db, models.OwnerUser, userID)
}

// RoomBalance is the escrowed pot of a room: stake * player count until
// settlement, zero strictly after.
func (s *EscrowStore) RoomBalance(ctx context.Context, roomID uint64) (decimal.Decimal, error) {
	return accountBalance(ctx, s.db, models.OwnerRoom, int64(roomID))
}

func accountBalance(ctx context.Context, q Querier, ownerType string, ownerID int64) (decimal.Decimal, error) {
	var totalDr, totalCr decimal.Decimal

	err := q.QueryRow(ctx, `
        SELECT
            COALESCE(SUM(dr), 0),
            COALESCE(SUM(cr), 0)
        FROM escrow_entries
        WHERE owner_type = $1 AND owner_id = $2 AND status = 'completed'
    `, ownerType, ownerID).Scan(&totalDr, &totalCr)

	if err != nil {
		return decimal.Zero, err
	}

	return totalDr.Sub(totalCr), nil
}

// Stake moves one stake from the user into the room escrow. The user's
// completed rows are locked first so two concurrent joins cannot both
// spend the same balance; an underfunded caller fails the whole action.
func (s *EscrowStore) Stake(ctx context.Context, tx pgx.Tx, userID int64, roomID uint64, amount uint64) error {
	balance, err := lockedBalance(ctx, tx, models.OwnerUser, userID)
	if err != nil {
		return fmt.Errorf("failed to lock balance of user %d: %w", userID, err)
	}

	stake := decimalFromUint(amount)
	if balance.LessThan(stake) {
		return engine.ErrInsufficientBalance
	}

	ref := fmt.Sprintf("TRF-%s", uuid.New().String()[:8])
	if err := postPair(ctx, tx, "stake",
		models.OwnerUser, userID, // cr: player pays
		models.OwnerRoom, int64(roomID), // dr: room escrow receives
		stake, ref); err != nil {
		return fmt.Errorf("failed to post stake for user %d room %d: %w", userID, roomID, err)
	}
	return nil
}

// Payout releases the full pot from the room escrow to the winner.
func (s *EscrowStore) Payout(ctx context.Context, tx pgx.Tx, roomID uint64, winnerID int64, total uint64) error {
	balance, err := lockedBalance(ctx, tx, models.OwnerRoom, int64(roomID))
	if err != nil {
		return fmt.Errorf("failed to lock escrow of room %d: %w", roomID, err)
	}

	pot := decimalFromUint(total)
	// escrow going negative would mean funds were invented; refuse
	if balance.LessThan(pot) {
		return engine.ErrInsufficientBalance
	}

	ref := fmt.Sprintf("POT-%s", uuid.New().String()[:8])
	if err := postPair(ctx, tx, "payout",
		models.OwnerRoom, int64(roomID),
		models.OwnerUser, winnerID,
		pot, ref); err != nil {
		return fmt.Errorf("failed to post payout for room %d: %w", roomID, err)
	}
	return nil
}

// Refund returns one stake to each listed player out of the room escrow.
func (s *EscrowStore) Refund(ctx context.Context, tx pgx.Tx, roomID uint64, players []int64, amount uint64) error {
	stake := decimalFromUint(amount)
	for _, userID := range players {
		ref := fmt.Sprintf("RFD-%s", uuid.New().String()[:8])
		if err := postPair(ctx, tx, "refund",
			models.OwnerRoom, int64(roomID),
			models.OwnerUser, userID,
			stake, ref); err != nil {
			return fmt.Errorf("failed to post refund for user %d room %d: %w", userID, roomID, err)
		}
	}
	return nil
}

// Deposit credits a user account directly, no counter-entry. The ref
// is the external payment reference; its unique index makes replays of
// the same confirmation a no-op failure instead of double credit.
func (s *EscrowStore) Deposit(ctx context.Context, userID int64, amount decimal.Decimal, ref string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO escrow_entries (owner_type, owner_id, ttype, dr, cr, tref, status)
		VALUES ($1, $2, 'deposit', $3, 0, $4, 'completed')
	`, models.OwnerUser, userID, amount, ref)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateReference
		}
		return fmt.Errorf("failed to post deposit for user %d: %w", userID, err)
	}
	return nil
}

// ErrDuplicateReference means a payment reference was already credited.
var ErrDuplicateReference = errors.New("payment reference already used")

// Transfer moves value between two user wallets outside any room.
func (s *EscrowStore) Transfer(ctx context.Context, fromUserID, toUserID int64, amount decimal.Decimal) (string, error) {
	if fromUserID == toUserID {
		return "", fmt.Errorf("cannot transfer to self")
	}
	if !amount.IsPositive() {
		return "", fmt.Errorf("transfer amount must be positive")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transfer tx: %w", err)
	}
	defer tx.Rollback(ctx)

	balance, err := lockedBalance(ctx, tx, models.OwnerUser, fromUserID)
	if err != nil {
		return "", fmt.Errorf("failed to lock balance of user %d: %w", fromUserID, err)
	}
	if balance.LessThan(amount) {
		return "", engine.ErrInsufficientBalance
	}

	ref := fmt.Sprintf("TXF-%s", uuid.New().String()[:8])
	if err := postPair(ctx, tx, "transfer",
		models.OwnerUser, fromUserID,
		models.OwnerUser, toUserID,
		amount, ref); err != nil {
		return "", fmt.Errorf("failed to post transfer %s: %w", ref, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transfer tx: %w", err)
	}
	return ref, nil
}

// UserEntries returns the newest ledger rows of a user wallet, for
// statement views.
func (s *EscrowStore) UserEntries(ctx context.Context, userID int64, limit int) ([]models.EscrowEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, owner_type, owner_id, ttype, dr, cr, tref, status, created_at
		FROM escrow_entries
		WHERE owner_type = $1 AND owner_id = $2
		ORDER BY id DESC
		LIMIT $3
	`, models.OwnerUser, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries of user %d: %w", userID, err)
	}
	defer rows.Close()

	var entries []models.EscrowEntry
	for rows.Next() {
		var e models.EscrowEntry
		err := rows.Scan(&e.ID, &e.OwnerType, &e.OwnerID, &e.TType,
			&e.Dr, &e.Cr, &e.TRef, &e.Status, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func lockedBalance(ctx context.Context, tx pgx.Tx, ownerType string, ownerID int64) (decimal.Decimal, error) {
	rows, err := tx.Query(ctx, `
		SELECT dr, cr
		FROM escrow_entries
		WHERE owner_type = $1 AND owner_id = $2 AND status = 'completed'
		FOR UPDATE
	`, ownerType, ownerID)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	var totalDr, totalCr decimal.Decimal
	for rows.Next() {
		var dr, cr decimal.Decimal
		if err := rows.Scan(&dr, &cr); err != nil {
			return decimal.Zero, err
		}
		totalDr = totalDr.Add(dr)
		totalCr = totalCr.Add(cr)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, err
	}

	return totalDr.Sub(totalCr), nil
}

// postPair writes the two legs of one movement under a shared base ref.
func postPair(ctx context.Context, tx pgx.Tx, ttype string,
	fromType string, fromID int64, toType string, toID int64,
	amount decimal.Decimal, baseRef string) error {

	_, err := tx.Exec(ctx, `
		INSERT INTO escrow_entries (owner_type, owner_id, ttype, dr, cr, tref, status)
		VALUES ($1, $2, $3, 0, $4, $5, 'completed')
	`, fromType, fromID, ttype, amount, baseRef+"-OUT")
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO escrow_entries (owner_type, owner_id, ttype, dr, cr, tref, status)
		VALUES ($1, $2, $3, $4, 0, $5, 'completed')
	`, toType, toID, ttype, amount, baseRef+"-IN")
	return err
}

func decimalFromUint(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
