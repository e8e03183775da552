package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger account owners. A room owns its escrow the same way a user
// owns a wallet balance.
const (
	OwnerUser = "user"
	OwnerRoom = "room"
)

// EscrowEntry is one side of a double-entry posting in escrow_entries.
// Balance of an account = SUM(dr) - SUM(cr) over its completed rows.
type EscrowEntry struct {
	ID        int64           `json:"id"`
	OwnerType string          `json:"owner_type"`
	OwnerID   int64           `json:"owner_id"`
	TType     string          `json:"ttype"` // 'stake', 'payout', 'refund', 'deposit'
	Dr        decimal.Decimal `json:"dr"`
	Cr        decimal.Decimal `json:"cr"`
	TRef      string          `json:"tref"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}
