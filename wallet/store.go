package wallet

import (
	"context"
	"errors"

	"github.com/blockclash/blockclash-backend/models"
)

// ErrInsufficientFunds is returned by a conditional subtract whose
// sufficiency check failed. The balance is left untouched.
var ErrInsufficientFunds = errors.New("insufficient funds")

type BalanceOp string

const (
	OpAdd      BalanceOp = "add"
	OpSubtract BalanceOp = "subtract"
)

// Store is the persistence contract the room server needs from the
// wallet/ledger subsystem. Subtract operations are atomic
// decrement-with-sufficiency-check so two rooms debiting the same
// account concurrently cannot double-spend.
type Store interface {
	GetOrCreateWallet(ctx context.Context, accountID, username string) (*models.Wallet, error)
	AdjustBalance(ctx context.Context, accountID string, amount int64, op BalanceOp) (*models.Wallet, error)
	AdjustCoins(ctx context.Context, accountID string, amount int64, op BalanceOp) (*models.Wallet, error)
	RecordTransaction(ctx context.Context, tx models.Transaction) error

	GetOrCreateStats(ctx context.Context, accountID, username string) (*models.PlayerStats, error)
	ApplyStatsUpdate(ctx context.Context, accountID string, upd models.StatsUpdate) error

	// UpsertMatch is keyed on MatchID and safe to call twice.
	UpsertMatch(ctx context.Context, rec models.MatchRecord) error
	Leaderboard(ctx context.Context, category string, limit int64) ([]models.PlayerStats, error)
	RecentMatches(ctx context.Context, experienceID string, limit int64) ([]models.MatchRecord, error)
}
