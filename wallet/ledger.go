package wallet

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/blockclash/blockclash-backend/models"
)

// Ledger wraps Store with the escrow money movements the room server
// performs. Every mutation and its transaction record are treated as
// one logical unit: if the record write fails after the balance change
// succeeded, the balance change is reverted before the error surfaces.
type Ledger struct {
	store Store
	log   *zap.SugaredLogger
}

func NewLedger(store Store, log *zap.SugaredLogger) *Ledger {
	return &Ledger{store: store, log: log}
}

func (l *Ledger) Store() Store { return l.store }

// DebitEntryFee holds a wager entry fee in escrow. Returns
// ErrInsufficientFunds without side effects when the balance is short.
func (l *Ledger) DebitEntryFee(ctx context.Context, accountID string, amount int64, roomID string) (*models.Wallet, error) {
	return l.mutateWithRecord(ctx,
		func() (*models.Wallet, error) {
			return l.store.AdjustBalance(ctx, accountID, amount, OpSubtract)
		},
		func() error {
			_, err := l.store.AdjustBalance(ctx, accountID, amount, OpAdd)
			return err
		},
		models.Transaction{
			AccountID: accountID,
			Kind:      models.TxWagerEntry,
			Amount:    amount,
			Currency:  "usd",
			Metadata: models.TxMetadata{
				RoomID:      roomID,
				Description: fmt.Sprintf("Wager room entry fee $%.2f", float64(amount)/100),
			},
		},
	)
}

// Refund releases an escrowed entry fee back to its owner. The caller
// guards against duplicates with a per-(account, room) marker.
func (l *Ledger) Refund(ctx context.Context, accountID string, amount int64, roomID string) (*models.Wallet, error) {
	return l.mutateWithRecord(ctx,
		func() (*models.Wallet, error) {
			return l.store.AdjustBalance(ctx, accountID, amount, OpAdd)
		},
		func() error {
			_, err := l.store.AdjustBalance(ctx, accountID, amount, OpSubtract)
			return err
		},
		models.Transaction{
			AccountID: accountID,
			Kind:      models.TxWagerRefund,
			Amount:    amount,
			Currency:  "usd",
			Metadata: models.TxMetadata{
				RoomID:      roomID,
				Description: fmt.Sprintf("Wager room refund $%.2f", float64(amount)/100),
			},
		},
	)
}

// Payout credits the winner's share of a settled prize pool.
func (l *Ledger) Payout(ctx context.Context, accountID string, amount int64, roomID string, prizePool, platformFee int64) (*models.Wallet, error) {
	return l.mutateWithRecord(ctx,
		func() (*models.Wallet, error) {
			return l.store.AdjustBalance(ctx, accountID, amount, OpAdd)
		},
		func() error {
			_, err := l.store.AdjustBalance(ctx, accountID, amount, OpSubtract)
			return err
		},
		models.Transaction{
			AccountID: accountID,
			Kind:      models.TxWagerWin,
			Amount:    amount,
			Currency:  "usd",
			Metadata: models.TxMetadata{
				RoomID:      roomID,
				MatchID:     roomID,
				PrizePool:   prizePool,
				PlatformFee: platformFee,
				Description: fmt.Sprintf("Won wager match - $%.2f", float64(amount)/100),
			},
		},
	)
}

// RewardCoins credits the solo-mode coin currency; it is independent of
// the real-money balance and never entry-fee-gated.
func (l *Ledger) RewardCoins(ctx context.Context, accountID string, coins int64, roomID string) (*models.Wallet, error) {
	return l.mutateWithRecord(ctx,
		func() (*models.Wallet, error) {
			return l.store.AdjustCoins(ctx, accountID, coins, OpAdd)
		},
		func() error {
			_, err := l.store.AdjustCoins(ctx, accountID, coins, OpSubtract)
			return err
		},
		models.Transaction{
			AccountID: accountID,
			Kind:      models.TxCoinEarn,
			Amount:    coins,
			Currency:  "coins",
			Metadata: models.TxMetadata{
				RoomID:      roomID,
				Description: fmt.Sprintf("Solo victory reward: %d coins", coins),
			},
		},
	)
}

// mutateWithRecord is the compensating-transaction helper shared by all
// money movements.
func (l *Ledger) mutateWithRecord(ctx context.Context, mutate func() (*models.Wallet, error), revert func() error, tx models.Transaction) (*models.Wallet, error) {
	updated, err := mutate()
	if err != nil {
		return nil, err
	}

	tx.Status = "completed"
	if err := l.store.RecordTransaction(ctx, tx); err != nil {
		if rbErr := revert(); rbErr != nil {
			// The account is now inconsistent with the ledger; this is
			// the one failure mode that needs an operator.
			l.log.Errorw("ledger rollback failed",
				"accountId", tx.AccountID, "kind", tx.Kind, "amount", tx.Amount, "error", rbErr)
		}
		return nil, fmt.Errorf("record %s transaction: %w", tx.Kind, err)
	}
	return updated, nil
}
