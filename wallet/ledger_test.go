package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blockclash/blockclash-backend/models"
)

func newTestLedger() (*Ledger, *MemoryStore) {
	store := NewMemoryStore()
	return NewLedger(store, zap.NewNop().Sugar()), store
}

func TestDebitEntryFeeExactBalance(t *testing.T) {
	ledger, store := newTestLedger()
	store.SetBalance("acct1", 100, 0)

	w, err := ledger.DebitEntryFee(context.Background(), "acct1", 100, "room1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), w.Balance)

	txs := store.TransactionsOfKind(models.TxWagerEntry)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(100), txs[0].Amount)
	assert.Equal(t, "room1", txs[0].Metadata.RoomID)
}

func TestDebitEntryFeeInsufficient(t *testing.T) {
	ledger, store := newTestLedger()
	store.SetBalance("acct1", 99, 0)

	_, err := ledger.DebitEntryFee(context.Background(), "acct1", 100, "room1")
	require.ErrorIs(t, err, ErrInsufficientFunds)

	w, err := store.GetOrCreateWallet(context.Background(), "acct1", "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(99), w.Balance, "failed debit must not touch the balance")
	assert.Empty(t, store.TransactionsOfKind(models.TxWagerEntry))
}

func TestDebitEntryFeeRollsBackOnRecordFailure(t *testing.T) {
	ledger, store := newTestLedger()
	store.SetBalance("acct1", 500, 0)
	store.TxErr = errors.New("mongo down")

	_, err := ledger.DebitEntryFee(context.Background(), "acct1", 200, "room1")
	require.Error(t, err)

	w, err := store.GetOrCreateWallet(context.Background(), "acct1", "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), w.Balance, "balance must be restored when the record write fails")
}

func TestRefundRestoresBalance(t *testing.T) {
	ledger, store := newTestLedger()
	store.SetBalance("acct1", 1000, 0)

	_, err := ledger.DebitEntryFee(context.Background(), "acct1", 300, "room1")
	require.NoError(t, err)

	w, err := ledger.Refund(context.Background(), "acct1", 300, "room1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), w.Balance)

	txs := store.TransactionsOfKind(models.TxWagerRefund)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(300), txs[0].Amount)
}

func TestPayoutRecordsPoolAndFee(t *testing.T) {
	ledger, store := newTestLedger()
	store.SetBalance("winner", 0, 0)

	w, err := ledger.Payout(context.Background(), "winner", 850, "room1", 1000, 150)
	require.NoError(t, err)
	assert.Equal(t, int64(850), w.Balance)

	txs := store.TransactionsOfKind(models.TxWagerWin)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(1000), txs[0].Metadata.PrizePool)
	assert.Equal(t, int64(150), txs[0].Metadata.PlatformFee)
}

func TestRewardCoinsDoesNotTouchBalance(t *testing.T) {
	ledger, store := newTestLedger()
	store.SetBalance("acct1", 250, 10)

	w, err := ledger.RewardCoins(context.Background(), "acct1", 80, "room1")
	require.NoError(t, err)
	assert.Equal(t, int64(250), w.Balance)
	assert.Equal(t, int64(90), w.Coins)

	require.Len(t, store.TransactionsOfKind(models.TxCoinEarn), 1)
}

func TestRefundRollbackReclaimsCredit(t *testing.T) {
	ledger, store := newTestLedger()
	store.SetBalance("acct1", 100, 0)
	store.TxErr = errors.New("mongo down")

	_, err := ledger.Refund(context.Background(), "acct1", 400, "room1")
	require.Error(t, err)

	w, err := store.GetOrCreateWallet(context.Background(), "acct1", "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), w.Balance, "failed refund must not leave the credit behind")
}
