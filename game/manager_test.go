package game

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blockclash/blockclash-backend/models"
	"github.com/blockclash/blockclash-backend/wallet"
)

type fakeConn struct {
	mu   sync.Mutex
	msgs []fakeMsg
}

type fakeMsg struct {
	Type    string
	Payload interface{}
}

func (f *fakeConn) Send(msgType string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, fakeMsg{Type: msgType, Payload: payload})
}

func (f *fakeConn) count(msgType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.msgs {
		if m.Type == msgType {
			n++
		}
	}
	return n
}

func newTestManager() (*Manager, *wallet.MemoryStore) {
	store := wallet.NewMemoryStore()
	ledger := wallet.NewLedger(store, zap.NewNop().Sugar())
	m := NewManager(NewRegistry(), ledger, Policy{
		MinEntryFee:        100,
		MaxEntryFee:        100000,
		PlatformFeePercent: 15,
	}, zap.NewNop().Sugar())
	return m, store
}

func connect(m *Manager, playerID string) *fakeConn {
	conn := &fakeConn{}
	m.reg.RegisterConn(playerID, "exp1", conn)
	return conn
}

func balanceOf(t *testing.T, store *wallet.MemoryStore, accountID string) int64 {
	t.Helper()
	w, err := store.GetOrCreateWallet(context.Background(), accountID, accountID)
	require.NoError(t, err)
	return w.Balance
}

// playMatch drives p1 to a clean 2-0 win over target.
func playMatch(t *testing.T, m *Manager, room *Room, shooter, target string) {
	t.Helper()
	require.True(t, room.beginCountdown())
	require.True(t, room.beginPlaying())
	for round := 0; round < 2; round++ {
		for i := 0; i < 4; i++ {
			m.Hit(shooter, models.HitPayload{TargetPlayerID: target, Damage: 999})
		}
		if round == 0 {
			m.beginNextRound(room)
		}
	}
}

func TestWagerMatchEndToEnd(t *testing.T) {
	m, store := newTestManager()
	store.SetBalance("a1", 1000, 0)
	store.SetBalance("a2", 1000, 0)
	connA := connect(m, "p1")
	connB := connect(m, "p2")

	room, wA, err := m.CreateWagerRoom(context.Background(), testPlayer("p1", "a1"), "exp1", 500)
	require.NoError(t, err)
	assert.Equal(t, int64(500), wA.Balance)

	_, wB, err := m.JoinRoom(context.Background(), room.ID, testPlayer("p2", "a2"))
	require.NoError(t, err)
	assert.Equal(t, int64(500), wB.Balance)
	assert.Equal(t, int64(1000), room.Info().PrizePool)

	playMatch(t, m, room, "p1", "p2")

	// 15% of the 1000 pool rounds down to 150; the winner nets 850.
	assert.Equal(t, int64(1350), balanceOf(t, store, "a1"))
	assert.Equal(t, int64(500), balanceOf(t, store, "a2"), "loser stake stays in the pool")

	assert.Nil(t, m.reg.Room(room.ID), "settled room is torn down")
	assert.GreaterOrEqual(t, connA.count(models.MsgMatchEnded), 1)
	assert.GreaterOrEqual(t, connB.count(models.MsgMatchEnded), 1)
	assert.GreaterOrEqual(t, connA.count(models.MsgWalletUpdated), 1)

	rec, ok := store.Matches["match_"+room.ID]
	require.True(t, ok)
	assert.Equal(t, "a1", rec.WinnerID)
	assert.Equal(t, int64(150), rec.PlatformFee)
	assert.Equal(t, int64(1000), rec.PrizePool)

	stats, err := store.GetOrCreateStats(context.Background(), "a1", "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalWins)
	assert.Equal(t, int64(850), stats.TotalEarnings)
	assert.Equal(t, int64(1), stats.CurrentWinStreak)
}

func TestWagerInsufficientFunds(t *testing.T) {
	m, store := newTestManager()
	store.SetBalance("a1", 99, 0)
	connect(m, "p1")

	_, _, err := m.CreateWagerRoom(context.Background(), testPlayer("p1", "a1"), "exp1", 500)
	require.ErrorIs(t, err, wallet.ErrInsufficientFunds)
	assert.Equal(t, int64(99), balanceOf(t, store, "a1"))
	assert.Nil(t, m.reg.RoomOf("p1"), "failed debit leaves no room behind")
}

func TestWagerEntryFeeBounds(t *testing.T) {
	m, store := newTestManager()
	store.SetBalance("a1", 1000000, 0)
	connect(m, "p1")

	_, _, err := m.CreateWagerRoom(context.Background(), testPlayer("p1", "a1"), "exp1", 99)
	assert.ErrorIs(t, err, ErrInvalidEntryFee)

	_, _, err = m.CreateWagerRoom(context.Background(), testPlayer("p1", "a1"), "exp1", 100001)
	assert.ErrorIs(t, err, ErrInvalidEntryFee)

	_, _, err = m.CreateWagerRoom(context.Background(), testPlayer("p1", "a1"), "exp1", 100)
	assert.NoError(t, err, "minimum fee is inclusive")
}

func TestLeaveWhileWaitingRefundsOnce(t *testing.T) {
	m, store := newTestManager()
	store.SetBalance("a1", 1000, 0)
	connect(m, "p1")

	room, _, err := m.CreateWagerRoom(context.Background(), testPlayer("p1", "a1"), "exp1", 500)
	require.NoError(t, err)
	assert.Equal(t, int64(500), balanceOf(t, store, "a1"))

	m.RemovePlayer(context.Background(), "p1")
	assert.Equal(t, int64(1000), balanceOf(t, store, "a1"), "pre-match leave returns the stake")

	// A second removal for the same player is a no-op.
	m.RemovePlayer(context.Background(), "p1")
	assert.Equal(t, int64(1000), balanceOf(t, store, "a1"), "refund is exactly once")

	assert.Nil(t, m.reg.Room(room.ID), "empty room is destroyed")
	require.Len(t, store.TransactionsOfKind(models.TxWagerRefund), 1)
}

func TestLeaveDuringCountdownRefunds(t *testing.T) {
	m, store := newTestManager()
	store.SetBalance("a1", 1000, 0)
	store.SetBalance("a2", 1000, 0)
	connA := connect(m, "p1")
	connect(m, "p2")

	room, _, err := m.CreateWagerRoom(context.Background(), testPlayer("p1", "a1"), "exp1", 500)
	require.NoError(t, err)
	_, _, err = m.JoinRoom(context.Background(), room.ID, testPlayer("p2", "a2"))
	require.NoError(t, err)

	m.MarkReady("p1")
	m.MarkReady("p2")
	require.Equal(t, models.RoomStarting, room.Info().Status)
	require.GreaterOrEqual(t, connA.count(models.MsgCountdownStart), 1)

	m.RemovePlayer(context.Background(), "p2")

	assert.Equal(t, int64(1000), balanceOf(t, store, "a2"), "a countdown leaver gets the stake back")
	require.Len(t, store.TransactionsOfKind(models.TxWagerRefund), 1)
	assert.Equal(t, models.RoomWaiting, room.Info().Status, "the room falls back to waiting")
	assert.False(t, room.beginPlaying(), "the dead countdown cannot start the match")
}

func TestSoloReadyStartsImmediately(t *testing.T) {
	m, _ := newTestManager()
	connA := connect(m, "p1")

	room, err := m.CreateSoloRoom(testPlayer("p1", "a1"), "exp1")
	require.NoError(t, err)

	m.MarkReady("p1")

	assert.Equal(t, models.RoomPlaying, room.Info().Status, "a solo ready signal skips the countdown")
	assert.Equal(t, 0, connA.count(models.MsgCountdownStart))
	assert.GreaterOrEqual(t, connA.count(models.MsgGameStarted), 1)
	room.mu.Lock()
	assert.NotNil(t, room.bot, "the bot controller is live at start")
	room.mu.Unlock()

	m.RemovePlayer(context.Background(), "p1")
}

func TestJoinWhilePlayingAllowed(t *testing.T) {
	m, _ := newTestManager()
	connect(m, "p1")
	connect(m, "p2")

	room, err := m.CreateRoom(testPlayer("p1", "a1"), "exp1")
	require.NoError(t, err)
	require.True(t, room.beginCountdown())
	require.True(t, room.beginPlaying())

	_, _, err = m.JoinRoom(context.Background(), room.ID, testPlayer("p2", "a2"))
	require.NoError(t, err, "an open seat in a live match is joinable")
	assert.Len(t, room.PlayersSnapshot(), 2)
}

func TestRefundFailureIsRetryable(t *testing.T) {
	m, store := newTestManager()
	store.SetBalance("a1", 1000, 0)
	connect(m, "p1")
	connect(m, "p2")
	store.SetBalance("a2", 1000, 0)

	room, _, err := m.CreateWagerRoom(context.Background(), testPlayer("p1", "a1"), "exp1", 500)
	require.NoError(t, err)
	_, _, err = m.JoinRoom(context.Background(), room.ID, testPlayer("p2", "a2"))
	require.NoError(t, err)

	store.TxErr = assert.AnError
	m.RemovePlayer(context.Background(), "p2")
	assert.Equal(t, int64(500), balanceOf(t, store, "a2"), "failed refund leaves the debit in place")

	// The refund marker was released, so escrow is still claimable.
	amount, ok := room.claimRefund("a2")
	assert.True(t, ok)
	assert.Equal(t, int64(500), amount)
}

func TestForfeitPaysRemainingPlayer(t *testing.T) {
	m, store := newTestManager()
	store.SetBalance("a1", 1000, 0)
	store.SetBalance("a2", 1000, 0)
	connect(m, "p1")
	connect(m, "p2")

	room, _, err := m.CreateWagerRoom(context.Background(), testPlayer("p1", "a1"), "exp1", 500)
	require.NoError(t, err)
	_, _, err = m.JoinRoom(context.Background(), room.ID, testPlayer("p2", "a2"))
	require.NoError(t, err)

	require.True(t, room.beginCountdown())
	require.True(t, room.beginPlaying())

	m.RemovePlayer(context.Background(), "p2")

	assert.Equal(t, int64(1350), balanceOf(t, store, "a1"), "deserter's stake pays out to the winner")
	assert.Equal(t, int64(500), balanceOf(t, store, "a2"), "mid-match leaver gets no refund")
	assert.Empty(t, store.TransactionsOfKind(models.TxWagerRefund))

	rec, ok := store.Matches["match_"+room.ID]
	require.True(t, ok)
	assert.Equal(t, "a1", rec.WinnerID)
}

func TestSoloWinAwardsCoins(t *testing.T) {
	m, store := newTestManager()
	connect(m, "p1")

	room, err := m.CreateSoloRoom(testPlayer("p1", "a1"), "exp1")
	require.NoError(t, err)
	require.NotEmpty(t, room.BotID)
	assert.Len(t, room.PlayersSnapshot(), 2)

	playMatch(t, m, room, "p1", room.BotID)

	w, err := store.GetOrCreateWallet(context.Background(), "a1", "a1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, w.Coins, int64(soloWinBaseCoins))
	assert.Less(t, w.Coins, int64(soloWinBaseCoins+soloWinBonusCoins))
	assert.Equal(t, int64(0), w.Balance, "solo play never touches the cash balance")

	stats, err := store.GetOrCreateStats(context.Background(), "a1", "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.SoloWins)
	assert.Equal(t, w.Coins, stats.CoinsEarned)
	assert.Equal(t, int64(1), stats.CurrentWinStreak, "solo wins extend the streak")
	assert.Equal(t, int64(1), stats.BestWinStreak)

	require.Len(t, store.TransactionsOfKind(models.TxCoinEarn), 1)
}

func TestJoinFullRoomRejected(t *testing.T) {
	m, _ := newTestManager()
	connect(m, "p1")
	connect(m, "p2")
	connect(m, "p3")

	room, err := m.CreateRoom(testPlayer("p1", "a1"), "exp1")
	require.NoError(t, err)
	_, _, err = m.JoinRoom(context.Background(), room.ID, testPlayer("p2", "a2"))
	require.NoError(t, err)

	_, _, err = m.JoinRoom(context.Background(), room.ID, testPlayer("p3", "a3"))
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestJoinUnknownRoom(t *testing.T) {
	m, _ := newTestManager()
	connect(m, "p1")

	_, _, err := m.JoinRoom(context.Background(), "room_missing", testPlayer("p1", "a1"))
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestLobbyBroadcastReachesUnseatedOnly(t *testing.T) {
	m, _ := newTestManager()
	connA := connect(m, "p1")
	connB := connect(m, "p2")

	_, err := m.CreateRoom(testPlayer("p1", "a1"), "exp1")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, connB.count(models.MsgRoomsList), 1, "lobby watchers see the new room")
	assert.Equal(t, 0, connA.count(models.MsgRoomsList), "seated players are not lobby watchers")
	assert.GreaterOrEqual(t, connA.count(models.MsgRoomJoined), 1)
}

func TestCreateRoomWhileSeatedRejected(t *testing.T) {
	m, _ := newTestManager()
	connect(m, "p1")

	_, err := m.CreateRoom(testPlayer("p1", "a1"), "exp1")
	require.NoError(t, err)

	_, err = m.CreateRoom(testPlayer("p1", "a1"), "exp1")
	assert.ErrorIs(t, err, ErrAlreadyInRoom)
}
