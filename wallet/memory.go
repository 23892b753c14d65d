package wallet

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/blockclash/blockclash-backend/models"
)

// MemoryStore is an in-memory Store used by tests and local runs
// without Mongo. Its conditional-subtract semantics mirror MongoStore.
type MemoryStore struct {
	mu           sync.Mutex
	wallets      map[string]*models.Wallet
	stats        map[string]*models.PlayerStats
	Transactions []models.Transaction
	Matches      map[string]models.MatchRecord

	// TxErr, when set, makes RecordTransaction fail. Used to exercise
	// the ledger's compensating rollback path.
	TxErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		wallets: make(map[string]*models.Wallet),
		stats:   make(map[string]*models.PlayerStats),
		Matches: make(map[string]models.MatchRecord),
	}
}

// SetBalance seeds an account for tests.
func (s *MemoryStore) SetBalance(accountID string, balance, coins int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.walletLocked(accountID, accountID)
	w.Balance = balance
	w.Coins = coins
}

func (s *MemoryStore) walletLocked(accountID, username string) *models.Wallet {
	w, ok := s.wallets[accountID]
	if !ok {
		now := time.Now()
		w = &models.Wallet{AccountID: accountID, Username: username, CreatedAt: now, UpdatedAt: now}
		s.wallets[accountID] = w
	}
	return w
}

func (s *MemoryStore) GetOrCreateWallet(_ context.Context, accountID, username string) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := *s.walletLocked(accountID, username)
	return &w, nil
}

func (s *MemoryStore) AdjustBalance(_ context.Context, accountID string, amount int64, op BalanceOp) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.walletLocked(accountID, accountID)
	if op == OpSubtract {
		if w.Balance < amount {
			return nil, ErrInsufficientFunds
		}
		w.Balance -= amount
	} else {
		w.Balance += amount
	}
	w.UpdatedAt = time.Now()
	cp := *w
	return &cp, nil
}

func (s *MemoryStore) AdjustCoins(_ context.Context, accountID string, amount int64, op BalanceOp) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.walletLocked(accountID, accountID)
	if op == OpSubtract {
		if w.Coins < amount {
			return nil, ErrInsufficientFunds
		}
		w.Coins -= amount
	} else {
		w.Coins += amount
	}
	w.UpdatedAt = time.Now()
	cp := *w
	return &cp, nil
}

func (s *MemoryStore) RecordTransaction(_ context.Context, tx models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.TxErr != nil {
		return s.TxErr
	}
	tx.CreatedAt = time.Now()
	s.Transactions = append(s.Transactions, tx)
	return nil
}

// TransactionsOfKind filters the recorded ledger for assertions.
func (s *MemoryStore) TransactionsOfKind(kind models.TransactionKind) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, tx := range s.Transactions {
		if tx.Kind == kind {
			out = append(out, tx)
		}
	}
	return out
}

func (s *MemoryStore) GetOrCreateStats(_ context.Context, accountID, username string) (*models.PlayerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, ok := s.stats[accountID]
	if !ok {
		now := time.Now()
		ps = &models.PlayerStats{AccountID: accountID, Username: username, LastMatchAt: now, UpdatedAt: now}
		s.stats[accountID] = ps
	}
	cp := *ps
	return &cp, nil
}

func (s *MemoryStore) ApplyStatsUpdate(_ context.Context, accountID string, upd models.StatsUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, ok := s.stats[accountID]
	if !ok {
		now := time.Now()
		ps = &models.PlayerStats{AccountID: accountID, Username: accountID, LastMatchAt: now}
		s.stats[accountID] = ps
	}
	for k, v := range upd.Set {
		switch k {
		case "currentWinStreak":
			if n, ok := v.(int64); ok {
				ps.CurrentWinStreak = n
			}
		case "bestWinStreak":
			if n, ok := v.(int64); ok {
				ps.BestWinStreak = n
			}
		case "lastMatchAt":
			if t, ok := v.(time.Time); ok {
				ps.LastMatchAt = t
			}
		}
	}
	for k, v := range upd.Inc {
		switch k {
		case "totalWins":
			ps.TotalWins += v
		case "totalLosses":
			ps.TotalLosses += v
		case "totalEarnings":
			ps.TotalEarnings += v
		case "totalWagered":
			ps.TotalWagered += v
		case "currentWinStreak":
			ps.CurrentWinStreak += v
		case "totalKills":
			ps.TotalKills += v
		case "totalDeaths":
			ps.TotalDeaths += v
		case "soloWins":
			ps.SoloWins += v
		case "coinsEarned":
			ps.CoinsEarned += v
		case "matchesPlayed":
			ps.MatchesPlayed += v
		}
	}
	ps.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) UpsertMatch(_ context.Context, rec models.MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Matches[rec.MatchID] = rec
	return nil
}

func (s *MemoryStore) Leaderboard(_ context.Context, category string, limit int64) ([]models.PlayerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PlayerStats, 0, len(s.stats))
	for _, ps := range s.stats {
		out = append(out, *ps)
	}
	sort.Slice(out, func(i, j int) bool {
		switch category {
		case "wins":
			return out[i].TotalWins > out[j].TotalWins
		case "kills":
			return out[i].TotalKills > out[j].TotalKills
		case "streak":
			return out[i].BestWinStreak > out[j].BestWinStreak
		case "coins":
			return out[i].CoinsEarned > out[j].CoinsEarned
		default:
			return out[i].TotalEarnings > out[j].TotalEarnings
		}
	})
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) RecentMatches(_ context.Context, experienceID string, limit int64) ([]models.MatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MatchRecord
	for _, m := range s.Matches {
		if m.ExperienceID == experienceID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndedAt.After(out[j].EndedAt) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}
