package models

import "time"

// Wallet holds both the real-money balance (minor currency units) and
// the in-game coins balance for one account.
type Wallet struct {
	AccountID string    `bson:"accountId" json:"accountId"`
	Username  string    `bson:"username" json:"username"`
	Balance   int64     `bson:"balance" json:"balance"`
	Coins     int64     `bson:"coins" json:"coins"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type TransactionKind string

const (
	TxDeposit     TransactionKind = "deposit"
	TxWithdrawal  TransactionKind = "withdrawal"
	TxWagerEntry  TransactionKind = "wager_entry"
	TxWagerWin    TransactionKind = "wager_win"
	TxWagerRefund TransactionKind = "wager_refund"
	TxCoinEarn    TransactionKind = "coin_earn"
)

type Transaction struct {
	AccountID string          `bson:"accountId" json:"accountId"`
	Kind      TransactionKind `bson:"kind" json:"kind"`
	Amount    int64           `bson:"amount" json:"amount"`
	Currency  string          `bson:"currency" json:"currency"`
	Status    string          `bson:"status" json:"status"`
	Metadata  TxMetadata      `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt time.Time       `bson:"createdAt" json:"createdAt"`
}

type TxMetadata struct {
	RoomID      string `bson:"roomId,omitempty" json:"roomId,omitempty"`
	MatchID     string `bson:"matchId,omitempty" json:"matchId,omitempty"`
	PrizePool   int64  `bson:"prizePool,omitempty" json:"prizePool,omitempty"`
	PlatformFee int64  `bson:"platformFee,omitempty" json:"platformFee,omitempty"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
}

// PlayerStats is the persistent per-account scoreboard.
type PlayerStats struct {
	AccountID        string    `bson:"accountId" json:"accountId"`
	Username         string    `bson:"username" json:"username"`
	TotalWins        int64     `bson:"totalWins" json:"totalWins"`
	TotalLosses      int64     `bson:"totalLosses" json:"totalLosses"`
	TotalEarnings    int64     `bson:"totalEarnings" json:"totalEarnings"`
	TotalWagered     int64     `bson:"totalWagered" json:"totalWagered"`
	CurrentWinStreak int64     `bson:"currentWinStreak" json:"currentWinStreak"`
	BestWinStreak    int64     `bson:"bestWinStreak" json:"bestWinStreak"`
	TotalKills       int64     `bson:"totalKills" json:"totalKills"`
	TotalDeaths      int64     `bson:"totalDeaths" json:"totalDeaths"`
	SoloWins         int64     `bson:"soloWins" json:"soloWins"`
	CoinsEarned      int64     `bson:"coinsEarned" json:"coinsEarned"`
	MatchesPlayed    int64     `bson:"matchesPlayed" json:"matchesPlayed"`
	LastMatchAt      time.Time `bson:"lastMatchAt" json:"lastMatchAt"`
	UpdatedAt        time.Time `bson:"updatedAt" json:"updatedAt"`
}

// StatsUpdate carries absolute sets and relative increments applied in
// one persistence call.
type StatsUpdate struct {
	Set map[string]interface{}
	Inc map[string]int64
}

// MatchParticipant is one roster entry in a persisted match record.
type MatchParticipant struct {
	AccountID string `bson:"accountId" json:"accountId"`
	Username  string `bson:"username" json:"username"`
	Kills     int    `bson:"kills" json:"kills"`
	Deaths    int    `bson:"deaths" json:"deaths"`
}

// MatchRecord is persisted exactly once per room outcome; UpsertMatch is
// keyed on MatchID so the natural match-over path and the forfeit path
// cannot both insert.
type MatchRecord struct {
	MatchID      string             `bson:"matchId" json:"matchId"`
	RoomID       string             `bson:"roomId" json:"roomId"`
	ExperienceID string             `bson:"experienceId" json:"experienceId"`
	Type         RoomType           `bson:"type" json:"type"`
	EntryFee     int64              `bson:"entryFee" json:"entryFee"`
	PrizePool    int64              `bson:"prizePool" json:"prizePool"`
	PlatformFee  int64              `bson:"platformFee" json:"platformFee"`
	WinnerID     string             `bson:"winnerId" json:"winnerId"`
	LoserID      string             `bson:"loserId,omitempty" json:"loserId,omitempty"`
	Players      []MatchParticipant `bson:"players" json:"players"`
	Duration     int64              `bson:"duration" json:"duration"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	EndedAt      time.Time          `bson:"endedAt" json:"endedAt"`
}
