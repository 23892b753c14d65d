package game

import (
	"context"
	"math/rand"
	"time"

	"github.com/blockclash/blockclash-backend/models"
	"github.com/blockclash/blockclash-backend/repository"
)

const (
	soloWinBaseCoins  = 75
	soloWinBonusCoins = 50
)

// settle pays out and persists one finished match. The settled flag
// claimed from the room guarantees at most one execution even when the
// natural match-over path and a forfeit race each other.
func (m *Manager) settle(ctx context.Context, room *Room, winner models.Player, roster []models.Player) {
	pool, ok := room.claimSettlement()
	if !ok {
		return
	}

	var platformFee, payout, coins int64
	switch room.Type {
	case models.RoomWager:
		platformFee = pool * int64(room.PlatformFeePercent) / 100
		payout = pool - platformFee
		if !winner.IsBot() && payout > 0 {
			w, err := m.ledger.Payout(ctx, winner.AccountID, payout, room.ID, pool, platformFee)
			if err != nil {
				m.log.Errorw("wager payout failed", "roomId", room.ID, "accountId", winner.AccountID, "payout", payout, "error", err)
			} else {
				m.sendTo(winner.ID, models.MsgWalletUpdated, map[string]interface{}{
					"wallet": w,
					"reason": "wager_win",
					"amount": payout,
				})
			}
		}
	case models.RoomSolo:
		if !winner.IsBot() {
			coins = soloWinBaseCoins + rand.Int63n(soloWinBonusCoins)
			w, err := m.ledger.RewardCoins(ctx, winner.AccountID, coins, room.ID)
			if err != nil {
				m.log.Errorw("solo coin reward failed", "roomId", room.ID, "accountId", winner.AccountID, "error", err)
			} else {
				m.sendTo(winner.ID, models.MsgWalletUpdated, map[string]interface{}{
					"wallet": w,
					"reason": "coin_earn",
					"amount": coins,
				})
			}
		}
	}

	for _, p := range roster {
		if p.IsBot() {
			continue
		}
		won := p.AccountID == winner.AccountID
		if err := m.applyMatchStats(ctx, p, won, room.Type, room.EntryFee, payout, coins); err != nil {
			m.log.Errorw("stats update failed", "roomId", room.ID, "accountId", p.AccountID, "error", err)
		}
	}

	rec := m.buildMatchRecord(room, winner, roster, platformFee, pool)
	if err := m.ledger.Store().UpsertMatch(ctx, rec); err != nil {
		m.log.Errorw("match record upsert failed", "roomId", room.ID, "error", err)
	}
	m.saveMatchSummary(rec)

	m.log.Infow("match settled",
		"roomId", room.ID,
		"type", room.Type,
		"winner", winner.Username,
		"prizePool", pool,
		"platformFee", platformFee,
		"payout", payout,
		"coins", coins,
	)
}

// saveMatchSummary mirrors the settled match into the relational
// matches table for reporting queries. Mongo stays the system of
// record; a failed or absent Postgres write is only logged.
func (m *Manager) saveMatchSummary(rec models.MatchRecord) {
	db := repository.PostgreSQLDB
	if db == nil {
		return
	}
	_, err := db.Exec(
		`INSERT INTO matches (match_id, room_id, experience_id, type, entry_fee, prize_pool, platform_fee, winner_id, loser_id, duration_ms, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (match_id) DO NOTHING`,
		rec.MatchID, rec.RoomID, rec.ExperienceID, string(rec.Type), rec.EntryFee,
		rec.PrizePool, rec.PlatformFee, rec.WinnerID, rec.LoserID, rec.Duration, rec.EndedAt,
	)
	if err != nil {
		m.log.Errorw("match summary insert failed", "matchId", rec.MatchID, "error", err)
	}
}

// applyMatchStats folds one match into the persistent scoreboard. Win
// streaks count every match type; a solo win extends the streak the
// same way a wager win does.
func (m *Manager) applyMatchStats(ctx context.Context, p models.Player, won bool, roomType models.RoomType, entryFee, payout, coins int64) error {
	stats, err := m.ledger.Store().GetOrCreateStats(ctx, p.AccountID, p.Username)
	if err != nil {
		return err
	}

	upd := models.StatsUpdate{
		Set: map[string]interface{}{
			"lastMatchAt": time.Now(),
		},
		Inc: map[string]int64{
			"matchesPlayed": 1,
			"totalKills":    int64(p.Kills),
		},
	}

	if won {
		streak := stats.CurrentWinStreak + 1
		upd.Set["currentWinStreak"] = streak
		if streak > stats.BestWinStreak {
			upd.Set["bestWinStreak"] = streak
		}
	} else {
		upd.Set["currentWinStreak"] = int64(0)
	}

	switch roomType {
	case models.RoomSolo:
		if won {
			upd.Inc["soloWins"] = 1
			upd.Inc["coinsEarned"] = coins
		} else {
			upd.Inc["totalDeaths"] = 1
		}
	default:
		if won {
			upd.Inc["totalWins"] = 1
			if payout > 0 {
				upd.Inc["totalEarnings"] = payout
			}
		} else {
			upd.Inc["totalLosses"] = 1
			upd.Inc["totalDeaths"] = 1
		}
		if roomType == models.RoomWager {
			upd.Inc["totalWagered"] = entryFee
		}
	}

	return m.ledger.Store().ApplyStatsUpdate(ctx, p.AccountID, upd)
}

func (m *Manager) buildMatchRecord(room *Room, winner models.Player, roster []models.Player, platformFee, pool int64) models.MatchRecord {
	now := time.Now()
	rec := models.MatchRecord{
		MatchID:      "match_" + room.ID,
		RoomID:       room.ID,
		ExperienceID: room.ExperienceID,
		Type:         room.Type,
		EntryFee:     room.EntryFee,
		PrizePool:    pool,
		PlatformFee:  platformFee,
		WinnerID:     winner.AccountID,
		CreatedAt:    room.CreatedAt,
		EndedAt:      now,
		Duration:     now.Sub(room.CreatedAt).Milliseconds(),
	}
	for _, p := range roster {
		deaths := 0
		if !p.IsAlive {
			deaths = 1
		}
		rec.Players = append(rec.Players, models.MatchParticipant{
			AccountID: p.AccountID,
			Username:  p.Username,
			Kills:     p.Kills,
			Deaths:    deaths,
		})
		if p.AccountID != winner.AccountID && !p.IsBot() {
			rec.LoserID = p.AccountID
		}
	}
	return rec
}
