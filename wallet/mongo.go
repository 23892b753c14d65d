package wallet

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/blockclash/blockclash-backend/models"
)

// MongoStore persists wallets, transactions, player stats and match
// records. Balance mutations use a filtered FindOneAndUpdate so a
// subtract only succeeds while balance >= amount.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	return &MongoStore{db: client.Database(dbName)}
}

// EnsureIndexes creates the unique and ranking indexes. Call once at startup.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection("wallets").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "accountId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.db.Collection("transactions").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "accountId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return err
	}
	_, err = s.db.Collection("player_stats").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "accountId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.db.Collection("matches").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "matchId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *MongoStore) GetOrCreateWallet(ctx context.Context, accountID, username string) (*models.Wallet, error) {
	wallets := s.db.Collection("wallets")

	var w models.Wallet
	err := wallets.FindOne(ctx, bson.M{"accountId": accountID}).Decode(&w)
	if err == nil {
		return &w, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	now := time.Now()
	w = models.Wallet{
		AccountID: accountID,
		Username:  username,
		Balance:   0,
		Coins:     0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := wallets.InsertOne(ctx, w); err != nil {
		// Lost a create race; the other writer's document wins.
		if mongo.IsDuplicateKeyError(err) {
			if err := wallets.FindOne(ctx, bson.M{"accountId": accountID}).Decode(&w); err != nil {
				return nil, err
			}
			return &w, nil
		}
		return nil, err
	}
	return &w, nil
}

func (s *MongoStore) AdjustBalance(ctx context.Context, accountID string, amount int64, op BalanceOp) (*models.Wallet, error) {
	return s.adjust(ctx, accountID, "balance", amount, op)
}

func (s *MongoStore) AdjustCoins(ctx context.Context, accountID string, amount int64, op BalanceOp) (*models.Wallet, error) {
	return s.adjust(ctx, accountID, "coins", amount, op)
}

func (s *MongoStore) adjust(ctx context.Context, accountID, field string, amount int64, op BalanceOp) (*models.Wallet, error) {
	wallets := s.db.Collection("wallets")

	delta := amount
	filter := bson.M{"accountId": accountID}
	if op == OpSubtract {
		delta = -amount
		filter[field] = bson.M{"$gte": amount}
	}

	var updated models.Wallet
	err := wallets.FindOneAndUpdate(ctx,
		filter,
		bson.M{
			"$inc": bson.M{field: delta},
			"$set": bson.M{"updatedAt": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if op == OpSubtract {
			return nil, ErrInsufficientFunds
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *MongoStore) RecordTransaction(ctx context.Context, tx models.Transaction) error {
	tx.CreatedAt = time.Now()
	_, err := s.db.Collection("transactions").InsertOne(ctx, tx)
	return err
}

func (s *MongoStore) GetOrCreateStats(ctx context.Context, accountID, username string) (*models.PlayerStats, error) {
	stats := s.db.Collection("player_stats")

	var ps models.PlayerStats
	err := stats.FindOne(ctx, bson.M{"accountId": accountID}).Decode(&ps)
	if err == nil {
		return &ps, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	now := time.Now()
	ps = models.PlayerStats{
		AccountID:   accountID,
		Username:    username,
		LastMatchAt: now,
		UpdatedAt:   now,
	}
	if _, err := stats.InsertOne(ctx, ps); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if err := stats.FindOne(ctx, bson.M{"accountId": accountID}).Decode(&ps); err != nil {
				return nil, err
			}
			return &ps, nil
		}
		return nil, err
	}
	return &ps, nil
}

func (s *MongoStore) ApplyStatsUpdate(ctx context.Context, accountID string, upd models.StatsUpdate) error {
	set := bson.M{"updatedAt": time.Now()}
	for k, v := range upd.Set {
		set[k] = v
	}
	update := bson.M{"$set": set}
	if len(upd.Inc) > 0 {
		inc := bson.M{}
		for k, v := range upd.Inc {
			inc[k] = v
		}
		update["$inc"] = inc
	}

	_, err := s.db.Collection("player_stats").UpdateOne(ctx, bson.M{"accountId": accountID}, update)
	return err
}

func (s *MongoStore) UpsertMatch(ctx context.Context, rec models.MatchRecord) error {
	_, err := s.db.Collection("matches").ReplaceOne(ctx,
		bson.M{"matchId": rec.MatchID},
		rec,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) Leaderboard(ctx context.Context, category string, limit int64) ([]models.PlayerStats, error) {
	var sortField string
	switch category {
	case "wins":
		sortField = "totalWins"
	case "kills":
		sortField = "totalKills"
	case "streak":
		sortField = "bestWinStreak"
	case "coins":
		sortField = "coinsEarned"
	default:
		sortField = "totalEarnings"
	}

	cur, err := s.db.Collection("player_stats").Find(ctx,
		bson.M{},
		options.Find().SetSort(bson.D{{Key: sortField, Value: -1}}).SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.PlayerStats
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) RecentMatches(ctx context.Context, experienceID string, limit int64) ([]models.MatchRecord, error) {
	cur, err := s.db.Collection("matches").Find(ctx,
		bson.M{"experienceId": experienceID},
		options.Find().SetSort(bson.D{{Key: "endedAt", Value: -1}}).SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.MatchRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
