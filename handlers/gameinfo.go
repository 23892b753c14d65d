package handlers

import (
	"net/http"
	"strconv"

	"github.com/blockclash/blockclash-backend/common"
	"github.com/blockclash/blockclash-backend/logger"
	"github.com/blockclash/blockclash-backend/models"
	"github.com/blockclash/blockclash-backend/responses"
	"github.com/blockclash/blockclash-backend/utils"
)

const defaultListLimit = 20

func authClaims(r *http.Request) (*models.SessionClaims, bool) {
	claims, ok := r.Context().Value(common.AuthInfoKey).(*models.SessionClaims)
	return claims, ok
}

func listLimit(r *http.Request) int64 {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 && n <= 100 {
			return n
		}
	}
	return defaultListLimit
}

// FetchStats returns the caller's persistent scoreboard.
func FetchStats(w http.ResponseWriter, r *http.Request) {
	claims, ok := authClaims(r)
	if !ok {
		utils.HandleError(w, responses.UnauthorizedError{Msg: "You are not authorized to access this resource."})
		return
	}

	stats, err := gameManager.Store().GetOrCreateStats(r.Context(), claims.UserID, claims.Username)
	if err != nil {
		logger.Log.Errorw("fetch stats failed", "accountId", claims.UserID, "error", err)
		utils.HandleError(w, responses.InternalServerError{Msg: "Failed to fetch stats."})
		return
	}
	utils.HandleSuccess(w, models.SuccessResponse(stats))
}

// FetchWallet returns (creating if needed) the caller's wallet.
func FetchWallet(w http.ResponseWriter, r *http.Request) {
	claims, ok := authClaims(r)
	if !ok {
		utils.HandleError(w, responses.UnauthorizedError{Msg: "You are not authorized to access this resource."})
		return
	}

	wallet, err := gameManager.WalletFor(r.Context(), claims.UserID, claims.Username)
	if err != nil {
		logger.Log.Errorw("fetch wallet failed", "accountId", claims.UserID, "error", err)
		utils.HandleError(w, responses.InternalServerError{Msg: "Failed to fetch wallet."})
		return
	}
	utils.HandleSuccess(w, models.SuccessResponse(wallet))
}

// FetchRecentMatches lists the latest settled matches of one experience.
func FetchRecentMatches(w http.ResponseWriter, r *http.Request) {
	if _, ok := authClaims(r); !ok {
		utils.HandleError(w, responses.UnauthorizedError{Msg: "You are not authorized to access this resource."})
		return
	}

	experienceID := r.URL.Query().Get("experienceId")
	matches, err := gameManager.Store().RecentMatches(r.Context(), experienceID, listLimit(r))
	if err != nil {
		logger.Log.Errorw("fetch matches failed", "experienceId", experienceID, "error", err)
		utils.HandleError(w, responses.InternalServerError{Msg: "Failed to fetch matches."})
		return
	}
	utils.HandleSuccess(w, models.SuccessResponse(matches))
}

// FetchLeaderboard ranks players by the requested category; unknown
// categories fall back to total earnings.
func FetchLeaderboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := authClaims(r); !ok {
		utils.HandleError(w, responses.UnauthorizedError{Msg: "You are not authorized to access this resource."})
		return
	}

	category := r.URL.Query().Get("category")
	board, err := gameManager.Store().Leaderboard(r.Context(), category, listLimit(r))
	if err != nil {
		logger.Log.Errorw("fetch leaderboard failed", "category", category, "error", err)
		utils.HandleError(w, responses.InternalServerError{Msg: "Failed to fetch leaderboard."})
		return
	}
	utils.HandleSuccess(w, models.SuccessResponse(board))
}
