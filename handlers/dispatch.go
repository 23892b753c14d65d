package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/blockclash/blockclash-backend/game"
	"github.com/blockclash/blockclash-backend/logger"
	"github.com/blockclash/blockclash-backend/models"
	"github.com/blockclash/blockclash-backend/wallet"
)

const opTimeout = 10 * time.Second

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

// processMessage routes one inbound envelope. Everything except
// authenticate requires an authenticated connection.
func (c *Connection) processMessage(raw []byte) {
	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.sendError("Invalid message format.")
		return
	}

	if env.Type == models.MsgAuthenticate {
		c.handleAuthenticate(env.Payload)
		return
	}
	if !c.authenticated {
		c.Send(models.MsgAuthError, models.ErrorPayload{Message: "Not authenticated."})
		return
	}

	switch env.Type {
	case models.MsgListRooms:
		c.handleListRooms()
	case models.MsgCreateRoom:
		c.handleCreateRoom(env.Payload)
	case models.MsgCreateWagerRoom:
		c.handleCreateWagerRoom(env.Payload)
	case models.MsgCreateSinglePlayer:
		c.handleCreateSinglePlayer(env.Payload)
	case models.MsgJoinRoom:
		c.handleJoinRoom(env.Payload)
	case models.MsgLeaveRoom:
		c.handleLeaveRoom()
	case models.MsgPlayerReady, models.MsgStartGame:
		gameManager.MarkReady(c.playerID)
	case models.MsgPlayerUpdate:
		c.handlePlayerUpdate(env.Payload)
	case models.MsgShoot:
		c.handleShoot(env.Payload)
	case models.MsgHit:
		c.handleHit(env.Payload)
	case models.MsgWeaponSwitch:
		c.handleWeaponSwitch(env.Payload)
	case models.MsgReloadStart:
		gameManager.ReloadStart(c.playerID)
	case models.MsgReloadComplete:
		// Reload completion is server-timed; the client notice is ignored.
	case models.MsgGetWallet:
		c.handleGetWallet(env.Payload)
	default:
		logger.Log.Debugw("ignoring unknown message type", "type", env.Type, "playerId", c.playerID)
	}
}

// handleAuthenticate validates the session token and binds this socket
// to a fresh player identity. The experience in the token must match
// the one the client asks to join.
func (c *Connection) handleAuthenticate(raw json.RawMessage) {
	var payload models.AuthenticatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.Send(models.MsgAuthError, models.ErrorPayload{Message: "Invalid authenticate payload."})
		return
	}

	claims, err := ValidateToken(payload.SessionToken)
	if err != nil {
		c.Send(models.MsgAuthError, models.ErrorPayload{Message: "Invalid or expired session token."})
		return
	}
	if claims.ExperienceID != "" && payload.ExperienceID != "" && claims.ExperienceID != payload.ExperienceID {
		c.Send(models.MsgAuthError, models.ErrorPayload{Message: "Session token does not match this experience."})
		return
	}

	experienceID := payload.ExperienceID
	if experienceID == "" {
		experienceID = claims.ExperienceID
	}

	if c.authenticated {
		// Re-auth on a live socket tears down the old identity first.
		ctx, cancel := opContext()
		gameManager.RemovePlayer(ctx, c.playerID)
		cancel()
		gameManager.Registry().UnregisterConn(c.playerID)
	}

	c.authenticated = true
	c.accountID = claims.UserID
	c.username = claims.Username
	c.experienceID = experienceID
	c.playerID = game.NewPlayerID(claims.UserID)
	gameManager.Registry().RegisterConn(c.playerID, experienceID, c)

	c.Send(models.MsgAuthenticated, map[string]interface{}{
		"playerId":     c.playerID,
		"accountId":    c.accountID,
		"experienceId": c.experienceID,
	})
	c.handleListRooms()
	logger.Log.Infow("player authenticated", "playerId", c.playerID, "accountId", c.accountID, "experienceId", experienceID)
}

func (c *Connection) handleListRooms() {
	c.Send(models.MsgRoomsList, map[string]interface{}{
		"rooms": gameManager.ListRooms(c.experienceID),
	})
}

func (c *Connection) newPlayer(username, profilePicture string) *models.Player {
	if username == "" {
		username = c.username
	}
	_, cfg := models.WeaponOrDefault(models.WeaponPistol)
	return &models.Player{
		ID:             c.playerID,
		AccountID:      c.accountID,
		Username:       username,
		ProfilePicture: profilePicture,
		Health:         models.MaxHealth,
		IsAlive:        true,
		Weapon:         models.WeaponPistol,
		Ammo:           cfg.MaxAmmo,
	}
}

func (c *Connection) handleCreateRoom(raw json.RawMessage) {
	var payload models.CreateRoomPayload
	json.Unmarshal(raw, &payload)
	if _, err := gameManager.CreateRoom(c.newPlayer(payload.Username, payload.ProfilePicture), c.experienceID); err != nil {
		c.sendError(err.Error())
	}
}

func (c *Connection) handleCreateWagerRoom(raw json.RawMessage) {
	var payload models.CreateWagerRoomPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError("Invalid create_wager_room payload.")
		return
	}
	ctx, cancel := opContext()
	defer cancel()
	_, w, err := gameManager.CreateWagerRoom(ctx, c.newPlayer(payload.Username, payload.ProfilePicture), c.experienceID, payload.EntryFee)
	if err != nil {
		c.sendWagerError(ctx, err, payload.EntryFee)
		return
	}
	c.Send(models.MsgWalletUpdated, map[string]interface{}{
		"wallet": w,
		"reason": "wager_entry",
	})
}

func (c *Connection) handleCreateSinglePlayer(raw json.RawMessage) {
	var payload models.CreateRoomPayload
	json.Unmarshal(raw, &payload)
	if _, err := gameManager.CreateSoloRoom(c.newPlayer(payload.Username, payload.ProfilePicture), c.experienceID); err != nil {
		c.sendError(err.Error())
	}
}

func (c *Connection) handleJoinRoom(raw json.RawMessage) {
	var payload models.JoinRoomPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError("Invalid join_room payload.")
		return
	}
	ctx, cancel := opContext()
	defer cancel()
	_, w, err := gameManager.JoinRoom(ctx, payload.RoomID, c.newPlayer(payload.Username, payload.ProfilePicture))
	if err != nil {
		c.sendWagerError(ctx, err, 0)
		return
	}
	if w != nil {
		c.Send(models.MsgWalletUpdated, map[string]interface{}{
			"wallet": w,
			"reason": "wager_entry",
		})
	}
}

// sendWagerError enriches insufficient-funds failures with the actual
// balance so the client can show a top-up prompt.
func (c *Connection) sendWagerError(ctx context.Context, err error, required int64) {
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		c.sendError(err.Error())
		return
	}
	var current int64
	if w, werr := gameManager.WalletFor(ctx, c.accountID, c.username); werr == nil {
		current = w.Balance
	}
	c.Send(models.MsgError, models.ErrorPayload{
		Message:  "Insufficient funds for entry fee.",
		Required: required,
		Current:  current,
	})
}

func (c *Connection) handleLeaveRoom() {
	ctx, cancel := opContext()
	defer cancel()
	gameManager.RemovePlayer(ctx, c.playerID)
	c.handleListRooms()
}

func (c *Connection) handlePlayerUpdate(raw json.RawMessage) {
	var payload models.PlayerUpdatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	gameManager.ApplyMovement(c.playerID, payload)
}

func (c *Connection) handleShoot(raw json.RawMessage) {
	var payload models.ShootPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	gameManager.Shoot(c.playerID, payload)
}

func (c *Connection) handleHit(raw json.RawMessage) {
	var payload models.HitPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	gameManager.Hit(c.playerID, payload)
}

func (c *Connection) handleWeaponSwitch(raw json.RawMessage) {
	var payload models.WeaponSwitchPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	gameManager.WeaponSwitch(c.playerID, payload)
}

func (c *Connection) handleGetWallet(raw json.RawMessage) {
	var payload models.GetWalletPayload
	json.Unmarshal(raw, &payload)
	username := payload.Username
	if username == "" {
		username = c.username
	}
	ctx, cancel := opContext()
	defer cancel()
	w, err := gameManager.WalletFor(ctx, c.accountID, username)
	if err != nil {
		c.sendError("Failed to load wallet.")
		return
	}
	c.Send(models.MsgWalletData, map[string]interface{}{"wallet": w})
}
