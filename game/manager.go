package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blockclash/blockclash-backend/models"
	"github.com/blockclash/blockclash-backend/wallet"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrAlreadyInRoom   = errors.New("player already in a room")
	ErrInvalidEntryFee = errors.New("invalid entry fee")
)

// Policy holds the wager limits the manager enforces at room creation.
type Policy struct {
	MinEntryFee        int64
	MaxEntryFee        int64
	PlatformFeePercent int
}

// Manager orchestrates rooms, connections and the ledger. Room state is
// mutated through Room's own lock; ledger calls always happen with no
// room lock held.
type Manager struct {
	reg    *Registry
	ledger *wallet.Ledger
	policy Policy
	log    *zap.SugaredLogger
}

func NewManager(reg *Registry, ledger *wallet.Ledger, policy Policy, log *zap.SugaredLogger) *Manager {
	return &Manager{reg: reg, ledger: ledger, policy: policy, log: log}
}

func (m *Manager) Registry() *Registry { return m.reg }

func (m *Manager) Store() wallet.Store { return m.ledger.Store() }

func (m *Manager) ListRooms(experienceID string) []models.RoomInfo {
	return m.reg.WaitingRooms(experienceID)
}

// CreateRoom opens a free two-player room with the creator seated.
func (m *Manager) CreateRoom(player *models.Player, experienceID string) (*Room, error) {
	if m.reg.RoomOf(player.ID) != nil {
		return nil, ErrAlreadyInRoom
	}
	room := m.newSeatedRoom(player, experienceID, models.RoomFree)
	m.announceJoin(room, *player)
	m.broadcastLobby(experienceID)
	return room, nil
}

// CreateWagerRoom debits the creator's entry fee into escrow before the
// room becomes visible. A failed debit means no room.
func (m *Manager) CreateWagerRoom(ctx context.Context, player *models.Player, experienceID string, entryFee int64) (*Room, *models.Wallet, error) {
	if m.reg.RoomOf(player.ID) != nil {
		return nil, nil, ErrAlreadyInRoom
	}
	if entryFee < m.policy.MinEntryFee || entryFee > m.policy.MaxEntryFee {
		return nil, nil, ErrInvalidEntryFee
	}

	room := newRoom(newRoomID(), experienceID, models.RoomWager)
	room.EntryFee = entryFee
	room.PlatformFeePercent = m.policy.PlatformFeePercent

	w, err := m.ledger.DebitEntryFee(ctx, player.AccountID, entryFee, room.ID)
	if err != nil {
		return nil, nil, err
	}
	room.holdEscrow(player.AccountID, entryFee)

	m.seatAndRegister(room, player)
	m.announceJoin(room, *player)
	m.broadcastLobby(experienceID)
	return room, w, nil
}

// CreateSoloRoom seats the creator against the practice bot. No escrow;
// solo matches pay out coins, never balance.
func (m *Manager) CreateSoloRoom(player *models.Player, experienceID string) (*Room, error) {
	if m.reg.RoomOf(player.ID) != nil {
		return nil, ErrAlreadyInRoom
	}
	room := m.newSeatedRoom(player, experienceID, models.RoomSolo)
	room.mu.Lock()
	room.SinglePlayer = true
	room.mu.Unlock()

	bot := newBotPlayer()
	room.mu.Lock()
	room.BotID = bot.ID
	room.mu.Unlock()
	room.addPlayer(bot)

	m.announceJoin(room, *player)
	return room, nil
}

func (m *Manager) newSeatedRoom(player *models.Player, experienceID string, roomType models.RoomType) *Room {
	room := newRoom(newRoomID(), experienceID, roomType)
	m.seatAndRegister(room, player)
	return room
}

func (m *Manager) seatAndRegister(room *Room, player *models.Player) {
	room.addPlayer(player)
	m.reg.AddRoom(room)
	m.reg.BindRoom(player.ID, room.ID)
}

func newRoomID() string {
	return "room_" + uuid.NewString()
}

// JoinRoom seats a second player. For wager rooms the entry fee is
// debited with no room lock held, then the seat is re-validated; a
// room that filled up in the meantime gets the debit refunded.
func (m *Manager) JoinRoom(ctx context.Context, roomID string, player *models.Player) (*Room, *models.Wallet, error) {
	if m.reg.RoomOf(player.ID) != nil {
		return nil, nil, ErrAlreadyInRoom
	}
	room := m.reg.Room(roomID)
	if room == nil {
		return nil, nil, ErrRoomNotFound
	}

	// Capacity is the only join gate; a rejoin into a live match is
	// allowed and the client snaps to the playing state.
	info := room.Info()
	if info.PlayerCount >= info.MaxPlayers {
		return nil, nil, ErrRoomFull
	}

	var w *models.Wallet
	if info.RoomType == models.RoomWager {
		var err error
		w, err = m.ledger.DebitEntryFee(ctx, player.AccountID, info.EntryFee, room.ID)
		if err != nil {
			return nil, nil, err
		}
	}

	if !room.addPlayer(player) {
		if info.RoomType == models.RoomWager {
			if _, err := m.ledger.Refund(ctx, player.AccountID, info.EntryFee, room.ID); err != nil {
				m.log.Errorw("entry fee stranded after failed seat", "roomId", room.ID, "accountId", player.AccountID, "error", err)
			}
		}
		return nil, nil, ErrRoomFull
	}
	if info.RoomType == models.RoomWager {
		room.holdEscrow(player.AccountID, info.EntryFee)
	}
	m.reg.BindRoom(player.ID, room.ID)

	m.announceJoin(room, *player)
	m.broadcastLobby(room.ExperienceID)
	return room, w, nil
}

func (m *Manager) announceJoin(room *Room, joined models.Player) {
	info := room.Info()
	roster := room.PlayersSnapshot()
	m.sendTo(joined.ID, models.MsgRoomJoined, map[string]interface{}{
		"room":    info,
		"players": roster,
		"yourId":  joined.ID,
	})
	m.broadcast(room, joined.ID, models.MsgPlayerJoined, map[string]interface{}{
		"player": joined,
		"room":   info,
	})
	if info.PlayerCount >= info.MaxPlayers {
		m.broadcast(room, "", models.MsgRoomFull, map[string]interface{}{"roomId": room.ID})
	}
}

// MarkReady records readiness. A full PvP room starts the countdown
// once every human seat is ready; a solo room skips the countdown and
// activates the bot on the spot.
func (m *Manager) MarkReady(playerID string) {
	room := m.reg.RoomOf(playerID)
	if room == nil {
		return
	}
	all := room.markReady(playerID)
	m.broadcast(room, "", models.MsgPlayerReadyStatus, map[string]interface{}{
		"playerId": playerID,
		"ready":    true,
	})
	if !all || !room.beginCountdown() {
		return
	}

	if room.SinglePlayer {
		m.startMatch(room)
		return
	}

	m.broadcast(room, "", models.MsgCountdownStart, map[string]interface{}{
		"seconds": countdownSeconds,
	})
	m.broadcastLobby(room.ExperienceID)
	m.countdownTick(room, countdownSeconds)
}

// countdownTick goes quiet as soon as the room leaves the starting
// status, so an aborted countdown never flips a half-empty room into
// a match.
func (m *Manager) countdownTick(room *Room, remaining int) {
	room.schedule(time.Second, func() {
		if room.Info().Status != models.RoomStarting {
			return
		}
		next := remaining - 1
		if next > 0 {
			m.broadcast(room, "", models.MsgCountdownTick, map[string]interface{}{"seconds": next})
			m.countdownTick(room, next)
			return
		}
		m.startMatch(room)
	})
}

func (m *Manager) startMatch(room *Room) {
	if !room.beginPlaying() {
		return
	}
	roster := room.PlayersSnapshot()
	m.broadcast(room, "", models.MsgGameStarted, map[string]interface{}{
		"players":      roster,
		"currentRound": 1,
		"maxRounds":    maxRounds,
	})
	m.broadcast(room, "", models.MsgGameActive, map[string]interface{}{"roomId": room.ID})
	m.startBotIfNeeded(room)
	m.log.Infow("match started", "roomId", room.ID, "type", room.Type, "players", len(roster))
}

// Movement fan-out. Position, rotation, ammo and reload flag are
// client-trusted and forwarded verbatim to the other seat.
func (m *Manager) ApplyMovement(playerID string, upd models.PlayerUpdatePayload) {
	room := m.reg.RoomOf(playerID)
	if room == nil {
		return
	}
	p, ok := room.applyMovement(playerID, upd)
	if !ok {
		return
	}
	m.broadcast(room, playerID, models.MsgPlayerMoved, map[string]interface{}{
		"playerId":    p.ID,
		"position":    p.Position,
		"rotation":    p.Rotation,
		"ammo":        p.Ammo,
		"isReloading": p.IsReloading,
	})
}

func (m *Manager) Shoot(playerID string, payload models.ShootPayload) {
	room := m.reg.RoomOf(playerID)
	if room == nil {
		return
	}
	bullet, p, ok := room.recordShot(playerID, "bullet_"+uuid.NewString(), payload.Position, payload.Direction)
	if !ok {
		return
	}
	m.broadcast(room, playerID, models.MsgBulletFired, map[string]interface{}{
		"bullet":   bullet,
		"playerId": p.ID,
		"ammo":     p.Ammo,
	})
}

// Hit applies client-reported damage after replacing the reported
// number with the server-side weapon table value.
func (m *Manager) Hit(shooterID string, payload models.HitPayload) {
	room := m.reg.RoomOf(shooterID)
	if room == nil {
		return
	}
	out := room.resolveShot(shooterID, payload.TargetPlayerID)
	m.afterShot(room, shooterID, out)
}

// afterShot fans out the consequences of a resolved hit. Runs with no
// room lock held.
func (m *Manager) afterShot(room *Room, shooterID string, out ShotOutcome) {
	if !out.Applied {
		return
	}
	m.broadcast(room, "", models.MsgPlayerDamaged, map[string]interface{}{
		"playerId":  out.Target.ID,
		"health":    out.Target.Health,
		"shooterId": shooterID,
	})
	if !out.Killed {
		return
	}
	m.broadcast(room, "", models.MsgPlayerKilled, map[string]interface{}{
		"killedPlayerId": out.Target.ID,
		"killerPlayerId": shooterID,
		"kills":          out.ShooterKills,
	})
	if !out.RoundOver {
		return
	}
	m.broadcast(room, "", models.MsgRoundEnded, map[string]interface{}{
		"round":      out.RoundNumber,
		"winnerId":   out.RoundWinner.ID,
		"playerWins": out.Wins,
	})
	if out.MatchOver {
		m.finishMatch(room, out.MatchWinner, "match_complete")
		return
	}
	room.schedule(nextRoundDelay, func() { m.beginNextRound(room) })
}

func (m *Manager) beginNextRound(room *Room) {
	roster, round, ok := room.startNextRound()
	if !ok {
		return
	}
	m.broadcast(room, "", models.MsgRoundStarted, map[string]interface{}{
		"round":   round,
		"players": roster,
	})
}

func (m *Manager) WeaponSwitch(playerID string, payload models.WeaponSwitchPayload) {
	room := m.reg.RoomOf(playerID)
	if room == nil {
		return
	}
	p, ok := room.switchWeapon(playerID, payload.Weapon)
	if !ok {
		return
	}
	m.broadcast(room, playerID, models.MsgWeaponSwitched, map[string]interface{}{
		"playerId": p.ID,
		"weapon":   p.Weapon,
		"ammo":     p.Ammo,
	})
}

func (m *Manager) ReloadStart(playerID string) {
	room := m.reg.RoomOf(playerID)
	if room == nil {
		return
	}
	p, reloadTime, ok := room.startReload(playerID)
	if !ok {
		return
	}
	m.broadcast(room, playerID, models.MsgReloadStarted, map[string]interface{}{
		"playerId":   p.ID,
		"reloadTime": reloadTime.Milliseconds(),
	})
	room.schedule(reloadTime, func() {
		done, ok := room.finishReload(playerID)
		if !ok {
			return
		}
		m.broadcast(room, "", models.MsgReloadCompleted, map[string]interface{}{
			"playerId": done.ID,
			"ammo":     done.Ammo,
		})
	})
}

// RemovePlayer is the single exit path for both an explicit leave_room
// and a dropped connection; calling it twice for the same player is
// harmless.
func (m *Manager) RemovePlayer(ctx context.Context, playerID string) {
	room := m.reg.RoomOf(playerID)
	if room == nil {
		return
	}
	m.reg.UnbindRoom(playerID)

	leaving, seated := room.player(playerID)
	if !seated {
		return
	}
	status := room.Info().Status

	// A leave during the countdown cancels it; the room falls back to
	// waiting so the stake below is still refundable. A lost race with
	// the final tick means the match just started, so re-read.
	if status == models.RoomStarting {
		if room.abortCountdown() {
			status = models.RoomWaiting
		} else {
			status = room.Info().Status
		}
	}

	// Pre-match exit from a wager room returns the stake exactly once.
	if status == models.RoomWaiting && room.Type == models.RoomWager && !leaving.IsBot() {
		m.refundEscrow(ctx, room, leaving)
	}

	remaining := room.removePlayer(playerID)
	m.broadcast(room, "", models.MsgPlayerLeft, map[string]interface{}{
		"playerId": playerID,
		"username": leaving.Username,
	})

	if status == models.RoomPlaying {
		m.resolveForfeit(room, leaving)
		return
	}

	if remaining == 0 || m.onlyBotLeft(room) {
		m.destroyRoom(room)
		return
	}
	m.broadcastLobby(room.ExperienceID)
}

func (m *Manager) refundEscrow(ctx context.Context, room *Room, leaving models.Player) {
	amount, ok := room.claimRefund(leaving.AccountID)
	if !ok {
		return
	}
	if _, err := m.ledger.Refund(ctx, leaving.AccountID, amount, room.ID); err != nil {
		room.releaseRefund(leaving.AccountID)
		m.log.Errorw("escrow refund failed", "roomId", room.ID, "accountId", leaving.AccountID, "error", err)
		return
	}
	room.confirmRefund(leaving.AccountID, amount)
	m.log.Infow("escrow refunded", "roomId", room.ID, "accountId", leaving.AccountID, "amount", amount)
}

// resolveForfeit awards a live match to whoever is still seated. The
// deserter's stake stays in the pool and pays out to the winner.
func (m *Manager) resolveForfeit(room *Room, leaving models.Player) {
	var remainingID string
	for _, p := range room.PlayersSnapshot() {
		if p.ID != leaving.ID {
			remainingID = p.ID
			break
		}
	}
	if remainingID == "" {
		m.destroyRoom(room)
		return
	}
	winner, ok := room.forfeitTo(remainingID)
	if !ok {
		m.destroyRoom(room)
		return
	}
	m.finishMatch(room, winner, "forfeit")
}

// finishMatch is reached from exactly two places, natural match-over
// and forfeit; the settled flag inside settle makes the payout run
// once no matter which path wins the race.
func (m *Manager) finishMatch(room *Room, winner models.Player, reason string) {
	roster := room.PlayersSnapshot()
	m.broadcast(room, "", models.MsgMatchEnded, map[string]interface{}{
		"winnerId":       winner.ID,
		"winnerUsername": winner.Username,
		"reason":         reason,
	})
	m.broadcast(room, "", models.MsgGameEnded, map[string]interface{}{
		"winnerId": winner.ID,
		"reason":   reason,
	})
	m.settle(context.Background(), room, winner, roster)
	m.destroyRoom(room)
}

func (m *Manager) onlyBotLeft(room *Room) bool {
	roster := room.PlayersSnapshot()
	if len(roster) != 1 {
		return false
	}
	return roster[0].IsBot()
}

func (m *Manager) destroyRoom(room *Room) {
	room.destroy()
	for _, p := range room.PlayersSnapshot() {
		m.reg.UnbindRoom(p.ID)
	}
	m.reg.RemoveRoom(room.ID)
	m.broadcastLobby(room.ExperienceID)
}

// WalletFor resolves (creating on first sight) the caller's wallet.
func (m *Manager) WalletFor(ctx context.Context, accountID, username string) (*models.Wallet, error) {
	return m.ledger.Store().GetOrCreateWallet(ctx, accountID, username)
}

func (m *Manager) sendTo(playerID, msgType string, payload interface{}) {
	if conn := m.reg.Conn(playerID); conn != nil {
		conn.Send(msgType, payload)
	}
}

func (m *Manager) broadcast(room *Room, excludeID, msgType string, payload interface{}) {
	for _, p := range room.PlayersSnapshot() {
		if p.ID == excludeID || p.IsBot() {
			continue
		}
		m.sendTo(p.ID, msgType, payload)
	}
}

// broadcastLobby pushes the fresh waiting-room list to every
// authenticated connection of the experience that is not in a room.
func (m *Manager) broadcastLobby(experienceID string) {
	rooms := m.reg.WaitingRooms(experienceID)
	m.reg.EachUnseatedConn(experienceID, func(_ string, conn Conn) {
		conn.Send(models.MsgRoomsList, map[string]interface{}{"rooms": rooms})
	})
}

// NewPlayerID builds the connection-scoped player identity used until
// the socket closes.
func NewPlayerID(userID string) string {
	return fmt.Sprintf("player_%s_%d", userID, time.Now().UnixMilli())
}
