package game

import (
	"math"
	"sync"
	"time"

	"github.com/blockclash/blockclash-backend/arena"
	"github.com/blockclash/blockclash-backend/models"
)

const (
	countdownSeconds = 5
	nextRoundDelay   = 3 * time.Second
	bulletTTL        = 3 * time.Second
	maxRounds        = 3
	playerRadius     = 0.5
)

// Room holds the authoritative state of one match. Every mutation goes
// through its mutex; timers are owned by the room and die with it.
type Room struct {
	mu sync.Mutex

	ID           string
	ExperienceID string
	Type         models.RoomType
	MaxPlayers   int
	CreatedAt    time.Time

	Status  models.RoomStatus
	Players map[string]*models.Player
	Round   models.RoundState

	SinglePlayer bool
	BotID        string

	EntryFee           int64
	PrizePool          int64
	PlatformFeePercent int

	roundStartedAt time.Time

	ready     map[string]bool
	bullets   []timedBullet
	escrow    map[string]int64
	refunding map[string]bool
	settled   bool
	destroyed bool
	timers    map[*time.Timer]struct{}
	bot       *botController
}

type timedBullet struct {
	models.Bullet
	expires time.Time
}

func newRoom(id, experienceID string, roomType models.RoomType) *Room {
	return &Room{
		ID:           id,
		ExperienceID: experienceID,
		Type:         roomType,
		MaxPlayers:   2,
		CreatedAt:    time.Now(),
		Status:       models.RoomWaiting,
		Players:      make(map[string]*models.Player),
		Round:        models.NewRoundState(maxRounds),
		ready:        make(map[string]bool),
		escrow:       make(map[string]int64),
		refunding:    make(map[string]bool),
		timers:       make(map[*time.Timer]struct{}),
	}
}

// schedule runs fn after d unless the room is destroyed first. The
// callback re-checks destruction under the lock before touching state.
func (r *Room) schedule(d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		r.mu.Lock()
		dead := r.destroyed
		delete(r.timers, t)
		r.mu.Unlock()
		if dead {
			return
		}
		fn()
	})
	r.timers[t] = struct{}{}
}

// destroy stops the bot loop and every pending timer. Idempotent.
func (r *Room) destroy() {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.destroyed = true
	bot := r.bot
	r.bot = nil
	for t := range r.timers {
		t.Stop()
	}
	r.timers = make(map[*time.Timer]struct{})
	r.mu.Unlock()

	if bot != nil {
		bot.stop()
	}
}

func (r *Room) Info() models.RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.RoomInfo{
		ID:          r.ID,
		RoomType:    r.Type,
		Status:      r.Status,
		PlayerCount: len(r.Players),
		MaxPlayers:  r.MaxPlayers,
		EntryFee:    r.EntryFee,
		PrizePool:   r.PrizePool,
	}
}

// PlayersSnapshot returns value copies safe to marshal without the lock.
func (r *Room) PlayersSnapshot() []models.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playersSnapshotLocked()
}

func (r *Room) playersSnapshotLocked() []models.Player {
	out := make([]models.Player, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, *p)
	}
	return out
}

// addPlayer seats a player when capacity allows. Room status is not a
// gate: a seat in a live match is joinable and the client snaps its
// view to the playing state.
func (r *Room) addPlayer(p *models.Player) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed || len(r.Players) >= r.MaxPlayers {
		return false
	}
	p.Position = spawnFor(len(r.Players))
	p.Rotation = spawnRotationFor(len(r.Players))
	r.Players[p.ID] = p
	return true
}

func spawnFor(seat int) models.Vec3 {
	s := arena.Spawns[seat%len(arena.Spawns)]
	return models.Vec3{X: s.X, Y: s.Y, Z: s.Z}
}

func spawnRotationFor(seat int) models.Rotation {
	s := arena.Spawns[seat%len(arena.Spawns)]
	return models.Rotation{Y: s.YawY}
}

// markReady flags the player and reports whether every seat is filled
// and ready so the caller can kick off the countdown.
func (r *Room) markReady(playerID string) (allReady bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status != models.RoomWaiting {
		return false
	}
	if _, ok := r.Players[playerID]; !ok {
		return false
	}
	r.ready[playerID] = true
	if len(r.Players) < r.MaxPlayers {
		return false
	}
	for id := range r.Players {
		if id == r.BotID {
			continue
		}
		if !r.ready[id] {
			return false
		}
	}
	return true
}

func (r *Room) beginCountdown() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status != models.RoomWaiting {
		return false
	}
	r.Status = models.RoomStarting
	return true
}

// abortCountdown drops a starting room back to waiting when a seat
// empties mid-countdown. The pending tick sees the status change and
// goes quiet; escrow stays refundable the whole time.
func (r *Room) abortCountdown() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status != models.RoomStarting {
		return false
	}
	r.Status = models.RoomWaiting
	return true
}

func (r *Room) beginPlaying() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status != models.RoomStarting || r.destroyed {
		return false
	}
	r.Status = models.RoomPlaying
	r.Round.Phase = models.PhasePlaying
	r.roundStartedAt = time.Now()
	return true
}

// applyMovement writes a movement update as-is. Movement is a client
// trust boundary: last write wins, no server-side physics check. Hit
// damage stays authoritative regardless of reported positions.
func (r *Room) applyMovement(playerID string, upd models.PlayerUpdatePayload) (models.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.Players[playerID]
	if !ok || !p.IsAlive || r.Status != models.RoomPlaying {
		return models.Player{}, false
	}
	if upd.Position != nil {
		p.Position = *upd.Position
	}
	if upd.Rotation != nil {
		p.Rotation = *upd.Rotation
	}
	if upd.Ammo != nil {
		p.Ammo = *upd.Ammo
	}
	if upd.IsReloading != nil {
		p.IsReloading = *upd.IsReloading
	}
	return *p, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// recordShot consumes a round of ammo and tracks the bullet until it
// expires. Shots while reloading or with an empty magazine are dropped.
func (r *Room) recordShot(playerID, bulletID string, pos, dir models.Vec3) (models.Bullet, models.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.Players[playerID]
	if !ok || !p.IsAlive || r.Status != models.RoomPlaying {
		return models.Bullet{}, models.Player{}, false
	}
	if p.IsReloading || p.Ammo <= 0 {
		return models.Bullet{}, models.Player{}, false
	}
	p.Ammo--
	name, cfg := models.WeaponOrDefault(p.Weapon)
	bullet := models.Bullet{
		ID:         bulletID,
		PlayerID:   playerID,
		Position:   pos,
		Direction:  dir,
		WeaponType: name,
		Damage:     cfg.Damage,
		Speed:      cfg.BulletSpeed,
		Size:       cfg.BulletSize,
	}
	now := time.Now()
	r.bullets = append(r.bullets, timedBullet{Bullet: bullet, expires: now.Add(bulletTTL)})
	r.pruneBulletsLocked(now)
	return bullet, *p, true
}

func (r *Room) pruneBulletsLocked(now time.Time) {
	kept := r.bullets[:0]
	for _, b := range r.bullets {
		if b.expires.After(now) {
			kept = append(kept, b)
		}
	}
	r.bullets = kept
}

func (r *Room) switchWeapon(playerID, weapon string) (models.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.Players[playerID]
	if !ok || !p.IsAlive {
		return models.Player{}, false
	}
	name, cfg := models.WeaponOrDefault(weapon)
	p.Weapon = name
	p.Ammo = cfg.MaxAmmo
	p.IsReloading = false
	return *p, true
}

func (r *Room) startReload(playerID string) (models.Player, time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.Players[playerID]
	if !ok || !p.IsAlive || p.IsReloading {
		return models.Player{}, 0, false
	}
	_, cfg := models.WeaponOrDefault(p.Weapon)
	if p.Ammo >= cfg.MaxAmmo {
		return models.Player{}, 0, false
	}
	p.IsReloading = true
	return *p, cfg.ReloadTime, true
}

func (r *Room) finishReload(playerID string) (models.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.Players[playerID]
	if !ok || !p.IsReloading {
		return models.Player{}, false
	}
	p.IsReloading = false
	_, cfg := models.WeaponOrDefault(p.Weapon)
	p.Ammo = cfg.MaxAmmo
	return *p, true
}

func (r *Room) player(playerID string) (models.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.Players[playerID]
	if !ok {
		return models.Player{}, false
	}
	return *p, true
}

// ShotOutcome reports what a resolved hit changed, copied out so the
// caller can broadcast without holding the room lock.
type ShotOutcome struct {
	Applied      bool
	Target       models.Player
	Killed       bool
	ShooterKills int

	RoundOver   bool
	RoundWinner models.Player
	Wins        map[string]int
	RoundNumber int

	MatchOver   bool
	MatchWinner models.Player
}

// resolveShot applies damage server-side. The first hit to land wins a
// trade: once a player is dead, later hits against or from them are
// dropped. Damage comes from the weapon table, never from the client.
func (r *Room) resolveShot(shooterID, targetID string) ShotOutcome {
	return r.resolveShotDamage(shooterID, targetID, "", 0)
}

// resolveShotDamage lets delayed projectiles deal the damage of the
// weapon held at fire time rather than at impact time; damage > 0
// overrides the weapon table, which the bot's softer guns rely on.
func (r *Room) resolveShotDamage(shooterID, targetID, weapon string, damage int) ShotOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out ShotOutcome
	if r.Status != models.RoomPlaying || r.Round.Phase != models.PhasePlaying {
		return out
	}
	shooter, ok := r.Players[shooterID]
	if !ok || !shooter.IsAlive {
		return out
	}
	target, ok := r.Players[targetID]
	if !ok || !target.IsAlive || targetID == shooterID {
		return out
	}

	if weapon == "" {
		weapon = shooter.Weapon
	}
	if damage <= 0 {
		_, cfg := models.WeaponOrDefault(weapon)
		damage = cfg.Damage
	}
	target.Health -= damage
	if target.Health < 0 {
		target.Health = 0
	}
	out.Applied = true
	if target.Health == 0 {
		target.IsAlive = false
		shooter.Kills++
		out.Killed = true
	}
	out.Target = *target
	out.ShooterKills = shooter.Kills

	if !out.Killed {
		return out
	}

	alive := make([]*models.Player, 0, 2)
	for _, p := range r.Players {
		if p.IsAlive {
			alive = append(alive, p)
		}
	}
	if len(alive) > 1 {
		return out
	}

	winner := shooter
	if len(alive) == 1 {
		winner = alive[0]
	}
	r.Round.Phase = models.PhaseRoundOver
	r.Round.PlayerWins[winner.AccountID]++
	out.RoundOver = true
	out.RoundWinner = *winner
	out.Wins = copyWins(r.Round.PlayerWins)
	out.RoundNumber = r.Round.CurrentRound

	if r.Round.PlayerWins[winner.AccountID] >= r.Round.WinsNeeded() {
		r.Status = models.RoomFinished
		r.Round.Phase = models.PhaseMatchOver
		out.MatchOver = true
		out.MatchWinner = *winner
	}
	return out
}

func copyWins(wins map[string]int) map[string]int {
	out := make(map[string]int, len(wins))
	for k, v := range wins {
		out[k] = v
	}
	return out
}

// startNextRound resets every combat field but keeps kills and the wins
// tally. Returns the fresh roster, or false when the match already left
// the round-over phase (forfeit during the delay).
func (r *Room) startNextRound() ([]models.Player, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status != models.RoomPlaying || r.Round.Phase != models.PhaseRoundOver {
		return nil, 0, false
	}
	r.Round.CurrentRound++
	r.Round.Phase = models.PhasePlaying
	r.roundStartedAt = time.Now()
	r.bullets = nil

	name, cfg := models.WeaponOrDefault(models.WeaponPistol)
	seat := 0
	for _, p := range r.Players {
		p.Health = models.MaxHealth
		p.IsAlive = true
		p.Weapon = name
		p.Ammo = cfg.MaxAmmo
		p.IsReloading = false
		p.Position = spawnFor(seat)
		p.Rotation = spawnRotationFor(seat)
		seat++
	}
	return r.playersSnapshotLocked(), r.Round.CurrentRound, true
}

// forfeitTo ends a live match in favor of the remaining player.
func (r *Room) forfeitTo(winnerID string) (models.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status != models.RoomPlaying {
		return models.Player{}, false
	}
	winner, ok := r.Players[winnerID]
	if !ok {
		return models.Player{}, false
	}
	r.Status = models.RoomFinished
	r.Round.Phase = models.PhaseMatchOver
	r.Round.PlayerWins[winner.AccountID] = r.Round.WinsNeeded()
	return *winner, true
}

func (r *Room) removePlayer(playerID string) (remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Players, playerID)
	delete(r.ready, playerID)
	return len(r.Players)
}

// holdEscrow records a successful entry-fee debit against the pool.
func (r *Room) holdEscrow(accountID string, amount int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.escrow[accountID] = amount
	r.PrizePool += amount
}

// claimRefund reserves the right to refund one account exactly once.
// The caller performs the ledger credit and then either confirms or
// releases the claim.
func (r *Room) claimRefund(accountID string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status != models.RoomWaiting && r.Status != models.RoomStarting {
		return 0, false
	}
	amount := r.escrow[accountID]
	if amount <= 0 || r.refunding[accountID] {
		return 0, false
	}
	r.refunding[accountID] = true
	return amount, true
}

func (r *Room) confirmRefund(accountID string, amount int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.escrow, accountID)
	r.PrizePool -= amount
}

// releaseRefund undoes a claim whose ledger credit failed, so a later
// attempt can retry.
func (r *Room) releaseRefund(accountID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.refunding, accountID)
}

// claimSettlement flips the one-shot settled flag. Only the first
// caller gets true; the prize pool and escrow snapshot come with it.
func (r *Room) claimSettlement() (pool int64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settled || r.Status != models.RoomFinished {
		return 0, false
	}
	r.settled = true
	r.escrow = make(map[string]int64)
	return r.PrizePool, true
}
