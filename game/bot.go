package game

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blockclash/blockclash-backend/arena"
	"github.com/blockclash/blockclash-backend/models"
)

type botState int

const (
	botPatrol botState = iota
	botSeek
	botTakeCover
	botAttack
	botFlank
	botRetreat
)

func (s botState) String() string {
	switch s {
	case botPatrol:
		return "patrol"
	case botSeek:
		return "seek"
	case botTakeCover:
		return "take_cover"
	case botAttack:
		return "attack"
	case botFlank:
		return "flank"
	case botRetreat:
		return "retreat"
	}
	return "unknown"
}

const (
	botTick        = 50 * time.Millisecond
	botGracePeriod = 2 * time.Second
	botSpeed       = 4.2
	botUsername    = "BlockBot"

	botSniperInterval = 900 * time.Millisecond
	botPistolInterval = 280 * time.Millisecond
	botSniperReload   = 1800 * time.Millisecond
	botPistolReload   = 1000 * time.Millisecond
	botSniperMag      = 6
	botPistolMag      = 15

	botSniperAccuracy = 0.82
	botPistolAccuracy = 0.72

	botSniperRange = 20.0
	botPistolRange = 12.0

	// The bot's guns hit softer than the player weapon table.
	botSniperDamage = 50
	botPistolDamage = 20

	botMinShootDist    = 0.5
	botSniperShootDist = 80.0
	botPistolShootDist = 50.0
)

func newBotPlayer() *models.Player {
	return &models.Player{
		ID:        "bot_" + uuid.NewString(),
		AccountID: models.BotAccountID,
		Username:  botUsername,
		Health:    models.MaxHealth,
		IsAlive:   true,
		Weapon:    models.WeaponSniper,
		Ammo:      botSniperMag,
	}
}

// perception is the bot's view of one tick, separated from acting on it
// so the state transitions stay testable.
type perception struct {
	CanSee    bool
	Distance  float64
	HealthPct float64
	Reloading bool
	InState   time.Duration
}

// nextBotState is the pure FSM step. Retreat preempts everything below
// 30% health, an empty gun breaks off the engagement toward cover, and
// otherwise sight of the player pulls toward attack while losing sight
// decays back through seek.
func nextBotState(s botState, p perception, roll float64) botState {
	if p.HealthPct < 0.3 && s != botRetreat {
		return botRetreat
	}
	if p.Reloading && (s == botAttack || s == botFlank) {
		return botTakeCover
	}
	switch s {
	case botRetreat:
		if p.InState > 2500*time.Millisecond {
			return botTakeCover
		}
	case botTakeCover:
		if p.InState > 1800*time.Millisecond {
			if p.CanSee {
				return botAttack
			}
			return botSeek
		}
	case botAttack:
		if !p.CanSee && p.InState > 1200*time.Millisecond {
			return botSeek
		}
		if p.CanSee && p.InState > 4*time.Second && roll < 0.03 {
			return botFlank
		}
	case botFlank:
		if p.InState > 2200*time.Millisecond {
			if p.CanSee {
				return botAttack
			}
			return botSeek
		}
	case botSeek:
		if p.CanSee {
			return botAttack
		}
		if p.InState > 5*time.Second {
			return botPatrol
		}
	case botPatrol:
		if p.CanSee {
			return botAttack
		}
		if p.InState > 6*time.Second && roll < 0.3 {
			return botSeek
		}
	}
	return s
}

type botController struct {
	m     *Manager
	room  *Room
	botID string

	rng      *rand.Rand
	stopCh   chan struct{}
	stopOnce sync.Once

	state      botState
	stateSince time.Time

	weapon      string
	ammo        int
	lastShot    time.Time
	reloadUntil time.Time

	patrolIdx int
	flankSign float64
	coverX    float64
	coverZ    float64
	hasCover  bool
	stuck     int
}

func (m *Manager) startBotIfNeeded(room *Room) {
	room.mu.Lock()
	botID := room.BotID
	already := room.bot != nil
	var bc *botController
	if botID != "" && !already && !room.destroyed {
		bc = &botController{
			m:          m,
			room:       room,
			botID:      botID,
			rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
			stopCh:     make(chan struct{}),
			state:      botPatrol,
			stateSince: time.Now(),
			weapon:     models.WeaponSniper,
			ammo:       botSniperMag,
			flankSign:  1,
		}
		room.bot = bc
	}
	room.mu.Unlock()
	if bc != nil {
		go bc.run()
	}
}

func (bc *botController) stop() {
	bc.stopOnce.Do(func() { close(bc.stopCh) })
}

func (bc *botController) run() {
	ticker := time.NewTicker(botTick)
	defer ticker.Stop()
	for {
		select {
		case <-bc.stopCh:
			return
		case <-ticker.C:
			if !bc.tick() {
				return
			}
		}
	}
}

// tick runs one 50ms step. Returns false when the room is gone and the
// loop should die.
func (bc *botController) tick() bool {
	bc.room.mu.Lock()
	if bc.room.destroyed || bc.room.Status == models.RoomFinished {
		bc.room.mu.Unlock()
		return false
	}
	if bc.room.Status != models.RoomPlaying || bc.room.Round.Phase != models.PhasePlaying {
		bc.room.mu.Unlock()
		return true
	}
	bot := bc.room.Players[bc.botID]
	if bot == nil || !bot.IsAlive {
		bc.room.mu.Unlock()
		return true
	}
	var target *models.Player
	for _, p := range bc.room.Players {
		if p.ID != bc.botID && p.IsAlive {
			target = p
			break
		}
	}
	if target == nil {
		bc.room.mu.Unlock()
		return true
	}
	botPos := bot.Position
	targetPos := target.Position
	targetID := target.ID
	healthPct := float64(bot.Health) / float64(models.MaxHealth)
	inGrace := time.Since(bc.room.roundStartedAt) < botGracePeriod
	bc.room.mu.Unlock()

	now := time.Now()
	dist := dist2D(botPos, targetPos)
	canSee := arena.LineOfSight(botPos.X, botPos.Y+1, botPos.Z, targetPos.X, targetPos.Y+1, targetPos.Z)

	perc := perception{
		CanSee:    canSee,
		Distance:  dist,
		HealthPct: healthPct,
		Reloading: !bc.reloadUntil.IsZero(),
		InState:   now.Sub(bc.stateSince),
	}
	if next := nextBotState(bc.state, perc, bc.rng.Float64()); next != bc.state {
		bc.enterState(next, botPos, targetPos)
	}

	bc.maybeFinishReload(now)
	bc.pickWeapon(dist, now)

	moved := bc.move(botPos, targetPos, canSee)
	if moved {
		bot := bc.writeBotPose(targetPos)
		bc.m.broadcast(bc.room, "", models.MsgPlayerMoved, map[string]interface{}{
			"playerId":    bc.botID,
			"position":    bot.Position,
			"rotation":    bot.Rotation,
			"ammo":        bot.Ammo,
			"isReloading": bot.IsReloading,
		})
	}

	if canSee && !inGrace {
		bc.maybeShoot(now, botPos, targetPos, targetID, dist)
	}
	return true
}

func (bc *botController) enterState(next botState, botPos, targetPos models.Vec3) {
	bc.state = next
	bc.stateSince = time.Now()
	switch next {
	case botFlank:
		bc.flankSign = 1
		if bc.rng.Float64() < 0.5 {
			bc.flankSign = -1
		}
	case botTakeCover, botRetreat:
		bc.coverX, bc.coverZ, bc.hasCover = nearestCover(botPos, targetPos)
	case botPatrol:
		bc.patrolIdx = bc.rng.Intn(len(arena.PatrolPoints))
	}
}

// goal picks the point the current state walks toward.
func (bc *botController) goal(botPos, targetPos models.Vec3, canSee bool) (float64, float64) {
	switch bc.state {
	case botAttack:
		// Hold a strafing orbit instead of charging straight in.
		angle := math.Atan2(botPos.Z-targetPos.Z, botPos.X-targetPos.X) + 0.35*math.Sin(float64(time.Now().UnixMilli())/900)
		radius := math.Max(6, math.Min(14, dist2D(botPos, targetPos)))
		return targetPos.X + radius*math.Cos(angle), targetPos.Z + radius*math.Sin(angle)
	case botSeek:
		return targetPos.X, targetPos.Z
	case botFlank:
		angle := math.Atan2(botPos.Z-targetPos.Z, botPos.X-targetPos.X) + bc.flankSign*math.Pi/2
		return targetPos.X + 9*math.Cos(angle), targetPos.Z + 9*math.Sin(angle)
	case botTakeCover, botRetreat:
		if bc.hasCover {
			return bc.coverX, bc.coverZ
		}
		// No cover found; back straight away from the player.
		dx, dz := botPos.X-targetPos.X, botPos.Z-targetPos.Z
		n := math.Hypot(dx, dz)
		if n < 0.001 {
			return botPos.X, botPos.Z
		}
		return botPos.X + dx/n*8, botPos.Z + dz/n*8
	default:
		wp := arena.PatrolPoints[bc.patrolIdx]
		if math.Hypot(wp.X-botPos.X, wp.Z-botPos.Z) < 1.2 {
			bc.patrolIdx = (bc.patrolIdx + 1) % len(arena.PatrolPoints)
			wp = arena.PatrolPoints[bc.patrolIdx]
		}
		return wp.X, wp.Z
	}
}

// move advances toward the goal with axis-separated sliding: the full
// step first, then X only, then Z only, so grazing a crate corner does
// not freeze the bot.
func (bc *botController) move(botPos, targetPos models.Vec3, canSee bool) bool {
	gx, gz := bc.goal(botPos, targetPos, canSee)
	dx, dz := gx-botPos.X, gz-botPos.Z
	n := math.Hypot(dx, dz)
	if n < 0.05 {
		return false
	}
	step := botSpeed * botTick.Seconds()
	dx, dz = dx/n*step, dz/n*step

	nx, nz := botPos.X+dx, botPos.Z+dz
	nx = clamp(nx, -arena.Bound, arena.Bound)
	nz = clamp(nz, -arena.Bound, arena.Bound)

	switch {
	case !arena.Blocked(nx, botPos.Y, nz, playerRadius):
		bc.stuck = 0
	case !arena.Blocked(nx, botPos.Y, botPos.Z, playerRadius):
		nz = botPos.Z
		bc.stuck = 0
	case !arena.Blocked(botPos.X, botPos.Y, nz, playerRadius):
		nx = botPos.X
		bc.stuck = 0
	default:
		bc.stuck++
		if bc.stuck > 8 {
			bc.patrolIdx = bc.rng.Intn(len(arena.PatrolPoints))
			bc.state = botPatrol
			bc.stateSince = time.Now()
			bc.stuck = 0
		}
		return false
	}

	bc.room.mu.Lock()
	if bot := bc.room.Players[bc.botID]; bot != nil {
		bot.Position.X = nx
		bot.Position.Z = nz
	}
	bc.room.mu.Unlock()
	return true
}

// writeBotPose faces the bot toward the player and returns a copy for
// broadcast.
func (bc *botController) writeBotPose(targetPos models.Vec3) models.Player {
	bc.room.mu.Lock()
	defer bc.room.mu.Unlock()
	bot := bc.room.Players[bc.botID]
	if bot == nil {
		return models.Player{}
	}
	bot.Rotation.Y = math.Atan2(targetPos.X-bot.Position.X, targetPos.Z-bot.Position.Z)
	return *bot
}

func (bc *botController) maybeFinishReload(now time.Time) {
	if bc.reloadUntil.IsZero() || now.Before(bc.reloadUntil) {
		return
	}
	bc.reloadUntil = time.Time{}
	if bc.weapon == models.WeaponSniper {
		bc.ammo = botSniperMag
	} else {
		bc.ammo = botPistolMag
	}
	bc.syncBotLoadout()
}

// pickWeapon is distance gated with hysteresis so the bot does not
// flap between guns at mid range. Never switches mid-reload.
func (bc *botController) pickWeapon(dist float64, now time.Time) {
	if !bc.reloadUntil.IsZero() {
		return
	}
	switch {
	case dist > botSniperRange && bc.weapon != models.WeaponSniper:
		bc.weapon = models.WeaponSniper
		bc.ammo = botSniperMag
	case dist < botPistolRange && bc.weapon != models.WeaponPistol:
		bc.weapon = models.WeaponPistol
		bc.ammo = botPistolMag
	default:
		return
	}
	bot := bc.syncBotLoadout()
	bc.m.broadcast(bc.room, "", models.MsgWeaponSwitched, map[string]interface{}{
		"playerId": bc.botID,
		"weapon":   bot.Weapon,
		"ammo":     bot.Ammo,
	})
}

func (bc *botController) syncBotLoadout() models.Player {
	bc.room.mu.Lock()
	defer bc.room.mu.Unlock()
	bot := bc.room.Players[bc.botID]
	if bot == nil {
		return models.Player{}
	}
	bot.Weapon = bc.weapon
	bot.Ammo = bc.ammo
	bot.IsReloading = !bc.reloadUntil.IsZero()
	return *bot
}

func (bc *botController) shotInterval() time.Duration {
	if bc.weapon == models.WeaponSniper {
		return botSniperInterval
	}
	return botPistolInterval
}

func (bc *botController) maxShootDist() float64 {
	if bc.weapon == models.WeaponSniper {
		return botSniperShootDist
	}
	return botPistolShootDist
}

func botDamage(weapon string) int {
	if weapon == models.WeaponSniper {
		return botSniperDamage
	}
	return botPistolDamage
}

func (bc *botController) accuracy(dist float64) float64 {
	base := botPistolAccuracy
	if bc.weapon == models.WeaponSniper {
		base = botSniperAccuracy
	}
	return base - math.Min(0.30, dist*0.008)
}

// maybeShoot fires at most once per weapon interval, only from an
// aiming-capable state and only inside the weapon's shoot envelope.
// Damage lands after the projectile's flight time and only if the shot
// both rolled a hit and still has line of sight on arrival; a dodge
// behind cover voids a would-be hit, but a rolled miss never turns
// into a hit.
func (bc *botController) maybeShoot(now time.Time, botPos, targetPos models.Vec3, targetID string, dist float64) {
	if bc.state != botAttack && bc.state != botFlank {
		return
	}
	if dist < botMinShootDist || dist > bc.maxShootDist() {
		return
	}
	if !bc.reloadUntil.IsZero() || now.Sub(bc.lastShot) < bc.shotInterval() {
		return
	}
	if bc.ammo <= 0 {
		bc.startReload(now)
		return
	}
	bc.ammo--
	bc.lastShot = now
	bc.syncBotLoadout()

	weapon := bc.weapon
	damage := botDamage(weapon)
	_, cfg := models.WeaponOrDefault(weapon)
	dir := aimDir(botPos, targetPos)
	bullet := models.Bullet{
		ID:         "bullet_" + uuid.NewString(),
		PlayerID:   bc.botID,
		Position:   models.Vec3{X: botPos.X, Y: botPos.Y + 1, Z: botPos.Z},
		Direction:  dir,
		WeaponType: weapon,
		Damage:     damage,
		Speed:      cfg.BulletSpeed,
		Size:       cfg.BulletSize,
	}
	bc.m.broadcast(bc.room, "", models.MsgBulletFired, map[string]interface{}{
		"bullet":   bullet,
		"playerId": bc.botID,
		"ammo":     bc.ammo,
	})

	if bc.ammo == 0 {
		bc.startReload(now)
	}

	if bc.rng.Float64() > bc.accuracy(dist) {
		return
	}
	travel := time.Duration(dist / cfg.BulletSpeed * float64(time.Second))
	room := bc.room
	botID := bc.botID
	room.schedule(travel, func() {
		if !bc.stillVisible(botID, targetID) {
			return
		}
		out := room.resolveShotDamage(botID, targetID, weapon, damage)
		bc.m.afterShot(room, botID, out)
	})
}

// stillVisible re-validates a rolled hit at impact time.
func (bc *botController) stillVisible(botID, targetID string) bool {
	bc.room.mu.Lock()
	bot := bc.room.Players[botID]
	target := bc.room.Players[targetID]
	if bot == nil || target == nil || !bot.IsAlive || !target.IsAlive {
		bc.room.mu.Unlock()
		return false
	}
	a, b := bot.Position, target.Position
	bc.room.mu.Unlock()
	return arena.LineOfSight(a.X, a.Y+1, a.Z, b.X, b.Y+1, b.Z)
}

func (bc *botController) startReload(now time.Time) {
	d := botPistolReload
	if bc.weapon == models.WeaponSniper {
		d = botSniperReload
	}
	bc.reloadUntil = now.Add(d)
	bc.syncBotLoadout()
	bc.m.broadcast(bc.room, "", models.MsgReloadStarted, map[string]interface{}{
		"playerId":   bc.botID,
		"reloadTime": d.Milliseconds(),
	})
}

func dist2D(a, b models.Vec3) float64 {
	return math.Hypot(b.X-a.X, b.Z-a.Z)
}

func aimDir(from, to models.Vec3) models.Vec3 {
	dx, dy, dz := to.X-from.X, to.Y-from.Y, to.Z-from.Z
	n := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if n < 0.001 {
		return models.Vec3{X: 0, Y: 0, Z: 1}
	}
	return models.Vec3{X: dx / n, Y: dy / n, Z: dz / n}
}

// nearestCover walks the crate and barrel list for the spot that puts
// geometry between the bot and the player.
func nearestCover(botPos, targetPos models.Vec3) (float64, float64, bool) {
	bestDist := math.MaxFloat64
	var bx, bz float64
	found := false
	for _, box := range arena.CoverBoxes {
		// Stand on the far side of the box from the player.
		dx, dz := box.X-targetPos.X, box.Z-targetPos.Z
		n := math.Hypot(dx, dz)
		if n < 0.001 {
			continue
		}
		cx := box.X + dx/n*(box.W/2+1)
		cz := box.Z + dz/n*(box.D/2+1)
		if cx < -arena.Bound || cx > arena.Bound || cz < -arena.Bound || cz > arena.Bound {
			continue
		}
		if arena.Blocked(cx, botPos.Y, cz, playerRadius) {
			continue
		}
		d := math.Hypot(cx-botPos.X, cz-botPos.Z)
		if d < bestDist {
			bestDist, bx, bz, found = d, cx, cz, true
		}
	}
	return bx, bz, found
}
