package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/blockclash/blockclash-backend/arena"
	"github.com/blockclash/blockclash-backend/models"
)

func TestBotRetreatPreemptsEverything(t *testing.T) {
	p := perception{CanSee: true, Distance: 5, HealthPct: 0.2}
	for _, s := range []botState{botPatrol, botSeek, botAttack, botFlank, botTakeCover} {
		assert.Equal(t, botRetreat, nextBotState(s, p, 0.5), "state %v must yield to retreat at low health", s)
	}
}

func TestBotRetreatHoldsThenTakesCover(t *testing.T) {
	p := perception{HealthPct: 0.2, InState: time.Second}
	assert.Equal(t, botRetreat, nextBotState(botRetreat, p, 0.5))

	p.InState = 3 * time.Second
	assert.Equal(t, botTakeCover, nextBotState(botRetreat, p, 0.5))
}

func TestBotSightPullsToAttack(t *testing.T) {
	p := perception{CanSee: true, Distance: 10, HealthPct: 1}
	assert.Equal(t, botAttack, nextBotState(botPatrol, p, 0.5))
	assert.Equal(t, botAttack, nextBotState(botSeek, p, 0.5))
}

func TestBotAttackDecaysToSeekWhenBlind(t *testing.T) {
	p := perception{CanSee: false, HealthPct: 1, InState: 500 * time.Millisecond}
	assert.Equal(t, botAttack, nextBotState(botAttack, p, 0.5), "brief occlusion does not break attack")

	p.InState = 2 * time.Second
	assert.Equal(t, botSeek, nextBotState(botAttack, p, 0.5))
}

func TestBotLongAttackCanFlank(t *testing.T) {
	p := perception{CanSee: true, HealthPct: 1, InState: 5 * time.Second}
	assert.Equal(t, botFlank, nextBotState(botAttack, p, 0.01))
	assert.Equal(t, botAttack, nextBotState(botAttack, p, 0.9), "flank is a rare roll")
}

func TestBotReloadBreaksToCover(t *testing.T) {
	p := perception{CanSee: true, Distance: 8, HealthPct: 1, Reloading: true}
	assert.Equal(t, botTakeCover, nextBotState(botAttack, p, 0.5))
	assert.Equal(t, botTakeCover, nextBotState(botFlank, p, 0.5))

	p.HealthPct = 0.2
	assert.Equal(t, botRetreat, nextBotState(botAttack, p, 0.5), "low health still outranks reload")
}

func TestBotHoldsFireOutsideEnvelope(t *testing.T) {
	now := time.Now()
	bc := &botController{weapon: models.WeaponSniper, ammo: 3, state: botSeek}

	bc.maybeShoot(now, models.Vec3{}, models.Vec3{X: 10}, "p1", 10)
	assert.Equal(t, 3, bc.ammo, "only aiming-capable states fire")

	bc.state = botAttack
	bc.maybeShoot(now, models.Vec3{}, models.Vec3{X: 90}, "p1", 90)
	assert.Equal(t, 3, bc.ammo, "past the sniper envelope")

	bc.maybeShoot(now, models.Vec3{}, models.Vec3{X: 0.2}, "p1", 0.2)
	assert.Equal(t, 3, bc.ammo, "inside the minimum distance")

	bc.weapon = models.WeaponPistol
	bc.maybeShoot(now, models.Vec3{}, models.Vec3{X: 60}, "p1", 60)
	assert.Equal(t, 3, bc.ammo, "past the pistol envelope")
}

func TestBotSeekGivesUpToPatrol(t *testing.T) {
	p := perception{CanSee: false, HealthPct: 1, InState: 6 * time.Second}
	assert.Equal(t, botPatrol, nextBotState(botSeek, p, 0.5))
}

func TestBotTakeCoverResolvesBySight(t *testing.T) {
	p := perception{CanSee: true, HealthPct: 1, InState: 2 * time.Second}
	assert.Equal(t, botAttack, nextBotState(botTakeCover, p, 0.5))

	p.CanSee = false
	assert.Equal(t, botSeek, nextBotState(botTakeCover, p, 0.5))
}

func TestNearestCoverIsStandable(t *testing.T) {
	botPos := models.Vec3{X: 0, Y: 0.5, Z: 0}
	targetPos := models.Vec3{X: 10, Y: 0.5, Z: 0}

	x, z, found := nearestCover(botPos, targetPos)
	assert.True(t, found)
	assert.False(t, arena.Blocked(x, 0.5, z, playerRadius), "cover spot must be standable")
}

func TestBotWeaponChoiceByDistance(t *testing.T) {
	bc := &botController{weapon: models.WeaponPistol, room: newRoom("r", "e", models.RoomSolo), m: &Manager{reg: NewRegistry()}}
	bc.room.addPlayer(testPlayer("p1", "a1"))

	assert.Equal(t, botSniperRange, 20.0)
	assert.Equal(t, botPistolRange, 12.0)

	bc.pickWeapon(25, time.Now())
	assert.Equal(t, models.WeaponSniper, bc.weapon)
	assert.Equal(t, botSniperMag, bc.ammo)

	// Mid range keeps the current gun.
	bc.pickWeapon(15, time.Now())
	assert.Equal(t, models.WeaponSniper, bc.weapon)

	bc.pickWeapon(5, time.Now())
	assert.Equal(t, models.WeaponPistol, bc.weapon)
	assert.Equal(t, botPistolMag, bc.ammo)
}

func TestBotAccuracyFallsWithDistance(t *testing.T) {
	bc := &botController{weapon: models.WeaponSniper}
	assert.InDelta(t, 0.82, bc.accuracy(0), 1e-9)
	assert.Greater(t, bc.accuracy(5), bc.accuracy(30))
	assert.InDelta(t, 0.52, bc.accuracy(100), 1e-9, "distance penalty caps at 0.30")
}
