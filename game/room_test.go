package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockclash/blockclash-backend/models"
)

func testPlayer(id, accountID string) *models.Player {
	_, cfg := models.WeaponOrDefault(models.WeaponPistol)
	return &models.Player{
		ID:        id,
		AccountID: accountID,
		Username:  accountID,
		Health:    models.MaxHealth,
		IsAlive:   true,
		Weapon:    models.WeaponPistol,
		Ammo:      cfg.MaxAmmo,
	}
}

func playingRoom(t *testing.T) *Room {
	t.Helper()
	r := newRoom("room_test", "exp1", models.RoomFree)
	require.True(t, r.addPlayer(testPlayer("p1", "a1")))
	require.True(t, r.addPlayer(testPlayer("p2", "a2")))
	require.True(t, r.beginCountdown())
	require.True(t, r.beginPlaying())
	return r
}

func TestAddPlayerCap(t *testing.T) {
	r := newRoom("room_test", "exp1", models.RoomFree)
	assert.True(t, r.addPlayer(testPlayer("p1", "a1")))
	assert.True(t, r.addPlayer(testPlayer("p2", "a2")))
	assert.False(t, r.addPlayer(testPlayer("p3", "a3")), "third seat must be rejected")
}

func TestAddPlayerWhilePlayingPermitted(t *testing.T) {
	r := playingRoom(t)
	r.removePlayer("p2")
	assert.True(t, r.addPlayer(testPlayer("p3", "a3")), "open seats are joinable in any status")
	assert.False(t, r.addPlayer(testPlayer("p4", "a4")), "capacity is still the gate")
}

func TestResolveShotAppliesWeaponTableDamage(t *testing.T) {
	r := playingRoom(t)

	out := r.resolveShot("p1", "p2")
	require.True(t, out.Applied)
	assert.Equal(t, 75, out.Target.Health, "pistol hit is 25 regardless of client claims")
	assert.False(t, out.Killed)
}

func TestResolveShotDamageOverride(t *testing.T) {
	r := playingRoom(t)

	out := r.resolveShotDamage("p1", "p2", models.WeaponSniper, botSniperDamage)
	require.True(t, out.Applied)
	assert.Equal(t, 50, out.Target.Health, "an explicit damage value beats the weapon table")
	assert.False(t, out.Killed)
}

func TestResolveShotIgnoresSelfAndDead(t *testing.T) {
	r := playingRoom(t)

	assert.False(t, r.resolveShot("p1", "p1").Applied, "self hits are dropped")

	for i := 0; i < 4; i++ {
		r.resolveShot("p1", "p2")
	}
	assert.False(t, r.resolveShot("p1", "p2").Applied, "hits on a dead player are dropped")
	assert.False(t, r.resolveShot("p2", "p1").Applied, "dead players cannot shoot")
}

func killPlayer(t *testing.T, r *Room, shooter, target string) ShotOutcome {
	t.Helper()
	var out ShotOutcome
	for i := 0; i < 4; i++ {
		out = r.resolveShot(shooter, target)
		require.True(t, out.Applied)
	}
	require.True(t, out.Killed)
	return out
}

func TestBestOfThreeProgression(t *testing.T) {
	r := playingRoom(t)

	out := killPlayer(t, r, "p1", "p2")
	require.True(t, out.RoundOver)
	assert.Equal(t, 1, out.Wins["a1"])
	assert.False(t, out.MatchOver, "one round win is not a match")

	roster, round, ok := r.startNextRound()
	require.True(t, ok)
	assert.Equal(t, 2, round)
	assert.Len(t, roster, 2)

	out = killPlayer(t, r, "p1", "p2")
	require.True(t, out.RoundOver)
	assert.Equal(t, 2, out.Wins["a1"])
	assert.True(t, out.MatchOver, "two wins takes a best-of-three")
	assert.Equal(t, "a1", out.MatchWinner.AccountID)

	_, _, ok = r.startNextRound()
	assert.False(t, ok, "no more rounds after match over")
}

func TestStartNextRoundResetsCombatState(t *testing.T) {
	r := playingRoom(t)
	_, ok := r.switchWeapon("p1", models.WeaponSniper)
	require.True(t, ok)
	require.True(t, r.resolveShot("p1", "p2").Applied)
	require.True(t, r.resolveShot("p1", "p2").Killed, "two sniper hits finish a round")

	roster, _, ok := r.startNextRound()
	require.True(t, ok)

	_, pistol := models.WeaponOrDefault(models.WeaponPistol)
	for _, p := range roster {
		assert.Equal(t, models.MaxHealth, p.Health)
		assert.True(t, p.IsAlive)
		assert.False(t, p.IsReloading)
		assert.Equal(t, models.WeaponPistol, p.Weapon, "rounds restart on the default loadout")
		assert.Equal(t, pistol.MaxAmmo, p.Ammo)
	}

	p1, ok := r.player("p1")
	require.True(t, ok)
	assert.Equal(t, 1, p1.Kills, "kills persist across rounds")
	r.mu.Lock()
	assert.Equal(t, 1, r.Round.PlayerWins["a1"], "round wins persist across rounds")
	r.mu.Unlock()
}

func TestRecordShotConsumesAmmoAndGatesOnReload(t *testing.T) {
	r := playingRoom(t)

	bullet, p, ok := r.recordShot("p1", "b1", models.Vec3{}, models.Vec3{Z: 1})
	require.True(t, ok)
	assert.Equal(t, 11, p.Ammo)
	assert.Equal(t, models.WeaponPistol, bullet.WeaponType)
	assert.Equal(t, 25, bullet.Damage)

	_, reload, ok := r.startReload("p1")
	require.True(t, ok)
	assert.Greater(t, reload.Milliseconds(), int64(0))

	_, _, ok = r.recordShot("p1", "b2", models.Vec3{}, models.Vec3{Z: 1})
	assert.False(t, ok, "no shooting mid-reload")

	done, ok := r.finishReload("p1")
	require.True(t, ok)
	assert.Equal(t, 12, done.Ammo)
}

func TestSwitchWeaponRefillsMagazine(t *testing.T) {
	r := playingRoom(t)

	p, ok := r.switchWeapon("p1", models.WeaponSniper)
	require.True(t, ok)
	assert.Equal(t, models.WeaponSniper, p.Weapon)
	assert.Equal(t, 5, p.Ammo)

	p, ok = r.switchWeapon("p1", "rocket_launcher")
	require.True(t, ok)
	assert.Equal(t, models.WeaponPistol, p.Weapon, "unknown weapons fall back to pistol")
}

func TestApplyMovementIsClientTrusted(t *testing.T) {
	r := playingRoom(t)

	// Last write wins, even inside geometry; movement carries no
	// server-side physics check.
	inCrate := models.Vec3{X: -15, Y: 0.75, Z: -15}
	ammo := 3
	reloading := true
	p, ok := r.applyMovement("p1", models.PlayerUpdatePayload{
		Position:    &inCrate,
		Ammo:        &ammo,
		IsReloading: &reloading,
	})
	require.True(t, ok)
	assert.Equal(t, inCrate, p.Position)
	assert.Equal(t, 3, p.Ammo)
	assert.True(t, p.IsReloading)

	_, ok = r.applyMovement("p3", models.PlayerUpdatePayload{Position: &inCrate})
	assert.False(t, ok, "unknown players are dropped")
}

func TestClaimRefundOnce(t *testing.T) {
	r := newRoom("room_test", "exp1", models.RoomWager)
	r.addPlayer(testPlayer("p1", "a1"))
	r.holdEscrow("a1", 500)

	amount, ok := r.claimRefund("a1")
	require.True(t, ok)
	assert.Equal(t, int64(500), amount)

	_, ok = r.claimRefund("a1")
	assert.False(t, ok, "second claim while the first is in flight must fail")

	r.releaseRefund("a1")
	_, ok = r.claimRefund("a1")
	assert.True(t, ok, "released claim is retryable")

	r.confirmRefund("a1", 500)
	_, ok = r.claimRefund("a1")
	assert.False(t, ok, "confirmed refund leaves no escrow to claim")
}

func TestClaimRefundOnlyBeforePlaying(t *testing.T) {
	r := playingRoom(t)
	r.holdEscrow("a1", 500)

	_, ok := r.claimRefund("a1")
	assert.False(t, ok, "no refunds once the match started")
}

func TestClaimRefundDuringCountdown(t *testing.T) {
	r := newRoom("room_test", "exp1", models.RoomWager)
	require.True(t, r.addPlayer(testPlayer("p1", "a1")))
	require.True(t, r.addPlayer(testPlayer("p2", "a2")))
	r.holdEscrow("a2", 500)
	require.True(t, r.beginCountdown())

	amount, ok := r.claimRefund("a2")
	require.True(t, ok, "the countdown window stays refundable")
	assert.Equal(t, int64(500), amount)

	require.True(t, r.abortCountdown())
	assert.Equal(t, models.RoomWaiting, r.Info().Status)
	assert.False(t, r.beginPlaying(), "an aborted countdown cannot start the match")
}

func TestClaimSettlementOnce(t *testing.T) {
	r := playingRoom(t)
	r.holdEscrow("a1", 500)
	r.holdEscrow("a2", 500)
	killPlayer(t, r, "p1", "p2")
	_, _, _ = r.startNextRound()
	killPlayer(t, r, "p1", "p2")

	pool, ok := r.claimSettlement()
	require.True(t, ok)
	assert.Equal(t, int64(1000), pool)

	_, ok = r.claimSettlement()
	assert.False(t, ok, "settlement is exactly once")
}

func TestDestroyIsIdempotent(t *testing.T) {
	r := playingRoom(t)
	r.schedule(nextRoundDelay, func() { t.Error("timer must not fire after destroy") })
	r.destroy()
	r.destroy()

	assert.False(t, r.addPlayer(testPlayer("p3", "a3")))
}
