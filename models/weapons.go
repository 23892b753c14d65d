package models

import "time"

// WeaponConfig mirrors the client's weapon table; the server only needs
// the fields that drive authoritative state (ammo, damage, reload).
type WeaponConfig struct {
	Name        string
	Damage      int
	MaxAmmo     int
	ReloadTime  time.Duration
	FireRate    time.Duration
	BulletSpeed float64
	BulletSize  float64
}

const (
	WeaponPistol = "pistol"
	WeaponSniper = "sniper"
)

var Weapons = map[string]WeaponConfig{
	WeaponPistol: {
		Name:        "Pistol",
		Damage:      25,
		MaxAmmo:     12,
		ReloadTime:  1500 * time.Millisecond,
		FireRate:    350 * time.Millisecond,
		BulletSpeed: 55,
		BulletSize:  0.15,
	},
	WeaponSniper: {
		Name:        "Sniper Rifle",
		Damage:      80,
		MaxAmmo:     5,
		ReloadTime:  2800 * time.Millisecond,
		FireRate:    1200 * time.Millisecond,
		BulletSpeed: 100,
		BulletSize:  0.18,
	},
}

// WeaponOrDefault falls back to the pistol for unknown identifiers so a
// bad client payload cannot produce a zero-damage weapon.
func WeaponOrDefault(name string) (string, WeaponConfig) {
	if cfg, ok := Weapons[name]; ok {
		return name, cfg
	}
	return WeaponPistol, Weapons[WeaponPistol]
}
