package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockedRespectsYaw(t *testing.T) {
	// The diagonal wall centered at (-35, -20) is rotated 45 degrees.
	// This point sits along its rotated length; with no rotation it
	// would be well outside the slab.
	assert.True(t, Blocked(-32.5, 1.5, -17.5, 0.1), "point on the rotated wall must collide")

	// Mirrored across the wall's thin axis the point falls outside.
	assert.False(t, Blocked(-32.5, 1.5, -22.5, 0.1))
}

func TestBlockedOpenGround(t *testing.T) {
	assert.False(t, Blocked(0, 0.5, 0, 0.5), "arena center is open")
	assert.False(t, Blocked(5, 0.5, 5, 0.5))
}

func TestBlockedCrate(t *testing.T) {
	assert.True(t, Blocked(-15, 0.75, -15, 0.1), "crate center must collide")
	assert.True(t, Blocked(-15.9, 0.75, -15, 0.5), "radius expands the hit box")
}

func TestLineOfSightThroughOpenGround(t *testing.T) {
	assert.True(t, LineOfSight(-5, 1.5, 0, 5, 1.5, 0))
}

func TestLineOfSightBlockedByWall(t *testing.T) {
	// Straight through the axis-aligned wall at x=-25.
	assert.False(t, LineOfSight(-30, 1.5, 0, -20, 1.5, 0))
}

func TestLineOfSightBlockedByRotatedWall(t *testing.T) {
	// Crossing the 45-degree wall at (-35, -20) perpendicular to its
	// rotated plane.
	assert.False(t, LineOfSight(-37, 1.5, -22, -33, 1.5, -18))
}

func TestLineOfSightDegenerateSegment(t *testing.T) {
	assert.True(t, LineOfSight(3, 1, 3, 3.05, 1, 3), "near-zero segments are always visible")
}

func TestLineOfSightOverObstacleHeight(t *testing.T) {
	// Barrels are 1.2 high; a ray at 2.0 passes over them.
	assert.True(t, LineOfSight(-22, 2.0, 0, -18, 2.0, 0))
}
