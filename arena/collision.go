package arena

import "math"

// losStep is the sampling interval for line-of-sight walks. Obstacles
// are large relative to this, so callers must not assume sub-step
// precision.
const losStep = 0.4

// contains reports whether the point, expanded by radius, lies inside
// the box. Rotated boxes undo their yaw around the box center first.
func (b Box) contains(px, py, pz, radius float64) bool {
	x, z := px, pz
	bx, bz := b.X, b.Z
	if b.Yaw != 0 {
		cos := math.Cos(-b.Yaw)
		sin := math.Sin(-b.Yaw)
		dx := px - b.X
		dz := pz - b.Z
		x = dx*cos - dz*sin
		z = dx*sin + dz*cos
		bx, bz = 0, 0
	}
	return x+radius > bx-b.W/2 &&
		x-radius < bx+b.W/2 &&
		py+radius > b.Y-b.H/2 &&
		py-radius < b.Y+b.H/2 &&
		z+radius > bz-b.D/2 &&
		z-radius < bz+b.D/2
}

// Blocked reports whether a sphere of the given radius at (x, y, z)
// intersects any obstacle.
func Blocked(x, y, z, radius float64) bool {
	return BlockedBy(Boxes, x, y, z, radius)
}

// BlockedBy is Blocked against an explicit box list; tests use it to
// swap geometry in and out.
func BlockedBy(boxes []Box, x, y, z, radius float64) bool {
	for _, b := range boxes {
		if b.contains(x, y, z, radius) {
			return true
		}
	}
	return false
}

// LineOfSight walks the segment A→B in fixed-size steps and reports
// whether every sample is clear of obstacles.
func LineOfSight(ax, ay, az, bx, by, bz float64) bool {
	return LineOfSightThrough(Boxes, ax, ay, az, bx, by, bz)
}

func LineOfSightThrough(boxes []Box, ax, ay, az, bx, by, bz float64) bool {
	dx := bx - ax
	dy := by - ay
	dz := bz - az
	dist := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if dist < 0.1 {
		return true
	}

	steps := int(math.Ceil(dist / losStep))
	sx := dx / float64(steps)
	sy := dy / float64(steps)
	sz := dz / float64(steps)

	for i := 1; i <= steps; i++ {
		if BlockedBy(boxes, ax+sx*float64(i), ay+sy*float64(i), az+sz*float64(i), 0) {
			return false
		}
	}
	return true
}
