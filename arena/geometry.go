package arena

import "math"

// Box is an oriented obstacle: center position, full extents and a yaw
// rotation around the vertical axis through the center.
type Box struct {
	X, Y, Z float64
	W, H, D float64
	Yaw     float64
}

// Static arena layout. Loaded once, never mutated, shared by every room
// and bot instance.
var Walls = []Box{
	{X: -25, Y: 1.5, Z: 0, W: 1, H: 3, D: 10},
	{X: 25, Y: 1.5, Z: 0, W: 1, H: 3, D: 10},
	{X: 0, Y: 1.5, Z: -25, W: 10, H: 3, D: 1},
	{X: 0, Y: 1.5, Z: 25, W: 10, H: 3, D: 1},
	{X: -35, Y: 1.5, Z: -20, W: 8, H: 3, D: 1, Yaw: math.Pi / 4},
	{X: 35, Y: 1.5, Z: -20, W: 8, H: 3, D: 1, Yaw: -math.Pi / 4},
	{X: -35, Y: 1.5, Z: 20, W: 8, H: 3, D: 1, Yaw: -math.Pi / 4},
	{X: 35, Y: 1.5, Z: 20, W: 8, H: 3, D: 1, Yaw: math.Pi / 4},
}

var Crates = []Box{
	{X: -15, Y: 0.75, Z: -15, W: 1.5, H: 1.5, D: 1.5},
	{X: 15, Y: 0.75, Z: 15, W: 1.5, H: 1.5, D: 1.5, Yaw: math.Pi / 4},
	{X: 0, Y: 0.75, Z: 20, W: 1.5, H: 1.5, D: 1.5, Yaw: math.Pi / 3},
	{X: 0, Y: 0.75, Z: -20, W: 1.5, H: 1.5, D: 1.5, Yaw: -math.Pi / 6},
	{X: -10, Y: 0.75, Z: -25, W: 1.5, H: 1.5, D: 1.5},
	{X: 10, Y: 0.75, Z: 25, W: 1.5, H: 1.5, D: 1.5},
	{X: -30, Y: 0.75, Z: -30, W: 1.5, H: 1.5, D: 1.5, Yaw: math.Pi / 6},
	{X: 30, Y: 0.75, Z: 30, W: 1.5, H: 1.5, D: 1.5, Yaw: -math.Pi / 4},
}

var Barrels = []Box{
	{X: -15, Y: 0.6, Z: 15, W: 0.8, H: 1.2, D: 0.8},
	{X: 15, Y: 0.6, Z: -15, W: 0.8, H: 1.2, D: 0.8},
	{X: -20, Y: 0.6, Z: 0, W: 0.8, H: 1.2, D: 0.8},
	{X: 20, Y: 0.6, Z: 0, W: 0.8, H: 1.2, D: 0.8},
	{X: -25, Y: 0.6, Z: -10, W: 0.8, H: 1.2, D: 0.8},
	{X: 25, Y: 0.6, Z: 10, W: 0.8, H: 1.2, D: 0.8},
	{X: -30, Y: 0.6, Z: 30, W: 0.8, H: 1.2, D: 0.8},
	{X: 30, Y: 0.6, Z: -30, W: 0.8, H: 1.2, D: 0.8},
}

// Bound clamps bot movement to the inner arena. Player movement is
// client-trusted and not bounded server-side.
const Bound = 18.0

// Spawn slots face each other across the arena.
type Spawn struct {
	X, Y, Z float64
	YawY    float64
}

var Spawns = [2]Spawn{
	{X: -42, Y: 0.5, Z: 0, YawY: math.Pi / 2},
	{X: 42, Y: 0.5, Z: 0, YawY: -math.Pi / 2},
}

// PatrolPoints are the bot's roaming waypoints before contact.
var PatrolPoints = []struct{ X, Z float64 }{
	{-10, -10}, {10, -10}, {10, 10}, {-10, 10},
	{0, -8}, {0, 8}, {-8, 0}, {8, 0},
	{-14, 0}, {14, 0}, {0, -14}, {0, 14},
}

func allBoxes() []Box {
	out := make([]Box, 0, len(Walls)+len(Crates)+len(Barrels))
	out = append(out, Walls...)
	out = append(out, Crates...)
	out = append(out, Barrels...)
	return out
}

// Boxes is the full obstacle list used by collision tests.
var Boxes = allBoxes()

// CoverBoxes are the obstacles the bot treats as usable cover.
var CoverBoxes = func() []Box {
	out := make([]Box, 0, len(Crates)+len(Barrels))
	out = append(out, Crates...)
	out = append(out, Barrels...)
	return out
}()
