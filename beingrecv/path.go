package beingrecv

import "gomana/being"

// Step deltas indexed by the move3 direction code.
var (
	stepDX = [8]int{0, -1, -1, -1, 0, 1, 1, 1}
	stepDY = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
)

// DecodePath walks steps forward from origin and returns one waypoint per
// valid step, the tile the walk ends on and the number of step codes that
// were out of range. Invalid codes neither move nor add a waypoint.
func DecodePath(origin being.Position, steps []byte) (path being.Path, end being.Position, invalid int) {
	end = origin
	for _, code := range steps {
		if int(code) >= len(stepDX) {
			invalid++
			continue
		}
		end.X += stepDX[code]
		end.Y += stepDY[code]
		path = append(path, end)
	}
	return path, end, invalid
}
