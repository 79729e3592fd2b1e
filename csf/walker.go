package csf

// TileBegin is the sentinel a caller passes as current to start a walk
// from the beginning of a plane.
const TileBegin = -1

// TileWalkerNext returns the next tile id, in ascending order, whose
// mode-coordinate along mode equals layer, given the Cartesian tile
// dimensions tileDims (one entry per CSF level, see CSF.TileDims) and
// the current tile id (or TileBegin to start the walk).
//
// Tile ids are the mixed-radix combination of per-level tile
// coordinates used by csf.Build: id = ((c[0]*tileDims[1]+c[1])*tileDims[2]+c[2])...
// across levels 0..nmodes-1. mode is a tensor mode (not a level); dimPerm
// locates which level that mode occupies in this representation.
//
// TileWalkerNext enumerates every tile in one plane perpendicular to
// mode in deterministic ascending order, letting a scheduler hand each
// plane to a single worker without write conflicts on that plane's
// output row. It returns ok=false (the TILE_END sentinel) once the walk
// is exhausted.
func TileWalkerNext(current int, tileDims []int, nmodes int, dimPerm []int, mode int, layer int) (next int, ok bool) {
	level := ModeDepth(mode, dimPerm, nmodes)
	if level < 0 || level >= len(tileDims) {
		return 0, false
	}

	total := 1
	for _, d := range tileDims {
		total *= d
	}

	start := current + 1
	if current == TileBegin {
		start = 0
	}

	for id := start; id < total; id++ {
		if tileCoordAtLevel(id, tileDims, level) == layer {
			return id, true
		}
	}
	return 0, false
}

// tileCoordAtLevel decodes tile id's coordinate at the given level from
// the mixed-radix combination csf.Build used to construct it.
func tileCoordAtLevel(id int, tileDims []int, level int) int {
	// The combination is built outer (level 0) to inner (level nmodes-1),
	// so to extract level L's digit we divide out the radix of every
	// level after it, then take it modulo tileDims[L].
	divisor := 1
	for l := level + 1; l < len(tileDims); l++ {
		divisor *= tileDims[l]
	}
	return (id / divisor) % tileDims[level]
}

// TileCoords decodes every level's tile coordinate for tile id.
func TileCoords(id int, tileDims []int) []int {
	coords := make([]int, len(tileDims))
	for l := range tileDims {
		coords[l] = tileCoordAtLevel(id, tileDims, l)
	}
	return coords
}
