package geofence

// Point is a single WGS84 coordinate.
type Point struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Contains reports whether p lies inside the polygon using the ray-casting
// parity test: an odd number of edge crossings on a horizontal ray from p
// means inside. The polygon is implicitly closed (last vertex connects back
// to the first) and may be non-convex. A vertex exactly on the ray is counted
// with a half-open rule so shared vertices are never double-counted. Points
// exactly on an edge are neither guaranteed inside nor outside, but the
// answer is stable for identical input; office polygons are drawn with margin
// so the boundary case never matters in practice.
func Contains(p Point, polygon []Point) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	j := len(polygon) - 1
	for i := 0; i < len(polygon); i++ {
		yi, xi := polygon[i].Latitude, polygon[i].Longitude
		yj, xj := polygon[j].Latitude, polygon[j].Longitude

		if (yi > p.Latitude) != (yj > p.Latitude) {
			crossing := (xj-xi)*(p.Latitude-yi)/(yj-yi) + xi
			if p.Longitude < crossing {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}
