// Package detection holds the bounding-box type shared by the inference
// client and the annotation engine.
package detection

// Box is a rectangular detection region in pixel coordinates. The upstream
// service does not guarantee X1 < X2, Y1 < Y2, or in-bounds values.
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Clamp restricts the box to a width×height image, returning the clamped
// copy. Coordinates are normalized so X1 <= X2 and Y1 <= Y2.
func (b Box) Clamp(width, height int) Box {
	if b.X1 > b.X2 {
		b.X1, b.X2 = b.X2, b.X1
	}
	if b.Y1 > b.Y2 {
		b.Y1, b.Y2 = b.Y2, b.Y1
	}
	b.X1 = clamp(b.X1, 0, width-1)
	b.X2 = clamp(b.X2, 0, width-1)
	b.Y1 = clamp(b.Y1, 0, height-1)
	b.Y2 = clamp(b.Y2, 0, height-1)
	return b
}

// Empty reports whether the box has no drawable area.
func (b Box) Empty() bool {
	return b.X2 <= b.X1 || b.Y2 <= b.Y1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
