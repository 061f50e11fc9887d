// Package geometry converts between a scaled on-screen image rectangle and
// the original image's pixel coordinate space. All persisted annotation
// coordinates live in original-image space; display space exists only while
// the user interacts with a scaled view.
package geometry

// HitRadius is the Manhattan-distance threshold, in display pixels, within
// which a pointer position counts as being "on" an annotated point.
const HitRadius = 15

// Point is an (x, y) pixel coordinate. Persisted points are always in the
// original (unscaled) image's coordinate space.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size is a width/height pair in pixels.
type Size struct {
	W int
	H int
}

// IsZero reports whether the size has no area.
func (s Size) IsZero() bool {
	return s.W <= 0 || s.H <= 0
}

// Rect is an axis-aligned rectangle in display space.
type Rect struct {
	X int
	Y int
	W int
	H int
}

// IsZero reports whether the rectangle has no area.
func (r Rect) IsZero() bool {
	return r.W <= 0 || r.H <= 0
}

// Contains reports whether p lies inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// FitRect computes the drawn rectangle for an image scaled to fit a viewport
// while preserving aspect ratio, centered within the viewport.
func FitRect(image, viewport Size) Rect {
	if image.IsZero() || viewport.IsZero() {
		return Rect{}
	}

	var w, h int
	// Compare viewport/image ratios without floats: the constrained axis
	// fills the viewport, the other scales proportionally.
	if viewport.W*image.H <= viewport.H*image.W {
		w = viewport.W
		h = image.H * viewport.W / image.W
	} else {
		h = viewport.H
		w = image.W * viewport.H / image.H
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	return Rect{
		X: (viewport.W - w) / 2,
		Y: (viewport.H - h) / 2,
		W: w,
		H: h,
	}
}

// Mapper converts points between display space (within a drawn rectangle)
// and the original image's pixel space. Both directions are deterministic
// and side-effect-free; a round trip may lose up to one pixel per axis to
// integer truncation.
type Mapper struct {
	Image Size
	Drawn Rect
}

// NewMapper builds a mapper for an image displayed scaled-to-fit and
// centered inside the given viewport.
func NewMapper(image, viewport Size) Mapper {
	return Mapper{Image: image, Drawn: FitRect(image, viewport)}
}

// Valid reports whether the mapper has a usable image and drawn rectangle.
func (m Mapper) Valid() bool {
	return !m.Image.IsZero() && !m.Drawn.IsZero()
}

// ToOriginal maps a display point to original-image coordinates. The second
// return is false when the point lies outside the drawn rectangle. Results
// are clamped to [0, dim-1].
func (m Mapper) ToOriginal(display Point) (Point, bool) {
	if !m.Valid() || !m.Drawn.Contains(display) {
		return Point{}, false
	}

	onScaledX := display.X - m.Drawn.X
	onScaledY := display.Y - m.Drawn.Y

	x := onScaledX * m.Image.W / m.Drawn.W
	y := onScaledY * m.Image.H / m.Drawn.H

	return Point{
		X: clampInt(x, 0, m.Image.W-1),
		Y: clampInt(y, 0, m.Image.H-1),
	}, true
}

// ToDisplay maps an original-image point to display coordinates, offset by
// the drawn rectangle's top-left corner.
func (m Mapper) ToDisplay(original Point) Point {
	if !m.Valid() {
		return Point{}
	}
	return Point{
		X: m.Drawn.X + original.X*m.Drawn.W/m.Image.W,
		Y: m.Drawn.Y + original.Y*m.Drawn.H/m.Image.H,
	}
}

// HitTest returns the index of the first point (in insertion order) whose
// display projection lies within HitRadius of the display position, or -1
// when none does.
func HitTest(display Point, points []Point, m Mapper) int {
	for i, p := range points {
		d := m.ToDisplay(p)
		if manhattan(display, d) < HitRadius {
			return i
		}
	}
	return -1
}

func manhattan(a, b Point) int {
	return absInt(a.X-b.X) + absInt(a.Y-b.Y)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
