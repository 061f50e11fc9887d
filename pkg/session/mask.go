package session

import "github.com/MSHADroo/drag/pkg/geometry"

// MaskCorners is the number of corners in a complete mask quadrilateral.
// A mask is either empty or complete; 1-3 points are a transient UI state
// and are never persisted.
const MaskCorners = 4

// Edge is a display-space line segment between two mask corners.
type Edge struct {
	From geometry.Point
	To   geometry.Point
}

// MaskSession holds the four-point quadrilateral mask drawn over the
// combined frame overlay. Interaction mirrors PointSession except that the
// point count is capped at MaskCorners and corners are removed only through
// Reset.
type MaskSession struct {
	mapper   geometry.Mapper
	points   []geometry.Point
	dragging int
	enabled  bool

	// OnChange fires when the fourth corner lands (mask complete), on each
	// drag update, on release, on reset, and on image load.
	OnChange func([]geometry.Point)
}

// NewMaskSession returns a disabled session with no corners.
func NewMaskSession() *MaskSession {
	return &MaskSession{dragging: noDrag}
}

// SetEnabled toggles interaction without clearing state.
func (s *MaskSession) SetEnabled(enabled bool) {
	s.enabled = enabled
	if !enabled {
		s.dragging = noDrag
	}
}

// Enabled reports whether the session accepts input events.
func (s *MaskSession) Enabled() bool {
	return s.enabled
}

// SetImage loads a new combined image. Mask corners are reset
// unconditionally and the empty list is announced, so embedders caching the
// corners through OnChange drop the mask drawn on the previous overlay.
func (s *MaskSession) SetImage(image, viewport geometry.Size) {
	s.mapper = geometry.NewMapper(image, viewport)
	s.points = nil
	s.dragging = noDrag
	s.announce()
}

// SetViewport recomputes the drawn rectangle after the viewport changed.
func (s *MaskSession) SetViewport(viewport geometry.Size) {
	s.mapper = geometry.NewMapper(s.mapper.Image, viewport)
}

// Points returns a copy of the current corners in original-image space.
func (s *MaskSession) Points() []geometry.Point {
	return append([]geometry.Point(nil), s.points...)
}

// Complete reports whether the mask holds exactly MaskCorners corners.
func (s *MaskSession) Complete() bool {
	return len(s.points) == MaskCorners
}

// Mapper exposes the current coordinate mapper for rendering.
func (s *MaskSession) Mapper() geometry.Mapper {
	return s.mapper
}

// Press handles a button press. A left press on an existing corner begins a
// drag. A left press elsewhere appends a corner until four exist; with four
// corners present a press that hits no handle is a no-op. Right presses are
// ignored: corners leave the mask only through Reset.
func (s *MaskSession) Press(display geometry.Point, button Button) {
	if !s.enabled || !s.mapper.Valid() || button != ButtonLeft {
		return
	}

	original, ok := s.mapper.ToOriginal(display)
	if !ok {
		return
	}

	s.dragging = geometry.HitTest(display, s.points, s.mapper)
	if s.dragging != noDrag {
		return
	}
	if len(s.points) >= MaskCorners {
		return
	}
	s.points = append(s.points, original)
	if len(s.points) == MaskCorners {
		s.announce()
	}
}

// Move drags the active corner to the mapped position; motion outside the
// drawn rectangle is a no-op.
func (s *MaskSession) Move(display geometry.Point) {
	if !s.enabled || s.dragging == noDrag {
		return
	}
	original, ok := s.mapper.ToOriginal(display)
	if !ok {
		return
	}
	s.points[s.dragging] = original
	s.announce()
}

// Release ends any active drag and re-announces the corner list.
func (s *MaskSession) Release() {
	if !s.enabled {
		return
	}
	s.dragging = noDrag
	s.announce()
}

// Reset clears the mask and announces the empty list.
func (s *MaskSession) Reset() {
	s.points = nil
	s.dragging = noDrag
	s.announce()
}

// Edges returns the display-space outline segments: consecutive corners are
// connected, and the quadrilateral closes back to corner 0 only when all
// four corners exist. Partial masks stay open.
func (s *MaskSession) Edges() []Edge {
	if len(s.points) < 2 {
		return nil
	}
	display := make([]geometry.Point, len(s.points))
	for i, p := range s.points {
		display[i] = s.mapper.ToDisplay(p)
	}
	edges := make([]Edge, 0, len(display))
	for i := 0; i < len(display)-1; i++ {
		edges = append(edges, Edge{From: display[i], To: display[i+1]})
	}
	if len(display) == MaskCorners {
		edges = append(edges, Edge{From: display[MaskCorners-1], To: display[0]})
	}
	return edges
}

func (s *MaskSession) announce() {
	if s.OnChange != nil {
		s.OnChange(s.Points())
	}
}
