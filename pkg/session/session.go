// Package session implements the point and mask annotation state machines.
//
// Sessions are pure state holders driven by abstract input events; they know
// nothing about any UI toolkit. The embedding UI translates its native mouse
// events into Press/Move/Release calls in display coordinates and renders
// whatever the change callback announces.
package session

import "github.com/MSHADroo/drag/pkg/geometry"

// Button identifies the pointer button carried by an input event.
type Button int

const (
	// ButtonLeft adds, selects, and drags points.
	ButtonLeft Button = iota
	// ButtonRight removes points where a session supports removal.
	ButtonRight
)

// noDrag marks the absence of an active drag.
const noDrag = -1

// PointSession holds the ordered point list for a single image in point
// annotation mode. The list is the sole observable output; it is
// re-announced through OnChange after every mutating operation.
type PointSession struct {
	mapper   geometry.Mapper
	points   []geometry.Point
	dragging int
	enabled  bool

	// OnChange receives the full current point list after each mutation.
	// The slice is a copy; the receiver may retain it.
	OnChange func([]geometry.Point)
}

// NewPointSession returns a disabled session with no points.
func NewPointSession() *PointSession {
	return &PointSession{dragging: noDrag}
}

// SetEnabled toggles interaction. Disabling suppresses input handling but
// clears no data.
func (s *PointSession) SetEnabled(enabled bool) {
	s.enabled = enabled
	if !enabled {
		s.dragging = noDrag
	}
}

// Enabled reports whether the session accepts input events.
func (s *PointSession) Enabled() bool {
	return s.enabled
}

// SetViewport recomputes the drawn rectangle after the viewport changed.
// Points are stored in original-image space and survive unchanged.
func (s *PointSession) SetViewport(viewport geometry.Size) {
	s.mapper = geometry.NewMapper(s.mapper.Image, viewport)
}

// SetImage loads a new image into the session. The point list is reset
// unconditionally and the empty list is announced.
func (s *PointSession) SetImage(image, viewport geometry.Size) {
	s.mapper = geometry.NewMapper(image, viewport)
	s.points = nil
	s.dragging = noDrag
	s.announce()
}

// SetPoints replaces the current list, e.g. when the embedder restores a
// previously captured set for re-editing.
func (s *PointSession) SetPoints(points []geometry.Point) {
	s.points = append([]geometry.Point(nil), points...)
	s.dragging = noDrag
}

// Points returns a copy of the current ordered point list in original-image
// coordinates.
func (s *PointSession) Points() []geometry.Point {
	return append([]geometry.Point(nil), s.points...)
}

// Mapper exposes the current coordinate mapper for rendering.
func (s *PointSession) Mapper() geometry.Mapper {
	return s.mapper
}

// Press handles a button press at a display position. A left press on an
// existing point begins a drag; a left press elsewhere inside the drawn
// rectangle appends a new point. A right press on an existing point removes
// it, shifting later indices down by one.
func (s *PointSession) Press(display geometry.Point, button Button) {
	if !s.enabled || !s.mapper.Valid() {
		return
	}

	original, ok := s.mapper.ToOriginal(display)
	if !ok {
		return
	}

	switch button {
	case ButtonLeft:
		s.dragging = geometry.HitTest(display, s.points, s.mapper)
		if s.dragging == noDrag {
			s.points = append(s.points, original)
		}
		s.announce()
	case ButtonRight:
		if i := geometry.HitTest(display, s.points, s.mapper); i != noDrag {
			s.points = append(s.points[:i], s.points[i+1:]...)
			// Keep the drag index valid: removal ends a drag of the removed
			// point and shifts a drag of any later point down by one.
			switch {
			case s.dragging == i:
				s.dragging = noDrag
			case s.dragging > i:
				s.dragging--
			}
			s.announce()
		}
	}
}

// Move handles pointer motion with the primary button held. While a drag is
// active the dragged point follows the mapped position; motion outside the
// drawn rectangle is a no-op.
func (s *PointSession) Move(display geometry.Point) {
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

// Release ends any active drag and re-announces the full point list.
func (s *PointSession) Release() {
	if !s.enabled {
		return
	}
	s.dragging = noDrag
	s.announce()
}

// Dragging reports whether a drag is in progress, for cursor feedback.
func (s *PointSession) Dragging() bool {
	return s.dragging != noDrag
}

// Reset clears all points and announces the empty list.
func (s *PointSession) Reset() {
	s.points = nil
	s.dragging = noDrag
	s.announce()
}

func (s *PointSession) announce() {
	if s.OnChange != nil {
		s.OnChange(s.Points())
	}
}
