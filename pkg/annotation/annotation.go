// Package annotation holds the in-memory state of one working frame pair
// and the save gate that decides when it may be persisted.
package annotation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/MSHADroo/drag/pkg/geometry"
	"github.com/MSHADroo/drag/pkg/session"
)

// Save gate violations. Each failed condition reports its own message so the
// UI can tell the operator exactly what is missing.
var (
	ErrMissingFrames  = errors.New("both frames must be selected")
	ErrMaskIncomplete = errors.New("mask must have exactly 4 points")
	ErrNoPoints       = errors.New("source and target points must be selected")
	ErrCountMismatch  = errors.New("source and target point counts must be equal")
)

// Record is the persisted unit: one annotated frame pair. Coordinates are in
// original-image space. Image fields hold base filenames; the JSON sidecar
// lives next to the frames it describes.
type Record struct {
	Frame1Image  string           `json:"frame1_image"`
	Frame2Image  string           `json:"frame2_image"`
	MaskArea     []geometry.Point `json:"mask_area"`
	SourcePoints []geometry.Point `json:"source_points"`
	TargetPoints []geometry.Point `json:"target_points"`
}

// Session is the single active annotation session for one frame pair. Frames
// are reassignable until a save; all state is discarded by Reset when the
// operator switches folders.
type Session struct {
	frame1 string
	frame2 string
	source []geometry.Point
	target []geometry.Point
	mask   []geometry.Point
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{}
}

// SetFrame1 assigns the first frame's image path.
func (s *Session) SetFrame1(path string) { s.frame1 = path }

// SetFrame2 assigns the second frame's image path.
func (s *Session) SetFrame2(path string) { s.frame2 = path }

// Frame1 returns the first frame's image path.
func (s *Session) Frame1() string { return s.frame1 }

// Frame2 returns the second frame's image path.
func (s *Session) Frame2() string { return s.frame2 }

// SetSourcePoints stores the ordered source points marked on frame1.
func (s *Session) SetSourcePoints(points []geometry.Point) {
	s.source = append([]geometry.Point(nil), points...)
}

// SetTargetPoints stores the ordered target points marked on frame2.
func (s *Session) SetTargetPoints(points []geometry.Point) {
	s.target = append([]geometry.Point(nil), points...)
}

// SetMask stores the mask corners marked on the combined overlay.
func (s *Session) SetMask(points []geometry.Point) {
	s.mask = append([]geometry.Point(nil), points...)
}

// SourcePoints returns a copy of the stored source points.
func (s *Session) SourcePoints() []geometry.Point {
	return append([]geometry.Point(nil), s.source...)
}

// TargetPoints returns a copy of the stored target points.
func (s *Session) TargetPoints() []geometry.Point {
	return append([]geometry.Point(nil), s.target...)
}

// Mask returns a copy of the stored mask corners.
func (s *Session) Mask() []geometry.Point {
	return append([]geometry.Point(nil), s.mask...)
}

// Reset discards all in-memory state, including the frame assignment.
func (s *Session) Reset() {
	*s = Session{}
}

// Validate is the save gate. It returns nil only when both frames are
// chosen, the mask is complete, and the source/target correspondence is
// non-empty with equal counts. Point i in source corresponds to point i in
// target by index.
func (s *Session) Validate() error {
	if s.frame1 == "" || s.frame2 == "" {
		return ErrMissingFrames
	}
	if len(s.mask) != session.MaskCorners {
		return ErrMaskIncomplete
	}
	if len(s.source) == 0 || len(s.target) == 0 {
		return ErrNoPoints
	}
	if len(s.source) != len(s.target) {
		return ErrCountMismatch
	}
	return nil
}

// SaveReady reports whether the save gate holds.
func (s *Session) SaveReady() bool {
	return s.Validate() == nil
}

// Record builds the persisted unit, rejecting invalid state with the
// specific gate violation.
func (s *Session) Record() (Record, error) {
	if err := s.Validate(); err != nil {
		return Record{}, fmt.Errorf("annotation not ready: %w", err)
	}
	return Record{
		Frame1Image:  filepath.Base(s.frame1),
		Frame2Image:  filepath.Base(s.frame2),
		MaskArea:     s.Mask(),
		SourcePoints: s.SourcePoints(),
		TargetPoints: s.TargetPoints(),
	}, nil
}

// OutputPath is where the record is written: a sidecar named after both
// frames, placed in the first frame's folder. Saving the same pair twice
// overwrites the same file.
func (s *Session) OutputPath() string {
	if s.frame1 == "" || s.frame2 == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(s.frame1), FileName(s.frame1, s.frame2))
}

// FileName builds the sidecar filename for a frame pair:
// drag_data_<base1>_to_<base2>.json.
func FileName(frame1, frame2 string) string {
	return fmt.Sprintf("drag_data_%s_to_%s.json", baseName(frame1), baseName(frame2))
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
