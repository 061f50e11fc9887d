// Package drag captures drag annotations over frame pairs: ordered source
// points on the first frame, matching target points on the second, and a
// four-corner mask on a blended overlay of both.
//
// The package ties the annotation building blocks together behind one
// high-level type. A UI feeds pointer events in display coordinates into the
// per-image sessions; all stored coordinates are in original-image space, so
// annotations survive window resizes and reloads.
//
// Basic usage:
//
//	package main
//
//	import (
//		"log"
//
//		"github.com/MSHADroo/drag"
//		"github.com/MSHADroo/drag/pkg/geometry"
//		"github.com/MSHADroo/drag/pkg/session"
//	)
//
//	func main() {
//		ann := drag.NewAnnotator(geometry.Size{W: 800, H: 600})
//
//		// Pick a folder and assign its first two images as the pair.
//		images, err := ann.SelectFolder("data/clip_001")
//		if err != nil {
//			log.Fatal(err)
//		}
//		if err := ann.SetFrame1(images[0]); err != nil {
//			log.Fatal(err)
//		}
//		if err := ann.SetFrame2(images[1]); err != nil {
//			log.Fatal(err)
//		}
//
//		// Forward pointer events from the UI.
//		ann.Source.Press(geometry.Point{X: 120, Y: 80}, session.ButtonLeft)
//		ann.Source.Release()
//
//		// Persist once the save gate holds.
//		if ann.SaveReady() {
//			path, err := ann.Save()
//			if err != nil {
//				log.Fatal(err)
//			}
//			log.Printf("saved %s", path)
//		}
//	}
//
// The pieces compose as follows:
//
// 1. Scanner (pkg/scanner): finds folders with frame pairs and sidecars
// 2. Geometry (pkg/geometry): display/original coordinate mapping
// 3. Session (pkg/session): point and mask input state machines
// 4. Annotation (pkg/annotation): the save gate and record shape
// 5. Store (pkg/store): JSON sidecar persistence
//
// The companion viewer (cmd/drag-viewer) browses the produced sidecars and
// captions them with a vision model backend.
package drag

import (
	"fmt"
	"image"

	"github.com/MSHADroo/drag/pkg/annotation"
	"github.com/MSHADroo/drag/pkg/geometry"
	"github.com/MSHADroo/drag/pkg/processing"
	"github.com/MSHADroo/drag/pkg/scanner"
	"github.com/MSHADroo/drag/pkg/session"
	"github.com/MSHADroo/drag/pkg/store"
)

// Version of the drag annotation library
const Version = "1.0.0"

// Annotator wires the frame pair state, the three input sessions, and
// persistence behind one interface. It is not safe for concurrent use; drive
// it from a single UI goroutine.
type Annotator struct {
	// Source collects ordered points on frame 1.
	Source *session.PointSession
	// Target collects the corresponding points on frame 2.
	Target *session.PointSession
	// Mask collects the four mask corners on the blended overlay. Mask
	// coordinates are in frame 1 pixel space.
	Mask *session.MaskSession

	viewport geometry.Size
	proc     *processing.Processor
	state    *annotation.Session

	frame1 image.Image
	frame2 image.Image
}

// NewAnnotator returns an annotator whose sessions map into the given
// viewport size. Sessions stay disabled until their frame is assigned.
func NewAnnotator(viewport geometry.Size) *Annotator {
	a := &Annotator{
		Source:   session.NewPointSession(),
		Target:   session.NewPointSession(),
		Mask:     session.NewMaskSession(),
		viewport: viewport,
		proc:     processing.NewProcessor(),
		state:    annotation.NewSession(),
	}
	a.Source.OnChange = a.state.SetSourcePoints
	a.Target.OnChange = a.state.SetTargetPoints
	a.Mask.OnChange = a.state.SetMask
	return a
}

// SetViewport propagates a viewport resize to all three sessions. Stored
// points are unaffected.
func (a *Annotator) SetViewport(viewport geometry.Size) {
	a.viewport = viewport
	a.Source.SetViewport(viewport)
	a.Target.SetViewport(viewport)
	a.Mask.SetViewport(viewport)
}

// SelectFolder resets the current session and returns the folder's image
// paths sorted by name. The caller assigns two of them as the frame pair.
func (a *Annotator) SelectFolder(dir string) ([]string, error) {
	images, err := scanner.ListImages(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder images: %w", err)
	}
	a.ResetAll()
	return images, nil
}

// SetFrame1 loads the first frame, resets the source session to it, and
// refreshes the mask overlay if both frames are present.
func (a *Annotator) SetFrame1(path string) error {
	img, err := a.proc.LoadImage(path)
	if err != nil {
		return err
	}
	a.frame1 = img
	a.state.SetFrame1(path)
	a.Source.SetImage(imageSize(img), a.viewport)
	a.Source.SetEnabled(true)
	a.refreshMask()
	return nil
}

// SetFrame2 loads the second frame, resets the target session to it, and
// refreshes the mask overlay if both frames are present.
func (a *Annotator) SetFrame2(path string) error {
	img, err := a.proc.LoadImage(path)
	if err != nil {
		return err
	}
	a.frame2 = img
	a.state.SetFrame2(path)
	a.Target.SetImage(imageSize(img), a.viewport)
	a.Target.SetEnabled(true)
	a.refreshMask()
	return nil
}

// refreshMask rebinds the mask session once both frames exist. The overlay
// shares frame 1's dimensions, so mask coordinates live in frame 1 space.
func (a *Annotator) refreshMask() {
	if a.frame1 == nil || a.frame2 == nil {
		return
	}
	a.Mask.SetImage(imageSize(a.frame1), a.viewport)
	a.Mask.SetEnabled(true)
}

// Overlay returns the 50/50 blend of both frames for mask annotation, or nil
// while either frame is missing.
func (a *Annotator) Overlay() image.Image {
	if a.frame1 == nil || a.frame2 == nil {
		return nil
	}
	return a.proc.CombineFrames(a.frame1, a.frame2)
}

// Validate reports the first save gate violation, or nil when saving is
// allowed.
func (a *Annotator) Validate() error {
	return a.state.Validate()
}

// SaveReady reports whether the save gate holds.
func (a *Annotator) SaveReady() bool {
	return a.state.SaveReady()
}

// Save writes the annotation sidecar next to frame 1 and returns its path.
// The in-memory session stays intact so the operator can keep adjusting and
// re-save.
func (a *Annotator) Save() (string, error) {
	rec, err := a.state.Record()
	if err != nil {
		return "", err
	}
	path := a.state.OutputPath()
	if err := store.Save(path, rec); err != nil {
		return "", err
	}
	return path, nil
}

// ResetAll discards the frame assignment and all captured points.
func (a *Annotator) ResetAll() {
	a.state.Reset()
	a.frame1 = nil
	a.frame2 = nil
	a.Source.Reset()
	a.Target.Reset()
	a.Mask.Reset()
	a.Source.SetEnabled(false)
	a.Target.SetEnabled(false)
	a.Mask.SetEnabled(false)
}

func imageSize(img image.Image) geometry.Size {
	b := img.Bounds()
	return geometry.Size{W: b.Dx(), H: b.Dy()}
}
