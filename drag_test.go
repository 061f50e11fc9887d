package drag

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/MSHADroo/drag/pkg/annotation"
	"github.com/MSHADroo/drag/pkg/geometry"
	"github.com/MSHADroo/drag/pkg/scanner"
	"github.com/MSHADroo/drag/pkg/session"
	"github.com/MSHADroo/drag/pkg/store"
)

func writeFrame(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 100, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func click(s interface {
	Press(geometry.Point, session.Button)
	Release()
}, x, y int) {
	s.Press(geometry.Point{X: x, Y: y}, session.ButtonLeft)
	s.Release()
}

// Drives a full annotation pass: folder selection, frame assignment, point
// and mask capture, the save gate, and the persisted sidecar.
func TestAnnotatorEndToEnd(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "clip_001")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFrame(t, filepath.Join(dir, "frame1.png"), color.RGBA{R: 255, A: 255})
	writeFrame(t, filepath.Join(dir, "frame2.png"), color.RGBA{B: 255, A: 255})

	// Viewport matches the frames, so display and original coordinates
	// coincide.
	ann := NewAnnotator(geometry.Size{W: 100, H: 80})

	images, err := ann.SelectFolder(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 2 {
		t.Fatalf("SelectFolder returned %d images, want 2", len(images))
	}

	if !errors.Is(ann.Validate(), annotation.ErrMissingFrames) {
		t.Errorf("Validate before frames = %v, want ErrMissingFrames", ann.Validate())
	}

	if err := ann.SetFrame1(images[0]); err != nil {
		t.Fatal(err)
	}
	if err := ann.SetFrame2(images[1]); err != nil {
		t.Fatal(err)
	}
	if ann.Overlay() == nil {
		t.Fatal("Overlay is nil with both frames loaded")
	}

	if !errors.Is(ann.Validate(), annotation.ErrMaskIncomplete) {
		t.Errorf("Validate before mask = %v, want ErrMaskIncomplete", ann.Validate())
	}

	click(ann.Mask, 10, 10)
	click(ann.Mask, 90, 10)
	click(ann.Mask, 90, 70)
	click(ann.Mask, 10, 70)
	if !ann.Mask.Complete() {
		t.Fatal("mask not complete after four corners")
	}

	if !errors.Is(ann.Validate(), annotation.ErrNoPoints) {
		t.Errorf("Validate before points = %v, want ErrNoPoints", ann.Validate())
	}

	click(ann.Source, 20, 30)
	click(ann.Source, 40, 50)
	click(ann.Target, 60, 30)
	if !errors.Is(ann.Validate(), annotation.ErrCountMismatch) {
		t.Errorf("Validate with 2/1 points = %v, want ErrCountMismatch", ann.Validate())
	}
	click(ann.Target, 80, 50)

	if !ann.SaveReady() {
		t.Fatalf("SaveReady = false after complete annotation: %v", ann.Validate())
	}

	path, err := ann.Save()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "drag_data_frame1_to_frame2.json")
	if path != want {
		t.Errorf("Save path = %q, want %q", path, want)
	}

	rec, err := store.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Frame1Image != "frame1.png" || rec.Frame2Image != "frame2.png" {
		t.Errorf("frames = %q, %q", rec.Frame1Image, rec.Frame2Image)
	}
	if len(rec.MaskArea) != 4 {
		t.Errorf("mask has %d points, want 4", len(rec.MaskArea))
	}
	wantSource := []geometry.Point{{X: 20, Y: 30}, {X: 40, Y: 50}}
	for i, p := range rec.SourcePoints {
		if p != wantSource[i] {
			t.Errorf("source[%d] = %v, want %v", i, p, wantSource[i])
		}
	}

	// The sidecar must surface in the viewer's scan as uncaptioned.
	uncaptioned, captioned, err := scanner.New().Classify(filepath.Dir(dir))
	if err != nil {
		t.Fatal(err)
	}
	if len(uncaptioned) != 1 || len(captioned) != 0 {
		t.Fatalf("Classify = %d uncaptioned, %d captioned, want 1, 0",
			len(uncaptioned), len(captioned))
	}
	if uncaptioned[0].Frame1Image != "clip_001/frame1.png" {
		t.Errorf("classified frame1 = %q", uncaptioned[0].Frame1Image)
	}
}

func TestAnnotatorResave(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, filepath.Join(dir, "a.png"), color.RGBA{R: 255, A: 255})
	writeFrame(t, filepath.Join(dir, "b.png"), color.RGBA{B: 255, A: 255})

	ann := NewAnnotator(geometry.Size{W: 100, H: 80})
	if err := ann.SetFrame1(filepath.Join(dir, "a.png")); err != nil {
		t.Fatal(err)
	}
	if err := ann.SetFrame2(filepath.Join(dir, "b.png")); err != nil {
		t.Fatal(err)
	}
	for _, p := range []geometry.Point{{X: 5, Y: 5}, {X: 95, Y: 5}, {X: 95, Y: 75}, {X: 5, Y: 75}} {
		click(ann.Mask, p.X, p.Y)
	}
	click(ann.Source, 10, 10)
	click(ann.Target, 20, 20)

	first, err := ann.Save()
	if err != nil {
		t.Fatal(err)
	}

	// Adjust a point and re-save; the same sidecar is overwritten.
	click(ann.Source, 30, 30)
	click(ann.Target, 40, 40)
	second, err := ann.Save()
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("re-save wrote %q, want %q", second, first)
	}
	rec, err := store.Load(first)
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.SourcePoints) != 2 {
		t.Errorf("re-saved source has %d points, want 2", len(rec.SourcePoints))
	}
}

func TestAnnotatorFrameReassignClearsMask(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, filepath.Join(dir, "a.png"), color.RGBA{R: 255, A: 255})
	writeFrame(t, filepath.Join(dir, "b.png"), color.RGBA{B: 255, A: 255})
	writeFrame(t, filepath.Join(dir, "c.png"), color.RGBA{G: 255, A: 255})

	ann := NewAnnotator(geometry.Size{W: 100, H: 80})
	if err := ann.SetFrame1(filepath.Join(dir, "a.png")); err != nil {
		t.Fatal(err)
	}
	if err := ann.SetFrame2(filepath.Join(dir, "b.png")); err != nil {
		t.Fatal(err)
	}
	for _, p := range []geometry.Point{{X: 5, Y: 5}, {X: 95, Y: 5}, {X: 95, Y: 75}, {X: 5, Y: 75}} {
		click(ann.Mask, p.X, p.Y)
	}
	click(ann.Source, 10, 10)
	click(ann.Target, 20, 20)
	if !ann.SaveReady() {
		t.Fatalf("annotation not ready: %v", ann.Validate())
	}

	// Swapping a frame invalidates the mask drawn on the previous overlay;
	// the stale corners must not be savable.
	if err := ann.SetFrame2(filepath.Join(dir, "c.png")); err != nil {
		t.Fatal(err)
	}
	if len(ann.Mask.Points()) != 0 {
		t.Errorf("mask kept %d corners after frame reassignment", len(ann.Mask.Points()))
	}
	if !errors.Is(ann.Validate(), annotation.ErrMaskIncomplete) {
		t.Errorf("Validate after frame swap = %v, want ErrMaskIncomplete", ann.Validate())
	}
}

func TestAnnotatorResetAll(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, filepath.Join(dir, "a.png"), color.RGBA{R: 255, A: 255})

	ann := NewAnnotator(geometry.Size{W: 100, H: 80})
	if err := ann.SetFrame1(filepath.Join(dir, "a.png")); err != nil {
		t.Fatal(err)
	}
	click(ann.Source, 10, 10)

	ann.ResetAll()
	if len(ann.Source.Points()) != 0 {
		t.Error("source points survived ResetAll")
	}
	if ann.Source.Enabled() {
		t.Error("source session still enabled after ResetAll")
	}
	if !errors.Is(ann.Validate(), annotation.ErrMissingFrames) {
		t.Errorf("Validate after ResetAll = %v, want ErrMissingFrames", ann.Validate())
	}
}
