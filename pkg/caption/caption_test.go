package caption

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
)

type fakeClient struct {
	replies []string
	err     error
	queries int
	prompts []string
}

func (f *fakeClient) Query(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	reply := f.replies[f.queries%len(f.replies)]
	f.queries++
	if imgB64 == "" {
		return "", errors.New("no image attached")
	}
	return reply, nil
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{100, 150, 200, 255})
		}
	}
	return img
}

func TestDescribe(t *testing.T) {
	fake := &fakeClient{replies: []string{"  a blue square on a table.\n"}}
	svc := NewServiceWithClient(fake, Config{Model: "llava"})

	got, err := svc.Describe(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if got != "a blue square on a table." {
		t.Errorf("Describe() = %q, want trimmed reply", got)
	}
	if fake.queries != 1 {
		t.Errorf("model queried %d times, want 1", fake.queries)
	}
	if fake.prompts[0] != DefaultPrompt {
		t.Errorf("prompt = %q", fake.prompts[0])
	}
}

func TestDescribePairCombines(t *testing.T) {
	fake := &fakeClient{replies: []string{"a cup on the left.", "a cup on the right."}}
	svc := NewServiceWithClient(fake, Config{Model: "llava"})

	got, err := svc.DescribePair(context.Background(), testImage(), testImage())
	if err != nil {
		t.Fatalf("DescribePair() error = %v", err)
	}
	if got.Description1 != "a cup on the left." || got.Description2 != "a cup on the right." {
		t.Errorf("descriptions = %q / %q", got.Description1, got.Description2)
	}
	want := "First frame: a cup on the left. Second frame: a cup on the right"
	if got.Combined != want {
		t.Errorf("Combined = %q, want %q", got.Combined, want)
	}
}

func TestDescribePairPropagatesFailure(t *testing.T) {
	sentinel := errors.New("model unavailable")
	fake := &fakeClient{err: sentinel}
	svc := NewServiceWithClient(fake, Config{Model: "llava"})

	if _, err := svc.DescribePair(context.Background(), testImage(), testImage()); !errors.Is(err, sentinel) {
		t.Errorf("DescribePair() error = %v, want wrapped %v", err, sentinel)
	}
}

func TestNewServiceRejectsUnknownBackend(t *testing.T) {
	if _, err := NewService(Config{Backend: "blip"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
