package datasets

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/hollowgrove/datacrate/loaders"
)

// writeSolidPNG writes a solid-color PNG image to path.
func writeSolidPNG(t *testing.T, path string, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create png: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
}

// End-to-end: real PNG files through the image loader, the maker, the
// artifact and back out of the bundle loader.
func TestMaker_ImageEndToEnd(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")

	colors := map[string]color.NRGBA{
		"0_black": {A: 255},
		"1_red":   {R: 255, A: 255},
		"2_blue":  {B: 255, A: 255},
	}
	for class, c := range colors {
		dir := filepath.Join(src, class)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("failed to create class dir: %v", err)
		}
		for _, name := range []string{"a.png", "b.png", "c.png"} {
			writeSolidPNG(t, filepath.Join(dir, name), c)
		}
	}

	loader := loaders.NewImageLoader(loaders.ImageConfig{Width: 4, Height: 2})
	ctx := loaders.NewContext(loader, "png")
	out := filepath.Join(tmp, "dataset.dsb")

	if err := NewMaker(ctx, src).CreateAndSaveDataSet(out); err != nil {
		t.Fatalf("CreateAndSaveDataSet failed: %v", err)
	}

	b, err := NewBundleLoader(out).Load(LoadOptions{OneHotLabel: true})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !equalDims(b.DataShape, []int{9, 2, 4, 3}) {
		t.Fatalf("data shape %v, want [9 2 4 3]", b.DataShape)
	}
	wantNames := []string{"0_black", "1_red", "2_blue"}
	for i, want := range wantNames {
		if b.TargetNames[i] != want {
			t.Fatalf("TargetNames[%d] = %q, want %q", i, b.TargetNames[i], want)
		}
	}

	// the red class occupies rows 3..5; its first channel must be 255
	featSize := b.FeatureSize()
	if b.Data[3*featSize] != 255 {
		t.Fatalf("red class first channel = %v, want 255", b.Data[3*featSize])
	}
	if b.Data[0] != 0 {
		t.Fatalf("black class first channel = %v, want 0", b.Data[0])
	}

	// flattened view for classic classifiers
	flat, err := NewBundleLoader(out).Load(LoadOptions{Flatten: true})
	if err != nil {
		t.Fatalf("flattened Load failed: %v", err)
	}
	if !equalDims(flat.DataShape, []int{9, 24}) {
		t.Fatalf("flattened shape %v, want [9 24]", flat.DataShape)
	}
	if !equalDims(flat.TargetShape, []int{9}) {
		t.Fatalf("scalar target shape %v, want [9]", flat.TargetShape)
	}
	if flat.Target[0] != 0 || flat.Target[4] != 1 || flat.Target[8] != 2 {
		t.Fatalf("scalar labels %v not grouped by class", flat.Target)
	}
}
