package loaders

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// ImageConfig holds the transform options applied to every image file.
// Options are fixed at construction and applied uniformly to every file in a
// run, so all decoded arrays share one shape.
type ImageConfig struct {
	// Width and Height the image is resized to. If either is zero the
	// defaults 160x90 are used.
	Width  int
	Height int

	// BlurRadius is the Gaussian blur sigma applied before resizing.
	// Zero disables blurring.
	BlurRadius float64

	// HSV converts the resized image from RGB to HSV channels.
	HSV bool
}

// ImageLoader decodes an image file into a float32 array of shape
// [Height, Width, 3] with channel values in 0..255.
//
// The transform pipeline is blur, then resize (box filter), then the
// optional HSV conversion.
type ImageLoader struct {
	cfg ImageConfig
}

// NewImageLoader returns an ImageLoader with cfg defaults resolved.
func NewImageLoader(cfg ImageConfig) *ImageLoader {
	if cfg.Width == 0 {
		cfg.Width = 160
	}
	if cfg.Height == 0 {
		cfg.Height = 90
	}
	return &ImageLoader{cfg: cfg}
}

// Load decodes, transforms and converts the image at path.
func (l *ImageLoader) Load(path string) ([]float32, []int, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	if l.cfg.BlurRadius != 0 {
		img = imaging.Blur(img, l.cfg.BlurRadius)
	}
	resized := imaging.Resize(img, l.cfg.Width, l.cfg.Height, imaging.Box)

	if l.cfg.HSV {
		return l.toHSVArray(resized), []int{l.cfg.Height, l.cfg.Width, 3}, nil
	}
	return l.toRGBArray(resized), []int{l.cfg.Height, l.cfg.Width, 3}, nil
}

// toRGBArray copies the RGB channels into a flat [H, W, 3] buffer.
func (l *ImageLoader) toRGBArray(img *image.NRGBA) []float32 {
	w, h := l.cfg.Width, l.cfg.Height
	out := make([]float32, 0, h*w*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := img.NRGBAAt(x, y)
			out = append(out, float32(px.R), float32(px.G), float32(px.B))
		}
	}
	return out
}

// toHSVArray converts each pixel to HSV and scales the channels back to the
// 0..255 range so RGB and HSV datasets share one value domain (hue 0..360
// maps onto 0..255).
func (l *ImageLoader) toHSVArray(img *image.NRGBA) []float32 {
	w, h := l.cfg.Width, l.cfg.Height
	out := make([]float32, 0, h*w*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cc, ok := colorful.MakeColor(img.NRGBAAt(x, y))
			if !ok {
				// fully transparent pixel, treat as black
				out = append(out, 0, 0, 0)
				continue
			}
			hue, s, v := cc.Hsv()
			out = append(out, float32(hue/360.0*255.0), float32(s*255.0), float32(v*255.0))
		}
	}
	return out
}
