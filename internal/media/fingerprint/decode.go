package fingerprint

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync/atomic"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var ErrDecode = errors.New("fingerprint: cannot decode image")

// DefaultMaxPixels bounds width*height of anything Decode will allocate.
// A quarter GiB of 24-bit pixels, the same ceiling PIL applies.
const DefaultMaxPixels = 1024 * 1024 * 1024 / 4 / 3

var maxPixels atomic.Int64

func init() { maxPixels.Store(DefaultMaxPixels) }

// SetMaxPixels changes the decode ceiling. Values <= 0 restore the default.
func SetMaxPixels(n int64) {
	if n <= 0 {
		n = DefaultMaxPixels
	}
	maxPixels.Store(n)
}

func MaxPixels() int64 { return maxPixels.Load() }

func checkPixels(w, h int) error {
	if w < 0 || h < 0 {
		return fmt.Errorf("%w: negative dimensions %dx%d", ErrDecode, w, h)
	}
	if limit := maxPixels.Load(); int64(w)*int64(h) > limit {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecode, w, h, limit)
	}
	return nil
}

// Decoded is an uploaded asset after decoding. GIFs keep every frame.
type Decoded struct {
	Format string
	Image  image.Image
	GIF    *gif.GIF
}

func Decode(raw []byte) (*Decoded, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := checkPixels(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	if format == "gif" {
		g, err := gif.DecodeAll(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		if len(g.Image) == 0 {
			return nil, fmt.Errorf("%w: gif has no frames", ErrDecode)
		}
		bounds := canvasBounds(g)
		if err := checkPixels(bounds.Dx(), bounds.Dy()); err != nil {
			return nil, err
		}
		return &Decoded{Format: format, Image: g.Image[0], GIF: g}, nil
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &Decoded{Format: format, Image: img}, nil
}

func (d *Decoded) IsAnimated() bool { return d != nil && d.GIF != nil }

func (d *Decoded) FrameCount() int {
	if d.IsAnimated() {
		return len(d.GIF.Image)
	}
	return 1
}

// Span is the first frame's delay in milliseconds times 1000. Zero for non-GIFs.
func (d *Decoded) Span() int {
	if !d.IsAnimated() || len(d.GIF.Delay) == 0 {
		return 0
	}
	return d.GIF.Delay[0] * 10 * 1000
}

// firstAndLast returns the first and last frames as they would be displayed,
// each composited onto the logical screen.
func (d *Decoded) firstAndLast() (image.Image, image.Image) {
	g := d.GIF
	bounds := canvasBounds(g)
	canvas := image.NewRGBA(bounds)
	var first image.Image
	for i, frame := range g.Image {
		var saved *image.RGBA
		disposal := byte(0)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			saved = image.NewRGBA(bounds)
			draw.Draw(saved, bounds, canvas, bounds.Min, draw.Src)
		}
		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		if i == 0 {
			first = snapshot(canvas)
		}
		if i == len(g.Image)-1 {
			break
		}
		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = saved
		}
	}
	if len(g.Image) == 1 {
		return first, first
	}
	return first, snapshot(canvas)
}

// canvasBounds is the logical screen, or the union of the frames when the
// header leaves it empty.
func canvasBounds(g *gif.GIF) image.Rectangle {
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
		for _, f := range g.Image[1:] {
			bounds = bounds.Union(f.Bounds())
		}
	}
	return bounds
}

func snapshot(src *image.RGBA) *image.RGBA {
	out := image.NewRGBA(src.Bounds())
	copy(out.Pix, src.Pix)
	return out
}
