package fingerprint

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"
)

var grays = color.Palette{
	color.RGBA{0, 0, 0, 255},
	color.RGBA{64, 64, 64, 255},
	color.RGBA{128, 128, 128, 255},
	color.RGBA{255, 255, 255, 255},
}

func stripes(w, h int) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, w, h), grays)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetColorIndex(x, y, uint8((x/8)%len(grays)))
		}
	}
	return img
}

func checker(w, h int) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, w, h), grays)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/16+y/16)%2 == 0 {
				img.SetColorIndex(x, y, 3)
			}
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func encodeGIF(t *testing.T, delay int, frames ...*image.Paletted) []byte {
	t.Helper()
	g := &gif.GIF{}
	for _, f := range frames {
		g.Image = append(g.Image, f)
		g.Delay = append(g.Delay, delay)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		t.Fatalf("gif encode: %v", err)
	}
	return buf.Bytes()
}

func fingerprintOf(t *testing.T, raw []byte) (string, *Decoded) {
	t.Helper()
	d, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	fp, err := NewHasher(2).Fingerprint(context.Background(), d)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	return fp, d
}

func TestStaticFingerprintIsDeterministic(t *testing.T) {
	raw := encodePNG(t, stripes(64, 64))
	a, d := fingerprintOf(t, raw)
	b, _ := fingerprintOf(t, raw)
	if a != b {
		t.Fatalf("determinism: want=%s got=%s", a, b)
	}
	if len(a) != StaticLen {
		t.Fatalf("len: want=%d got=%d", StaticLen, len(a))
	}
	if d.Span() != 0 {
		t.Fatalf("span: want=0 got=%d", d.Span())
	}
}

func TestPaletteAndTruecolorHashTheSame(t *testing.T) {
	pal := stripes(64, 64)
	rgba := image.NewRGBA(pal.Bounds())
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			rgba.Set(x, y, pal.At(x, y))
		}
	}
	a, _ := fingerprintOf(t, encodePNG(t, pal))
	b, _ := fingerprintOf(t, encodePNG(t, rgba))
	if a != b {
		t.Fatalf("colour mode changed hash: paletted=%s rgba=%s", a, b)
	}
}

func TestSingleFrameGIFDuplicatesHash(t *testing.T) {
	fp, d := fingerprintOf(t, encodeGIF(t, 10, stripes(64, 64)))
	if len(fp) != 2*StaticLen {
		t.Fatalf("len: want=%d got=%d", 2*StaticLen, len(fp))
	}
	if fp[:StaticLen] != fp[StaticLen:] {
		t.Fatalf("halves differ: %s", fp)
	}
	if d.FrameCount() != 1 {
		t.Fatalf("frames: want=1 got=%d", d.FrameCount())
	}
}

func TestMultiFrameGIFHashesFirstAndLast(t *testing.T) {
	first, last := stripes(64, 64), checker(64, 64)
	fp, d := fingerprintOf(t, encodeGIF(t, 10, first, first, first, first, last))
	if d.FrameCount() != 5 {
		t.Fatalf("frames: want=5 got=%d", d.FrameCount())
	}
	if fp[:StaticLen] == fp[StaticLen:] {
		t.Fatalf("halves should differ for distinct first/last frames: %s", fp)
	}

	still, _ := fingerprintOf(t, encodeGIF(t, 10, first))
	if fp[:StaticLen] != still[:StaticLen] {
		t.Fatalf("first half depends on frame count: got=%s want=%s", fp[:StaticLen], still[:StaticLen])
	}

	short, _ := fingerprintOf(t, encodeGIF(t, 10, first, last))
	if short != fp {
		t.Fatalf("hash should only depend on first and last frame: short=%s long=%s", short, fp)
	}
}

func TestGIFSpan(t *testing.T) {
	frame := stripes(32, 32)
	_, d := fingerprintOf(t, encodeGIF(t, 10, frame, frame, frame, frame, frame))
	// 10 centiseconds is a 100 ms duration.
	if d.Span() != 100000 {
		t.Fatalf("span: want=100000 got=%d", d.Span())
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("definitely not an image"))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("Decode: want ErrDecode got=%v", err)
	}
	if _, err := Decode(nil); !errors.Is(err, ErrDecode) {
		t.Fatalf("Decode(nil): want ErrDecode got=%v", err)
	}
}

func TestDistance(t *testing.T) {
	d, err := Distance("0000000000000000", "000000000000000f")
	if err != nil {
		t.Fatalf("Distance: %v", err)
	}
	if d != 4 {
		t.Fatalf("Distance: want=4 got=%d", d)
	}
	d, err = Distance("ffffffffffffffff0000000000000000", "ffffffffffffffff0000000000000001")
	if err != nil || d != 1 {
		t.Fatalf("Distance animated: want=1 got=%d err=%v", d, err)
	}
	if _, err := Distance("00", "0000000000000000"); err == nil {
		t.Fatalf("Distance: expected length error")
	}
}

func TestHasherHonoursCancelledContext(t *testing.T) {
	h := NewHasher(1)
	d, err := Decode(encodePNG(t, stripes(16, 16)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := h.sem.Acquire(context.Background(), 1); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer h.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Fingerprint(ctx, d); !errors.Is(err, context.Canceled) {
		t.Fatalf("Fingerprint: want context.Canceled got=%v", err)
	}
}

// hugeScreenGIF declares a w x h logical screen around a single 1x1 frame.
func hugeScreenGIF(t *testing.T, w, h int) []byte {
	t.Helper()
	g := &gif.GIF{
		Image:  []*image.Paletted{image.NewPaletted(image.Rect(0, 0, 1, 1), grays)},
		Delay:  []int{0},
		Config: image.Config{ColorModel: grays, Width: w, Height: h},
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		t.Fatalf("gif encode: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeRejectsOversizedGIFScreen(t *testing.T) {
	raw := hugeScreenGIF(t, 16000, 16000)
	if len(raw) > 256 {
		t.Fatalf("fixture should be tiny, got %d bytes", len(raw))
	}
	if _, err := Decode(raw); !errors.Is(err, ErrDecode) {
		t.Fatalf("want ErrDecode got=%v", err)
	}
}

func TestDecodeHonoursMaxPixels(t *testing.T) {
	t.Cleanup(func() { SetMaxPixels(0) })
	raw := encodePNG(t, stripes(64, 64))

	SetMaxPixels(64*64 - 1)
	if _, err := Decode(raw); !errors.Is(err, ErrDecode) {
		t.Fatalf("still over limit: want ErrDecode got=%v", err)
	}
	if _, err := Decode(hugeScreenGIF(t, 80, 80)); !errors.Is(err, ErrDecode) {
		t.Fatalf("gif over limit: want ErrDecode got=%v", err)
	}

	SetMaxPixels(64 * 64)
	if _, err := Decode(raw); err != nil {
		t.Fatalf("at limit: %v", err)
	}

	SetMaxPixels(0)
	if MaxPixels() != DefaultMaxPixels {
		t.Fatalf("reset: want=%d got=%d", DefaultMaxPixels, MaxPixels())
	}
}
