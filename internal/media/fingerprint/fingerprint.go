package fingerprint

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"strconv"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"
	"golang.org/x/sync/semaphore"
)

// StaticLen is the length of a single-image fingerprint; animated ones are twice as long.
const StaticLen = 16

// Hasher computes fingerprints on a bounded number of goroutines so hashing
// does not starve request handling.
type Hasher struct {
	sem *semaphore.Weighted
}

func NewHasher(workers int) *Hasher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Hasher{sem: semaphore.NewWeighted(int64(workers))}
}

func (h *Hasher) Fingerprint(ctx context.Context, d *Decoded) (string, error) {
	if d == nil || d.Image == nil {
		return "", fmt.Errorf("%w: nothing decoded", ErrDecode)
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)
	return Fingerprint(d)
}

// Fingerprint hashes a static image, or the first and last frame of a GIF.
// A single-frame GIF repeats its hash so every GIF fingerprint has the same width.
func Fingerprint(d *Decoded) (string, error) {
	if !d.IsAnimated() {
		return hashImage(d.Image)
	}
	first, last := d.firstAndLast()
	a, err := hashImage(first)
	if err != nil {
		return "", err
	}
	if d.FrameCount() == 1 {
		return a + a, nil
	}
	b, err := hashImage(last)
	if err != nil {
		return "", err
	}
	return a + b, nil
}

func hashImage(img image.Image) (string, error) {
	h, err := goimagehash.PerceptionHash(toRGB(img))
	if err != nil {
		return "", fmt.Errorf("perception hash: %w", err)
	}
	return fmt.Sprintf("%016x", h.GetHash()), nil
}

// toRGB drops alpha without compositing so palette, gray and truecolor
// sources with the same visible colours hash the same.
func toRGB(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	return out
}

// Distance is the Hamming distance between two fingerprints of equal length.
func Distance(a, b string) (int, error) {
	if len(a) != len(b) || len(a) == 0 || len(a)%StaticLen != 0 {
		return 0, fmt.Errorf("fingerprint: incomparable lengths %d and %d", len(a), len(b))
	}
	total := 0
	for i := 0; i < len(a); i += StaticLen {
		x, err := parseChunk(a[i : i+StaticLen])
		if err != nil {
			return 0, err
		}
		y, err := parseChunk(b[i : i+StaticLen])
		if err != nil {
			return 0, err
		}
		d, err := x.Distance(y)
		if err != nil {
			return 0, err
		}
		total += d
	}
	return total, nil
}

func parseChunk(s string) (*goimagehash.ImageHash, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: bad hex %q: %w", s, err)
	}
	return goimagehash.NewImageHash(v, goimagehash.PHash), nil
}
