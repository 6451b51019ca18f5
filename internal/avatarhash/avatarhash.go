package avatarhash

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"
	_ "golang.org/x/image/webp"
)

// Hash is a 64-bit perceptual fingerprint of an avatar image. Hashes of
// visually similar images differ in only a few bits, so similarity is a
// Hamming-distance comparison against a threshold.
type Hash struct {
	bits uint64
}

// FromBytes decodes an image and computes its perceptual hash. Images with an
// alpha channel are composited over a white background first so transparency
// does not leak into the fingerprint.
func FromBytes(data []byte) (Hash, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Hash{}, fmt.Errorf("failed to decode avatar image: %w", err)
	}

	h, err := goimagehash.PerceptionHash(flattenAlpha(img))
	if err != nil {
		return Hash{}, fmt.Errorf("failed to compute perceptual hash: %w", err)
	}
	return Hash{bits: h.GetHash()}, nil
}

// Parse restores a Hash from its 16-digit hex form.
func Parse(s string) (Hash, error) {
	bits, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid avatar hash %q: %w", s, err)
	}
	return Hash{bits: bits}, nil
}

func (h Hash) String() string {
	return fmt.Sprintf("%016x", h.bits)
}

// Distance is the Hamming distance between two fingerprints.
func (h Hash) Distance(other Hash) int {
	a := goimagehash.NewImageHash(h.bits, goimagehash.PHash)
	b := goimagehash.NewImageHash(other.bits, goimagehash.PHash)
	d, err := a.Distance(b)
	if err != nil {
		// Kinds are fixed above, so this cannot happen.
		return 64
	}
	return d
}

// Similar reports whether two fingerprints are within threshold distance.
// Lower thresholds are stricter.
func Similar(a, b Hash, threshold int) bool {
	return a.Distance(b) <= threshold
}

// flattenAlpha composites img over white when it carries transparency.
func flattenAlpha(img image.Image) image.Image {
	switch img.(type) {
	case *image.NRGBA, *image.RGBA, *image.NRGBA64, *image.RGBA64:
	default:
		return img
	}
	flat := image.NewRGBA(img.Bounds())
	draw.Draw(flat, flat.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, img.Bounds().Min, draw.Over)
	return flat
}
