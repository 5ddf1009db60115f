package covers

import (
	"image"

	"github.com/bbrks/go-blurhash"
)

// blurHashSize is the thumbnail edge used for BlurHash computation.
// BlurHash is a low-resolution placeholder; scaling down first turns a
// multi-second encode into milliseconds with no visible difference.
const blurHashSize = 64

// computeBlurHash encodes a 4x3 component BlurHash from the image.
// Four horizontal and three vertical components suit portrait book covers.
func computeBlurHash(img image.Image) (string, error) {
	return blurhash.Encode(4, 3, resizeForBlurHash(img))
}

// resizeForBlurHash produces a small nearest-neighbor thumbnail,
// preserving aspect ratio.
func resizeForBlurHash(img image.Image) image.Image {
	bounds := img.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()

	if srcWidth <= blurHashSize && srcHeight <= blurHashSize {
		return img
	}

	var dstWidth, dstHeight int
	if srcWidth > srcHeight {
		dstWidth = blurHashSize
		dstHeight = max((srcHeight*blurHashSize)/srcWidth, 1)
	} else {
		dstHeight = blurHashSize
		dstWidth = max((srcWidth*blurHashSize)/srcHeight, 1)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstWidth, dstHeight))
	xRatio := float64(srcWidth) / float64(dstWidth)
	yRatio := float64(srcHeight) / float64(dstHeight)

	for y := range dstHeight {
		for x := range dstWidth {
			srcX := int(float64(x) * xRatio)
			srcY := int(float64(y) * yRatio)
			dst.Set(x, y, img.At(bounds.Min.X+srcX, bounds.Min.Y+srcY))
		}
	}

	return dst
}
