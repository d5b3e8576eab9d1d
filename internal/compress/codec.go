package compress

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

// Raster is one decoded image. It is owned by exactly one worker for the
// duration of that item's search and released as soon as the search finishes.
type Raster struct {
	img      image.Image
	MimeType string
	Width    int
	Height   int
}

// Decode sniffs the payload and decodes it into a Raster. Unknown formats
// fail with ErrUnsupportedFormat, recognized-but-broken payloads with
// ErrCorruptImage.
func Decode(data []byte) (*Raster, error) {
	mime := mimetype.Detect(data).String()

	var (
		img image.Image
		err error
	)
	switch mime {
	case "image/jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	case "image/png":
		img, err = png.Decode(bytes.NewReader(data))
	case "image/webp":
		img, err = webp.Decode(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mime)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}

	b := img.Bounds()
	return &Raster{
		img:      img,
		MimeType: mime,
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}

// Encode resizes the raster to round(w*scale) x round(h*scale) with Lanczos
// resampling and JPEG-encodes it at the given quality. All outputs are JPEG
// regardless of source format; that is what the size search targets.
// Identical (raster, quality, scale) inputs always produce identical bytes.
func (r *Raster) Encode(quality int, scale float64) ([]byte, error) {
	if r.img == nil {
		return nil, fmt.Errorf("encode on released raster")
	}
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("quality %d out of range", quality)
	}
	if scale <= 0 || scale > 1 {
		return nil, fmt.Errorf("scale %v out of range", scale)
	}

	img := r.img
	if scale < 1 {
		w := int(math.Round(float64(r.Width) * scale))
		h := int(math.Round(float64(r.Height) * scale))
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	var buf bytes.Buffer
	buf.Grow(64 * 1024)
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// release drops the pixel buffer so the memory can be reclaimed while the
// rest of the item (naming, emission) completes.
func (r *Raster) release() {
	r.img = nil
}
