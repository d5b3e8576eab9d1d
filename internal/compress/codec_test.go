package compress

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecodeFormats(t *testing.T) {
	img := noiseImage(120, 80)

	cases := []struct {
		name string
		data []byte
		mime string
	}{
		{"jpeg", jpegBytes(t, img, 90), "image/jpeg"},
		{"png", pngBytes(t, img), "image/png"},
		{"webp", webpBytes(t, img), "image/webp"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raster, err := Decode(tc.data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if raster.MimeType != tc.mime {
				t.Fatalf("sniffed %q, want %q", raster.MimeType, tc.mime)
			}
			if raster.Width != 120 || raster.Height != 80 {
				t.Fatalf("got %dx%d, want 120x80", raster.Width, raster.Height)
			}
		})
	}
}

func TestDecodeUnsupportedFormat(t *testing.T) {
	_, err := Decode([]byte("plain text, not pixels"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecodeCorruptImage(t *testing.T) {
	// Valid JPEG magic followed by garbage: the sniffer recognizes it, the
	// decoder must not.
	data := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0xAB}, 64)...)
	_, err := Decode(data)
	if !errors.Is(err, ErrCorruptImage) {
		t.Fatalf("expected ErrCorruptImage, got %v", err)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	raster, err := Decode(jpegBytes(t, noiseImage(200, 150), 90))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	a, err := raster.Encode(70, 0.8)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := raster.Encode(70, 0.8)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("identical (raster, quality, scale) produced different bytes")
	}
}

func TestEncodeScalesDimensions(t *testing.T) {
	raster, err := Decode(jpegBytes(t, noiseImage(200, 100), 90))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	data, err := raster.Encode(85, 0.5)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	scaled, err := Decode(data)
	if err != nil {
		t.Fatalf("decode scaled: %v", err)
	}
	if scaled.Width != 100 || scaled.Height != 50 {
		t.Fatalf("scaled to %dx%d, want 100x50", scaled.Width, scaled.Height)
	}
}

func TestEncodeRejectsBadParams(t *testing.T) {
	raster, err := Decode(jpegBytes(t, flatImage(32, 32), 90))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if _, err := raster.Encode(0, 1.0); err == nil {
		t.Fatalf("expected error for quality 0")
	}
	if _, err := raster.Encode(101, 1.0); err == nil {
		t.Fatalf("expected error for quality 101")
	}
	if _, err := raster.Encode(80, 0); err == nil {
		t.Fatalf("expected error for scale 0")
	}
	if _, err := raster.Encode(80, 1.5); err == nil {
		t.Fatalf("expected error for scale above 1")
	}
}

func TestEncodeAfterRelease(t *testing.T) {
	raster, err := Decode(jpegBytes(t, flatImage(32, 32), 90))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	raster.release()
	if _, err := raster.Encode(80, 1.0); err == nil {
		t.Fatalf("expected error encoding a released raster")
	}
}
