package compress

import "errors"

var (
	// ErrUnsupportedFormat means the bytes are not a raster format we decode.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrCorruptImage means the format was recognized but decoding failed.
	ErrCorruptImage = errors.New("corrupt image data")

	// ErrTargetTooSmall means the byte budget is below the search floor.
	ErrTargetTooSmall = errors.New("target size below minimum floor")

	// ErrEmptyName is returned for an individual name that is blank.
	ErrEmptyName = errors.New("empty output name")

	// ErrUnsafeName is returned for an individual name that is not
	// filesystem-safe.
	ErrUnsafeName = errors.New("output name contains unsafe characters")

	// ErrNameExhausted is returned when the individual-name list runs out
	// before the input does.
	ErrNameExhausted = errors.New("no custom name supplied for item")
)
