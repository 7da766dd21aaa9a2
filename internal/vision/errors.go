package vision

import "errors"

var (
	// ErrEmptyDescription is returned when the model answers with no text.
	ErrEmptyDescription = errors.New("vision model returned an empty description")
	// ErrUnsupportedType is returned for files that are neither images nor PDFs.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrInvalidImage is returned when the encoded payload cannot be decoded.
	ErrInvalidImage = errors.New("invalid image data")
)
