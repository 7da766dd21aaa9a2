package capture

import "errors"

var (
	// ErrSelectionTooSmall is returned when a gesture ends below MinSelectionSize.
	ErrSelectionTooSmall = errors.New("capture: selection too small")
	// ErrSelectionCanceled is returned when a gesture was canceled before release.
	ErrSelectionCanceled = errors.New("capture: selection canceled")
	// ErrGestureIncomplete is returned when a gesture never starts or never ends.
	ErrGestureIncomplete = errors.New("capture: gesture incomplete")
	ErrNoSurface         = errors.New("capture: no surface found under selection")
	ErrCaptureInFlight   = errors.New("capture: another capture is in progress")
)

// IsMissingInput reports whether err is a selection/surface problem the caller
// can fix by trying again, as opposed to a failure of the pipeline itself.
func IsMissingInput(err error) bool {
	return errors.Is(err, ErrSelectionTooSmall) ||
		errors.Is(err, ErrSelectionCanceled) ||
		errors.Is(err, ErrGestureIncomplete)
}
