// Package camera wraps a capture device as a sequential frame source.
package camera

import (
	"errors"
	"image"
	"time"
)

var (
	// ErrDeviceUnavailable means the capture device could not be opened.
	ErrDeviceUnavailable = errors.New("camera: device unavailable")
	// ErrReadFailed means a single frame could not be captured. The
	// source must be reopened before the next read.
	ErrReadFailed = errors.New("camera: frame read failed")
)

// Frame is one still image captured from the camera. The image is
// mutated in place by the overlay renderer and discarded after
// encoding; it is never retained across iterations.
type Frame struct {
	Image     *image.RGBA
	Number    uint64
	Timestamp time.Time
}

// Source produces sequential frames from a capture device. A Source
// holds an exclusive OS handle while open; after a read error the
// caller must Close it and open a fresh one.
type Source interface {
	Read() (*Frame, error)
	Close() error
}

// Opener opens a Source. The stream pipeline uses it for the initial
// open and for reinitialization after read failures; retry policy
// lives entirely with the caller.
type Opener func() (Source, error)
