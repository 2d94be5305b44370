package camera

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"
)

// Device is a Source backed by an OpenCV video capture handle.
type Device struct {
	index  int
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	mirror bool
	seq    uint64
}

// OpenDevice opens the capture device at the given index. With mirror
// set, frames are flipped horizontally for a mirror-like view.
func OpenDevice(index int, mirror bool) (*Device, error) {
	cap, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("%w: open device %d: %v", ErrDeviceUnavailable, index, err)
	}
	if !cap.IsOpened() {
		_ = cap.Close()
		return nil, fmt.Errorf("%w: device %d did not open", ErrDeviceUnavailable, index)
	}
	return &Device{
		index:  index,
		cap:    cap,
		mat:    gocv.NewMat(),
		mirror: mirror,
	}, nil
}

// Read captures the next frame. It returns ErrReadFailed when the
// device stops delivering; the caller must reopen before reading again.
func (d *Device) Read() (*Frame, error) {
	if ok := d.cap.Read(&d.mat); !ok || d.mat.Empty() {
		return nil, fmt.Errorf("%w: device %d", ErrReadFailed, d.index)
	}
	if d.mirror {
		gocv.Flip(d.mat, &d.mat, 1)
	}
	img, err := d.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: convert frame: %v", ErrReadFailed, err)
	}
	frame := &Frame{
		Image:     ToRGBA(img),
		Number:    d.seq,
		Timestamp: time.Now(),
	}
	d.seq++
	return frame, nil
}

// Close releases the capture handle.
func (d *Device) Close() error {
	_ = d.mat.Close()
	return d.cap.Close()
}

// NewDeviceOpener returns an Opener bound to a device index.
func NewDeviceOpener(index int, mirror bool) Opener {
	return func() (Source, error) {
		return OpenDevice(index, mirror)
	}
}
