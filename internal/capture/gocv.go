package capture

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// cvGrabber reads frames through OpenCV
type cvGrabber struct {
	vc  *gocv.VideoCapture
	buf gocv.Mat
}

// Check that cvGrabber implements interface Grabber.
var _ Grabber = (*cvGrabber)(nil)

// OpenDevice opens camera index
func OpenDevice(index int) (Grabber, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, err
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("device %d did not open", index)
	}
	return &cvGrabber{vc: vc, buf: gocv.NewMat()}, nil
}

// OpenClip opens a movie file
func OpenClip(path string) (Grabber, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		if vc != nil {
			vc.Close()
		}
		return nil, err
	}
	return &cvGrabber{vc: vc, buf: gocv.NewMat()}, nil
}

func (g *cvGrabber) IsOpened() bool {
	return g.vc.IsOpened()
}

func (g *cvGrabber) Read() (*image.RGBA, bool) {
	if ok := g.vc.Read(&g.buf); !ok || g.buf.Empty() {
		return nil, false
	}
	img, err := g.buf.ToImage()
	if err != nil {
		return nil, false
	}
	return ToRGBA(img), true
}

func (g *cvGrabber) Get(prop Property) float64 {
	p, ok := cvProperty(prop)
	if !ok {
		return 0
	}
	return g.vc.Get(p)
}

func (g *cvGrabber) Set(prop Property, value float64) {
	if p, ok := cvProperty(prop); ok {
		g.vc.Set(p, value)
	}
}

func (g *cvGrabber) Close() error {
	g.buf.Close()
	return g.vc.Close()
}

func cvProperty(prop Property) (gocv.VideoCaptureProperties, bool) {
	switch prop {
	case PropFrameWidth:
		return gocv.VideoCaptureFrameWidth, true
	case PropFrameHeight:
		return gocv.VideoCaptureFrameHeight, true
	case PropPosFrames:
		return gocv.VideoCapturePosFrames, true
	case PropPosMsec:
		return gocv.VideoCapturePosMsec, true
	case PropFPS:
		return gocv.VideoCaptureFPS, true
	default:
		return 0, false
	}
}
