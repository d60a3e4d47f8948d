package record

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Sink receives the frames of one recording
type Sink interface {
	// Write appends one frame
	Write(frame *image.RGBA) error

	// Close flushes and closes the destination
	Close() error
}

// SinkOpener opens a sink for a recording of the given frame rate and size
type SinkOpener func(path string, fps float64, width, height int) (Sink, error)

// videoSink writes frames through an OpenCV video writer
type videoSink struct {
	writer *gocv.VideoWriter
}

// Check that videoSink implements interface Sink.
var _ Sink = (*videoSink)(nil)

// VideoSinkOpener returns an opener that encodes with the given FourCC
func VideoSinkOpener(codec string) SinkOpener {
	return func(path string, fps float64, width, height int) (Sink, error) {
		w, err := gocv.VideoWriterFile(path, codec, fps, width, height, true)
		if err != nil {
			return nil, fmt.Errorf("opening video writer for %s: %w", path, err)
		}
		if !w.IsOpened() {
			w.Close()
			return nil, fmt.Errorf("video writer for %s did not open", path)
		}
		return &videoSink{writer: w}, nil
	}
}

func (s *videoSink) Write(frame *image.RGBA) error {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return fmt.Errorf("converting frame: %w", err)
	}
	defer mat.Close()
	return s.writer.Write(mat)
}

func (s *videoSink) Close() error {
	return s.writer.Close()
}
