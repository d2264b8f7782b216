// Package videoio supplies the frame-source abstraction the engine reads
// from: video files, RTSP streams, and MOTChallenge-style numbered image
// sequences, all behind one small interface.
package videoio

import (
	"fmt"

	"gocv.io/x/gocv"
)

// FrameSource is the engine-facing contract for anything that can produce a
// sequence of frames.
type FrameSource interface {
	// ReadFrame reads the next frame into dst, reusing its backing buffer.
	// It reports false when the source is exhausted (file EOF) or a frame
	// could not be decoded.
	ReadFrame(dst *gocv.Mat) bool
	FPS() float64
	Size() (width, height int)
	// Rewind restarts the source from its first frame. Used by the
	// loop-file-input mode; RTSP sources do not support it.
	Rewind() error
	Close() error
}

// VideoSource wraps gocv.VideoCapture for both file and RTSP inputs — gocv
// transparently dials rtsp:// URLs the same way it opens files.
type VideoSource struct {
	path    string
	capture *gocv.VideoCapture
	fps     float64
	width   int
	height  int
	isRTSP  bool
}

// OpenVideoSource opens a video file or an rtsp:// URL.
func OpenVideoSource(path string, isRTSP bool) (*VideoSource, error) {
	cap, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("open video source %q: %w", path, err)
	}

	v := &VideoSource{
		path:    path,
		capture: cap,
		isRTSP:  isRTSP,
		fps:     cap.Get(gocv.VideoCaptureFPS),
		width:   int(cap.Get(gocv.VideoCaptureFrameWidth)),
		height:  int(cap.Get(gocv.VideoCaptureFrameHeight)),
	}
	if v.fps <= 0 {
		v.fps = 30
	}
	return v, nil
}

// ReadFrame implements FrameSource.
func (v *VideoSource) ReadFrame(dst *gocv.Mat) bool {
	if ok := v.capture.Read(dst); !ok {
		return false
	}
	return !dst.Empty()
}

// FPS implements FrameSource.
func (v *VideoSource) FPS() float64 { return v.fps }

// Size implements FrameSource.
func (v *VideoSource) Size() (int, int) { return v.width, v.height }

// Rewind implements FrameSource. RTSP sources cannot rewind: a live stream
// has no "start".
func (v *VideoSource) Rewind() error {
	if v.isRTSP {
		return fmt.Errorf("rtsp source %q cannot be rewound", v.path)
	}
	if ok := v.capture.Set(gocv.VideoCapturePosFrames, 0); !ok {
		return fmt.Errorf("rewind video source %q: seek failed", v.path)
	}
	return nil
}

// Close implements FrameSource.
func (v *VideoSource) Close() error {
	return v.capture.Close()
}
