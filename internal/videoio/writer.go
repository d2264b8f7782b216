package videoio

import (
	"fmt"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
)

// Writer persists annotated frames to a video file. The underlying encoder
// is opened lazily on the first frame, the same way the teacher's Video
// type deferred gocv.VideoWriterFile until a frame's actual dimensions were
// known, and the output codec is chosen from the file extension via the
// teacher's getCodecFourcc convention (MJPG for .avi, mp4v otherwise).
type Writer struct {
	path string
	fps  float64
	vw   *gocv.VideoWriter
}

// NewWriter returns a Writer that will create path on the first Write call.
func NewWriter(path string, fps float64) *Writer {
	return &Writer{path: path, fps: fps}
}

// Write encodes frame as the next video frame, opening the encoder on the
// first call.
func (w *Writer) Write(frame gocv.Mat) error {
	if w.vw == nil {
		vw, err := gocv.VideoWriterFile(w.path, codecFourCC(w.path), w.fps, frame.Cols(), frame.Rows(), true)
		if err != nil {
			return fmt.Errorf("open video writer %q: %w", w.path, err)
		}
		w.vw = vw
	}
	return w.vw.Write(frame)
}

// Close finalizes the video file, making it playable. Safe to call even if
// Write was never called.
func (w *Writer) Close() error {
	if w.vw == nil {
		return nil
	}
	err := w.vw.Close()
	w.vw = nil
	return err
}

func codecFourCC(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".avi":
		return "MJPG"
	default:
		return "mp4v"
	}
}
