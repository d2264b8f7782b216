package videoio

import (
	"fmt"
	"path/filepath"

	"gocv.io/x/gocv"
	"gopkg.in/ini.v1"
)

// SequenceSource reads a MOTChallenge-style numbered image directory
// described by a seqinfo.ini sidecar: {root}/seqinfo.ini plus
// {root}/{imDir}/{frame:06d}{imExt}.
type SequenceSource struct {
	root   string
	imDir  string
	imExt  string
	fps    float64
	width  int
	height int
	length int

	next int
}

// OpenSequenceSource parses seqinfo.ini under root and prepares to read its
// numbered frames in order.
func OpenSequenceSource(root string) (*SequenceSource, error) {
	cfg, err := ini.Load(filepath.Join(root, "seqinfo.ini"))
	if err != nil {
		return nil, fmt.Errorf("load seqinfo.ini under %q: %w", root, err)
	}

	section := cfg.Section("Sequence")
	s := &SequenceSource{
		root:   root,
		imDir:  section.Key("imDir").MustString("img1"),
		imExt:  section.Key("imExt").MustString(".jpg"),
		fps:    float64(section.Key("frameRate").MustInt(30)),
		width:  section.Key("imWidth").MustInt(0),
		height: section.Key("imHeight").MustInt(0),
		length: section.Key("seqLength").MustInt(0),
		next:   1,
	}
	if s.length == 0 || s.width == 0 || s.height == 0 {
		return nil, fmt.Errorf("seqinfo.ini under %q is missing required fields", root)
	}
	return s, nil
}

// ReadFrame implements FrameSource.
func (s *SequenceSource) ReadFrame(dst *gocv.Mat) bool {
	for s.next <= s.length {
		path := filepath.Join(s.root, s.imDir, fmt.Sprintf("%06d%s", s.next, s.imExt))
		s.next++
		frame := gocv.IMRead(path, gocv.IMReadColor)
		if frame.Empty() {
			frame.Close()
			continue
		}
		frame.CopyTo(dst)
		frame.Close()
		return true
	}
	return false
}

// FPS implements FrameSource.
func (s *SequenceSource) FPS() float64 { return s.fps }

// Size implements FrameSource.
func (s *SequenceSource) Size() (int, int) { return s.width, s.height }

// Rewind implements FrameSource.
func (s *SequenceSource) Rewind() error {
	s.next = 1
	return nil
}

// Close implements FrameSource.
func (s *SequenceSource) Close() error { return nil }
