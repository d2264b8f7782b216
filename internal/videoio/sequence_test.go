package videoio

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"
)

func writeSeqinfo(t *testing.T, dir string, length int) {
	t.Helper()
	content := fmt.Sprintf(`[Sequence]
name=testseq
imDir=img1
frameRate=25
seqLength=%d
imWidth=8
imHeight=8
imExt=.jpg
`, length)
	if err := os.WriteFile(filepath.Join(dir, "seqinfo.ini"), []byte(content), 0o644); err != nil {
		t.Fatalf("write seqinfo.ini: %v", err)
	}
}

func TestSequenceSourceReadsInOrder(t *testing.T) {
	dir := t.TempDir()
	imgDir := filepath.Join(dir, "img1")
	if err := os.MkdirAll(imgDir, 0o755); err != nil {
		t.Fatalf("mkdir img1: %v", err)
	}
	writeSeqinfo(t, dir, 3)

	for i := 1; i <= 3; i++ {
		frame := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)
		gocv.IMWrite(filepath.Join(imgDir, fmt.Sprintf("%06d.jpg", i)), frame)
		frame.Close()
	}

	src, err := OpenSequenceSource(dir)
	if err != nil {
		t.Fatalf("OpenSequenceSource: %v", err)
	}
	defer src.Close()

	if src.FPS() != 25 {
		t.Errorf("expected fps=25, got %v", src.FPS())
	}
	w, h := src.Size()
	if w != 8 || h != 8 {
		t.Errorf("expected 8x8, got %dx%d", w, h)
	}

	count := 0
	frame := gocv.NewMat()
	defer frame.Close()
	for src.ReadFrame(&frame) {
		count++
	}
	if count != 3 {
		t.Fatalf("expected 3 frames, read %d", count)
	}

	if err := src.Rewind(); err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	count = 0
	for src.ReadFrame(&frame) {
		count++
	}
	if count != 3 {
		t.Fatalf("expected 3 frames after rewind, read %d", count)
	}
}

func TestOpenSequenceSourceRejectsMissingMetadata(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "seqinfo.ini"), []byte("[Sequence]\nname=empty\n"), 0o644); err != nil {
		t.Fatalf("write seqinfo.ini: %v", err)
	}
	if _, err := OpenSequenceSource(dir); err == nil {
		t.Fatal("expected an error for a seqinfo.ini missing required fields")
	}
}
