package sink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gocv.io/x/gocv"
)

func testCrop() gocv.Mat {
	return gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)
}

func TestWriteEvent_ImageIDIncludesFeatureAndAlertKind(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, DefaultLayout(), false)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	crop := testCrop()
	defer crop.Close()

	if err := s.WriteEvent(crop, "line_cross", "line_crossing_in", 42, "2026-07-31T00:00:00Z", EventMeta{TrackID: 7}, nil); err != nil {
		t.Fatalf("WriteEvent() error = %v", err)
	}

	wantID := "000042_0001_line_cross_line_crossing_in"
	if _, err := os.Stat(filepath.Join(dir, "image", wantID+".jpg")); err != nil {
		t.Errorf("expected image file %s, stat error: %v", wantID, err)
	}
	dataPath := filepath.Join(dir, "data", wantID+".json")
	data, err := os.ReadFile(dataPath)
	if err != nil {
		t.Fatalf("expected data file %s, read error: %v", wantID, err)
	}

	var record EventRecord
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("unmarshal event record: %v", err)
	}
	if record.ImageID != wantID {
		t.Errorf("record.ImageID = %q, want %q", record.ImageID, wantID)
	}
	if record.TrackID != 7 {
		t.Errorf("record.TrackID = %d, want 7", record.TrackID)
	}
}

func TestWriteEvent_StatusJSONOnlyForRTSP(t *testing.T) {
	fileDir := t.TempDir()
	fileSink, err := New(fileDir, DefaultLayout(), false)
	if err != nil {
		t.Fatalf("New(file) error = %v", err)
	}
	crop := testCrop()
	defer crop.Close()
	if err := fileSink.WriteEvent(crop, "line_cross", "line_crossing_in", 1, "ts", EventMeta{}, nil); err != nil {
		t.Fatalf("WriteEvent(file) error = %v", err)
	}
	statusEntries, err := os.ReadDir(filepath.Join(fileDir, "status"))
	if err != nil {
		t.Fatalf("read status dir: %v", err)
	}
	if len(statusEntries) != 0 {
		t.Errorf("expected no status files for a non-RTSP sink, got %d", len(statusEntries))
	}

	rtspDir := t.TempDir()
	rtspSink, err := New(rtspDir, DefaultLayout(), true)
	if err != nil {
		t.Fatalf("New(rtsp) error = %v", err)
	}
	if err := rtspSink.WriteEvent(crop, "line_cross", "line_crossing_in", 1, "ts", EventMeta{}, nil); err != nil {
		t.Fatalf("WriteEvent(rtsp) error = %v", err)
	}
	statusEntries, err = os.ReadDir(filepath.Join(rtspDir, "status"))
	if err != nil {
		t.Fatalf("read status dir: %v", err)
	}
	if len(statusEntries) != 1 {
		t.Fatalf("expected exactly one status file for an RTSP sink, got %d", len(statusEntries))
	}
}

func TestWriteEvent_CSVRowCountMatchesEventCount(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, DefaultLayout(), false)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	crop := testCrop()
	defer crop.Close()

	for i := 0; i < 3; i++ {
		if err := s.WriteEvent(crop, "region_crowd", "region_crowd_alert", i, "ts", EventMeta{}, nil); err != nil {
			t.Fatalf("WriteEvent() error = %v", err)
		}
	}

	csvData, err := os.ReadFile(filepath.Join(dir, "data.csv"))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(csvData), "\n"), "\n")
	if len(lines)-1 != s.EventCount() {
		t.Errorf("csv rows (excluding header) = %d, want %d", len(lines)-1, s.EventCount())
	}
	if s.EventCount() != 3 {
		t.Errorf("EventCount() = %d, want 3", s.EventCount())
	}
}

func TestRunDir_IncludesSourceStemAndTimestamp(t *testing.T) {
	dir := RunDir("/out", "myconfig", "cam1", "20260731-000000")
	if !strings.Contains(dir, "myconfig") || !strings.Contains(dir, "cam1_20260731-000000") {
		t.Errorf("RunDir() = %q, missing expected components", dir)
	}
}
