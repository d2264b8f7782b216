// Package sink persists alert events: a cropped JPEG snapshot, a JSON event
// record, a dashboard-status sidecar JSON, and one canonical CSV row per
// event, laid out the way the reference engine does under a run-scoped
// output directory.
package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

const csvHeader = "image_id,timestamp,feature,status,data_path,image_path\n"

// Layout names the fixed sub-directories under a run's output root.
type Layout struct {
	ImageFolder  string
	DataFolder   string
	StatusFolder string
	CSVFile      string
}

// DefaultLayout mirrors the reference engine's folder names.
func DefaultLayout() Layout {
	return Layout{ImageFolder: "image", DataFolder: "data", StatusFolder: "status", CSVFile: "data.csv"}
}

// EventRecord is one alert occurrence, persisted as JSON and as a CSV row.
type EventRecord struct {
	ImageID    string         `json:"image_id"`
	Timestamp  string         `json:"timestamp"`
	Feature    string         `json:"feature"`
	Status     string         `json:"status"`
	FrameIdx   int            `json:"frame_idx"`
	TrackID    int            `json:"track_id,omitempty"`
	ZoneID     string         `json:"zone_id,omitempty"`
	SourceName string         `json:"source_name,omitempty"`
	CCTVID     string         `json:"cctv_id,omitempty"`
	ImagePath  string         `json:"image_path"`
	DataPath   string         `json:"data_path"`
	Metrics    map[string]any `json:"metrics,omitempty"`
}

// statusRecord is the smaller sidecar a dashboard poller consumes.
type statusRecord struct {
	ImageID        string `json:"image_id"`
	Timestamp      string `json:"timestamp"`
	Feature        string `json:"feature"`
	Status         string `json:"status"`
	DataPath       string `json:"data_path"`
	ImagePath      string `json:"image_path"`
	SentToDashbrd  bool   `json:"sent_to_dashboard"`
	isRTSPDelivery bool
}

// Sink writes event artifacts under a single run's output directory.
type Sink struct {
	root      string
	imageDir  string
	dataDir   string
	statusDir string
	csvPath   string

	isRTSP  bool
	counter int
}

// RunDir computes the run-scoped output directory:
// {baseDir}/{configName}/{sourceStem}_{runTimestamp}-{shortID}.
// The trailing short id (derived from a random UUID) disambiguates two
// pipelines started for the same source within the same wall-clock second.
func RunDir(baseDir, configName, sourceStem, runTimestamp string) string {
	name := sourceStem
	if name == "" {
		name = runTimestamp
	} else {
		name = fmt.Sprintf("%s_%s", sourceStem, runTimestamp)
	}
	shortID := uuid.New().String()[:8]
	return filepath.Join(baseDir, configName, fmt.Sprintf("%s-%s", name, shortID))
}

// New creates the run directory tree and initializes the CSV with its
// canonical header, truncating any pre-existing file at that path.
func New(runDir string, layout Layout, isRTSP bool) (*Sink, error) {
	s := &Sink{
		root:      runDir,
		imageDir:  filepath.Join(runDir, layout.ImageFolder),
		dataDir:   filepath.Join(runDir, layout.DataFolder),
		statusDir: filepath.Join(runDir, layout.StatusFolder),
		csvPath:   filepath.Join(runDir, layout.CSVFile),
		isRTSP:    isRTSP,
	}

	for _, dir := range []string{s.imageDir, s.dataDir, s.statusDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create output directory %q", dir)
		}
	}

	if err := os.WriteFile(s.csvPath, []byte(csvHeader), 0o644); err != nil {
		return nil, errors.Wrapf(err, "initialize event csv %q", s.csvPath)
	}

	return s, nil
}

// EventMeta carries the Alert-derived fields spec.md §3's Event Record
// names beyond feature/frame/metrics: the track and zone the alert
// concerns, and the source identity it was observed on.
type EventMeta struct {
	TrackID    int
	ZoneID     string
	SourceName string
	CCTVID     string
}

// WriteEvent encodes crop as a JPEG, writes the JSON event record, writes a
// dashboard-status sidecar (RTSP sources only), and appends one CSV row. All
// failures are reported; callers treat them as transient I/O errors to log
// and continue.
func (s *Sink) WriteEvent(crop gocv.Mat, feature, alertKind string, frameIdx int, timestamp string, meta EventMeta, metrics map[string]any) error {
	s.counter++
	imageID := fmt.Sprintf("%06d_%04d_%s_%s", frameIdx, s.counter, feature, alertKind)
	status := alertKind

	imageRel := filepath.Join("image", imageID+".jpg")
	dataRel := filepath.Join("data", imageID+".json")

	buf, err := gocv.IMEncode(".jpg", crop)
	if err != nil {
		return errors.Wrapf(err, "encode event crop for %q", imageID)
	}
	if err := os.WriteFile(filepath.Join(s.imageDir, imageID+".jpg"), buf, 0o644); err != nil {
		return errors.Wrapf(err, "write event image for %q", imageID)
	}

	record := EventRecord{
		ImageID:    imageID,
		Timestamp:  timestamp,
		Feature:    feature,
		Status:     status,
		FrameIdx:   frameIdx,
		TrackID:    meta.TrackID,
		ZoneID:     meta.ZoneID,
		SourceName: meta.SourceName,
		CCTVID:     meta.CCTVID,
		ImagePath:  imageRel,
		DataPath:   dataRel,
		Metrics:    metrics,
	}
	recordJSON, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "marshal event record for %q", imageID)
	}
	if err := os.WriteFile(filepath.Join(s.dataDir, imageID+".json"), recordJSON, 0o644); err != nil {
		return errors.Wrapf(err, "write event data for %q", imageID)
	}

	// The dashboard-status sidecar is only written for live (RTSP) sources,
	// per spec.md §4.6 item 5.
	if s.isRTSP {
		statusJSON, err := json.MarshalIndent(statusRecord{
			ImageID:       imageID,
			Timestamp:     timestamp,
			Feature:       feature,
			Status:        status,
			DataPath:      dataRel,
			ImagePath:     imageRel,
			SentToDashbrd: false,
		}, "", "  ")
		if err != nil {
			return errors.Wrapf(err, "marshal status record for %q", imageID)
		}
		if err := os.WriteFile(filepath.Join(s.statusDir, imageID+".json"), statusJSON, 0o644); err != nil {
			return errors.Wrapf(err, "write status record for %q", imageID)
		}
	}

	line := fmt.Sprintf("%s,%s,%s,%s,%s,%s\n", imageID, timestamp, feature, status, dataRel, imageRel)
	f, err := os.OpenFile(s.csvPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open event csv %q", s.csvPath)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return errors.Wrapf(err, "append event csv row for %q", imageID)
	}

	return nil
}

// EventCount reports how many events have been written, for the invariant
// that CSV rows, JSON files, and JPEG files all agree in count.
func (s *Sink) EventCount() int { return s.counter }

// Root returns the run's output directory.
func (s *Sink) Root() string { return s.root }
