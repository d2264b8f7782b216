// Package config decodes and validates the on-disk YAML configuration that
// drives one pipeline: model, input source, the active feature and its
// zones, and output/log destinations.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/hafizalfariz/yoi-engine-go/internal/geometry"
)

// Device selects the inference device a model was built for.
type Device string

const (
	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
	DeviceMPS  Device = "mps"
)

// FeatureType names the single active feature a pipeline evaluates.
type FeatureType string

const (
	FeatureLineCross   FeatureType = "line_cross"
	FeatureRegionCrowd FeatureType = "region_crowd"
	FeatureDwellTime   FeatureType = "dwell_time"
)

// SourceType selects how frames are acquired.
type SourceType string

const (
	SourceVideo SourceType = "video"
	SourceRTSP  SourceType = "rtsp"
)

type ModelConfig struct {
	Name    string   `yaml:"name"`
	Device  Device   `yaml:"device"`
	Conf    float64  `yaml:"conf"`
	IoU     float64  `yaml:"iou"`
	Type    string   `yaml:"type"`
	Classes []string `yaml:"classes"`
}

type TimeWindow struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type InputConfig struct {
	SourceType  SourceType  `yaml:"source_type"`
	Source      string      `yaml:"source"`
	VideoFiles  []string    `yaml:"video_files"`
	MaxFPS      float64     `yaml:"max_fps"`
	TimeAllowed *TimeWindow `yaml:"time_allowed"`
	// FrameSequenceDir, when set, selects the supplemented frame-sequence
	// sidecar source: the directory holds a required seqinfo.ini metadata
	// file plus the numbered frame images it describes.
	FrameSequenceDir string `yaml:"frame_sequence_dir"`
}

// CoordPoint is a single normalized [0,1]^2 vertex as it appears on disk.
type CoordPoint struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

func (c CoordPoint) toGeometry() geometry.Point { return geometry.Point{X: c.X, Y: c.Y} }

type LineZone struct {
	ID            string               `yaml:"id"`
	Coords        []CoordPoint         `yaml:"coords"`
	Orientation   geometry.Orientation `yaml:"orientation"`
	Direction     geometry.Direction   `yaml:"direction"`
	Bidirectional bool                 `yaml:"bidirectional"`
}

// Start and End return the line's two endpoints as geometry.Point.
func (l LineZone) Start() geometry.Point { return l.Coords[0].toGeometry() }
func (l LineZone) End() geometry.Point   { return l.Coords[1].toGeometry() }

type RegionZone struct {
	ID   string       `yaml:"id"`
	Name string       `yaml:"name"`
	Coords []CoordPoint `yaml:"coords"`
}

// Polygon returns the region's vertices as geometry.Point.
func (r RegionZone) Polygon() []geometry.Point {
	pts := make([]geometry.Point, len(r.Coords))
	for i, c := range r.Coords {
		pts[i] = c.toGeometry()
	}
	return pts
}

type GeometryConfig struct {
	Lines   []LineZone   `yaml:"lines"`
	Regions []RegionZone `yaml:"regions"`
}

// LineCrossParams holds feature-specific tunables for the line-cross feature.
type LineCrossParams struct {
	Centroid          geometry.CentroidMode `yaml:"centroid"`
	AllowRecounting   bool                  `yaml:"allow_recounting"`
	MaxPositionJump   float64               `yaml:"max_position_jump"`
	LostThreshold     int                   `yaml:"lost_threshold"`
	InWarningThresh   int                   `yaml:"in_warning_threshold"`
	OutWarningThresh  int                   `yaml:"out_warning_threshold"`
}

// RegionCrowdParams holds feature-specific tunables for the region-crowd feature.
type RegionCrowdParams struct {
	Centroid          geometry.CentroidMode `yaml:"centroid"`
	WarningThreshold  int                   `yaml:"warning_threshold"`
	CriticalThreshold int                   `yaml:"critical_threshold"`
	AlertThreshold    int                   `yaml:"alert_threshold"`
	CooldownSeconds   float64               `yaml:"cooldown_seconds"`
}

// DwellTimeParams holds feature-specific tunables for the dwell-time feature.
type DwellTimeParams struct {
	Centroid             geometry.CentroidMode `yaml:"centroid"`
	AlertThresholdSeconds float64              `yaml:"alert_threshold_seconds"`
	MinDwellSeconds       float64              `yaml:"min_dwell_seconds"`
}

type FeatureConfig struct {
	Type        FeatureType        `yaml:"type"`
	LineCross   *LineCrossParams   `yaml:"line_cross"`
	RegionCrowd *RegionCrowdParams `yaml:"region_crowd"`
	DwellTime   *DwellTimeParams   `yaml:"dwell_time"`
}

type TrackingConfig struct {
	MaxLostFrames  int     `yaml:"max_lost_frames"`
	MaxDistance    float64 `yaml:"max_distance"`
	TrackerImpl    string  `yaml:"tracker_impl"` // "bytetrack" or "centroid"
	HighThresh     float64 `yaml:"bt_track_high_thresh"`
	LowThresh      float64 `yaml:"bt_track_low_thresh"`
	NewTrackThresh float64 `yaml:"bt_new_track_thresh"`
	MatchThresh    float64 `yaml:"bt_match_thresh"`
	TrackBuffer    int     `yaml:"bt_track_buffer"`
	FuseScore      bool    `yaml:"bt_fuse_score"`
	ReIDEnabled    bool    `yaml:"reid_enabled"`
	ReIDSimilarity float64 `yaml:"reid_similarity_thresh"`
	ReIDMomentum   float64 `yaml:"reid_momentum"`
}

type OutputConfig struct {
	SaveVideo           bool    `yaml:"save_video"`
	SaveAnnotations     bool    `yaml:"save_annotations"`
	RTSPURL             string  `yaml:"rtsp_url"`
	RTSPCooldownSeconds float64 `yaml:"rtsp_cooldown_seconds"`
	LogEveryNFrames     int     `yaml:"log_every_n_frames"`
}

type LogsConfig struct {
	BaseDir      string `yaml:"base_dir"`
	DataFolder   string `yaml:"data_folder"`
	ImageFolder  string `yaml:"image_folder"`
	StatusFolder string `yaml:"status_folder"`
	CSVFile      string `yaml:"csv_file"`
}

// Config is the full on-disk configuration for one pipeline.
type Config struct {
	Name     string         `yaml:"name"`
	Model    ModelConfig    `yaml:"model"`
	Input    InputConfig    `yaml:"input"`
	Feature  FeatureConfig  `yaml:"feature"`
	Geometry GeometryConfig `yaml:"geometry"`
	Tracking TrackingConfig `yaml:"tracking"`
	Output   OutputConfig   `yaml:"output"`
	Logs     LogsConfig     `yaml:"logs"`
}

// Load reads, parses, and validates the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file %q", path)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %q", path)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Logs.DataFolder == "" {
		cfg.Logs.DataFolder = "data"
	}
	if cfg.Logs.ImageFolder == "" {
		cfg.Logs.ImageFolder = "image"
	}
	if cfg.Logs.StatusFolder == "" {
		cfg.Logs.StatusFolder = "status"
	}
	if cfg.Logs.CSVFile == "" {
		cfg.Logs.CSVFile = "data.csv"
	}
	if cfg.Tracking.TrackerImpl == "" {
		cfg.Tracking.TrackerImpl = "bytetrack"
	}
}

// Validate checks the config-error taxonomy named for the engine: invalid
// geometry, unknown feature, and malformed threshold ordering. All of these
// are fatal at startup.
func (c *Config) Validate() error {
	switch c.Feature.Type {
	case FeatureLineCross:
		if len(c.Geometry.Lines) == 0 {
			return errors.New("config: line_cross feature requires at least one geometry line")
		}
	case FeatureRegionCrowd, FeatureDwellTime:
		if len(c.Geometry.Regions) == 0 {
			return errors.Errorf("config: %s feature requires at least one geometry region", c.Feature.Type)
		}
	default:
		return errors.Errorf("config: unknown feature type %q", c.Feature.Type)
	}

	for _, l := range c.Geometry.Lines {
		if len(l.Coords) != 2 {
			return errors.Errorf("config: line %q must have exactly 2 coordinates, got %d", l.ID, len(l.Coords))
		}
	}
	for _, r := range c.Geometry.Regions {
		if len(r.Coords) < 3 {
			return errors.Errorf("config: region %q must have at least 3 coordinates, got %d", r.ID, len(r.Coords))
		}
	}

	if c.Feature.Type == FeatureRegionCrowd && c.Feature.RegionCrowd != nil {
		p := c.Feature.RegionCrowd
		if p.CriticalThreshold < p.WarningThreshold {
			return errors.New("config: region_crowd critical_threshold must be >= warning_threshold")
		}
	}

	switch c.Model.Device {
	case DeviceCPU, DeviceCUDA, DeviceMPS, "":
	default:
		return errors.Errorf("config: unknown model device %q", c.Model.Device)
	}

	return nil
}
