package engine

import (
	"os"
	"strconv"
)

// EnvOverrides holds the process-start environment knobs from spec.md §6.
// A nil field means "not set"; the caller keeps the config-file value.
type EnvOverrides struct {
	InferEveryNFrames          *int
	MaxInferenceSeconds        *float64
	LoopFileInput              *bool
	RTSPAutoRecover            *bool
	RTSPRecoverCooldownSeconds *float64
	RTSPDropWarnSeconds        *float64
	ReIDEnabled                *bool
	ReIDSimilarityThresh       *float64
	ReIDMomentum               *float64
	BBoxSmoothing              *bool
}

// ParseEnvOverrides reads the YOI_* environment variables once, as
// spec.md §6 requires, ignoring any that are unset or malformed (a
// malformed override is not a config error; it simply has no effect).
func ParseEnvOverrides() EnvOverrides {
	return EnvOverrides{
		InferEveryNFrames:          envInt("YOI_INFER_EVERY_N_FRAMES"),
		MaxInferenceSeconds:        envFloat("YOI_MAX_INFERENCE_SECONDS"),
		LoopFileInput:              envBool("YOI_LOOP_FILE_INPUT"),
		RTSPAutoRecover:            envBool("YOI_RTSP_AUTO_RECOVER"),
		RTSPRecoverCooldownSeconds: envFloat("YOI_RTSP_RECOVER_COOLDOWN_SECONDS"),
		RTSPDropWarnSeconds:        envFloat("YOI_RTSP_DROP_WARN_SECONDS"),
		ReIDEnabled:                envBool("YOI_REID_ENABLED"),
		ReIDSimilarityThresh:       envFloat("YOI_REID_SIMILARITY_THRESH"),
		ReIDMomentum:               envFloat("YOI_REID_MOMENTUM"),
		BBoxSmoothing:              envBool("YOI_BBOX_SMOOTHING"),
	}
}

func envInt(name string) *int {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func envFloat(name string) *float64 {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

func envBool(name string) *bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}
