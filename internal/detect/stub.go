package detect

import (
	"context"

	"gocv.io/x/gocv"
)

// StubAdapter is a fixed-response Adapter used by tests and by callers that
// want to exercise the pipeline without a real model runtime wired in.
type StubAdapter struct {
	Detections []Detection
	Err        error
}

func (s *StubAdapter) Infer(ctx context.Context, frame gocv.Mat) ([]Detection, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]Detection, len(s.Detections))
	copy(out, s.Detections)
	return out, nil
}
