package detector

import (
	"context"
	"strconv"

	"github.com/go-kratos/kratos/v2/log"
)

// ObjectDetector calls the object/logo detection model server, which samples
// one frame per second and runs detection on each.
type ObjectDetector struct {
	client *modelClient
}

// NewObjectDetector creates an object detection client.
func NewObjectDetector(config ClientConfig, logger log.Logger) *ObjectDetector {
	return &ObjectDetector{client: newModelClient(config, logger)}
}

func (d *ObjectDetector) Kind() Kind { return KindObjects }

type detectResponse struct {
	// Detections are keyed by sampled second offset.
	Detections map[string][]struct {
		ClassID    int32   `json:"class_id"`
		ClassName  string  `json:"class_name"`
		Confidence float64 `json:"confidence"`
		Box        struct {
			X      float64 `json:"x"`
			Y      float64 `json:"y"`
			Width  float64 `json:"width"`
			Height float64 `json:"height"`
		} `json:"box"`
	} `json:"detections"`
}

// Evaluate runs per-second object detection over the video.
func (d *ObjectDetector) Evaluate(ctx context.Context, videoPath string) (*Result, error) {
	var resp detectResponse
	req := map[string]string{"video_path": videoPath}
	if err := d.client.postJSON(ctx, videoPath, "/v1/detect", req, &resp); err != nil {
		return nil, err
	}

	report := &ObjectReport{BySecond: make(map[int][]ObjectMatch, len(resp.Detections))}
	for secStr, raw := range resp.Detections {
		sec, err := strconv.Atoi(secStr)
		if err != nil {
			return nil, Errorf(ErrDecode, "bad second offset %q in detection response", secStr)
		}
		matches := make([]ObjectMatch, len(raw))
		for i, m := range raw {
			matches[i] = ObjectMatch{
				ClassID:    m.ClassID,
				ClassName:  m.ClassName,
				Confidence: m.Confidence,
				Box: BoundingBox{
					X:      m.Box.X,
					Y:      m.Box.Y,
					Width:  m.Box.Width,
					Height: m.Box.Height,
				},
			}
		}
		report.BySecond[sec] = matches
	}

	return &Result{Kind: KindObjects, Objects: report}, nil
}
