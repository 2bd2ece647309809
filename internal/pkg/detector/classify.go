package detector

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
)

// Classifier calls the explicit-content classification model server. The
// server consumes a shared-volume video path and returns a SAFE/UNSAFE label
// with a confidence score.
type Classifier struct {
	client *modelClient
}

// NewClassifier creates a classification detector.
func NewClassifier(config ClientConfig, logger log.Logger) *Classifier {
	return &Classifier{client: newModelClient(config, logger)}
}

func (c *Classifier) Kind() Kind { return KindClassification }

type classifyResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Evaluate classifies the whole video.
func (c *Classifier) Evaluate(ctx context.Context, videoPath string) (*Result, error) {
	var resp classifyResponse
	req := map[string]string{"video_path": videoPath}
	if err := c.client.postJSON(ctx, videoPath, "/v1/classify", req, &resp); err != nil {
		return nil, err
	}

	label := Label(resp.Label)
	if label != LabelSafe && label != LabelUnsafe {
		return nil, Errorf(ErrDecode, "unexpected classification label %q", resp.Label)
	}
	if resp.Confidence < 0 || resp.Confidence > 1 {
		return nil, Errorf(ErrDecode, "confidence %f out of range", resp.Confidence)
	}

	return &Result{
		Kind: KindClassification,
		Classification: &Classification{
			Label:      label,
			Confidence: resp.Confidence,
		},
	}, nil
}
