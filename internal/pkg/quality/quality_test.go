package quality

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"videomod/internal/pkg/detector"
)

type fakeSampler struct {
	frame   image.Image
	samples []int16
	probeErr error
}

func (f *fakeSampler) Probe(context.Context, string) (*ProbeInfo, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	return &ProbeInfo{Duration: 60 * time.Second, Width: 1920, Height: 1080}, nil
}

func (f *fakeSampler) SampleFrame(context.Context, string, time.Duration) (image.Image, error) {
	return f.frame, nil
}

func (f *fakeSampler) SampleAudio(context.Context, string, time.Duration) ([]int16, int, error) {
	return f.samples, 16000, nil
}

type failingSink struct{ calls int }

func (s *failingSink) SaveQualityReport(context.Context, string, *detector.QualityReport) error {
	s.calls++
	return errors.New("elasticsearch down")
}

func noisyFrame() image.Image {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	rng := rand.New(rand.NewSource(1))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(rng.Intn(256))})
		}
	}
	return img
}

func flatFrame() image.Image {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: 128})
		}
	}
	return img
}

func TestSharpnessScore_FlatVsNoisy(t *testing.T) {
	norm := DefaultConfig().SharpnessNorm
	flat := SharpnessScore(flatFrame(), norm)
	noisy := SharpnessScore(noisyFrame(), norm)

	if flat != 0 {
		t.Errorf("Expected 0 for flat frame, got %f", flat)
	}
	if noisy <= flat {
		t.Errorf("Expected noisy frame to outscore flat frame: %f vs %f", noisy, flat)
	}
	if noisy < 0 || noisy > 1 {
		t.Errorf("Score %f out of [0,1]", noisy)
	}
}

func TestAudioScore(t *testing.T) {
	svc := NewService(nil, nil, DefaultConfig(), log.DefaultLogger)

	if score := svc.AudioScore(nil); score != 0 {
		t.Errorf("Expected 0 for empty samples, got %f", score)
	}

	silent := make([]int16, 16000)
	if score := svc.AudioScore(silent); score != 0 {
		t.Errorf("Expected 0 for silence, got %f", score)
	}

	loud := make([]int16, 16000)
	for i := range loud {
		loud[i] = 30000
	}
	score := svc.AudioScore(loud)
	if score < 0.9 || score > 1 {
		t.Errorf("Expected near-1 score for loud audio, got %f", score)
	}

	half := make([]int16, 16000)
	for i := 0; i < len(half)/2; i++ {
		half[i] = 20000
	}
	mid := svc.AudioScore(half)
	if mid <= 0 || mid >= score {
		t.Errorf("Expected intermediate score, got %f (loud=%f)", mid, score)
	}
}

func TestAssessQuality_SinkFailureDoesNotFail(t *testing.T) {
	sink := &failingSink{}
	sampler := &fakeSampler{frame: noisyFrame(), samples: make([]int16, 100)}
	svc := NewService(sampler, sink, DefaultConfig(), log.DefaultLogger)

	report, err := svc.AssessQuality(context.Background(), "/videos/clip01.mp4")
	if err != nil {
		t.Fatalf("AssessQuality failed: %v", err)
	}
	if sink.calls != 1 {
		t.Errorf("Expected one sink call, got %d", sink.calls)
	}
	if report.VideoScore < 0 || report.VideoScore > 1 || report.AudioScore < 0 || report.AudioScore > 1 {
		t.Errorf("Scores out of range: %+v", report)
	}
}

func TestEvaluate_ProbeFailure(t *testing.T) {
	sampler := &fakeSampler{probeErr: errors.New("no such codec")}
	svc := NewService(sampler, nil, DefaultConfig(), log.DefaultLogger)

	_, err := svc.Evaluate(context.Background(), "/videos/clip01.mp4")
	if err == nil {
		t.Fatal("Expected error")
	}
	var de *detector.Error
	if !errors.As(err, &de) || de.Kind != detector.ErrDecode {
		t.Errorf("Expected DECODE error, got %v", err)
	}
}
