// Package quality scores visual and audio quality over a bounded sample of
// the video. Full-length analysis is deliberately avoided for latency.
package quality

import (
	"context"
	"image"
	"time"

	"videomod/internal/pkg/detector"
	"videomod/internal/pkg/hash"

	"github.com/go-kratos/kratos/v2/log"
)

// ProbeInfo is the container-level metadata of a video.
type ProbeInfo struct {
	Duration time.Duration
	Width    int
	Height   int
}

// Sampler is the external media-decoding collaborator.
type Sampler interface {
	Probe(ctx context.Context, videoPath string) (*ProbeInfo, error)
	// SampleFrame decodes one frame at the given offset.
	SampleFrame(ctx context.Context, videoPath string, at time.Duration) (image.Image, error)
	// SampleAudio decodes the first window of the audio track to mono PCM,
	// returning the samples and their rate.
	SampleAudio(ctx context.Context, videoPath string, window time.Duration) ([]int16, int, error)
}

// ReportSink persists quality reports for later inspection. Persistence is
// best-effort; a sink failure never fails the assessment.
type ReportSink interface {
	SaveQualityReport(ctx context.Context, contentID string, report *detector.QualityReport) error
}

// Config holds configuration for quality assessment.
type Config struct {
	SampleWindow     time.Duration // bounded clip analyzed from the start
	PeakWeight       float64       // audio: weight of peak amplitude
	NonSilenceWeight float64       // audio: weight of non-silence ratio
	SilenceFloor     int16         // amplitude at or below which a sample is silence
	SharpnessNorm    float64       // Laplacian variance mapped to score 1.0
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		SampleWindow:     20 * time.Second,
		PeakWeight:       0.7,
		NonSilenceWeight: 0.3,
		SilenceFloor:     512,
		SharpnessNorm:    900,
	}
}

// Service assesses video/audio quality. It implements detector.Detector.
type Service struct {
	sampler Sampler
	sink    ReportSink // nil disables persistence
	config  Config
	log     *log.Helper
}

// NewService creates a quality service. sink may be nil.
func NewService(sampler Sampler, sink ReportSink, config Config, logger log.Logger) *Service {
	return &Service{
		sampler: sampler,
		sink:    sink,
		config:  config,
		log:     log.NewHelper(logger),
	}
}

func (s *Service) Kind() detector.Kind { return detector.KindQuality }

// Evaluate satisfies detector.Detector.
func (s *Service) Evaluate(ctx context.Context, videoPath string) (*detector.Result, error) {
	report, err := s.AssessQuality(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	return &detector.Result{Kind: detector.KindQuality, Quality: report}, nil
}

// AssessQuality samples a bounded clip and scores it. The visual score comes
// from the sharpness of the sample's midpoint frame; the audio score from
// peak amplitude and silence ratio of the sample's audio track.
func (s *Service) AssessQuality(ctx context.Context, videoPath string) (*detector.QualityReport, error) {
	info, err := s.sampler.Probe(ctx, videoPath)
	if err != nil {
		return nil, detector.Errorf(detector.ErrDecode, "failed to probe video: %v", err)
	}

	window := s.config.SampleWindow
	if info.Duration > 0 && info.Duration < window {
		window = info.Duration
	}

	frame, err := s.sampler.SampleFrame(ctx, videoPath, window/2)
	if err != nil {
		return nil, detector.Errorf(detector.ErrDecode, "failed to sample frame: %v", err)
	}
	videoScore := SharpnessScore(frame, s.config.SharpnessNorm)

	samples, _, err := s.sampler.SampleAudio(ctx, videoPath, window)
	if err != nil {
		return nil, detector.Errorf(detector.ErrDecode, "failed to sample audio: %v", err)
	}
	audioScore := s.AudioScore(samples)

	report := &detector.QualityReport{VideoScore: videoScore, AudioScore: audioScore}

	if s.sink != nil {
		// Log-and-continue: report persistence must not fail the assessment.
		contentID := hash.ContentID(videoPath)
		if err := s.sink.SaveQualityReport(ctx, contentID, report); err != nil {
			s.log.Warnf("failed to persist quality report for %s: %v", contentID, err)
		}
	}
	return report, nil
}

// SharpnessScore scores a frame's sharpness/contrast by the variance of its
// Laplacian response, clipped into [0,1] against norm.
func SharpnessScore(img image.Image, norm float64) float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 3 || h < 3 || norm <= 0 {
		return 0
	}

	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// Rec. 601 luma, 16-bit channels.
			gray[y*w+x] = (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257.0
		}
	}

	var sum, sumSq float64
	n := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			lap := 4*gray[y*w+x] - gray[y*w+x-1] - gray[y*w+x+1] - gray[(y-1)*w+x] - gray[(y+1)*w+x]
			sum += lap
			sumSq += lap * lap
			n++
		}
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean

	return clamp01(variance / norm)
}

// AudioScore combines peak amplitude and non-silence ratio with the
// configured weights.
func (s *Service) AudioScore(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}

	peak := 0
	loud := 0
	floor := int(s.config.SilenceFloor)
	for _, sample := range samples {
		amp := int(sample)
		if amp < 0 {
			amp = -amp
		}
		if amp > peak {
			peak = amp
		}
		if amp > floor {
			loud++
		}
	}

	peakScore := float64(peak) / 32768.0
	nonSilence := float64(loud) / float64(len(samples))
	return clamp01(s.config.PeakWeight*peakScore + s.config.NonSilenceWeight*nonSilence)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
