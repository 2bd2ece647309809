// Package content runs the platform business-rule checks on a video:
// duration limits and allowed aspect ratios.
package content

import (
	"context"
	"math"
	"time"

	"videomod/internal/pkg/detector"
	"videomod/internal/pkg/quality"

	"github.com/go-kratos/kratos/v2/log"
)

// AspectRatio is an allowed width:height ratio.
type AspectRatio struct {
	Width  int
	Height int
}

func (a AspectRatio) value() float64 {
	return float64(a.Width) / float64(a.Height)
}

// Config holds the business rules.
type Config struct {
	MinDuration     time.Duration
	MaxDuration     time.Duration
	AllowedRatios   []AspectRatio
	RatioTolerance  float64 // relative tolerance when matching ratios
}

// DefaultConfig returns the default platform rules.
func DefaultConfig() Config {
	return Config{
		MinDuration: 3 * time.Second,
		MaxDuration: 15 * time.Minute,
		AllowedRatios: []AspectRatio{
			{16, 9}, {9, 16}, {4, 3}, {1, 1},
		},
		RatioTolerance: 0.03,
	}
}

// Checker implements detector.Detector for the business-rule checks.
type Checker struct {
	sampler quality.Sampler
	config  Config
	log     *log.Helper
}

// NewChecker creates a business-rule checker.
func NewChecker(sampler quality.Sampler, config Config, logger log.Logger) *Checker {
	return &Checker{
		sampler: sampler,
		config:  config,
		log:     log.NewHelper(logger),
	}
}

func (c *Checker) Kind() detector.Kind { return detector.KindContent }

// Evaluate probes the container and applies the rules. Rule violations are
// reported in the result, not as errors; only unreadable media fails.
func (c *Checker) Evaluate(ctx context.Context, videoPath string) (*detector.Result, error) {
	info, err := c.sampler.Probe(ctx, videoPath)
	if err != nil {
		return nil, detector.Errorf(detector.ErrDecode, "failed to probe video: %v", err)
	}

	report := &detector.ContentReport{
		DurationSeconds: info.Duration.Seconds(),
		Width:           info.Width,
		Height:          info.Height,
		DurationOK:      info.Duration >= c.config.MinDuration && info.Duration <= c.config.MaxDuration,
		AspectOK:        c.aspectAllowed(info.Width, info.Height),
	}
	return &detector.Result{Kind: detector.KindContent, Content: report}, nil
}

func (c *Checker) aspectAllowed(width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	ratio := float64(width) / float64(height)
	for _, allowed := range c.config.AllowedRatios {
		want := allowed.value()
		if math.Abs(ratio-want)/want <= c.config.RatioTolerance {
			return true
		}
	}
	return false
}
