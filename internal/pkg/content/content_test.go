package content

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"videomod/internal/pkg/quality"
)

type stubSampler struct {
	info *quality.ProbeInfo
	err  error
}

func (s *stubSampler) Probe(context.Context, string) (*quality.ProbeInfo, error) {
	return s.info, s.err
}

func (s *stubSampler) SampleFrame(context.Context, string, time.Duration) (image.Image, error) {
	return nil, errors.New("not implemented")
}

func (s *stubSampler) SampleAudio(context.Context, string, time.Duration) ([]int16, int, error) {
	return nil, 0, errors.New("not implemented")
}

func TestChecker_AllRulesPass(t *testing.T) {
	sampler := &stubSampler{info: &quality.ProbeInfo{
		Duration: time.Minute, Width: 1920, Height: 1080,
	}}
	c := NewChecker(sampler, DefaultConfig(), log.DefaultLogger)

	res, err := c.Evaluate(context.Background(), "/videos/clip01.mp4")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !res.Content.DurationOK {
		t.Error("Expected duration to pass")
	}
	if !res.Content.AspectOK {
		t.Error("Expected 16:9 to be allowed")
	}
}

func TestChecker_TooShort(t *testing.T) {
	sampler := &stubSampler{info: &quality.ProbeInfo{
		Duration: time.Second, Width: 1920, Height: 1080,
	}}
	c := NewChecker(sampler, DefaultConfig(), log.DefaultLogger)

	res, err := c.Evaluate(context.Background(), "/videos/blip.mp4")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.Content.DurationOK {
		t.Error("Expected 1s video to violate the minimum duration")
	}
}

func TestChecker_OddAspect(t *testing.T) {
	sampler := &stubSampler{info: &quality.ProbeInfo{
		Duration: time.Minute, Width: 1000, Height: 300,
	}}
	c := NewChecker(sampler, DefaultConfig(), log.DefaultLogger)

	res, err := c.Evaluate(context.Background(), "/videos/banner.mp4")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.Content.AspectOK {
		t.Error("Expected 10:3 to be rejected")
	}
}

func TestChecker_ProbeFailure(t *testing.T) {
	sampler := &stubSampler{err: errors.New("corrupt container")}
	c := NewChecker(sampler, DefaultConfig(), log.DefaultLogger)

	if _, err := c.Evaluate(context.Background(), "/videos/bad.mp4"); err == nil {
		t.Error("Expected error for unreadable media")
	}
}
