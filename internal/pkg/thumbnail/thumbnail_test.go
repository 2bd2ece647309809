package thumbnail

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"videomod/internal/pkg/hash"
	"videomod/internal/pkg/quality"
)

type frameSampler struct {
	frames []image.Image
	next   int
}

func (s *frameSampler) Probe(context.Context, string) (*quality.ProbeInfo, error) {
	return &quality.ProbeInfo{Duration: 100 * time.Second, Width: 64, Height: 64}, nil
}

func (s *frameSampler) SampleFrame(context.Context, string, time.Duration) (image.Image, error) {
	if s.next >= len(s.frames) {
		return nil, errors.New("out of frames")
	}
	img := s.frames[s.next]
	s.next++
	return img, nil
}

func (s *frameSampler) SampleAudio(context.Context, string, time.Duration) ([]int16, int, error) {
	return nil, 0, errors.New("not implemented")
}

func grayFrame(v uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func noisyFrame(seed int64) image.Image {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	rng := rand.New(rand.NewSource(seed))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(rng.Intn(256))})
		}
	}
	return img
}

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()
	return cfg
}

func TestGenerate_PicksSharpestFrame(t *testing.T) {
	sampler := &frameSampler{frames: []image.Image{
		grayFrame(40), grayFrame(200), noisyFrame(1), grayFrame(90), grayFrame(160),
	}}
	g := NewGenerator(sampler, testConfig(t), log.DefaultLogger)

	out, err := g.Generate(context.Background(), "/videos/clip01.mp4")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if filepath.Base(out) != "clip01.jpg" {
		t.Errorf("Unexpected thumbnail name: %s", out)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("Thumbnail not written: %v", err)
	}
}

func TestGenerate_SurvivesPartialDecodeFailures(t *testing.T) {
	// Only two of the five offsets decode; the rest return errors.
	sampler := &frameSampler{frames: []image.Image{noisyFrame(2), grayFrame(10)}}
	g := NewGenerator(sampler, testConfig(t), log.DefaultLogger)

	if _, err := g.Generate(context.Background(), "/videos/clip02.mp4"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
}

func TestGenerate_NoDecodableFrames(t *testing.T) {
	sampler := &frameSampler{}
	g := NewGenerator(sampler, testConfig(t), log.DefaultLogger)

	if _, err := g.Generate(context.Background(), "/videos/clip03.mp4"); err == nil {
		t.Error("Expected error when no frame decodes")
	}
}

func TestPickBest_CollapsesDuplicates(t *testing.T) {
	g := NewGenerator(nil, testConfig(t), log.DefaultLogger)

	// Five visually identical frames must collapse to a single shot.
	sampler := &frameSampler{frames: []image.Image{
		grayFrame(128), grayFrame(128), grayFrame(128), grayFrame(128), grayFrame(128),
	}}
	var candidates []candidate
	for range sampler.frames {
		img, _ := sampler.SampleFrame(context.Background(), "", 0)
		ph, err := hash.ComputeFrameHash(img)
		if err != nil {
			t.Fatalf("hash failed: %v", err)
		}
		candidates = append(candidates, candidate{img: img, phash: ph})
	}

	best := g.pickBest(candidates)
	if best.img == nil {
		t.Fatal("Expected a winning candidate")
	}
}
