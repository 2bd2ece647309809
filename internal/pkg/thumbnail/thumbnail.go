// Package thumbnail picks a representative frame for an approved video and
// writes it out as a JPEG.
package thumbnail

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"videomod/internal/pkg/hash"
	"videomod/internal/pkg/quality"

	"github.com/go-kratos/kratos/v2/log"
)

// Config holds configuration for thumbnail generation.
type Config struct {
	OutputDir string
	// Offsets are the fractions of the duration at which candidate frames
	// are sampled.
	Offsets []float64
	// JPEGQuality is passed straight to the JPEG encoder.
	JPEGQuality int
	// DedupeDistance is the pHash Hamming distance at or below which two
	// candidates count as the same shot.
	DedupeDistance int
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		OutputDir:      "/tmp/thumbnails",
		Offsets:        []float64{0.1, 0.25, 0.5, 0.75, 0.9},
		JPEGQuality:    85,
		DedupeDistance: 8,
	}
}

// Generator samples candidate frames and keeps the sharpest distinct one.
type Generator struct {
	sampler quality.Sampler
	config  Config
	log     *log.Helper
}

// NewGenerator creates a thumbnail generator.
func NewGenerator(sampler quality.Sampler, config Config, logger log.Logger) *Generator {
	return &Generator{
		sampler: sampler,
		config:  config,
		log:     log.NewHelper(logger),
	}
}

type candidate struct {
	img       image.Image
	sharpness float64
	phash     *hash.FrameHash
}

// Generate writes a thumbnail for videoPath and returns the output path.
// Candidates are sampled at the configured duration fractions, near-duplicate
// shots are collapsed by perceptual hash, and the sharpest survivor wins.
func (g *Generator) Generate(ctx context.Context, videoPath string) (string, error) {
	info, err := g.sampler.Probe(ctx, videoPath)
	if err != nil {
		return "", fmt.Errorf("failed to probe video: %w", err)
	}
	if info.Duration <= 0 {
		return "", fmt.Errorf("video %s has no duration", videoPath)
	}

	var candidates []candidate
	for _, offset := range g.config.Offsets {
		at := time.Duration(offset * float64(info.Duration))
		img, err := g.sampler.SampleFrame(ctx, videoPath, at)
		if err != nil {
			g.log.Warnf("failed to sample frame at %s: %v", at, err)
			continue
		}
		ph, err := hash.ComputeFrameHash(img)
		if err != nil {
			g.log.Warnf("failed to hash frame at %s: %v", at, err)
			continue
		}
		candidates = append(candidates, candidate{
			img:       img,
			sharpness: quality.SharpnessScore(img, quality.DefaultConfig().SharpnessNorm),
			phash:     ph,
		})
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no decodable frames in %s", videoPath)
	}

	best := g.pickBest(candidates)
	return g.write(videoPath, best.img)
}

// pickBest collapses near-duplicate candidates and returns the sharpest of
// the remaining ones.
func (g *Generator) pickBest(candidates []candidate) candidate {
	var kept []candidate
	for _, c := range candidates {
		dup := false
		for i, k := range kept {
			if hash.IsNearDuplicate(c.phash, k.phash, g.config.DedupeDistance) {
				if c.sharpness > k.sharpness {
					kept[i] = c
				}
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, c)
		}
	}

	best := kept[0]
	for _, c := range kept[1:] {
		if c.sharpness > best.sharpness {
			best = c
		}
	}
	return best
}

func (g *Generator) write(videoPath string, img image.Image) (string, error) {
	if err := os.MkdirAll(g.config.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	outPath := filepath.Join(g.config.OutputDir, hash.ContentID(videoPath)+".jpg")

	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: g.config.JPEGQuality}); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return outPath, nil
}
