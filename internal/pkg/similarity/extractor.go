package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Extractor is the external feature-extraction collaborator. The numerical
// method behind each vector is not part of this design; only the fixed
// lengths matter.
type Extractor interface {
	ExtractVisual(ctx context.Context, videoPath string) ([]float32, error)
	ExtractAudio(ctx context.Context, videoPath string) ([]float32, error)
}

// ExtractorConfig holds configuration for the embedding model server.
type ExtractorConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultExtractorConfig returns default configuration.
func DefaultExtractorConfig(baseURL string) ExtractorConfig {
	return ExtractorConfig{
		BaseURL: baseURL,
		Timeout: 60 * time.Second,
	}
}

// HTTPExtractor calls an embedding model server for visual and audio
// features.
type HTTPExtractor struct {
	config     ExtractorConfig
	httpClient *http.Client
}

// NewHTTPExtractor creates an extractor client.
func NewHTTPExtractor(config ExtractorConfig) *HTTPExtractor {
	return &HTTPExtractor{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

func (e *HTTPExtractor) ExtractVisual(ctx context.Context, videoPath string) ([]float32, error) {
	return e.embed(ctx, "/v1/embed/visual", videoPath)
}

func (e *HTTPExtractor) ExtractAudio(ctx context.Context, videoPath string) ([]float32, error) {
	return e.embed(ctx, "/v1/embed/audio", videoPath)
}

func (e *HTTPExtractor) embed(ctx context.Context, endpoint, videoPath string) ([]float32, error) {
	payload, err := json.Marshal(map[string]string{"video_path": videoPath})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.BaseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding server status %d: %s", resp.StatusCode, body)
	}

	var out struct {
		Features []float32 `json:"features"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(out.Features) == 0 {
		return nil, fmt.Errorf("embedding server returned no features")
	}
	return out.Features, nil
}

// Extract pulls visual and audio features concurrently and assembles the
// FeatureVector for videoPath.
func Extract(ctx context.Context, ex Extractor, videoPath string) (*FeatureVector, error) {
	fv := &FeatureVector{
		Metadata: Metadata{SourcePath: videoPath, ExtractedAt: time.Now().UTC()},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		visual, err := ex.ExtractVisual(gctx, videoPath)
		if err != nil {
			return fmt.Errorf("visual feature extraction: %w", err)
		}
		fv.Visual = visual
		return nil
	})
	g.Go(func() error {
		audio, err := ex.ExtractAudio(gctx, videoPath)
		if err != nil {
			return fmt.Errorf("audio feature extraction: %w", err)
		}
		fv.Audio = audio
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fv, nil
}
