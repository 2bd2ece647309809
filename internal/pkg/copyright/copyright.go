// Package copyright combines two infringement signals: nearest-neighbor
// search over feature vectors of known content, and brand-logo detection.
package copyright

import (
	"context"
	"errors"
	"strings"

	"videomod/internal/pkg/detector"
	"videomod/internal/pkg/hash"
	"videomod/internal/pkg/similarity"

	"github.com/go-kratos/kratos/v2/log"
)

// Config holds configuration for the copyright check.
type Config struct {
	// SimilarityThreshold is the cosine similarity at or above which a hit
	// counts as a match.
	SimilarityThreshold float64
	// TopK bounds the nearest-neighbor search.
	TopK int
	// IndexPath is where the index artifact is persisted.
	IndexPath string
	// RestrictedLogos are the logo class names that flag a video. Matching
	// is case-insensitive.
	RestrictedLogos []string
	// LogoConfidence is the minimum detection confidence for a logo hit.
	LogoConfidence float64
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.8,
		TopK:                10,
		IndexPath:           "/var/lib/videomod/similarity.index",
		RestrictedLogos:     []string{"netflix", "hbo", "disney", "prime_video"},
		LogoConfidence:      0.6,
	}
}

// Service runs the copyright check. It implements detector.Detector.
type Service struct {
	extractor similarity.Extractor
	store     similarity.FeatureStore
	index     *similarity.Index
	logos     detector.Detector // object detector; nil disables logo scanning
	config    Config
	logoSet   map[string]struct{}
	log       *log.Helper
}

// NewService creates a copyright service. logos may be nil.
func NewService(
	extractor similarity.Extractor,
	store similarity.FeatureStore,
	index *similarity.Index,
	logos detector.Detector,
	config Config,
	logger log.Logger,
) *Service {
	logoSet := make(map[string]struct{}, len(config.RestrictedLogos))
	for _, name := range config.RestrictedLogos {
		logoSet[strings.ToLower(name)] = struct{}{}
	}
	return &Service{
		extractor: extractor,
		store:     store,
		index:     index,
		logos:     logos,
		config:    config,
		logoSet:   logoSet,
		log:       log.NewHelper(logger),
	}
}

func (s *Service) Kind() detector.Kind { return detector.KindCopyright }

// Evaluate extracts the video's features, searches the index of known
// content, and scans for restricted logos. The freshly extracted vector is
// persisted and added to the index after the search so a video never matches
// itself. Logo scanning degrades to empty on failure; similarity is the
// primary signal and its failure fails the check.
func (s *Service) Evaluate(ctx context.Context, videoPath string) (*detector.Result, error) {
	contentID := hash.ContentID(videoPath)

	fv, err := similarity.Extract(ctx, s.extractor, videoPath)
	if err != nil {
		return nil, detector.Errorf(detector.ErrModelLoad, "feature extraction for %s: %v", contentID, err)
	}

	combined := fv.Combined()
	matches, err := s.index.Search(combined, s.config.TopK)
	if err != nil {
		if errors.Is(err, similarity.ErrDimensionMismatch) {
			return nil, detector.Errorf(detector.ErrDimensionMismatch, "search for %s: %v", contentID, err)
		}
		return nil, detector.Errorf(detector.ErrStorageRead, "search for %s: %v", contentID, err)
	}

	report := &detector.CopyrightReport{
		SimilarMatches: []detector.SimilarMatch{},
		DetectedLogos:  []detector.ObjectMatch{},
	}
	for _, m := range matches {
		if m.ContentID == contentID || m.Score < s.config.SimilarityThreshold {
			continue
		}
		report.SimilarMatches = append(report.SimilarMatches, detector.SimilarMatch{
			ContentID: m.ContentID,
			Score:     m.Score,
		})
	}

	s.register(ctx, contentID, fv, combined)
	report.DetectedLogos = s.scanLogos(ctx, videoPath)

	return &detector.Result{Kind: detector.KindCopyright, Copyright: report}, nil
}

// register persists the vector and makes it searchable for later videos.
// Both writes are log-and-continue: a write failure must not reverse the
// verdict the search already produced.
func (s *Service) register(ctx context.Context, contentID string, fv *similarity.FeatureVector, combined []float32) {
	if err := s.store.Save(ctx, contentID, fv); err != nil {
		s.log.Warnf("failed to persist feature vector for %s: %v", contentID, err)
	}
	if err := s.index.Add(contentID, combined); err != nil {
		s.log.Warnf("failed to index feature vector for %s: %v", contentID, err)
	}
}

func (s *Service) scanLogos(ctx context.Context, videoPath string) []detector.ObjectMatch {
	if s.logos == nil {
		return []detector.ObjectMatch{}
	}
	res, err := s.logos.Evaluate(ctx, videoPath)
	if err != nil {
		s.log.Warnf("logo scan failed for %s: %v", videoPath, err)
		return []detector.ObjectMatch{}
	}

	hits := []detector.ObjectMatch{}
	for _, m := range res.Objects.Matches() {
		if m.Confidence < s.config.LogoConfidence {
			continue
		}
		if _, ok := s.logoSet[strings.ToLower(m.ClassName)]; ok {
			hits = append(hits, m)
		}
	}
	return hits
}

// RebuildIndex reloads every stored vector, rebuilds the index from scratch,
// and persists the artifact. It returns the number of indexed vectors.
func (s *Service) RebuildIndex(ctx context.Context) (int, error) {
	stored, err := s.store.List(ctx)
	if err != nil {
		return 0, detector.Errorf(detector.ErrStorageRead, "listing feature vectors: %v", err)
	}

	entries := make([]similarity.Entry, 0, len(stored))
	for _, sv := range stored {
		entries = append(entries, similarity.Entry{
			ContentID: sv.ContentID,
			Vector:    sv.Vector.Combined(),
		})
	}
	if err := s.index.Rebuild(entries); err != nil {
		return 0, detector.Errorf(detector.ErrDimensionMismatch, "rebuilding index: %v", err)
	}

	if err := s.index.Save(s.config.IndexPath); err != nil {
		return 0, detector.Errorf(detector.ErrStorageWrite, "persisting index artifact: %v", err)
	}
	s.log.Infof("rebuilt similarity index with %d vectors", s.index.Len())
	return s.index.Len(), nil
}
