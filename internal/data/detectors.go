package data

import (
	"time"

	"videomod/internal/conf"
	"videomod/internal/pkg/content"
	"videomod/internal/pkg/copyright"
	"videomod/internal/pkg/detector"
	"videomod/internal/pkg/filter"
	"videomod/internal/pkg/quality"
	"videomod/internal/pkg/similarity"
	"videomod/internal/pkg/thumbnail"

	"github.com/go-kratos/kratos/v2/log"
)

// clientConfig converts a model-server section to a detector client config.
func clientConfig(ms *conf.ModelServer) detector.ClientConfig {
	cfg := detector.DefaultClientConfig(ms.Backends...)
	if ms.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(ms.TimeoutSeconds) * time.Second
	}
	if ms.MaxRetries > 0 {
		cfg.MaxRetries = ms.MaxRetries
	}
	return cfg
}

// NewHealthChecker creates the model-server health prober.
func NewHealthChecker(c *conf.Moderation) *detector.HealthChecker {
	return detector.NewHealthChecker(c.HealthAddrs, 5*time.Second)
}

// NewSampler creates the ffmpeg-backed media sampler.
func NewSampler(logger log.Logger) quality.Sampler {
	return quality.NewFFmpegSampler(logger)
}

// NewSimilarityIndex loads the persisted index artifact, starting empty when
// none exists yet.
func NewSimilarityIndex(c *conf.Moderation, logger log.Logger) (*similarity.Index, error) {
	index, err := similarity.Load(c.Index.Path)
	if err != nil {
		return nil, err
	}
	log.NewHelper(logger).Infof("loaded similarity index with %d vectors from %s", index.Len(), c.Index.Path)
	return index, nil
}

// NewExtractor creates the embedding model-server client.
func NewExtractor(c *conf.Moderation) similarity.Extractor {
	cfg := similarity.DefaultExtractorConfig(c.Extractor.BaseURL)
	if c.Extractor.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(c.Extractor.TimeoutSeconds) * time.Second
	}
	return similarity.NewHTTPExtractor(cfg)
}

// NewClassifier creates the explicit-content classifier client.
func NewClassifier(c *conf.Moderation, logger log.Logger) *detector.Classifier {
	return detector.NewClassifier(clientConfig(c.Classifier), logger)
}

// NewObjectDetector creates the object/logo detection client.
func NewObjectDetector(c *conf.Moderation, logger log.Logger) *detector.ObjectDetector {
	return detector.NewObjectDetector(clientConfig(c.ObjectDetector), logger)
}

// NewTermMatcher builds the restricted-term automaton from configuration.
func NewTermMatcher(c *conf.Moderation) *filter.Matcher {
	patterns := make([]filter.Pattern, 0, len(c.RestrictedTerms))
	for _, t := range c.RestrictedTerms {
		patterns = append(patterns, filter.Pattern{Term: t.Term, Category: t.Category})
	}
	m := filter.NewMatcher()
	m.Build(patterns)
	return m
}

// NewOCRProcessor creates the OCR client with term screening.
func NewOCRProcessor(c *conf.Moderation, matcher *filter.Matcher, logger log.Logger) *detector.OCRProcessor {
	return detector.NewOCRProcessor(clientConfig(c.OCR), matcher, logger)
}

// NewQualityService creates the quality detector with its report sink.
func NewQualityService(sampler quality.Sampler, sink quality.ReportSink, logger log.Logger) *quality.Service {
	return quality.NewService(sampler, sink, quality.DefaultConfig(), logger)
}

// NewContentChecker creates the business-rule detector.
func NewContentChecker(sampler quality.Sampler, c *conf.Moderation, logger log.Logger) *content.Checker {
	cfg := content.DefaultConfig()
	if c.Content.MinDurationSeconds > 0 {
		cfg.MinDuration = time.Duration(c.Content.MinDurationSeconds) * time.Second
	}
	if c.Content.MaxDurationSeconds > 0 {
		cfg.MaxDuration = time.Duration(c.Content.MaxDurationSeconds) * time.Second
	}
	return content.NewChecker(sampler, cfg, logger)
}

// NewThumbnailGenerator creates the thumbnail generator.
func NewThumbnailGenerator(sampler quality.Sampler, c *conf.Moderation, logger log.Logger) *thumbnail.Generator {
	cfg := thumbnail.DefaultConfig()
	if c.Thumbnail.OutputDir != "" {
		cfg.OutputDir = c.Thumbnail.OutputDir
	}
	return thumbnail.NewGenerator(sampler, cfg, logger)
}

// NewCopyrightService wires the copyright detector: feature extraction,
// nearest-neighbor search, and logo scanning through the object detector.
func NewCopyrightService(
	extractor similarity.Extractor,
	store similarity.FeatureStore,
	index *similarity.Index,
	objects *detector.ObjectDetector,
	c *conf.Moderation,
	logger log.Logger,
) *copyright.Service {
	cfg := copyright.DefaultConfig()
	cfg.IndexPath = c.Index.Path
	if c.Index.TopK > 0 {
		cfg.TopK = c.Index.TopK
	}
	if c.Thresholds.Similarity > 0 {
		cfg.SimilarityThreshold = c.Thresholds.Similarity
	}
	if c.Thresholds.LogoConfidence > 0 {
		cfg.LogoConfidence = c.Thresholds.LogoConfidence
	}
	if len(c.RestrictedLogos) > 0 {
		cfg.RestrictedLogos = c.RestrictedLogos
	}
	return copyright.NewService(extractor, store, index, objects, cfg, logger)
}
