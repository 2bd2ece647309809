// Package conf defines the service configuration and its defaults. Values
// come from a YAML file loaded through the kratos config loader; anything
// absent falls back to the defaults here.
package conf

import (
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
)

// Bootstrap is the root configuration.
type Bootstrap struct {
	Server     *Server     `json:"server"`
	Data       *Data       `json:"data"`
	Moderation *Moderation `json:"moderation"`
}

// Server holds the transport configuration.
type Server struct {
	HTTP *HTTPServer `json:"http"`
}

// HTTPServer configures the HTTP listener.
type HTTPServer struct {
	Network        string `json:"network"`
	Addr           string `json:"addr"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Data holds the storage and messaging backends.
type Data struct {
	Database      *Database      `json:"database"`
	Redis         *Redis         `json:"redis"`
	Elasticsearch *Elasticsearch `json:"elasticsearch"`
	Kafka         *Kafka         `json:"kafka"`
}

// Database configures the postgres pool.
type Database struct {
	Driver string `json:"driver"`
	Source string `json:"source"`
	Pool   struct {
		MaxOpenConns    int32 `json:"max_open_conns"`
		MinIdleConns    int32 `json:"min_idle_conns"`
		MaxConnLifetime int   `json:"max_conn_lifetime"` // minutes
		MaxConnIdleTime int   `json:"max_conn_idle_time"` // minutes
	} `json:"pool"`
}

// Redis configures the verdict cache backend.
type Redis struct {
	Addr                string `json:"addr"`
	Network             string `json:"network"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds"`
}

// Elasticsearch configures the quality-report sink.
type Elasticsearch struct {
	Addr         string `json:"addr"`
	QualityIndex string `json:"quality_index"`
}

// Kafka configures the verdict event publisher.
type Kafka struct {
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`
}

// ModelServer configures one pool of model-server backends.
type ModelServer struct {
	Backends       []string `json:"backends"`
	TimeoutSeconds int      `json:"timeout_seconds"`
	MaxRetries     uint64   `json:"max_retries"`
}

// Moderation holds the pipeline policy knobs.
type Moderation struct {
	PipelineVersion string `json:"pipeline_version"`

	Classifier     *ModelServer `json:"classifier"`
	ObjectDetector *ModelServer `json:"object_detector"`
	OCR            *ModelServer `json:"ocr"`

	// HealthAddrs are the gRPC health endpoints of the model servers.
	HealthAddrs []string `json:"health_addrs"`

	Extractor struct {
		BaseURL        string `json:"base_url"`
		TimeoutSeconds int    `json:"timeout_seconds"`
	} `json:"extractor"`

	Pipeline struct {
		Workers            int `json:"workers"`
		TaskTimeoutSeconds int `json:"task_timeout_seconds"`
	} `json:"pipeline"`

	Thresholds struct {
		UnsafeConfidence float64 `json:"unsafe_confidence"`
		Similarity       float64 `json:"similarity"`
		MinQuality       float64 `json:"min_quality"`
		LogoConfidence   float64 `json:"logo_confidence"`
		ObjectConfidence float64 `json:"object_confidence"`
	} `json:"thresholds"`

	RestrictedClassIDs []int32  `json:"restricted_class_ids"`
	RestrictedLogos    []string `json:"restricted_logos"`
	RestrictedTerms    []Term   `json:"restricted_terms"`

	Index struct {
		Path string `json:"path"`
		TopK int    `json:"top_k"`
	} `json:"index"`

	Content struct {
		MinDurationSeconds int `json:"min_duration_seconds"`
		MaxDurationSeconds int `json:"max_duration_seconds"`
	} `json:"content"`

	Thumbnail struct {
		OutputDir string `json:"output_dir"`
	} `json:"thumbnail"`

	VerdictCache struct {
		TTLSeconds  int  `json:"ttl_seconds"`
		BloomBits   uint `json:"bloom_bits"`
		BloomHashes uint `json:"bloom_hashes"`
	} `json:"verdict_cache"`
}

// Term is one restricted OCR term with its category.
type Term struct {
	Term     string `json:"term"`
	Category string `json:"category"`
}

// Default returns a Bootstrap with every knob at its default.
func Default() *Bootstrap {
	bc := &Bootstrap{
		Server: &Server{HTTP: &HTTPServer{
			Network:        "tcp",
			Addr:           ":8000",
			TimeoutSeconds: 120,
		}},
		Data: &Data{
			Database: &Database{Driver: "postgres"},
			Redis:    &Redis{Addr: "localhost:6379", Network: "tcp"},
			Elasticsearch: &Elasticsearch{
				Addr:         "http://localhost:9200",
				QualityIndex: "video-quality-reports",
			},
			Kafka: &Kafka{
				Brokers: []string{"localhost:9092"},
				Topic:   "moderation.verdicts",
			},
		},
		Moderation: &Moderation{PipelineVersion: "v1"},
	}

	m := bc.Moderation
	m.Classifier = &ModelServer{TimeoutSeconds: 30, MaxRetries: 2}
	m.ObjectDetector = &ModelServer{TimeoutSeconds: 60, MaxRetries: 2}
	m.OCR = &ModelServer{TimeoutSeconds: 60, MaxRetries: 2}
	m.Extractor.TimeoutSeconds = 60
	m.Pipeline.Workers = 4
	m.Pipeline.TaskTimeoutSeconds = 60
	m.Thresholds.UnsafeConfidence = 0.9
	m.Thresholds.Similarity = 0.8
	m.Thresholds.MinQuality = 0.3
	m.Thresholds.LogoConfidence = 0.6
	m.Thresholds.ObjectConfidence = 0.5
	m.RestrictedClassIDs = []int32{34, 43, 76} // bat, knife, scissors
	m.RestrictedLogos = []string{"netflix", "hbo", "disney", "prime_video"}
	m.Index.Path = "/var/lib/videomod/similarity.index"
	m.Index.TopK = 10
	m.Content.MinDurationSeconds = 3
	m.Content.MaxDurationSeconds = 900
	m.Thumbnail.OutputDir = "/var/lib/videomod/thumbnails"
	m.VerdictCache.TTLSeconds = 3600
	m.VerdictCache.BloomBits = 1 << 20
	m.VerdictCache.BloomHashes = 7
	return bc
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (*Bootstrap, error) {
	c := config.New(config.WithSource(file.NewSource(path)))
	defer c.Close()

	if err := c.Load(); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	bc := Default()
	if err := c.Scan(bc); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}
	if err := bc.Validate(); err != nil {
		return nil, err
	}
	return bc, nil
}

// Validate checks the invariants a running pipeline depends on.
func (bc *Bootstrap) Validate() error {
	if bc.Data == nil || bc.Data.Database == nil || bc.Data.Database.Source == "" {
		return fmt.Errorf("data.database.source is required")
	}
	m := bc.Moderation
	if m == nil {
		return fmt.Errorf("moderation section is required")
	}
	for name, t := range map[string]float64{
		"unsafe_confidence": m.Thresholds.UnsafeConfidence,
		"similarity":        m.Thresholds.Similarity,
		"min_quality":       m.Thresholds.MinQuality,
	} {
		if t < 0 || t > 1 {
			return fmt.Errorf("moderation.thresholds.%s must be in [0,1], got %f", name, t)
		}
	}
	if m.Pipeline.Workers <= 0 {
		return fmt.Errorf("moderation.pipeline.workers must be positive")
	}
	if m.Index.TopK <= 0 {
		return fmt.Errorf("moderation.index.top_k must be positive")
	}
	return nil
}

// HTTPTimeout returns the server timeout as a duration.
func (s *HTTPServer) HTTPTimeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}
