// Package similarity implements the content-addressed similarity machinery:
// extracted feature vectors, their persistence contract, and a
// nearest-neighbor index over the combined vectors.
package similarity

import "time"

// Metadata describes where and when a feature vector was extracted.
type Metadata struct {
	SourcePath  string    `json:"source_path"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// FeatureVector holds the fixed-length visual and audio summaries of one
// video. A persisted vector is immutable except for full replacement under
// the same content identifier.
type FeatureVector struct {
	Visual   []float32
	Audio    []float32
	Metadata Metadata
}

// Combined concatenates the visual features followed by the audio features.
// This ordering is a hard contract shared by index build and query time;
// mixing orders silently degrades every search into a meaningless
// comparison, so all combined vectors must come from this method.
func (fv *FeatureVector) Combined() []float32 {
	combined := make([]float32, 0, len(fv.Visual)+len(fv.Audio))
	combined = append(combined, fv.Visual...)
	combined = append(combined, fv.Audio...)
	return combined
}
