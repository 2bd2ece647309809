// Package detector defines the uniform contract every content check in the
// moderation pipeline implements, the tagged result union the orchestrator
// aggregates, and the typed failure taxonomy that crosses task boundaries.
package detector

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Kind identifies a check in the pipeline. It doubles as the key under which
// the check's result appears in the verdict details.
type Kind string

const (
	KindClassification Kind = "classification"
	KindObjects        Kind = "object_detection"
	KindOCR            Kind = "ocr"
	KindQuality        Kind = "quality"
	KindCopyright      Kind = "copyright"
	KindContent        Kind = "content"
)

// ErrorKind classifies a check failure.
type ErrorKind string

const (
	ErrInput             ErrorKind = "INPUT"
	ErrModelLoad         ErrorKind = "MODEL_LOAD"
	ErrDecode            ErrorKind = "DECODE"
	ErrTimeout           ErrorKind = "TIMEOUT"
	ErrStorageRead       ErrorKind = "STORAGE_READ"
	ErrStorageWrite      ErrorKind = "STORAGE_WRITE"
	ErrDimensionMismatch ErrorKind = "DIMENSION_MISMATCH"
)

// Error is a typed detector error. Detector implementations return it so the
// orchestrator can record the failure kind instead of a bare string.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Errorf builds a typed detector error.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Failure marks a check that did not produce a usable result. It is distinct
// from a successful-but-empty result.
type Failure struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// FailureFrom converts an arbitrary error into a tagged failure. Deadline
// errors map to TIMEOUT; anything untyped is treated as unreadable media.
func FailureFrom(err error) *Failure {
	var de *Error
	if errors.As(err, &de) {
		return &Failure{Kind: de.Kind, Message: de.Message}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: ErrTimeout, Message: "deadline exceeded"}
	}
	return &Failure{Kind: ErrDecode, Message: err.Error()}
}

// Label is the classification verdict for the whole video.
type Label string

const (
	LabelSafe   Label = "SAFE"
	LabelUnsafe Label = "UNSAFE"
)

// Classification is the explicit-content classifier output.
type Classification struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"` // [0,1]
}

// BoundingBox is a detection box in pixel coordinates.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ObjectMatch is a single detected object or logo.
type ObjectMatch struct {
	ClassID    int32       `json:"class_id"`
	ClassName  string      `json:"class_name"`
	Box        BoundingBox `json:"box"`
	Confidence float64     `json:"confidence"`
}

// ObjectReport holds detections keyed by sampled second offset.
type ObjectReport struct {
	BySecond map[int][]ObjectMatch `json:"by_second"`
}

// Matches flattens the per-second detections in second order, so callers
// deriving text from the first hit stay deterministic.
func (r *ObjectReport) Matches() []ObjectMatch {
	seconds := make([]int, 0, len(r.BySecond))
	for s := range r.BySecond {
		seconds = append(seconds, s)
	}
	sort.Ints(seconds)

	var all []ObjectMatch
	for _, s := range seconds {
		all = append(all, r.BySecond[s]...)
	}
	return all
}

// TermMatch is a restricted term found in OCR-extracted text.
type TermMatch struct {
	Term     string `json:"term"`
	Category string `json:"category"`
	Second   int    `json:"second"`
}

// OCRReport maps sampled second offsets to extracted text. Empty text for a
// second is a valid outcome.
type OCRReport struct {
	TextBySecond map[int]string `json:"text_by_second"`
	FlaggedTerms []TermMatch    `json:"flagged_terms,omitempty"`
}

// QualityReport is the normalized quality vector for a video.
type QualityReport struct {
	VideoScore float64 `json:"video_score"` // [0,1]
	AudioScore float64 `json:"audio_score"` // [0,1]
}

// SimilarMatch is a near-duplicate hit from the similarity index.
type SimilarMatch struct {
	ContentID string  `json:"content_id"`
	Score     float64 `json:"score"` // cosine similarity, higher is closer
}

// CopyrightReport aggregates the two copyright signals. Empty slices are
// valid negative outcomes, not failures.
type CopyrightReport struct {
	SimilarMatches []SimilarMatch `json:"similar_matches"`
	DetectedLogos  []ObjectMatch  `json:"detected_logos"`
}

// ContentReport carries the business-rule check outcomes.
type ContentReport struct {
	DurationSeconds float64 `json:"duration_seconds"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	DurationOK      bool    `json:"duration_ok"`
	AspectOK        bool    `json:"aspect_ok"`
}

// Result is the tagged union produced by one check: exactly one payload
// field matching Kind is set on success, or Failure is set.
type Result struct {
	Kind           Kind             `json:"kind"`
	Classification *Classification  `json:"classification,omitempty"`
	Objects        *ObjectReport    `json:"objects,omitempty"`
	OCR            *OCRReport       `json:"ocr,omitempty"`
	Quality        *QualityReport   `json:"quality,omitempty"`
	Copyright      *CopyrightReport `json:"copyright,omitempty"`
	Content        *ContentReport   `json:"content,omitempty"`
	Failure        *Failure         `json:"failure,omitempty"`
}

// Failed reports whether the check ended in a failure.
func (r *Result) Failed() bool {
	return r != nil && r.Failure != nil
}

// FailedResult wraps err as a failure-tagged result for the given check.
func FailedResult(kind Kind, err error) *Result {
	return &Result{Kind: kind, Failure: FailureFrom(err)}
}

// Detector is the capability contract every content check satisfies: accept
// a video path, return a structured result or a typed error. Implementations
// are stateless with respect to the moderation decision; any caching they do
// is invisible to the orchestrator.
type Detector interface {
	Kind() Kind
	Evaluate(ctx context.Context, videoPath string) (*Result, error)
}
