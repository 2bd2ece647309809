package biz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"videomod/internal/conf"
	"videomod/internal/pkg/bloom"
	"videomod/internal/pkg/content"
	"videomod/internal/pkg/copyright"
	"videomod/internal/pkg/detector"
	"videomod/internal/pkg/fanout"
	"videomod/internal/pkg/hash"
	"videomod/internal/pkg/quality"
	pkgredis "videomod/internal/pkg/redis"
	"videomod/internal/pkg/thumbnail"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(NewModerationUsecase)

// Status is the final moderation decision.
type Status string

const (
	StatusApproved Status = "APPROVED"
	StatusFlagged  Status = "FLAGGED"
	StatusRejected Status = "REJECTED"
)

// RiskLevel is the computed severity.
type RiskLevel string

const (
	LevelLow    RiskLevel = "LOW"
	LevelMedium RiskLevel = "MEDIUM"
	LevelHigh   RiskLevel = "HIGH"
)

// StatusFor maps a risk level to its status. This is the only valid mapping.
func StatusFor(level RiskLevel) Status {
	switch level {
	case LevelHigh:
		return StatusRejected
	case LevelMedium:
		return StatusFlagged
	default:
		return StatusApproved
	}
}

// Verdict is the complete decision bundle for one moderation request.
// Details holds one entry per dispatched check, failures included.
type Verdict struct {
	RequestID       string                             `json:"request_id"`
	ContentID       string                             `json:"content_id"`
	VideoPath       string                             `json:"video_path"`
	Status          Status                             `json:"status"`
	Level           RiskLevel                          `json:"level"`
	Reasons         []string                           `json:"reasons,omitempty"`
	Details         map[detector.Kind]*detector.Result `json:"details"`
	ThumbnailPath   string                             `json:"thumbnail_path,omitempty"`
	PipelineVersion string                             `json:"pipeline_version"`
	ProcessedAt     time.Time                          `json:"processed_at"`
	FromCache       bool                               `json:"-"`
}

// VerdictPublisher emits verdict events for downstream consumers.
type VerdictPublisher interface {
	PublishVerdict(ctx context.Context, verdict *Verdict) error
}

// ThumbnailGenerator produces a representative frame for an approved video.
type ThumbnailGenerator interface {
	Generate(ctx context.Context, videoPath string) (string, error)
}

// IndexRebuilder rebuilds the similarity index from persisted vectors.
type IndexRebuilder interface {
	RebuildIndex(ctx context.Context) (int, error)
}

// Policy holds the decision thresholds.
type Policy struct {
	UnsafeConfidence   float64
	MinQuality         float64
	ObjectConfidence   float64
	RestrictedClassIDs map[int32]struct{}
	PipelineVersion    string
	CacheTTL           time.Duration
}

const (
	verdictKeyPrefix = "moderation:verdict:"
	verdictBloomKey  = "moderation:verdict:bloom"
)

// ModerationUsecase orchestrates the moderation pipeline: fan out every
// configured check, aggregate their outcomes, and decide.
type ModerationUsecase struct {
	checks    []detector.Detector
	pool      fanout.Config
	thumbs    ThumbnailGenerator
	rebuilder IndexRebuilder
	cache     pkgredis.Cache // nil disables the verdict cache
	seen      *bloom.Filter
	publisher VerdictPublisher // nil disables events
	policy    Policy
	log       *log.Helper
}

// NewModerationUsecase creates the orchestrator with the full check set.
func NewModerationUsecase(
	c *conf.Moderation,
	classifier *detector.Classifier,
	objects *detector.ObjectDetector,
	ocr *detector.OCRProcessor,
	qualitySvc *quality.Service,
	contentChecker *content.Checker,
	copyrightSvc *copyright.Service,
	thumbs *thumbnail.Generator,
	cache pkgredis.Cache,
	publisher VerdictPublisher,
	logger log.Logger,
) *ModerationUsecase {
	restricted := make(map[int32]struct{}, len(c.RestrictedClassIDs))
	for _, id := range c.RestrictedClassIDs {
		restricted[id] = struct{}{}
	}

	return &ModerationUsecase{
		checks: []detector.Detector{
			classifier, objects, ocr, qualitySvc, copyrightSvc, contentChecker,
		},
		pool: fanout.Config{
			Workers:     c.Pipeline.Workers,
			TaskTimeout: time.Duration(c.Pipeline.TaskTimeoutSeconds) * time.Second,
		},
		thumbs:    thumbs,
		rebuilder: copyrightSvc,
		cache:     cache,
		seen:      bloom.New(cache, verdictBloomKey, c.VerdictCache.BloomBits, c.VerdictCache.BloomHashes),
		publisher: publisher,
		policy: Policy{
			UnsafeConfidence:   c.Thresholds.UnsafeConfidence,
			MinQuality:         c.Thresholds.MinQuality,
			ObjectConfidence:   c.Thresholds.ObjectConfidence,
			RestrictedClassIDs: restricted,
			PipelineVersion:    c.PipelineVersion,
			CacheTTL:           time.Duration(c.VerdictCache.TTLSeconds) * time.Second,
		},
		log: log.NewHelper(logger),
	}
}

// ModerateVideo runs every check against the video and returns the verdict.
// A failing check is recorded under its name and never aborts the batch; the
// only hard error is a video path that does not exist.
func (uc *ModerationUsecase) ModerateVideo(ctx context.Context, requestID, videoPath string) (*Verdict, error) {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	contentID := hash.ContentID(videoPath)
	uc.log.Debugf("ModerateVideo: requestID=%s contentID=%s", requestID, contentID)

	// The input precondition comes before the cache: a cached verdict for a
	// since-deleted file must not mask the missing input.
	if _, err := os.Stat(videoPath); err != nil {
		return nil, kerrors.NotFound("VIDEO_NOT_FOUND", fmt.Sprintf("video %s not found: %v", videoPath, err))
	}

	if cached := uc.cachedVerdict(ctx, contentID); cached != nil {
		uc.log.Infof("verdict cache hit for %s", contentID)
		cached.RequestID = requestID
		return cached, nil
	}

	details := uc.runChecks(ctx, videoPath)
	level, reasons := uc.decideLevel(details)

	verdict := &Verdict{
		RequestID:       requestID,
		ContentID:       contentID,
		VideoPath:       videoPath,
		Status:          StatusFor(level),
		Level:           level,
		Reasons:         reasons,
		Details:         details,
		PipelineVersion: uc.policy.PipelineVersion,
		ProcessedAt:     time.Now().UTC(),
	}

	if verdict.Status == StatusApproved && uc.thumbs != nil {
		// Thumbnail generation is best-effort; a failure leaves the path
		// empty but never changes the decision.
		if path, err := uc.thumbs.Generate(ctx, videoPath); err != nil {
			uc.log.Warnf("thumbnail generation failed for %s: %v", contentID, err)
		} else {
			verdict.ThumbnailPath = path
		}
	}

	uc.storeVerdict(ctx, verdict)
	uc.publishVerdict(ctx, verdict)
	return verdict, nil
}

// runChecks fans the checks out over the bounded pool and collects exactly
// one entry per check, failures tagged in place.
func (uc *ModerationUsecase) runChecks(ctx context.Context, videoPath string) map[detector.Kind]*detector.Result {
	tasks := make([]fanout.Task[*detector.Result], len(uc.checks))
	for i, check := range uc.checks {
		check := check
		tasks[i] = fanout.Task[*detector.Result]{
			Name: string(check.Kind()),
			Run: func(ctx context.Context) (*detector.Result, error) {
				return check.Evaluate(ctx, videoPath)
			},
		}
	}

	outcomes := fanout.Run(ctx, uc.pool, tasks)

	details := make(map[detector.Kind]*detector.Result, len(uc.checks))
	for _, check := range uc.checks {
		kind := check.Kind()
		out := outcomes[string(kind)]
		switch {
		case out.Err != nil:
			uc.log.Warnf("check %s failed for %s: %v", kind, videoPath, out.Err)
			details[kind] = detector.FailedResult(kind, out.Err)
		case out.Value == nil:
			details[kind] = detector.FailedResult(kind, errors.New("check returned no result"))
		default:
			details[kind] = out.Value
		}
	}
	return details
}

// decideLevel applies the decision rules in fixed priority order; the first
// matching rule wins. Failed checks contribute nothing to the decision.
func (uc *ModerationUsecase) decideLevel(details map[detector.Kind]*detector.Result) (RiskLevel, []string) {
	if c := details[detector.KindClassification]; c != nil && !c.Failed() && c.Classification != nil {
		if c.Classification.Label == detector.LabelUnsafe && c.Classification.Confidence > uc.policy.UnsafeConfidence {
			return LevelHigh, []string{fmt.Sprintf("classified UNSAFE with confidence %.2f", c.Classification.Confidence)}
		}
	}

	if cp := details[detector.KindCopyright]; cp != nil && !cp.Failed() && cp.Copyright != nil {
		if n := len(cp.Copyright.DetectedLogos); n > 0 {
			return LevelHigh, []string{fmt.Sprintf("%d copyrighted logo(s) detected", n)}
		}
	}

	if q := details[detector.KindQuality]; q != nil && !q.Failed() && q.Quality != nil {
		if q.Quality.VideoScore < uc.policy.MinQuality {
			return LevelMedium, []string{fmt.Sprintf("video quality %.2f below minimum", q.Quality.VideoScore)}
		}
	}

	if o := details[detector.KindObjects]; o != nil && !o.Failed() && o.Objects != nil {
		for _, m := range o.Objects.Matches() {
			if m.Confidence < uc.policy.ObjectConfidence {
				continue
			}
			if _, restricted := uc.policy.RestrictedClassIDs[m.ClassID]; restricted {
				return LevelMedium, []string{fmt.Sprintf("restricted object %s detected", m.ClassName)}
			}
		}
	}

	if t := details[detector.KindOCR]; t != nil && !t.Failed() && t.OCR != nil {
		if n := len(t.OCR.FlaggedTerms); n > 0 {
			return LevelMedium, []string{fmt.Sprintf("%d restricted term(s) in on-screen text", n)}
		}
	}

	if ct := details[detector.KindContent]; ct != nil && !ct.Failed() && ct.Content != nil {
		if !ct.Content.DurationOK {
			return LevelMedium, []string{fmt.Sprintf("duration %.1fs outside allowed range", ct.Content.DurationSeconds)}
		}
		if !ct.Content.AspectOK {
			return LevelMedium, []string{fmt.Sprintf("aspect ratio %dx%d not allowed", ct.Content.Width, ct.Content.Height)}
		}
	}

	return LevelLow, nil
}

// cachedVerdict returns the cached verdict for contentID, or nil. The bloom
// filter answers the common never-seen case without a redis GET; cache
// trouble only costs a recompute.
func (uc *ModerationUsecase) cachedVerdict(ctx context.Context, contentID string) *Verdict {
	if uc.cache == nil {
		return nil
	}
	maybe, err := uc.seen.Exists(ctx, hash.FastHash(contentID))
	if err != nil {
		uc.log.Warnf("bloom lookup failed for %s: %v", contentID, err)
		return nil
	}
	if !maybe {
		return nil
	}

	raw, err := uc.cache.GetBytes(ctx, verdictKeyPrefix+contentID)
	if errors.Is(err, pkgredis.Nil) {
		return nil
	}
	if err != nil {
		uc.log.Warnf("verdict cache read failed for %s: %v", contentID, err)
		return nil
	}

	var v Verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		uc.log.Warnf("corrupt cached verdict for %s: %v", contentID, err)
		return nil
	}
	v.FromCache = true
	return &v
}

func (uc *ModerationUsecase) storeVerdict(ctx context.Context, verdict *Verdict) {
	if uc.cache == nil {
		return
	}
	raw, err := json.Marshal(verdict)
	if err != nil {
		uc.log.Warnf("failed to marshal verdict %s: %v", verdict.ContentID, err)
		return
	}
	if err := uc.cache.SetBytes(ctx, verdictKeyPrefix+verdict.ContentID, raw, uc.policy.CacheTTL); err != nil {
		uc.log.Warnf("failed to cache verdict %s: %v", verdict.ContentID, err)
		return
	}
	if err := uc.seen.Add(ctx, hash.FastHash(verdict.ContentID)); err != nil {
		uc.log.Warnf("failed to update bloom filter for %s: %v", verdict.ContentID, err)
	}
}

func (uc *ModerationUsecase) publishVerdict(ctx context.Context, verdict *Verdict) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishVerdict(ctx, verdict); err != nil {
		uc.log.Warnf("failed to publish verdict %s: %v", verdict.ContentID, err)
	}
}

// RebuildIndex rebuilds the similarity index from every persisted feature
// vector and returns the number of indexed vectors.
func (uc *ModerationUsecase) RebuildIndex(ctx context.Context) (int, error) {
	uc.log.Info("rebuilding similarity index from feature store")
	return uc.rebuilder.RebuildIndex(ctx)
}
