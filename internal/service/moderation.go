package service

import (
	"net/http"

	"videomod/internal/biz"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewModerationService, NewAdminService)

// ModerationService exposes the moderation pipeline over HTTP.
type ModerationService struct {
	uc  *biz.ModerationUsecase
	log *log.Helper
}

// NewModerationService creates a new ModerationService.
func NewModerationService(uc *biz.ModerationUsecase, logger log.Logger) *ModerationService {
	return &ModerationService{uc: uc, log: log.NewHelper(logger)}
}

// ModerateVideoRequest asks for one video to be moderated.
type ModerateVideoRequest struct {
	RequestID string `json:"request_id"`
	VideoPath string `json:"video_path"`
}

// ModerateVideoReply is the verdict plus cache provenance.
type ModerateVideoReply struct {
	*biz.Verdict
	FromCache bool `json:"from_cache"`
}

// ModerateVideo handles POST /v1/moderation/video.
func (s *ModerationService) ModerateVideo(ctx khttp.Context) error {
	var req ModerateVideoRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if req.VideoPath == "" {
		return kerrors.BadRequest("MISSING_VIDEO_PATH", "video_path is required")
	}

	verdict, err := s.uc.ModerateVideo(ctx, req.RequestID, req.VideoPath)
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, &ModerateVideoReply{
		Verdict:   verdict,
		FromCache: verdict.FromCache,
	})
}
