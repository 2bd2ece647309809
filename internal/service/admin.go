package service

import (
	"net/http"

	"videomod/internal/biz"
	"videomod/internal/pkg/detector"

	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// AdminService exposes operational endpoints.
type AdminService struct {
	uc     *biz.ModerationUsecase
	health *detector.HealthChecker
	log    *log.Helper
}

// NewAdminService creates a new AdminService.
func NewAdminService(uc *biz.ModerationUsecase, health *detector.HealthChecker, logger log.Logger) *AdminService {
	return &AdminService{uc: uc, health: health, log: log.NewHelper(logger)}
}

// RebuildIndexReply reports the outcome of an index rebuild.
type RebuildIndexReply struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	VectorCount int    `json:"vector_count"`
}

// RebuildIndex handles POST /v1/admin/index/rebuild.
func (s *AdminService) RebuildIndex(ctx khttp.Context) error {
	count, err := s.uc.RebuildIndex(ctx)
	if err != nil {
		s.log.Errorf("index rebuild failed: %v", err)
		return ctx.Result(http.StatusOK, &RebuildIndexReply{
			Success: false,
			Message: err.Error(),
		})
	}
	return ctx.Result(http.StatusOK, &RebuildIndexReply{
		Success:     true,
		Message:     "similarity index rebuilt successfully",
		VectorCount: count,
	})
}

// HealthReply reports service and model-server health.
type HealthReply struct {
	Status string `json:"status"`
	Models string `json:"models"`
}

// Health handles GET /healthz. The service itself answering is the liveness
// signal; model-server reachability is reported alongside.
func (s *AdminService) Health(ctx khttp.Context) error {
	reply := &HealthReply{Status: "SERVING", Models: "SERVING"}
	if s.health != nil {
		if err := s.health.Ping(ctx); err != nil {
			s.log.Warnf("model server health check failed: %v", err)
			reply.Models = err.Error()
		}
	}
	return ctx.Result(http.StatusOK, reply)
}
