package server

import (
	"videomod/internal/conf"
	"videomod/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/wire"
)

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(NewHTTPServer)

// NewHTTPServer creates the HTTP server and registers the routes.
func NewHTTPServer(
	c *conf.Server,
	moderation *service.ModerationService,
	admin *service.AdminService,
	logger log.Logger,
) *khttp.Server {
	opts := []khttp.ServerOption{
		khttp.Middleware(
			recovery.Recovery(),
			logging.Server(logger),
		),
	}
	if c.HTTP.Network != "" {
		opts = append(opts, khttp.Network(c.HTTP.Network))
	}
	if c.HTTP.Addr != "" {
		opts = append(opts, khttp.Address(c.HTTP.Addr))
	}
	if c.HTTP.TimeoutSeconds > 0 {
		opts = append(opts, khttp.Timeout(c.HTTP.HTTPTimeout()))
	}

	srv := khttp.NewServer(opts...)

	route := srv.Route("/")
	route.POST("/v1/moderation/video", moderation.ModerateVideo)
	route.POST("/v1/admin/index/rebuild", admin.RebuildIndex)
	route.GET("/healthz", admin.Health)
	return srv
}
