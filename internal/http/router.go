package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/fabricator/internal/http/handlers"
	httpMW "github.com/yungbote/fabricator/internal/http/middleware"
	"github.com/yungbote/fabricator/internal/observability"
	"github.com/yungbote/fabricator/internal/platform/logger"
)

type RouterConfig struct {
	ServiceName string
	Log         *logger.Logger
	Metrics     *observability.Metrics

	HealthHandler *httpH.HealthHandler
	ChainHandler  *httpH.ChainHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Healthz)
		r.GET("/readyz", cfg.HealthHandler.Readyz)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}
	if cfg.ChainHandler != nil {
		r.GET("/chains/:id/status", cfg.ChainHandler.Status)
		r.GET("/embed/:key/status", cfg.ChainHandler.StatusByEmbedKey)
	}
	return r
}
