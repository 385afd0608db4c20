package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/http/handlers"
	httpMW "github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/http/middleware"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/observability"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	ReadingHandler  *httpH.ReadingHandler
	StatsHandler    *httpH.StatsHandler
	ModelHandler    *httpH.ModelHandler
	RealtimeHandler *httpH.RealtimeHandler

	Metrics      *observability.Metrics
	AllowOrigins []string

	// TracingService attaches OTel HTTP spans under this service name when
	// non-empty. Must match the tracer provider's service.
	TracingService string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.CORS(cfg.AllowOrigins))
	if cfg.TracingService != "" {
		// Before AttachTraceContext so the generated span's trace id wins
		// over a random fallback.
		r.Use(otelgin.Middleware(cfg.TracingService))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))

	r.GET("/healthcheck", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", func(c *gin.Context) {
		cfg.Metrics.WriteHTTP(c.Writer, c.Request)
	})

	if cfg.ReadingHandler != nil {
		r.POST("/readings", cfg.ReadingHandler.Ingest)
	}

	ml := r.Group("/ml")
	{
		if cfg.StatsHandler != nil {
			ml.GET("/statistics", cfg.StatsHandler.Global)
			ml.GET("/batch/:batchId/statistics", cfg.StatsHandler.Batch)
		}
		if cfg.ModelHandler != nil {
			ml.GET("/models", cfg.ModelHandler.List)
		}
		if cfg.RealtimeHandler != nil {
			ml.GET("/stream", cfg.RealtimeHandler.Stream)
		}
	}

	return r
}
