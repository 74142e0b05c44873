package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/mediahub-backend/internal/http/handlers"
	httpMW "github.com/yungbote/mediahub-backend/internal/http/middleware"
	"github.com/yungbote/mediahub-backend/internal/observability"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler     *httpH.HealthHandler
	MediaHandler      *httpH.MediaHandler
	SearchHandler     *httpH.SearchHandler
	TagHandler        *httpH.TagHandler
	CollectionHandler *httpH.CollectionHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "mediahub"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	public := api.Group("/")
	protected := api.Group("/")
	if cfg.AuthMiddleware != nil {
		public.Use(cfg.AuthMiddleware.OptionalAuth())
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Media
	if h := cfg.MediaHandler; h != nil {
		public.GET("/media", h.List)
		public.GET("/media/:mid", h.Get)
		protected.POST("/upload", h.Upload)
		protected.POST("/preference", h.Preference)
		protected.POST("/view", h.View)
		protected.GET("/recommend", h.Recommend)
	}

	// Search
	if h := cfg.SearchHandler; h != nil {
		public.POST("/search", h.Search)
		public.POST("/visual-search", h.VisualSearch)
	}

	// Tags
	if h := cfg.TagHandler; h != nil {
		public.GET("/tags", h.List)
		public.POST("/classify", h.Classify)
		protected.POST("/tags", h.Add)
	}

	// Collections
	if h := cfg.CollectionHandler; h != nil {
		public.GET("/collections", h.List)
		public.GET("/collections/:cid", h.Get)
		protected.GET("/collections/:cid/requests", h.PendingRequests)
		protected.POST("/collections", h.Create)
		protected.POST("/collection_access", h.Grant)
		protected.POST("/collection_request", h.RequestAccess)
	}

	return r
}
