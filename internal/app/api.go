package app

import (
	"context"
	"fmt"
	"strings"

	httpserver "github.com/yungbote/mediahub-backend/internal/http"
	httpH "github.com/yungbote/mediahub-backend/internal/http/handlers"
	httpMW "github.com/yungbote/mediahub-backend/internal/http/middleware"
	"github.com/yungbote/mediahub-backend/internal/media/search"
	"github.com/yungbote/mediahub-backend/internal/observability"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
	"github.com/yungbote/mediahub-backend/internal/services"
)

// App is the API process.
type App struct {
	*Core
	Server *httpserver.Server

	otelShutdown func(context.Context) error
}

type Handlers struct {
	Health     *httpH.HealthHandler
	Media      *httpH.MediaHandler
	Search     *httpH.SearchHandler
	Tag        *httpH.TagHandler
	Collection *httpH.CollectionHandler
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "mediahub-api",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	observability.Init(log)

	core, err := NewCore(ctx, log, cfg)
	if err != nil {
		return nil, err
	}

	log.Info("Wiring services...")
	users := services.NewUserService(log, core.Repos.Users)
	activity := services.NewActivityService(log, core.Repos.Activity, core.Media)
	recommend := services.NewRecommendationService(log, core.Repos.Activity, core.Index, core.Media, cfg.SearchLimit)
	collections := services.NewCollectionService(log, core.Tx, core.Repos, core.Media)
	searcher := search.NewService(log, core.Clip, core.Index, core.Media, cfg.SearchLimit)

	handlers, err := wireHandlers(log, core, searcher, activity, recommend, collections)
	if err != nil {
		core.Close()
		return nil, err
	}

	server := httpserver.NewServer(httpserver.RouterConfig{
		Log:               log,
		Metrics:           observability.Current(),
		ServiceName:       "mediahub-api",
		CORSOrigins:       cfg.CORSOrigins,
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey, users),
		HealthHandler:     handlers.Health,
		MediaHandler:      handlers.Media,
		SearchHandler:     handlers.Search,
		TagHandler:        handlers.Tag,
		CollectionHandler: handlers.Collection,
	})
	// Local blobs are served by the API itself under their public prefix.
	if cfg.BlobBackend == BlobBackendLocal && strings.HasPrefix(cfg.PublicBaseURL, "/") {
		server.Engine.Static(cfg.PublicBaseURL, cfg.StorageDir)
	}

	return &App{Core: core, Server: server, otelShutdown: otelShutdown}, nil
}

func wireHandlers(
	log *logger.Logger,
	core *Core,
	searcher *search.Service,
	activity services.ActivityService,
	recommend services.RecommendationService,
	collections services.CollectionService,
) (Handlers, error) {
	log.Info("Wiring handlers...")
	sqlDB, err := core.DB.DB()
	if err != nil {
		return Handlers{}, fmt.Errorf("db handle: %w", err)
	}
	maxUpload := core.Cfg.MaxUploadBytes
	return Handlers{
		Health:     httpH.NewHealthHandler(sqlDB),
		Media:      httpH.NewMediaHandler(log, core.Ingest, core.Media, activity, recommend, maxUpload),
		Search:     httpH.NewSearchHandler(log, searcher, core.Media, maxUpload),
		Tag:        httpH.NewTagHandler(log, core.Tags, maxUpload),
		Collection: httpH.NewCollectionHandler(log, collections),
	}, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.StartCollectors(ctx)
	addr := ":" + strings.TrimPrefix(a.Cfg.Port, ":")
	a.Log.Info("API listening", "addr", addr)
	return a.Server.Run(ctx, addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Core.Close()
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
