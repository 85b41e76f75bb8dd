// Package handler provides the App struct that serves as the HTTP facade
// for the document pipeline, delegating to the processor and result cache.
package handler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"doclens/internal/config"
	"doclens/internal/model"
)

// Pipeline processes an upload batch. *processor.Processor satisfies it.
type Pipeline interface {
	ProcessFiles(ctx context.Context, files []model.UploadedFile) []model.ProcessedDocument
}

// CacheStats reports the result cache contents. *store.ResultStore satisfies it.
type CacheStats interface {
	Stats(ctx context.Context) (map[model.ResultType]int, error)
}

// App binds the backend components the handlers need.
type App struct {
	pipeline  Pipeline
	cache     CacheStats // nil when the cache is disabled
	server    config.ServerConfig
	log       *zap.Logger
	startedAt time.Time
}

// NewApp creates a new App. cache may be nil.
func NewApp(p Pipeline, cache CacheStats, server config.ServerConfig, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	if server.MaxUploadMB <= 0 {
		server.MaxUploadMB = config.DefaultConfig().Server.MaxUploadMB
	}
	return &App{
		pipeline:  p,
		cache:     cache,
		server:    server,
		log:       log,
		startedAt: time.Now(),
	}
}

// maxUploadBytes is the request body limit, with headroom for multipart framing.
func (app *App) maxUploadBytes() int64 {
	return int64(app.server.MaxUploadMB)<<20 + 1<<20
}
