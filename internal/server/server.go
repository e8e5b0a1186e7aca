package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alm9/grades-escolares-api/internal/config"
	"github.com/alm9/grades-escolares-api/internal/grades"
	"github.com/alm9/grades-escolares-api/internal/server/handlers"
	"github.com/alm9/grades-escolares-api/internal/server/middleware"
	"github.com/alm9/grades-escolares-api/internal/server/ratelimit"
	"github.com/alm9/grades-escolares-api/internal/server/router"
	"github.com/alm9/grades-escolares-api/internal/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const rateLimitCleanupInterval = 1 * time.Minute

// NewEngine opens the grades file named in cfg, creating it if needed, and
// returns an engine over it.
func NewEngine(cfg *config.Config, logger *zap.Logger) (*grades.Engine, error) {
	st := store.NewOS(cfg.GradesFile)
	if err := st.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize grade store: %w", err)
	}

	return grades.NewEngine(st,
		grades.WithLogger(logger.Named("grades")),
		grades.WithCacheTTL(cfg.CacheTTL),
		grades.WithDefaultTopN(cfg.TopNDefault),
	), nil
}

// NewServer builds the HTTP server for the grades API. The rate limiter's
// cleanup loop stops when ctx is done.
func NewServer(ctx context.Context, cfg *config.Config, engine handlers.GradeService, logger *zap.Logger) *http.Server {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	limiter := ratelimit.NewLimiter(cfg.RateLimit, cfg.RateWindow)
	if limiter.Enabled() {
		limiter.StartCleanup(ctx, rateLimitCleanupInterval)
	}

	handler := handlers.New(engine, logger.Named("http"))
	mw := middleware.NewManager(limiter, logger.Named("http"))

	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.New(handler, mw, cfg.StaticDir),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
