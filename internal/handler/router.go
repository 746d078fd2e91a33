package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/smartplanning/planning/internal/config"
	"github.com/smartplanning/planning/internal/metrics"
	"github.com/smartplanning/planning/internal/middleware"
)

// BuildInfo 构建信息
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// HealthChecker 依赖健康检查
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewRouter 创建HTTP路由
// 中间件执行顺序：requestID -> recovery -> rateLimit -> cors -> logging -> handler
func NewRouter(cfg *config.Config, svc ScheduleService, health HealthChecker, build BuildInfo) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.RateLimit(float64(cfg.API.RateLimit)))
	if cfg.API.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.API.CORS.Origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         300,
		}))
	}
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Logging)
	r.Use(chimw.CleanPath)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := health.Health(ctx); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": cfg.App.Name})
	})

	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, build)
	})

	if cfg.Metrics.Enabled {
		r.Method(http.MethodGet, cfg.Metrics.Path, metrics.Handler())
	}

	sh := NewScheduleHandler(svc)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.AllowContentType("application/json"))
		if cfg.API.Timeout > 0 {
			r.Use(chimw.Timeout(cfg.API.Timeout))
		}
		r.Route("/schedules", sh.Routes)
	})

	return r
}
