package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"card_recommend/config"
	_ "card_recommend/docs" // 导入 swagger 文档
	"card_recommend/repository"
	"card_recommend/services"
	"card_recommend/utils"
)

// Dependencies 路由依赖的服务
type Dependencies struct {
	Config      *config.Config
	Recommender services.Recommender
	Chat        services.Chatter
	Uploads     repository.UploadStore
}

// HealthHandler godoc
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} models.APIResponse "成功"
// @Router /health [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// rateLimit 提交和追问都会调用推理服务，按IP限流
func rateLimit(cfg *config.Config) func(http.Handler) http.Handler {
	if cfg.RateLimit.Disabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return httprate.LimitByIP(cfg.RateLimit.RequestsPerMinute, time.Minute)
}

// RegisterRoutes 注册所有HTTP路由
func RegisterRoutes(r chi.Router, deps Dependencies) {
	cfg := deps.Config

	// Swagger 文档
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // Swagger JSON 的 URL
	))
	r.Get("/health", HealthHandler)
	r.Handle("/metrics", promhttp.Handler())

	limiter := rateLimit(cfg)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))

		r.Post("/uploads", func(w http.ResponseWriter, r *http.Request) {
			UploadHandler(w, r, cfg, deps.Uploads)
		})

		r.Route("/recommendations", func(r chi.Router) {
			r.With(limiter).Post("/", func(w http.ResponseWriter, r *http.Request) {
				SubmitRecommendationHandler(w, r, deps.Recommender)
			})
			r.Get("/history", func(w http.ResponseWriter, r *http.Request) {
				GetHistoryHandler(w, r, cfg, deps.Recommender)
			})
			r.Get("/jobs/{jobID}", func(w http.ResponseWriter, r *http.Request) {
				GetJobHandler(w, r, deps.Recommender)
			})
			r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
				GetResultHandler(w, r, deps.Recommender)
			})
		})

		r.With(limiter).Post("/chat", func(w http.ResponseWriter, r *http.Request) {
			ChatHandler(w, r, deps.Chat)
		})
	})
}
