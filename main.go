package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/swaggo/swag" // 导入 swag

	"card_recommend/config"
	"card_recommend/db"
	_ "card_recommend/docs" // 导入 swagger 文档
	"card_recommend/handlers"
	"card_recommend/logger"
	"card_recommend/repository"
	"card_recommend/scheduler"
	"card_recommend/services"
)

func main() {
	cfg := config.Load()

	// 初始化日志系统
	if err := logger.Init(cfg); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	logger.Info("日志系统初始化成功", "level", cfg.Log.Level, "format", cfg.Log.Format, "output", cfg.Log.Output)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	history, conn, err := openHistory(ctx, cfg)
	if err != nil {
		logger.Error("初始化历史存储失败", "backend", cfg.History.Backend, "error", err)
		os.Exit(1)
	}
	if conn != nil {
		defer conn.Close()
	}

	jobs := repository.NewMemoryJobStore()
	uploads := repository.NewMemoryUploadStore()
	inference := services.NewInferenceClient(cfg)
	extractor := services.NewDocumentExtractor(cfg, services.NewTesseractOCR(cfg))

	recommender, err := services.NewRecommendationService(ctx, cfg, jobs, history, uploads, extractor, inference)
	if err != nil {
		logger.Error("初始化推荐服务失败", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	handlers.RegisterRoutes(r, handlers.Dependencies{
		Config:      cfg,
		Recommender: recommender,
		Chat:        services.NewChatService(cfg, history, inference),
		Uploads:     uploads,
	})

	// 定时清理已结束的任务
	sched := scheduler.NewScheduler(cfg, jobs)
	sched.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("服务器启动", "address", serverAddr)
	logger.Info("Swagger文档可访问", "url", fmt.Sprintf("http://%s/swagger/index.html", serverAddr))

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP服务异常退出", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("收到退出信号，开始关闭服务")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("关闭HTTP服务失败", "error", err)
	}

	done := make(chan struct{})
	go func() {
		recommender.Wait()
		sched.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("服务已关闭")
	case <-shutdownCtx.Done():
		logger.Warn("等待进行中的推荐任务超时，强制退出")
	}
}

// openHistory 按配置选择历史存储，mysql 时同时返回数据库连接
func openHistory(ctx context.Context, cfg *config.Config) (repository.HistoryStore, *sql.DB, error) {
	switch cfg.History.Backend {
	case "", "memory":
		logger.Info("使用内存历史存储")
		return repository.NewMemoryHistoryStore(), nil, nil
	case "mysql":
		conn, err := db.OpenMySQL(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		store := repository.NewMySQLHistoryStore(conn)
		if err := store.EnsureSchema(ctx); err != nil {
			conn.Close()
			return nil, nil, err
		}
		logger.Info("MySQL连接成功",
			"max_open_conns", cfg.DB.MaxOpenConns,
			"max_idle_conns", cfg.DB.MaxIdleConns,
			"conn_max_lifetime", cfg.DB.ConnMaxLifetime)
		return store, conn, nil
	}
	return nil, nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
}
