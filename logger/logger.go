package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"card_recommend/config"
)

// Logger 全局日志记录器，未初始化时使用slog默认实现，保证测试和工具代码可直接调用
var Logger = slog.Default()

// ParseLevel 将配置中的级别字符串转换为slog级别
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New 根据级别、格式构建写入指定writer的logger
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Init 使用配置文件初始化日志系统
func Init(cfg *config.Config) error {
	filePath := cfg.Log.FilePath

	// 创建日志目录
	if filePath != "" {
		if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
			return err
		}
	}

	// 设置输出目标
	var writer io.Writer
	switch strings.ToLower(cfg.Log.Output) {
	case "file":
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		writer = file
	case "both":
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		writer = io.MultiWriter(os.Stdout, file)
	default:
		writer = os.Stdout
	}

	Logger = New(writer, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(Logger)
	return nil
}

// With 返回带固定属性的子logger，用于任务级别日志
func With(args ...any) *slog.Logger {
	return Logger.With(args...)
}

// Debug 记录调试级别的日志
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Info 记录信息级别的日志
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn 记录警告级别的日志
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error 记录错误级别的日志
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}
