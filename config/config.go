package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath 默认配置文件路径
const DefaultConfigPath = "config.yaml"

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Addr string `yaml:"-"` // 不从配置文件读取，而是在加载后计算
	} `yaml:"server"`
	Log struct {
		Level    string `yaml:"level"`
		Format   string `yaml:"format"`
		Output   string `yaml:"output"`
		FilePath string `yaml:"file_path"`
	} `yaml:"log"`
	// Inference 外部检索/生成服务
	Inference struct {
		BaseURL      string         `yaml:"base_url"`
		Path         string         `yaml:"path"`
		APIKey       string         `yaml:"api_key"`
		TimeoutSec   int            `yaml:"timeout_sec"`   // 请求超时时间,单位:秒
		AnswerFields []string       `yaml:"answer_fields"` // 回答字段名，第一个为标准字段，其余为兼容别名
		Params       map[string]any `yaml:"params"`        // 服务特定的调优参数，原样合并进请求体
		Breaker      struct {
			MaxFailures uint32 `yaml:"max_failures"` // 连续失败多少次后熔断
			OpenSec     int    `yaml:"open_sec"`     // 熔断后多久尝试半开
		} `yaml:"breaker"`
	} `yaml:"inference"`
	LLM struct {
		MaxConcurrency int `yaml:"max_concurrency"` // 并发推理请求数
	} `yaml:"llm"`
	Extraction struct {
		MaxPages      int    `yaml:"max_pages"`    // 超出的页数直接截断
		MaxChars      int    `yaml:"max_chars"`    // 提取文本最大字符数
		OCRFallback   bool   `yaml:"ocr_fallback"` // 文本提取为空时是否对首页做OCR
		TesseractPath string `yaml:"tesseract_path"`
		PdftoppmPath  string `yaml:"pdftoppm_path"`
		OCRLanguage   string `yaml:"ocr_language"`
	} `yaml:"extraction"`
	Upload struct {
		Dir       string   `yaml:"dir"`
		MaxSizeMB int      `yaml:"max_size_mb"`
		AllowExts []string `yaml:"allow_exts"`
	} `yaml:"upload"`
	Jobs struct {
		TimeoutSec       int `yaml:"timeout_sec"`        // 单个任务的最长执行时间
		RetentionMin     int `yaml:"retention_min"`      // 已结束任务保留时间（分钟）
		SweepIntervalSec int `yaml:"sweep_interval_sec"` // 清理检查间隔（秒）
	} `yaml:"jobs"`
	History struct {
		Backend      string `yaml:"backend"` // memory / mysql
		DefaultLimit int    `yaml:"default_limit"`
		MaxLimit     int    `yaml:"max_limit"`
	} `yaml:"history"`
	Chat struct {
		MaxTurns int `yaml:"max_turns"` // 拼接进提示词的最大历史轮数
	} `yaml:"chat"`
	RateLimit struct {
		Disabled          bool `yaml:"disabled"`
		RequestsPerMinute int  `yaml:"requests_per_minute"`
	} `yaml:"rate_limit"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`

	DB struct {
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		Username        string `yaml:"username"`
		Password        string `yaml:"password"`
		Database        string `yaml:"database"`
		Charset         string `yaml:"charset"`
		DSN             string `yaml:"-"`                 // 不从配置文件读取，而是在加载后计算
		MaxOpenConns    int    `yaml:"max_open_conns"`    // 最大打开连接数
		MaxIdleConns    int    `yaml:"max_idle_conns"`    // 最大空闲连接数
		ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // 连接最大生命周期（分钟）
	} `yaml:"database"`
}

// Load 从默认路径加载配置
func Load() *Config {
	return LoadFrom(DefaultConfigPath)
}

// LoadFrom 加载指定路径的配置文件，文件不存在或解析失败时只使用环境变量和默认值
func LoadFrom(path string) *Config {
	// 首先尝试加载.env文件中的环境变量
	_ = godotenv.Load() // 忽略错误，如果.env文件不存在，继续使用系统环境变量

	var cfg Config

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Printf("Error loading %s: %v, falling back to environment variables", path, err)
			cfg = Config{}
		} else {
			log.Printf("Loading configuration from %s", path)
		}
	} else {
		log.Println("配置文件不存在，从环境变量加载配置")
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg
}

// applyEnv 从环境变量中加载敏感信息和部署相关配置
func applyEnv(cfg *Config) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("INFERENCE_BASE_URL"); v != "" {
		cfg.Inference.BaseURL = v
	}
	if v := os.Getenv("INFERENCE_API_KEY"); v != "" {
		cfg.Inference.APIKey = v
	}
	if v := os.Getenv("HISTORY_BACKEND"); v != "" {
		cfg.History.Backend = v
	}
	if v := os.Getenv("DATABASE_USERNAME"); v != "" {
		cfg.DB.Username = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		cfg.DB.Password = v
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		cfg.DB.DSN = dsn
	}
}

// applyDefaults 对未配置的字段设置默认值
func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	cfg.Server.Addr = fmt.Sprintf(":%d", cfg.Server.Port)

	if cfg.Inference.BaseURL == "" {
		cfg.Inference.BaseURL = "http://localhost:8000"
	}
	if cfg.Inference.Path == "" {
		cfg.Inference.Path = "/api/query"
	}
	if cfg.Inference.TimeoutSec <= 0 {
		cfg.Inference.TimeoutSec = 60
	}
	if len(cfg.Inference.AnswerFields) == 0 {
		cfg.Inference.AnswerFields = []string{"answer", "response", "result", "text"}
	}
	if cfg.Inference.Breaker.MaxFailures == 0 {
		cfg.Inference.Breaker.MaxFailures = 5
	}
	if cfg.Inference.Breaker.OpenSec <= 0 {
		cfg.Inference.Breaker.OpenSec = 30
	}
	if cfg.LLM.MaxConcurrency <= 0 {
		cfg.LLM.MaxConcurrency = 5
	}

	if cfg.Extraction.MaxPages <= 0 {
		cfg.Extraction.MaxPages = 10
	}
	if cfg.Extraction.MaxChars <= 0 {
		cfg.Extraction.MaxChars = 20000
	}
	if cfg.Extraction.TesseractPath == "" {
		cfg.Extraction.TesseractPath = "tesseract"
	}
	if cfg.Extraction.PdftoppmPath == "" {
		cfg.Extraction.PdftoppmPath = "pdftoppm"
	}
	if cfg.Extraction.OCRLanguage == "" {
		cfg.Extraction.OCRLanguage = "eng"
	}

	if cfg.Upload.Dir == "" {
		cfg.Upload.Dir = "uploads"
	}
	if cfg.Upload.MaxSizeMB <= 0 {
		cfg.Upload.MaxSizeMB = 10
	}
	if len(cfg.Upload.AllowExts) == 0 {
		cfg.Upload.AllowExts = []string{".pdf", ".txt", ".png", ".jpg", ".jpeg"}
	}

	if cfg.Jobs.TimeoutSec <= 0 {
		cfg.Jobs.TimeoutSec = 180
	}
	if cfg.Jobs.RetentionMin <= 0 {
		cfg.Jobs.RetentionMin = 60
	}
	if cfg.Jobs.SweepIntervalSec <= 0 {
		cfg.Jobs.SweepIntervalSec = 60
	}

	if cfg.History.Backend == "" {
		cfg.History.Backend = "memory"
	}
	if cfg.History.DefaultLimit <= 0 {
		cfg.History.DefaultLimit = 20
	}
	if cfg.History.MaxLimit <= 0 {
		cfg.History.MaxLimit = 100
	}
	if cfg.Chat.MaxTurns <= 0 {
		cfg.Chat.MaxTurns = 20
	}
	if cfg.RateLimit.RequestsPerMinute <= 0 {
		cfg.RateLimit.RequestsPerMinute = 30
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}

	// 计算 DB.DSN 字段
	if cfg.DB.DSN == "" && cfg.DB.Host != "" {
		if cfg.DB.Charset == "" {
			cfg.DB.Charset = "utf8mb4"
		}
		if cfg.DB.Port <= 0 {
			cfg.DB.Port = 3306
		}
		cfg.DB.DSN = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=true",
			cfg.DB.Username,
			cfg.DB.Password,
			cfg.DB.Host,
			cfg.DB.Port,
			cfg.DB.Database,
			cfg.DB.Charset)
	}
}
