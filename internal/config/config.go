package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 服务账号所需的 Google API 权限范围（固定，不可配置）
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/admin.directory.user.readonly",
	"https://www.googleapis.com/auth/bigquery",
}

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// GoogleConfig 定义 Google Workspace 接入配置
type GoogleConfig struct {
	CredentialsFile   string  // 服务账号密钥 JSON 文件路径
	AdminEmail        string  // 域管理员邮箱，用于委派目录读取权限
	RequestsPerSecond float64 // Gmail API 调用速率上限（每秒），默认 10
}

// BigQueryConfig 定义分析目标表配置
type BigQueryConfig struct {
	ProjectID string // GCP 项目 ID；为空时使用内存 Sink（仅开发/测试）
	DatasetID string // 数据集 ID，默认 "gmail_analytics"
	TableID   string // 表 ID，默认 "messages"
	BatchSize int    // 单次批量插入的最大行数，默认 500
}

// ScrapeConfig 定义抓取流程的核心参数
type ScrapeConfig struct {
	DefaultQuery    string // 默认 Gmail 搜索查询，默认为空（全量）
	MaxPerUser      int    // 每用户最多抓取的邮件数，默认 100
	UserPageSize    int64  // 目录列表每页条数，固定上限 500
	MessagePageSize int64  // 邮件列表每页条数上限，默认 100
	Incremental     bool   // 是否启用增量抓取（按用户水位线）
}

// RedisConfig 定义 Redis 水位线存储配置
type RedisConfig struct {
	Address  string // Redis 服务地址；为空时水位线仅存内存
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
}

// TriggerConfig 定义触发接口的访问控制配置
type TriggerConfig struct {
	Token string // 共享密钥；为空时触发接口不做鉴权
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	LogFile     string // 日志文件路径；为空时仅输出到控制台
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server   ServerConfig
	Google   GoogleConfig
	BigQuery BigQueryConfig
	Scrape   ScrapeConfig
	Redis    RedisConfig
	Trigger  TriggerConfig
	CORS     CORSConfig
	Log      LogConfig
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: SCRAPER_
// 例如: SCRAPER_BIGQUERY_PROJECT_ID, SCRAPER_GOOGLE_ADMIN_EMAIL
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	viper.SetEnvPrefix("scraper")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("google.credentials_file", "service-account-key.json")
	viper.SetDefault("google.admin_email", "")
	viper.SetDefault("google.requests_per_second", 10.0)
	viper.SetDefault("bigquery.project_id", "")
	viper.SetDefault("bigquery.dataset_id", "gmail_analytics")
	viper.SetDefault("bigquery.table_id", "messages")
	viper.SetDefault("bigquery.batch_size", 500)
	viper.SetDefault("scrape.default_query", "")
	viper.SetDefault("scrape.max_per_user", 100)
	viper.SetDefault("scrape.message_page_size", 100)
	viper.SetDefault("scrape.incremental", false)
	viper.SetDefault("redis.address", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("trigger.token", "")
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("log.file", "")

	maxPerUser := viper.GetInt("scrape.max_per_user")
	if maxPerUser <= 0 {
		return nil, fmt.Errorf("scrape.max_per_user must be positive, got %d", maxPerUser)
	}

	messagePageSize := viper.GetInt64("scrape.message_page_size")
	if messagePageSize <= 0 || messagePageSize > 500 {
		messagePageSize = 100
	}

	batchSize := viper.GetInt("bigquery.batch_size")
	if batchSize <= 0 {
		batchSize = 500
	}

	rps := viper.GetFloat64("google.requests_per_second")
	if rps <= 0 {
		rps = 10.0
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Google: GoogleConfig{
			CredentialsFile:   viper.GetString("google.credentials_file"),
			AdminEmail:        viper.GetString("google.admin_email"),
			RequestsPerSecond: rps,
		},
		BigQuery: BigQueryConfig{
			ProjectID: viper.GetString("bigquery.project_id"),
			DatasetID: viper.GetString("bigquery.dataset_id"),
			TableID:   viper.GetString("bigquery.table_id"),
			BatchSize: batchSize,
		},
		Scrape: ScrapeConfig{
			DefaultQuery:    viper.GetString("scrape.default_query"),
			MaxPerUser:      maxPerUser,
			UserPageSize:    500,
			MessagePageSize: messagePageSize,
			Incremental:     viper.GetBool("scrape.incremental"),
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Trigger: TriggerConfig{
			Token: viper.GetString("trigger.token"),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
			LogFile:     viper.GetString("log.file"),
		},
	}

	return cfg, nil
}

// ValidateForRun 校验执行一次完整抓取所需的配置项
//
// Load 本身保持宽松（便于只跑健康检查等场景），
// 真正触发抓取前由调用方显式校验。
func (c *Config) ValidateForRun() error {
	if c.Google.AdminEmail == "" {
		return fmt.Errorf("google.admin_email is required to list domain users")
	}
	if c.Google.CredentialsFile == "" {
		return fmt.Errorf("google.credentials_file is required")
	}
	if _, err := os.Stat(c.Google.CredentialsFile); err != nil {
		return fmt.Errorf("google.credentials_file not readable: %w", err)
	}
	if c.BigQuery.ProjectID == "" {
		return fmt.Errorf("bigquery.project_id is required to write records")
	}
	return nil
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 加载顺序：
//  1. 当前目录的 .env
//  2. 父目录的 .env（从子目录运行时）
//
// 如果文件不存在，静默失败；已存在的环境变量优先级更高。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
