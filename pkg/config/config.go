// Package config 提供 TOML 配置加载、环境变量覆盖与启动期校验
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config 服务配置
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 服务版本
	Version string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// 数据库配置
	Database DatabaseConfig `mapstructure:"database"`
	// Redis 配置
	Redis RedisConfig `mapstructure:"redis"`
	// Kafka 配置
	Kafka KafkaConfig `mapstructure:"kafka"`
	// 日志配置
	Logger LoggerConfig `mapstructure:"logger"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
	// 历史数据集配置
	Dataset DatasetConfig `mapstructure:"dataset"`
	// 模拟引擎配置
	Simulation SimulationConfig `mapstructure:"simulation"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	// 监听地址
	Host string `mapstructure:"host"`
	// 监听端口
	Port int `mapstructure:"port"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
	// 限流速率（每秒请求数），0 表示关闭
	RateLimit int `mapstructure:"rate_limit"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 数据源名称
	DSN string `mapstructure:"dsn"`
	// 最大连接数
	MaxOpenConns int `mapstructure:"max_open_conns"`
	// 最大空闲连接数
	MaxIdleConns int `mapstructure:"max_idle_conns"`
	// 连接最大生命周期（秒）
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime"`
	// 是否启用 SQL 日志
	LogEnabled bool `mapstructure:"log_enabled"`
	// 慢查询阈值（毫秒）
	SlowQueryThreshold int `mapstructure:"slow_query_threshold"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 主机地址
	Host string `mapstructure:"host"`
	// 端口
	Port int `mapstructure:"port"`
	// 密码
	Password string `mapstructure:"password"`
	// 数据库编号
	DB int `mapstructure:"db"`
	// 最大连接数
	MaxPoolSize int `mapstructure:"max_pool_size"`
	// 结果缓存 TTL（秒）
	ResultTTL int `mapstructure:"result_ttl"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	// Broker 地址列表
	Brokers []string `mapstructure:"brokers"`
	// 批次完成事件主题
	CompletedTopic string `mapstructure:"completed_topic"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	// 日志级别
	Level string `mapstructure:"level"`
	// 输出格式：json, text
	Format string `mapstructure:"format"`
	// 输出目标：stdout, file
	Output string `mapstructure:"output"`
	// 文件路径
	FilePath string `mapstructure:"file_path"`
	// 最大文件大小（MB）
	MaxSize int `mapstructure:"max_size"`
	// 最大备份文件数
	MaxBackups int `mapstructure:"max_backups"`
	// 最大保留天数
	MaxAge int `mapstructure:"max_age"`
	// 是否压缩
	Compress bool `mapstructure:"compress"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `mapstructure:"enabled"`
	// Prometheus 监听端口
	Port int `mapstructure:"port"`
	// 指标路径
	Path string `mapstructure:"path"`
}

// DatasetConfig 历史数据集配置：三条已清洗的月度变化 CSV
type DatasetConfig struct {
	// 房价月度环比变化
	PropertyCSV string `mapstructure:"property_csv"`
	// CPI 月度变化
	CPICSV string `mapstructure:"cpi_csv"`
	// 按揭利率月度变化
	MortgageRateCSV string `mapstructure:"mortgage_rate_csv"`
}

// SimulationConfig 模拟引擎默认参数，单次请求可覆盖其中的业务字段
type SimulationConfig struct {
	// 每个目标年份的场景数
	ScenariosPerYear int `mapstructure:"scenarios_per_year"`
	// 候选目标清偿年份上限
	MaxRepaymentYear int `mapstructure:"max_repayment_year"`
	// 历史回看窗口（年），0 表示全部历史
	LookbackYears int `mapstructure:"lookback_years"`
	// 并行 worker 数，0 表示使用 GOMAXPROCS
	Workers int `mapstructure:"workers"`
	// 方案利差
	SchemeMargin float64 `mapstructure:"scheme_margin"`
	// 免息期月数
	InterestFreeMonths int `mapstructure:"interest_free_months"`
	// 行政费
	AdminFee float64 `mapstructure:"admin_fee"`
	// 免息期月度管理费
	ManagementFee float64 `mapstructure:"management_fee"`
	// 按揭总期限（年）
	MortgageTermYears int `mapstructure:"mortgage_term_years"`
}

// Load 从 TOML 文件加载配置，环境变量（APP_ 前缀）覆盖同名项
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate 验证配置的有效性，任何越界项在进程启动前报错
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	if c.Dataset.PropertyCSV == "" || c.Dataset.CPICSV == "" || c.Dataset.MortgageRateCSV == "" {
		return fmt.Errorf("dataset requires property_csv, cpi_csv and mortgage_rate_csv")
	}
	if c.Simulation.ScenariosPerYear <= 0 {
		return fmt.Errorf("simulation.scenarios_per_year must be positive: %d", c.Simulation.ScenariosPerYear)
	}
	if c.Simulation.MaxRepaymentYear < 1 || c.Simulation.MaxRepaymentYear > 30 {
		return fmt.Errorf("simulation.max_repayment_year must be in [1,30]: %d", c.Simulation.MaxRepaymentYear)
	}
	if c.Simulation.LookbackYears < 0 || c.Simulation.LookbackYears > 100 {
		return fmt.Errorf("simulation.lookback_years must be in [0,100]: %d", c.Simulation.LookbackYears)
	}
	if c.Simulation.Workers < 0 {
		return fmt.Errorf("simulation.workers must be non-negative: %d", c.Simulation.Workers)
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)
	v.SetDefault("http.rate_limit", 0)

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 1000)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_pool_size", 10)
	v.SetDefault("redis.result_ttl", 3600)

	v.SetDefault("kafka.completed_topic", "simulation.completed")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/app.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("simulation.scenarios_per_year", 1000)
	v.SetDefault("simulation.max_repayment_year", 25)
	v.SetDefault("simulation.lookback_years", 0)
	v.SetDefault("simulation.workers", 0)
	v.SetDefault("simulation.scheme_margin", 0.02)
	v.SetDefault("simulation.interest_free_months", 60)
	v.SetDefault("simulation.admin_fee", 200)
	v.SetDefault("simulation.management_fee", 1)
	v.SetDefault("simulation.mortgage_term_years", 35)
}

// GetEnv 获取环境变量，支持默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
