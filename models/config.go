package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 配置校验错误
var (
	ErrInvalidProvider   = errors.New("models: provider must be openai, gemini or anthropic")
	ErrInvalidLogLevel   = errors.New("logging.level must be debug, info, warn or error")
	ErrInvalidTimeOfDay  = errors.New("schedule time must use HH:MM:SS")
	ErrInvalidWeekday    = errors.New("schedule.weekly_day is not a weekday name")
	ErrNegativeModelSize = errors.New("models: timeout_sec, max_tokens and retry values must not be negative")
)

// 模型提供方
const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// 模型角色
const (
	RoleClassification = "classification"
	RoleRelevance      = "relevance"
	RoleSynthesis      = "synthesis"
)

// AppConfig 应用配置（feeddigest.yaml）
type AppConfig struct {
	Paths    PathsConfig    `yaml:"paths"`
	Models   ModelsConfig   `yaml:"models"`
	Logging  LoggingConfig  `yaml:"logging"`
	Cache    CacheConfig    `yaml:"cache"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Server   ServerConfig   `yaml:"server"`
}

// PathsConfig 文件与目录位置
type PathsConfig struct {
	DataDir         string `yaml:"data_dir"`
	OutputDir       string `yaml:"output_dir"`
	TemplatesDir    string `yaml:"templates_dir"`
	SourcesFile     string `yaml:"sources_file"`
	PreferencesFile string `yaml:"preferences_file"`
	PromptsFile     string `yaml:"prompts_file"`
	DatabaseFile    string `yaml:"database_file"`
}

// GetDataDir 数据目录，默认 ./data
func (p PathsConfig) GetDataDir() string {
	if p.DataDir == "" {
		return "data"
	}
	return p.DataDir
}

// GetOutputDir 输出目录，默认 ./output
func (p PathsConfig) GetOutputDir() string {
	if p.OutputDir == "" {
		return "output"
	}
	return p.OutputDir
}

// GetArchiveDir 归档目录
func (p PathsConfig) GetArchiveDir() string {
	return filepath.Join(p.GetOutputDir(), "archive")
}

func (p PathsConfig) GetSourcesFile() string {
	if p.SourcesFile == "" {
		return filepath.Join(p.GetDataDir(), "sources.json")
	}
	return p.SourcesFile
}

func (p PathsConfig) GetPreferencesFile() string {
	if p.PreferencesFile == "" {
		return filepath.Join(p.GetDataDir(), "preferences.json")
	}
	return p.PreferencesFile
}

func (p PathsConfig) GetPromptsFile() string {
	if p.PromptsFile == "" {
		return filepath.Join(p.GetDataDir(), "prompts.json")
	}
	return p.PromptsFile
}

// GetDatabaseFile 历史与缓存数据库，默认 data/feeddigest.db
func (p PathsConfig) GetDatabaseFile() string {
	if p.DatabaseFile == "" {
		return filepath.Join(p.GetDataDir(), "feeddigest.db")
	}
	return p.DatabaseFile
}

// DataFiles 返回需要监控的数据配置文件
func (p PathsConfig) DataFiles() []string {
	return []string{p.GetSourcesFile(), p.GetPreferencesFile(), p.GetPromptsFile()}
}

// ModelsConfig 三个角色的模型配置
type ModelsConfig struct {
	Classification ModelConfig `yaml:"classification"`
	Relevance      ModelConfig `yaml:"relevance"`
	Synthesis      ModelConfig `yaml:"synthesis"`
}

// ForRole 按角色取模型配置
func (m ModelsConfig) ForRole(role string) ModelConfig {
	switch role {
	case RoleClassification:
		return m.Classification
	case RoleRelevance:
		return m.Relevance
	default:
		return m.Synthesis
	}
}

// ModelConfig 单个模型的连接参数
type ModelConfig struct {
	// openai / gemini / anthropic，默认 openai
	Provider string `yaml:"provider"`
	// 模型名称，为空表示该角色未配置模型
	Model        string  `yaml:"model"`
	APIKey       string  `yaml:"api_key"`
	APIBase      string  `yaml:"api_base"`
	SystemPrompt string  `yaml:"system_prompt"`
	TimeoutSec   int     `yaml:"timeout_sec"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	// 重试次数，默认 2；负数表示不重试
	RetryCount   int `yaml:"retry_count"`
	RetryWaitSec int `yaml:"retry_wait_sec"`
}

// GetProvider 获取提供方，默认为 openai
func (c ModelConfig) GetProvider() string {
	if c.Provider == "" {
		return ProviderOpenAI
	}
	return strings.ToLower(c.Provider)
}

// GetAPIBase 获取 API Base URL
func (c ModelConfig) GetAPIBase() string {
	if c.APIBase != "" {
		return strings.TrimSuffix(c.APIBase, "/")
	}
	switch c.GetProvider() {
	case ProviderAnthropic:
		return "https://api.anthropic.com/v1"
	default:
		return "https://api.openai.com/v1"
	}
}

// GetTimeout 获取超时时间，默认为 60 秒
func (c ModelConfig) GetTimeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

// GetTemperature 获取 temperature，默认为 0.2
func (c ModelConfig) GetTemperature() float64 {
	if c.Temperature == 0 {
		return 0.2
	}
	return c.Temperature
}

// GetMaxTokens 获取最大 token 数，默认为 1024
func (c ModelConfig) GetMaxTokens() int {
	if c.MaxTokens <= 0 {
		return 1024
	}
	return c.MaxTokens
}

// GetRetryCount 获取重试次数，默认为 2
func (c ModelConfig) GetRetryCount() int {
	if c.RetryCount < 0 {
		return 0
	}
	if c.RetryCount == 0 {
		return 2
	}
	return c.RetryCount
}

// GetRetryWait 获取重试等待时间，默认为 2 秒
func (c ModelConfig) GetRetryWait() time.Duration {
	if c.RetryWaitSec <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.RetryWaitSec) * time.Second
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level string `yaml:"level"`
}

func (l LoggingConfig) GetLevel() string {
	if l.Level == "" {
		return "info"
	}
	return strings.ToLower(l.Level)
}

// CacheConfig 缓存配置
type CacheConfig struct {
	// 复用同一链接此前的分类结果
	Classification bool `yaml:"classification"`
}

// ScheduleConfig 定时任务配置
type ScheduleConfig struct {
	DailyAt   string `yaml:"daily_at"`   // HH:MM:SS
	WeeklyDay string `yaml:"weekly_day"` // sunday ... saturday
	WeeklyAt  string `yaml:"weekly_at"`  // HH:MM:SS
}

func (s ScheduleConfig) GetDailyAt() string {
	if s.DailyAt == "" {
		return "07:00:00"
	}
	return s.DailyAt
}

func (s ScheduleConfig) GetWeeklyAt() string {
	if s.WeeklyAt == "" {
		return "08:00:00"
	}
	return s.WeeklyAt
}

// GetWeeklyDay 每周汇总日，默认周日
func (s ScheduleConfig) GetWeeklyDay() time.Weekday {
	if d, ok := parseWeekday(s.WeeklyDay); ok {
		return d
	}
	return time.Sunday
}

// ServerConfig 预览服务配置
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

func (s ServerConfig) GetAddr() string {
	if s.Addr == "" {
		return "127.0.0.1:8080"
	}
	return s.Addr
}

// LoadAppConfig 读取 YAML 应用配置；文件不存在时返回默认配置
func LoadAppConfig(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnv 环境变量补全密钥与模型名称
func (c *AppConfig) applyEnv() {
	roles := map[string]*ModelConfig{
		RoleClassification: &c.Models.Classification,
		RoleRelevance:      &c.Models.Relevance,
		RoleSynthesis:      &c.Models.Synthesis,
	}
	for role, mc := range roles {
		if mc.Model == "" {
			mc.Model = os.Getenv("FEEDDIGEST_MODEL_" + strings.ToUpper(role))
		}
		if mc.APIKey != "" {
			continue
		}
		mc.APIKey = os.Getenv("FEEDDIGEST_API_KEY")
		if mc.APIKey != "" {
			continue
		}
		switch mc.GetProvider() {
		case ProviderGemini:
			mc.APIKey = os.Getenv("GEMINI_API_KEY")
		case ProviderAnthropic:
			mc.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		default:
			mc.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

// Validate 校验配置
func (c *AppConfig) Validate() error {
	for _, role := range []string{RoleClassification, RoleRelevance, RoleSynthesis} {
		mc := c.Models.ForRole(role)
		switch mc.GetProvider() {
		case ProviderOpenAI, ProviderGemini, ProviderAnthropic:
		default:
			return fmt.Errorf("%s: %w", role, ErrInvalidProvider)
		}
		if mc.TimeoutSec < 0 || mc.MaxTokens < 0 || mc.RetryWaitSec < 0 {
			return fmt.Errorf("%s: %w", role, ErrNegativeModelSize)
		}
	}
	switch c.Logging.GetLevel() {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	for _, v := range []string{c.Schedule.GetDailyAt(), c.Schedule.GetWeeklyAt()} {
		if _, err := time.Parse("15:04:05", v); err != nil {
			return fmt.Errorf("%q: %w", v, ErrInvalidTimeOfDay)
		}
	}
	if c.Schedule.WeeklyDay != "" {
		if _, ok := parseWeekday(c.Schedule.WeeklyDay); !ok {
			return fmt.Errorf("%q: %w", c.Schedule.WeeklyDay, ErrInvalidWeekday)
		}
	}
	return nil
}

func parseWeekday(name string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), strings.TrimSpace(name)) {
			return d, true
		}
	}
	return time.Sunday, false
}
