package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultHost           = "0.0.0.0"
	defaultPort           = 1780
	defaultMaxConnections = 10000
	defaultServerMode     = "release"
	defaultRedisAddr      = "localhost:6379"

	defaultTotalRounds           = 5
	defaultBotThinkMs            = 800
	defaultTrickCollectMs        = 1200
	defaultRoundEndMs            = 5000
	defaultRoomTimeout           = 10 // 分钟
	defaultOfflineGrace          = 20 // 秒
	defaultAbandonAfter          = 5  // 分钟
	defaultMatchWait             = 15 // 秒
	defaultShutdownTimeout       = 30 // 分钟
	defaultShutdownCheckInterval = 10 // 秒

	defaultTokenTTL        = 30  // 分钟
	defaultReconnectWindow = 120 // 秒

	defaultHistoryDriver = "sqlite"
	defaultHistoryDSN    = "callbreak.db"
	defaultCodecFormat   = "json"

	defaultConnPerSecond   = 10
	defaultConnPerMinute   = 60
	defaultBanDuration     = 300 // 秒
	defaultMsgPerSecond    = 20
	defaultChatPerSecond   = 1
	defaultChatPerMinute   = 20
	defaultChatCooldown    = 5 // 秒
	defaultLogMode         = "release"
	minSessionSecretLength = 16
)

// Config 服务端配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Game     GameConfig     `yaml:"game"`
	Session  SessionConfig  `yaml:"session"`
	History  HistoryConfig  `yaml:"history"`
	Codec    CodecConfig    `yaml:"codec"`
	Security SecurityConfig `yaml:"security"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig WebSocket 服务器配置
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxConnections int    `yaml:"max_connections"`
	Mode           string `yaml:"mode"` // debug | release，对应 gin 模式
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// GameConfig 游戏节奏与规则
type GameConfig struct {
	TotalRounds           int   `yaml:"total_rounds"`
	MandatoryTrumping     *bool `yaml:"mandatory_trumping"` // 缺门时是否强制出将，默认 true
	AutoNextRound         *bool `yaml:"auto_next_round"`    // 一局结束后自动开下一局，默认 true
	BotThinkMs            int   `yaml:"bot_think_ms"`
	TrickCollectMs        int   `yaml:"trick_collect_ms"`
	RoundEndMs            int   `yaml:"round_end_ms"`
	RoomTimeout           int   `yaml:"room_timeout"`            // 房间等待超时（分钟）
	OfflineGrace          int   `yaml:"offline_grace"`           // 掉线托管宽限（秒）
	AbandonAfter          int   `yaml:"abandon_after"`           // 无真人在线回收房间（分钟）
	MatchWait             int   `yaml:"match_wait"`              // 匹配等待后补机器人（秒）
	ShutdownTimeout       int   `yaml:"shutdown_timeout"`        // 优雅关闭最长等待（分钟）
	ShutdownCheckInterval int   `yaml:"shutdown_check_interval"` // 优雅关闭检查间隔（秒）
}

// SessionConfig 断线重连会话
type SessionConfig struct {
	Secret          string `yaml:"secret"`           // 重连令牌签名密钥
	TokenTTL        int    `yaml:"token_ttl"`        // 令牌有效期（分钟）
	ReconnectWindow int    `yaml:"reconnect_window"` // 断线后保留会话（秒）
}

// HistoryConfig 比赛历史数据库
type HistoryConfig struct {
	Driver string `yaml:"driver"` // sqlite | postgres | mysql
	DSN    string `yaml:"dsn"`
}

// CodecConfig 线路编码
type CodecConfig struct {
	Format string `yaml:"format"` // json | protobuf
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	AllowedOrigins []string           `yaml:"allowed_origins"`
	RateLimit      RateLimitConfig    `yaml:"rate_limit"`
	MessageLimit   MessageLimitConfig `yaml:"message_limit"`
	ChatLimit      ChatLimitConfig    `yaml:"chat_limit"`
}

// RateLimitConfig 连接速率限制（按 IP）
type RateLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
	MaxPerMinute int `yaml:"max_per_minute"`
	BanDuration  int `yaml:"ban_duration"` // 秒
}

// MessageLimitConfig 消息速率限制（按连接）
type MessageLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
}

// ChatLimitConfig 聊天速率限制
type ChatLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
	MaxPerMinute int `yaml:"max_per_minute"`
	Cooldown     int `yaml:"cooldown"` // 秒
}

// LogConfig 日志配置
type LogConfig struct {
	Mode string `yaml:"mode"` // debug | release
	File string `yaml:"file"`
}

// BotThinkDuration 机器人思考时间
func (c *GameConfig) BotThinkDuration() time.Duration {
	return time.Duration(c.BotThinkMs) * time.Millisecond
}

// TrickCollectDuration 一墩结束后的展示时间
func (c *GameConfig) TrickCollectDuration() time.Duration {
	return time.Duration(c.TrickCollectMs) * time.Millisecond
}

// RoundEndDuration 一局结束后自动开局的等待时间
func (c *GameConfig) RoundEndDuration() time.Duration {
	return time.Duration(c.RoundEndMs) * time.Millisecond
}

// RoomTimeoutDuration 返回房间等待超时时长
func (c *GameConfig) RoomTimeoutDuration() time.Duration {
	return time.Duration(c.RoomTimeout) * time.Minute
}

// OfflineGraceDuration 掉线托管宽限
func (c *GameConfig) OfflineGraceDuration() time.Duration {
	return time.Duration(c.OfflineGrace) * time.Second
}

// AbandonAfterDuration 无真人在线多久回收房间
func (c *GameConfig) AbandonAfterDuration() time.Duration {
	return time.Duration(c.AbandonAfter) * time.Minute
}

// MatchWaitDuration 匹配等待时长
func (c *GameConfig) MatchWaitDuration() time.Duration {
	return time.Duration(c.MatchWait) * time.Second
}

// ShutdownTimeoutDuration 优雅关闭最长等待
func (c *GameConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Minute
}

// ShutdownCheckIntervalDuration 优雅关闭检查间隔
func (c *GameConfig) ShutdownCheckIntervalDuration() time.Duration {
	return time.Duration(c.ShutdownCheckInterval) * time.Second
}

// MandatoryTrumpingEnabled 缺门时是否强制出将
func (c *GameConfig) MandatoryTrumpingEnabled() bool {
	return c.MandatoryTrumping == nil || *c.MandatoryTrumping
}

// AutoNextRoundEnabled 是否自动进入下一局
func (c *GameConfig) AutoNextRoundEnabled() bool {
	return c.AutoNextRound == nil || *c.AutoNextRound
}

// TokenTTLDuration 令牌有效期
func (c *SessionConfig) TokenTTLDuration() time.Duration {
	return time.Duration(c.TokenTTL) * time.Minute
}

// ReconnectWindowDuration 断线重连窗口
func (c *SessionConfig) ReconnectWindowDuration() time.Duration {
	return time.Duration(c.ReconnectWindow) * time.Second
}

// BanDurationTime 封禁时长
func (c *RateLimitConfig) BanDurationTime() time.Duration {
	return time.Duration(c.BanDuration) * time.Second
}

// CooldownDuration 聊天冷却时长
func (c *ChatLimitConfig) CooldownDuration() time.Duration {
	return time.Duration(c.Cooldown) * time.Second
}

// Addr 监听地址
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load 加载配置文件，随后应用默认值与环境变量
// path 为空时只使用默认值与环境变量
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	setDefault(&c.Server.Host, defaultHost)
	setDefault(&c.Server.Port, defaultPort)
	setDefault(&c.Server.MaxConnections, defaultMaxConnections)
	setDefault(&c.Server.Mode, defaultServerMode)
	setDefault(&c.Redis.Addr, defaultRedisAddr)

	setDefault(&c.Game.TotalRounds, defaultTotalRounds)
	setDefault(&c.Game.BotThinkMs, defaultBotThinkMs)
	setDefault(&c.Game.TrickCollectMs, defaultTrickCollectMs)
	setDefault(&c.Game.RoundEndMs, defaultRoundEndMs)
	setDefault(&c.Game.RoomTimeout, defaultRoomTimeout)
	setDefault(&c.Game.OfflineGrace, defaultOfflineGrace)
	setDefault(&c.Game.AbandonAfter, defaultAbandonAfter)
	setDefault(&c.Game.MatchWait, defaultMatchWait)
	setDefault(&c.Game.ShutdownTimeout, defaultShutdownTimeout)
	setDefault(&c.Game.ShutdownCheckInterval, defaultShutdownCheckInterval)

	setDefault(&c.Session.TokenTTL, defaultTokenTTL)
	setDefault(&c.Session.ReconnectWindow, defaultReconnectWindow)

	setDefault(&c.History.Driver, defaultHistoryDriver)
	setDefault(&c.History.DSN, defaultHistoryDSN)
	setDefault(&c.Codec.Format, defaultCodecFormat)

	if len(c.Security.AllowedOrigins) == 0 {
		c.Security.AllowedOrigins = []string{"*"}
	}
	setDefault(&c.Security.RateLimit.MaxPerSecond, defaultConnPerSecond)
	setDefault(&c.Security.RateLimit.MaxPerMinute, defaultConnPerMinute)
	setDefault(&c.Security.RateLimit.BanDuration, defaultBanDuration)
	setDefault(&c.Security.MessageLimit.MaxPerSecond, defaultMsgPerSecond)
	setDefault(&c.Security.ChatLimit.MaxPerSecond, defaultChatPerSecond)
	setDefault(&c.Security.ChatLimit.MaxPerMinute, defaultChatPerMinute)
	setDefault(&c.Security.ChatLimit.Cooldown, defaultChatCooldown)

	setDefault(&c.Log.Mode, defaultLogMode)
}

// applyEnv 环境变量覆盖配置文件
func (c *Config) applyEnv() error {
	envString("SERVER_HOST", &c.Server.Host)
	envString("SERVER_MODE", &c.Server.Mode)
	envString("REDIS_ADDR", &c.Redis.Addr)
	envString("REDIS_PASSWORD", &c.Redis.Password)
	envString("HISTORY_DRIVER", &c.History.Driver)
	envString("HISTORY_DSN", &c.History.DSN)
	envString("SESSION_SECRET", &c.Session.Secret)
	envString("CODEC_FORMAT", &c.Codec.Format)
	envString("LOG_MODE", &c.Log.Mode)
	envString("LOG_FILE", &c.Log.File)

	for key, dst := range map[string]*int{
		"SERVER_PORT":       &c.Server.Port,
		"REDIS_DB":          &c.Redis.DB,
		"GAME_TOTAL_ROUNDS": &c.Game.TotalRounds,
		"GAME_BOT_THINK_MS": &c.Game.BotThinkMs,
	} {
		if err := envInt(key, dst); err != nil {
			return err
		}
	}

	if v := os.Getenv("SECURITY_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		c.Security.AllowedOrigins = origins
	}
	return nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port 无效: %d", c.Server.Port))
	}
	if c.Server.MaxConnections <= 0 {
		errs = append(errs, errors.New("server.max_connections 必须大于 0"))
	}
	if c.Game.TotalRounds <= 0 {
		errs = append(errs, errors.New("game.total_rounds 必须大于 0"))
	}
	if len(c.Session.Secret) < minSessionSecretLength {
		errs = append(errs, fmt.Errorf("session.secret 至少需要 %d 个字符", minSessionSecretLength))
	}
	switch c.History.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		errs = append(errs, fmt.Errorf("history.driver 不支持: %s", c.History.Driver))
	}
	switch c.Codec.Format {
	case "json", "protobuf":
	default:
		errs = append(errs, fmt.Errorf("codec.format 不支持: %s", c.Codec.Format))
	}
	return errors.Join(errs...)
}

func setDefault[T comparable](dst *T, v T) {
	var zero T
	if *dst == zero {
		*dst = v
	}
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("环境变量 %s 不是整数: %w", key, err)
	}
	*dst = n
	return nil
}
