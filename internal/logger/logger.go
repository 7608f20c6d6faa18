package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const maxLogSize = 10 * 1024 * 1024

var logPath string

// Options 日志配置
type Options struct {
	Mode string // release 使用 JSON 生产配置，其余为彩色开发配置
	File string // 可选，额外追加写入的日志文件
}

// Init 初始化全局 zap logger
func Init(opts Options) error {
	var config zap.Config
	if opts.Mode == "release" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.OutputPaths = []string{"stdout"}

	if opts.File != "" {
		if err := prepareFile(opts.File); err != nil {
			return err
		}
		if opts.Mode != "release" {
			// 文件里不需要颜色转义
			config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		}
		config.OutputPaths = append(config.OutputPaths, opts.File)
		logPath = opts.File
	}

	l, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	zap.ReplaceGlobals(l)

	LogInfo("📝 Logger initialized, mode=%s file=%s", opts.Mode, opts.File)
	return nil
}

// prepareFile 创建日志目录，文件超过 10MB 时先轮转
func prepareFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if info, err := os.Stat(path); err == nil && info.Size() > maxLogSize {
		backupPath := fmt.Sprintf("%s.%d", path, time.Now().Unix())
		if err := os.Rename(path, backupPath); err != nil {
			return fmt.Errorf("failed to rotate log file: %w", err)
		}
	}
	return nil
}

// L 返回全局 logger，未初始化时为 no-op
func L() *zap.Logger {
	return zap.L()
}

// Close 刷新缓冲
func Close() {
	_ = zap.L().Sync()
}

// LogInfo logs an info message
func LogInfo(format string, args ...any) {
	zap.S().Infof(format, args...)
}

// LogError logs an error message
func LogError(format string, args ...any) {
	zap.S().Errorf(format, args...)
}

// LogPanic logs a panic with stack trace
func LogPanic(r any) {
	zap.L().Error("💥 panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
}

// GetLogPath returns the current log file path
func GetLogPath() string {
	return logPath
}
