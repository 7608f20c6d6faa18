package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/config"
	"github.com/palemoky/call-break/internal/logger"
	"github.com/palemoky/call-break/internal/server"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（为空时只使用默认值与环境变量）")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("加载配置文件失败，使用默认配置: %v", err)
		cfg = config.Default()
	}

	generated := false
	if cfg.Session.Secret == "" {
		cfg.Session.Secret = randomSecret()
		generated = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("配置无效: %v", err)
	}

	if err := logger.Init(logger.Options{Mode: cfg.Log.Mode, File: cfg.Log.File}); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Close()
	l := logger.L()

	if generated {
		l.Warn("⚠️ 未配置 session.secret，已生成随机密钥；重启后旧的重连令牌将失效")
	}

	// 创建服务器
	srv, err := server.NewServer(cfg, l)
	if err != nil {
		l.Fatal("❌ 创建服务器失败", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("🃏 Call Break 服务器启动中...", zap.String("addr", cfg.Server.Addr()), zap.String("codec", cfg.Codec.Format))
		errCh <- srv.Start()
	}()

	// 优雅关闭：进入维护模式，等待对局结束
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		l.Info("🛑 收到退出信号，开始优雅关闭", zap.String("signal", sig.String()))
		go func() {
			<-quit
			l.Warn("⚠️ 再次收到退出信号，立即关闭")
			srv.Shutdown()
			os.Exit(1)
		}()
		srv.GracefulShutdown(cfg.Game.ShutdownTimeoutDuration())
	case err := <-errCh:
		if err != nil {
			l.Error("❌ 服务器异常退出", zap.Error(err))
			srv.Shutdown()
			return
		}
	}
	l.Info("👋 服务器已关闭")
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("生成随机密钥失败: %v", err)
	}
	return hex.EncodeToString(b)
}
