package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/client"
	"github.com/palemoky/call-break/internal/game/bot"
	"github.com/palemoky/call-break/internal/logger"
	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/protocol/codec"
	"github.com/palemoky/call-break/internal/transport"
)

func main() {
	serverAddr := flag.String("server", "localhost:1780", "服务器地址")
	format := flag.String("codec", "json", "线路编码 json|protobuf")
	roomCode := flag.String("room", "", "加入指定房间；为空时创建单机房间")
	quick := flag.Bool("match", false, "快速匹配")
	level := flag.String("level", "medium", "自己座位使用的策略 easy|medium|hard")
	botLevel := flag.String("bot-level", "", "单机房间里机器人的难度")
	games := flag.Int("games", 1, "连续进行的比赛场数")
	advance := flag.Bool("advance-rounds", false, "由客户端推进下一局")
	logMode := flag.String("log", "debug", "日志模式 debug|release")
	flag.Parse()

	if err := logger.Init(logger.Options{Mode: *logMode}); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Close()
	l := logger.L()

	wire, err := codec.New(*format)
	if err != nil {
		l.Fatal("❌ 不支持的编码", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, l, runOptions{
		url:      fmt.Sprintf("ws://%s/ws", *serverAddr),
		codec:    wire,
		roomCode: *roomCode,
		quick:    *quick,
		level:    bot.Level(*level),
		botLevel: *botLevel,
		games:    *games,
		advance:  *advance,
	}); err != nil {
		l.Error("❌ 客户端退出", zap.Error(err))
		logger.Close()
		os.Exit(1)
	}
}

type runOptions struct {
	url      string
	codec    codec.Codec
	roomCode string
	quick    bool
	level    bot.Level
	botLevel string
	games    int
	advance  bool
}

func run(ctx context.Context, l *zap.Logger, opts runOptions) error {
	monitor := transport.NewMonitor(transport.MonitorOptions{})

	dropped := make(chan struct{}, 1)
	conn := transport.NewClient(transport.ClientOptions{
		URL:        opts.url,
		Codec:      opts.codec,
		Logger:     l,
		OnActivity: monitor.RecordActivity,
		OnDisconnect: func(error) {
			select {
			case dropped <- struct{}{}:
			default:
			}
		},
	})
	defer conn.Close()

	reconnector := transport.NewReconnector(transport.ReconnectOptions{Resume: conn.Resume, Logger: l})
	defer reconnector.Reset()

	finished := 0
	done := make(chan struct{})
	pilot, err := client.NewAutopilot(conn, client.Options{
		Level:             opts.level,
		AutoReady:         true,
		AdvanceRounds:     opts.advance,
		MandatoryTrumping: true,
		Logger:            l,
		OnGameOver: func(standings []protocol.StandingInfo) {
			for _, s := range standings {
				l.Info("🏅 排名",
					zap.Int("place", s.Place),
					zap.String("name", s.Name),
					zap.Bool("bot", s.IsBot),
					zap.Float64("score", s.TotalScore))
			}
			finished++
			switch {
			case finished == opts.games:
				close(done)
			case finished < opts.games:
				if err := conn.Restart(); err != nil {
					l.Warn("⚠️ 重开失败", zap.Error(err))
				}
			}
		},
	})
	if err != nil {
		return err
	}

	if err := conn.Connect(ctx); err != nil {
		return err
	}
	_, _, token := conn.Identity()
	reconnector.SetToken(token)

	monitor.Start(ctx)
	defer monitor.Stop()

	switch {
	case opts.roomCode != "":
		err = conn.JoinRoom(opts.roomCode)
	case opts.quick:
		err = conn.QuickMatch()
	default:
		err = conn.CreateRoom(true, opts.botLevel)
	}
	if err != nil {
		return err
	}

	for {
		select {
		case msg := <-conn.Messages():
			if err := pilot.Handle(msg); err != nil {
				l.Warn("⚠️ 处理消息失败", zap.String("type", string(msg.Type)), zap.Error(err))
			}
			codec.PutMessage(msg)

		case <-dropped:
			pilot.Invalidate()
			reconnector.HandleDisconnect()

		case ev := <-monitor.Events():
			l.Info("📶 连接质量变化", zap.String("from", string(ev.From)), zap.String("to", string(ev.To)), zap.Duration("idle", ev.Elapsed))

		case ev := <-reconnector.Events():
			switch ev.Kind {
			case transport.ReconnectReconnecting:
				l.Info("🔄 正在重连", zap.Int("attempt", ev.Attempt), zap.Duration("delay", ev.Delay))
			case transport.ReconnectSucceeded:
				monitor.RecordActivity()
				l.Info("✅ 已重新连接", zap.String("room", pilot.RoomCode()), zap.Duration("latency", conn.Latency()))
			case transport.ReconnectFailed:
				return fmt.Errorf("会话已丢失: %w", ev.Err)
			}

		case <-done:
			l.Info("👋 比赛完成", zap.Int("games", finished))
			return nil

		case <-ctx.Done():
			return nil
		}
	}
}
