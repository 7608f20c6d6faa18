package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/game/room"
	"github.com/palemoky/call-break/internal/server/storage"
)

// MatchSaver 比赛历史写入
type MatchSaver interface {
	SaveMatch(ctx context.Context, record *storage.MatchRecord) error
}

// ResultRecorder 排行榜写入
type ResultRecorder interface {
	RecordGameResult(ctx context.Context, r storage.GameResult) error
}

// GameRecorder 比赛结束后写入历史与排行榜
type GameRecorder struct {
	history     MatchSaver
	leaderboard ResultRecorder
	log         *zap.Logger
	now         func() time.Time
}

// NewGameRecorder 创建结果记录器，history 与 leaderboard 均可为空
func NewGameRecorder(history MatchSaver, leaderboard ResultRecorder, log *zap.Logger) *GameRecorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &GameRecorder{history: history, leaderboard: leaderboard, log: log, now: time.Now}
}

// RecordGame 全机器人对局不记录；单机对局只进历史，不计入排行榜
func (gr *GameRecorder) RecordGame(ctx context.Context, result room.GameResult) error {
	humans := 0
	for _, s := range result.Standings {
		if !s.IsBot {
			humans++
		}
	}
	if humans == 0 {
		return nil
	}

	var errs []error
	if gr.history != nil {
		record := &storage.MatchRecord{
			RoomCode:   result.RoomCode,
			Rounds:     result.Rounds,
			Solo:       result.Solo,
			FinishedAt: gr.now(),
		}
		for _, s := range result.Standings {
			record.Players = append(record.Players, storage.MatchPlayerRecord{
				PlayerID:    s.PlayerID,
				Name:        s.Name,
				Seat:        s.Seat,
				IsBot:       s.IsBot,
				Place:       s.Place,
				ScoreTenths: s.TotalScore.Tenths(),
			})
		}
		if err := gr.history.SaveMatch(ctx, record); err != nil {
			errs = append(errs, fmt.Errorf("保存比赛历史失败: %w", err))
		}
	}

	if gr.leaderboard != nil && !result.Solo {
		for _, s := range result.Standings {
			if s.IsBot {
				continue
			}
			err := gr.leaderboard.RecordGameResult(ctx, storage.GameResult{
				PlayerID:   s.PlayerID,
				PlayerName: s.Name,
				Place:      s.Place,
				Points:     s.TotalScore.Tenths(),
			})
			if err != nil {
				errs = append(errs, fmt.Errorf("更新排行榜失败 %s: %w", s.PlayerID, err))
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	gr.log.Info("🏁 比赛结果已记录",
		zap.String("room", result.RoomCode),
		zap.Int("humans", humans),
		zap.Bool("solo", result.Solo))
	return nil
}
