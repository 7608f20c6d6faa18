package room

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/apperrors"
	"github.com/palemoky/call-break/internal/game/engine"
	"github.com/palemoky/call-break/internal/game/rule"
	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/protocol/codec"
	"github.com/palemoky/call-break/internal/protocol/convert"
)

const recordTimeout = 5 * time.Second

// startGame 四个座位就绪后创建状态机并开始第一局
func (r *Room) startGame() error {
	if r.game != nil {
		return apperrors.ErrGameStarted
	}

	var seats [rule.PlayerCount]engine.PlayerSeat
	for i, p := range r.Players {
		if p == nil {
			return apperrors.ErrGameNotStart
		}
		seats[i] = engine.PlayerSeat{ID: p.ID, Name: p.Name, IsBot: p.IsBot, BotLevel: p.BotLevel}
	}

	m, err := engine.NewManager(seats, engine.Options{
		TotalRounds:      r.opts.TotalRounds,
		OptionalTrumping: !r.opts.MandatoryTrumping,
		Solo:             r.Solo,
		Rand:             r.opts.Rand,
	})
	if err != nil {
		return err
	}
	for _, p := range r.Players {
		if p.IsHuman() && !p.Online {
			_ = m.SetConnected(p.Seat, false)
			_ = m.SetAutoPlay(p.Seat, true)
		}
	}
	if err := m.Start(); err != nil {
		return err
	}

	r.game = m
	r.State = RoomStatePlaying
	r.lastActive = time.Now()

	r.broadcast(codec.MustNewMessage(protocol.MsgGameStart, protocol.GameStartPayload{
		RoomCode:    r.Code,
		Players:     r.allPlayersInfo(),
		TotalRounds: m.Options().TotalRounds,
	}))
	r.log.Info("🎮 比赛开始", zap.Bool("solo", r.Solo), zap.Int("rounds", m.Options().TotalRounds))

	r.after()
	return nil
}

// Bid 玩家叫分
func (r *Room) Bid(playerID string, value int) error {
	return r.act(playerID, func(seat int) error { return r.game.Bid(seat, value) })
}

// PlayCard 玩家出牌
func (r *Room) PlayCard(playerID, cardID string) error {
	return r.act(playerID, func(seat int) error { return r.game.PlayCard(seat, cardID) })
}

// NextRound 提前进入下一局
func (r *Room) NextRound(playerID string) error {
	return r.act(playerID, func(int) error { return r.game.NextRound() })
}

// Restart 重新开始比赛
func (r *Room) Restart(playerID string) error {
	return r.act(playerID, func(int) error {
		if err := r.game.Restart(); err != nil {
			return err
		}
		r.State = RoomStatePlaying
		return nil
	})
}

// act 以玩家身份执行一次状态机操作，成功后推送事件与状态
func (r *Room) act(playerID string, f func(seat int) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return apperrors.ErrRoomClosed
	}
	p := r.playerByID(playerID)
	if p == nil || p.Left {
		return apperrors.ErrNotInRoom
	}
	if r.game == nil {
		return apperrors.ErrGameNotStart
	}
	if err := f(p.Seat); err != nil {
		return err
	}
	r.lastActive = time.Now()
	r.after()
	return nil
}

// SyncState 玩家请求全量状态（如检测到版本缺口）
func (r *Room) SyncState(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerByID(playerID)
	if p == nil {
		return apperrors.ErrNotInRoom
	}
	if r.game == nil {
		return apperrors.ErrGameNotStart
	}
	r.sendFullState(p)
	return nil
}

// after 每次状态机变更后：广播事件、落库、推送状态、重新调度
func (r *Room) after() {
	events := r.game.Drain()
	view := r.game.View(engine.Spectator)
	snapshot := false

	for _, e := range events {
		if typ, payload, ok := convert.EventToPayload(e, view); ok {
			r.broadcast(codec.MustNewMessage(typ, payload))
		}
		switch e.Type {
		case engine.EventPhaseChanged:
			snapshot = true
		case engine.EventGameOver:
			r.State = RoomStateEnded
			r.recordResult(e.Standings)
			r.log.Info("🏆 比赛结束", zap.String("winner", e.Standings[0].Name))
		}
	}

	if snapshot {
		r.saveSnapshot()
	}
	r.publishState()
	r.schedule()
}

// recordResult 异步写入比赛结果
func (r *Room) recordResult(standings []engine.Standing) {
	if r.recorder == nil {
		return
	}
	result := GameResult{
		RoomCode:  r.Code,
		Solo:      r.Solo,
		Rounds:    r.game.Options().TotalRounds,
		Standings: slices.Clone(standings),
	}
	recorder, log := r.recorder, r.log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := recorder.RecordGame(ctx, result); err != nil {
			log.Warn("⚠️ 记录比赛结果失败", zap.Error(err))
		}
	}()
}

// saveSnapshot 异步保存房间快照
func (r *Room) saveSnapshot() {
	if r.store == nil {
		return
	}
	data := r.toRoomData()
	store, log := r.store, r.log
	go func() {
		if err := store.SaveRoom(context.Background(), data.Code, data); err != nil {
			log.Warn("⚠️ 保存房间快照失败", zap.Error(err))
		}
	}()
}

// Phase 当前对局阶段，未开始时为 idle
func (r *Room) Phase() engine.Phase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.game == nil {
		return engine.PhaseIdle
	}
	return r.game.Phase()
}
