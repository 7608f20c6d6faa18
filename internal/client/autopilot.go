// Package client 无头客户端：维护状态副本，轮到自己时用机器人策略自动行动
package client

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/game/bot"
	"github.com/palemoky/call-break/internal/game/card"
	"github.com/palemoky/call-break/internal/game/rule"
	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/protocol/codec"
	"github.com/palemoky/call-break/internal/protocol/convert"
	"github.com/palemoky/call-break/internal/protocol/replica"
)

const (
	phaseBidding  = "bidding"
	phasePlaying  = "playing"
	phaseRoundEnd = "roundEnd"
)

// Sender 自动驾驶用到的客户端操作，transport.Client 实现了它
type Sender interface {
	Ready() error
	Bid(value int) error
	PlayCard(cardID string) error
	NextRound() error
	SyncRequest(version int64) error
}

// Options 自动驾驶配置
type Options struct {
	Level             bot.Level
	AutoReady         bool // 加入联机房间后自动准备
	AdvanceRounds     bool // 服务端未开启自动下一局时由客户端推进
	MandatoryTrumping bool
	Logger            *zap.Logger
	OnGameOver        func(standings []protocol.StandingInfo)
}

// Autopilot 消费服务端消息，在自己的回合叫分或出牌
//
// Handle 不是并发安全的，应在单个协程中调用。
type Autopilot struct {
	opts    Options
	log     *zap.Logger
	brain   bot.Brain
	sender  Sender
	replica replica.Replica
	counter *CardCounter

	roomCode  string
	round     int
	lastActed string
}

// NewAutopilot 创建自动驾驶
func NewAutopilot(sender Sender, opts Options) (*Autopilot, error) {
	level, err := bot.ParseLevel(string(opts.Level))
	if err != nil {
		return nil, err
	}
	brain, err := bot.NewBrain(level)
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Autopilot{
		opts:    opts,
		log:     log,
		brain:   brain,
		sender:  sender,
		counter: NewCardCounter(),
	}, nil
}

// RoomCode 当前房间号
func (a *Autopilot) RoomCode() string {
	return a.roomCode
}

// State 当前状态副本
func (a *Autopilot) State() (protocol.GameStateDTO, bool) {
	return a.replica.State()
}

// Counter 记牌器
func (a *Autopilot) Counter() *CardCounter {
	return a.counter
}

// Invalidate 断线时丢弃副本，等待重连后的全量同步
func (a *Autopilot) Invalidate() {
	a.replica.Invalidate()
	a.lastActed = ""
}

// Handle 处理一条服务端消息
func (a *Autopilot) Handle(msg *protocol.Message) error {
	switch msg.Type {
	case protocol.MsgRoomCreated:
		p, err := codec.ParsePayload[protocol.RoomCreatedPayload](msg)
		if err != nil {
			return err
		}
		a.roomCode = p.RoomCode
		a.log.Info("🏠 房间已创建", zap.String("room", p.RoomCode), zap.Bool("solo", p.Solo))
		if a.opts.AutoReady && !p.Solo {
			return a.sender.Ready()
		}

	case protocol.MsgRoomJoined:
		p, err := codec.ParsePayload[protocol.RoomJoinedPayload](msg)
		if err != nil {
			return err
		}
		a.roomCode = p.RoomCode
		a.log.Info("🚪 已加入房间", zap.String("room", p.RoomCode), zap.Int("seat", p.Player.Seat))
		if a.opts.AutoReady {
			return a.sender.Ready()
		}

	case protocol.MsgMatchFound:
		p, err := codec.ParsePayload[protocol.MatchFoundPayload](msg)
		if err != nil {
			return err
		}
		a.roomCode = p.RoomCode
		a.log.Info("🎯 匹配成功", zap.String("room", p.RoomCode))

	case protocol.MsgRoomClosed:
		a.roomCode = ""
		a.Invalidate()

	case protocol.MsgReconnected:
		p, err := codec.ParsePayload[protocol.ReconnectedPayload](msg)
		if err != nil {
			return err
		}
		a.roomCode = p.RoomCode
		if p.State != nil {
			return a.sync(*p.State)
		}

	case protocol.MsgStateSync:
		p, err := codec.ParsePayload[protocol.GameStateDTO](msg)
		if err != nil {
			return err
		}
		return a.sync(*p)

	case protocol.MsgStatePatch:
		p, err := codec.ParsePayload[protocol.StatePatch](msg)
		if err != nil {
			return err
		}
		if err := a.replica.Apply(*p); err != nil {
			if errors.Is(err, replica.ErrVersionGap) || errors.Is(err, replica.ErrPlayerMismatch) {
				a.log.Debug("增量不连续，请求全量同步", zap.Error(err))
				a.replica.Invalidate()
				return a.sender.SyncRequest(a.replica.Version())
			}
			return err
		}
		state, _ := a.replica.State()
		return a.act(state)

	case protocol.MsgCardPlayed:
		p, err := codec.ParsePayload[protocol.CardPlayedPayload](msg)
		if err != nil {
			return err
		}
		if c, err := convert.InfoToCard(p.Card); err == nil {
			a.counter.Observe(c)
		}

	case protocol.MsgGameOver:
		p, err := codec.ParsePayload[protocol.GameOverPayload](msg)
		if err != nil {
			return err
		}
		a.log.Info("🏁 比赛结束", zap.Any("standings", p.Standings))
		if a.opts.OnGameOver != nil {
			a.opts.OnGameOver(p.Standings)
		}

	case protocol.MsgError:
		p, err := codec.ParsePayload[protocol.ErrorPayload](msg)
		if err != nil {
			return err
		}
		a.log.Warn("⚠️ 服务端拒绝操作", zap.Int("code", p.Code), zap.String("message", p.Message))
	}
	return nil
}

func (a *Autopilot) sync(state protocol.GameStateDTO) error {
	a.replica.Sync(state)
	// 断线期间的出牌无法补记，只能从当前墩重新开始
	a.counter.Reset()
	a.round = state.CurrentRound
	for _, e := range state.CurrentTrick {
		if c, err := convert.InfoToCard(e.Card); err == nil {
			a.counter.Observe(c)
		}
	}
	return a.act(state)
}

func (a *Autopilot) act(state protocol.GameStateDTO) error {
	if state.CurrentRound != a.round || (state.Phase == phaseBidding && a.counter.Played() > 0) {
		a.counter.Reset()
		a.round = state.CurrentRound
	}

	key := fmt.Sprintf("%s/%d/%d/%d", state.Phase, state.CurrentRound, state.TrickNumber, len(state.CurrentTrick))
	if key == a.lastActed {
		return nil
	}

	if state.Phase == phaseRoundEnd {
		if !a.opts.AdvanceRounds {
			return nil
		}
		a.lastActed = key
		return a.sender.NextRound()
	}

	if state.Seat < 0 || state.CurrentTurnSeat != state.Seat {
		return nil
	}

	switch state.Phase {
	case phaseBidding:
		hand, err := convert.InfosToCards(state.Hand)
		if err != nil {
			return err
		}
		value := a.brain.Bid(hand)
		a.lastActed = key
		a.log.Debug("🤖 自动叫分", zap.Int("round", state.CurrentRound), zap.Int("bid", value))
		return a.sender.Bid(value)

	case phasePlaying:
		c, err := a.chooseCard(state)
		if err != nil {
			return err
		}
		a.lastActed = key
		a.log.Debug("🤖 自动出牌",
			zap.String("card", c),
			zap.Int("trick", state.TrickNumber+1),
			zap.Int("trumps_out", a.counter.Remaining(card.Trump)))
		return a.sender.PlayCard(c)
	}
	return nil
}

func (a *Autopilot) chooseCard(state protocol.GameStateDTO) (string, error) {
	hand, err := convert.InfosToCards(state.Hand)
	if err != nil {
		return "", err
	}
	lead, err := card.ParseSuit(state.LeadSuit)
	if err != nil {
		return "", err
	}
	trick := make([]rule.TrickEntry, 0, len(state.CurrentTrick))
	for _, e := range state.CurrentTrick {
		c, err := convert.InfoToCard(e.Card)
		if err != nil {
			return "", err
		}
		trick = append(trick, rule.TrickEntry{Seat: e.Seat, Card: c})
	}

	var ctx bot.Context
	ctx.MandatoryTrumping = a.opts.MandatoryTrumping
	for _, p := range state.Players {
		if p.Seat == state.Seat {
			ctx.TricksWon = p.TricksWon
			ctx.TricksNeeded = p.Bid - p.TricksWon
		}
	}

	chosen := a.brain.ChooseCard(hand, lead, trick, ctx).ID()
	if len(state.ValidMoves) > 0 && !slices.Contains(state.ValidMoves, chosen) {
		// 服务端规则配置与本地不同时以服务端为准
		a.log.Debug("本地选择不在合法出牌中", zap.String("card", chosen), zap.Strings("valid", state.ValidMoves))
		chosen = state.ValidMoves[0]
	}
	return chosen, nil
}
