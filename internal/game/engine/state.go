package engine

import (
	"slices"

	"github.com/palemoky/call-break/internal/game/bot"
	"github.com/palemoky/call-break/internal/game/card"
	"github.com/palemoky/call-break/internal/game/rule"
)

// Phase 游戏阶段
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseDealing  Phase = "dealing"
	PhaseBidding  Phase = "bidding"
	PhasePlaying  Phase = "playing"
	PhaseTrickEnd Phase = "trickEnd"
	PhaseRoundEnd Phase = "roundEnd"
	PhaseGameOver Phase = "gameOver"
)

const (
	// NoBid 尚未叫分
	NoBid = 0
	// NoSeat 当前没有等待行动的座位
	NoSeat = -1
	// DefaultTotalRounds 一场比赛的局数
	DefaultTotalRounds = 5
)

// PlayerSeat 入座信息
type PlayerSeat struct {
	ID       string
	Name     string
	IsBot    bool
	BotLevel bot.Level
}

// Player 玩家状态，仅由 Manager 修改
type Player struct {
	ID         string
	Seat       int
	Name       string
	IsBot      bool
	BotLevel   bot.Level
	Hand       []card.Card
	Bid        int
	TricksWon  int
	RoundScore rule.Score
	TotalScore rule.Score
	Connected  bool
	AutoPlay   bool         // 掉线托管
	History    []rule.Score // 每局得分
}

// HasBid 是否已叫分
func (p *Player) HasBid() bool {
	return p.Bid != NoBid
}

// Controlled 是否由机器人决策（机器人座位或托管中的真人）
func (p *Player) Controlled() bool {
	return p.IsBot || p.AutoPlay
}

func (p *Player) clone() *Player {
	cp := *p
	cp.Hand = slices.Clone(p.Hand)
	cp.History = slices.Clone(p.History)
	return &cp
}

// GameState 房间内的权威游戏状态
type GameState struct {
	Phase            Phase
	CurrentRound     int
	TotalRounds      int
	TrickNumber      int
	CurrentTurnSeat  int
	LeadSuit         card.Suit
	Trump            card.Suit
	BiddingStartSeat int
	CurrentTrick     []rule.TrickEntry
	Tricks           [][]rule.TrickEntry // 本局已完成的墩
	LastTrickWinner  int
	Players          [rule.PlayerCount]*Player
}

// Clone 深拷贝
func (s *GameState) Clone() GameState {
	cp := *s
	cp.CurrentTrick = slices.Clone(s.CurrentTrick)
	cp.Tricks = make([][]rule.TrickEntry, len(s.Tricks))
	for i, t := range s.Tricks {
		cp.Tricks[i] = slices.Clone(t)
	}
	for i, p := range s.Players {
		if p != nil {
			cp.Players[i] = p.clone()
		}
	}
	return cp
}

// Standing 最终排名
type Standing struct {
	Place      int
	Seat       int
	PlayerID   string
	Name       string
	IsBot      bool
	TotalScore rule.Score
}

func nextSeat(seat int) int {
	return (seat + 1) % rule.PlayerCount
}
