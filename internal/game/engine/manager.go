package engine

import (
	"fmt"
	"math/rand/v2"

	"github.com/palemoky/call-break/internal/apperrors"
	"github.com/palemoky/call-break/internal/game/bot"
	"github.com/palemoky/call-break/internal/game/card"
	"github.com/palemoky/call-break/internal/game/rule"
)

// Options 对局配置，零值即标准规则
type Options struct {
	TotalRounds      int        // 总局数，0 取默认 5
	OptionalTrumping bool       // 缺门时允许不出将，默认强制出将
	Solo             bool       // 单机模式（任意阶段可重开）
	Rand             *rand.Rand // 洗牌随机源，nil 使用全局随机源
}

// DefaultOptions 默认配置
func DefaultOptions() Options {
	return Options{TotalRounds: DefaultTotalRounds}
}

// MandatoryTrumping 缺门时是否强制出将
func (o Options) MandatoryTrumping() bool {
	return !o.OptionalTrumping
}

// Manager 阶段状态机，GameState 的唯一写入者
//
// Manager 不加锁：同一房间内的调用必须由调用方串行化。
type Manager struct {
	state  GameState
	opts   Options
	brains [rule.PlayerCount]bot.Brain
	events []Event
}

// NewManager 创建状态机，座位固定
func NewManager(seats [rule.PlayerCount]PlayerSeat, opts Options) (*Manager, error) {
	if opts.TotalRounds <= 0 {
		opts.TotalRounds = DefaultTotalRounds
	}

	m := &Manager{opts: opts}
	m.state = GameState{
		Phase:           PhaseIdle,
		TotalRounds:     opts.TotalRounds,
		CurrentTurnSeat: NoSeat,
		LeadSuit:        card.NoSuit,
		Trump:           card.Trump,
		LastTrickWinner: NoSeat,
	}

	for i, s := range seats {
		p := &Player{
			ID:        s.ID,
			Seat:      i,
			Name:      s.Name,
			IsBot:     s.IsBot,
			BotLevel:  s.BotLevel,
			Connected: true,
		}
		if s.IsBot {
			level := s.BotLevel
			if level == "" {
				level = bot.LevelMedium
			}
			brain, err := bot.NewBrain(level)
			if err != nil {
				return nil, fmt.Errorf("座位 %d: %w", i, err)
			}
			p.BotLevel = level
			m.brains[i] = brain
		}
		m.state.Players[i] = p
	}

	return m, nil
}

// State 返回状态快照
func (m *Manager) State() GameState {
	return m.state.Clone()
}

// Phase 当前阶段
func (m *Manager) Phase() Phase {
	return m.state.Phase
}

// Options 返回对局配置
func (m *Manager) Options() Options {
	return m.opts
}

// Player 返回座位上的玩家快照
func (m *Manager) Player(seat int) (Player, error) {
	if err := validSeat(seat); err != nil {
		return Player{}, err
	}
	return *m.state.Players[seat].clone(), nil
}

// Start 开始比赛：idle → dealing → bidding
func (m *Manager) Start() error {
	if m.state.Phase != PhaseIdle {
		return apperrors.ErrWrongPhase
	}
	m.state.CurrentRound = 1
	m.state.BiddingStartSeat = 0
	m.deal()
	return nil
}

// deal 洗一副新牌，每人 13 张，全部发完后进入叫分
func (m *Manager) deal() {
	m.state.CurrentTurnSeat = NoSeat
	m.setPhase(PhaseDealing)

	deck := card.Shuffle(card.NewDeck(), m.opts.Rand)
	for i, p := range m.state.Players {
		p.Hand = card.SortHand(deck[i*rule.HandSize : (i+1)*rule.HandSize])
		p.Bid = NoBid
		p.TricksWon = 0
		p.RoundScore = 0
	}
	m.state.TrickNumber = 0
	m.state.CurrentTrick = nil
	m.state.Tricks = nil
	m.state.LeadSuit = card.NoSuit
	m.state.LastTrickWinner = NoSeat
	m.emit(Event{Type: EventCardsDealt})

	m.setPhase(PhaseBidding)
	m.setTurn(m.state.BiddingStartSeat)
}

// Bid 记录叫分，四家叫完后由叫分起始座位首家出牌
func (m *Manager) Bid(seat, value int) error {
	if err := validSeat(seat); err != nil {
		return err
	}
	if m.state.Phase != PhaseBidding {
		return apperrors.ErrWrongPhase
	}
	if seat != m.state.CurrentTurnSeat {
		return apperrors.ErrNotYourTurn
	}
	if !rule.ValidBid(value) {
		return apperrors.ErrInvalidBid
	}

	m.state.Players[seat].Bid = value
	m.emit(Event{Type: EventBidPlaced, Seat: seat, Bid: value})

	next := nextSeat(seat)
	if next == m.state.BiddingStartSeat {
		m.state.CurrentTurnSeat = NoSeat
		m.setPhase(PhasePlaying)
		m.setTurn(m.state.BiddingStartSeat)
		return nil
	}
	m.setTurn(next)
	return nil
}

// PlayCard 出牌，只接受 ValidMoves 中的牌；第 4 张牌后进入 trickEnd
func (m *Manager) PlayCard(seat int, cardID string) error {
	if err := validSeat(seat); err != nil {
		return err
	}
	if m.state.Phase != PhasePlaying {
		return apperrors.ErrWrongPhase
	}
	if seat != m.state.CurrentTurnSeat {
		return apperrors.ErrNotYourTurn
	}

	c, err := card.Parse(cardID)
	if err != nil {
		return apperrors.ErrCardNotInHand
	}
	p := m.state.Players[seat]
	if !card.Contains(p.Hand, c) {
		return apperrors.ErrCardNotInHand
	}
	if !rule.IsValidMove(c, p.Hand, m.state.LeadSuit, m.state.CurrentTrick, m.opts.MandatoryTrumping()) {
		return apperrors.ErrIllegalCard
	}

	p.Hand, _ = card.Remove(p.Hand, c)
	if len(m.state.CurrentTrick) == 0 {
		m.state.LeadSuit = c.Suit
	}
	m.state.CurrentTrick = append(m.state.CurrentTrick, rule.TrickEntry{Seat: seat, Card: c})
	m.emit(Event{Type: EventCardPlayed, Seat: seat, Card: c})

	if len(m.state.CurrentTrick) == rule.PlayerCount {
		m.state.CurrentTurnSeat = NoSeat
		m.setPhase(PhaseTrickEnd)
		return nil
	}
	m.setTurn(nextSeat(seat))
	return nil
}

// CollectTrick 结算当前墩：赢家加一墩并领出下一墩，13 墩后进入 roundEnd
func (m *Manager) CollectTrick() error {
	if m.state.Phase != PhaseTrickEnd {
		return apperrors.ErrWrongPhase
	}

	trick := m.state.CurrentTrick
	winner, err := rule.TrickWinner(trick, m.state.LeadSuit)
	if err != nil {
		return fmt.Errorf("结算失败: %w", err)
	}

	m.state.Players[winner].TricksWon++
	m.state.Tricks = append(m.state.Tricks, trick)
	m.state.CurrentTrick = nil
	m.state.LeadSuit = card.NoSuit
	m.state.TrickNumber++
	m.state.LastTrickWinner = winner
	m.emit(Event{Type: EventTrickCompleted, Seat: winner, Trick: trick, TrickNumber: m.state.TrickNumber})

	if m.state.TrickNumber == rule.TricksPerRound {
		return m.endRound()
	}

	m.setPhase(PhasePlaying)
	m.setTurn(winner)
	return nil
}

// endRound 计算本局得分并累加；最后一局直接进入 gameOver
func (m *Manager) endRound() error {
	scores := make([]rule.Score, rule.PlayerCount)
	for i, p := range m.state.Players {
		s, err := rule.RoundScore(p.Bid, p.TricksWon)
		if err != nil {
			return fmt.Errorf("座位 %d 计分失败: %w", i, err)
		}
		p.RoundScore = s
		p.TotalScore += s
		p.History = append(p.History, s)
		scores[i] = s
	}

	m.setPhase(PhaseRoundEnd)
	m.emit(Event{Type: EventRoundCompleted, RoundScores: scores})

	if m.state.CurrentRound >= m.state.TotalRounds {
		m.setPhase(PhaseGameOver)
		m.emit(Event{Type: EventGameOver, Standings: m.Ranking()})
	}
	return nil
}

// NextRound 进入下一局：局数加一，叫分起始座位轮转，重新发牌
func (m *Manager) NextRound() error {
	if m.state.Phase != PhaseRoundEnd {
		return apperrors.ErrWrongPhase
	}
	m.state.CurrentRound++
	m.state.BiddingStartSeat = (m.state.CurrentRound - 1) % rule.PlayerCount
	m.deal()
	return nil
}

// Restart 重开比赛；联机仅在 gameOver 后允许，单机任意阶段允许
func (m *Manager) Restart() error {
	if m.state.Phase != PhaseGameOver && !(m.opts.Solo && m.state.Phase != PhaseIdle) {
		return apperrors.ErrWrongPhase
	}
	for _, p := range m.state.Players {
		p.TotalScore = 0
		p.History = nil
	}
	m.state.CurrentRound = 1
	m.state.BiddingStartSeat = 0
	m.deal()
	return nil
}

// SetConnected 更新座位的在线状态
func (m *Manager) SetConnected(seat int, connected bool) error {
	if err := validSeat(seat); err != nil {
		return err
	}
	m.state.Players[seat].Connected = connected
	return nil
}

// SetAutoPlay 设置真人座位托管
func (m *Manager) SetAutoPlay(seat int, on bool) error {
	if err := validSeat(seat); err != nil {
		return err
	}
	p := m.state.Players[seat]
	if p.IsBot {
		return nil
	}
	p.AutoPlay = on
	if on && m.brains[seat] == nil {
		m.brains[seat] = bot.MustNewBrain(bot.LevelMedium)
	}
	return nil
}

// ReplacePlayer 替换座位上的玩家身份（例如机器人换成真人），保留分数
func (m *Manager) ReplacePlayer(seat int, s PlayerSeat) error {
	if err := validSeat(seat); err != nil {
		return err
	}
	p := m.state.Players[seat]
	p.ID = s.ID
	p.Name = s.Name
	p.IsBot = s.IsBot
	p.BotLevel = s.BotLevel
	p.AutoPlay = false
	p.Connected = true
	m.brains[seat] = nil
	if s.IsBot {
		level := s.BotLevel
		if level == "" {
			level = bot.LevelMedium
		}
		brain, err := bot.NewBrain(level)
		if err != nil {
			return err
		}
		p.BotLevel = level
		m.brains[seat] = brain
	}
	return nil
}

// SeatOf 根据玩家 ID 查找座位
func (m *Manager) SeatOf(playerID string) (int, bool) {
	for i, p := range m.state.Players {
		if p.ID == playerID {
			return i, true
		}
	}
	return NoSeat, false
}

func validSeat(seat int) error {
	if seat < 0 || seat >= rule.PlayerCount {
		return apperrors.ErrInvalidSeat
	}
	return nil
}
