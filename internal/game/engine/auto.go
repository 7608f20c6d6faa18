package engine

import (
	"fmt"

	"github.com/palemoky/call-break/internal/apperrors"
	"github.com/palemoky/call-break/internal/game/bot"
	"github.com/palemoky/call-break/internal/game/rule"
)

// StepKind 下一步需要外部驱动的动作
type StepKind int

const (
	StepNone         StepKind = iota // 无需动作（idle / gameOver）
	StepHuman                        // 等待真人操作
	StepBot                          // 等待机器人（或托管）操作
	StepCollectTrick                 // 等待收墩
	StepNextRound                    // 等待进入下一局
)

// Step 下一步
type Step struct {
	Kind StepKind
	Seat int
}

// Pending 返回状态机当前等待的动作，供房间调度器决定延时
func (m *Manager) Pending() Step {
	switch m.state.Phase {
	case PhaseBidding, PhasePlaying:
		seat := m.state.CurrentTurnSeat
		if m.state.Players[seat].Controlled() {
			return Step{Kind: StepBot, Seat: seat}
		}
		return Step{Kind: StepHuman, Seat: seat}
	case PhaseTrickEnd:
		return Step{Kind: StepCollectTrick, Seat: NoSeat}
	case PhaseRoundEnd:
		return Step{Kind: StepNextRound, Seat: NoSeat}
	default:
		return Step{Kind: StepNone, Seat: NoSeat}
	}
}

// AllBots 是否所有座位都由机器人决策
func (m *Manager) AllBots() bool {
	for _, p := range m.state.Players {
		if !p.Controlled() {
			return false
		}
	}
	return true
}

// BotAction 为机器人（或托管）座位计算并执行叫分或出牌
func (m *Manager) BotAction(seat int) error {
	if err := validSeat(seat); err != nil {
		return err
	}
	p := m.state.Players[seat]
	brain := m.brains[seat]
	if !p.Controlled() || brain == nil {
		return apperrors.ErrNotABot
	}

	switch m.state.Phase {
	case PhaseBidding:
		if seat != m.state.CurrentTurnSeat {
			return apperrors.ErrNotYourTurn
		}
		return m.Bid(seat, brain.Bid(p.Hand))
	case PhasePlaying:
		if seat != m.state.CurrentTurnSeat {
			return apperrors.ErrNotYourTurn
		}
		c := brain.ChooseCard(p.Hand, m.state.LeadSuit, m.state.CurrentTrick, m.botContext(p))
		if err := m.PlayCard(seat, c.ID()); err != nil {
			// 机器人只会从 ValidMoves 中选牌，出错说明引擎有缺陷
			return fmt.Errorf("机器人 %d 出牌 %s 非法: %w", seat, c.ID(), err)
		}
		return nil
	default:
		return apperrors.ErrWrongPhase
	}
}

func (m *Manager) botContext(p *Player) bot.Context {
	return bot.Context{
		TricksNeeded:      p.Bid - p.TricksWon,
		TricksWon:         p.TricksWon,
		MandatoryTrumping: m.opts.MandatoryTrumping(),
	}
}

// ValidMovesFor 座位当前可出的牌（非其出牌回合时为空）
func (m *Manager) ValidMovesFor(seat int) []string {
	if seat < 0 || seat >= rule.PlayerCount || m.state.Phase != PhasePlaying || seat != m.state.CurrentTurnSeat {
		return nil
	}
	p := m.state.Players[seat]
	moves := rule.ValidMoves(p.Hand, m.state.LeadSuit, m.state.CurrentTrick, m.opts.MandatoryTrumping())
	ids := make([]string, len(moves))
	for i, c := range moves {
		ids[i] = c.ID()
	}
	return ids
}
