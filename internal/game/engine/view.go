package engine

import (
	"slices"

	"github.com/palemoky/call-break/internal/game/card"
	"github.com/palemoky/call-break/internal/game/rule"
)

// Spectator 观察者不是任何座位时使用
const Spectator = -1

// PlayerView 对外可见的玩家信息，不含手牌内容
type PlayerView struct {
	ID         string
	Seat       int
	Name       string
	IsBot      bool
	Bid        int
	TricksWon  int
	RoundScore rule.Score
	TotalScore rule.Score
	Connected  bool
	HandCount  int
}

// View 按观察者裁剪后的状态投影：自己的手牌完整可见，他人只暴露张数
type View struct {
	Seat             int
	Phase            Phase
	CurrentRound     int
	TotalRounds      int
	TrickNumber      int
	CurrentTurnSeat  int
	BiddingStartSeat int
	LeadSuit         card.Suit
	Trump            card.Suit
	CurrentTrick     []rule.TrickEntry
	LastTrickWinner  int
	Players          [rule.PlayerCount]PlayerView
	Hand             []card.Card
	ValidMoves       []string
}

// View 生成指定座位的投影
func (m *Manager) View(seat int) View {
	v := View{
		Seat:             seat,
		Phase:            m.state.Phase,
		CurrentRound:     m.state.CurrentRound,
		TotalRounds:      m.state.TotalRounds,
		TrickNumber:      m.state.TrickNumber,
		CurrentTurnSeat:  m.state.CurrentTurnSeat,
		BiddingStartSeat: m.state.BiddingStartSeat,
		LeadSuit:         m.state.LeadSuit,
		Trump:            m.state.Trump,
		CurrentTrick:     slices.Clone(m.state.CurrentTrick),
		LastTrickWinner:  m.state.LastTrickWinner,
	}

	for i, p := range m.state.Players {
		v.Players[i] = PlayerView{
			ID:         p.ID,
			Seat:       p.Seat,
			Name:       p.Name,
			IsBot:      p.IsBot,
			Bid:        p.Bid,
			TricksWon:  p.TricksWon,
			RoundScore: p.RoundScore,
			TotalScore: p.TotalScore,
			Connected:  p.Connected,
			HandCount:  len(p.Hand),
		}
	}

	if seat >= 0 && seat < rule.PlayerCount {
		v.Hand = slices.Clone(m.state.Players[seat].Hand)
		v.ValidMoves = m.ValidMovesFor(seat)
	}
	return v
}

// Ranking 按总分降序排名，同分按座位顺序
func (m *Manager) Ranking() []Standing {
	standings := make([]Standing, 0, rule.PlayerCount)
	for _, p := range m.state.Players {
		standings = append(standings, Standing{
			Seat:       p.Seat,
			PlayerID:   p.ID,
			Name:       p.Name,
			IsBot:      p.IsBot,
			TotalScore: p.TotalScore,
		})
	}
	slices.SortStableFunc(standings, func(a, b Standing) int {
		switch {
		case a.TotalScore > b.TotalScore:
			return -1
		case a.TotalScore < b.TotalScore:
			return 1
		}
		return 0
	})
	for i := range standings {
		standings[i].Place = i + 1
	}
	return standings
}
