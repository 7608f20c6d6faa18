package convert

import (
	"github.com/palemoky/call-break/internal/game/engine"
	"github.com/palemoky/call-break/internal/game/rule"
	"github.com/palemoky/call-break/internal/protocol"
)

// ViewToDTO 将观察者投影转为线路格式
func ViewToDTO(v engine.View, version int64) protocol.GameStateDTO {
	players := make([]protocol.PlayerState, len(v.Players))
	for i, p := range v.Players {
		players[i] = PlayerViewToState(p)
	}

	return protocol.GameStateDTO{
		Version:          version,
		Seat:             v.Seat,
		Phase:            string(v.Phase),
		CurrentRound:     v.CurrentRound,
		TotalRounds:      v.TotalRounds,
		TrickNumber:      v.TrickNumber,
		CurrentTurnSeat:  v.CurrentTurnSeat,
		BiddingStartSeat: v.BiddingStartSeat,
		LeadSuit:         v.LeadSuit.String(),
		Trump:            v.Trump.String(),
		CurrentTrick:     TrickToInfos(v.CurrentTrick),
		LastTrickWinner:  v.LastTrickWinner,
		Players:          players,
		Hand:             CardsToInfos(v.Hand),
		ValidMoves:       v.ValidMoves,
	}
}

func PlayerViewToState(p engine.PlayerView) protocol.PlayerState {
	return protocol.PlayerState{
		ID:         p.ID,
		Name:       p.Name,
		Seat:       p.Seat,
		IsBot:      p.IsBot,
		Bid:        p.Bid,
		TricksWon:  p.TricksWon,
		RoundScore: p.RoundScore.Float(),
		TotalScore: p.TotalScore.Float(),
		Connected:  p.Connected,
		HandCount:  p.HandCount,
	}
}

func StandingsToInfos(standings []engine.Standing) []protocol.StandingInfo {
	result := make([]protocol.StandingInfo, len(standings))
	for i, s := range standings {
		result[i] = protocol.StandingInfo{
			Place:      s.Place,
			Seat:       s.Seat,
			PlayerID:   s.PlayerID,
			Name:       s.Name,
			IsBot:      s.IsBot,
			TotalScore: s.TotalScore.Float(),
		}
	}
	return result
}

// RoundScoresToInfos 合并单局得分与投影中的叫分、墩数、总分
func RoundScoresToInfos(scores []rule.Score, players [rule.PlayerCount]engine.PlayerView) []protocol.RoundScoreInfo {
	result := make([]protocol.RoundScoreInfo, len(scores))
	for seat, s := range scores {
		p := players[seat]
		result[seat] = protocol.RoundScoreInfo{
			Seat:       seat,
			Bid:        p.Bid,
			TricksWon:  p.TricksWon,
			RoundScore: s.Float(),
			TotalScore: p.TotalScore.Float(),
		}
	}
	return result
}
