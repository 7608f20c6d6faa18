package convert

import (
	"github.com/palemoky/call-break/internal/game/engine"
	"github.com/palemoky/call-break/internal/protocol"
)

// EventToPayload 将需要广播的领域事件转为消息类型与 payload
// 阶段、轮次、发牌变化由状态同步覆盖，返回 false
func EventToPayload(e engine.Event, v engine.View) (protocol.MessageType, any, bool) {
	switch e.Type {
	case engine.EventBidPlaced:
		return protocol.MsgBidPlaced, protocol.BidPlacedPayload{Seat: e.Seat, Value: e.Bid}, true
	case engine.EventCardPlayed:
		return protocol.MsgCardPlayed, protocol.CardPlayedPayload{Seat: e.Seat, Card: CardToInfo(e.Card)}, true
	case engine.EventTrickCompleted:
		return protocol.MsgTrickCompleted, protocol.TrickCompletedPayload{
			TrickNumber: e.TrickNumber,
			WinnerSeat:  e.Seat,
			Cards:       TrickToInfos(e.Trick),
		}, true
	case engine.EventRoundCompleted:
		return protocol.MsgRoundCompleted, protocol.RoundCompletedPayload{
			Round:  e.Round,
			Scores: RoundScoresToInfos(e.RoundScores, v.Players),
		}, true
	case engine.EventGameOver:
		return protocol.MsgGameOver, protocol.GameOverPayload{Standings: StandingsToInfos(e.Standings)}, true
	default:
		return "", nil, false
	}
}
