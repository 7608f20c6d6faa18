package room

import (
	"github.com/palemoky/call-break/internal/game/card"
	"github.com/palemoky/call-break/internal/server/storage"
)

// ToRoomData 将 Room 转换为可序列化的快照
func (r *Room) ToRoomData() *storage.RoomData {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.toRoomData()
}

func (r *Room) toRoomData() *storage.RoomData {
	data := &storage.RoomData{
		Code:      r.Code,
		State:     int(r.State),
		Solo:      r.Solo,
		Players:   make([]storage.PlayerData, 0, len(r.Players)),
		CreatedAt: r.CreatedAt.Unix(),
	}

	for _, p := range r.Players {
		if p == nil {
			continue
		}
		data.Players = append(data.Players, storage.PlayerData{
			ID:       p.ID,
			Name:     p.Name,
			Seat:     p.Seat,
			Ready:    p.Ready,
			IsBot:    p.IsBot,
			BotLevel: string(p.BotLevel),
			Online:   p.Online,
		})
	}

	if r.game == nil {
		return data
	}

	s := r.game.State()
	g := &storage.GameData{
		Phase:            string(s.Phase),
		CurrentRound:     s.CurrentRound,
		TotalRounds:      s.TotalRounds,
		TrickNumber:      s.TrickNumber,
		CurrentTurnSeat:  s.CurrentTurnSeat,
		BiddingStartSeat: s.BiddingStartSeat,
	}
	for _, p := range s.Players {
		g.Bids = append(g.Bids, p.Bid)
		g.TricksWon = append(g.TricksWon, p.TricksWon)
		g.TotalScores = append(g.TotalScores, p.TotalScore.Tenths())
		g.Hands = append(g.Hands, card.IDs(p.Hand))
	}
	data.Game = g
	return data
}
