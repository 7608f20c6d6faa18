package room

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/apperrors"
	"github.com/palemoky/call-break/internal/game/bot"
	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/protocol/codec"
	"github.com/palemoky/call-break/internal/types"
)

// seatClient 为真人分配空座位
func (r *Room) seatClient(client types.ClientInterface) (*RoomPlayer, error) {
	if r.State != RoomStateWaiting {
		return nil, apperrors.ErrGameStarted
	}
	seat, ok := r.freeSeat()
	if !ok {
		return nil, apperrors.ErrRoomFull
	}
	p := &RoomPlayer{
		Client: client,
		ID:     client.GetID(),
		Name:   client.GetName(),
		Seat:   seat,
		Online: true,
	}
	r.Players[seat] = p
	client.SetRoom(r.Code)
	r.lastActive = time.Now()
	return p, nil
}

// fillWithBots 用机器人补满空座位，机器人默认已准备
func (r *Room) fillWithBots(level bot.Level) {
	for seat, p := range r.Players {
		if p != nil {
			continue
		}
		r.Players[seat] = &RoomPlayer{
			ID:       fmt.Sprintf("%s%s-%d", botIDPrefix, r.Code, seat),
			Name:     fmt.Sprintf("🤖 %s%d", botNames[level], seat),
			Seat:     seat,
			Ready:    true,
			IsBot:    true,
			BotLevel: level,
			Online:   true,
		}
	}
}

var botNames = map[bot.Level]string{
	bot.LevelEasy:   "新手",
	bot.LevelMedium: "老手",
	bot.LevelHard:   "高手",
}

// removePlayer 玩家离开。等待中直接腾出座位；对局中座位交给机器人
// 返回房间是否已没有真人
func (r *Room) removePlayer(playerID string) (empty bool, found bool) {
	p := r.playerByID(playerID)
	if p == nil || p.Left {
		return !r.hasOnlineHuman(), false
	}

	r.broadcastExcept(playerID, codec.MustNewMessage(protocol.MsgPlayerLeft, protocol.PlayerLeftPayload{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Seat:       p.Seat,
	}))
	if p.Client != nil {
		p.Client.SetRoom("")
	}
	r.publisher.Forget(p.ID)
	r.stopOfflineTimer(p.Seat)
	r.lastActive = time.Now()

	if r.game == nil {
		r.Players[p.Seat] = nil
	} else {
		p.Client = nil
		p.Online = false
		p.Left = true
		_ = r.game.SetConnected(p.Seat, false)
		_ = r.game.SetAutoPlay(p.Seat, true)
		r.after()
	}

	for _, other := range r.Players {
		if other != nil && other.IsHuman() && !other.Left {
			return false, true
		}
	}
	return true, true
}

// setReady 设置准备状态，全部准备后开始比赛
func (r *Room) setReady(playerID string, ready bool) error {
	p := r.playerByID(playerID)
	if p == nil {
		return apperrors.ErrNotInRoom
	}
	if r.State != RoomStateWaiting {
		return apperrors.ErrGameStarted
	}
	p.Ready = ready

	r.broadcast(codec.MustNewMessage(protocol.MsgPlayerReady, protocol.PlayerReadyPayload{
		PlayerID: playerID,
		Ready:    ready,
	}))

	if r.checkAllReady() {
		return r.startGame()
	}
	return nil
}

// playerOffline 标记玩家掉线并开始托管倒计时
func (r *Room) playerOffline(playerID string) bool {
	p := r.playerByID(playerID)
	if p == nil || p.Left || !p.Online {
		return false
	}

	p.Client = nil
	p.Online = false
	r.publisher.Forget(p.ID)
	r.lastActive = time.Now()

	r.broadcastExcept(playerID, codec.MustNewMessage(protocol.MsgPlayerOffline, protocol.PlayerOfflinePayload{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Seat:       p.Seat,
		Timeout:    int(r.opts.OfflineGrace / time.Second),
	}))
	r.log.Info("📴 玩家掉线", zap.String("player", p.Name), zap.Int("seat", p.Seat))

	if r.game != nil {
		_ = r.game.SetConnected(p.Seat, false)
		if r.State == RoomStatePlaying {
			r.startOfflineTimer(p.Seat)
		}
		r.after()
	}
	return true
}

// playerOnline 玩家重连：取消托管，下发全量状态
func (r *Room) playerOnline(client types.ClientInterface) error {
	p := r.playerByID(client.GetID())
	if p == nil || p.Left {
		return apperrors.ErrNotInRoom
	}

	r.stopOfflineTimer(p.Seat)
	p.Client = client
	p.Online = true
	client.SetRoom(r.Code)
	r.lastActive = time.Now()

	r.broadcastExcept(p.ID, codec.MustNewMessage(protocol.MsgPlayerOnline, protocol.PlayerOnlinePayload{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Seat:       p.Seat,
	}))
	r.log.Info("📶 玩家重连", zap.String("player", p.Name), zap.Int("seat", p.Seat))

	if r.game == nil {
		return nil
	}
	_ = r.game.SetConnected(p.Seat, true)
	_ = r.game.SetAutoPlay(p.Seat, false)
	r.sendFullState(p)
	r.after()
	return nil
}
