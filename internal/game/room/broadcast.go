package room

import (
	"github.com/palemoky/call-break/internal/game/engine"
	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/protocol/codec"
	"github.com/palemoky/call-break/internal/protocol/convert"
)

// Broadcast 广播消息给房间内所有在线玩家
func (r *Room) Broadcast(msg *protocol.Message) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.broadcast(msg)
}

// BroadcastExcept 广播消息给除指定玩家外的在线玩家
func (r *Room) BroadcastExcept(excludeID string, msg *protocol.Message) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.broadcastExcept(excludeID, msg)
}

func (r *Room) broadcast(msg *protocol.Message) {
	for _, p := range r.Players {
		if p != nil {
			p.send(msg)
		}
	}
}

func (r *Room) broadcastExcept(excludeID string, msg *protocol.Message) {
	for _, p := range r.Players {
		if p != nil && p.ID != excludeID {
			p.send(msg)
		}
	}
}

// checkAllReady 四个座位都有人且都已准备
func (r *Room) checkAllReady() bool {
	for _, p := range r.Players {
		if p == nil || !p.Ready {
			return false
		}
	}
	return true
}

// playerByID 查找座位，不存在返回 nil
func (r *Room) playerByID(id string) *RoomPlayer {
	for _, p := range r.Players {
		if p != nil && p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) playerCount() int {
	n := 0
	for _, p := range r.Players {
		if p != nil {
			n++
		}
	}
	return n
}

func (r *Room) freeSeat() (int, bool) {
	for i, p := range r.Players {
		if p == nil {
			return i, true
		}
	}
	return 0, false
}

// hasOnlineHuman 是否还有在线的真人
func (r *Room) hasOnlineHuman() bool {
	for _, p := range r.Players {
		if p != nil && p.IsHuman() && p.Online {
			return true
		}
	}
	return false
}

// HasPlayer 玩家是否在房间中（含掉线）
func (r *Room) HasPlayer(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p := r.playerByID(id)
	return p != nil && !p.Left
}

// GetPlayerInfo 获取玩家信息
func (r *Room) GetPlayerInfo(playerID string) protocol.PlayerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.playerInfo(r.playerByID(playerID))
}

// GetAllPlayersInfo 获取所有座位信息
func (r *Room) GetAllPlayersInfo() []protocol.PlayerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.allPlayersInfo()
}

func (r *Room) playerInfo(p *RoomPlayer) protocol.PlayerInfo {
	if p == nil {
		return protocol.PlayerInfo{}
	}
	return protocol.PlayerInfo{
		ID:     p.ID,
		Name:   p.Name,
		Seat:   p.Seat,
		IsBot:  p.IsBot,
		Ready:  p.Ready,
		Online: p.Online,
	}
}

func (r *Room) allPlayersInfo() []protocol.PlayerInfo {
	infos := make([]protocol.PlayerInfo, 0, len(r.Players))
	for _, p := range r.Players {
		if p != nil {
			infos = append(infos, r.playerInfo(p))
		}
	}
	return infos
}

// publishState 向每个在线真人下发其视角的状态（全量或增量）
func (r *Room) publishState() {
	if r.game == nil {
		return
	}
	for _, p := range r.Players {
		if p == nil || p.Client == nil {
			continue
		}
		dto := convert.ViewToDTO(r.game.View(p.Seat), 0)
		if typ, payload, ok := r.publisher.Update(p.ID, dto); ok {
			p.send(codec.MustNewMessage(typ, payload))
		}
	}
}

// sendFullState 强制下发全量状态
func (r *Room) sendFullState(p *RoomPlayer) {
	if r.game == nil || p.Client == nil {
		return
	}
	dto := r.publisher.Full(p.ID, convert.ViewToDTO(r.game.View(p.Seat), 0))
	p.send(codec.MustNewMessage(protocol.MsgStateSync, dto))
}

// View 返回玩家视角的状态，对局未开始时 ok 为 false
func (r *Room) View(playerID string) (protocol.GameStateDTO, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.game == nil {
		return protocol.GameStateDTO{}, false
	}
	seat := engine.Spectator
	if p := r.playerByID(playerID); p != nil {
		seat = p.Seat
	}
	dto := convert.ViewToDTO(r.game.View(seat), r.publisher.Version(playerID))
	return dto, true
}
