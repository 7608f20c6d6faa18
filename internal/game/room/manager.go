package room

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/apperrors"
	"github.com/palemoky/call-break/internal/game/bot"
	"github.com/palemoky/call-break/internal/game/rule"
	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/protocol/codec"
	"github.com/palemoky/call-break/internal/types"
)

// CreateRoom 创建房间。solo 模式下补满机器人并立即开始
func (rm *RoomManager) CreateRoom(client types.ClientInterface, solo bool, level bot.Level) (*Room, error) {
	if level == "" {
		level = rm.opts.BotLevel
	}

	rm.mu.Lock()
	code := rm.generateRoomCode()
	room := newRoom(code, solo, rm.opts, rm.store, rm.recorder, rm.log)
	rm.rooms[code] = room
	rm.mu.Unlock()

	if err := rm.openRoom(room, client, level); err != nil {
		rm.discardRoom(room)
		return nil, err
	}
	return room, nil
}

func (rm *RoomManager) openRoom(room *Room, client types.ClientInterface, level bot.Level) error {
	room.mu.Lock()
	defer room.mu.Unlock()

	player, err := room.seatClient(client)
	if err != nil {
		return err
	}
	player.send(codec.MustNewMessage(protocol.MsgRoomCreated, protocol.RoomCreatedPayload{
		RoomCode: room.Code,
		Solo:     room.Solo,
		Player:   room.playerInfo(player),
		Players:  room.allPlayersInfo(),
	}))
	rm.log.Info("🏠 房间已创建", zap.String("room", room.Code), zap.String("player", client.GetName()), zap.Bool("solo", room.Solo))

	if !room.Solo {
		room.saveSnapshot()
		return nil
	}
	player.Ready = true
	room.fillWithBots(level)
	return room.startGame()
}

// discardRoom 撤销创建失败的房间：已入座的玩家退出，定时器取消
func (rm *RoomManager) discardRoom(room *Room) {
	room.mu.Lock()
	for seat, p := range room.Players {
		if p != nil && p.Client != nil {
			p.Client.SetRoom("")
		}
		room.Players[seat] = nil
	}
	room.destroy()
	room.mu.Unlock()

	rm.mu.Lock()
	delete(rm.rooms, room.Code)
	rm.mu.Unlock()
	rm.log.Warn("⚠️ 房间创建失败，已撤销", zap.String("room", room.Code))
}

// JoinRoom 加入房间
func (rm *RoomManager) JoinRoom(client types.ClientInterface, code string) (*Room, error) {
	room := rm.GetRoom(code)
	if room == nil {
		return nil, apperrors.ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.closed {
		return nil, apperrors.ErrRoomNotFound
	}
	player, err := room.seatClient(client)
	if err != nil {
		return nil, err
	}

	player.send(codec.MustNewMessage(protocol.MsgRoomJoined, protocol.RoomJoinedPayload{
		RoomCode: code,
		Player:   room.playerInfo(player),
		Players:  room.allPlayersInfo(),
	}))
	room.broadcastExcept(player.ID, codec.MustNewMessage(protocol.MsgPlayerJoined, protocol.PlayerJoinedPayload{
		Player: room.playerInfo(player),
	}))
	rm.log.Info("👤 玩家加入房间", zap.String("room", code), zap.String("player", client.GetName()), zap.Int("seat", player.Seat))

	room.saveSnapshot()
	return room, nil
}

// CreateMatchRoom 为匹配到的玩家创建房间，空位补机器人后直接开始
func (rm *RoomManager) CreateMatchRoom(clients []types.ClientInterface) (*Room, error) {
	if len(clients) == 0 || len(clients) > rule.PlayerCount {
		return nil, apperrors.ErrInvalidSeat
	}

	rm.mu.Lock()
	code := rm.generateRoomCode()
	room := newRoom(code, false, rm.opts, rm.store, rm.recorder, rm.log)
	rm.rooms[code] = room
	rm.mu.Unlock()

	if err := rm.openMatchRoom(room, clients); err != nil {
		rm.discardRoom(room)
		return nil, err
	}
	return room, nil
}

func (rm *RoomManager) openMatchRoom(room *Room, clients []types.ClientInterface) error {
	room.mu.Lock()
	defer room.mu.Unlock()

	for _, c := range clients {
		p, err := room.seatClient(c)
		if err != nil {
			return err
		}
		p.Ready = true
	}
	room.fillWithBots(rm.opts.BotLevel)

	players := room.allPlayersInfo()
	for _, p := range room.Players {
		p.send(codec.MustNewMessage(protocol.MsgMatchFound, protocol.MatchFoundPayload{RoomCode: room.Code, Players: players}))
		p.send(codec.MustNewMessage(protocol.MsgRoomJoined, protocol.RoomJoinedPayload{
			RoomCode: room.Code,
			Player:   room.playerInfo(p),
			Players:  players,
		}))
	}
	rm.log.Info("🎯 匹配成功", zap.String("room", room.Code), zap.Int("humans", len(clients)))

	return room.startGame()
}

// LeaveRoom 离开房间，房间中没有真人时解散
func (rm *RoomManager) LeaveRoom(client types.ClientInterface) {
	roomCode := client.GetRoom()
	if roomCode == "" {
		return
	}
	room := rm.GetRoom(roomCode)
	if room == nil {
		client.SetRoom("")
		return
	}

	room.mu.Lock()
	empty, found := room.removePlayer(client.GetID())
	if !found {
		client.SetRoom("")
	}
	if empty {
		room.destroy()
	} else {
		room.saveSnapshot()
	}
	room.mu.Unlock()

	if found {
		rm.log.Info("👋 玩家离开房间", zap.String("room", roomCode), zap.String("player", client.GetName()))
	}
	if empty {
		rm.removeRoom(roomCode)
	}
}

// SetPlayerReady 设置玩家准备状态
func (rm *RoomManager) SetPlayerReady(client types.ClientInterface, ready bool) error {
	roomCode := client.GetRoom()
	if roomCode == "" {
		return apperrors.ErrNotInRoom
	}
	room := rm.GetRoom(roomCode)
	if room == nil {
		return apperrors.ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	return room.setReady(client.GetID(), ready)
}

// NotifyPlayerOffline 玩家断线。等待中的房间直接离开；对局中保留座位等待重连
func (rm *RoomManager) NotifyPlayerOffline(client types.ClientInterface) {
	roomCode := client.GetRoom()
	if roomCode == "" {
		return
	}
	room := rm.GetRoom(roomCode)
	if room == nil {
		return
	}

	room.mu.Lock()
	waiting := room.State == RoomStateWaiting
	if !waiting {
		room.playerOffline(client.GetID())
	}
	room.mu.Unlock()

	if waiting {
		rm.LeaveRoom(client)
	}
}

// ReconnectPlayer 玩家重连，回到原房间，返回房间号（不在房间中时为空）
func (rm *RoomManager) ReconnectPlayer(client types.ClientInterface) (string, error) {
	room := rm.GetRoomByPlayerID(client.GetID())
	if room == nil {
		return "", nil
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return "", nil
	}
	if err := room.playerOnline(client); err != nil {
		return "", err
	}
	return room.Code, nil
}

// GetRoom 获取房间
func (rm *RoomManager) GetRoom(code string) *Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.rooms[code]
}

// GetRoomList 获取可加入的房间列表
func (rm *RoomManager) GetRoomList() []protocol.RoomListItem {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	rooms := []protocol.RoomListItem{}
	for code, room := range rm.rooms {
		room.mu.RLock()
		// 只返回等待中且未满的房间
		if room.State == RoomStateWaiting && !room.closed {
			if n := room.playerCount(); n < rule.PlayerCount {
				rooms = append(rooms, protocol.RoomListItem{
					RoomCode:    code,
					PlayerCount: n,
					MaxPlayers:  rule.PlayerCount,
				})
			}
		}
		room.mu.RUnlock()
	}
	return rooms
}

// GetRoomByPlayerID 通过玩家 ID 获取房间（不含已离开的座位）
func (rm *RoomManager) GetRoomByPlayerID(playerID string) *Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	for _, room := range rm.rooms {
		if room.HasPlayer(playerID) {
			return room
		}
	}
	return nil
}

// GetActiveGamesCount 获取进行中的比赛数量
func (rm *RoomManager) GetActiveGamesCount() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	count := 0
	for _, room := range rm.rooms {
		room.mu.RLock()
		if room.State == RoomStatePlaying {
			count++
		}
		room.mu.RUnlock()
	}
	return count
}

// RoomCount 房间总数
func (rm *RoomManager) RoomCount() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}

// removeRoom 从管理器中移除并销毁房间
func (rm *RoomManager) removeRoom(code string) {
	rm.mu.Lock()
	room, ok := rm.rooms[code]
	delete(rm.rooms, code)
	rm.mu.Unlock()
	if !ok {
		return
	}

	room.Destroy()
	if rm.store != nil {
		go func() { _ = rm.store.DeleteRoom(context.Background(), code) }()
	}
	rm.log.Info("🏠 房间已解散", zap.String("room", code))
}

// generateRoomCode 生成房间号，调用方需持有 rm.mu
func (rm *RoomManager) generateRoomCode() string {
	for {
		code := make([]byte, roomCodeLength)
		for i := range code {
			code[i] = roomCodeChars[rand.IntN(len(roomCodeChars))]
		}
		codeStr := string(code)
		if _, exists := rm.rooms[codeStr]; !exists {
			return codeStr
		}
	}
}

// cleanupLoop 定期清理超时房间
func (rm *RoomManager) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rm.cleanup(time.Now())
		case <-rm.done:
			return
		}
	}
}

// cleanup 清理超时的等待房间、已结束房间和无人在线的房间
func (rm *RoomManager) cleanup(now time.Time) {
	var expired []string

	rm.mu.RLock()
	for code, room := range rm.rooms {
		room.mu.Lock()
		idle := now.Sub(room.lastActive)
		switch {
		case room.State == RoomStateWaiting && now.Sub(room.CreatedAt) > rm.roomTimeout,
			room.State == RoomStateEnded && idle > rm.roomTimeout,
			!room.hasOnlineHuman() && idle > rm.abandonAfter:
			room.broadcast(codec.MustNewMessage(protocol.MsgRoomClosed, protocol.RoomClosedPayload{
				RoomCode: code,
				Reason:   "房间超时已关闭",
			}))
			for _, p := range room.Players {
				if p != nil && p.Client != nil {
					p.Client.SetRoom("")
				}
			}
			room.destroy()
			expired = append(expired, code)
		}
		room.mu.Unlock()
	}
	rm.mu.RUnlock()

	for _, code := range expired {
		rm.removeRoom(code)
		rm.log.Info("🧹 房间超时已清理", zap.String("room", code))
	}
}

// Close 停止清理协程并关闭所有房间
func (rm *RoomManager) Close() {
	rm.closeOnce.Do(func() { close(rm.done) })

	rm.mu.Lock()
	rooms := rm.rooms
	rm.rooms = make(map[string]*Room)
	rm.mu.Unlock()

	for _, room := range rooms {
		room.Destroy()
	}
}
