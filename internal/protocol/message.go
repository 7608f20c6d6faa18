package protocol

import "encoding/json"

// Message 基础消息结构
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 消息类型
type MessageType string

// 客户端 → 服务端 消息类型
const (
	// 连接操作
	MsgReconnect   MessageType = "reconnect"    // 断线重连
	MsgPing        MessageType = "ping"         // 心跳 ping
	MsgSyncRequest MessageType = "sync_request" // 请求全量状态

	// 房间操作
	MsgCreateRoom  MessageType = "create_room"  // 创建房间
	MsgJoinRoom    MessageType = "join_room"    // 加入房间
	MsgLeaveRoom   MessageType = "leave_room"   // 离开房间
	MsgQuickMatch  MessageType = "quick_match"  // 快速匹配
	MsgCancelMatch MessageType = "cancel_match" // 取消匹配
	MsgReady       MessageType = "ready"        // 准备就绪
	MsgCancelReady MessageType = "cancel_ready" // 取消准备

	// 游戏操作
	MsgBid       MessageType = "bid"        // 叫分
	MsgPlayCard  MessageType = "play_card"  // 出牌
	MsgNextRound MessageType = "next_round" // 下一局
	MsgRestart   MessageType = "restart"    // 重开
	MsgReaction  MessageType = "reaction"   // 表情（仅广播）
	MsgChat      MessageType = "chat"       // 聊天（仅广播）

	// 信息查询
	MsgGetLeaderboard MessageType = "get_leaderboard"  // 获取排行榜
	MsgGetRoomList    MessageType = "get_room_list"    // 获取房间列表
	MsgGetOnlineCount MessageType = "get_online_count" // 获取在线人数
)

// 服务端 → 客户端 消息类型
const (
	// 连接相关
	MsgConnected     MessageType = "connected"      // 连接成功
	MsgReconnected   MessageType = "reconnected"    // 重连成功
	MsgPong          MessageType = "pong"           // 心跳 pong
	MsgPlayerOffline MessageType = "player_offline" // 玩家掉线通知
	MsgPlayerOnline  MessageType = "player_online"  // 玩家上线通知
	MsgOnlineCount   MessageType = "online_count"   // 在线人数

	// 房间相关
	MsgRoomCreated  MessageType = "room_created"  // 房间创建成功
	MsgRoomJoined   MessageType = "room_joined"   // 加入房间成功
	MsgPlayerJoined MessageType = "player_joined" // 其他玩家加入
	MsgPlayerLeft   MessageType = "player_left"   // 玩家离开
	MsgPlayerReady  MessageType = "player_ready"  // 玩家准备
	MsgMatchQueued  MessageType = "match_queued"  // 已进入匹配队列
	MsgMatchFound   MessageType = "match_found"   // 匹配成功
	MsgRoomClosed   MessageType = "room_closed"   // 房间关闭

	// 状态同步
	MsgStateSync  MessageType = "state_sync"  // 全量状态
	MsgStatePatch MessageType = "state_patch" // 增量状态

	// 游戏流程
	MsgGameStart      MessageType = "game_start"      // 比赛开始
	MsgBidPlaced      MessageType = "bid_placed"      // 有人叫分
	MsgCardPlayed     MessageType = "card_played"     // 有人出牌
	MsgTrickCompleted MessageType = "trick_completed" // 一墩结束
	MsgRoundCompleted MessageType = "round_completed" // 一局结束
	MsgGameOver       MessageType = "game_over"       // 比赛结束

	// 排行榜
	MsgLeaderboardResult MessageType = "leaderboard_result" // 排行榜结果
	MsgRoomListResult    MessageType = "room_list_result"   // 房间列表结果

	// 系统通知
	MsgMaintenancePush MessageType = "maintenance_push" // 维护通知

	// 错误
	MsgError MessageType = "error" // 错误消息
)
