package protocol

// --- 基础结构 ---

// CardInfo 牌信息
type CardInfo struct {
	ID    string `json:"id"`
	Suit  string `json:"suit"`
	Rank  string `json:"rank"`
	Value int    `json:"value"`
}

// TrickEntryInfo 一墩中的出牌
type TrickEntryInfo struct {
	Seat int      `json:"seat"`
	Card CardInfo `json:"card"`
}

// PlayerInfo 房间内的玩家信息
type PlayerInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Seat   int    `json:"seat"`
	IsBot  bool   `json:"is_bot"`
	Ready  bool   `json:"ready"`
	Online bool   `json:"online"`
}

// PlayerState 对局中对外可见的玩家状态（不含手牌内容）
type PlayerState struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Seat       int     `json:"seat"`
	IsBot      bool    `json:"is_bot"`
	Bid        int     `json:"bid"` // 0 表示尚未叫分
	TricksWon  int     `json:"tricks_won"`
	RoundScore float64 `json:"round_score"`
	TotalScore float64 `json:"total_score"`
	Connected  bool    `json:"connected"`
	HandCount  int     `json:"hand_count"`
}

// GameStateDTO 某个观察者看到的状态投影
type GameStateDTO struct {
	Version          int64            `json:"version"`
	Seat             int              `json:"seat"` // 观察者座位，-1 为旁观
	Phase            string           `json:"phase"`
	CurrentRound     int              `json:"current_round"`
	TotalRounds      int              `json:"total_rounds"`
	TrickNumber      int              `json:"trick_number"`
	CurrentTurnSeat  int              `json:"current_turn_seat"`
	BiddingStartSeat int              `json:"bidding_start_seat"`
	LeadSuit         string           `json:"lead_suit,omitempty"`
	Trump            string           `json:"trump"`
	CurrentTrick     []TrickEntryInfo `json:"current_trick"`
	LastTrickWinner  int              `json:"last_trick_winner"`
	Players          []PlayerState    `json:"players"`
	Hand             []CardInfo       `json:"hand"`
	ValidMoves       []string         `json:"valid_moves,omitempty"`
}

// PlayerPatch 单个玩家的变更字段，nil 表示未变化
type PlayerPatch struct {
	Seat       int      `json:"seat"`
	ID         *string  `json:"id,omitempty"`
	Name       *string  `json:"name,omitempty"`
	IsBot      *bool    `json:"is_bot,omitempty"`
	Bid        *int     `json:"bid,omitempty"`
	TricksWon  *int     `json:"tricks_won,omitempty"`
	RoundScore *float64 `json:"round_score,omitempty"`
	TotalScore *float64 `json:"total_score,omitempty"`
	Connected  *bool    `json:"connected,omitempty"`
	HandCount  *int     `json:"hand_count,omitempty"`
}

// StatePatch 增量状态，只携带变化的字段
type StatePatch struct {
	BaseVersion      int64             `json:"base_version"`
	Version          int64             `json:"version"`
	Phase            *string           `json:"phase,omitempty"`
	CurrentRound     *int              `json:"current_round,omitempty"`
	TotalRounds      *int              `json:"total_rounds,omitempty"`
	TrickNumber      *int              `json:"trick_number,omitempty"`
	CurrentTurnSeat  *int              `json:"current_turn_seat,omitempty"`
	BiddingStartSeat *int              `json:"bidding_start_seat,omitempty"`
	LeadSuit         *string           `json:"lead_suit,omitempty"`
	CurrentTrick     *[]TrickEntryInfo `json:"current_trick,omitempty"`
	LastTrickWinner  *int              `json:"last_trick_winner,omitempty"`
	Players          []PlayerPatch     `json:"players,omitempty"`
	Hand             *[]CardInfo       `json:"hand,omitempty"`
	ValidMoves       *[]string         `json:"valid_moves,omitempty"`
}

// StandingInfo 排名
type StandingInfo struct {
	Place      int     `json:"place"`
	Seat       int     `json:"seat"`
	PlayerID   string  `json:"player_id"`
	Name       string  `json:"name"`
	IsBot      bool    `json:"is_bot"`
	TotalScore float64 `json:"total_score"`
}

// RoundScoreInfo 单局得分
type RoundScoreInfo struct {
	Seat       int     `json:"seat"`
	Bid        int     `json:"bid"`
	TricksWon  int     `json:"tricks_won"`
	RoundScore float64 `json:"round_score"`
	TotalScore float64 `json:"total_score"`
}

// --- 客户端请求 Payloads ---

// ReconnectPayload 断线重连请求
type ReconnectPayload struct {
	Token string `json:"token"` // 重连令牌
}

// PingPayload 心跳请求
type PingPayload struct {
	Timestamp int64 `json:"timestamp"` // 客户端时间戳（毫秒）
}

// SyncRequestPayload 请求全量状态
type SyncRequestPayload struct {
	Version int64 `json:"version"` // 客户端当前版本
}

// CreateRoomPayload 创建房间请求
type CreateRoomPayload struct {
	Solo     bool   `json:"solo"`                // 单机模式：补满机器人并立即开始
	BotLevel string `json:"bot_level,omitempty"` // easy/medium/hard
}

// JoinRoomPayload 加入房间请求
type JoinRoomPayload struct {
	RoomCode string `json:"room_code"`
}

// BidPayload 叫分请求
type BidPayload struct {
	Value int `json:"value"`
}

// PlayCardPayload 出牌请求
type PlayCardPayload struct {
	CardID string `json:"card_id"`
}

// ReactionPayload 表情
type ReactionPayload struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id,omitempty"`
	Seat     int    `json:"seat"`
}

// ChatPayload 聊天消息
type ChatPayload struct {
	Message    string `json:"message"`
	SenderID   string `json:"sender_id,omitempty"`
	SenderName string `json:"sender_name,omitempty"`
	Time       int64  `json:"time,omitempty"`
}

// GetLeaderboardPayload 获取排行榜请求
type GetLeaderboardPayload struct {
	Type   string `json:"type"`   // total/daily/weekly
	Offset int    `json:"offset"` // 偏移量
	Limit  int    `json:"limit"`  // 数量
}

// --- 服务端响应 Payloads ---

// ConnectedPayload 连接成功响应
type ConnectedPayload struct {
	PlayerID       string `json:"player_id"`
	PlayerName     string `json:"player_name"`
	ReconnectToken string `json:"reconnect_token"` // 重连令牌
}

// ReconnectedPayload 重连成功响应，携带轮换后的新令牌
type ReconnectedPayload struct {
	PlayerID       string        `json:"player_id"`
	PlayerName     string        `json:"player_name"`
	ReconnectToken string        `json:"reconnect_token"`
	RoomCode       string        `json:"room_code,omitempty"`
	State          *GameStateDTO `json:"state,omitempty"`
}

// PongPayload 心跳响应
type PongPayload struct {
	ClientTimestamp int64 `json:"client_timestamp"` // 客户端发送的时间戳
	ServerTimestamp int64 `json:"server_timestamp"` // 服务器时间戳（毫秒）
}

// PlayerOfflinePayload 玩家掉线通知
type PlayerOfflinePayload struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Seat       int    `json:"seat"`
	Timeout    int    `json:"timeout"` // 等待重连超时（秒），超时后托管
}

// PlayerOnlinePayload 玩家上线通知
type PlayerOnlinePayload struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Seat       int    `json:"seat"`
}

// OnlineCountPayload 在线人数
type OnlineCountPayload struct {
	Count int `json:"count"`
}

// RoomCreatedPayload 房间创建成功响应
type RoomCreatedPayload struct {
	RoomCode string       `json:"room_code"`
	Solo     bool         `json:"solo"`
	Player   PlayerInfo   `json:"player"`
	Players  []PlayerInfo `json:"players"`
}

// RoomJoinedPayload 加入房间成功响应
type RoomJoinedPayload struct {
	RoomCode string       `json:"room_code"`
	Player   PlayerInfo   `json:"player"`
	Players  []PlayerInfo `json:"players"`
}

// PlayerJoinedPayload 其他玩家加入通知
type PlayerJoinedPayload struct {
	Player PlayerInfo `json:"player"`
}

// PlayerLeftPayload 玩家离开通知
type PlayerLeftPayload struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Seat       int    `json:"seat"`
}

// PlayerReadyPayload 玩家准备通知
type PlayerReadyPayload struct {
	PlayerID string `json:"player_id"`
	Ready    bool   `json:"ready"`
}

// MatchQueuedPayload 进入匹配队列
type MatchQueuedPayload struct {
	QueueSize int `json:"queue_size"`
	WaitSecs  int `json:"wait_secs"` // 超时后补机器人
}

// MatchFoundPayload 匹配成功
type MatchFoundPayload struct {
	RoomCode string       `json:"room_code"`
	Players  []PlayerInfo `json:"players"`
}

// RoomClosedPayload 房间关闭
type RoomClosedPayload struct {
	RoomCode string `json:"room_code"`
	Reason   string `json:"reason"`
}

// GameStartPayload 比赛开始
type GameStartPayload struct {
	RoomCode    string       `json:"room_code"`
	Players     []PlayerInfo `json:"players"`
	TotalRounds int          `json:"total_rounds"`
}

// BidPlacedPayload 叫分通知
type BidPlacedPayload struct {
	Seat  int `json:"seat"`
	Value int `json:"value"`
}

// CardPlayedPayload 出牌通知
type CardPlayedPayload struct {
	Seat int      `json:"seat"`
	Card CardInfo `json:"card"`
}

// TrickCompletedPayload 一墩结束
type TrickCompletedPayload struct {
	TrickNumber int              `json:"trick_number"`
	WinnerSeat  int              `json:"winner_seat"`
	Cards       []TrickEntryInfo `json:"cards"`
}

// RoundCompletedPayload 一局结束
type RoundCompletedPayload struct {
	Round  int              `json:"round"`
	Scores []RoundScoreInfo `json:"scores"`
}

// GameOverPayload 比赛结束
type GameOverPayload struct {
	Standings []StandingInfo `json:"standings"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank       int     `json:"rank"`
	PlayerID   string  `json:"player_id"`
	PlayerName string  `json:"player_name"`
	Score      float64 `json:"score"`
	Wins       int     `json:"wins"`
	WinRate    float64 `json:"win_rate"`
}

// LeaderboardResultPayload 排行榜结果
type LeaderboardResultPayload struct {
	Type    string             `json:"type"`
	Entries []LeaderboardEntry `json:"entries"`
}

// RoomListItem 房间列表项
type RoomListItem struct {
	RoomCode    string `json:"room_code"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
}

// RoomListResultPayload 房间列表结果
type RoomListResultPayload struct {
	Rooms []RoomListItem `json:"rooms"`
}

// MaintenancePayload 维护通知
type MaintenancePayload struct {
	Maintenance bool   `json:"maintenance"`
	Message     string `json:"message"`
}

// ErrorPayload 错误响应
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
