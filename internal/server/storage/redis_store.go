package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key 前缀
	roomKeyPrefix    = "room:"
	sessionKeyPrefix = "session:"
	matchQueueKey    = "match:queue"

	// 房间数据过期时间
	roomExpiration = 2 * time.Hour
)

// RoomData 房间快照（用于 Redis 序列化，仅用于观测和排障）
type RoomData struct {
	Code      string       `json:"code"`
	State     int          `json:"state"`
	Solo      bool         `json:"solo"`
	Players   []PlayerData `json:"players"`
	CreatedAt int64        `json:"created_at"`
	Game      *GameData    `json:"game,omitempty"`
}

// PlayerData 座位数据
type PlayerData struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Seat     int    `json:"seat"`
	Ready    bool   `json:"ready"`
	IsBot    bool   `json:"is_bot"`
	BotLevel string `json:"bot_level,omitempty"`
	Online   bool   `json:"online"`
}

// GameData 对局进度快照
type GameData struct {
	Phase            string     `json:"phase"`
	CurrentRound     int        `json:"current_round"`
	TotalRounds      int        `json:"total_rounds"`
	TrickNumber      int        `json:"trick_number"`
	CurrentTurnSeat  int        `json:"current_turn_seat"`
	BiddingStartSeat int        `json:"bidding_start_seat"`
	Bids             []int      `json:"bids"`
	TricksWon        []int      `json:"tricks_won"`
	TotalScores      []int      `json:"total_scores"` // 以 0.1 分为单位
	Hands            [][]string `json:"hands"`        // 牌 ID
}

// RedisStore Redis 存储
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Ping 检查连接
func (rs *RedisStore) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

// --- 房间存储 ---

// SaveRoom 保存房间到 Redis
func (rs *RedisStore) SaveRoom(ctx context.Context, roomCode string, data *RoomData) error {
	if data == nil {
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("序列化房间数据失败: %w", err)
	}

	key := roomKeyPrefix + roomCode
	return rs.client.Set(ctx, key, jsonData, roomExpiration).Err()
}

// LoadRoom 从 Redis 加载房间快照，不存在时返回 nil
func (rs *RedisStore) LoadRoom(ctx context.Context, code string) (*RoomData, error) {
	key := roomKeyPrefix + code
	data, err := rs.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var roomData RoomData
	if err := json.Unmarshal(data, &roomData); err != nil {
		return nil, fmt.Errorf("反序列化房间数据失败: %w", err)
	}

	return &roomData, nil
}

// DeleteRoom 从 Redis 删除房间
func (rs *RedisStore) DeleteRoom(ctx context.Context, code string) error {
	key := roomKeyPrefix + code
	return rs.client.Del(ctx, key).Err()
}

// GetAllRoomCodes 获取所有房间号
func (rs *RedisStore) GetAllRoomCodes(ctx context.Context) ([]string, error) {
	var codes []string
	iter := rs.client.Scan(ctx, 0, roomKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		codes = append(codes, iter.Val()[len(roomKeyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}

// --- 匹配队列 ---

// AddToMatchQueue 添加玩家到匹配队列
func (rs *RedisStore) AddToMatchQueue(ctx context.Context, playerID string) error {
	return rs.client.RPush(ctx, matchQueueKey, playerID).Err()
}

// RemoveFromMatchQueue 从匹配队列移除玩家
func (rs *RedisStore) RemoveFromMatchQueue(ctx context.Context, playerID string) error {
	return rs.client.LRem(ctx, matchQueueKey, 0, playerID).Err()
}

// GetMatchQueueLength 获取匹配队列长度
func (rs *RedisStore) GetMatchQueueLength(ctx context.Context) (int64, error) {
	return rs.client.LLen(ctx, matchQueueKey).Result()
}

// PopFromMatchQueue 从匹配队列弹出指定数量的玩家
func (rs *RedisStore) PopFromMatchQueue(ctx context.Context, count int) ([]string, error) {
	pipe := rs.client.Pipeline()
	results := make([]*redis.StringCmd, count)

	for i := range count {
		results[i] = pipe.LPop(ctx, matchQueueKey)
	}

	_, err := pipe.Exec(ctx)
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	players := make([]string, 0, count)
	for _, result := range results {
		if playerID, err := result.Result(); err == nil {
			players = append(players, playerID)
		}
	}

	return players, nil
}

// --- 会话存储 ---

// PlayerSessionData 玩家会话数据（用于 Redis 序列化）
type PlayerSessionData struct {
	PlayerID       string `json:"player_id" redis:"player_id"`
	PlayerName     string `json:"player_name" redis:"player_name"`
	ReconnectToken string `json:"token" redis:"token"`
	RoomCode       string `json:"room_code" redis:"room_code"`
	IsOnline       bool   `json:"is_online" redis:"is_online"`
	DisconnectedAt int64  `json:"disconnected_at,omitempty" redis:"disconnected_at"`
}

// SaveSession 保存会话到 Redis，ttl 为 0 时不过期
func (rs *RedisStore) SaveSession(ctx context.Context, session *PlayerSessionData, ttl time.Duration) error {
	data := map[string]any{
		"player_id":       session.PlayerID,
		"player_name":     session.PlayerName,
		"token":           session.ReconnectToken,
		"room_code":       session.RoomCode,
		"is_online":       session.IsOnline,
		"disconnected_at": session.DisconnectedAt,
	}

	key := sessionKeyPrefix + session.PlayerID
	pipe := rs.client.TxPipeline()
	pipe.HSet(ctx, key, data)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// LoadSession 从 Redis 加载会话，不存在时返回 nil
func (rs *RedisStore) LoadSession(ctx context.Context, playerID string) (*PlayerSessionData, error) {
	key := sessionKeyPrefix + playerID
	var session PlayerSessionData
	cmd := rs.client.HGetAll(ctx, key)
	data, err := cmd.Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	if err := cmd.Scan(&session); err != nil {
		return nil, fmt.Errorf("解析会话失败: %w", err)
	}
	return &session, nil
}

// DeleteSession 删除会话
func (rs *RedisStore) DeleteSession(ctx context.Context, playerID string) error {
	key := sessionKeyPrefix + playerID
	return rs.client.Del(ctx, key).Err()
}

// --- 辅助方法 ---

// SetRoomExpiration 设置房间过期时间
func (rs *RedisStore) SetRoomExpiration(ctx context.Context, code string, expiration time.Duration) error {
	key := roomKeyPrefix + code
	return rs.client.Expire(ctx, key, expiration).Err()
}
