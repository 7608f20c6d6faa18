package room

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/game/bot"
	"github.com/palemoky/call-break/internal/game/engine"
	"github.com/palemoky/call-break/internal/game/rule"
	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/protocol/replica"
	"github.com/palemoky/call-break/internal/server/storage"
	"github.com/palemoky/call-break/internal/types"
)

const (
	roomCodeLength = 6            // 房间号长度
	roomCodeChars  = "0123456789" // 房间号字符集
	botIDPrefix    = "bot-"
)

// Timer 可取消的定时器
type Timer interface {
	Stop() bool
}

// AfterFunc 定时器工厂，测试中可替换为假时钟
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Options 房间内对局节奏与规则参数，应从 DefaultOptions 开始修改
type Options struct {
	TotalRounds       int
	MandatoryTrumping bool
	BotLevel          bot.Level     // 补位机器人难度
	BotDelay          time.Duration // 机器人思考时间
	TrickDelay        time.Duration // 一墩结束后的展示时间
	RoundDelay        time.Duration // 一局结束后自动进入下一局的等待时间
	OfflineGrace      time.Duration // 掉线后多久由机器人托管
	AutoNextRound     bool          // 是否自动进入下一局
	Rand              *rand.Rand    // 为 nil 时使用全局随机源
	AfterFunc         AfterFunc
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		TotalRounds:       engine.DefaultTotalRounds,
		MandatoryTrumping: true,
		BotLevel:          bot.LevelMedium,
		BotDelay:          800 * time.Millisecond,
		TrickDelay:        1200 * time.Millisecond,
		RoundDelay:        5 * time.Second,
		OfflineGrace:      20 * time.Second,
		AutoNextRound:     true,
	}
}

// Store 房间快照持久化
type Store interface {
	SaveRoom(ctx context.Context, roomCode string, data *storage.RoomData) error
	DeleteRoom(ctx context.Context, code string) error
}

// GameResult 一场比赛的最终结果
type GameResult struct {
	RoomCode  string
	Solo      bool
	Rounds    int
	Standings []engine.Standing
}

// Recorder 比赛结果落库（历史、排行榜）
type Recorder interface {
	RecordGame(ctx context.Context, result GameResult) error
}

// RoomPlayer 房间中的一个座位
type RoomPlayer struct {
	Client   types.ClientInterface // 真人在线时非空
	ID       string
	Name     string
	Seat     int
	Ready    bool
	IsBot    bool
	BotLevel bot.Level
	Online   bool
	Left     bool // 对局中离开，座位由机器人接管
}

// IsHuman 是否为真人座位（含已离开的真人）
func (p *RoomPlayer) IsHuman() bool {
	return !p.IsBot
}

func (p *RoomPlayer) send(msg *protocol.Message) {
	if p.Client != nil {
		p.Client.SendMessage(msg)
	}
}

// offlineTimer 掉线托管计时
type offlineTimer struct {
	timer Timer
	gen   uint64
}

// Room 游戏房间
// 所有状态变更都在 mu 下进行，对局状态机同一时刻只有一个写者
type Room struct {
	Code      string                         // 房间号
	Solo      bool                           // 单机模式
	State     RoomState                      // 房间状态
	Players   [rule.PlayerCount]*RoomPlayer // 按座位索引，nil 为空位
	CreatedAt time.Time                      // 创建时间

	opts       Options
	store      Store
	recorder   Recorder
	log        *zap.Logger
	game       *engine.Manager
	publisher  *replica.Publisher
	stepTimer  Timer
	stepGen    uint64
	offline    map[int]offlineTimer
	offlineGen uint64
	lastActive time.Time
	closed     bool

	mu sync.RWMutex
}

func newRoom(code string, solo bool, opts Options, store Store, recorder Recorder, log *zap.Logger) *Room {
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now()
	return &Room{
		Code:       code,
		Solo:       solo,
		State:      RoomStateWaiting,
		CreatedAt:  now,
		opts:       opts,
		store:      store,
		recorder:   recorder,
		log:        log.With(zap.String("room", code)),
		publisher:  replica.NewPublisher(),
		offline:    make(map[int]offlineTimer),
		lastActive: now,
	}
}

// RoomManager 房间管理器
type RoomManager struct {
	store        Store
	recorder     Recorder
	opts         Options
	roomTimeout  time.Duration
	abandonAfter time.Duration
	log          *zap.Logger
	rooms        map[string]*Room
	done         chan struct{}
	closeOnce    sync.Once
	mu           sync.RWMutex
}

// Deps 房间管理器依赖，Store 与 Recorder 可为空
type Deps struct {
	Store        Store
	Recorder     Recorder
	Logger       *zap.Logger
	Options      Options
	RoomTimeout  time.Duration // 等待中/已结束房间的超时
	AbandonAfter time.Duration // 所有真人离线多久后回收房间
}

// NewRoomManager 创建房间管理器
func NewRoomManager(deps Deps) *RoomManager {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.RoomTimeout <= 0 {
		deps.RoomTimeout = 10 * time.Minute
	}
	if deps.AbandonAfter <= 0 {
		deps.AbandonAfter = 5 * time.Minute
	}
	rm := &RoomManager{
		store:        deps.Store,
		recorder:     deps.Recorder,
		opts:         deps.Options,
		roomTimeout:  deps.RoomTimeout,
		abandonAfter: deps.AbandonAfter,
		log:          deps.Logger,
		rooms:        make(map[string]*Room),
		done:         make(chan struct{}),
	}

	// 启动房间清理协程
	go rm.cleanupLoop()

	return rm
}
