package room

// RoomState 房间状态
type RoomState int

const (
	RoomStateWaiting RoomState = iota // 等待玩家
	RoomStatePlaying                  // 对局中
	RoomStateEnded                    // 比赛结束，可重开
)

func (s RoomState) String() string {
	switch s {
	case RoomStateWaiting:
		return "waiting"
	case RoomStatePlaying:
		return "playing"
	case RoomStateEnded:
		return "ended"
	default:
		return "unknown"
	}
}
