package bot

import (
	"fmt"

	"github.com/palemoky/call-break/internal/game/card"
	"github.com/palemoky/call-break/internal/game/rule"
)

// Level 机器人难度
type Level string

const (
	LevelEasy   Level = "easy"
	LevelMedium Level = "medium"
	LevelHard   Level = "hard"
)

// ParseLevel 解析难度，空字符串视为 medium
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case "":
		return LevelMedium, nil
	case LevelEasy, LevelMedium, LevelHard:
		return Level(s), nil
	default:
		return "", fmt.Errorf("unknown bot level: %q", s)
	}
}

// Context 出牌决策上下文
type Context struct {
	TricksNeeded      int  // 距离叫分还差的墩数（<= 0 表示已达成）
	TricksWon         int  // 本局已赢墩数
	MandatoryTrumping bool // 是否强制出将
}

// Brain 机器人决策接口，所有难度共享
type Brain interface {
	Level() Level
	// Bid 叫分，结果总在 [1,8]
	Bid(hand []card.Card) int
	// ChooseCard 选择出牌，结果总在 rule.ValidMoves 之内
	ChooseCard(hand []card.Card, lead card.Suit, trick []rule.TrickEntry, ctx Context) card.Card
}

// NewBrain 按难度创建机器人
func NewBrain(level Level) (Brain, error) {
	switch level {
	case LevelEasy:
		return &EasyBot{}, nil
	case LevelMedium:
		return &MediumBot{}, nil
	case LevelHard:
		return &HardBot{}, nil
	default:
		return nil, fmt.Errorf("unknown bot level: %q", level)
	}
}

// MustNewBrain 创建机器人，难度非法时 panic
func MustNewBrain(level Level) Brain {
	b, err := NewBrain(level)
	if err != nil {
		panic(err)
	}
	return b
}

func clampBid(v int) int {
	return max(rule.MinBid, min(rule.MaxBid, v))
}
