package server

import (
	"fmt"
	"math/rand/v2"
)

// 昵称词库
var (
	adjectives = []string{
		"沉稳的", "大胆的", "机智的", "冷静的", "果断的",
		"神秘的", "幸运的", "淡定的", "凶猛的", "谨慎的",
		"狡猾的", "耐心的", "闪亮的", "低调的", "无畏的",
	}

	nouns = []string{
		"黑桃A", "将牌手", "叫分王", "收墩人", "牌桌客",
		"红心K", "方块Q", "梅花J", "老庄家", "夜猫子",
		"算牌师", "赌神", "新手", "守门员", "领出者",
	}
)

// GenerateNickname 生成随机昵称，例如 "沉稳的黑桃A42"
func GenerateNickname() string {
	adj := adjectives[rand.IntN(len(adjectives))]
	noun := nouns[rand.IntN(len(nouns))]
	return fmt.Sprintf("%s%s%02d", adj, noun, rand.IntN(100))
}
