package bot

import (
	"github.com/palemoky/call-break/internal/game/card"
)

func highCardCount(hand []card.Card) int {
	n := 0
	for _, c := range hand {
		if c.IsHigh() {
			n++
		}
	}
	return n
}

func countRank(hand []card.Card, r card.Rank) int {
	n := 0
	for _, c := range hand {
		if c.Rank == r {
			n++
		}
	}
	return n
}

// easyBid floor(大牌数/2)+1
func easyBid(hand []card.Card) int {
	return clampBid(highCardCount(hand)/2 + 1)
}

// mediumBid A 的数量 + floor(大牌数/3) + floor(将牌数/2)
func mediumBid(hand []card.Card) int {
	aces := countRank(hand, card.RankA)
	trumps := len(card.OfSuit(hand, card.Trump))
	return clampBid(aces + highCardCount(hand)/3 + trumps/2)
}

// 期望墩数（单位 0.1 墩）
const (
	trumpTopTier  = 9 // 将牌 A/K/Q
	trumpMidTier  = 6 // 将牌 J/10
	trumpLowTier  = 2 // 其余将牌
	sideAceValue  = 8
	sideKingValue = 5
	voidRuffValue = 3 // 持有将牌时每个缺门
)

// hardBid 逐门估算期望墩数后四舍五入
func hardBid(hand []card.Card) int {
	tenths := 0
	trumps := 0
	for _, c := range hand {
		if c.IsTrump() {
			trumps++
			switch {
			case c.Rank >= card.RankQ:
				tenths += trumpTopTier
			case c.Rank >= card.Rank10:
				tenths += trumpMidTier
			default:
				tenths += trumpLowTier
			}
			continue
		}
		switch c.Rank {
		case card.RankA:
			tenths += sideAceValue
		case card.RankK:
			tenths += sideKingValue
		}
	}

	if trumps > 0 {
		counts := card.CountSuits(hand)
		for _, s := range card.Suits {
			if s != card.Trump && counts[s] == 0 {
				tenths += voidRuffValue
			}
		}
	}

	return clampBid((tenths + 5) / 10)
}
