package card

import (
	"cmp"
	"slices"
	"strings"
)

// SortHand 理牌：先按花色（黑桃、红心、方块、梅花），同花色按点数从大到小，返回新切片
func SortHand(hand []Card) []Card {
	sorted := slices.Clone(hand)
	slices.SortStableFunc(sorted, func(a, b Card) int {
		if c := cmp.Compare(a.Suit, b.Suit); c != 0 {
			return c
		}
		return cmp.Compare(b.Rank, a.Rank)
	})
	return sorted
}

// IndexOf 查找指定 ID 的牌在手牌中的位置，未找到返回 -1
func IndexOf(hand []Card, id string) int {
	return slices.IndexFunc(hand, func(c Card) bool { return c.ID() == id })
}

// Contains 手牌中是否包含指定的牌
func Contains(hand []Card, c Card) bool {
	return slices.Contains(hand, c)
}

// Remove 从手牌中移除一张牌，返回新手牌和是否移除成功
func Remove(hand []Card, c Card) ([]Card, bool) {
	i := slices.Index(hand, c)
	if i < 0 {
		return hand, false
	}
	return slices.Delete(slices.Clone(hand), i, i+1), true
}

// OfSuit 返回手牌中指定花色的牌
func OfSuit(hand []Card, s Suit) []Card {
	var result []Card
	for _, c := range hand {
		if c.Suit == s {
			result = append(result, c)
		}
	}
	return result
}

// HasSuit 手牌中是否有指定花色
func HasSuit(hand []Card, s Suit) bool {
	return slices.ContainsFunc(hand, func(c Card) bool { return c.Suit == s })
}

// CountSuits 统计各花色数量
func CountSuits(hand []Card) map[Suit]int {
	counts := make(map[Suit]int, 4)
	for _, c := range hand {
		counts[c.Suit]++
	}
	return counts
}

// Lowest 返回点数最小的牌（点数相同时取理牌顺序靠后的），空手牌返回 false
func Lowest(cards []Card) (Card, bool) {
	if len(cards) == 0 {
		return Card{}, false
	}
	low := cards[0]
	for _, c := range cards[1:] {
		if c.Rank < low.Rank || (c.Rank == low.Rank && c.Suit > low.Suit) {
			low = c
		}
	}
	return low, true
}

// Highest 返回点数最大的牌（点数相同时优先将牌），空手牌返回 false
func Highest(cards []Card) (Card, bool) {
	if len(cards) == 0 {
		return Card{}, false
	}
	high := cards[0]
	for _, c := range cards[1:] {
		if c.Rank > high.Rank || (c.Rank == high.Rank && c.Suit < high.Suit) {
			high = c
		}
	}
	return high, true
}

// IDs 返回牌的 ID 列表
func IDs(cards []Card) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID()
	}
	return ids
}

// Format 将牌格式化为可读字符串
func Format(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
