package rule

import (
	"errors"
	"slices"

	"github.com/palemoky/call-break/internal/game/card"
)

const (
	PlayerCount    = 4  // 玩家人数
	HandSize       = 13 // 每人手牌数
	TricksPerRound = 13 // 每局墩数
	MinBid         = 1  // 最小叫分
	MaxBid         = 8  // 最大叫分
)

var (
	ErrInvalidBid      = errors.New("叫分必须在 1-8 之间")
	ErrInvalidTricks   = errors.New("赢墩数必须在 0-13 之间")
	ErrIncompleteTrick = errors.New("一墩必须恰好有 4 张牌")
)

// TrickEntry 一墩中某个座位出的牌
type TrickEntry struct {
	Seat int
	Card card.Card
}

// CompareCards 比较两张牌在当前首牌花色下的大小，返回 1（a 大）、-1（b 大）或 0（不可比）
//
//   - 同花色比点数
//   - 将牌大于任何非将牌
//   - 首牌花色大于既非将牌也非首牌花色的牌
func CompareCards(a, b card.Card, lead card.Suit) int {
	switch {
	case a.Suit == b.Suit:
		switch {
		case a.Rank > b.Rank:
			return 1
		case a.Rank < b.Rank:
			return -1
		}
		return 0
	case a.IsTrump():
		return 1
	case b.IsTrump():
		return -1
	case lead != card.NoSuit && a.Suit == lead:
		return 1
	case lead != card.NoSuit && b.Suit == lead:
		return -1
	}
	return 0
}

// Beats a 是否大于 b
func Beats(a, b card.Card, lead card.Suit) bool {
	return CompareCards(a, b, lead) > 0
}

// CurrentWinner 当前墩中暂时领先的出牌，从首张开始从左到右依次比较
func CurrentWinner(trick []TrickEntry, lead card.Suit) (TrickEntry, bool) {
	if len(trick) == 0 {
		return TrickEntry{}, false
	}
	if lead == card.NoSuit {
		lead = trick[0].Card.Suit
	}
	winner := trick[0]
	for _, e := range trick[1:] {
		if Beats(e.Card, winner.Card, lead) {
			winner = e
		}
	}
	return winner, true
}

// TrickWinner 计算一墩（4 张）的赢家座位
func TrickWinner(trick []TrickEntry, lead card.Suit) (int, error) {
	if len(trick) != PlayerCount {
		return -1, ErrIncompleteTrick
	}
	winner, _ := CurrentWinner(trick, lead)
	return winner.Seat, nil
}

// ValidMoves 计算当前可出的牌，手牌非空时结果一定非空
//
// 规则：
//  1. 首家出牌可出任意牌
//  2. 有首牌花色必须跟出，能压过当前最大牌时必须压
//  3. 没有首牌花色但有将牌：能压过必须用将牌压；压不过时若强制出将则必须垫将牌，否则任意
//  4. 既无首牌花色也无将牌：任意
func ValidMoves(hand []card.Card, lead card.Suit, trick []TrickEntry, mandatoryTrumping bool) []card.Card {
	if len(hand) == 0 {
		return nil
	}
	if len(trick) == 0 || lead == card.NoSuit {
		return slices.Clone(hand)
	}

	winner, _ := CurrentWinner(trick, lead)

	if follow := card.OfSuit(hand, lead); len(follow) > 0 {
		if beaters := beating(follow, winner.Card, lead); len(beaters) > 0 {
			return beaters
		}
		return follow
	}

	if trumps := card.OfSuit(hand, card.Trump); len(trumps) > 0 {
		if beaters := beating(trumps, winner.Card, lead); len(beaters) > 0 {
			return beaters
		}
		if mandatoryTrumping {
			return trumps
		}
	}

	return slices.Clone(hand)
}

// IsValidMove 判断某张牌是否为合法出牌
func IsValidMove(c card.Card, hand []card.Card, lead card.Suit, trick []TrickEntry, mandatoryTrumping bool) bool {
	return slices.Contains(ValidMoves(hand, lead, trick, mandatoryTrumping), c)
}

func beating(cards []card.Card, target card.Card, lead card.Suit) []card.Card {
	var result []card.Card
	for _, c := range cards {
		if Beats(c, target, lead) {
			result = append(result, c)
		}
	}
	return result
}
