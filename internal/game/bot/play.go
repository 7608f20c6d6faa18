package bot

import (
	"cmp"
	"slices"

	"github.com/palemoky/call-break/internal/game/card"
	"github.com/palemoky/call-break/internal/game/rule"
)

// EasyBot 总是出最小的合法牌
type EasyBot struct{}

func (b *EasyBot) Level() Level { return LevelEasy }

func (b *EasyBot) Bid(hand []card.Card) int { return easyBid(hand) }

func (b *EasyBot) ChooseCard(hand []card.Card, lead card.Suit, trick []rule.TrickEntry, ctx Context) card.Card {
	legal := rule.ValidMoves(hand, lead, trick, ctx.MandatoryTrumping)
	low, _ := card.Lowest(legal)
	return low
}

// MediumBot 能赢时用最小的赢牌，否则垫最小的牌
type MediumBot struct{}

func (b *MediumBot) Level() Level { return LevelMedium }

func (b *MediumBot) Bid(hand []card.Card) int { return mediumBid(hand) }

func (b *MediumBot) ChooseCard(hand []card.Card, lead card.Suit, trick []rule.TrickEntry, ctx Context) card.Card {
	legal := rule.ValidMoves(hand, lead, trick, ctx.MandatoryTrumping)
	if winners := winningCards(legal, lead, trick); len(winners) > 0 {
		return cheapest(winners)
	}
	low, _ := card.Lowest(legal)
	return low
}

// HardBot 考虑座位顺序与叫分完成情况
type HardBot struct{}

func (b *HardBot) Level() Level { return LevelHard }

func (b *HardBot) Bid(hand []card.Card) int { return hardBid(hand) }

func (b *HardBot) ChooseCard(hand []card.Card, lead card.Suit, trick []rule.TrickEntry, ctx Context) card.Card {
	legal := rule.ValidMoves(hand, lead, trick, ctx.MandatoryTrumping)
	quotaMet := ctx.TricksNeeded <= 0

	if len(trick) == 0 {
		return b.chooseLead(legal, quotaMet)
	}

	winners := winningCards(legal, lead, trick)
	losers := without(legal, winners)

	if quotaMet {
		// 已完成叫分，尽量不再赢墩
		if len(losers) > 0 {
			low, _ := card.Lowest(losers)
			return low
		}
		return cheapest(winners)
	}

	if len(winners) == 0 {
		low, _ := card.Lowest(legal)
		return low
	}

	// 最后一家出牌，用最小的赢牌收墩
	if len(trick) == rule.PlayerCount-1 {
		return cheapest(winners)
	}

	// 还有人未出：跟首牌花色时出最大的，防止被后家压过；将吃时用最小的将牌
	if follow := card.OfSuit(winners, lead); len(follow) > 0 {
		high, _ := card.Highest(follow)
		return high
	}
	return cheapest(winners)
}

func (b *HardBot) chooseLead(legal []card.Card, quotaMet bool) card.Card {
	if !quotaMet {
		for _, c := range legal {
			if c.Rank == card.RankA && !c.IsTrump() {
				return c
			}
		}
		for _, c := range legal {
			if c.IsTrump() && c.Rank >= card.RankK {
				return c
			}
		}
	}
	return median(legal)
}

// winningCards 返回能压过当前最大牌的牌；首家出牌时所有牌都视为赢牌
func winningCards(cards []card.Card, lead card.Suit, trick []rule.TrickEntry) []card.Card {
	winner, ok := rule.CurrentWinner(trick, lead)
	if !ok {
		return slices.Clone(cards)
	}
	var result []card.Card
	for _, c := range cards {
		if rule.Beats(c, winner.Card, lead) {
			result = append(result, c)
		}
	}
	return result
}

// cheapest 最便宜的牌：优先非将牌，其次点数最小
func cheapest(cards []card.Card) card.Card {
	var side []card.Card
	for _, c := range cards {
		if !c.IsTrump() {
			side = append(side, c)
		}
	}
	if low, ok := card.Lowest(side); ok {
		return low
	}
	low, _ := card.Lowest(cards)
	return low
}

// median 按点数排序后的中间牌
func median(cards []card.Card) card.Card {
	sorted := slices.Clone(cards)
	slices.SortStableFunc(sorted, func(a, b card.Card) int {
		if c := cmp.Compare(a.Rank, b.Rank); c != 0 {
			return c
		}
		return cmp.Compare(a.Suit, b.Suit)
	})
	return sorted[len(sorted)/2]
}

func without(cards, remove []card.Card) []card.Card {
	var result []card.Card
	for _, c := range cards {
		if !slices.Contains(remove, c) {
			result = append(result, c)
		}
	}
	return result
}
