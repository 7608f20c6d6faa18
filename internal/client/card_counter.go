package client

import "github.com/palemoky/call-break/internal/game/card"

// CardCounter 记牌器：记录本局已经出过的牌
type CardCounter struct {
	played map[card.Suit]int
	seen   map[string]bool
}

// NewCardCounter 创建记牌器
func NewCardCounter() *CardCounter {
	cc := &CardCounter{}
	cc.Reset()
	return cc
}

// Reset 新一局开始时清空
func (cc *CardCounter) Reset() {
	cc.played = make(map[card.Suit]int, 4)
	cc.seen = make(map[string]bool, 52)
}

// Observe 记录一张打出的牌，重复记录会被忽略
func (cc *CardCounter) Observe(c card.Card) {
	id := c.ID()
	if cc.seen[id] {
		return
	}
	cc.seen[id] = true
	cc.played[c.Suit]++
}

// Seen 这张牌本局是否已经出过
func (cc *CardCounter) Seen(c card.Card) bool {
	return cc.seen[c.ID()]
}

// Played 本局已出牌数
func (cc *CardCounter) Played() int {
	return len(cc.seen)
}

// Remaining 某花色尚未出现的张数（含自己手里的）
func (cc *CardCounter) Remaining(s card.Suit) int {
	return 13 - cc.played[s]
}
