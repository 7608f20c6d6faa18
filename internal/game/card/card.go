package card

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Suit 定义花色，数值顺序即理牌顺序（黑桃、红心、方块、梅花）
type Suit int

// Rank 定义点数，数值即牌力（2-14）
type Rank int

// Card 定义一张牌
type Card struct {
	Suit Suit
	Rank Rank
}

// NoSuit 表示无花色（如当前墩尚无首牌）
const NoSuit Suit = -1

const (
	Spades   Suit = iota // 黑桃（将牌）
	Hearts               // 红心
	Diamonds             // 方块
	Clubs                // 梅花
)

// Trump 将牌花色固定为黑桃
const Trump = Spades

// Suits 所有花色（按理牌顺序）
var Suits = [4]Suit{Spades, Hearts, Diamonds, Clubs}

// suitNames 花色名称映射表（用于牌 ID）
var suitNames = map[Suit]string{
	Spades:   "spades",
	Hearts:   "hearts",
	Diamonds: "diamonds",
	Clubs:    "clubs",
}

// suitSymbols 花色符号映射表
var suitSymbols = map[Suit]string{
	Spades:   "♠",
	Hearts:   "♥",
	Diamonds: "♦",
	Clubs:    "♣",
}

func (s Suit) String() string {
	if name, ok := suitNames[s]; ok {
		return name
	}
	return ""
}

// Symbol 返回花色符号
func (s Suit) Symbol() string {
	return suitSymbols[s]
}

// Valid 是否为合法花色
func (s Suit) Valid() bool {
	_, ok := suitNames[s]
	return ok
}

// ParseSuit 从名称解析花色，空字符串解析为 NoSuit
func ParseSuit(name string) (Suit, error) {
	if name == "" {
		return NoSuit, nil
	}
	for s, n := range suitNames {
		if n == name {
			return s, nil
		}
	}
	return -1, fmt.Errorf("无法识别的花色: %s", name)
}

const (
	Rank2 Rank = iota + 2
	Rank3
	Rank4
	Rank5
	Rank6
	Rank7
	Rank8
	Rank9
	Rank10
	RankJ // Jack
	RankQ // Queen
	RankK // King
	RankA // Ace
)

// rankNames 牌面值字符串映射表
var rankNames = map[Rank]string{
	RankJ: "J",
	RankQ: "Q",
	RankK: "K",
	RankA: "A",
}

func (r Rank) String() string {
	if name, ok := rankNames[r]; ok {
		return name
	}
	return strconv.Itoa(int(r))
}

// ParseRank 从牌面字符串解析点数
func ParseRank(s string) (Rank, error) {
	for r, name := range rankNames {
		if name == s {
			return r, nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < int(Rank2) || n > int(Rank10) {
		return -1, fmt.Errorf("无法识别的点数: %s", s)
	}
	return Rank(n), nil
}

// Value 返回牌力（2-14）
func (c Card) Value() int {
	return int(c.Rank)
}

// ID 返回牌的唯一标识，格式为 "{rank}-{suit}"
func (c Card) ID() string {
	return c.Rank.String() + "-" + c.Suit.String()
}

// IsTrump 是否为将牌
func (c Card) IsTrump() bool {
	return c.Suit == Trump
}

// IsHigh 是否为大牌（J 及以上）
func (c Card) IsHigh() bool {
	return c.Rank >= RankJ
}

func (c Card) String() string {
	return c.Suit.Symbol() + c.Rank.String()
}

// Parse 从 ID 解析牌
func Parse(id string) (Card, error) {
	rankStr, suitStr, ok := strings.Cut(id, "-")
	if !ok {
		return Card{}, fmt.Errorf("无效的牌 ID: %q", id)
	}
	rank, err := ParseRank(rankStr)
	if err != nil {
		return Card{}, err
	}
	suit, err := ParseSuit(suitStr)
	if err != nil {
		return Card{}, err
	}
	if suit == NoSuit {
		return Card{}, fmt.Errorf("无效的牌 ID: %q", id)
	}
	return Card{Suit: suit, Rank: rank}, nil
}

// Deck 定义一副牌
type Deck []Card

// NewDeck 创建一副 52 张的标准牌（按花色、点数有序）
func NewDeck() Deck {
	deck := make(Deck, 0, 52)
	for _, s := range Suits {
		for r := Rank2; r <= RankA; r++ {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// Shuffle 原地洗牌（Fisher–Yates），rng 为 nil 时使用全局随机源
func (d Deck) Shuffle(rng *rand.Rand) {
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	for i := len(d) - 1; i > 0; i-- {
		j := intN(i + 1)
		d[i], d[j] = d[j], d[i]
	}
}

// Shuffle 返回洗好的新牌组，不修改入参
func Shuffle(deck []Card, rng *rand.Rand) []Card {
	out := make(Deck, len(deck))
	copy(out, deck)
	out.Shuffle(rng)
	return out
}
