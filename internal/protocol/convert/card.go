package convert

import (
	"github.com/palemoky/call-break/internal/game/card"
	"github.com/palemoky/call-break/internal/game/rule"
	"github.com/palemoky/call-break/internal/protocol"
)

// --- Card conversion ---

// CardToInfo 将牌转换为协议中的牌信息
func CardToInfo(c card.Card) protocol.CardInfo {
	return protocol.CardInfo{
		ID:    c.ID(),
		Suit:  c.Suit.String(),
		Rank:  c.Rank.String(),
		Value: c.Value(),
	}
}

// CardsToInfos 批量转换牌
func CardsToInfos(cards []card.Card) []protocol.CardInfo {
	result := make([]protocol.CardInfo, len(cards))
	for i, c := range cards {
		result[i] = CardToInfo(c)
	}
	return result
}

// InfoToCard 通过 ID 还原牌，ID 无效时返回错误
func InfoToCard(info protocol.CardInfo) (card.Card, error) {
	return card.Parse(info.ID)
}

// InfosToCards 批量还原牌，任一 ID 无效即返回错误
func InfosToCards(infos []protocol.CardInfo) ([]card.Card, error) {
	result := make([]card.Card, len(infos))
	for i, info := range infos {
		c, err := InfoToCard(info)
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// TrickToInfos 将当前墩转换为协议中的出牌记录
func TrickToInfos(trick []rule.TrickEntry) []protocol.TrickEntryInfo {
	result := make([]protocol.TrickEntryInfo, len(trick))
	for i, e := range trick {
		result[i] = protocol.TrickEntryInfo{Seat: e.Seat, Card: CardToInfo(e.Card)}
	}
	return result
}
