package rule

import (
	"fmt"
	"strconv"
)

// Score 分数，以 0.1 分为单位的定点数，保证累加无精度损失
type Score int

// NewScore 由整数分构造分数
func NewScore(points int) Score {
	return Score(points * 10)
}

// Float 返回浮点形式（仅用于展示）
func (s Score) Float() float64 {
	return float64(s) / 10
}

// Tenths 返回以 0.1 分为单位的原始值
func (s Score) Tenths() int {
	return int(s)
}

// String 保留一位小数
func (s Score) String() string {
	sign := ""
	v := int(s)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + strconv.Itoa(v/10) + "." + strconv.Itoa(v%10)
}

// RoundScore 计算单局得分：达成叫分得 bid + 0.1×超出墩数，未达成扣 bid
func RoundScore(bid, tricksWon int) (Score, error) {
	if bid < MinBid || bid > MaxBid {
		return 0, fmt.Errorf("%w: %d", ErrInvalidBid, bid)
	}
	if tricksWon < 0 || tricksWon > TricksPerRound {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTricks, tricksWon)
	}
	if tricksWon >= bid {
		return Score(bid*10 + (tricksWon - bid)), nil
	}
	return Score(-bid * 10), nil
}

// ValidBid 叫分是否合法
func ValidBid(bid int) bool {
	return bid >= MinBid && bid <= MaxBid
}
