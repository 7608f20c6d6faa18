// Package replica 负责状态复制：服务端计算增量，客户端按版本应用
package replica

import (
	"errors"
	"fmt"
	"slices"

	"github.com/palemoky/call-break/internal/protocol"
)

// ErrVersionGap 增量的基准版本与本地版本不一致，需要全量同步
var ErrVersionGap = errors.New("state version gap")

// ErrPlayerMismatch 增量与本地状态的玩家数量不一致
var ErrPlayerMismatch = errors.New("player patch out of range")

// Diff 计算 prev → next 的增量，只包含变化字段
// 返回的增量 BaseVersion 为 prev.Version，Version 为 next.Version
func Diff(prev, next protocol.GameStateDTO) protocol.StatePatch {
	p := protocol.StatePatch{
		BaseVersion: prev.Version,
		Version:     next.Version,
	}

	p.Phase = changed(prev.Phase, next.Phase)
	p.CurrentRound = changed(prev.CurrentRound, next.CurrentRound)
	p.TotalRounds = changed(prev.TotalRounds, next.TotalRounds)
	p.TrickNumber = changed(prev.TrickNumber, next.TrickNumber)
	p.CurrentTurnSeat = changed(prev.CurrentTurnSeat, next.CurrentTurnSeat)
	p.BiddingStartSeat = changed(prev.BiddingStartSeat, next.BiddingStartSeat)
	p.LeadSuit = changed(prev.LeadSuit, next.LeadSuit)
	p.LastTrickWinner = changed(prev.LastTrickWinner, next.LastTrickWinner)

	p.CurrentTrick = changedSlice(prev.CurrentTrick, next.CurrentTrick)
	p.Hand = changedSlice(prev.Hand, next.Hand)
	p.ValidMoves = changedSlice(prev.ValidMoves, next.ValidMoves)

	for i, np := range next.Players {
		var op protocol.PlayerState
		if i < len(prev.Players) {
			op = prev.Players[i]
		}
		if pp, ok := diffPlayer(i, op, np); ok {
			p.Players = append(p.Players, pp)
		}
	}
	return p
}

func diffPlayer(index int, prev, next protocol.PlayerState) (protocol.PlayerPatch, bool) {
	pp := protocol.PlayerPatch{
		Seat:       index,
		ID:         changed(prev.ID, next.ID),
		Name:       changed(prev.Name, next.Name),
		IsBot:      changed(prev.IsBot, next.IsBot),
		Bid:        changed(prev.Bid, next.Bid),
		TricksWon:  changed(prev.TricksWon, next.TricksWon),
		RoundScore: changed(prev.RoundScore, next.RoundScore),
		TotalScore: changed(prev.TotalScore, next.TotalScore),
		Connected:  changed(prev.Connected, next.Connected),
		HandCount:  changed(prev.HandCount, next.HandCount),
	}
	empty := pp.ID == nil && pp.Name == nil && pp.IsBot == nil && pp.Bid == nil &&
		pp.TricksWon == nil && pp.RoundScore == nil && pp.TotalScore == nil &&
		pp.Connected == nil && pp.HandCount == nil
	return pp, !empty
}

// Empty 增量是否不含任何字段变化
func Empty(p protocol.StatePatch) bool {
	return p.Phase == nil && p.CurrentRound == nil && p.TotalRounds == nil &&
		p.TrickNumber == nil && p.CurrentTurnSeat == nil && p.BiddingStartSeat == nil &&
		p.LeadSuit == nil && p.CurrentTrick == nil && p.LastTrickWinner == nil &&
		len(p.Players) == 0 && p.Hand == nil && p.ValidMoves == nil
}

// Apply 将增量应用到 state 上，返回新状态；state 不会被修改
func Apply(state protocol.GameStateDTO, p protocol.StatePatch) (protocol.GameStateDTO, error) {
	if p.BaseVersion != state.Version {
		return state, fmt.Errorf("%w: have %d, patch base %d", ErrVersionGap, state.Version, p.BaseVersion)
	}

	next := state
	next.Players = slices.Clone(state.Players)
	next.Version = p.Version

	set(&next.Phase, p.Phase)
	set(&next.CurrentRound, p.CurrentRound)
	set(&next.TotalRounds, p.TotalRounds)
	set(&next.TrickNumber, p.TrickNumber)
	set(&next.CurrentTurnSeat, p.CurrentTurnSeat)
	set(&next.BiddingStartSeat, p.BiddingStartSeat)
	set(&next.LeadSuit, p.LeadSuit)
	set(&next.LastTrickWinner, p.LastTrickWinner)
	if p.CurrentTrick != nil {
		next.CurrentTrick = slices.Clone(*p.CurrentTrick)
	}
	if p.Hand != nil {
		next.Hand = slices.Clone(*p.Hand)
	}
	if p.ValidMoves != nil {
		next.ValidMoves = slices.Clone(*p.ValidMoves)
	}

	for _, pp := range p.Players {
		if pp.Seat < 0 {
			return state, fmt.Errorf("%w: %d", ErrPlayerMismatch, pp.Seat)
		}
		for len(next.Players) <= pp.Seat {
			next.Players = append(next.Players, protocol.PlayerState{Seat: len(next.Players)})
		}
		ps := &next.Players[pp.Seat]
		set(&ps.ID, pp.ID)
		set(&ps.Name, pp.Name)
		set(&ps.IsBot, pp.IsBot)
		set(&ps.Bid, pp.Bid)
		set(&ps.TricksWon, pp.TricksWon)
		set(&ps.RoundScore, pp.RoundScore)
		set(&ps.TotalScore, pp.TotalScore)
		set(&ps.Connected, pp.Connected)
		set(&ps.HandCount, pp.HandCount)
	}
	return next, nil
}

func changed[T comparable](prev, next T) *T {
	if prev == next {
		return nil
	}
	v := next
	return &v
}

// changedSlice 清空的切片编码为 []，避免 null 被解码为"未变化"
func changedSlice[S ~[]E, E comparable](prev, next S) *S {
	if slices.Equal(prev, next) {
		return nil
	}
	v := append(S{}, next...)
	return &v
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
