package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLeaderboardManager(t *testing.T) *LeaderboardManager {
	t.Helper()
	client, _ := newTestRedis(t)
	lm := NewLeaderboardManager(client)
	lm.now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }
	return lm
}

func TestLeaderboard_RecordGameResult_NewPlayer(t *testing.T) {
	t.Parallel()

	lm := newTestLeaderboardManager(t)
	ctx := context.Background()

	require.NoError(t, lm.RecordGameResult(ctx, GameResult{PlayerID: "p1", PlayerName: "Player1", Place: 1, Points: 123}))

	stats, err := lm.GetPlayerStats(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, stats)

	assert.Equal(t, "p1", stats.PlayerID)
	assert.Equal(t, 1, stats.TotalGames)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 1, stats.Podiums)
	assert.Equal(t, 30, stats.Score)
	assert.Equal(t, 123, stats.TotalPoints)
	assert.Equal(t, 123, stats.BestPoints)
	assert.Equal(t, 1, stats.CurrentStreak)
}

func TestLeaderboard_RecordGameResult_Update(t *testing.T) {
	t.Parallel()

	lm := newTestLeaderboardManager(t)
	ctx := context.Background()

	// 第二名 +15
	require.NoError(t, lm.RecordGameResult(ctx, GameResult{PlayerID: "p1", PlayerName: "Player1", Place: 2, Points: -40}))
	// 第四名 -15，不低于 0
	require.NoError(t, lm.RecordGameResult(ctx, GameResult{PlayerID: "p1", PlayerName: "Renamed", Place: 4, Points: -90}))

	stats, err := lm.GetPlayerStats(ctx, "p1")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalGames)
	assert.Equal(t, 0, stats.Wins)
	assert.Equal(t, 2, stats.Losses)
	assert.Equal(t, 1, stats.Podiums)
	assert.Equal(t, 0, stats.Score)
	assert.Equal(t, -130, stats.TotalPoints)
	assert.Equal(t, -40, stats.BestPoints)
	assert.Equal(t, -2, stats.CurrentStreak)
	assert.Equal(t, "Renamed", stats.PlayerName)
}

func TestLeaderboard_InvalidPlace(t *testing.T) {
	t.Parallel()

	lm := newTestLeaderboardManager(t)
	assert.Error(t, lm.RecordGameResult(context.Background(), GameResult{PlayerID: "p1", Place: 5}))
	assert.Error(t, lm.RecordGameResult(context.Background(), GameResult{PlayerID: "p1", Place: 0}))
}

func TestLeaderboard_StreakBonus(t *testing.T) {
	t.Parallel()

	lm := newTestLeaderboardManager(t)
	ctx := context.Background()

	for range 3 {
		require.NoError(t, lm.RecordGameResult(ctx, GameResult{PlayerID: "p1", PlayerName: "Player1", Place: 1}))
	}

	stats, err := lm.GetPlayerStats(ctx, "p1")
	require.NoError(t, err)

	// 30 + 30 + (30 + 5)
	assert.Equal(t, 95, stats.Score)
	assert.Equal(t, 3, stats.CurrentStreak)
	assert.Equal(t, 3, stats.MaxWinStreak)
}

func TestLeaderboard_GetLeaderboard(t *testing.T) {
	t.Parallel()

	lm := newTestLeaderboardManager(t)
	ctx := context.Background()

	require.NoError(t, lm.RecordGameResult(ctx, GameResult{PlayerID: "p1", PlayerName: "Player1", Place: 1}))
	require.NoError(t, lm.RecordGameResult(ctx, GameResult{PlayerID: "p2", PlayerName: "Player2", Place: 2}))

	for _, typ := range []string{LeaderboardTotal, LeaderboardDaily, LeaderboardWeekly} {
		entries, err := lm.GetLeaderboard(ctx, typ, 0, 10)
		require.NoError(t, err)
		require.Len(t, entries, 2, typ)

		assert.Equal(t, "p1", entries[0].PlayerID)
		assert.Equal(t, 1, entries[0].Rank)
		assert.Equal(t, 30, entries[0].Score)
		assert.InDelta(t, 100.0, entries[0].WinRate, 1e-9)
		assert.Equal(t, "p2", entries[1].PlayerID)
		assert.Equal(t, 15, entries[1].Score)
	}

	page, err := lm.GetLeaderboard(ctx, LeaderboardTotal, 1, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, 2, page[0].Rank)

	empty, err := lm.GetLeaderboard(ctx, LeaderboardTotal, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLeaderboard_GetPlayerRank(t *testing.T) {
	t.Parallel()

	lm := newTestLeaderboardManager(t)
	ctx := context.Background()

	require.NoError(t, lm.RecordGameResult(ctx, GameResult{PlayerID: "p1", PlayerName: "Player1", Place: 1}))
	require.NoError(t, lm.RecordGameResult(ctx, GameResult{PlayerID: "p2", PlayerName: "Player2", Place: 2}))

	rank, err := lm.GetPlayerRank(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rank)

	rank, err = lm.GetPlayerRank(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rank)

	rank, err = lm.GetPlayerRank(ctx, "p3")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), rank)
}
