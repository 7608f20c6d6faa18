package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/server/storage"
)

const (
	apiDefaultLimit = 10
	apiMaxLimit     = 50
)

// historyPlayer 历史记录中的座位成绩
type historyPlayer struct {
	PlayerID   string  `json:"player_id"`
	Name       string  `json:"name"`
	Seat       int     `json:"seat"`
	IsBot      bool    `json:"is_bot"`
	Place      int     `json:"place"`
	TotalScore float64 `json:"total_score"`
}

// historyMatch 一场比赛的历史记录
type historyMatch struct {
	ID         int64           `json:"id"`
	RoomCode   string          `json:"room_code"`
	Rounds     int             `json:"rounds"`
	Solo       bool            `json:"solo"`
	FinishedAt time.Time       `json:"finished_at"`
	Players    []historyPlayer `json:"players"`
}

// handleLeaderboard GET /api/leaderboard?type=total&offset=0&limit=10
func (s *Server) handleLeaderboard(c *gin.Context) {
	boardType := c.DefaultQuery("type", storage.LeaderboardTotal)
	offset := max(0, queryInt(c, "offset", 0))
	limit := queryInt(c, "limit", apiDefaultLimit)
	if limit <= 0 || limit > apiMaxLimit {
		limit = apiDefaultLimit
	}

	entries, err := s.leaderboard.GetLeaderboard(c.Request.Context(), boardType, offset, limit)
	if err != nil {
		s.log.Warn("⚠️ 查询排行榜失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取排行榜失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"type": boardType, "entries": entries})
}

// handleHistory GET /api/history/:player?limit=20
func (s *Server) handleHistory(c *gin.Context) {
	playerID := c.Param("player")
	limit := queryInt(c, "limit", 0)

	records, err := s.history.ListByPlayer(c.Request.Context(), playerID, limit)
	if err != nil {
		s.log.Warn("⚠️ 查询比赛历史失败", zap.String("player", playerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取比赛历史失败"})
		return
	}

	matches := make([]historyMatch, 0, len(records))
	for _, r := range records {
		m := historyMatch{
			ID:         r.ID,
			RoomCode:   r.RoomCode,
			Rounds:     r.Rounds,
			Solo:       r.Solo,
			FinishedAt: r.FinishedAt,
			Players:    make([]historyPlayer, 0, len(r.Players)),
		}
		for _, p := range r.Players {
			m.Players = append(m.Players, historyPlayer{
				PlayerID:   p.PlayerID,
				Name:       p.Name,
				Seat:       p.Seat,
				IsBot:      p.IsBot,
				Place:      p.Place,
				TotalScore: float64(p.ScoreTenths) / 10,
			})
		}
		matches = append(matches, m)
	}
	c.JSON(http.StatusOK, gin.H{"player_id": playerID, "matches": matches})
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
