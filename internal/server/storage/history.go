package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 支持的数据库驱动
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// MatchRecord 一场完整比赛的记录
type MatchRecord struct {
	ID         int64               `gorm:"primaryKey;autoIncrement"`
	RoomCode   string              `gorm:"size:16;index"`
	Rounds     int                 `gorm:"not null"`
	Solo       bool                `gorm:"default:false"`
	FinishedAt time.Time           `gorm:"index"`
	Players    []MatchPlayerRecord `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time
}

// MatchPlayerRecord 比赛中某个座位的最终成绩
type MatchPlayerRecord struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	MatchID     int64  `gorm:"index;not null"`
	PlayerID    string `gorm:"size:64;index;not null"`
	Name        string `gorm:"size:64"`
	Seat        int
	IsBot       bool
	Place       int
	ScoreTenths int // 0.1 分为单位
}

// OpenDB 按驱动名打开数据库
func OpenDB(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}
	return db, nil
}

// HistoryStore 比赛历史存储
type HistoryStore struct {
	db *gorm.DB
}

// NewHistoryStore 创建历史存储并迁移表结构
func NewHistoryStore(db *gorm.DB) (*HistoryStore, error) {
	if err := db.AutoMigrate(&MatchRecord{}, &MatchPlayerRecord{}); err != nil {
		return nil, fmt.Errorf("迁移历史表失败: %w", err)
	}
	return &HistoryStore{db: db}, nil
}

// SaveMatch 保存比赛及其玩家成绩
func (hs *HistoryStore) SaveMatch(ctx context.Context, record *MatchRecord) error {
	if record.FinishedAt.IsZero() {
		record.FinishedAt = time.Now()
	}
	return hs.db.WithContext(ctx).Create(record).Error
}

// ListByPlayer 查询玩家参与过的比赛，按结束时间倒序
func (hs *HistoryStore) ListByPlayer(ctx context.Context, playerID string, limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	sub := hs.db.Model(&MatchPlayerRecord{}).Select("match_id").Where("player_id = ?", playerID)

	var records []MatchRecord
	err := hs.db.WithContext(ctx).
		Preload("Players", func(db *gorm.DB) *gorm.DB { return db.Order("place ASC") }).
		Where("id IN (?)", sub).
		Order("finished_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CountMatches 比赛总数
func (hs *HistoryStore) CountMatches(ctx context.Context) (int64, error) {
	var n int64
	err := hs.db.WithContext(ctx).Model(&MatchRecord{}).Count(&n).Error
	return n, err
}
