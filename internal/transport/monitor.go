package transport

import (
	"context"
	"sync"
	"time"
)

// Quality 连接质量
type Quality string

const (
	QualityGood    Quality = "good"
	QualityFair    Quality = "fair"
	QualityPoor    Quality = "poor"
	QualityOffline Quality = "offline"
)

const (
	DefaultMonitorInterval = 2 * time.Second
	DefaultMonitorTimeout  = 5 * time.Second

	monitorEventBuffer = 16
)

// Classify 根据距上次活动的时长判断连接质量
func Classify(elapsed, timeout time.Duration) Quality {
	switch {
	case elapsed < timeout:
		return QualityGood
	case elapsed < 2*timeout:
		return QualityFair
	case elapsed < 3*timeout:
		return QualityPoor
	default:
		return QualityOffline
	}
}

// QualityEvent 连接质量变化
type QualityEvent struct {
	From    Quality
	To      Quality
	Elapsed time.Duration
}

// MonitorOptions 监测配置
type MonitorOptions struct {
	Interval time.Duration    // 轮询间隔，默认 2s
	Timeout  time.Duration    // 判定基准，默认 5s
	Now      func() time.Time // 时钟，测试可注入
}

// Monitor 根据收到消息的时间推断链路健康度，只在质量变化时发出事件
type Monitor struct {
	opts MonitorOptions

	mu           sync.Mutex
	lastActivity time.Time
	quality      Quality
	events       chan QualityEvent

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor 创建监测器，初始质量为 good
func NewMonitor(opts MonitorOptions) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultMonitorInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultMonitorTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Monitor{
		opts:         opts,
		lastActivity: opts.Now(),
		quality:      QualityGood,
		events:       make(chan QualityEvent, monitorEventBuffer),
	}
}

// RecordActivity 收到任何入站消息时调用，重置计时基准
func (m *Monitor) RecordActivity() {
	m.mu.Lock()
	m.lastActivity = m.opts.Now()
	m.mu.Unlock()
}

// Poll 执行一次分类，返回当前质量以及是否发生了变化
func (m *Monitor) Poll() (Quality, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elapsed := m.opts.Now().Sub(m.lastActivity)
	q := Classify(elapsed, m.opts.Timeout)
	if q == m.quality {
		return q, false
	}

	ev := QualityEvent{From: m.quality, To: q, Elapsed: elapsed}
	m.quality = q
	select {
	case m.events <- ev:
	default:
		// 消费者跟不上时丢弃最旧的事件
		select {
		case <-m.events:
		default:
		}
		m.events <- ev
	}
	return q, true
}

// Quality 当前质量
func (m *Monitor) Quality() Quality {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quality
}

// Events 质量变化事件
func (m *Monitor) Events() <-chan QualityEvent {
	return m.events
}

// Start 启动轮询，ctx 结束或 Stop 时退出
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.lastActivity = m.opts.Now()
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Poll()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop 停止轮询并等待协程退出
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		m.wg.Wait()
	}
}
