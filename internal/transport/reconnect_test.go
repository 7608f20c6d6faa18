package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTimers 手动触发的定时器队列
type fakeTimers struct {
	mu      sync.Mutex
	pending []*fakeTimer
	delays  []time.Duration
}

type fakeTimer struct {
	owner   *fakeTimers
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (ft *fakeTimers) AfterFunc(d time.Duration, f func()) Timer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	t := &fakeTimer{owner: ft, f: f}
	ft.pending = append(ft.pending, t)
	ft.delays = append(ft.delays, d)
	return t
}

func (ft *fakeTimers) RunNext() bool {
	ft.mu.Lock()
	var next *fakeTimer
	for len(ft.pending) > 0 {
		t := ft.pending[0]
		ft.pending = ft.pending[1:]
		if !t.stopped {
			t.stopped = true
			next = t
			break
		}
	}
	ft.mu.Unlock()
	if next == nil {
		return false
	}
	next.f()
	return true
}

func (ft *fakeTimers) Active() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	n := 0
	for _, t := range ft.pending {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (ft *fakeTimers) Delays() []time.Duration {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return append([]time.Duration(nil), ft.delays...)
}

func drainEvents(r *Reconnector) []ReconnectEvent {
	var out []ReconnectEvent
	for {
		select {
		case ev := <-r.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func kinds(events []ReconnectEvent) []ReconnectEventKind {
	out := make([]ReconnectEventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestReconnector_ExhaustsAfterThreeAttempts(t *testing.T) {
	t.Parallel()
	timers := &fakeTimers{}
	var calls atomic.Int32
	r := NewReconnector(ReconnectOptions{
		AfterFunc: timers.AfterFunc,
		Resume: func(_ context.Context, token string) (string, error) {
			calls.Add(1)
			assert.Equal(t, "tok-1", token)
			return "", errors.New("dial refused")
		},
	})
	r.SetToken("tok-1")

	r.HandleDisconnect()
	require.True(t, r.Reconnecting())
	for timers.RunNext() {
	}

	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, timers.Delays())
	assert.False(t, r.Reconnecting())
	assert.Empty(t, r.Token(), "token discarded after exhaustion")
	assert.Zero(t, timers.Active())

	events := drainEvents(r)
	assert.Equal(t, []ReconnectEventKind{
		ReconnectReconnecting, ReconnectReconnecting, ReconnectReconnecting, ReconnectFailed,
	}, kinds(events))
	assert.Equal(t, 3, events[2].Attempt)
	assert.Equal(t, 3, events[3].Attempt)
	require.Error(t, events[3].Err)

	// 耗尽后再次断线不会重试
	r.HandleDisconnect()
	assert.False(t, r.Reconnecting())
	assert.Equal(t, []ReconnectEventKind{ReconnectFailed}, kinds(drainEvents(r)))
	assert.EqualValues(t, 3, calls.Load())
}

func TestReconnector_SucceedsAndRotatesToken(t *testing.T) {
	t.Parallel()
	timers := &fakeTimers{}
	var calls atomic.Int32
	r := NewReconnector(ReconnectOptions{
		AfterFunc: timers.AfterFunc,
		Resume: func(context.Context, string) (string, error) {
			if calls.Add(1) == 1 {
				return "", errors.New("timeout")
			}
			return "tok-2", nil
		},
	})
	r.SetToken("tok-1")

	r.HandleDisconnect()
	for timers.RunNext() {
	}

	assert.Equal(t, "tok-2", r.Token())
	assert.False(t, r.Reconnecting())
	assert.Zero(t, r.Attempt())
	events := drainEvents(r)
	assert.Equal(t, []ReconnectEventKind{ReconnectReconnecting, ReconnectReconnecting, ReconnectSucceeded}, kinds(events))
	assert.Equal(t, 2, events[2].Attempt)

	// 成功后计数归零，下一次断线重新从 2s 开始
	calls.Store(1)
	r.HandleDisconnect()
	delays := timers.Delays()
	assert.Equal(t, 2*time.Second, delays[len(delays)-1])
}

func TestReconnector_DisconnectWhileReconnectingIsNoop(t *testing.T) {
	t.Parallel()
	timers := &fakeTimers{}
	r := NewReconnector(ReconnectOptions{
		AfterFunc: timers.AfterFunc,
		Resume:    func(context.Context, string) (string, error) { return "x", nil },
	})
	r.SetToken("tok")

	r.HandleDisconnect()
	r.HandleDisconnect()
	assert.Equal(t, 1, timers.Active())
	assert.Len(t, drainEvents(r), 1)
}

func TestReconnector_CancelStopsPendingRetry(t *testing.T) {
	t.Parallel()
	timers := &fakeTimers{}
	var calls atomic.Int32
	r := NewReconnector(ReconnectOptions{
		AfterFunc: timers.AfterFunc,
		Resume: func(context.Context, string) (string, error) {
			calls.Add(1)
			return "new", nil
		},
	})
	r.SetToken("tok")

	r.HandleDisconnect()
	r.Cancel()
	assert.Zero(t, timers.Active())
	assert.False(t, timers.RunNext())
	assert.Zero(t, calls.Load())
	assert.Equal(t, "tok", r.Token(), "cancel keeps the token")
	assert.False(t, r.Reconnecting())
}

func TestReconnector_ResetDropsInFlightResult(t *testing.T) {
	t.Parallel()
	timers := &fakeTimers{}
	started := make(chan struct{})
	release := make(chan struct{})
	ctxErr := make(chan error, 1)
	r := NewReconnector(ReconnectOptions{
		AfterFunc: timers.AfterFunc,
		Resume: func(ctx context.Context, _ string) (string, error) {
			close(started)
			<-release
			ctxErr <- ctx.Err()
			return "late-token", nil
		},
	})
	r.SetToken("tok")
	r.HandleDisconnect()
	drainEvents(r)

	done := make(chan struct{})
	go func() {
		defer close(done)
		timers.RunNext()
	}()
	<-started
	r.Reset()
	close(release)
	<-done

	assert.ErrorIs(t, <-ctxErr, context.Canceled)
	assert.Empty(t, r.Token(), "late success must not restore a token")
	assert.False(t, r.Reconnecting())
	assert.Empty(t, drainEvents(r))
}

func TestReconnector_SessionLostStopsImmediately(t *testing.T) {
	t.Parallel()
	timers := &fakeTimers{}
	r := NewReconnector(ReconnectOptions{
		AfterFunc: timers.AfterFunc,
		Resume: func(context.Context, string) (string, error) {
			return "", fmt.Errorf("%w: token rejected", ErrSessionLost)
		},
	})
	r.SetToken("tok")

	r.HandleDisconnect()
	for timers.RunNext() {
	}

	events := drainEvents(r)
	assert.Equal(t, []ReconnectEventKind{ReconnectReconnecting, ReconnectFailed}, kinds(events))
	assert.ErrorIs(t, events[1].Err, ErrSessionLost)
	assert.Empty(t, r.Token())
}

func TestReconnector_RealTimers(t *testing.T) {
	t.Parallel()
	r := NewReconnector(ReconnectOptions{
		BaseDelay: time.Millisecond,
		Resume:    func(context.Context, string) (string, error) { return "fresh", nil },
	})
	r.SetToken("tok")
	r.HandleDisconnect()

	require.Eventually(t, func() bool { return r.Token() == "fresh" }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, r.Reconnecting())
}
