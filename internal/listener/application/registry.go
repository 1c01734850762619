// Package application 监听器生命周期与订单通知的用例层
package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/wyfcoding/ordernotify/internal/listener/domain"
	"github.com/wyfcoding/ordernotify/pkg/metrics"
)

// StopFunc 一次性的停止句柄。由 Registry 独占持有，
// 重复调用必须是安全的空操作（契约保证，而非巧合）。
type StopFunc func()

// StreamOpener 为指定用户会话建立流会话，返回其停止句柄。
// restarts 是会话向注册表请求自我重启的回传通道。
type StreamOpener interface {
	Open(ctx context.Context, sess *domain.UserSession, restarts RestartRequester) (StopFunc, error)
}

const restartQueueSize = 64

// Registry 单进程内按 (kind, userId) 维护活跃订阅。
// 任一时刻每个用户至多一个活跃条目；Listen/Stop 幂等，
// 使命令总线的 at-least-once 重复投递无害。
type Registry struct {
	kind     domain.Kind
	sessions domain.UserSessionRepository
	opener   StreamOpener
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[int64]*registryEntry

	restartCh chan int64
}

// registryEntry 单个用户的注册条目。stop 在拨号成功后填入；
// stopped 标记让连接期间到达的 Stop 能废弃刚建立的连接。
type registryEntry struct {
	mu      sync.Mutex
	stop    StopFunc
	stopped bool
}

// NewRegistry 创建监听器注册表
func NewRegistry(kind domain.Kind, sessions domain.UserSessionRepository, opener StreamOpener, m *metrics.Metrics, logger *slog.Logger) *Registry {
	return &Registry{
		kind:      kind,
		sessions:  sessions,
		opener:    opener,
		metrics:   m,
		logger:    logger,
		entries:   make(map[int64]*registryEntry),
		restartCh: make(chan int64, restartQueueSize),
	}
}

// Listen 为用户建立监听。已存在（或正在建立）条目时立即返回；
// 会话缺失、凭证缺失、订阅过期或该类别被显式关闭时不建立条目。
func (r *Registry) Listen(ctx context.Context, userID int64) error {
	r.mu.Lock()
	if _, ok := r.entries[userID]; ok {
		r.mu.Unlock()
		return nil
	}
	e := &registryEntry{}
	r.entries[userID] = e
	r.mu.Unlock()

	sess, err := r.sessions.FindUserSession(ctx, userID)
	if err != nil {
		r.removeEntry(userID, e)
		return err
	}
	if sess == nil || !sess.CanListen(r.kind, time.Now()) {
		r.removeEntry(userID, e)
		r.logger.DebugContext(ctx, "not starting listener", "kind", r.kind, "user_id", userID)
		return nil
	}

	stop, err := r.opener.Open(ctx, sess, r)
	if err != nil {
		r.removeEntry(userID, e)
		if errors.Is(err, domain.ErrAuthRejected) {
			// 凭证被拒对该用户是终态：不建立条目，也不重试
			r.logger.ErrorContext(ctx, "invalid exchange credentials", "kind", r.kind, "user_id", userID)
			return nil
		}
		return err
	}

	e.mu.Lock()
	if e.stopped {
		// 连接期间被 Stop：立即释放刚建立的流，不留下陈旧句柄
		e.mu.Unlock()
		stop()
		return nil
	}
	e.stop = stop
	e.mu.Unlock()

	r.metrics.ListenersActive.Inc()
	r.logger.InfoContext(ctx, "listener started", "kind", r.kind, "user_id", userID)
	return nil
}

// Stop 停止用户的监听。条目不存在时返回 false（正常结果，用于操作员反馈）。
// 停止句柄恰好被调用一次，且在条目移除前同步释放连接。
func (r *Registry) Stop(ctx context.Context, userID int64) bool {
	r.mu.Lock()
	e, ok := r.entries[userID]
	r.mu.Unlock()
	if !ok {
		r.logger.InfoContext(ctx, "listener not found", "kind", r.kind, "user_id", userID)
		return false
	}

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return false
	}
	e.stopped = true
	started := e.stop != nil
	if started {
		e.stop()
	}
	e.mu.Unlock()

	r.mu.Lock()
	if cur, ok := r.entries[userID]; ok && cur == e {
		delete(r.entries, userID)
	}
	r.mu.Unlock()

	if started {
		r.metrics.ListenersActive.Dec()
	}
	r.logger.InfoContext(ctx, "listener stopped", "kind", r.kind, "user_id", userID)
	return true
}

// Restart 停止后重新建立监听。两步之间不保证原子性；
// 并发的 Listen 竞争由 Listen 的幂等性吸收。
func (r *Registry) Restart(ctx context.Context, userID int64) error {
	r.Stop(ctx, userID)
	return r.Listen(ctx, userID)
}

// HasListener 纯查询，无副作用
func (r *Registry) HasListener(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[userID]
	return ok
}

// Count 当前条目数
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// RequestRestart 流会话请求自我重启（流过期时）。通过队列交给
// 重启工作协程处理，避免在事件回调里递归调用生命周期方法。
func (r *Registry) RequestRestart(userID int64) {
	select {
	case r.restartCh <- userID:
	default:
		r.logger.Warn("restart queue full, dropping request", "kind", r.kind, "user_id", userID)
	}
}

// Run 运行重启工作协程，直到 ctx 取消
func (r *Registry) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case userID := <-r.restartCh:
			r.metrics.StreamRestartsTotal.Inc()
			r.logger.InfoContext(ctx, "restarting expired stream", "kind", r.kind, "user_id", userID)
			if err := r.Restart(ctx, userID); err != nil {
				r.logger.ErrorContext(ctx, "failed to restart listener", "kind", r.kind, "user_id", userID, "error", err)
			}
		}
	}
}

// StartAll 进程启动时为所有已知会话拉起监听。
// 单个用户的失败被记录并隔离，不影响其他用户。
func (r *Registry) StartAll(ctx context.Context) {
	start := time.Now()

	userIDs, err := r.sessions.ListUserIDs(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to list user sessions", "kind", r.kind, "error", err)
		return
	}

	started := 0
	for _, userID := range userIDs {
		if err := r.Listen(ctx, userID); err != nil {
			r.logger.ErrorContext(ctx, "failed to start listener", "kind", r.kind, "user_id", userID, "error", err)
			continue
		}
		if r.HasListener(userID) {
			started++
		}
	}

	r.logger.InfoContext(ctx, "listeners initialized",
		"kind", r.kind,
		"started", started,
		"candidates", len(userIDs),
		"duration", time.Since(start),
	)
}

// StopAll 停止全部监听，用于进程优雅退出
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.Lock()
	userIDs := make([]int64, 0, len(r.entries))
	for userID := range r.entries {
		userIDs = append(userIDs, userID)
	}
	r.mu.Unlock()

	for _, userID := range userIDs {
		r.Stop(ctx, userID)
	}
}

func (r *Registry) removeEntry(userID int64, e *registryEntry) {
	r.mu.Lock()
	if cur, ok := r.entries[userID]; ok && cur == e {
		delete(r.entries, userID)
	}
	r.mu.Unlock()
}
