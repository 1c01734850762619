package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wyfcoding/ordernotify/internal/listener/codec"
	"github.com/wyfcoding/ordernotify/internal/listener/domain"
	"github.com/wyfcoding/ordernotify/pkg/metrics"
)

// OrderEventHandler 类别特定的订单事件处理策略
// （现货直接通知，合约走部分成交聚合）。
type OrderEventHandler interface {
	HandleOrderEvent(ctx context.Context, sess *domain.UserSession, ev *domain.OrderEvent) error
}

// RestartRequester 会话向注册表请求自我重启的回传通道
type RestartRequester interface {
	RequestRestart(userID int64)
}

// SessionFactory 建立流会话：拨号、启动读取协程、返回一次性停止句柄。
// 生命周期状态机对所有流类别相同，差异全部收敛在 codec 与 handler 里。
type SessionFactory struct {
	kind     domain.Kind
	dialer   domain.StreamDialer
	codec    codec.EventCodec
	handler  OrderEventHandler
	sessions domain.UserSessionRepository
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewSessionFactory 创建流会话工厂
func NewSessionFactory(
	dialer domain.StreamDialer,
	eventCodec codec.EventCodec,
	handler OrderEventHandler,
	sessions domain.UserSessionRepository,
	m *metrics.Metrics,
	logger *slog.Logger,
) *SessionFactory {
	return &SessionFactory{
		kind:     eventCodec.Kind(),
		dialer:   dialer,
		codec:    eventCodec,
		handler:  handler,
		sessions: sessions,
		metrics:  m,
		logger:   logger,
	}
}

// Open 实现 StreamOpener。拨号失败时不留下任何会话；
// 返回的停止句柄同步关闭流并等待读取协程退出。
func (f *SessionFactory) Open(ctx context.Context, sess *domain.UserSession, restarts RestartRequester) (StopFunc, error) {
	stream, err := f.dialer.Dial(ctx, *sess.Credentials, f.kind)
	if err != nil {
		return nil, fmt.Errorf("failed to dial user stream: %w", err)
	}

	s := &streamSession{
		userID:   sess.UserID,
		kind:     f.kind,
		codec:    f.codec,
		handler:  f.handler,
		sessions: f.sessions,
		restarts: restarts,
		metrics:  f.metrics,
		logger:   f.logger.With("kind", f.kind, "user_id", sess.UserID),
	}

	// 会话的生命周期由停止句柄控制，不继承命令处理的 ctx
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.run(runCtx, stream)
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			if err := stream.Close(); err != nil {
				s.logger.Warn("failed to close user stream", "error", err)
			}
			<-done
		})
	}
	return stop, nil
}

// streamSession 单个用户的流会话。独占一条交易所连接，
// 按到达顺序处理事件；任何处理错误都被限制在本会话内。
type streamSession struct {
	userID   int64
	kind     domain.Kind
	codec    codec.EventCodec
	handler  OrderEventHandler
	sessions domain.UserSessionRepository
	restarts RestartRequester
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func (s *streamSession) run(ctx context.Context, stream domain.UserStream) {
	for {
		payload, err := stream.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Debug("user stream reader stopped")
			} else {
				s.logger.Warn("user stream closed", "error", err)
			}
			return
		}
		s.handle(ctx, payload)
	}
}

func (s *streamSession) handle(ctx context.Context, payload []byte) {
	ev, err := s.codec.Decode(payload)
	if err != nil {
		s.metrics.ProtocolDefectsTotal.Inc()
		s.logger.Error("failed to decode stream payload", "error", err)
		return
	}
	if ev == nil {
		return
	}

	switch ev.Type {
	case domain.EventTypeStreamExpired:
		// 交易所单方面关闭了流：请求注册表重启本会话，不在回调里递归
		s.logger.Info("user stream expired, requesting restart")
		s.restarts.RequestRestart(s.userID)

	case domain.EventTypeOrderUpdate:
		s.handleOrderUpdate(ctx, ev)
	}
}

func (s *streamSession) handleOrderUpdate(ctx context.Context, ev *domain.OrderEvent) {
	if !ev.Status.Known() {
		s.metrics.ProtocolDefectsTotal.Inc()
		s.logger.Error("BUG: unknown order status", "status", ev.Status, "symbol", ev.Symbol)
		return
	}

	// 事件可能在订阅建立很久之后到达，chat id 与语言必须反映当前会话状态
	sess, err := s.sessions.FindUserSession(ctx, s.userID)
	if err != nil {
		s.logger.Error("failed to load user session", "error", err)
		return
	}
	if sess == nil {
		s.logger.Error("user session missing")
		return
	}

	s.metrics.OrderEventsTotal.WithLabelValues(string(ev.Status)).Inc()
	s.logger.Debug("order event received", "status", ev.Status, "symbol", ev.Symbol, "client_order_id", ev.ClientOrderID)

	if err := s.handler.HandleOrderEvent(ctx, sess, ev); err != nil {
		s.logger.Error("failed to handle order event",
			"status", ev.Status,
			"symbol", ev.Symbol,
			"client_order_id", ev.ClientOrderID,
			"error", err,
		)
	}
}
