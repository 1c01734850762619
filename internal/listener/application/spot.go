package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wyfcoding/ordernotify/internal/listener/domain"
	"github.com/wyfcoding/ordernotify/pkg/metrics"
)

// SpotNotifier 现货订单事件处理器。现货流的每个事件独立成一条通知，
// 不做跨事件聚合。
type SpotNotifier struct {
	notifier domain.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewSpotNotifier 创建现货通知器
func NewSpotNotifier(notifier domain.Notifier, m *metrics.Metrics, logger *slog.Logger) *SpotNotifier {
	return &SpotNotifier{notifier: notifier, metrics: m, logger: logger}
}

// HandleOrderEvent 实现 OrderEventHandler
func (n *SpotNotifier) HandleOrderEvent(ctx context.Context, sess *domain.UserSession, ev *domain.OrderEvent) error {
	text := n.render(ev)
	if _, err := n.notifier.SendMessage(ctx, sess.ChatID, text); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	n.metrics.NotificationsTotal.WithLabelValues("send").Inc()
	return nil
}

func (n *SpotNotifier) render(ev *domain.OrderEvent) string {
	price := ev.Price.String()
	if ev.MarketOrder() {
		// 市价单创建时没有价格，成交后才有
		if ev.Status.IsFill() {
			price = ev.LastPrice.String()
		} else {
			price = "market"
		}
	}

	qty := ev.Quantity
	if ev.Status == domain.StatusPartiallyFilled {
		qty = ev.LastQty
	}

	var total string
	switch {
	case !ev.QuoteQty.IsZero():
		total = fmt.Sprintf(" = %s %s", ev.QuoteQty.String(), quoteAssetOf(ev.Symbol))
	case ev.Status == domain.StatusNew && !ev.MarketOrder():
		total = fmt.Sprintf(" = %s %s", qty.Mul(ev.Price).String(), quoteAssetOf(ev.Symbol))
	}

	first := fmt.Sprintf("%s Spot: %s %s %s", statusEmoji(ev.Status), statusLabel(ev.Status), ev.OrderType, ev.Side)
	second := fmt.Sprintf("%s × #%s@%s%s", qty.String(), ev.Symbol, price, total)
	return joinLines(first, second)
}
