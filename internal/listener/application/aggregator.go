package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wyfcoding/ordernotify/internal/listener/domain"
	"github.com/wyfcoding/ordernotify/pkg/metrics"
)

// FillAggregator 合约订单事件处理器。把一个订单的 N 次增量成交
// 折叠为一条被渐进编辑的通知，并用精确十进制运算累计利润与手续费。
type FillAggregator struct {
	orders   domain.PartialOrderRepository
	notifier domain.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewFillAggregator 创建部分成交聚合器
func NewFillAggregator(orders domain.PartialOrderRepository, notifier domain.Notifier, m *metrics.Metrics, logger *slog.Logger) *FillAggregator {
	return &FillAggregator{
		orders:   orders,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// HandleOrderEvent 实现 OrderEventHandler
func (a *FillAggregator) HandleOrderEvent(ctx context.Context, sess *domain.UserSession, ev *domain.OrderEvent) error {
	record, err := a.orders.FindOrder(ctx, ev.ClientOrderID)
	if err != nil {
		return err
	}

	// 取消/过期的订单不留下任何痕迹：删除创建通知与聚合记录
	if ev.Status.Terminal() && record != nil && record.NewMsgID != 0 {
		if err := a.notifier.DeleteMessage(ctx, sess.ChatID, record.NewMsgID); err != nil {
			return fmt.Errorf("failed to delete order notification: %w", err)
		}
		a.metrics.NotificationsTotal.WithLabelValues("delete").Inc()
		return a.orders.DeleteOrder(ctx, ev.ClientOrderID)
	}

	if ev.Status == domain.StatusPartiallyFilled {
		if err := a.orders.AppendFill(ctx, ev.ClientOrderID, ev.Fill()); err != nil {
			return fmt.Errorf("failed to append fill: %w", err)
		}
	}

	text, err := a.render(ctx, ev)
	if err != nil {
		return err
	}

	// 成交类事件优先原地编辑已有的成交通知
	if ev.Status.IsFill() && record != nil && record.FillMsgID != 0 {
		if err := a.notifier.EditMessageText(ctx, sess.ChatID, record.FillMsgID, text); err != nil {
			return fmt.Errorf("failed to edit fill notification: %w", err)
		}
		a.metrics.NotificationsTotal.WithLabelValues("edit").Inc()
		return nil
	}

	msgID, err := a.notifier.SendMessage(ctx, sess.ChatID, text)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	a.metrics.NotificationsTotal.WithLabelValues("send").Inc()

	switch {
	case ev.Status == domain.StatusNew:
		return a.orders.SaveNewOrderMessage(ctx, ev.ClientOrderID, msgID)
	case ev.Status.IsFill():
		return a.orders.SaveFillOrderMessage(ctx, ev.ClientOrderID, msgID)
	}
	return nil
}

func (a *FillAggregator) render(ctx context.Context, ev *domain.OrderEvent) (string, error) {
	first := fmt.Sprintf("%s Futures: %s %s %s", statusEmoji(ev.Status), statusLabel(ev.Status), ev.OrderType, ev.Side)

	var qty string
	switch {
	case ev.LastQty.IsZero() && ev.Quantity.IsZero():
		// 平仓单不携带数量
	case ev.Quantity.IsZero():
		qty = ev.LastQty.String()
	default:
		qty = ev.Quantity.String()
	}

	var price string
	switch {
	case ev.Price.IsZero() && ev.StopPrice.IsZero():
		price = "market"
	case ev.Price.IsZero():
		price = ev.StopPrice.String()
	default:
		price = ev.Price.String()
	}
	if ev.MarketOrder() {
		price = "market"
	}
	if ev.Status.IsFill() {
		qty = ev.LastQty.String()
		price = ev.LastPrice.String()
	}
	if qty == "" {
		qty = "close position"
	}
	second := fmt.Sprintf("%s × #%s@%s", qty, ev.Symbol, price)

	var third, fourth string
	if !ev.StopPrice.IsZero() {
		third = "Stop@" + ev.StopPrice.String()
	}

	if ev.Status == domain.StatusFilled {
		summary := domain.PartialsSummary{Profit: ev.RealizedProfit, Commission: ev.Commission}
		if !ev.LastQty.Equal(ev.TotalQty) {
			// 本次成交只是多次部分成交之一，需要汇总全部增量
			sum, err := a.orders.SummarizePartialOrders(ctx, ev.ClientOrderID, ev.Fill())
			if err != nil {
				return "", fmt.Errorf("failed to summarize partial orders: %w", err)
			}
			if sum == nil {
				a.metrics.ProtocolDefectsTotal.Inc()
				a.logger.ErrorContext(ctx, "BUG: partial order record missing, using terminal event figures",
					"client_order_id", ev.ClientOrderID)
			} else {
				summary = *sum
			}
		}

		if summary.Profit.IsZero() {
			third = fmt.Sprintf("Commission = %s %s", summary.Commission.String(), ev.CommissionAsset)
			fourth = ""
		} else {
			third = fmt.Sprintf("Profit = %s %s", summary.Profit.String(), quoteAssetOf(ev.Symbol))
			fourth = fmt.Sprintf("Commission = %s %s", summary.Commission.String(), ev.CommissionAsset)
		}
	}

	return joinLines(first, second, third, fourth), nil
}
