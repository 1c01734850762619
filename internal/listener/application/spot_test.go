package application

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/ordernotify/internal/listener/domain"
	"github.com/wyfcoding/ordernotify/pkg/metrics"
)

func spotEvent(t *testing.T, status domain.OrderStatus) *domain.OrderEvent {
	t.Helper()
	return &domain.OrderEvent{
		Kind:          domain.KindSpot,
		Type:          domain.EventTypeOrderUpdate,
		Status:        status,
		Symbol:        "BTCUSDT",
		ClientOrderID: "spot-1",
		Side:          "BUY",
		OrderType:     "LIMIT",
		Price:         mustDec(t, "42000"),
		Quantity:      mustDec(t, "0.5"),
	}
}

func TestSpotNotifierNewLimitOrder(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	n := NewSpotNotifier(notifier, metrics.New("test"), slog.Default())
	sess := &domain.UserSession{UserID: 1, ChatID: 200}

	ev := spotEvent(t, domain.StatusNew)
	require.NoError(t, n.HandleOrderEvent(context.Background(), sess, ev))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(200), notifier.sent[0].chatID)
	assert.Contains(t, notifier.sent[0].text, "Spot: New LIMIT BUY")
	// 新限价单显示名义金额 = 数量 × 价格
	assert.Contains(t, notifier.sent[0].text, "0.5 × #BTCUSDT@42000 = 21000 USDT")
}

func TestSpotNotifierNewMarketOrder(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	n := NewSpotNotifier(notifier, metrics.New("test"), slog.Default())
	sess := &domain.UserSession{UserID: 1, ChatID: 200}

	ev := spotEvent(t, domain.StatusNew)
	ev.OrderType = "MARKET"
	ev.Price = mustDec(t, "0")
	require.NoError(t, n.HandleOrderEvent(context.Background(), sess, ev))

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].text, "0.5 × #BTCUSDT@market")
	assert.NotContains(t, notifier.sent[0].text, "=")
}

func TestSpotNotifierFilledMarketOrderShowsLastPrice(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	n := NewSpotNotifier(notifier, metrics.New("test"), slog.Default())
	sess := &domain.UserSession{UserID: 1, ChatID: 200}

	ev := spotEvent(t, domain.StatusFilled)
	ev.OrderType = "MARKET"
	ev.Price = mustDec(t, "0")
	ev.LastPrice = mustDec(t, "42100.5")
	ev.LastQty = mustDec(t, "0.5")
	ev.QuoteQty = mustDec(t, "21050.25")
	require.NoError(t, n.HandleOrderEvent(context.Background(), sess, ev))

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].text, "Spot: Filled MARKET BUY")
	assert.Contains(t, notifier.sent[0].text, "0.5 × #BTCUSDT@42100.5 = 21050.25 USDT")
}

func TestSpotNotifierPartialFillShowsLastQuantity(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	n := NewSpotNotifier(notifier, metrics.New("test"), slog.Default())
	sess := &domain.UserSession{UserID: 1, ChatID: 200}

	ev := spotEvent(t, domain.StatusPartiallyFilled)
	ev.LastQty = mustDec(t, "0.2")
	require.NoError(t, n.HandleOrderEvent(context.Background(), sess, ev))

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].text, "0.2 × #BTCUSDT@42000")
}

func TestSpotNotifierEveryEventIsSeparateMessage(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	n := NewSpotNotifier(notifier, metrics.New("test"), slog.Default())
	sess := &domain.UserSession{UserID: 1, ChatID: 200}

	require.NoError(t, n.HandleOrderEvent(context.Background(), sess, spotEvent(t, domain.StatusNew)))
	require.NoError(t, n.HandleOrderEvent(context.Background(), sess, spotEvent(t, domain.StatusCanceled)))

	assert.Len(t, notifier.sent, 2)
	assert.Empty(t, notifier.edits)
	assert.Empty(t, notifier.deletes)
}
