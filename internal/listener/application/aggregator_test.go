package application

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/ordernotify/internal/listener/domain"
	"github.com/wyfcoding/ordernotify/pkg/metrics"
)

type sentMessage struct {
	chatID    int64
	messageID int64
	text      string
}

type fakeNotifier struct {
	mu      sync.Mutex
	nextID  int64
	sent    []sentMessage
	edits   []sentMessage
	deletes []int64
}

func (n *fakeNotifier) SendMessage(ctx context.Context, chatID int64, text string) (int64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	n.sent = append(n.sent, sentMessage{chatID: chatID, messageID: n.nextID, text: text})
	return n.nextID, nil
}

func (n *fakeNotifier) EditMessageText(ctx context.Context, chatID int64, messageID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.edits = append(n.edits, sentMessage{chatID: chatID, messageID: messageID, text: text})
	return nil
}

func (n *fakeNotifier) DeleteMessage(ctx context.Context, chatID int64, messageID int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deletes = append(n.deletes, messageID)
	return nil
}

type fakeOrders struct {
	mu      sync.Mutex
	records map[string]*domain.PartialOrderRecord
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{records: make(map[string]*domain.PartialOrderRecord)}
}

func (o *fakeOrders) FindOrder(ctx context.Context, clientOrderID string) (*domain.PartialOrderRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.records[clientOrderID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (o *fakeOrders) SaveNewOrderMessage(ctx context.Context, clientOrderID string, messageID int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record(clientOrderID).NewMsgID = messageID
	return nil
}

func (o *fakeOrders) SaveFillOrderMessage(ctx context.Context, clientOrderID string, messageID int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record(clientOrderID).FillMsgID = messageID
	return nil
}

func (o *fakeOrders) AppendFill(ctx context.Context, clientOrderID string, fill domain.Fill) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	r := o.record(clientOrderID)
	r.Fills = append(r.Fills, fill)
	return nil
}

func (o *fakeOrders) DeleteOrder(ctx context.Context, clientOrderID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.records, clientOrderID)
	return nil
}

func (o *fakeOrders) SummarizePartialOrders(ctx context.Context, clientOrderID string, terminal domain.Fill) (*domain.PartialsSummary, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.records[clientOrderID]
	if !ok {
		return nil, nil
	}
	summary := r.Summarize(terminal)
	return &summary, nil
}

func (o *fakeOrders) record(clientOrderID string) *domain.PartialOrderRecord {
	r, ok := o.records[clientOrderID]
	if !ok {
		r = &domain.PartialOrderRecord{ClientOrderID: clientOrderID}
		o.records[clientOrderID] = r
	}
	return r
}

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func futuresEvent(t *testing.T, status domain.OrderStatus) *domain.OrderEvent {
	t.Helper()
	return &domain.OrderEvent{
		Kind:          domain.KindFutures,
		Type:          domain.EventTypeOrderUpdate,
		Status:        status,
		Symbol:        "BTCUSDT",
		ClientOrderID: "fut-1",
		Side:          "SELL",
		OrderType:     "LIMIT",
		Price:         mustDec(t, "43000"),
		Quantity:      mustDec(t, "3"),
	}
}

func newTestAggregator(orders domain.PartialOrderRepository, notifier domain.Notifier) (*FillAggregator, *metrics.Metrics) {
	m := metrics.New("test")
	return NewFillAggregator(orders, notifier, m, slog.Default()), m
}

func TestAggregatorNewOrderSendsAndTracks(t *testing.T) {
	t.Parallel()

	orders := newFakeOrders()
	notifier := &fakeNotifier{}
	agg, _ := newTestAggregator(orders, notifier)
	sess := &domain.UserSession{UserID: 1, ChatID: 100}

	ev := futuresEvent(t, domain.StatusNew)
	require.NoError(t, agg.HandleOrderEvent(context.Background(), sess, ev))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(100), notifier.sent[0].chatID)
	assert.Contains(t, notifier.sent[0].text, "Futures: New LIMIT SELL")
	assert.Contains(t, notifier.sent[0].text, "3 × #BTCUSDT@43000")

	record, err := orders.FindOrder(context.Background(), "fut-1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, notifier.sent[0].messageID, record.NewMsgID)
}

func TestAggregatorPartialFillAppendsAndEditsInPlace(t *testing.T) {
	t.Parallel()

	orders := newFakeOrders()
	notifier := &fakeNotifier{}
	agg, _ := newTestAggregator(orders, notifier)
	sess := &domain.UserSession{UserID: 1, ChatID: 100}

	first := futuresEvent(t, domain.StatusPartiallyFilled)
	first.LastQty = mustDec(t, "1")
	first.TotalQty = mustDec(t, "1")
	first.LastPrice = mustDec(t, "43000")
	first.RealizedProfit = mustDec(t, "1.5")
	first.Commission = mustDec(t, "0.01")
	first.CommissionAsset = "USDT"
	require.NoError(t, agg.HandleOrderEvent(context.Background(), sess, first))

	// 首次部分成交：发送新消息并记录消息 id
	require.Len(t, notifier.sent, 1)
	assert.Empty(t, notifier.edits)
	record, err := orders.FindOrder(context.Background(), "fut-1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, notifier.sent[0].messageID, record.FillMsgID)
	require.Len(t, record.Fills, 1)

	second := futuresEvent(t, domain.StatusPartiallyFilled)
	second.LastQty = mustDec(t, "1")
	second.TotalQty = mustDec(t, "2")
	second.LastPrice = mustDec(t, "43001")
	second.RealizedProfit = mustDec(t, "2.25")
	second.Commission = mustDec(t, "0.02")
	second.CommissionAsset = "USDT"
	require.NoError(t, agg.HandleOrderEvent(context.Background(), sess, second))

	// 后续部分成交：原地编辑同一条消息
	require.Len(t, notifier.sent, 1)
	require.Len(t, notifier.edits, 1)
	assert.Equal(t, record.FillMsgID, notifier.edits[0].messageID)

	record, err = orders.FindOrder(context.Background(), "fut-1")
	require.NoError(t, err)
	require.Len(t, record.Fills, 2)
}

func TestAggregatorFilledSummarizesAllPartials(t *testing.T) {
	t.Parallel()

	orders := newFakeOrders()
	notifier := &fakeNotifier{}
	agg, _ := newTestAggregator(orders, notifier)
	sess := &domain.UserSession{UserID: 1, ChatID: 100}

	require.NoError(t, orders.AppendFill(context.Background(), "fut-1",
		domain.Fill{RealizedProfit: mustDec(t, "1.5"), Commission: mustDec(t, "0.01"), CommissionAsset: "USDT"}))
	require.NoError(t, orders.AppendFill(context.Background(), "fut-1",
		domain.Fill{RealizedProfit: mustDec(t, "2.25"), Commission: mustDec(t, "0.02"), CommissionAsset: "USDT"}))
	require.NoError(t, orders.SaveFillOrderMessage(context.Background(), "fut-1", 7))

	ev := futuresEvent(t, domain.StatusFilled)
	ev.LastQty = mustDec(t, "1")
	ev.TotalQty = mustDec(t, "3")
	ev.LastPrice = mustDec(t, "43002")
	ev.RealizedProfit = mustDec(t, "0.75")
	ev.Commission = mustDec(t, "0.03")
	ev.CommissionAsset = "USDT"
	require.NoError(t, agg.HandleOrderEvent(context.Background(), sess, ev))

	require.Len(t, notifier.edits, 1)
	assert.Equal(t, int64(7), notifier.edits[0].messageID)
	assert.Contains(t, notifier.edits[0].text, "Profit = 4.5 USDT")
	assert.Contains(t, notifier.edits[0].text, "Commission = 0.06 USDT")
}

func TestAggregatorFilledSingleFillUsesEventFigures(t *testing.T) {
	t.Parallel()

	orders := newFakeOrders()
	notifier := &fakeNotifier{}
	agg, _ := newTestAggregator(orders, notifier)
	sess := &domain.UserSession{UserID: 1, ChatID: 100}

	ev := futuresEvent(t, domain.StatusFilled)
	ev.LastQty = mustDec(t, "3")
	ev.TotalQty = mustDec(t, "3")
	ev.LastPrice = mustDec(t, "43002")
	ev.RealizedProfit = mustDec(t, "-1.2")
	ev.Commission = mustDec(t, "0.05")
	ev.CommissionAsset = "USDT"
	require.NoError(t, agg.HandleOrderEvent(context.Background(), sess, ev))

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].text, "3 × #BTCUSDT@43002")
	assert.Contains(t, notifier.sent[0].text, "Profit = -1.2 USDT")
	assert.Contains(t, notifier.sent[0].text, "Commission = 0.05 USDT")
}

func TestAggregatorZeroProfitShowsCommissionOnly(t *testing.T) {
	t.Parallel()

	orders := newFakeOrders()
	notifier := &fakeNotifier{}
	agg, _ := newTestAggregator(orders, notifier)
	sess := &domain.UserSession{UserID: 1, ChatID: 100}

	ev := futuresEvent(t, domain.StatusFilled)
	ev.LastQty = mustDec(t, "3")
	ev.TotalQty = mustDec(t, "3")
	ev.LastPrice = mustDec(t, "43000")
	ev.Commission = mustDec(t, "0.04")
	ev.CommissionAsset = "BNB"
	require.NoError(t, agg.HandleOrderEvent(context.Background(), sess, ev))

	require.Len(t, notifier.sent, 1)
	assert.NotContains(t, notifier.sent[0].text, "Profit")
	assert.Contains(t, notifier.sent[0].text, "Commission = 0.04 BNB")
}

func TestAggregatorCanceledDeletesNotificationAndRecord(t *testing.T) {
	t.Parallel()

	for _, status := range []domain.OrderStatus{domain.StatusCanceled, domain.StatusExpired} {
		orders := newFakeOrders()
		notifier := &fakeNotifier{}
		agg, _ := newTestAggregator(orders, notifier)
		sess := &domain.UserSession{UserID: 1, ChatID: 100}

		require.NoError(t, orders.SaveNewOrderMessage(context.Background(), "fut-1", 9))

		ev := futuresEvent(t, status)
		require.NoError(t, agg.HandleOrderEvent(context.Background(), sess, ev))

		require.Len(t, notifier.deletes, 1, status)
		assert.Equal(t, int64(9), notifier.deletes[0])
		assert.Empty(t, notifier.sent)

		record, err := orders.FindOrder(context.Background(), "fut-1")
		require.NoError(t, err)
		assert.Nil(t, record)
	}
}

func TestAggregatorCanceledWithoutRecordStillNotifies(t *testing.T) {
	t.Parallel()

	orders := newFakeOrders()
	notifier := &fakeNotifier{}
	agg, _ := newTestAggregator(orders, notifier)
	sess := &domain.UserSession{UserID: 1, ChatID: 100}

	ev := futuresEvent(t, domain.StatusCanceled)
	require.NoError(t, agg.HandleOrderEvent(context.Background(), sess, ev))

	assert.Empty(t, notifier.deletes)
	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].text, "Canceled")
}

func TestAggregatorMissingRecordFallsBackToEventFigures(t *testing.T) {
	t.Parallel()

	orders := newFakeOrders()
	notifier := &fakeNotifier{}
	agg, m := newTestAggregator(orders, notifier)
	sess := &domain.UserSession{UserID: 1, ChatID: 100}

	ev := futuresEvent(t, domain.StatusFilled)
	ev.LastQty = mustDec(t, "1")
	ev.TotalQty = mustDec(t, "3")
	ev.LastPrice = mustDec(t, "43000")
	ev.RealizedProfit = mustDec(t, "0.75")
	ev.Commission = mustDec(t, "0.03")
	ev.CommissionAsset = "USDT"
	require.NoError(t, agg.HandleOrderEvent(context.Background(), sess, ev))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProtocolDefectsTotal))
	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].text, "Profit = 0.75 USDT")
}

func TestAggregatorClosePositionAndStopRendering(t *testing.T) {
	t.Parallel()

	orders := newFakeOrders()
	notifier := &fakeNotifier{}
	agg, _ := newTestAggregator(orders, notifier)
	sess := &domain.UserSession{UserID: 1, ChatID: 100}

	ev := futuresEvent(t, domain.StatusNew)
	ev.OrderType = "STOP_MARKET"
	ev.Price = decimal.Zero
	ev.Quantity = decimal.Zero
	ev.StopPrice = mustDec(t, "41000")
	require.NoError(t, agg.HandleOrderEvent(context.Background(), sess, ev))

	require.Len(t, notifier.sent, 1)
	lines := strings.Split(notifier.sent[0].text, "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "close position × #BTCUSDT@market")
	assert.Equal(t, "Stop@41000", lines[2])
}
