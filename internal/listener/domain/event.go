package domain

import "github.com/shopspring/decimal"

// Kind 流类别，进程按类别特化
type Kind string

const (
	KindSpot    Kind = "spot"
	KindFutures Kind = "futures"
)

// EventType 推送事件类型
type EventType string

const (
	// EventTypeOrderUpdate 订单生命周期事件
	EventTypeOrderUpdate EventType = "ORDER_UPDATE"
	// EventTypeStreamExpired 交易所单方面关闭了用户数据流，监听器需自行重启。
	// 与订单级别的 EXPIRED 状态无关。
	EventTypeStreamExpired EventType = "STREAM_EXPIRED"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	StatusNew             OrderStatus = "NEW"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCanceled        OrderStatus = "CANCELED"
	StatusPendingCancel   OrderStatus = "PENDING_CANCEL"
	StatusRejected        OrderStatus = "REJECTED"
	StatusExpired         OrderStatus = "EXPIRED"
)

// Known 状态是否为已识别状态。未识别状态按协议缺陷记录并丢弃。
func (s OrderStatus) Known() bool {
	switch s {
	case StatusNew, StatusPartiallyFilled, StatusFilled,
		StatusCanceled, StatusPendingCancel, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// IsFill 是否为成交类状态（完全或部分成交）
func (s OrderStatus) IsFill() bool {
	return s == StatusFilled || s == StatusPartiallyFilled
}

// Terminal 是否为取消/过期类终态，需要清理通知痕迹
func (s OrderStatus) Terminal() bool {
	return s == StatusCanceled || s == StatusExpired
}

// OrderEvent 解码后的订单推送事件，只读，消费一次
type OrderEvent struct {
	Kind   Kind
	Type   EventType
	Status OrderStatus

	Symbol        string
	ClientOrderID string
	Side          string
	OrderType     string

	Price     decimal.Decimal
	StopPrice decimal.Decimal
	LastPrice decimal.Decimal
	Quantity  decimal.Decimal
	LastQty   decimal.Decimal
	TotalQty  decimal.Decimal
	QuoteQty  decimal.Decimal

	Commission      decimal.Decimal
	CommissionAsset string
	RealizedProfit  decimal.Decimal
}

// Fill 返回本事件对应的单次成交增量
func (e *OrderEvent) Fill() Fill {
	return Fill{
		Commission:      e.Commission,
		CommissionAsset: e.CommissionAsset,
		RealizedProfit:  e.RealizedProfit,
	}
}

// MarketOrder 是否为市价类订单
func (e *OrderEvent) MarketOrder() bool {
	switch e.OrderType {
	case "MARKET", "STOP_MARKET", "TAKE_PROFIT_MARKET", "TRAILING_STOP_MARKET":
		return true
	}
	return false
}
