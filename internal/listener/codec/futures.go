package codec

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/ordernotify/internal/listener/domain"
)

// futuresCodec 合约用户数据流解码器。
// 订单事件为 ORDER_TRADE_UPDATE，流过期为 USER_DATA_STREAM_EXPIRED 控制事件。
type futuresCodec struct{}

// NewFuturesCodec 创建合约解码器
func NewFuturesCodec() EventCodec {
	return futuresCodec{}
}

func (futuresCodec) Kind() domain.Kind {
	return domain.KindFutures
}

// futuresPayload 合约推送的原始字段，订单字段嵌套在 o 对象内
type futuresPayload struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`

	Order struct {
		Symbol         string `json:"s"`
		ClientOrderID  string `json:"c"`
		Side           string `json:"S"`
		OrderType      string `json:"o"`
		Quantity       string `json:"q"`
		Price          string `json:"p"`
		StopPrice      string `json:"sp"`
		Status         string `json:"X"`
		LastQty        string `json:"l"`
		TotalQty       string `json:"z"`
		LastPrice      string `json:"L"`
		Commission     string `json:"n"`
		CommAsset      string `json:"N"`
		RealizedProfit string `json:"rp"`
	} `json:"o"`
}

func (futuresCodec) Decode(payload []byte) (*domain.OrderEvent, error) {
	var p futuresPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode futures payload: %w", err)
	}

	switch p.EventType {
	case "USER_DATA_STREAM_EXPIRED":
		return &domain.OrderEvent{Kind: domain.KindFutures, Type: domain.EventTypeStreamExpired}, nil
	case "ORDER_TRADE_UPDATE":
		return decodeFuturesOrder(&p)
	default:
		// ACCOUNT_UPDATE、MARGIN_CALL 等与订单通知无关
		return nil, nil
	}
}

func decodeFuturesOrder(p *futuresPayload) (*domain.OrderEvent, error) {
	o := &p.Order
	ev := &domain.OrderEvent{
		Kind:            domain.KindFutures,
		Type:            domain.EventTypeOrderUpdate,
		Status:          domain.OrderStatus(o.Status),
		Symbol:          o.Symbol,
		ClientOrderID:   o.ClientOrderID,
		Side:            o.Side,
		OrderType:       o.OrderType,
		CommissionAsset: o.CommAsset,
	}

	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"p", o.Price, &ev.Price},
		{"sp", o.StopPrice, &ev.StopPrice},
		{"L", o.LastPrice, &ev.LastPrice},
		{"q", o.Quantity, &ev.Quantity},
		{"l", o.LastQty, &ev.LastQty},
		{"z", o.TotalQty, &ev.TotalQty},
		{"n", o.Commission, &ev.Commission},
		{"rp", o.RealizedProfit, &ev.RealizedProfit},
	}
	for _, f := range fields {
		d, err := parseDecimal(f.name, f.raw)
		if err != nil {
			return nil, err
		}
		*f.dst = d
	}

	return ev, nil
}
