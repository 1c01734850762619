package codec

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/ordernotify/internal/listener/domain"
)

// spotCodec 现货用户数据流解码器。
// 订单事件为 executionReport，流过期为 listenKeyExpired 控制事件。
type spotCodec struct{}

// NewSpotCodec 创建现货解码器
func NewSpotCodec() EventCodec {
	return spotCodec{}
}

func (spotCodec) Kind() domain.Kind {
	return domain.KindSpot
}

// spotPayload 现货推送的原始字段（交易所单字母命名）
type spotPayload struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`

	Symbol        string `json:"s"`
	ClientOrderID string `json:"c"`
	Side          string `json:"S"`
	OrderType     string `json:"o"`
	Quantity      string `json:"q"`
	Price         string `json:"p"`
	StopPrice     string `json:"P"`
	Status        string `json:"X"`
	LastQty       string `json:"l"`
	TotalQty      string `json:"z"`
	LastPrice     string `json:"L"`
	Commission    string `json:"n"`
	CommAsset     string `json:"N"`
	QuoteQty      string `json:"Z"`
}

func (spotCodec) Decode(payload []byte) (*domain.OrderEvent, error) {
	var p spotPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode spot payload: %w", err)
	}

	switch p.EventType {
	case "listenKeyExpired":
		return &domain.OrderEvent{Kind: domain.KindSpot, Type: domain.EventTypeStreamExpired}, nil
	case "executionReport":
		return decodeSpotOrder(&p)
	default:
		// outboundAccountPosition、balanceUpdate 等与订单通知无关
		return nil, nil
	}
}

func decodeSpotOrder(p *spotPayload) (*domain.OrderEvent, error) {
	ev := &domain.OrderEvent{
		Kind:            domain.KindSpot,
		Type:            domain.EventTypeOrderUpdate,
		Status:          domain.OrderStatus(p.Status),
		Symbol:          p.Symbol,
		ClientOrderID:   p.ClientOrderID,
		Side:            p.Side,
		OrderType:       p.OrderType,
		CommissionAsset: p.CommAsset,
	}

	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"p", p.Price, &ev.Price},
		{"P", p.StopPrice, &ev.StopPrice},
		{"L", p.LastPrice, &ev.LastPrice},
		{"q", p.Quantity, &ev.Quantity},
		{"l", p.LastQty, &ev.LastQty},
		{"z", p.TotalQty, &ev.TotalQty},
		{"Z", p.QuoteQty, &ev.QuoteQty},
		{"n", p.Commission, &ev.Commission},
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
