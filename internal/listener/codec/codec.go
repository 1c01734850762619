// Package codec 将交易所原始推送负载解码为统一的订单事件。
// 每个流类别一个编解码器，生命周期状态机共用。
package codec

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/ordernotify/internal/listener/domain"
)

// EventCodec 类别特定的推送解码策略
type EventCodec interface {
	// Kind 对应的流类别
	Kind() domain.Kind
	// Decode 解码一条原始推送。与订单无关、可忽略的事件返回 (nil, nil)。
	Decode(payload []byte) (*domain.OrderEvent, error)
}

// parseDecimal 解析交易所的字符串数字，空串视为零
func parseDecimal(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal in field %s: %q", field, s)
	}
	return d, nil
}
