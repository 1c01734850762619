package domain

import "github.com/shopspring/decimal"

// Fill 一次成交增量的资金字段
type Fill struct {
	Commission      decimal.Decimal `json:"commission"`
	CommissionAsset string          `json:"commission_asset"`
	RealizedProfit  decimal.Decimal `json:"realized_profit"`
}

// PartialOrderRecord 单个订单的通知聚合状态，按 clientOrderId 唯一。
// 首个 NEW/PARTIALLY_FILLED 事件创建，每次部分成交追加，
// CANCELED/EXPIRED 时删除，FILLED 后保留但不再更新。
type PartialOrderRecord struct {
	ClientOrderID string
	// NewMsgID 订单创建时发送的通知消息
	NewMsgID int64
	// FillMsgID 成交过程中被反复编辑的通知消息
	FillMsgID int64
	// Fills 已记录的成交增量，按到达顺序
	Fills []Fill
}

// PartialsSummary 跨多次部分成交的累计利润与手续费
type PartialsSummary struct {
	Profit     decimal.Decimal
	Commission decimal.Decimal
}

// Summarize 以终结事件自身的数字为起点，累加全部已记录的成交增量。
// 不变式：所有增量的 realizedProfit 之和加上终结 FILLED 事件携带的
// realizedProfit 恰好等于订单的真实总利润（精确十进制运算）。
func (r *PartialOrderRecord) Summarize(terminal Fill) PartialsSummary {
	profit := terminal.RealizedProfit
	commission := terminal.Commission
	for _, f := range r.Fills {
		profit = profit.Add(f.RealizedProfit)
		commission = commission.Add(f.Commission)
	}
	return PartialsSummary{Profit: profit, Commission: commission}
}
