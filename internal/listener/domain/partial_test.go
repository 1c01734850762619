package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestSummarizeAddsTerminalAndRecordedFills(t *testing.T) {
	t.Parallel()

	record := &PartialOrderRecord{
		ClientOrderID: "order-1",
		Fills: []Fill{
			{RealizedProfit: dec(t, "1.5"), Commission: dec(t, "0.01"), CommissionAsset: "USDT"},
			{RealizedProfit: dec(t, "2.25"), Commission: dec(t, "0.02"), CommissionAsset: "USDT"},
		},
	}
	terminal := Fill{RealizedProfit: dec(t, "0.75"), Commission: dec(t, "0.03"), CommissionAsset: "USDT"}

	summary := record.Summarize(terminal)

	assert.Equal(t, "4.5", summary.Profit.String())
	assert.Equal(t, "0.06", summary.Commission.String())
}

func TestSummarizeExactDecimalArithmetic(t *testing.T) {
	t.Parallel()

	// 0.1+0.2 类的二进制浮点陷阱必须不出现
	record := &PartialOrderRecord{
		ClientOrderID: "order-2",
		Fills: []Fill{
			{RealizedProfit: dec(t, "0.1"), Commission: dec(t, "0.0000001")},
			{RealizedProfit: dec(t, "0.2"), Commission: dec(t, "0.0000002")},
		},
	}
	terminal := Fill{RealizedProfit: dec(t, "0"), Commission: dec(t, "0")}

	summary := record.Summarize(terminal)

	assert.Equal(t, "0.3", summary.Profit.String())
	assert.Equal(t, "0.0000003", summary.Commission.String())
}

func TestSummarizeNoRecordedFills(t *testing.T) {
	t.Parallel()

	record := &PartialOrderRecord{ClientOrderID: "order-3"}
	terminal := Fill{RealizedProfit: dec(t, "-1.2"), Commission: dec(t, "0.05")}

	summary := record.Summarize(terminal)

	assert.Equal(t, "-1.2", summary.Profit.String())
	assert.Equal(t, "0.05", summary.Commission.String())
}
