package application

import (
	"strings"

	"github.com/wyfcoding/ordernotify/internal/listener/domain"
)

// 通知文案为纯文本；本地化目录由外部的机器人进程负责，这里不引入。

var statusEmojis = map[domain.OrderStatus]string{
	domain.StatusNew:             "🆕",
	domain.StatusPartiallyFilled: "⏱",
	domain.StatusFilled:          "✅",
	domain.StatusCanceled:        "❌",
	domain.StatusPendingCancel:   "⏱",
	domain.StatusRejected:        "🛑",
	domain.StatusExpired:         "❌",
}

var statusLabels = map[domain.OrderStatus]string{
	domain.StatusNew:             "New",
	domain.StatusPartiallyFilled: "Partially filled",
	domain.StatusFilled:          "Filled",
	domain.StatusCanceled:        "Canceled",
	domain.StatusPendingCancel:   "Pending cancel",
	domain.StatusRejected:        "Rejected",
	domain.StatusExpired:         "Expired",
}

func statusEmoji(s domain.OrderStatus) string {
	return statusEmojis[s]
}

func statusLabel(s domain.OrderStatus) string {
	return statusLabels[s]
}

// 常见计价资产后缀，长后缀优先匹配
var quoteAssets = []string{"FDUSD", "USDT", "USDC", "BUSD", "TUSD", "BNB", "BTC", "ETH"}

// quoteAssetOf 从交易对符号推断计价资产
func quoteAssetOf(symbol string) string {
	for _, q := range quoteAssets {
		if strings.HasSuffix(symbol, q) && len(symbol) > len(q) {
			return q
		}
	}
	return "USDT"
}

func joinLines(lines ...string) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, "\n")
}
