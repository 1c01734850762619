// Package sender 通知传输实现
package sender

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// LogNotifier 把通知写入结构化日志的 Notifier 实现，
// 用于没有真实聊天传输的环境（本地开发、压测）。
// 消息 id 进程内单调自增，满足编辑/删除流程的引用需求。
type LogNotifier struct {
	logger *slog.Logger
	nextID atomic.Int64
}

// NewLogNotifier 创建日志通知器
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// SendMessage 记录发送并返回新消息 id
func (n *LogNotifier) SendMessage(ctx context.Context, chatID int64, text string) (int64, error) {
	id := n.nextID.Add(1)
	n.logger.InfoContext(ctx, "notification sent", "chat_id", chatID, "message_id", id, "text", text)
	return id, nil
}

// EditMessageText 记录编辑
func (n *LogNotifier) EditMessageText(ctx context.Context, chatID int64, messageID int64, text string) error {
	n.logger.InfoContext(ctx, "notification edited", "chat_id", chatID, "message_id", messageID, "text", text)
	return nil
}

// DeleteMessage 记录删除
func (n *LogNotifier) DeleteMessage(ctx context.Context, chatID int64, messageID int64) error {
	n.logger.InfoContext(ctx, "notification deleted", "chat_id", chatID, "message_id", messageID)
	return nil
}
