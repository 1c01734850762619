// Package consumer 命令总线消息的接入层
package consumer

import (
	"context"
	"log/slog"

	"github.com/wyfcoding/ordernotify/internal/listener/domain"
	"github.com/wyfcoding/ordernotify/pkg/metrics"
	"github.com/wyfcoding/ordernotify/pkg/mq"
)

// ListenerRegistry 命令处理所需的注册表操作
type ListenerRegistry interface {
	Listen(ctx context.Context, userID int64) error
	Stop(ctx context.Context, userID int64) bool
	Restart(ctx context.Context, userID int64) error
}

// CommandHandler 解析广播命令并分发到注册表。
// 命令面向全体监听进程广播，对本进程不适用的命令是正常情况。
type CommandHandler struct {
	registry ListenerRegistry
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewCommandHandler 创建命令处理器
func NewCommandHandler(registry ListenerRegistry, m *metrics.Metrics, logger *slog.Logger) *CommandHandler {
	return &CommandHandler{registry: registry, metrics: m, logger: logger}
}

// HandleCommand 实现 messaging.CommandHandler。
// 无法解析的消息记录后即确认，广播流不允许个别坏消息卡住全部进程。
func (h *CommandHandler) HandleCommand(ctx context.Context, msg *mq.Message) error {
	var cmd domain.Command
	if err := msg.UnmarshalPayload(&cmd); err != nil {
		h.logger.ErrorContext(ctx, "malformed command payload", "offset", msg.Offset, "error", err)
		return nil
	}
	if !cmd.Valid() {
		h.logger.ErrorContext(ctx, "invalid command", "offset", msg.Offset, "type", cmd.Type, "user_id", cmd.UserID)
		return nil
	}

	h.metrics.CommandsTotal.WithLabelValues(string(cmd.Type)).Inc()
	h.logger.InfoContext(ctx, "command received", "type", cmd.Type, "user_id", cmd.UserID)

	switch cmd.Type {
	case domain.CommandStart:
		return h.registry.Listen(ctx, cmd.UserID)
	case domain.CommandStop:
		h.registry.Stop(ctx, cmd.UserID)
		return nil
	case domain.CommandRestart:
		return h.registry.Restart(ctx, cmd.UserID)
	}
	return nil
}
