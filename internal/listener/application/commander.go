package application

import (
	"context"
	"log/slog"

	"github.com/wyfcoding/ordernotify/internal/listener/domain"
)

// Commander 命令总线的发布端。命令在共享 fan-out topic 上广播，
// 所有类别的所有监听进程都会收到并各自决定是否适用。
type Commander struct {
	publisher domain.CommandPublisher
	logger    *slog.Logger
}

// NewCommander 创建命令发布器
func NewCommander(publisher domain.CommandPublisher, logger *slog.Logger) *Commander {
	return &Commander{publisher: publisher, logger: logger}
}

// StartListeners 广播 START 命令
func (c *Commander) StartListeners(ctx context.Context, userID int64) error {
	return c.publish(ctx, domain.Command{Type: domain.CommandStart, UserID: userID})
}

// StopListeners 广播 STOP 命令
func (c *Commander) StopListeners(ctx context.Context, userID int64) error {
	return c.publish(ctx, domain.Command{Type: domain.CommandStop, UserID: userID})
}

// RestartListeners 广播 RESTART 命令
func (c *Commander) RestartListeners(ctx context.Context, userID int64) error {
	return c.publish(ctx, domain.Command{Type: domain.CommandRestart, UserID: userID})
}

func (c *Commander) publish(ctx context.Context, cmd domain.Command) error {
	c.logger.InfoContext(ctx, "publishing listener command", "type", cmd.Type, "user_id", cmd.UserID)
	return c.publisher.Publish(ctx, cmd)
}
