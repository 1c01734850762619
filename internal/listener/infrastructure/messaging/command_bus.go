// Package messaging 命令总线的 Kafka 实现
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/wyfcoding/ordernotify/internal/listener/domain"
	"github.com/wyfcoding/ordernotify/pkg/mq"
)

// CommandBus 通过共享 topic 广播监听器控制命令，实现 domain.CommandPublisher
type CommandBus struct {
	producer *mq.Producer
	topic    string
}

// NewCommandBus 创建命令总线发布端
func NewCommandBus(producer *mq.Producer, topic string) *CommandBus {
	return &CommandBus{producer: producer, topic: topic}
}

// Publish 广播一条命令。key 取用户 ID，保证同一用户的命令保序。
func (b *CommandBus) Publish(ctx context.Context, cmd domain.Command) error {
	if !cmd.Valid() {
		return fmt.Errorf("invalid command: type=%q user_id=%d", cmd.Type, cmd.UserID)
	}
	key := strconv.FormatInt(cmd.UserID, 10)
	if err := b.producer.SendMessage(ctx, b.topic, key, cmd); err != nil {
		return fmt.Errorf("failed to publish command: %w", err)
	}
	return nil
}

// CommandHandler 消费端回调。返回错误表示命令处理失败，
// 消息仍会被确认（重试由命令的幂等语义兜底，不靠重投）。
type CommandHandler interface {
	HandleCommand(ctx context.Context, msg *mq.Message) error
}

// CommandSubscriber 命令总线的订阅端。每个监听进程独立消费
// 全量命令流，自行判断命令是否适用。
type CommandSubscriber struct {
	consumer *mq.Consumer
	handler  CommandHandler
	logger   *slog.Logger
}

// NewCommandSubscriber 创建命令订阅器
func NewCommandSubscriber(consumer *mq.Consumer, handler CommandHandler, logger *slog.Logger) *CommandSubscriber {
	return &CommandSubscriber{consumer: consumer, handler: handler, logger: logger}
}

// Run 消费命令直到 ctx 取消。总线本身的错误向上返回，
// 由进程监督机制决定重启；单条命令的处理错误只记录。
func (s *CommandSubscriber) Run(ctx context.Context) error {
	for {
		msg, err := s.consumer.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("command bus read failed: %w", err)
		}

		if err := s.handler.HandleCommand(ctx, msg); err != nil {
			s.logger.ErrorContext(ctx, "failed to handle command",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"error", err,
			)
		}

		if err := s.consumer.CommitMessage(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("command bus commit failed: %w", err)
		}
	}
}
