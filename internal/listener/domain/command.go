// Package domain 订单事件监听服务的领域模型
package domain

import "context"

// CommandType 控制命令类型
type CommandType string

const (
	CommandStart   CommandType = "START"
	CommandStop    CommandType = "STOP"
	CommandRestart CommandType = "RESTART"
)

// Command 监听器控制命令。通过 fan-out topic 广播给所有监听进程，
// 不指向特定进程；每个进程收到后根据自身 Registry 决定是否适用。
type Command struct {
	Type   CommandType `json:"type"`
	UserID int64       `json:"user_id"`
}

// Valid 校验命令的完整性
func (c Command) Valid() bool {
	if c.UserID <= 0 {
		return false
	}
	switch c.Type {
	case CommandStart, CommandStop, CommandRestart:
		return true
	}
	return false
}

// CommandPublisher 将控制命令广播到命令总线
type CommandPublisher interface {
	Publish(ctx context.Context, cmd Command) error
}
