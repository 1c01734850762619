package domain

import "context"

// UserSessionRepository 用户会话存储。会话由机器人进程写入，
// 监听进程只读（UpdateSubscription/ForgetUser 供运营流程使用）。
type UserSessionRepository interface {
	// FindUserSession 查询用户会话，不存在时返回 (nil, nil)
	FindUserSession(ctx context.Context, userID int64) (*UserSession, error)
	// ListUserIDs 列出全部已知会话的用户 ID，用于进程启动时批量拉起监听
	ListUserIDs(ctx context.Context) ([]int64, error)
	// UpdateSubscription 更新订阅有效期
	UpdateSubscription(ctx context.Context, userID int64, sub Subscription) error
	// ForgetUser 清除用户的凭证与个人信息
	ForgetUser(ctx context.Context, userID int64) error
}

// PartialOrderRepository 订单通知聚合状态存储
type PartialOrderRepository interface {
	// FindOrder 查询聚合记录，不存在时返回 (nil, nil)
	FindOrder(ctx context.Context, clientOrderID string) (*PartialOrderRecord, error)
	// SaveNewOrderMessage 记录订单创建通知的消息 id（upsert）
	SaveNewOrderMessage(ctx context.Context, clientOrderID string, messageID int64) error
	// SaveFillOrderMessage 记录成交通知的消息 id（upsert）
	SaveFillOrderMessage(ctx context.Context, clientOrderID string, messageID int64) error
	// AppendFill 追加一次成交增量（记录不存在时创建）
	AppendFill(ctx context.Context, clientOrderID string, fill Fill) error
	// DeleteOrder 删除聚合记录
	DeleteOrder(ctx context.Context, clientOrderID string) error
	// SummarizePartialOrders 汇总累计利润与手续费，terminal 为终结事件自身的增量。
	// 记录不存在时返回 (nil, nil)，由调用方按协议缺陷处理。
	SummarizePartialOrders(ctx context.Context, clientOrderID string, terminal Fill) (*PartialsSummary, error)
}
