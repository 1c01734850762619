package domain

import "context"

// Notifier 聊天通知传输契约。实际传输（Telegram 等）在进程外部，
// 这里只消费 send/edit/delete 三个窄接口。
type Notifier interface {
	// SendMessage 发送消息并返回消息 id
	SendMessage(ctx context.Context, chatID int64, text string) (int64, error)
	// EditMessageText 原地编辑已发送的消息
	EditMessageText(ctx context.Context, chatID int64, messageID int64, text string) error
	// DeleteMessage 删除已发送的消息
	DeleteMessage(ctx context.Context, chatID int64, messageID int64) error
}

// UserStream 单个用户的交易所推送流。由创建它的会话独占。
type UserStream interface {
	// ReadMessage 阻塞读取下一条原始推送，流关闭或 ctx 取消时返回错误
	ReadMessage(ctx context.Context) ([]byte, error)
	// Close 同步释放底层连接，可安全地重复调用
	Close() error
}

// StreamDialer 以用户凭证建立交易所用户数据流。
// 凭证被拒绝时返回包装了 ErrAuthRejected 的错误。
type StreamDialer interface {
	Dial(ctx context.Context, creds Credentials, kind Kind) (UserStream, error)
}
