package domain

import "errors"

// ErrAuthRejected 交易所拒绝了用户凭证。对该用户的会话是终态：
// 记录日志后不再重试，需操作员重新配置。
var ErrAuthRejected = errors.New("exchange rejected credentials")
