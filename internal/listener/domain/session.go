package domain

import "time"

// Credentials 用户在交易所的 API 凭证
type Credentials struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

// Subscription 付费订阅有效期
type Subscription struct {
	Started    time.Time `json:"started"`
	ValidUntil time.Time `json:"valid_until"`
}

// KindOption 单个流类别的用户开关。Enabled 为 nil 表示未显式设置，默认开启。
type KindOption struct {
	Enabled *bool `json:"enabled,omitempty"`
}

// UserOptions 用户的流类别开关
type UserOptions struct {
	Spot    KindOption `json:"spot"`
	Futures KindOption `json:"futures"`
}

// UserSession 用户会话，由机器人进程维护，监听进程只读。
// 每次处理事件都需重新读取，chat id 与语言必须反映当前状态。
type UserSession struct {
	UserID       int64         `json:"user_id"`
	ChatID       int64         `json:"chat_id"`
	FirstName    string        `json:"first_name"`
	Language     string        `json:"language"`
	Credentials  *Credentials  `json:"credentials,omitempty"`
	Subscription *Subscription `json:"subscription,omitempty"`
	Options      UserOptions   `json:"options"`
}

// HasCredentials 是否存有可用凭证
func (s *UserSession) HasCredentials() bool {
	return s.Credentials != nil && s.Credentials.APIKey != "" && s.Credentials.APISecret != ""
}

// Expired 订阅是否缺失或已过期
func (s *UserSession) Expired(now time.Time) bool {
	if s.Subscription == nil {
		return true
	}
	return s.Subscription.ValidUntil.Before(now)
}

// KindEnabled 指定类别是否开启。仅显式设置为 false 才视为关闭。
func (s *UserSession) KindEnabled(kind Kind) bool {
	var opt KindOption
	switch kind {
	case KindSpot:
		opt = s.Options.Spot
	case KindFutures:
		opt = s.Options.Futures
	default:
		return false
	}
	return opt.Enabled == nil || *opt.Enabled
}

// CanListen 会话当前是否允许为该类别建立监听。
// 缺失会话、缺失凭证、订阅过期与显式关闭等价于"不启动"。
func (s *UserSession) CanListen(kind Kind, now time.Time) bool {
	return s.HasCredentials() && !s.Expired(now) && s.KindEnabled(kind)
}
