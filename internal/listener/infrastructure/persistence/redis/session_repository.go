// Package redis 用户会话的 Redis 存储实现
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/wyfcoding/ordernotify/internal/listener/domain"
)

const (
	sessionKeyPrefix = "session:"
	sessionIndexKey  = "sessions:index"
)

// UserSessionRepository 实现 domain.UserSessionRepository。
// 会话以 JSON 存储，用户 id 额外维护在一个 set 里供批量启动遍历。
type UserSessionRepository struct {
	client redis.UniversalClient
}

// NewUserSessionRepository 创建用户会话仓储
func NewUserSessionRepository(client redis.UniversalClient) *UserSessionRepository {
	return &UserSessionRepository{client: client}
}

func sessionKey(userID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(userID, 10)
}

// FindUserSession 查询用户会话，不存在时返回 (nil, nil)
func (r *UserSessionRepository) FindUserSession(ctx context.Context, userID int64) (*domain.UserSession, error) {
	data, err := r.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user session: %w", err)
	}

	var sess domain.UserSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user session: %w", err)
	}
	return &sess, nil
}

// ListUserIDs 列出全部已知会话的用户 ID
func (r *UserSessionRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	members, err := r.client.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list user sessions: %w", err)
	}

	userIDs := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q in session index: %w", m, err)
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, nil
}

// SaveUserSession 写入用户会话并登记索引
func (r *UserSessionRepository) SaveUserSession(ctx context.Context, sess *domain.UserSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal user session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(sess.UserID), data, 0)
	pipe.SAdd(ctx, sessionIndexKey, strconv.FormatInt(sess.UserID, 10))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save user session: %w", err)
	}
	return nil
}

// UpdateSubscription 更新订阅有效期
func (r *UserSessionRepository) UpdateSubscription(ctx context.Context, userID int64, sub domain.Subscription) error {
	sess, err := r.FindUserSession(ctx, userID)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("user session %d not found", userID)
	}

	sess.Subscription = &sub
	return r.SaveUserSession(ctx, sess)
}

// ForgetUser 清除用户的凭证与个人信息。会话本身保留，
// 使历史 chat id 仍可用于事后排查。
func (r *UserSessionRepository) ForgetUser(ctx context.Context, userID int64) error {
	sess, err := r.FindUserSession(ctx, userID)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}

	sess.Credentials = nil
	sess.FirstName = ""
	sess.Language = ""
	return r.SaveUserSession(ctx, sess)
}
